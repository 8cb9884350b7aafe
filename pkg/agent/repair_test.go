package agent

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonesagent/pkg/parts"
)

func repairSession(conv []parts.Message) *Session {
	return &Session{conv: conv, logger: slog.New(slog.DiscardHandler)}
}

func TestRepairWellFormedHistoryUntouched(t *testing.T) {
	conv := []parts.Message{
		{Role: parts.RoleUser, Content: []parts.ContentBlock{parts.Text("hi")}},
		{Role: parts.RoleAssistant, Content: []parts.ContentBlock{
			parts.ToolUse("t1", "take_screenshot", nil),
		}},
		{Role: parts.RoleUser, Content: []parts.ContentBlock{
			parts.ToolResult("t1", []parts.ContentBlock{parts.Text("ok")}, false),
		}},
	}
	s := repairSession(conv)

	s.repair()

	require.Len(t, s.conv, 3)
	assert.Len(t, s.conv[2].Content, 1)
}

func TestRepairInsertsMissingResultMessage(t *testing.T) {
	s := repairSession([]parts.Message{
		{Role: parts.RoleUser, Content: []parts.ContentBlock{parts.Text("hi")}},
		{Role: parts.RoleAssistant, Content: []parts.ContentBlock{
			parts.Text("clicking"),
			parts.ToolUse("t1", "click_code", map[string]any{"code": "AA"}),
		}},
	})

	s.repair()

	require.Len(t, s.conv, 3)
	inserted := s.conv[2]
	assert.Equal(t, parts.RoleUser, inserted.Role)
	require.Len(t, inserted.Content, 1)
	assert.Equal(t, "t1", inserted.Content[0].ToolUseID)
	assert.True(t, inserted.Content[0].IsError)
	assert.Equal(t, noResultText, inserted.Content[0].Content[0].Text)
}

func TestRepairPrependsToPartialResults(t *testing.T) {
	s := repairSession([]parts.Message{
		{Role: parts.RoleAssistant, Content: []parts.ContentBlock{
			parts.ToolUse("t1", "take_screenshot", nil),
			parts.ToolUse("t2", "click_code", nil),
		}},
		{Role: parts.RoleUser, Content: []parts.ContentBlock{
			parts.ToolResult("t2", []parts.ContentBlock{parts.Text("clicked")}, false),
		}},
	})

	s.repair()

	require.Len(t, s.conv, 2)
	content := s.conv[1].Content
	require.Len(t, content, 2)
	assert.Equal(t, "t1", content[0].ToolUseID)
	assert.Equal(t, noResultText, content[0].Content[0].Text)
	assert.Equal(t, "t2", content[1].ToolUseID)
}

func TestRepairTrailingAssistantMessage(t *testing.T) {
	s := repairSession([]parts.Message{
		{Role: parts.RoleAssistant, Content: []parts.ContentBlock{
			parts.ToolUse("t1", "take_screenshot", nil),
		}},
	})

	s.repair()

	require.Len(t, s.conv, 2)
	assert.Equal(t, parts.RoleUser, s.conv[1].Role)
}

func TestRepairIsIdempotent(t *testing.T) {
	s := repairSession([]parts.Message{
		{Role: parts.RoleAssistant, Content: []parts.ContentBlock{
			parts.ToolUse("t1", "take_screenshot", nil),
			parts.ToolUse("t2", "click_code", nil),
		}},
	})

	s.repair()
	once := len(s.conv)
	blocks := len(s.conv[1].Content)

	s.repair()

	assert.Equal(t, once, len(s.conv))
	assert.Equal(t, blocks, len(s.conv[1].Content))
}

func TestRepairMultipleGaps(t *testing.T) {
	s := repairSession([]parts.Message{
		{Role: parts.RoleAssistant, Content: []parts.ContentBlock{
			parts.ToolUse("t1", "take_screenshot", nil),
		}},
		{Role: parts.RoleUser, Content: []parts.ContentBlock{parts.Text("never mind")}},
		{Role: parts.RoleAssistant, Content: []parts.ContentBlock{
			parts.ToolUse("t2", "click_code", nil),
		}},
	})

	s.repair()

	require.Len(t, s.conv, 4)
	assert.Equal(t, "t1", s.conv[1].Content[0].ToolUseID)
	assert.Equal(t, "never mind", s.conv[1].Content[1].Text)
	assert.Equal(t, "t2", s.conv[3].Content[0].ToolUseID)
}
