package agent

import (
	"slices"

	"bonesagent/pkg/parts"
)

// repair restores the invariant that every assistant tool_use block is
// answered by a tool_result in the immediately following user message.
// Gaps happen when a turn is torn down mid-batch; the API rejects such
// histories outright. Missing results are filled with error placeholders,
// prepended so results stay adjacent to their calls. Running repair on an
// already well-formed history changes nothing.
func (s *Session) repair() {
	for i := 0; i < len(s.conv); i++ {
		if s.conv[i].Role != parts.RoleAssistant {
			continue
		}
		ids := s.conv[i].ToolUseIDs()
		if len(ids) == 0 {
			continue
		}

		var next *parts.Message
		if i+1 < len(s.conv) && s.conv[i+1].Role == parts.RoleUser {
			next = &s.conv[i+1]
		}
		answered := map[string]bool{}
		if next != nil {
			answered = next.ToolResultIDs()
		}

		var filler []parts.ContentBlock
		for _, id := range ids {
			if !answered[id] {
				filler = append(filler, parts.ErrorResult(id, noResultText))
			}
		}
		if len(filler) == 0 {
			continue
		}

		s.logger.Info("repaired dangling tool calls", "count", len(filler))
		if next != nil {
			next.Content = append(filler, next.Content...)
		} else {
			s.conv = slices.Insert(s.conv, i+1, parts.Message{Role: parts.RoleUser, Content: filler})
		}
	}
}
