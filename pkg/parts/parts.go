// Package parts defines the conversation data model: messages made of
// tagged content blocks in the Anthropic wire shape.
package parts

import (
	"encoding/json"
	"fmt"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type BlockType string

const (
	TypeText       BlockType = "text"
	TypeImage      BlockType = "image"
	TypeToolUse    BlockType = "tool_use"
	TypeToolResult BlockType = "tool_result"
)

// ImageSource is the base64 image payload of an image block.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ContentBlock is the tagged union over text, image, tool_use and
// tool_result blocks. Which fields are meaningful depends on Type;
// marshaling emits only the fields of the tagged variant.
type ContentBlock struct {
	Type BlockType

	// text
	Text string

	// image
	Source *ImageSource

	// tool_use
	ID    string
	Name  string
	Input map[string]any

	// tool_result
	ToolUseID string
	Content   []ContentBlock
	IsError   bool
}

// Message is one conversation entry. The conversation is an ordered
// slice of Messages. Invariant: every tool_use block in an assistant
// message is matched by a tool_result with the same id in the
// immediately following user message.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

func Text(text string) ContentBlock {
	return ContentBlock{Type: TypeText, Text: text}
}

func Image(mediaType, base64Data string) ContentBlock {
	return ContentBlock{Type: TypeImage, Source: &ImageSource{
		Type:      "base64",
		MediaType: mediaType,
		Data:      base64Data,
	}}
}

func ToolUse(id, name string, input map[string]any) ContentBlock {
	if input == nil {
		input = map[string]any{}
	}
	return ContentBlock{Type: TypeToolUse, ID: id, Name: name, Input: input}
}

func ToolResult(toolUseID string, content []ContentBlock, isError bool) ContentBlock {
	if len(content) == 0 {
		content = []ContentBlock{Text("(no output)")}
	}
	return ContentBlock{
		Type:      TypeToolResult,
		ToolUseID: toolUseID,
		Content:   content,
		IsError:   isError,
	}
}

// ErrorResult builds a tool_result carrying an error text, used for
// repair, cancellation and connection loss.
func ErrorResult(toolUseID, text string) ContentBlock {
	return ToolResult(toolUseID, []ContentBlock{Text(text)}, true)
}

// ToolUseIDs returns the ids of all tool_use blocks in the message.
func (m *Message) ToolUseIDs() []string {
	var ids []string
	for _, b := range m.Content {
		if b.Type == TypeToolUse {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// ToolResultIDs returns the set of tool_use ids answered by
// tool_result blocks in the message.
func (m *Message) ToolResultIDs() map[string]bool {
	ids := map[string]bool{}
	for _, b := range m.Content {
		if b.Type == TypeToolResult {
			ids[b.ToolUseID] = true
		}
	}
	return ids
}

type textBlock struct {
	Type BlockType `json:"type"`
	Text string    `json:"text"`
}

type imageBlock struct {
	Type   BlockType    `json:"type"`
	Source *ImageSource `json:"source"`
}

type toolUseBlock struct {
	Type  BlockType      `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

type toolResultBlock struct {
	Type      BlockType      `json:"type"`
	ToolUseID string         `json:"tool_use_id"`
	Content   []ContentBlock `json:"content"`
	IsError   bool           `json:"is_error"`
}

func (b ContentBlock) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case TypeText:
		return json.Marshal(textBlock{Type: b.Type, Text: b.Text})
	case TypeImage:
		return json.Marshal(imageBlock{Type: b.Type, Source: b.Source})
	case TypeToolUse:
		input := b.Input
		if input == nil {
			// The API rejects tool_use blocks without an input object.
			input = map[string]any{}
		}
		return json.Marshal(toolUseBlock{Type: b.Type, ID: b.ID, Name: b.Name, Input: input})
	case TypeToolResult:
		return json.Marshal(toolResultBlock{
			Type:      b.Type,
			ToolUseID: b.ToolUseID,
			Content:   b.Content,
			IsError:   b.IsError,
		})
	}
	return nil, fmt.Errorf("unknown content block type %q", b.Type)
}

type rawBlock struct {
	Type      BlockType      `json:"type"`
	Text      string         `json:"text"`
	Source    *ImageSource   `json:"source"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	ToolUseID string         `json:"tool_use_id"`
	Content   []ContentBlock `json:"content"`
	IsError   bool           `json:"is_error"`
}

func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var raw rawBlock
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case TypeText, TypeImage, TypeToolUse, TypeToolResult:
	default:
		return fmt.Errorf("unknown content block type %q", raw.Type)
	}
	*b = ContentBlock{
		Type:      raw.Type,
		Text:      raw.Text,
		Source:    raw.Source,
		ID:        raw.ID,
		Name:      raw.Name,
		Input:     raw.Input,
		ToolUseID: raw.ToolUseID,
		Content:   raw.Content,
		IsError:   raw.IsError,
	}
	return nil
}
