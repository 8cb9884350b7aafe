// Package wire implements the newline-delimited JSON channel between
// the agent subprocess and the host. One JSON object per line in each
// direction; stdout carries protocol messages only, logs go to stderr.
package wire

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// Screenshot payloads arrive base64-encoded on a single line.
const maxLineBytes = 64 * 1024 * 1024

// Inbound message types sent by the host.
const (
	TypeInit        = "init"
	TypeUserMessage = "user_message"
	TypeToolResult  = "tool_result"
	TypeCancel      = "cancel"
	TypeSetModel    = "set_model"
)

type ElementCode struct {
	Code  string `json:"code"`
	Type  string `json:"type,omitempty"`
	Role  string `json:"role,omitempty"`
	Label string `json:"label,omitempty"`
}

type SiteApp struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type SavedOverlay struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToolResult is the host-side outcome of one tool execution.
type ToolResult struct {
	Text        string `json:"text,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MediaType   string `json:"media_type,omitempty"`
	IsError     bool   `json:"is_error,omitempty"`
}

// Inbound is a message read from the host. Only the fields of the
// tagged Type are populated; unknown fields are ignored.
type Inbound struct {
	Type string `json:"type"`

	// init
	APIKey              string         `json:"api_key,omitempty"`
	Model               string         `json:"model,omitempty"` // also set_model
	ScreenshotBase64    string         `json:"screenshot_base64,omitempty"`
	ScreenshotMediaType string         `json:"screenshot_media_type,omitempty"`
	ElementCodes        []ElementCode  `json:"element_codes,omitempty"`
	PageURL             string         `json:"page_url,omitempty"`
	SiteApps            []SiteApp      `json:"site_apps,omitempty"`
	SavedOverlays       []SavedOverlay `json:"saved_overlays,omitempty"`

	// user_message
	Text string `json:"text,omitempty"`

	// tool_result
	Result *ToolResult `json:"result,omitempty"`
}

// Outbound is a message written to the host.
type Outbound interface {
	isOutbound()
}

type StreamingStart struct {
	Type string `json:"type"`
}

type StreamingEnd struct {
	Type string `json:"type"`
}

type TextDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AssistantMessage struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	Provenance string `json:"provenance,omitempty"`
}

type ToolUse struct {
	Type  string         `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
	// Silent marks internally generated calls the host should execute
	// without surfacing them to the user.
	Silent bool `json:"silent,omitempty"`
}

type Status struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Suggestion struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Suggestions struct {
	Type        string       `json:"type"`
	Greeting    string       `json:"greeting"`
	Suggestions []Suggestion `json:"suggestions"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Done struct {
	Type string `json:"type"`
}

func (StreamingStart) isOutbound()   {}
func (StreamingEnd) isOutbound()     {}
func (TextDelta) isOutbound()        {}
func (AssistantMessage) isOutbound() {}
func (ToolUse) isOutbound()          {}
func (Status) isOutbound()           {}
func (Suggestions) isOutbound()      {}
func (Error) isOutbound()            {}
func (Done) isOutbound()             {}

func NewStreamingStart() StreamingStart { return StreamingStart{Type: "streaming_start"} }
func NewStreamingEnd() StreamingEnd     { return StreamingEnd{Type: "streaming_end"} }
func NewTextDelta(text string) TextDelta {
	return TextDelta{Type: "text_delta", Text: text}
}

func NewAssistantMessage(text string) AssistantMessage {
	return AssistantMessage{Type: "assistant_message", Text: text}
}

func NewToolUse(id, name string, input map[string]any, silent bool) ToolUse {
	if input == nil {
		input = map[string]any{}
	}
	return ToolUse{Type: "tool_use", ID: id, Name: name, Input: input, Silent: silent}
}

func NewStatus(text string) Status { return Status{Type: "status", Text: text} }

func NewSuggestions(greeting string, entries []Suggestion) Suggestions {
	return Suggestions{Type: "suggestions", Greeting: greeting, Suggestions: entries}
}

func NewError(message string) Error { return Error{Type: "error", Message: message} }
func NewDone() Done                 { return Done{Type: "done"} }

// Transport reads Inbound and writes Outbound messages. Read blocks
// until a line is available; io.EOF means the host closed the channel
// for good. Write fully hands the line to the writer before returning,
// so the ordering of Write calls is the ordering the host observes.
// The writer must be unbuffered (os.Stdout in production).
type Transport struct {
	scanner *bufio.Scanner
	w       io.Writer
	logger  *slog.Logger
}

func New(r io.Reader, w io.Writer, logger *slog.Logger) *Transport {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Transport{
		scanner: scanner,
		w:       w,
		logger:  logger.With("component", "wire"),
	}
}

// Read returns the next inbound message. Empty lines are skipped;
// malformed lines are reported as errors without consuming the stream.
func (t *Transport) Read() (*Inbound, error) {
	for t.scanner.Scan() {
		line := t.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg := &Inbound{}
		if err := json.Unmarshal(line, msg); err != nil {
			return nil, fmt.Errorf("malformed inbound line: %w", err)
		}
		t.logger.Debug("read", "type", msg.Type)
		return msg, nil
	}
	if err := t.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (t *Transport) Write(msg Outbound) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal outbound: %w", err)
	}
	data = append(data, '\n')
	if _, err := t.w.Write(data); err != nil {
		return fmt.Errorf("write outbound: %w", err)
	}
	return nil
}
