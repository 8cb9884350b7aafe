package claude

import (
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"

	"bonesagent/pkg/parts"
	"bonesagent/pkg/sse"
)

// Event is one unit of streamed model output.
type Event struct {
	// TextDelta is a text fragment, emitted as it arrives.
	TextDelta string
	// ToolUse is a completed tool_use block with its input assembled
	// from the streamed JSON fragments.
	ToolUse *parts.ContentBlock
	// StopReason is the terminal stop condition ("end_turn",
	// "tool_use", ...), set on the final event of the stream.
	StopReason string
}

type eventType string

const (
	eventTypePing              eventType = "ping"
	eventTypeError             eventType = "error"
	eventTypeMessageStart      eventType = "message_start"
	eventTypeMessageDelta      eventType = "message_delta"
	eventTypeMessageStop       eventType = "message_stop"
	eventTypeContentBlockStart eventType = "content_block_start"
	eventTypeContentBlockDelta eventType = "content_block_delta"
	eventTypeContentBlockStop  eventType = "content_block_stop"
)

type contentBlockStart struct {
	Index        int `json:"index"`
	ContentBlock struct {
		Type string `json:"type"`
		Text string `json:"text"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
}

type contentBlockDelta struct {
	Index int `json:"index"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
}

type messageDelta struct {
	Delta struct {
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
}

// toolCall accumulates a streaming tool_use block. Transient, lives
// only for the duration of one stream.
type toolCall struct {
	id        string
	name      string
	inputJSON []byte
}

// input parses the accumulated fragments. Unparseable input degrades
// to an empty object rather than aborting the turn.
func (tc *toolCall) input(logger *slog.Logger) map[string]any {
	in := map[string]any{}
	if len(tc.inputJSON) == 0 {
		return in
	}
	if err := json.Unmarshal(tc.inputJSON, &in); err != nil {
		logger.Warn("malformed tool input, using empty object", "tool", tc.name, "error", err)
		return map[string]any{}
	}
	return in
}

type eventProcessor struct {
	scanner *sse.Scanner
	logger  *slog.Logger

	call    *toolCall // accumulating tool_use block
	stopped string
}

func newEventProcessor(r io.Reader, logger *slog.Logger) *eventProcessor {
	return &eventProcessor{scanner: sse.NewScanner(r), logger: logger}
}

func (p *eventProcessor) processStart(ev *sse.Event) (Event, bool, error) {
	start := contentBlockStart{}
	if err := json.Unmarshal([]byte(ev.Data), &start); err != nil {
		return Event{}, false, err
	}
	switch start.ContentBlock.Type {
	case "tool_use":
		p.call = &toolCall{id: start.ContentBlock.ID, name: start.ContentBlock.Name}
		return Event{}, false, nil
	case "text":
		if start.ContentBlock.Text != "" {
			return Event{TextDelta: start.ContentBlock.Text}, true, nil
		}
	}
	return Event{}, false, nil
}

func (p *eventProcessor) processDelta(ev *sse.Event) (Event, bool, error) {
	delta := contentBlockDelta{}
	if err := json.Unmarshal([]byte(ev.Data), &delta); err != nil {
		return Event{}, false, err
	}
	switch delta.Delta.Type {
	case "text_delta":
		return Event{TextDelta: delta.Delta.Text}, delta.Delta.Text != "", nil
	case "input_json_delta":
		if p.call != nil {
			p.call.inputJSON = append(p.call.inputJSON, delta.Delta.PartialJSON...)
		}
	}
	// Thinking and signature deltas are not surfaced to the host.
	return Event{}, false, nil
}

func (p *eventProcessor) processStop() (Event, bool) {
	if p.call == nil {
		return Event{}, false
	}
	block := parts.ToolUse(p.call.id, p.call.name, p.call.input(p.logger))
	p.call = nil
	return Event{ToolUse: &block}, true
}

func (p *eventProcessor) events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := p.scanner.Scan()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				yield(Event{}, err)
				return
			}
			switch eventType(ev.Event) {
			case eventTypeError:
				yield(Event{}, parseAPIError(0, []byte(ev.Data)))
				return
			case eventTypeContentBlockStart:
				e, emit, err := p.processStart(ev)
				if err != nil {
					yield(Event{}, err)
					return
				}
				if emit && !yield(e, nil) {
					return
				}
			case eventTypeContentBlockDelta:
				e, emit, err := p.processDelta(ev)
				if err != nil {
					yield(Event{}, err)
					return
				}
				if emit && !yield(e, nil) {
					return
				}
			case eventTypeContentBlockStop:
				if e, emit := p.processStop(); emit {
					if !yield(e, nil) {
						return
					}
				}
			case eventTypeMessageDelta:
				md := messageDelta{}
				if err := json.Unmarshal([]byte(ev.Data), &md); err != nil {
					yield(Event{}, err)
					return
				}
				if md.Delta.StopReason != "" {
					p.stopped = md.Delta.StopReason
				}
			case eventTypeMessageStart, eventTypeMessageStop, eventTypePing:
				// Nothing to surface.
			}
		}
		if p.stopped != "" {
			yield(Event{StopReason: p.stopped}, nil)
		}
	}
}
