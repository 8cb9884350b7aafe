package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bonesagent/pkg/claude"
	"bonesagent/pkg/parts"
	"bonesagent/pkg/wire"
)

// runTurn drives one conversational turn to completion: stream a model
// response, execute any requested tools, feed the results back, and repeat
// until the model stops asking for tools or the iteration cap is hit.
func (s *Session) runTurn(ctx context.Context) {
	for range maxTurnIterations {
		if s.cancelled {
			return
		}
		s.repair()

		s.send(wire.NewStreamingStart())
		text, toolCalls, stopReason, err := s.streamWithFallback(ctx)
		s.send(wire.NewStreamingEnd())
		if err != nil {
			if errors.Is(err, errCancelled) {
				return
			}
			s.logger.Error("model request failed", "error", err)
			s.send(wire.NewError(err.Error()))
			return
		}

		if text != "" {
			s.send(wire.NewAssistantMessage(text))
		}
		var content []parts.ContentBlock
		if text != "" {
			content = append(content, parts.Text(text))
		}
		content = append(content, toolCalls...)
		if len(content) > 0 {
			s.conv = append(s.conv, parts.Message{Role: parts.RoleAssistant, Content: content})
		}

		if stopReason == "tool_use" && len(toolCalls) > 0 {
			results, aborted := s.executeTools(ctx, toolCalls)
			s.conv = append(s.conv, parts.Message{Role: parts.RoleUser, Content: results})
			if aborted || s.cancelled {
				s.send(wire.NewDone())
				return
			}
			continue
		}

		s.send(wire.NewDone())
		return
	}
	s.logger.Warn("turn hit iteration cap", "iterations", maxTurnIterations)
	s.send(wire.NewDone())
}

// streamWithFallback runs one model attempt, walking down the model chain on
// overload. Nothing is committed to the conversation here, so a failed
// attempt leaves no trace and the retry starts from identical history.
func (s *Session) streamWithFallback(ctx context.Context) (string, []parts.ContentBlock, string, error) {
	for {
		text, toolCalls, stopReason, err := s.streamOnce(ctx)
		if err == nil || errors.Is(err, errCancelled) {
			return text, toolCalls, stopReason, err
		}
		if claude.IsOverloaded(err) && s.modelIdx+1 < len(s.models) {
			from := s.models[s.modelIdx]
			s.modelIdx++
			to := s.models[s.modelIdx]
			s.logger.Warn("model overloaded, falling back", "from", from, "to", to)
			s.send(wire.NewTextDelta(fmt.Sprintf("\n[%s is overloaded — switching to %s]\n", from, to)))
			s.send(wire.NewStatus("Switching to " + to))
			continue
		}
		return "", nil, "", err
	}
}

func (s *Session) streamOnce(ctx context.Context) (string, []parts.ContentBlock, string, error) {
	req := claude.Request{
		Model:    s.models[s.modelIdx],
		System:   systemPrompt,
		Messages: s.conv,
		Tools:    s.registry.Catalog(),
	}
	var text strings.Builder
	var toolCalls []parts.ContentBlock
	stopReason := ""
	for ev, err := range s.streamer.Stream(ctx, req) {
		if err != nil {
			return "", nil, "", err
		}
		if s.cancelled {
			return "", nil, "", errCancelled
		}
		if ev.TextDelta != "" {
			text.WriteString(ev.TextDelta)
			s.send(wire.NewTextDelta(ev.TextDelta))
		}
		if ev.ToolUse != nil {
			toolCalls = append(toolCalls, *ev.ToolUse)
		}
		if ev.StopReason != "" {
			stopReason = ev.StopReason
		}
	}
	return text.String(), toolCalls, stopReason, nil
}

// executeTools runs a batch of tool calls strictly in order. Once a cancel
// arrives or the transport closes, every remaining call still gets an error
// result so the history stays well formed. aborted reports a lost transport.
func (s *Session) executeTools(ctx context.Context, toolCalls []parts.ContentBlock) ([]parts.ContentBlock, bool) {
	results := make([]parts.ContentBlock, 0, len(toolCalls))
	aborted := false
	for _, call := range toolCalls {
		// Only the call whose wait saw the transport die reports the lost
		// connection; the rest were never attempted.
		if aborted {
			results = append(results, parts.ErrorResult(call.ID, cancelledText))
			continue
		}
		if s.cancelled {
			results = append(results, parts.ErrorResult(call.ID, cancelledText))
			continue
		}
		def, err := s.registry.Lookup(call.Name)
		if err != nil {
			results = append(results, parts.ErrorResult(call.ID, err.Error()))
			continue
		}
		if !def.Remote() {
			s.send(wire.NewStatus("Running " + call.Name))
			res := def.Run(ctx, call.Input)
			results = append(results, parts.ToolResult(call.ID, res.Content, res.IsError))
			continue
		}
		s.send(wire.NewToolUse(call.ID, call.Name, call.Input, false))
		result, outcome := s.awaitHostResult()
		switch outcome {
		case waitEOF:
			aborted = true
			results = append(results, parts.ErrorResult(call.ID, connectionLostText))
		case waitCancelled:
			s.cancelled = true
			results = append(results, parts.ErrorResult(call.ID, cancelledText))
		default:
			results = append(results, parts.ToolResult(call.ID, hostResultContent(result), result.IsError))
		}
	}
	return results, aborted
}

func hostResultContent(result *wire.ToolResult) []parts.ContentBlock {
	var content []parts.ContentBlock
	if result.Text != "" {
		content = append(content, parts.Text(result.Text))
	}
	if result.ImageBase64 != "" {
		mediaType := result.MediaType
		if mediaType == "" {
			mediaType = "image/png"
		}
		content = append(content, parts.Image(mediaType, result.ImageBase64))
	}
	return content
}
