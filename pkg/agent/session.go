package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"bonesagent/pkg/claude"
	"bonesagent/pkg/parts"
	"bonesagent/pkg/tools"
	"bonesagent/pkg/wire"
)

// Streamer produces streaming model events for one request. claude.Client is
// the real implementation; tests substitute scripted ones.
type Streamer interface {
	Stream(ctx context.Context, req claude.Request) iter.Seq2[claude.Event, error]
}

const (
	noResultText       = "[No result — interrupted]"
	cancelledText      = "[Cancelled]"
	connectionLostText = "[Connection lost]"

	maxTurnIterations = 20
)

var errCancelled = errors.New("cancelled")

// Session holds the state of one initialized conversation: the message
// history, the model fallback chain, and the queue of user messages that
// arrived while a tool round-trip was in flight.
type Session struct {
	transport *wire.Transport
	streamer  Streamer
	registry  *tools.Registry
	logger    *slog.Logger

	models   []string
	modelIdx int

	conv      []parts.Message
	domain    string
	cancelled bool
	pending   []*wire.Inbound
}

// NewSession wires a session to its transport and model stream. The tool
// registry is attached separately because the overlay tools need the session
// itself as their host caller.
func NewSession(transport *wire.Transport, streamer Streamer, models []string, logger *slog.Logger) *Session {
	return &Session{
		transport: transport,
		streamer:  streamer,
		models:    models,
		logger:    logger,
	}
}

func (s *Session) initRegistry(store func(context.Context) (tools.SharedStore, error)) error {
	ot := &tools.OverlayTools{
		Store:  store,
		Host:   s,
		Domain: func() string { return s.domain },
	}
	reg, err := tools.NewRegistry(append(tools.NativeDefinitions(), ot.Definitions()...)...)
	if err != nil {
		return err
	}
	s.registry = reg
	return nil
}

// setModel makes the given model the active one. A model already in the
// fallback chain becomes the current position; an unknown model is placed at
// the head so overload fallback still walks the configured chain after it.
func (s *Session) setModel(model string) {
	if model == "" {
		return
	}
	for i, m := range s.models {
		if m == model {
			s.modelIdx = i
			s.logger.Info("model switched", "model", model)
			return
		}
	}
	s.models = append([]string{model}, s.models...)
	s.modelIdx = 0
	s.logger.Info("model switched", "model", model)
}

func (s *Session) send(msg wire.Outbound) {
	if err := s.transport.Write(msg); err != nil {
		s.logger.Error("failed to write to host", "error", err)
	}
}

func (s *Session) handleInit(ctx context.Context, msg *wire.Inbound) {
	var content []parts.ContentBlock
	if msg.ScreenshotBase64 != "" {
		mediaType := msg.ScreenshotMediaType
		if mediaType == "" {
			mediaType = "image/png"
		}
		content = append(content, parts.Image(mediaType, msg.ScreenshotBase64))
	}
	if len(msg.ElementCodes) > 0 {
		content = append(content, parts.Text(formatElementCodes(msg.ElementCodes)))
	}
	if msg.PageURL != "" {
		s.domain = hostnameOf(msg.PageURL)
		content = append(content, parts.Text("Page URL: "+msg.PageURL))
	}
	if len(msg.SiteApps) > 0 {
		content = append(content, parts.Text(formatSiteApps(msg.SiteApps)))
	}
	if len(msg.SavedOverlays) > 0 {
		content = append(content, parts.Text(formatSavedOverlays(msg.SavedOverlays)))
	}
	content = append(content, parts.Text("Here is the current state of the window. What do you see?"))
	s.conv = append(s.conv, parts.Message{Role: parts.RoleUser, Content: content})

	s.send(suggestionsFor(msg))
	s.runTurn(ctx)
}

func (s *Session) handleUserMessage(ctx context.Context, msg *wire.Inbound) {
	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	s.conv = append(s.conv, parts.Message{
		Role:    parts.RoleUser,
		Content: []parts.ContentBlock{parts.Text(msg.Text)},
	})
	s.runTurn(ctx)
}

// drainPending replays user messages that were buffered while a tool
// round-trip was waiting on the host, oldest first. Each replayed message
// gets a fresh turn with cancellation cleared.
func (s *Session) drainPending(ctx context.Context) {
	for len(s.pending) > 0 {
		msg := s.pending[0]
		s.pending = s.pending[1:]
		s.logger.Info("replaying buffered user message")
		s.cancelled = false
		s.handleUserMessage(ctx, msg)
	}
}

// CallHost performs a silent host tool round-trip on behalf of a local tool.
// The envelope carries a generated id so the host's reply cannot collide with
// ids minted by the model.
func (s *Session) CallHost(ctx context.Context, name string, input map[string]any) (*wire.ToolResult, error) {
	id := "silent_" + uuid.NewString()
	if err := s.transport.Write(wire.NewToolUse(id, name, input, true)); err != nil {
		return nil, err
	}
	result, outcome := s.awaitHostResult()
	switch outcome {
	case waitEOF:
		return nil, errors.New("connection to host lost")
	case waitCancelled:
		s.cancelled = true
		return nil, errCancelled
	}
	return result, nil
}

type waitOutcome int

const (
	waitResult waitOutcome = iota
	waitCancelled
	waitEOF
)

// awaitHostResult blocks on the transport until the host answers a tool_use
// envelope. User messages that arrive in the meantime are queued for later;
// a cancel or a closed transport ends the wait without a result.
func (s *Session) awaitHostResult() (*wire.ToolResult, waitOutcome) {
	for {
		msg, err := s.transport.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Error("transport read failed while awaiting tool result", "error", err)
			}
			return nil, waitEOF
		}
		switch msg.Type {
		case wire.TypeToolResult:
			result := msg.Result
			if result == nil {
				result = &wire.ToolResult{IsError: true, Text: "(missing result payload)"}
			}
			return result, waitResult
		case wire.TypeCancel:
			return nil, waitCancelled
		case wire.TypeUserMessage:
			s.pending = append(s.pending, msg)
			s.logger.Info("buffered user message during tool execution", "queued", len(s.pending))
		default:
			s.logger.Warn("ignoring message while awaiting tool result", "type", msg.Type)
		}
	}
}

func formatElementCodes(codes []wire.ElementCode) string {
	var b strings.Builder
	b.WriteString("Element codes for the current screen:")
	for _, e := range codes {
		typ := e.Type
		if typ == "" {
			typ = "?"
		}
		label := e.Label
		if label == "" {
			label = e.Role
		}
		if label == "" {
			label = "?"
		}
		fmt.Fprintf(&b, "\n[%s] %s: %q", e.Code, typ, label)
	}
	return b.String()
}

func formatSiteApps(apps []wire.SiteApp) string {
	var b strings.Builder
	b.WriteString("Saved apps available for this site (launch with launch_site_app):")
	for _, a := range apps {
		fmt.Fprintf(&b, "\n- %s: %s", a.Name, a.Description)
	}
	return b.String()
}

func formatSavedOverlays(overlays []wire.SavedOverlay) string {
	var b strings.Builder
	b.WriteString("Saved overlays for this site (load with load_overlay):")
	for _, o := range overlays {
		fmt.Fprintf(&b, "\n- %s: %s", o.ID, o.Name)
	}
	return b.String()
}

func suggestionsFor(msg *wire.Inbound) wire.Suggestions {
	greeting := "I can see your screen. What would you like to do?"
	if len(msg.SavedOverlays) > 0 || len(msg.SiteApps) > 0 {
		greeting = "Welcome back. I can relaunch what you've built for this site, or start something new."
	}
	var entries []wire.Suggestion
	for _, o := range msg.SavedOverlays {
		entries = append(entries, wire.Suggestion{
			Label: "Load " + o.Name,
			Value: fmt.Sprintf("Load the %q overlay", o.Name),
		})
	}
	for _, a := range msg.SiteApps {
		entries = append(entries, wire.Suggestion{
			Label: "Open " + a.Name,
			Value: fmt.Sprintf("Launch the %s app", a.Name),
		})
	}
	return wire.NewSuggestions(greeting, entries)
}

func hostnameOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
