package agent

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonesagent/pkg/claude"
	"bonesagent/pkg/config"
	"bonesagent/pkg/parts"
	"bonesagent/pkg/tools"
	"bonesagent/pkg/wire"
)

func newTestController(t *testing.T, streamer Streamer, hostInput string) (*Controller, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	logger := slog.New(slog.DiscardHandler)
	transport := wire.New(strings.NewReader(hostInput), out, logger)

	cfg := config.Default()
	cfg.Claude = &claude.Config{APIKey: "test-key", Models: []string{"model-a", "model-b", "model-c"}}

	c := NewController(transport, cfg, logger)
	c.newStreamer = func(string) (Streamer, error) { return streamer, nil }
	c.newStore = func(context.Context, string) (tools.SharedStore, error) {
		return nil, errors.New("store not configured")
	}
	return c, out
}

func TestControllerUserMessageBeforeInit(t *testing.T) {
	input := `{"type":"user_message","text":"hello?"}` + "\n"
	c, out := newTestController(t, &fakeStreamer{}, input)

	require.NoError(t, c.Run(context.Background()))

	errs := outboundOfType(t, out, "error")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0]["message"], "not initialized")
}

func TestControllerInitThenMessage(t *testing.T) {
	streamer := &fakeStreamer{attempts: []attempt{
		textTurn("I see a browser."),
		textTurn("Done that."),
	}}
	input := `{"type":"init","page_url":"https://example.com/a"}` + "\n" +
		`{"type":"user_message","text":"do the thing"}` + "\n"
	c, out := newTestController(t, streamer, input)

	require.NoError(t, c.Run(context.Background()))

	require.Len(t, streamer.requests, 2)
	assert.Equal(t, "model-a", streamer.requests[0].Model)
	msgs := outboundOfType(t, out, "assistant_message")
	require.Len(t, msgs, 2)
	assert.Equal(t, "I see a browser.", msgs[0]["text"])
	assert.Equal(t, "Done that.", msgs[1]["text"])
	assert.Equal(t, "example.com", c.session.domain)
}

func TestControllerInitModelOverride(t *testing.T) {
	streamer := &fakeStreamer{attempts: []attempt{textTurn("hi")}}
	input := `{"type":"init","model":"model-b"}` + "\n"
	c, _ := newTestController(t, streamer, input)

	require.NoError(t, c.Run(context.Background()))

	require.Len(t, streamer.requests, 1)
	assert.Equal(t, "model-b", streamer.requests[0].Model)
}

func TestControllerSetModel(t *testing.T) {
	streamer := &fakeStreamer{attempts: []attempt{
		textTurn("hi"),
		textTurn("on the new model"),
	}}
	input := `{"type":"init"}` + "\n" +
		`{"type":"set_model","model":"model-c"}` + "\n" +
		`{"type":"user_message","text":"still there?"}` + "\n"
	c, _ := newTestController(t, streamer, input)

	require.NoError(t, c.Run(context.Background()))

	require.Len(t, streamer.requests, 2)
	assert.Equal(t, "model-a", streamer.requests[0].Model)
	assert.Equal(t, "model-c", streamer.requests[1].Model)
}

func TestControllerDrainsBufferedMessages(t *testing.T) {
	streamer := &fakeStreamer{attempts: []attempt{
		toolTurn("", parts.ToolUse("t1", "take_screenshot", nil)),
		textTurn("first turn done"),
		textTurn("buffered turn done"),
	}}
	input := `{"type":"init"}` + "\n" +
		`{"type":"user_message","text":"impatient follow-up"}` + "\n" +
		resultLine("tool ok")
	c, out := newTestController(t, streamer, input)

	require.NoError(t, c.Run(context.Background()))

	msgs := outboundOfType(t, out, "assistant_message")
	require.Len(t, msgs, 2)
	assert.Equal(t, "first turn done", msgs[0]["text"])
	assert.Equal(t, "buffered turn done", msgs[1]["text"])
	assert.Empty(t, c.session.pending)
}

func TestControllerIdleCancelIsHarmless(t *testing.T) {
	streamer := &fakeStreamer{attempts: []attempt{
		textTurn("hi"),
		textTurn("still fine"),
	}}
	input := `{"type":"init"}` + "\n" +
		`{"type":"cancel"}` + "\n" +
		`{"type":"user_message","text":"go on"}` + "\n"
	c, out := newTestController(t, streamer, input)

	require.NoError(t, c.Run(context.Background()))

	assert.Len(t, outboundOfType(t, out, "assistant_message"), 2)
	assert.Empty(t, outboundOfType(t, out, "error"))
}

func TestControllerInitFailureReportsError(t *testing.T) {
	input := `{"type":"init"}` + "\n"
	c, out := newTestController(t, &fakeStreamer{}, input)
	c.cfg.Claude = &claude.Config{}

	require.NoError(t, c.Run(context.Background()))

	require.Len(t, outboundOfType(t, out, "error"), 1)
	assert.Nil(t, c.session)
}

func TestControllerUnknownTypeIgnored(t *testing.T) {
	input := `{"type":"wat"}` + "\n"
	c, out := newTestController(t, &fakeStreamer{}, input)

	require.NoError(t, c.Run(context.Background()))
	assert.Empty(t, strings.TrimSpace(out.String()))
}
