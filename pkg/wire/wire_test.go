package wire

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestReadUntilEOF(t *testing.T) {
	input := `{"type":"init","model":"claude-opus-4-6"}
{"type":"user_message","text":"hi"}

{"type":"cancel"}
`
	tr := New(strings.NewReader(input), io.Discard, discardLogger())

	msg, err := tr.Read()
	require.NoError(t, err)
	assert.Equal(t, TypeInit, msg.Type)
	assert.Equal(t, "claude-opus-4-6", msg.Model)

	msg, err = tr.Read()
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Text)

	// The blank line is skipped.
	msg, err = tr.Read()
	require.NoError(t, err)
	assert.Equal(t, TypeCancel, msg.Type)

	_, err = tr.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadMalformedLine(t *testing.T) {
	tr := New(strings.NewReader("{not json}\n"), io.Discard, discardLogger())
	_, err := tr.Read()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestWriteTranscriptOrdering(t *testing.T) {
	var out bytes.Buffer
	tr := New(strings.NewReader(""), &out, discardLogger())

	require.NoError(t, tr.Write(NewStreamingStart()))
	require.NoError(t, tr.Write(NewTextDelta("hel")))
	require.NoError(t, tr.Write(NewTextDelta("lo")))
	require.NoError(t, tr.Write(NewStreamingEnd()))
	require.NoError(t, tr.Write(NewToolUse("t1", "click_code", map[string]any{"code": "AA"}, false)))
	require.NoError(t, tr.Write(NewDone()))

	want := strings.Join([]string{
		`{"type":"streaming_start"}`,
		`{"type":"text_delta","text":"hel"}`,
		`{"type":"text_delta","text":"lo"}`,
		`{"type":"streaming_end"}`,
		`{"type":"tool_use","id":"t1","name":"click_code","input":{"code":"AA"}}`,
		`{"type":"done"}`,
		``,
	}, "\n")
	if got := out.String(); got != want {
		t.Errorf("transcript mismatch:\n%s", diff.LineDiff(want, got))
	}
}

func TestToolUseEnvelopeAlwaysHasInput(t *testing.T) {
	var out bytes.Buffer
	tr := New(strings.NewReader(""), &out, discardLogger())
	require.NoError(t, tr.Write(NewToolUse("s1", "read_overlay_source", nil, true)))
	assert.JSONEq(t,
		`{"type":"tool_use","id":"s1","name":"read_overlay_source","input":{},"silent":true}`,
		strings.TrimSpace(out.String()))
}

func TestReadToolResultPayload(t *testing.T) {
	input := `{"type":"tool_result","result":{"text":"done","is_error":false}}` + "\n"
	tr := New(strings.NewReader(input), io.Discard, discardLogger())
	msg, err := tr.Read()
	require.NoError(t, err)
	require.NotNil(t, msg.Result)
	assert.Equal(t, "done", msg.Result.Text)
	assert.False(t, msg.Result.IsError)
}
