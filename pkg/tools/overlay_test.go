package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonesagent/pkg/overlay"
	"bonesagent/pkg/wire"
)

type fakeStore struct {
	published   []overlay.Document
	publishKey  string
	exactHits   []overlay.Summary
	similarHits []overlay.Summary
	gotQuery    string
	gotExclude  string
	doc         *overlay.Document
	err         error
}

func (f *fakeStore) Publish(_ context.Context, doc overlay.Document, domain string, tags []string) (string, error) {
	doc.Domain = domain
	doc.Tags = tags
	f.published = append(f.published, doc)
	return f.publishKey, f.err
}

func (f *fakeStore) SearchExact(_ context.Context, domain string, _ int) ([]overlay.Summary, error) {
	return f.exactHits, f.err
}

func (f *fakeStore) SearchSimilar(_ context.Context, query, exclude string, _ int) ([]overlay.Summary, error) {
	f.gotQuery = query
	f.gotExclude = exclude
	return f.similarHits, f.err
}

func (f *fakeStore) Get(_ context.Context, key string) (*overlay.Document, error) {
	if f.doc == nil {
		return nil, overlay.ErrNotFound
	}
	return f.doc, f.err
}

func (f *fakeStore) Available(context.Context) bool { return f.err == nil }

type fakeHost struct {
	calls   []string
	inputs  []map[string]any
	result  *wire.ToolResult
	callErr error
}

func (f *fakeHost) CallHost(_ context.Context, name string, input map[string]any) (*wire.ToolResult, error) {
	f.calls = append(f.calls, name)
	f.inputs = append(f.inputs, input)
	return f.result, f.callErr
}

func newOverlayTools(store *fakeStore, host *fakeHost) *OverlayTools {
	return &OverlayTools{
		Store:  func(context.Context) (SharedStore, error) { return store, nil },
		Host:   host,
		Domain: func() string { return "github.com" },
	}
}

func runTool(t *testing.T, tls *OverlayTools, name string, input map[string]any) *Result {
	t.Helper()
	for _, d := range tls.Definitions() {
		if d.Name() == name {
			return d.Run(t.Context(), input)
		}
	}
	t.Fatalf("tool %s not defined", name)
	return nil
}

func TestPublishReadsSourceThroughSilentHostCall(t *testing.T) {
	store := &fakeStore{publishKey: "bones:overlay:github.com:pr"}
	host := &fakeHost{result: &wire.ToolResult{Text: "<div>pr</div>"}}
	tls := newOverlayTools(store, host)

	res := runTool(t, tls, "publish_overlay", map[string]any{
		"id": "pr", "name": "PR Dashboard", "description": "open PRs",
	})
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, []string{"read_overlay_source"}, host.calls)
	assert.Equal(t, map[string]any{"id": "pr"}, host.inputs[0])
	require.Len(t, store.published, 1)
	assert.Equal(t, "<div>pr</div>", store.published[0].HTML)
	assert.Equal(t, "github.com", store.published[0].Domain)
}

func TestPublishWithInlineHTMLSkipsHost(t *testing.T) {
	store := &fakeStore{publishKey: "bones:overlay:github.com:x"}
	host := &fakeHost{}
	tls := newOverlayTools(store, host)

	res := runTool(t, tls, "publish_overlay", map[string]any{
		"id": "x", "name": "X", "html": "<b/>",
	})
	require.False(t, res.IsError)
	assert.Empty(t, host.calls)
}

func TestPublishMissingFields(t *testing.T) {
	tls := newOverlayTools(&fakeStore{}, &fakeHost{})
	res := runTool(t, tls, "publish_overlay", map[string]any{"name": "no id"})
	assert.True(t, res.IsError)
}

func TestSearchDefaultsToCurrentDomain(t *testing.T) {
	store := &fakeStore{exactHits: []overlay.Summary{
		{Key: "bones:overlay:github.com:pr", Name: "PR Dashboard", Domain: "github.com"},
	}}
	tls := newOverlayTools(store, &fakeHost{})

	res := runTool(t, tls, "search_shared_overlays", map[string]any{})
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "PR Dashboard")
}

func TestFindSimilarExcludesCurrentDomain(t *testing.T) {
	store := &fakeStore{similarHits: []overlay.Summary{
		{Key: "bones:overlay:gitlab.com:mr", Name: "MR Board", Domain: "gitlab.com", Score: 0.2},
	}}
	tls := newOverlayTools(store, &fakeHost{})

	res := runTool(t, tls, "find_similar_overlays", map[string]any{"query": "review board"})
	require.False(t, res.IsError)
	assert.Equal(t, "review board", store.gotQuery)
	assert.Equal(t, "github.com", store.gotExclude)
	assert.Contains(t, res.Content[0].Text, "distance 0.200")
}

func TestInstallSavesThroughHost(t *testing.T) {
	store := &fakeStore{doc: &overlay.Document{
		ID: "mr", Name: "MR Board", Domain: "gitlab.com", HTML: "<ul/>",
		Width: 500, Height: 320, Position: "center",
	}}
	host := &fakeHost{result: &wire.ToolResult{Text: "saved"}}
	tls := newOverlayTools(store, host)

	res := runTool(t, tls, "install_shared_overlay", map[string]any{"key": "bones:overlay:gitlab.com:mr"})
	require.False(t, res.IsError)
	require.Equal(t, []string{"save_overlay"}, host.calls)
	assert.Equal(t, "<ul/>", host.inputs[0]["html"])
	assert.Equal(t, 500, host.inputs[0]["width"])
}

func TestInstallMissingOverlay(t *testing.T) {
	tls := newOverlayTools(&fakeStore{}, &fakeHost{})
	res := runTool(t, tls, "install_shared_overlay", map[string]any{"key": "bones:overlay:x:y"})
	assert.True(t, res.IsError)
}

func TestStoreUnavailableIsAnErrorResultNotACrash(t *testing.T) {
	tls := &OverlayTools{
		Store: func(context.Context) (SharedStore, error) {
			return nil, errors.New("redis: connection refused")
		},
		Host:   &fakeHost{},
		Domain: func() string { return "github.com" },
	}
	res := runTool(t, tls, "search_shared_overlays", map[string]any{})
	require.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "unavailable")
}
