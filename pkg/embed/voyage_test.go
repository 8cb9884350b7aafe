package embed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVoyage(t *testing.T, handler http.HandlerFunc) *Voyage {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	v := NewVoyage(Config{VoyageModel: "voyage-3-lite"}, "test-key", slog.New(slog.DiscardHandler))
	v.url = srv.URL
	return v
}

func TestVoyageInputTypes(t *testing.T) {
	var gotInputTypes []string
	v := newTestVoyage(t, func(w http.ResponseWriter, r *http.Request) {
		var req voyageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "voyage-3-lite", req.Model)
		gotInputTypes = append(gotInputTypes, req.InputType)

		resp := map[string]any{"data": []map[string]any{{"embedding": []float32{0.1, 0.2}}}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	docs, err := v.EmbedDocuments(t.Context(), []string{"a spinner overlay"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, []float32{0.1, 0.2}, docs[0])

	_, err = v.EmbedQueries(t.Context(), []string{"spinner"})
	require.NoError(t, err)

	assert.Equal(t, []string{"document", "query"}, gotInputTypes)
}

func TestVoyageErrorStatus(t *testing.T) {
	v := newTestVoyage(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	_, err := v.EmbedDocuments(t.Context(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestVoyageCountMismatch(t *testing.T) {
	v := newTestVoyage(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"data": []any{}}))
	})
	_, err := v.EmbedDocuments(t.Context(), []string{"x"})
	assert.Error(t, err)
}

func TestVoyageNoKey(t *testing.T) {
	v := NewVoyage(Config{VoyageAPIKeyEnv: "BONES_TEST_UNSET_KEY"}, "", slog.New(slog.DiscardHandler))
	_, err := v.EmbedQueries(t.Context(), []string{"x"})
	assert.Error(t, err)
}

func TestZeroVector(t *testing.T) {
	z := ZeroVector(4)
	assert.Equal(t, []float32{0, 0, 0, 0}, z)
}
