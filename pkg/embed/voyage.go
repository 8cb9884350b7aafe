package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const (
	voyageDefaultModel = "voyage-3-lite"
	voyageDims         = 512
	voyageURL          = "https://api.voyageai.com/v1/embeddings"
)

// Voyage calls the Voyage AI embeddings API. The request carries the
// model, the input strings and an input_type flag distinguishing
// document (indexing) from query (retrieval) embeddings.
type Voyage struct {
	model  string
	apiKey string
	url    string
	httpc  *http.Client
	logger *slog.Logger
}

func NewVoyage(cfg Config, fallbackKey string, logger *slog.Logger) *Voyage {
	model := cfg.VoyageModel
	if model == "" {
		model = voyageDefaultModel
	}
	apiKey := os.Getenv(cfg.VoyageAPIKeyEnv)
	if apiKey == "" {
		apiKey = fallbackKey
	}
	return &Voyage{
		model:  model,
		apiKey: apiKey,
		url:    voyageURL,
		httpc:  &http.Client{Timeout: 30 * time.Second},
		logger: logger.With("component", "voyage"),
	}
}

type voyageRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	InputType string   `json:"input_type"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (v *Voyage) embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	if v.apiKey == "" {
		return nil, fmt.Errorf("voyage: no API key configured")
	}
	body, err := json.Marshal(voyageRequest{
		Model:     v.model,
		Input:     texts,
		InputType: inputType,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+v.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voyage: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("voyage: status %d: %s", resp.StatusCode, data)
	}
	var parsed voyageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("voyage: decode: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("voyage: got %d embeddings for %d inputs", len(parsed.Data), len(texts))
	}
	vectors := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (v *Voyage) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return v.embed(ctx, texts, "document")
}

func (v *Voyage) EmbedQueries(ctx context.Context, texts []string) ([][]float32, error) {
	return v.embed(ctx, texts, "query")
}

func (v *Voyage) Dimensions() int { return voyageDims }
func (v *Voyage) Name() string    { return "voyage/" + v.model }
