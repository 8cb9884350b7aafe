// Package embed generates vector embeddings for overlay documents and
// search queries. Two engines are supported: the Voyage AI HTTP API
// and Google GenAI.
package embed

import (
	"context"
	"fmt"
	"log/slog"
)

// Embedder produces fixed-length vectors. Document and query modes are
// distinct because asymmetric retrieval models score query and document
// embeddings differently.
type Embedder interface {
	// EmbedDocuments embeds texts for indexing.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQueries embeds texts for retrieval.
	EmbedQueries(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions is the vector length, fixed per engine.
	Dimensions() int
	Name() string
}

type Config struct {
	// Provider: "voyage" or "genai".
	Provider string `toml:"provider"`

	VoyageModel     string `toml:"voyage_model"`
	VoyageAPIKeyEnv string `toml:"voyage_api_key_env"`

	GenAIModel     string `toml:"genai_model"`
	GenAIAPIKeyEnv string `toml:"genai_api_key_env"`
}

func DefaultConfig() Config {
	return Config{
		Provider:        "voyage",
		VoyageModel:     voyageDefaultModel,
		VoyageAPIKeyEnv: "VOYAGE_API_KEY",
		GenAIModel:      "gemini-embedding-001",
		GenAIAPIKeyEnv:  "GEMINI_API_KEY",
	}
}

// New creates the configured engine. fallbackKey is used when the
// provider's key env variable is unset (the host passes its API key on
// init, which doubles as the Voyage key in some deployments).
func New(ctx context.Context, cfg Config, fallbackKey string, logger *slog.Logger) (Embedder, error) {
	switch cfg.Provider {
	case "voyage", "":
		return NewVoyage(cfg, fallbackKey, logger), nil
	case "genai":
		return NewGenAI(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
}

// ZeroVector is the degraded-but-available embedding used when
// generation fails at publish time: exact search still works,
// similarity search degrades.
func ZeroVector(dims int) []float32 {
	return make([]float32, dims)
}
