package embed

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// Task types for the embedding request; the API takes them as strings.
const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// GenAI embeds via Google's Gemini embedding models, using the
// retrieval task types to mirror the document/query asymmetry.
type GenAI struct {
	client *genai.Client
	model  string
}

func NewGenAI(ctx context.Context, cfg Config) (*GenAI, error) {
	apiKey := os.Getenv(cfg.GenAIAPIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("genai: env variable %s not defined", cfg.GenAIAPIKeyEnv)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	model := cfg.GenAIModel
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &GenAI{client: client, model: model}, nil
}

// embedConfig asks the service for vectors already sized to the index;
// fitDimensions below remains the guard for models that ignore it.
func embedConfig(task string, dims int) *genai.EmbedContentConfig {
	return &genai.EmbedContentConfig{
		TaskType:             task,
		OutputDimensionality: genai.Ptr(int32(dims)),
	}
}

func (g *GenAI) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	result, err := g.client.Models.EmbedContent(ctx, g.model, contents, embedConfig(task, g.Dimensions()))
	if err != nil {
		return nil, fmt.Errorf("genai: embed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai: got %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}
	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = fitDimensions(emb.Values, g.Dimensions())
	}
	return vectors, nil
}

// fitDimensions truncates or zero-pads to the index vector length, so
// the same RediSearch index serves either engine.
func fitDimensions(vec []float32, dims int) []float32 {
	if len(vec) == dims {
		return vec
	}
	out := make([]float32, dims)
	copy(out, vec)
	return out
}

func (g *GenAI) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return g.embed(ctx, texts, taskRetrievalDocument)
}

func (g *GenAI) EmbedQueries(ctx context.Context, texts []string) ([][]float32, error) {
	return g.embed(ctx, texts, taskRetrievalQuery)
}

func (g *GenAI) Dimensions() int { return voyageDims }
func (g *GenAI) Name() string    { return "genai/" + g.model }
