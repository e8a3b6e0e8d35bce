package knowledge

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"google.golang.org/genai"

	errx "github.com/docbook-core-poc-v1/server/internal/core/error"
)

// Gemini embedding task types. Queries and documents are embedded
// asymmetrically for retrieval.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// contentEmbedder is the slice of *genai.Models the embedder needs.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiEmbedder implements eino's embedding.Embedder on top of the Gemini API.
type GeminiEmbedder struct {
	models   contentEmbedder
	model    string
	taskType string
}

// NewGeminiEmbedder builds an embedder from a genai client. Pass one of the
// Task* constants as taskType.
func NewGeminiEmbedder(client *genai.Client, model, taskType string) (*GeminiEmbedder, error) {
	if client == nil {
		return nil, fmt.Errorf("genai client is nil")
	}
	return newGeminiEmbedder(client.Models, model, taskType), nil
}

func newGeminiEmbedder(models contentEmbedder, model, taskType string) *GeminiEmbedder {
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &GeminiEmbedder{models: models, model: model, taskType: taskType}
}

// EmbedStrings embeds texts in one request and returns one vector per text.
func (e *GeminiEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := e.models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{TaskType: e.taskType})
	if err != nil {
		return nil, errx.WrapLLM(fmt.Errorf("embed %d texts: %w", len(texts), err))
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, errx.WrapLLM(fmt.Errorf("embedding count mismatch: want %d, got %d", len(texts), got))
	}

	out := make([][]float64, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vec := make([]float64, len(emb.Values))
		for j, v := range emb.Values {
			vec[j] = float64(v)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimension embeds a short sample text, the way the collection is sized.
func Dimension(ctx context.Context, e embedding.Embedder) (int, error) {
	vecs, err := e.EmbedStrings(ctx, []string{"test"})
	if err != nil {
		return 0, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return 0, fmt.Errorf("embedder returned an empty sample vector")
	}
	return len(vecs[0]), nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
