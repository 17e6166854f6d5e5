package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/eleven-am/streamsight/internal/credentials"
)

const (
	DefaultEmbeddingModel      = "gemini-embedding-001"
	DefaultEmbeddingDimensions = 768

	taskRetrievalQuery    = "RETRIEVAL_QUERY"
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

var ErrNoEmbedding = errors.New("no embedding returned")

type KeySource interface {
	Current() string
	Rotate(failed string) string
}

type Embedder struct {
	keys       KeySource
	clients    *Clients
	model      string
	dimensions int32
	logger     *slog.Logger
}

func NewEmbedder(keys KeySource, clients *Clients, model string, dimensions int, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Embedder{
		keys:       keys,
		clients:    clients,
		model:      model,
		dimensions: int32(dimensions),
		logger:     logger.With("component", "gemini-embedder"),
	}
}

func (e *Embedder) Dimensions() int {
	return int(e.dimensions)
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text, taskRetrievalQuery)
}

func (e *Embedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text, taskRetrievalDocument)
}

func (e *Embedder) embed(ctx context.Context, text, task string) ([]float32, error) {
	key := e.keys.Current()
	vec, err := e.embedWith(ctx, key, text, task)
	if err == nil || !isRateLimited(err) {
		return vec, err
	}

	next := e.keys.Rotate(key)
	e.logger.Warn("embedding rate limited, rotating credential",
		"failed_key", credentials.Redact(key),
		"next_key", credentials.Redact(next))
	return e.embedWith(ctx, next, text, task)
}

func (e *Embedder) embedWith(ctx context.Context, key, text, task string) ([]float32, error) {
	models, err := e.clients.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	resp, err := models.EmbedContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{
			TaskType:             task,
			OutputDimensionality: genai.Ptr(e.dimensions),
		})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", classify(err))
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, ErrNoEmbedding
	}
	return resp.Embeddings[0].Values, nil
}
