package contextstore

import (
	"context"
	"time"
)

const DefaultCollection = "chat_history"

type Document struct {
	ID        string
	Text      string
	SessionID string
	CreatedAt time.Time
	Score     float32
}

// Store is a session-partitioned similarity index. Query returns the most
// similar documents first.
type Store interface {
	Query(ctx context.Context, vector []float32, sessionID string, limit int) ([]Document, error)
	Insert(ctx context.Context, doc Document, vector []float32) error
}

type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}
