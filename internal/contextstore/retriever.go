package contextstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTopK = 3
	DefaultKeep = 2
)

type JoinFunc func(docs []Document) string

// JoinRecent keeps the trailing two results of a relevance-ordered list and
// emits them in reverse, each terminated by a newline.
func JoinRecent(docs []Document) string {
	if len(docs) > DefaultKeep {
		docs = docs[len(docs)-DefaultKeep:]
	}
	var b strings.Builder
	for i := len(docs) - 1; i >= 0; i-- {
		b.WriteString(docs[i].Text)
		b.WriteString("\n")
	}
	return b.String()
}

func JoinAllByRelevance(docs []Document) string {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	return strings.Join(texts, "\n")
}

func FormatExchange(prompt, response string) string {
	return fmt.Sprintf("User: %s\nAssistant: %s", prompt, response)
}

type Retriever struct {
	store    Store
	embedder Embedder
	topK     int
	join     JoinFunc
	logger   *slog.Logger
}

func NewRetriever(store Store, embedder Embedder, join JoinFunc, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if join == nil {
		join = JoinRecent
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		topK:     DefaultTopK,
		join:     join,
		logger:   logger.With("component", "context-retriever"),
	}
}

func (r *Retriever) History(ctx context.Context, prompt, sessionID string) (string, error) {
	vector, err := r.embedder.EmbedQuery(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("embed prompt: %w", err)
	}

	docs, err := r.store.Query(ctx, vector, sessionID, r.topK)
	if err != nil {
		return "", fmt.Errorf("query context store: %w", err)
	}

	r.logger.Debug("retrieved context", "session_id", sessionID, "documents", len(docs))
	return r.join(docs), nil
}

func (r *Retriever) Save(ctx context.Context, prompt, response, sessionID string) error {
	text := FormatExchange(prompt, response)

	vector, err := r.embedder.EmbedDocument(ctx, text)
	if err != nil {
		return fmt.Errorf("embed exchange: %w", err)
	}

	doc := Document{
		ID:        uuid.NewString(),
		Text:      text,
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Insert(ctx, doc, vector); err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}
