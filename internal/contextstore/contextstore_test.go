package contextstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePoints struct {
	exists      bool
	created     *qdrant.CreateCollection
	indexed     *qdrant.CreateFieldIndexCollection
	lastQuery   *qdrant.QueryPoints
	upserts     []*qdrant.UpsertPoints
	queryResult []*qdrant.ScoredPoint
	queryErr    error
}

func (f *fakePoints) CollectionExists(ctx context.Context, name string) (bool, error) {
	return f.exists, nil
}

func (f *fakePoints) CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error {
	f.created = req
	return nil
}

func (f *fakePoints) CreateFieldIndex(ctx context.Context, req *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error) {
	f.indexed = req
	return &qdrant.UpdateResult{}, nil
}

func (f *fakePoints) Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.lastQuery = req
	return f.queryResult, f.queryErr
}

func (f *fakePoints) Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.upserts = append(f.upserts, req)
	return &qdrant.UpdateResult{}, nil
}

func TestQdrantStore_EnsureCollection(t *testing.T) {
	fp := &fakePoints{}
	store := NewQdrantStore(fp, "", testLogger())

	if err := store.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fp.created == nil || fp.created.CollectionName != DefaultCollection {
		t.Fatalf("expected %s to be created, got %+v", DefaultCollection, fp.created)
	}
	if fp.indexed == nil || fp.indexed.FieldName != "session_id" {
		t.Errorf("expected session_id index, got %+v", fp.indexed)
	}

	existing := &fakePoints{exists: true}
	if err := NewQdrantStore(existing, "", testLogger()).EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if existing.created != nil {
		t.Error("expected existing collection to be left alone")
	}
}

func TestQdrantStore_NotConfigured(t *testing.T) {
	store := NewQdrantStore(nil, "", testLogger())
	if _, err := store.Query(context.Background(), nil, "s", 3); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if err := store.Insert(context.Background(), Document{}, nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestQdrantStore_QueryFiltersBySession(t *testing.T) {
	fp := &fakePoints{
		queryResult: []*qdrant.ScoredPoint{
			{
				Id:      qdrant.NewID("7b1e7c0e-7d1b-4c4e-9f43-1d2b8a5b9e11"),
				Score:   0.9,
				Payload: qdrant.NewValueMap(map[string]any{"document": "User: hi\nAssistant: hello", "session_id": "sess-1"}),
			},
		},
	}
	store := NewQdrantStore(fp, "history", testLogger())

	docs, err := store.Query(context.Background(), []float32{0.1, 0.2}, "sess-1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0].Text != "User: hi\nAssistant: hello" {
		t.Fatalf("unexpected documents: %+v", docs)
	}
	if docs[0].SessionID != "sess-1" {
		t.Errorf("expected session sess-1, got %s", docs[0].SessionID)
	}

	q := fp.lastQuery
	if q.CollectionName != "history" {
		t.Errorf("expected collection history, got %s", q.CollectionName)
	}
	if q.GetLimit() != 3 {
		t.Errorf("expected limit 3, got %d", q.GetLimit())
	}
	must := q.GetFilter().GetMust()
	if len(must) != 1 || must[0].GetField().GetKey() != "session_id" {
		t.Fatalf("expected session filter, got %+v", must)
	}
	if kw := must[0].GetField().GetMatch().GetKeyword(); kw != "sess-1" {
		t.Errorf("expected keyword sess-1, got %s", kw)
	}
}

func TestQdrantStore_InsertPayload(t *testing.T) {
	fp := &fakePoints{}
	store := NewQdrantStore(fp, "", testLogger())

	err := store.Insert(context.Background(), Document{Text: "User: a\nAssistant: b", SessionID: "sess-2"}, []float32{1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fp.upserts) != 1 || len(fp.upserts[0].Points) != 1 {
		t.Fatalf("expected one point upserted, got %+v", fp.upserts)
	}
	p := fp.upserts[0].Points[0]
	if p.Id.GetUuid() == "" {
		t.Error("expected generated uuid point id")
	}
	if p.Payload["session_id"].GetStringValue() != "sess-2" {
		t.Errorf("expected session payload, got %v", p.Payload["session_id"])
	}
	if p.Payload["created_at"].GetStringValue() == "" {
		t.Error("expected created_at payload")
	}
}

func docs(texts ...string) []Document {
	out := make([]Document, len(texts))
	for i, t := range texts {
		out[i] = Document{Text: t}
	}
	return out
}

func TestJoinRecent(t *testing.T) {
	tests := []struct {
		name string
		in   []Document
		want string
	}{
		{"empty", nil, ""},
		{"one", docs("a"), "a\n"},
		{"two reversed", docs("a", "b"), "b\na\n"},
		{"three keeps trailing two reversed", docs("a", "b", "c"), "c\nb\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinRecent(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestJoinAllByRelevance(t *testing.T) {
	if got := JoinAllByRelevance(docs("a", "b", "c")); got != "a\nb\nc" {
		t.Errorf("expected %q, got %q", "a\nb\nc", got)
	}
}

type fakeEmbedder struct {
	queries   []string
	documents []string
	err       error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	return []float32{1}, f.err
}

func (f *fakeEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	f.documents = append(f.documents, text)
	return []float32{2}, f.err
}

type memoryStore struct {
	docs     []Document
	inserted []Document
	limit    int
	session  string
}

func (m *memoryStore) Query(ctx context.Context, vector []float32, sessionID string, limit int) ([]Document, error) {
	m.limit = limit
	m.session = sessionID
	return m.docs, nil
}

func (m *memoryStore) Insert(ctx context.Context, doc Document, vector []float32) error {
	m.inserted = append(m.inserted, doc)
	return nil
}

func TestRetriever_History(t *testing.T) {
	store := &memoryStore{docs: docs("most similar", "second", "third")}
	emb := &fakeEmbedder{}
	r := NewRetriever(store, emb, nil, testLogger())

	got, err := r.History(context.Background(), "what happened?", "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "third\nsecond\n" {
		t.Errorf("expected %q, got %q", "third\nsecond\n", got)
	}
	if store.limit != 3 || store.session != "sess-1" {
		t.Errorf("expected top 3 for sess-1, got %d for %s", store.limit, store.session)
	}
	if len(emb.queries) != 1 || emb.queries[0] != "what happened?" {
		t.Errorf("expected prompt embedded as query, got %v", emb.queries)
	}
}

func TestRetriever_HistoryEmbedFailure(t *testing.T) {
	r := NewRetriever(&memoryStore{}, &fakeEmbedder{err: errors.New("boom")}, nil, testLogger())
	if _, err := r.History(context.Background(), "p", "s"); err == nil {
		t.Error("expected error")
	}
}

func TestRetriever_Save(t *testing.T) {
	store := &memoryStore{}
	emb := &fakeEmbedder{}
	r := NewRetriever(store, emb, JoinAllByRelevance, testLogger())

	if err := r.Save(context.Background(), "Hello", "Hi there", "sess-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(store.inserted))
	}
	doc := store.inserted[0]
	if doc.Text != "User: Hello\nAssistant: Hi there" {
		t.Errorf("unexpected document text %q", doc.Text)
	}
	if doc.SessionID != "sess-9" || doc.ID == "" {
		t.Errorf("expected session and id set, got %+v", doc)
	}
	if len(emb.documents) != 1 || !strings.HasPrefix(emb.documents[0], "User: Hello") {
		t.Errorf("expected exchange embedded as document, got %v", emb.documents)
	}
}
