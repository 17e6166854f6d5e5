package contextstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	payloadDocument  = "document"
	payloadSessionID = "session_id"
	payloadCreatedAt = "created_at"
)

var ErrNotConfigured = errors.New("qdrant client not configured")

// PointsAPI is the subset of *qdrant.Client used by QdrantStore.
type PointsAPI interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, request *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
}

type QdrantStore struct {
	client     PointsAPI
	collection string
	logger     *slog.Logger
}

func NewQdrantStore(client PointsAPI, collection string, logger *slog.Logger) *QdrantStore {
	if logger == nil {
		logger = slog.Default()
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &QdrantStore{
		client:     client,
		collection: collection,
		logger:     logger.With("component", "qdrant-store", "collection", collection),
	}
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, dimensions int) error {
	if s.client == nil {
		return ErrNotConfigured
	}

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      payloadSessionID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("create session index: %w", err)
	}

	s.logger.Info("created collection", "dimensions", dimensions)
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, vector []float32, sessionID string, limit int) ([]Document, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadSessionID, sessionID)},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(results))
	for _, p := range results {
		doc := Document{
			Text:      p.Payload[payloadDocument].GetStringValue(),
			SessionID: p.Payload[payloadSessionID].GetStringValue(),
			Score:     p.Score,
		}
		if p.Id != nil {
			doc.ID = p.Id.GetUuid()
		}
		if ts := p.Payload[payloadCreatedAt].GetStringValue(); ts != "" {
			doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *QdrantStore) Insert(ctx context.Context, doc Document, vector []float32) error {
	if s.client == nil {
		return ErrNotConfigured
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(doc.ID),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					payloadDocument:  doc.Text,
					payloadSessionID: doc.SessionID,
					payloadCreatedAt: doc.CreatedAt.Format(time.RFC3339Nano),
				}),
			},
		},
	})
	return err
}
