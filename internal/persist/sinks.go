package persist

import (
	"context"

	"github.com/eleven-am/streamsight/internal/transcript"
)

type HistorySaver interface {
	Save(ctx context.Context, prompt, response, sessionID string) error
}

type ContextSink struct {
	saver HistorySaver
}

func NewContextSink(saver HistorySaver) *ContextSink {
	return &ContextSink{saver: saver}
}

func (s *ContextSink) Name() string { return "context_store" }

func (s *ContextSink) Persist(ctx context.Context, e Exchange) error {
	return s.saver.Save(ctx, e.Prompt, e.Response, e.SessionID)
}

type TranscriptSink struct {
	store *transcript.Store
}

func NewTranscriptSink(store *transcript.Store) *TranscriptSink {
	return &TranscriptSink{store: store}
}

func (s *TranscriptSink) Name() string { return "transcript" }

func (s *TranscriptSink) Persist(ctx context.Context, e Exchange) error {
	return s.store.Create(ctx, &transcript.Exchange{
		SessionID:  e.SessionID,
		Prompt:     e.Prompt,
		Response:   e.Response,
		FrameCount: e.FrameCount,
		LatencyMs:  e.Latency.Milliseconds(),
		CreatedAt:  e.CreatedAt,
	})
}
