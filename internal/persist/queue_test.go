package persist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eleven-am/streamsight/internal/transcript"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSink struct {
	mu      sync.Mutex
	name    string
	got     []Exchange
	err     error
	block   chan struct{}
	ctxErrs []error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Persist(ctx context.Context, e Exchange) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, e)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestQueue_PersistsToAllSinks(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	q := NewQueue(Config{Workers: 2}, testLogger(), a, b)
	q.Start()

	for i := 0; i < 5; i++ {
		if !q.Enqueue(Exchange{SessionID: "sess", Prompt: "p", Response: "r"}) {
			t.Fatal("expected enqueue to succeed")
		}
	}
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if a.count() != 5 || b.count() != 5 {
		t.Errorf("expected 5 exchanges per sink, got %d and %d", a.count(), b.count())
	}
	if got := q.Stats().Persisted; got != 5 {
		t.Errorf("expected 5 persisted, got %d", got)
	}
}

func TestQueue_SinkFailureIsIsolated(t *testing.T) {
	failing := &recordingSink{name: "failing", err: errors.New("store down")}
	ok := &recordingSink{name: "ok"}
	q := NewQueue(Config{Workers: 1}, testLogger(), failing, ok)
	q.Start()

	q.Enqueue(Exchange{SessionID: "sess"})
	_ = q.Stop(context.Background())

	if ok.count() != 1 {
		t.Errorf("expected healthy sink to still receive the exchange, got %d", ok.count())
	}
	if failing.count() != 1 {
		t.Errorf("expected failing sink to be attempted exactly once, got %d", failing.count())
	}
	if got := q.Stats().Failed; got != 1 {
		t.Errorf("expected 1 failure, got %d", got)
	}
}

func TestQueue_EnqueueDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &recordingSink{name: "slow", block: block}
	q := NewQueue(Config{QueueSize: 1, Workers: 1}, testLogger(), sink)
	q.Start()

	q.Enqueue(Exchange{SessionID: "1"})
	deadline := time.Now().Add(time.Second)
	for q.Stats().Pending != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if !q.Enqueue(Exchange{SessionID: "2"}) {
		t.Fatal("expected second exchange to fit in the buffer")
	}

	start := time.Now()
	if q.Enqueue(Exchange{SessionID: "3"}) {
		t.Error("expected third exchange to be dropped")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("enqueue blocked on a full queue")
	}
	if got := q.Stats().Dropped; got != 1 {
		t.Errorf("expected 1 dropped, got %d", got)
	}

	close(block)
	_ = q.Stop(context.Background())
}

func TestQueue_UsesFreshContext(t *testing.T) {
	sink := &recordingSink{name: "ctx"}
	q := NewQueue(Config{Workers: 1, Timeout: time.Second}, testLogger(), sink)
	q.Start()

	q.Enqueue(Exchange{SessionID: "sess"})
	_ = q.Stop(context.Background())

	if len(sink.ctxErrs) != 1 || sink.ctxErrs[0] != nil {
		t.Errorf("expected a live persistence context, got %v", sink.ctxErrs)
	}
}

func TestQueue_EnqueueAfterStop(t *testing.T) {
	q := NewQueue(Config{}, testLogger(), &recordingSink{name: "s"})
	q.Start()
	_ = q.Stop(context.Background())

	if q.Enqueue(Exchange{SessionID: "late"}) {
		t.Error("expected enqueue after stop to be rejected")
	}
	if err := q.Stop(context.Background()); err != nil {
		t.Errorf("expected second Stop to be a no-op, got %v", err)
	}
}

func TestQueue_StopHonoursDeadline(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	q := NewQueue(Config{Workers: 1}, testLogger(), &recordingSink{name: "stuck", block: block})
	q.Start()
	q.Enqueue(Exchange{SessionID: "sess"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestTranscriptSink(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	store := transcript.NewStore(db)
	_ = store.Migrate()

	sink := NewTranscriptSink(store)
	err = sink.Persist(context.Background(), Exchange{
		SessionID:  "sess-1",
		Prompt:     "Hello",
		Response:   "Hi",
		FrameCount: 2,
		Latency:    1500 * time.Millisecond,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	got, _ := store.ListBySession(context.Background(), "sess-1", 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 archived exchange, got %d", len(got))
	}
	if got[0].LatencyMs != 1500 || got[0].FrameCount != 2 {
		t.Errorf("unexpected archived exchange %+v", got[0])
	}
}

type saverFunc func(ctx context.Context, prompt, response, sessionID string) error

func (f saverFunc) Save(ctx context.Context, prompt, response, sessionID string) error {
	return f(ctx, prompt, response, sessionID)
}

func TestContextSink(t *testing.T) {
	var gotSession string
	sink := NewContextSink(saverFunc(func(ctx context.Context, prompt, response, sessionID string) error {
		gotSession = sessionID
		return nil
	}))
	if err := sink.Persist(context.Background(), Exchange{SessionID: "sess-7"}); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if gotSession != "sess-7" {
		t.Errorf("expected sess-7, got %s", gotSession)
	}
}
