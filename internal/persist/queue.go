package persist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultQueueSize = 256
	DefaultWorkers   = 4
	DefaultTimeout   = 15 * time.Second
)

type Exchange struct {
	SessionID  string
	Prompt     string
	Response   string
	FrameCount int
	Latency    time.Duration
	CreatedAt  time.Time
}

type Sink interface {
	Name() string
	Persist(ctx context.Context, e Exchange) error
}

type PersistenceError struct {
	Sink      string
	SessionID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist exchange for session %s to %s: %v", e.SessionID, e.Sink, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type Config struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

type Stats struct {
	Pending   int    `json:"pending"`
	Persisted uint64 `json:"persisted"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

// Queue runs persistence off the request path. Work is bounded by its own
// timeout and never by the context of the request that produced it.
type Queue struct {
	jobs    chan Exchange
	sinks   []Sink
	workers int
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup

	persisted atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

func NewQueue(cfg Config, logger *slog.Logger, sinks ...Sink) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}

	return &Queue{
		jobs:    make(chan Exchange, cfg.QueueSize),
		sinks:   active,
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		logger:  logger.With("component", "persist-queue"),
	}
}

func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.run(i)
	}
	q.logger.Info("persist workers started", "workers", q.workers, "sinks", len(q.sinks))
}

// Enqueue never blocks. It returns false when the exchange was dropped.
func (q *Queue) Enqueue(e Exchange) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.dropped.Add(1)
		q.logger.Warn("persist queue closed, dropping exchange", "session_id", e.SessionID)
		return false
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	select {
	case q.jobs <- e:
		return true
	default:
		q.dropped.Add(1)
		q.logger.Error("persist queue full, dropping exchange",
			"session_id", e.SessionID,
			"capacity", cap(q.jobs))
		return false
	}
}

// Stop refuses new work and waits for queued exchanges to drain or for ctx.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	started := q.started
	q.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("persist queue drained")
		return nil
	case <-ctx.Done():
		q.logger.Warn("persist queue drain interrupted", "pending", len(q.jobs))
		return ctx.Err()
	}
}

func (q *Queue) Stats() Stats {
	return Stats{
		Pending:   len(q.jobs),
		Persisted: q.persisted.Load(),
		Dropped:   q.dropped.Load(),
		Failed:    q.failed.Load(),
	}
}

func (q *Queue) run(id int) {
	defer q.wg.Done()
	for e := range q.jobs {
		q.persist(id, e)
	}
}

func (q *Queue) persist(worker int, e Exchange) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	ok := true
	for _, sink := range q.sinks {
		if err := sink.Persist(ctx, e); err != nil {
			ok = false
			q.failed.Add(1)
			perr := &PersistenceError{Sink: sink.Name(), SessionID: e.SessionID, Err: err}
			q.logger.Error("persistence failed", "worker", worker, "sink", sink.Name(), "error", perr)
		}
	}
	if ok {
		q.persisted.Add(1)
	}
}
