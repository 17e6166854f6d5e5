package metrics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultAsyncBuffer  = 1024
	DefaultAsyncTimeout = 2 * time.Second
)

var ErrMetricsDropped = errors.New("metrics buffer full, event dropped")

type event struct {
	cacheHit bool
	outcome  Outcome
	frames   int
	latency  time.Duration
}

// Async hands events to a single background worker that forwards them to
// the wrapped Recorder. Callers never wait on the backing store.
type Async struct {
	next    Recorder
	events  chan event
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}

	dropped atomic.Uint64
}

func NewAsync(next Recorder, buffer int, timeout time.Duration, logger *slog.Logger) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = DefaultAsyncBuffer
	}
	if timeout <= 0 {
		timeout = DefaultAsyncTimeout
	}
	return &Async{
		next:    next,
		events:  make(chan event, buffer),
		timeout: timeout,
		logger:  logger.With("component", "metrics-async"),
		done:    make(chan struct{}),
	}
}

func (a *Async) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.closed {
		return
	}
	a.started = true
	go a.run()
}

func (a *Async) RecordRequest(ctx context.Context, outcome Outcome, frames int, latency time.Duration) error {
	return a.submit(event{outcome: outcome, frames: frames, latency: latency})
}

func (a *Async) IncrementCacheHits(ctx context.Context) error {
	return a.submit(event{cacheHit: true})
}

func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

func (a *Async) submit(e event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.dropped.Add(1)
		return ErrMetricsDropped
	}
	select {
	case a.events <- e:
		return nil
	default:
		a.dropped.Add(1)
		return ErrMetricsDropped
	}
}

// Stop flushes buffered events, giving up when ctx ends.
func (a *Async) Stop(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.events)
	started := a.started
	a.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		a.logger.Warn("metrics flush interrupted", "pending", len(a.events))
		return ctx.Err()
	}
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.events {
		a.forward(e)
	}
}

func (a *Async) forward(e event) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	var err error
	if e.cacheHit {
		err = a.next.IncrementCacheHits(ctx)
	} else {
		err = a.next.RecordRequest(ctx, e.outcome, e.frames, e.latency)
	}
	if err != nil {
		a.logger.Warn("failed to record metrics", "error", err)
	}
}
