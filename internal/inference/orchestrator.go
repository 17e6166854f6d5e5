package inference

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/eleven-am/streamsight/internal/cache"
	"github.com/eleven-am/streamsight/internal/generation"
	"github.com/eleven-am/streamsight/internal/media"
	"github.com/eleven-am/streamsight/internal/metrics"
	"github.com/eleven-am/streamsight/internal/persist"
)

const (
	DefaultMaxContextChars = 1000
	DefaultContextTimeout  = 10 * time.Second
	DefaultMaxWorkers      = 4

	DefaultSystemPrompt = "You are an expert video analysis assistant. Use the provided video and chat history to answer the user's question accurately."

	metricsTimeout = 2 * time.Second
)

var ErrMissingPrompt = errors.New("prompt is required")

type ContextRetriever interface {
	History(ctx context.Context, prompt, sessionID string) (string, error)
}

type FrameExtractor interface {
	Extract(ctx context.Context, data []byte, targetFPS float64, maxFrames int) ([]media.Frame, error)
}

type Generator interface {
	Generate(ctx context.Context, parts []generation.Part) (string, error)
}

type Persister interface {
	Enqueue(e persist.Exchange) bool
}

type MetricsRecorder interface {
	RecordRequest(ctx context.Context, outcome metrics.Outcome, frames int, latency time.Duration) error
	IncrementCacheHits(ctx context.Context) error
}

type Config struct {
	SystemPrompt      string
	MaxFrames         int
	TargetFPS         float64
	MaxWorkers        int
	MaxContextChars   int
	ContextTimeout    time.Duration
	ContextCacheSize  int
	SessionMediaCache bool
}

type Request struct {
	Prompt    string
	Media     []byte
	SessionID string
}

type Result struct {
	Text        string
	SessionID   string
	FrameCount  int
	ContextHit  bool
	MediaReused bool
}

type Deps struct {
	Retriever ContextRetriever
	Extractor FrameExtractor
	Generator Generator
	Persister Persister
	Metrics   MetricsRecorder
}

type Orchestrator struct {
	retriever ContextRetriever
	extractor FrameExtractor
	generator Generator
	persister Persister
	metrics   MetricsRecorder

	contexts *cache.Bounded[string]
	frames   *cache.Bounded[[]media.Frame]
	workers  *semaphore.Weighted
	flights  singleflight.Group

	cfg          Config
	logger       *slog.Logger
	newSessionID func() string
}

func NewOrchestrator(deps Deps, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = media.DefaultMaxFrames
	}
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = media.DefaultTargetFPS
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultMaxContextChars
	}
	if cfg.ContextTimeout <= 0 {
		cfg.ContextTimeout = DefaultContextTimeout
	}

	o := &Orchestrator{
		retriever:    deps.Retriever,
		extractor:    deps.Extractor,
		generator:    deps.Generator,
		persister:    deps.Persister,
		metrics:      deps.Metrics,
		contexts:     cache.NewBounded[string](cfg.ContextCacheSize),
		workers:      semaphore.NewWeighted(int64(cfg.MaxWorkers)),
		cfg:          cfg,
		logger:       logger.With("component", "orchestrator"),
		newSessionID: uuid.NewString,
	}
	if cfg.SessionMediaCache {
		o.frames = cache.NewBounded[[]media.Frame](cfg.ContextCacheSize)
	}
	return o
}

// CacheKey partitions cached context by session and prompt.
func CacheKey(sessionID, prompt string) string {
	return sessionID + "_" + strconv.FormatUint(xxhash.Sum64String(prompt), 16)
}

func (o *Orchestrator) ContextCacheSize() int {
	return o.contexts.Size()
}

func (o *Orchestrator) MediaCacheSize() int {
	if o.frames == nil {
		return 0
	}
	return o.frames.Size()
}

func (o *Orchestrator) Infer(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrMissingPrompt
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = o.newSessionID()
	}
	logger := o.logger.With("session_id", sessionID)

	var (
		history     string
		contextHit  bool
		frames      []media.Frame
		mediaReused bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		history, contextHit = o.contextFor(gctx, sessionID, req.Prompt, logger)
		return nil
	})
	g.Go(func() error {
		var err error
		frames, mediaReused, err = o.framesFor(gctx, sessionID, req.Media)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Warn("request aborted before generation", "error", err)
		o.record(ctx, outcomeFor(err), 0, start)
		return nil, err
	}

	history = truncateTail(history, o.cfg.MaxContextChars)
	parts := o.compose(req.Prompt, history, frames)

	text, err := o.generator.Generate(ctx, parts)
	if err != nil {
		logger.Error("generation failed", "error", err)
		o.record(ctx, outcomeFor(err), len(frames), start)
		return nil, err
	}

	latency := time.Since(start)
	if o.persister != nil {
		o.persister.Enqueue(persist.Exchange{
			SessionID:  sessionID,
			Prompt:     req.Prompt,
			Response:   text,
			FrameCount: len(frames),
			Latency:    latency,
		})
	}
	o.record(ctx, metrics.OutcomeSuccess, len(frames), start)

	logger.Info("inference completed",
		"frames", len(frames),
		"context_hit", contextHit,
		"media_reused", mediaReused,
		"duration_ms", latency.Milliseconds())

	return &Result{
		Text:        text,
		SessionID:   sessionID,
		FrameCount:  len(frames),
		ContextHit:  contextHit,
		MediaReused: mediaReused,
	}, nil
}

// contextFor never fails the request. Retrieval errors degrade to an empty
// history that is not cached, so the next request retries the store.
func (o *Orchestrator) contextFor(ctx context.Context, sessionID, prompt string, logger *slog.Logger) (string, bool) {
	key := CacheKey(sessionID, prompt)
	if v, ok := o.contexts.Get(key); ok {
		o.countCacheHit(ctx)
		return v, true
	}

	ch := o.flights.DoChan(key, func() (any, error) {
		if v, ok := o.contexts.Get(key); ok {
			return v, nil
		}
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.ContextTimeout)
		defer cancel()

		history, err := o.retriever.History(qctx, prompt, sessionID)
		if err != nil {
			return "", err
		}
		o.contexts.Set(key, history)
		return history, nil
	})

	select {
	case <-ctx.Done():
		return "", false
	case res := <-ch:
		if res.Err != nil {
			logger.Warn("context retrieval failed, continuing without history", "error", res.Err)
			return "", false
		}
		return res.Val.(string), false
	}
}

func (o *Orchestrator) framesFor(ctx context.Context, sessionID string, data []byte) ([]media.Frame, bool, error) {
	if len(data) == 0 {
		if o.frames != nil {
			if frames, ok := o.frames.Get(sessionID); ok {
				return frames, true, nil
			}
		}
		return nil, false, nil
	}

	if err := o.workers.Acquire(ctx, 1); err != nil {
		return nil, false, err
	}
	defer o.workers.Release(1)

	frames, err := o.extractor.Extract(ctx, data, o.cfg.TargetFPS, o.cfg.MaxFrames)
	if err != nil {
		return nil, false, err
	}
	if o.frames != nil {
		o.frames.Set(sessionID, frames)
	}
	return frames, false, nil
}

func (o *Orchestrator) compose(prompt, history string, frames []media.Frame) []generation.Part {
	parts := make([]generation.Part, 0, len(frames)+2)
	if o.cfg.SystemPrompt != "" {
		parts = append(parts, generation.TextPart(o.cfg.SystemPrompt))
	}
	for _, f := range frames {
		parts = append(parts, generation.InlinePart(f.MIMEType, f.Data))
	}
	if history != "" {
		parts = append(parts, generation.TextPart(history+"User: "+prompt))
	} else {
		parts = append(parts, generation.TextPart(prompt))
	}
	return parts
}

func truncateTail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[len(r)-limit:])
}

func outcomeFor(err error) metrics.Outcome {
	switch {
	case errors.Is(err, media.ErrMedia):
		return metrics.OutcomeMediaError
	case errors.Is(err, generation.ErrGeneration):
		return metrics.OutcomeGenerationError
	default:
		return metrics.OutcomeError
	}
}

func (o *Orchestrator) record(ctx context.Context, outcome metrics.Outcome, frames int, start time.Time) {
	if o.metrics == nil {
		return
	}
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsTimeout)
	defer cancel()
	if err := o.metrics.RecordRequest(mctx, outcome, frames, time.Since(start)); err != nil {
		o.logger.Warn("failed to record metrics", "error", err)
	}
}

func (o *Orchestrator) countCacheHit(ctx context.Context) {
	if o.metrics == nil {
		return
	}
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsTimeout)
	defer cancel()
	if err := o.metrics.IncrementCacheHits(mctx); err != nil {
		o.logger.Warn("failed to record cache hit", "error", err)
	}
}
