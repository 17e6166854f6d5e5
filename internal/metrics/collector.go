package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "streamsight"

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeMediaError:
		return "media_error"
	case OutcomeGenerationError:
		return "generation_error"
	default:
		return "error"
	}
}

// Recorder is the per-request sink the orchestrator reports to.
type Recorder interface {
	RecordRequest(ctx context.Context, outcome Outcome, frames int, latency time.Duration) error
	IncrementCacheHits(ctx context.Context) error
}

// Collector exports process-local counters for scraping. Unlike Store it
// never fails, so it is safe to call on the request path.
type Collector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration prometheus.Histogram
	frames          prometheus.Counter
	cacheHits       prometheus.Counter
	attempts        *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "infer_requests_total",
				Help:      "Total number of inference requests by outcome",
			},
			[]string{"outcome"},
		),
		requestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "infer_request_duration_seconds",
				Help:      "Inference request duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		frames: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_extracted_total",
				Help:      "Total number of frames sent to the model",
			},
		),
		cacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "context_cache_hits_total",
				Help:      "Total number of context cache hits",
			},
		),
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_attempts_total",
				Help:      "Total number of generation attempts by result",
			},
			[]string{"result"},
		),
	}
}

func (c *Collector) RecordRequest(ctx context.Context, outcome Outcome, frames int, latency time.Duration) error {
	c.requests.WithLabelValues(outcome.String()).Inc()
	c.requestDuration.Observe(latency.Seconds())
	if frames > 0 {
		c.frames.Add(float64(frames))
	}
	return nil
}

func (c *Collector) IncrementCacheHits(ctx context.Context) error {
	c.cacheHits.Inc()
	return nil
}

func (c *Collector) AttemptFinished(result string) {
	c.attempts.WithLabelValues(result).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

type multiRecorder []Recorder

// Multi fans every call out to each recorder and joins their errors.
func Multi(recorders ...Recorder) Recorder {
	out := make(multiRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multiRecorder) RecordRequest(ctx context.Context, outcome Outcome, frames int, latency time.Duration) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordRequest(ctx, outcome, frames, latency); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiRecorder) IncrementCacheHits(ctx context.Context) error {
	var errs []error
	for _, r := range m {
		if err := r.IncrementCacheHits(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
