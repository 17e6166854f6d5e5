package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eleven-am/streamsight/internal/credentials"
)

const (
	DefaultMaxRetries  = 3
	DefaultBackoffUnit = time.Second
)

const (
	AttemptSuccess     = "success"
	AttemptRateLimited = "rate_limited"
	AttemptFailed      = "failed"
	AttemptBindFailed  = "bind_failed"
)

// Observer is told how every attempt that reached the binding step ended.
type Observer interface {
	AttemptFinished(result string)
}

type Config struct {
	MaxRetries  int
	BackoffUnit time.Duration
	Sampling    Sampling
	Observer    Observer
}

type Client struct {
	creds   Credentials
	factory BackendFactory
	cfg     Config
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewClient(creds Credentials, factory BackendFactory, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = DefaultBackoffUnit
	}
	if cfg.Sampling == (Sampling{}) {
		cfg.Sampling = DefaultSampling()
	}

	return &Client{
		creds:   creds,
		factory: factory,
		cfg:     cfg,
		logger:  logger.With("component", "generation-client"),
		sleep:   sleepContext,
	}
}

func (c *Client) Generate(ctx context.Context, parts []Part) (string, error) {
	return c.GenerateWithRetries(ctx, parts, c.cfg.MaxRetries)
}

func (c *Client) GenerateWithRetries(ctx context.Context, parts []Part, maxRetries int) (string, error) {
	if maxRetries <= 0 {
		maxRetries = c.cfg.MaxRetries
	}

	var (
		backend  Backend
		boundKey string
		lastErr  error
	)

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		key := c.creds.Current()

		if backend == nil || boundKey != key {
			b, err := c.factory(ctx, key)
			if err != nil {
				c.observe(AttemptBindFailed)
				lastErr = fmt.Errorf("bind backend: %w", err)
				c.logger.Warn("backend binding failed",
					"attempt", attempt+1,
					"key", credentials.Redact(key),
					"error", err)
				if err := c.backoff(ctx, attempt, maxRetries); err != nil {
					return "", err
				}
				continue
			}
			backend, boundKey = b, key
		}

		text, err := backend.Generate(ctx, parts, c.cfg.Sampling)
		if err == nil {
			c.creds.RecordUsage(key)
			c.observe(AttemptSuccess)
			c.logger.Debug("generation succeeded", "attempt", attempt+1, "key", credentials.Redact(key))
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		lastErr = err

		if IsRateLimit(err) {
			c.observe(AttemptRateLimited)
			next := c.creds.Rotate(key)
			backend = nil
			c.logger.Warn("rate limited, rotating credential",
				"attempt", attempt+1,
				"failed_key", credentials.Redact(key),
				"next_key", credentials.Redact(next),
				"error", err)
			continue
		}

		c.observe(AttemptFailed)
		c.logger.Warn("generation attempt failed",
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"error", err)
		if err := c.backoff(ctx, attempt, maxRetries); err != nil {
			return "", err
		}
	}

	c.logger.Error("generation exhausted retries", "attempts", maxRetries, "error", lastErr)
	return "", &GenerationError{Attempts: maxRetries, Cause: lastErr}
}

func (c *Client) observe(result string) {
	if c.cfg.Observer != nil {
		c.cfg.Observer.AttemptFinished(result)
	}
}

// BackoffDelay is unit * 2^attempt with attempt counted from zero.
func BackoffDelay(unit time.Duration, attempt int) time.Duration {
	return unit * time.Duration(1<<attempt)
}

func (c *Client) backoff(ctx context.Context, attempt, maxRetries int) error {
	if attempt >= maxRetries-1 {
		return nil
	}
	return c.sleep(ctx, BackoffDelay(c.cfg.BackoffUnit, attempt))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
