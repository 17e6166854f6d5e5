package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	metricsTTL   = 7 * 24 * time.Hour
	DefaultHours = 24
)

var ErrNotConfigured = errors.New("redis client not configured")

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeMediaError
	OutcomeGenerationError
	OutcomeError
)

type Store struct {
	redis *redis.Client
	now   func() time.Time
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{
		redis: redisClient,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) currentKey() string {
	now := s.now()
	return RedisKey(now.Format("2006-01-02"), now.Hour())
}

func (s *Store) IncrementMetric(ctx context.Context, field string, value int64) error {
	if s.redis == nil {
		return nil
	}
	key := s.currentKey()

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, field, value)
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) IncrementCacheHits(ctx context.Context) error {
	return s.IncrementMetric(ctx, FieldCacheHits, 1)
}

// RecordRequest writes the counters for one finished request in a single
// round trip.
func (s *Store) RecordRequest(ctx context.Context, outcome Outcome, frames int, latency time.Duration) error {
	if s.redis == nil {
		return nil
	}
	key := s.currentKey()

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, FieldRequests, 1)
	switch outcome {
	case OutcomeMediaError:
		pipe.HIncrBy(ctx, key, FieldErrors, 1)
		pipe.HIncrBy(ctx, key, FieldMediaErrors, 1)
	case OutcomeGenerationError:
		pipe.HIncrBy(ctx, key, FieldErrors, 1)
		pipe.HIncrBy(ctx, key, FieldGenerationErrors, 1)
	case OutcomeError:
		pipe.HIncrBy(ctx, key, FieldErrors, 1)
	}
	if frames > 0 {
		pipe.HIncrBy(ctx, key, FieldFrames, int64(frames))
	}
	pipe.HIncrBy(ctx, key, FieldTotalLatencyMs, latency.Milliseconds())
	pipe.HIncrBy(ctx, key, FieldLatencyCount, 1)
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) GetMetrics(ctx context.Context, hours int) ([]*Hourly, error) {
	if s.redis == nil {
		return []*Hourly{}, nil
	}
	if hours <= 0 {
		hours = DefaultHours
	}

	now := s.now()
	metrics := make([]*Hourly, 0)

	for i := 0; i < hours; i++ {
		t := now.Add(-time.Duration(i) * time.Hour)
		key := RedisKey(t.Format("2006-01-02"), t.Hour())

		data, err := s.redis.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}

		m := &Hourly{
			Date: t.Format("2006-01-02"),
			Hour: t.Hour(),
		}
		m.Requests = parseField(data, FieldRequests)
		m.Errors = parseField(data, FieldErrors)
		m.MediaErrors = parseField(data, FieldMediaErrors)
		m.GenerationErrors = parseField(data, FieldGenerationErrors)
		m.Frames = parseField(data, FieldFrames)
		m.CacheHits = parseField(data, FieldCacheHits)

		totalLatency := parseField(data, FieldTotalLatencyMs)
		latencyCount := parseField(data, FieldLatencyCount)
		if latencyCount > 0 {
			m.AvgLatencyMs = totalLatency / latencyCount
		}

		metrics = append(metrics, m)
	}

	return metrics, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.redis == nil {
		return ErrNotConfigured
	}
	return s.redis.Ping(ctx).Err()
}

func parseField(data map[string]string, field string) int64 {
	v, _ := strconv.ParseInt(data[field], 10, 64)
	return v
}
