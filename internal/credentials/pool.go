package credentials

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

const (
	PrimarySlot      = "GEMINI_API_KEY"
	primarySlotLower = "gemini_api_key"
	suffixLen        = 4
)

var ErrNoCredentials = errors.New("no gemini api keys available")

type LookupFunc func(key string) (string, bool)

type KeyStats struct {
	UsageCount uint64     `json:"usage_count"`
	LastError  *time.Time `json:"last_error"`
	IsCurrent  bool       `json:"is_current"`
}

type Pool struct {
	mu        sync.Mutex
	keys      []string
	current   int
	usage     map[string]uint64
	lastError map[string]time.Time
	now       func() time.Time
	logger    *slog.Logger
}

func New(keys []string, logger *slog.Logger) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	filtered := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			filtered = append(filtered, k)
		}
	}
	if len(filtered) == 0 {
		logger.Error("no valid gemini api keys found")
		return nil, ErrNoCredentials
	}

	usage := make(map[string]uint64, len(filtered))
	for _, k := range filtered {
		usage[k] = 0
	}

	p := &Pool{
		keys:      filtered,
		usage:     usage,
		lastError: make(map[string]time.Time),
		now:       time.Now,
		logger:    logger.With("component", "credential-pool"),
	}
	p.logger.Info("credential pool initialized", "keys", len(filtered))
	return p, nil
}

// Discover scans the primary slot, then GEMINI_API_KEY_2, _3, ... and stops
// at the first missing numbered slot.
func Discover(lookup LookupFunc) []string {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var keys []string
	if v, ok := lookup(PrimarySlot); ok && v != "" {
		keys = append(keys, v)
	} else if v, ok := lookup(primarySlotLower); ok && v != "" {
		keys = append(keys, v)
	}

	for i := 2; ; i++ {
		v, ok := lookup(fmt.Sprintf("%s_%d", PrimarySlot, i))
		if !ok || v == "" {
			break
		}
		keys = append(keys, v)
	}
	return keys
}

func FromEnv(lookup LookupFunc, logger *slog.Logger) (*Pool, error) {
	return New(Discover(lookup), logger)
}

func (p *Pool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys[p.current]
}

// Rotate advances the current index by one, unconditionally. The failed key
// only gets its error timestamp recorded; it is never skipped or removed.
func (p *Pool) Rotate(failed string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if failed != "" {
		p.lastError[failed] = p.now()
		p.logger.Warn("api key failed, rotating", "key", Redact(failed))
	}

	p.current = (p.current + 1) % len(p.keys)
	next := p.keys[p.current]
	p.logger.Info("rotated api key", "key", Redact(next))
	return next
}

func (p *Pool) RecordUsage(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usage[key]++
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

func (p *Pool) Stats() map[string]KeyStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make(map[string]KeyStats, len(p.keys))
	for i, k := range p.keys {
		s := KeyStats{
			UsageCount: p.usage[k],
			IsCurrent:  i == p.current,
		}
		if t, ok := p.lastError[k]; ok {
			s.LastError = &t
		}
		stats[Label(i, k)] = s
	}
	return stats
}

func Label(index int, key string) string {
	return fmt.Sprintf("key_%d_%s", index+1, Redact(key))
}

func Redact(key string) string {
	if len(key) <= suffixLen {
		return "..." + key
	}
	return "..." + key[len(key)-suffixLen:]
}
