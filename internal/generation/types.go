package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func InlinePart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

func (p Part) IsInline() bool {
	return len(p.Data) > 0
}

type Sampling struct {
	MaxOutputTokens int32
	Temperature     float32
	TopP            float32
	TopK            float32
}

func DefaultSampling() Sampling {
	return Sampling{
		MaxOutputTokens: 500,
		Temperature:     0.7,
		TopP:            0.8,
		TopK:            40,
	}
}

type Backend interface {
	Generate(ctx context.Context, parts []Part, sampling Sampling) (string, error)
}

// BackendFactory binds a backend to a single credential.
type BackendFactory func(ctx context.Context, apiKey string) (Backend, error)

type Credentials interface {
	Current() string
	Rotate(failed string) string
	RecordUsage(key string)
}

// RateLimiter lets backends classify their own errors instead of relying on
// message matching.
type RateLimiter interface {
	RateLimited() bool
}

var ErrGeneration = errors.New("generation failed")

type GenerationError struct {
	Attempts int
	Cause    error
}

func (e *GenerationError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("generation failed after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

var rateLimitMarkers = []string{"quota", "rate", "limit"}

func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var rl RateLimiter
	if errors.As(err, &rl) && rl.RateLimited() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
