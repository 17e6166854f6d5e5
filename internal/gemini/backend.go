package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/eleven-am/streamsight/internal/generation"
)

const DefaultModel = "gemini-2.0-flash"

var ErrEmptyResponse = errors.New("model returned no text")

type Backend struct {
	models Models
	model  string
}

func NewBackendFactory(clients *Clients, model string) generation.BackendFactory {
	if model == "" {
		model = DefaultModel
	}
	return func(ctx context.Context, apiKey string) (generation.Backend, error) {
		m, err := clients.Get(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		return &Backend{models: m, model: model}, nil
	}
}

func (b *Backend) Generate(ctx context.Context, parts []generation.Part, sampling generation.Sampling) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts(toParts(parts), genai.RoleUser)}

	resp, err := b.models.GenerateContent(ctx, b.model, contents, samplingConfig(sampling))
	if err != nil {
		return "", classify(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func toParts(parts []generation.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsInline() {
			out = append(out, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		out = append(out, genai.NewPartFromText(p.Text))
	}
	return out
}

func samplingConfig(s generation.Sampling) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		MaxOutputTokens: s.MaxOutputTokens,
		Temperature:     genai.Ptr(s.Temperature),
		TopP:            genai.Ptr(s.TopP),
		TopK:            genai.Ptr(s.TopK),
	}
}
