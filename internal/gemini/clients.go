package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/genai"

	"github.com/eleven-am/streamsight/internal/credentials"
)

// Models is the subset of *genai.Models the gateway calls.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type DialFunc func(ctx context.Context, apiKey string) (Models, error)

// Clients holds one upstream client per credential.
type Clients struct {
	mu      sync.Mutex
	clients map[string]Models
	dial    DialFunc
	logger  *slog.Logger
}

func NewClients(logger *slog.Logger) *Clients {
	return NewClientsWithDialer(dialGemini, logger)
}

func NewClientsWithDialer(dial DialFunc, logger *slog.Logger) *Clients {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clients{
		clients: make(map[string]Models),
		dial:    dial,
		logger:  logger.With("component", "gemini-clients"),
	}
}

func dialGemini(ctx context.Context, apiKey string) (Models, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

func (c *Clients) Get(ctx context.Context, apiKey string) (Models, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.clients[apiKey]; ok {
		return m, nil
	}

	m, err := c.dial(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("create gemini client for %s: %w", credentials.Redact(apiKey), err)
	}

	c.clients[apiKey] = m
	c.logger.Info("gemini client initialized", "key", credentials.Redact(apiKey))
	return m, nil
}

func (c *Clients) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}
