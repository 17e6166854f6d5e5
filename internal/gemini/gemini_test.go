package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"google.golang.org/genai"

	"github.com/eleven-am/streamsight/internal/credentials"
	"github.com/eleven-am/streamsight/internal/generation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeModels struct {
	key string

	genResp  *genai.GenerateContentResponse
	genErr   error
	contents []*genai.Content
	config   *genai.GenerateContentConfig

	embedErrs []error
	embedCfg  *genai.EmbedContentConfig
	embeds    int
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.contents = contents
	f.config = config
	return f.genResp, f.genErr
}

func (f *fakeModels) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.embeds++
	f.embedCfg = config
	if len(f.embedErrs) > 0 {
		err := f.embedErrs[0]
		f.embedErrs = f.embedErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2, 0.3}}},
	}, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func dialerFor(models map[string]*fakeModels, dials *int) DialFunc {
	return func(ctx context.Context, apiKey string) (Models, error) {
		*dials++
		m, ok := models[apiKey]
		if !ok {
			return nil, errors.New("unknown key")
		}
		return m, nil
	}
}

func TestClients_CachesPerCredential(t *testing.T) {
	dials := 0
	models := map[string]*fakeModels{"key-aaaa": {}, "key-bbbb": {}}
	clients := NewClientsWithDialer(dialerFor(models, &dials), testLogger())

	for i := 0; i < 3; i++ {
		if _, err := clients.Get(context.Background(), "key-aaaa"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := clients.Get(context.Background(), "key-bbbb"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dials != 2 {
		t.Errorf("expected 2 dials, got %d", dials)
	}
	if clients.Len() != 2 {
		t.Errorf("expected 2 cached clients, got %d", clients.Len())
	}

	if _, err := clients.Get(context.Background(), "missing"); err == nil {
		t.Error("expected dial failure to be returned")
	}
}

func TestBackend_GenerateMapsParts(t *testing.T) {
	dials := 0
	fm := &fakeModels{genResp: textResponse("a cat on a sofa")}
	clients := NewClientsWithDialer(dialerFor(map[string]*fakeModels{"k": fm}, &dials), testLogger())

	backend, err := NewBackendFactory(clients, "")(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parts := []generation.Part{
		generation.TextPart("system"),
		generation.InlinePart("image/jpeg", []byte{0xff, 0xd8}),
		generation.TextPart("what is this?"),
	}
	text, err := backend.Generate(context.Background(), parts, generation.DefaultSampling())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "a cat on a sofa" {
		t.Errorf("expected model text, got %q", text)
	}

	if len(fm.contents) != 1 || fm.contents[0].Role != genai.RoleUser {
		t.Fatalf("expected a single user content, got %+v", fm.contents)
	}
	got := fm.contents[0].Parts
	if len(got) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(got))
	}
	if got[0].Text != "system" || got[2].Text != "what is this?" {
		t.Errorf("text parts out of order: %q, %q", got[0].Text, got[2].Text)
	}
	if got[1].InlineData == nil || got[1].InlineData.MIMEType != "image/jpeg" {
		t.Errorf("expected inline jpeg part, got %+v", got[1])
	}

	if fm.config.MaxOutputTokens != 500 {
		t.Errorf("expected max output tokens 500, got %d", fm.config.MaxOutputTokens)
	}
	if fm.config.TopK == nil || *fm.config.TopK != 40 {
		t.Errorf("expected top_k 40, got %v", fm.config.TopK)
	}
}

func TestBackend_EmptyResponse(t *testing.T) {
	b := &Backend{models: &fakeModels{genResp: textResponse("  ")}, model: DefaultModel}
	if _, err := b.Generate(context.Background(), nil, generation.DefaultSampling()); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestBackend_RateLimitClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"http 429", genai.APIError{Code: 429, Message: "Too Many Requests"}, true},
		{"resource exhausted", genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, true},
		{"server error", genai.APIError{Code: 500, Message: "internal"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Backend{models: &fakeModels{genErr: tt.err}, model: DefaultModel}
			_, err := b.Generate(context.Background(), nil, generation.DefaultSampling())
			if err == nil {
				t.Fatal("expected error")
			}
			var rl generation.RateLimiter
			got := errors.As(err, &rl) && rl.RateLimited()
			if got != tt.want {
				t.Errorf("expected rate limited %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEmbedder_RotatesOnceOnRateLimit(t *testing.T) {
	dials := 0
	rateLimited := genai.APIError{Code: 429, Status: statusResourceExhausted}
	first := &fakeModels{embedErrs: []error{rateLimited}}
	second := &fakeModels{}
	clients := NewClientsWithDialer(dialerFor(map[string]*fakeModels{"key-aaaa": first, "key-bbbb": second}, &dials), testLogger())

	pool, err := credentials.New([]string{"key-aaaa", "key-bbbb"}, testLogger())
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	emb := NewEmbedder(pool, clients, "", 0, testLogger())

	vec, err := emb.EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("expected 3 dimensions from fake, got %d", len(vec))
	}
	if pool.Current() != "key-bbbb" {
		t.Errorf("expected rotation to key-bbbb, got %s", pool.Current())
	}
	if second.embedCfg == nil || second.embedCfg.TaskType != taskRetrievalQuery {
		t.Errorf("expected query task type, got %+v", second.embedCfg)
	}
	if *second.embedCfg.OutputDimensionality != DefaultEmbeddingDimensions {
		t.Errorf("expected %d dimensions requested, got %d", DefaultEmbeddingDimensions, *second.embedCfg.OutputDimensionality)
	}
}

func TestEmbedder_DoesNotRotateOnOtherErrors(t *testing.T) {
	dials := 0
	fm := &fakeModels{embedErrs: []error{errors.New("bad request")}}
	clients := NewClientsWithDialer(dialerFor(map[string]*fakeModels{"key-aaaa": fm, "key-bbbb": {}}, &dials), testLogger())
	pool, _ := credentials.New([]string{"key-aaaa", "key-bbbb"}, testLogger())
	emb := NewEmbedder(pool, clients, "", 0, testLogger())

	if _, err := emb.EmbedDocument(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	if pool.Current() != "key-aaaa" {
		t.Errorf("expected no rotation, got %s", pool.Current())
	}
	if fm.embeds != 1 {
		t.Errorf("expected one embed call, got %d", fm.embeds)
	}
}
