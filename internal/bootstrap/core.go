package bootstrap

import (
	"context"
	"log/slog"
	"os"

	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/eleven-am/streamsight/internal/contextstore"
	"github.com/eleven-am/streamsight/internal/credentials"
	"github.com/eleven-am/streamsight/internal/gemini"
	"github.com/eleven-am/streamsight/internal/generation"
	"github.com/eleven-am/streamsight/internal/inference"
	"github.com/eleven-am/streamsight/internal/media"
	"github.com/eleven-am/streamsight/internal/metrics"
	"github.com/eleven-am/streamsight/internal/persist"
	"github.com/eleven-am/streamsight/internal/transcript"
)

// ProvideCredentialPool fails startup when no key slot is populated.
func ProvideCredentialPool(logger *slog.Logger) (*credentials.Pool, error) {
	return credentials.FromEnv(os.LookupEnv, logger)
}

func ProvideGeminiClients(logger *slog.Logger) *gemini.Clients {
	return gemini.NewClients(logger)
}

func ProvideEmbedder(pool *credentials.Pool, clients *gemini.Clients, cfg *Config, logger *slog.Logger) *gemini.Embedder {
	return gemini.NewEmbedder(pool, clients, cfg.EmbeddingModel, cfg.EmbeddingDimensions, logger)
}

func ProvideQdrantStore(client *qdrant.Client, cfg *Config, logger *slog.Logger) *contextstore.QdrantStore {
	return contextstore.NewQdrantStore(client, cfg.QdrantCollection, logger)
}

func ProvideRetriever(store *contextstore.QdrantStore, embedder *gemini.Embedder, logger *slog.Logger) *contextstore.Retriever {
	return contextstore.NewRetriever(store, embedder, contextstore.JoinRecent, logger)
}

func ProvideMetricsStore(redisClient *redis.Client) *metrics.Store {
	return metrics.NewStore(redisClient)
}

// ProvideAsyncMetrics keeps Redis writes off the request path.
func ProvideAsyncMetrics(lc fx.Lifecycle, store *metrics.Store, cfg *Config, logger *slog.Logger) *metrics.Async {
	async := metrics.NewAsync(store, cfg.MetricsBufferSize, cfg.MetricsTimeout, logger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			async.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return async.Stop(ctx)
		},
	})
	return async
}

func ProvideCollector(cfg *Config) *metrics.Collector {
	return metrics.NewCollector(cfg.MetricsNamespace)
}

func ProvideGenerationClient(pool *credentials.Pool, clients *gemini.Clients, collector *metrics.Collector, cfg *Config, logger *slog.Logger) *generation.Client {
	return generation.NewClient(pool, gemini.NewBackendFactory(clients, cfg.GenerationModel), generation.Config{
		MaxRetries:  cfg.MaxRetries,
		BackoffUnit: cfg.BackoffUnit,
		Sampling: generation.Sampling{
			MaxOutputTokens: int32(cfg.MaxOutputTokens),
			Temperature:     float32(cfg.Temperature),
			TopP:            float32(cfg.TopP),
			TopK:            float32(cfg.TopK),
		},
		Observer: collector,
	}, logger)
}

func ProvideFFmpegDecoder(cfg *Config, logger *slog.Logger) *media.FFmpegDecoder {
	return media.NewFFmpegDecoder(media.FFmpegConfig{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
	}, logger)
}

func ProvideExtractor(decoder *media.FFmpegDecoder, logger *slog.Logger) *media.Extractor {
	return media.NewExtractor(decoder, logger)
}

func ProvideTranscriptStore(db *gorm.DB) *transcript.Store {
	return transcript.NewStore(db)
}

func ProvidePersistQueue(lc fx.Lifecycle, retriever *contextstore.Retriever, transcripts *transcript.Store, cfg *Config, logger *slog.Logger) *persist.Queue {
	sinks := []persist.Sink{persist.NewContextSink(retriever)}
	if transcripts.Enabled() {
		sinks = append(sinks, persist.NewTranscriptSink(transcripts))
	}

	queue := persist.NewQueue(persist.Config{
		QueueSize: cfg.PersistQueueSize,
		Workers:   cfg.MaxWorkers,
		Timeout:   cfg.PersistTimeout,
	}, logger, sinks...)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			queue.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return queue.Stop(ctx)
		},
	})
	return queue
}

type OrchestratorParams struct {
	fx.In

	Retriever *contextstore.Retriever
	Extractor *media.Extractor
	Generator *generation.Client
	Queue     *persist.Queue
	Metrics   *metrics.Async
	Collector *metrics.Collector
	Config    *Config
	Logger    *slog.Logger
}

func ProvideOrchestrator(p OrchestratorParams) *inference.Orchestrator {
	return inference.NewOrchestrator(inference.Deps{
		Retriever: p.Retriever,
		Extractor: p.Extractor,
		Generator: p.Generator,
		Persister: p.Queue,
		Metrics:   metrics.Multi(p.Metrics, p.Collector),
	}, inference.Config{
		SystemPrompt:      p.Config.SystemPrompt,
		MaxFrames:         p.Config.MaxFrames,
		TargetFPS:         p.Config.TargetFPS,
		MaxWorkers:        p.Config.MaxWorkers,
		ContextTimeout:    p.Config.ContextTimeout,
		ContextCacheSize:  p.Config.CacheSizeLimit,
		SessionMediaCache: p.Config.SessionMediaCache,
	}, p.Logger)
}

func RunMigrations(transcripts *transcript.Store) error {
	return transcripts.Migrate()
}

// EnsureContextCollection does not fail startup. Without Qdrant the gateway
// still answers, it just has no history to draw on.
func EnsureContextCollection(lc fx.Lifecycle, store *contextstore.QdrantStore, embedder *gemini.Embedder, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := store.EnsureCollection(ctx, embedder.Dimensions()); err != nil {
				logger.Warn("context collection unavailable", "error", err)
			}
			return nil
		},
	})
}

func WarnMissingFFmpeg(decoder *media.FFmpegDecoder, logger *slog.Logger) {
	if err := decoder.Available(); err != nil {
		logger.Warn("video decoding disabled, only still images will be accepted", "error", err)
	}
}

var CoreModule = fx.Options(
	fx.Provide(
		ProvideCredentialPool,
		ProvideGeminiClients,
		ProvideEmbedder,
		ProvideQdrantStore,
		ProvideRetriever,
		ProvideMetricsStore,
		ProvideAsyncMetrics,
		ProvideCollector,
		ProvideGenerationClient,
		ProvideFFmpegDecoder,
		ProvideExtractor,
		ProvideTranscriptStore,
		ProvidePersistQueue,
		ProvideOrchestrator,
	),
	fx.Invoke(RunMigrations),
	fx.Invoke(EnsureContextCollection),
	fx.Invoke(WarnMissingFFmpeg),
)
