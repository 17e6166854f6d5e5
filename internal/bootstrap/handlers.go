package bootstrap

import (
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"

	"github.com/eleven-am/streamsight/internal/credentials"
	"github.com/eleven-am/streamsight/internal/inference"
	"github.com/eleven-am/streamsight/internal/metrics"
	"github.com/eleven-am/streamsight/internal/persist"
	"github.com/eleven-am/streamsight/internal/stats"
	"github.com/eleven-am/streamsight/internal/transcript"
)

type HandlerParams struct {
	fx.In

	InferenceHandler *inference.Handler
	StatsHandler     *stats.Handler
	Collector        *metrics.Collector
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	params.InferenceHandler.RegisterRoutes(e)
	params.StatsHandler.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(params.Collector.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	return logger
}

func ProvideInferenceHandler(orchestrator *inference.Orchestrator, transcripts *transcript.Store, cfg *Config, logger *slog.Logger) *inference.Handler {
	return inference.NewHandler(orchestrator, transcripts, cfg.MaxUploadBytes(), logger.With("handler", "inference"))
}

func ProvideStatsHandler(pool *credentials.Pool, orchestrator *inference.Orchestrator, queue *persist.Queue, store *metrics.Store, logger *slog.Logger) *stats.Handler {
	return stats.NewHandler(pool, orchestrator, queue, store, logger.With("handler", "stats"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideInferenceHandler,
		ProvideStatsHandler,
	),
	fx.Invoke(RegisterRoutes),
)
