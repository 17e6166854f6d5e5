package stats

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eleven-am/streamsight/internal/credentials"
	"github.com/eleven-am/streamsight/internal/dto"
	"github.com/eleven-am/streamsight/internal/metrics"
	"github.com/eleven-am/streamsight/internal/persist"
	"github.com/eleven-am/streamsight/internal/shared"
)

const maxHours = 7 * 24

type KeyReporter interface {
	Stats() map[string]credentials.KeyStats
}

type CacheReporter interface {
	ContextCacheSize() int
	MediaCacheSize() int
}

type QueueReporter interface {
	Stats() persist.Stats
}

type MetricsReader interface {
	GetMetrics(ctx context.Context, hours int) ([]*metrics.Hourly, error)
}

type Handler struct {
	keys    KeyReporter
	caches  CacheReporter
	queue   QueueReporter
	metrics MetricsReader
	logger  *slog.Logger
}

func NewHandler(keys KeyReporter, caches CacheReporter, queue QueueReporter, metrics MetricsReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		keys:    keys,
		caches:  caches,
		queue:   queue,
		metrics: metrics,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/stats", h.Stats)
}

// Stats reports credential usage, cache sizes and recent request metrics
// @Summary      Get gateway stats
// @Tags         stats
// @Produce      json
// @Param        hours query int false "Hours of metrics to include (0-168)" default(24)
// @Success      200 {object} dto.StatsResponse
// @Failure      400 {object} shared.APIError "Invalid hours"
// @Router       /stats [get]
func (h *Handler) Stats(c echo.Context) error {
	hours := metrics.DefaultHours
	if v := c.QueryParam("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxHours {
			return shared.BadRequest("invalid_hours", "hours must be between 0 and 168")
		}
		hours = n
	}

	keyStats := h.keys.Stats()
	resp := dto.StatsResponse{
		APIKeyStats:    make(map[string]dto.KeyStatsResponse, len(keyStats)),
		CacheSize:      h.caches.ContextCacheSize(),
		MediaCacheSize: h.caches.MediaCacheSize(),
	}
	for label, s := range keyStats {
		resp.APIKeyStats[label] = dto.KeyStatsResponse{
			UsageCount: s.UsageCount,
			LastError:  s.LastError,
			IsCurrent:  s.IsCurrent,
		}
	}

	if h.queue != nil {
		q := h.queue.Stats()
		resp.Persist = dto.PersistStatsResponse{
			Pending:   q.Pending,
			Persisted: q.Persisted,
			Dropped:   q.Dropped,
			Failed:    q.Failed,
		}
	}

	if h.metrics != nil && hours > 0 {
		hourly, err := h.metrics.GetMetrics(c.Request().Context(), hours)
		if err != nil {
			h.logger.Warn("failed to load metrics", "error", err)
		}
		for _, m := range hourly {
			resp.Metrics = append(resp.Metrics, dto.MetricsResponse{
				Date:             m.Date,
				Hour:             m.Hour,
				Requests:         m.Requests,
				Errors:           m.Errors,
				MediaErrors:      m.MediaErrors,
				GenerationErrors: m.GenerationErrors,
				Frames:           m.Frames,
				CacheHits:        m.CacheHits,
				AvgLatencyMs:     m.AvgLatencyMs,
			})
		}
	}

	return c.JSON(http.StatusOK, resp)
}
