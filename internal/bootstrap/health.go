package bootstrap

import (
	"github.com/labstack/echo/v4"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/eleven-am/streamsight/internal/credentials"
	"github.com/eleven-am/streamsight/internal/health"
	"github.com/eleven-am/streamsight/internal/media"
)

const version = "1.0.0"

func ProvideHealthHandler(
	db *gorm.DB,
	redis *redis.Client,
	qdrant *qdrant.Client,
	decoder *media.FFmpegDecoder,
	pool *credentials.Pool,
) *health.Handler {
	return health.NewHandler(
		db,
		redis,
		qdrant,
		decoder,
		pool,
		version,
	)
}

func metricsMiddleware(h *health.Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h.IncrementRequests()
			h.IncrementConnections()
			defer h.DecrementConnections()
			return next(c)
		}
	}
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(metricsMiddleware(h))
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
