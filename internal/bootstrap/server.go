package bootstrap

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/eleven-am/streamsight/internal/metrics"
	"github.com/eleven-am/streamsight/internal/persist"
)

func corsConfig(cfg *Config) middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Requested-With",
		},
		ExposeHeaders:    []string{"X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

func NewEchoServer(cfg *Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(corsConfig(cfg)))
	// Headroom over the upload cap for the other multipart fields.
	e.Use(middleware.BodyLimit(strconv.Itoa(cfg.MaxUploadMB+1) + "M"))
	return e
}

type ServerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Echo      *echo.Echo
	Config    *Config

	// Built before the server hook is appended, so fx stops them only after
	// Shutdown has finished the in-flight requests that feed them.
	Queue   *persist.Queue
	Metrics *metrics.Async
}

func StartServer(p ServerParams) {
	e, cfg := p.Echo, p.Config
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

var ServerModule = fx.Options(
	fx.Provide(NewEchoServer),
	fx.Invoke(StartServer),
)

func Run() {
	fx.New(
		fx.Provide(LoadConfig, ProvideLogger),
		InfrastructureModule,
		CoreModule,
		ServerModule,
		HealthModule,
		HandlersModule,
	).Run()
}
