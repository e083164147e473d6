// Package http assembles the coach's HTTP server.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/speechcoach/coach/internal/config"
	"github.com/speechcoach/coach/internal/hub"
	"github.com/speechcoach/coach/internal/service"
	"github.com/speechcoach/coach/internal/telemetry"
	v1 "github.com/speechcoach/coach/internal/transport/http/v1"
	"github.com/speechcoach/coach/internal/transport/ws"
)

// NewServer creates the HTTP server: the v1 API, the call websocket,
// Prometheus metrics and, with local storage, the synthesized audio files.
func NewServer(cfg *config.Config, svc *service.Service, h *hub.Hub, metrics *telemetry.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, h)
	wsServer := ws.NewServer(cfg, h, svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	wsServer.RegisterRoutes(e)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}
	if cfg.StorageType == config.StorageLocal {
		e.Static(cfg.OutputBaseURL, cfg.OutputDir)
	}

	return e
}
