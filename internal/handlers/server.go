package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "github.com/vanpelt/catnip-pty/internal/docs"
	"github.com/vanpelt/catnip-pty/internal/metrics"
	"github.com/vanpelt/catnip-pty/internal/services"
)

// AppConfig wires the host surface together.
type AppConfig struct {
	Service      *services.PTYService
	StreamBuffer int
	AuthToken    string
	// AccessLog receives request logs. nil disables request logging.
	AccessLog io.Writer
}

// App is the assembled fiber application and the handlers behind it.
type App struct {
	*fiber.App
	PTY    *PTYHandler
	Events *EventsHandler
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// NewApp builds the fiber app with all routes registered.
func NewApp(cfg AppConfig) *App {
	app := fiber.New(fiber.Config{
		AppName:               "catnip-pty",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})

	app.Use(recover.New())
	if cfg.AccessLog != nil {
		app.Use(SamplingLogger(cfg.AccessLog, "/health", "/metrics", "/swagger/*", "/v1/pty", "/v1/pty/*/write", "/v1/pty/*/resize"))
	}
	app.Use(metrics.Middleware())

	ptyHandler := NewPTYHandler(cfg.Service, cfg.StreamBuffer)
	eventsHandler := NewEventsHandler(cfg.Service)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(HealthResponse{Status: "ok", Sessions: len(cfg.Service.ListSessions())})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/swagger/*", swagger.HandlerDefault)

	v1 := app.Group("/v1", BearerAuth(cfg.AuthToken))
	ptyHandler.RegisterRoutes(v1)
	v1.Get("/events", eventsHandler.HandleSSE)

	return &App{App: app, PTY: ptyHandler, Events: eventsHandler}
}

// Close disconnects event clients and releases output streams. Sessions
// themselves are owned by the service.
func (a *App) Close() {
	a.Events.Stop()
	a.PTY.Shutdown()
}
