package server

import (
	"context"

	"bottarot-be/internal/bootstrap"
	"bottarot-be/internal/config"
	"bottarot-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
		Immutable: true,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Accept-Language, " + serverutils.ClientSessionHeader,
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	app.Get("/healthz", func(ctx *fiber.Ctx) error {
		return serverutils.SuccessResponse(ctx, "ok", fiber.Map{"client_sessions": container.Sessions.Count()})
	})

	registerRoutes(app, cfg, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.container.Logger.Info("Server", "Server is running", map[string]interface{}{"port": s.cfg.App.Port})
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	api := app.Group("/api", serverutils.ClientSessionMiddleware(c.Sessions, serverutils.ClientSessionConfig{
		CookieName: cfg.Session.CookieName,
		IdleTTL:    cfg.Session.IdleTTL,
		SecureOnly: cfg.Session.SecureOnly,
	}))
	requireUser := serverutils.RequireUser(cfg.Guard.InitTimeout)

	c.AuthController.RegisterRoutes(api)
	c.NavigationController.RegisterRoutes(api)
	c.ChatController.RegisterRoutes(api, requireUser)
	c.ReadingController.RegisterRoutes(api)
	c.ProfileController.RegisterRoutes(api, requireUser)
	c.LocalController.RegisterRoutes(api)

	c.SyncHandler.RegisterRoutes(api)
}
