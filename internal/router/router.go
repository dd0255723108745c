package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/acadex-api/internal/config"
	"github.com/noah-isme/acadex-api/internal/handler"
	"github.com/noah-isme/acadex-api/internal/middleware"
	"github.com/noah-isme/acadex-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	SubmissionHandler *handler.SubmissionHandler
	GradeHandler      *handler.GradeHandler
	UploadHandler     *handler.UploadHandler
	DashboardHandler  *handler.DashboardHandler
	WatchHandler      *handler.WatchHandler
	JWTMiddleware     fiber.Handler
	NodeID            string
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.NodeID))

	// Without auth the caller identity comes from the request itself.
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil || !cfg.AuthEnabled {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(api.Group("/assignments", jwtMiddleware))
	}

	// Both upload routes draw on one per-caller budget.
	uploadLimit := middleware.RateLimit("upload", cfg.UploadRateLimit, time.Minute)

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", jwtMiddleware), uploadLimit)
	}

	if deps.GradeHandler != nil {
		deps.GradeHandler.Register(api.Group("/grades", jwtMiddleware))
	}

	if deps.UploadHandler != nil {
		uploads := api.Group("/upload", jwtMiddleware, uploadLimit)
		deps.UploadHandler.Register(uploads)
	}

	if deps.DashboardHandler != nil {
		var teacherGuards []fiber.Handler
		if cfg.AuthEnabled {
			teacherGuards = append(teacherGuards, middleware.RequireRole("teacher"))
		}
		deps.DashboardHandler.Register(api.Group("/dashboard", jwtMiddleware), teacherGuards...)
	}

	if deps.WatchHandler != nil {
		deps.WatchHandler.Register(api.Group("/ws", jwtMiddleware))
	}
}
