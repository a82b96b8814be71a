package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/pavemap/backend/internal/metrics"
	"github.com/pavemap/backend/internal/service"
	"github.com/pavemap/backend/internal/session"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, datasets *service.DatasetService, sessions *session.Manager) {
	handler := NewHandler(datasets, sessions)

	// Health check and metrics
	app.Get("/health", handler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Dataset endpoints
		api.Get("/years", handler.GetYears)
		api.Get("/legend", handler.GetLegend)
		api.Get("/datasets/:year/summary", handler.GetSummary)
		api.Get("/datasets/:year/geometry", handler.GetDatasetGeometry)

		// Session lifecycle and outputs
		api.Post("/sessions", handler.CreateSession)
		api.Get("/sessions/:id", handler.GetSession)
		api.Delete("/sessions/:id", handler.DeleteSession)
		api.Get("/sessions/:id/events", handler.StreamEvents)
		api.Get("/sessions/:id/geometry", handler.GetSessionGeometry)

		// Session inputs
		api.Post("/sessions/:id/zoom", handler.SetZoom)
		api.Post("/sessions/:id/year", handler.SetYear)
		api.Post("/sessions/:id/distress", handler.SetDistress)
		api.Post("/sessions/:id/video", handler.SetVideo)
		api.Post("/sessions/:id/images", handler.SetImages)
		api.Post("/sessions/:id/progress", handler.SetProgress)
		api.Post("/sessions/:id/seek", handler.Seek)
		api.Post("/sessions/:id/playback", handler.SetPlayback)
		api.Post("/sessions/:id/viewport", handler.SetViewport)
	}
}
