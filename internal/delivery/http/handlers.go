package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/pavemap/backend/internal/dataset"
	"github.com/pavemap/backend/internal/domain"
	"github.com/pavemap/backend/internal/service"
	"github.com/pavemap/backend/internal/session"
)

// Handler contains all HTTP handlers
type Handler struct {
	datasets *service.DatasetService
	sessions *session.Manager
}

// NewHandler creates a new handler
func NewHandler(datasets *service.DatasetService, sessions *session.Manager) *Handler {
	return &Handler{
		datasets: datasets,
		sessions: sessions,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	storage := "ok"
	if err := h.datasets.Health(c.Context()); err != nil {
		status = "degraded"
		storage = err.Error()
	}

	return c.JSON(fiber.Map{
		"status":   status,
		"service":  "pavemap-backend",
		"version":  "1.0.0",
		"storage":  storage,
		"sessions": h.sessions.Len(),
	})
}

// GetYears returns the years offered by the year selector
func (h *Handler) GetYears(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.datasets.Years(),
		"latest":  domain.LatestYear,
	})
}

// GetLegend returns the condition color scale
func (h *Handler) GetLegend(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.datasets.Legend(),
	})
}

// GetSummary returns super-section metadata for a year
func (h *Handler) GetSummary(c *fiber.Ctx) error {
	year, err := c.ParamsInt("year")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid year")
	}

	summary, err := h.datasets.Summary(c.Context(), year)
	if err != nil {
		return datasetError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    summary,
	})
}

// GetDatasetGeometry returns the GeoJSON visible at a zoom level
func (h *Handler) GetDatasetGeometry(c *fiber.Ctx) error {
	year, err := c.ParamsInt("year")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid year")
	}
	rng, err := dataset.ParseRange(c.Query("range"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid range, expected year, quarter or month")
	}

	fc, err := h.datasets.Geometry(c.Context(), year, service.GeometryQuery{
		Zoom:     c.QueryFloat("zoom", float64(domain.DefaultZoom)),
		Distress: c.QueryBool("distress", true),
		Range:    rng,
		Date:     c.Query("date"),
	})
	if err != nil {
		return datasetError(err)
	}

	return c.JSON(fc)
}

func datasetError(err error) error {
	if errors.Is(err, dataset.ErrUnknownYear) {
		return fiber.NewError(fiber.StatusNotFound, "Unknown year")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "Failed to load dataset")
}

// ErrorHandler renders errors as JSON
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
