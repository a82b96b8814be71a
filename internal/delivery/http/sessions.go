package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/pavemap/backend/internal/domain"
	"github.com/pavemap/backend/internal/log"
	"github.com/pavemap/backend/internal/session"
)

const (
	streamBuffer    = 64
	streamKeepAlive = 15 * time.Second
)

type zoomRequest struct {
	Zoom *float64 `json:"zoom"`
}

type yearRequest struct {
	Year int `json:"year"`
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

type progressRequest struct {
	Percent *float64 `json:"percent"`
}

type seekRequest struct {
	Seconds *float64 `json:"seconds"`
}

type playbackRequest struct {
	Duration float64 `json:"duration"`
}

type viewportRequest struct {
	Center *domain.Coordinate `json:"center"`
	Zoom   *int               `json:"zoom"`
}

// CreateSession opens a dashboard session
func (h *Handler) CreateSession(c *fiber.Ctx) error {
	s, err := h.sessions.Create()
	if err != nil {
		if errors.Is(err, session.ErrClosed) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Server is shutting down")
		}
		log.Errorw("failed to create session", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to create session")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      s.ID(),
		"data":    s.Snapshot(),
	})
}

// GetSession returns the current state snapshot
func (h *Handler) GetSession(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    s.Snapshot(),
	})
}

// DeleteSession closes a session
func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	if err := h.sessions.Remove(c.Params("id")); err != nil {
		return sessionError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetSessionGeometry returns the GeoJSON of the layers the session shows
func (h *Handler) GetSessionGeometry(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(s.Geometry())
}

// SetZoom handles a zoom notification from the map
func (h *Handler) SetZoom(c *fiber.Ctx) error {
	var req zoomRequest
	if err := c.BodyParser(&req); err != nil || req.Zoom == nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body, expected {\"zoom\": number}")
	}
	return h.dispatch(c, session.ZoomChanged{Zoom: *req.Zoom})
}

// SetYear switches the dataset year
func (h *Handler) SetYear(c *fiber.Ctx) error {
	var req yearRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if !domain.KnownYear(req.Year) {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Unknown year %d", req.Year))
	}
	return h.dispatch(c, session.YearSelected{Year: req.Year})
}

// SetDistress toggles distress points
func (h *Handler) SetDistress(c *fiber.Ctx) error {
	enabled, err := parseToggle(c)
	if err != nil {
		return err
	}
	return h.dispatch(c, session.DistressToggled{Enabled: enabled})
}

// SetVideo toggles the video overlay
func (h *Handler) SetVideo(c *fiber.Ctx) error {
	enabled, err := parseToggle(c)
	if err != nil {
		return err
	}
	return h.dispatch(c, session.VideoToggled{Enabled: enabled})
}

// SetImages toggles the image overlay
func (h *Handler) SetImages(c *fiber.Ctx) error {
	enabled, err := parseToggle(c)
	if err != nil {
		return err
	}
	return h.dispatch(c, session.ImagesToggled{Enabled: enabled})
}

// SetProgress reports playback progress in percent
func (h *Handler) SetProgress(c *fiber.Ctx) error {
	var req progressRequest
	if err := c.BodyParser(&req); err != nil || req.Percent == nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body, expected {\"percent\": number}")
	}
	return h.dispatch(c, session.PlaybackProgress{Percent: *req.Percent})
}

// Seek jumps playback to a time in seconds
func (h *Handler) Seek(c *fiber.Ctx) error {
	var req seekRequest
	if err := c.BodyParser(&req); err != nil || req.Seconds == nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body, expected {\"seconds\": number}")
	}
	return h.dispatch(c, session.SeekRequested{Seconds: *req.Seconds})
}

// SetPlayback records media metadata
func (h *Handler) SetPlayback(c *fiber.Ctx) error {
	var req playbackRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return h.dispatch(c, session.PlaybackMeta{DurationSeconds: req.Duration})
}

// SetViewport records a pan or zoom made by the user
func (h *Handler) SetViewport(c *fiber.Ctx) error {
	var req viewportRequest
	if err := c.BodyParser(&req); err != nil || req.Center == nil || req.Zoom == nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body, expected {\"center\": {...}, \"zoom\": int}")
	}
	return h.dispatch(c, session.ViewportMoved{Viewport: domain.ViewportState{Center: *req.Center, Zoom: *req.Zoom}})
}

// StreamEvents sends the session outputs as Server-Sent Events
func (h *Handler) StreamEvents(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	out, cancel := s.Subscribe(streamBuffer)
	first := s.Snapshot()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		if err := stream(w, first, out, streamKeepAlive); err != nil {
			log.Debugw("event stream ended", "session", s.ID(), "error", err)
		}
	}))
	return nil
}

// stream writes the initial state then every output until the channel is
// closed or the client goes away
func stream(w *bufio.Writer, first session.State, out <-chan session.Output, keepAlive time.Duration) error {
	if err := writeEvent(w, "state", first); err != nil {
		return err
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case o, ok := <-out:
			if !ok {
				return nil
			}
			if err := writeEvent(w, string(o.Kind), o.Data); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

func writeEvent(w *bufio.Writer, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("http: failed to encode %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return w.Flush()
}

func (h *Handler) session(c *fiber.Ctx) (*session.Session, error) {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return nil, sessionError(err)
	}
	return s, nil
}

func (h *Handler) dispatch(c *fiber.Ctx, ev session.Event) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()
	st, err := s.Dispatch(ctx, ev)
	if err != nil {
		return sessionError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    st,
	})
}

func parseToggle(c *fiber.Ctx) (bool, error) {
	var req toggleRequest
	if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
		return false, fiber.NewError(fiber.StatusBadRequest, "Invalid request body, expected {\"enabled\": bool}")
	}
	return *req.Enabled, nil
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	case errors.Is(err, session.ErrClosed):
		return fiber.NewError(fiber.StatusGone, "Session closed")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Session busy")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Session error")
	}
}
