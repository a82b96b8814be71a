package http

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavemap/backend/internal/dataset"
	"github.com/pavemap/backend/internal/domain"
	"github.com/pavemap/backend/internal/repository/postgres"
	"github.com/pavemap/backend/internal/service"
	"github.com/pavemap/backend/internal/session"
	"github.com/pavemap/backend/internal/tier"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	svc := service.NewDatasetService(dataset.NewGenerator(dataset.Options{Seed: 3}),
		postgres.NewMockRepository(), nil, tier.ThreeTier)
	mgr := session.NewManager(session.Config{TierMode: tier.ThreeTier, FrameInterval: time.Millisecond}, svc, time.Minute)
	t.Cleanup(func() {
		mgr.Shutdown()
		svc.WaitBackground()
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	SetupRoutes(app, svc, mgr)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestHealthAndCatalog(t *testing.T) {
	app := newApp(t)

	code, body := do(t, app, "GET", "/health", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = do(t, app, "GET", "/api/v1/years", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Len(t, body["data"], 3)
	assert.Equal(t, float64(domain.LatestYear), body["latest"])

	code, body = do(t, app, "GET", "/api/v1/legend", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Len(t, body["data"], 5)
}

func TestDatasetEndpoints(t *testing.T) {
	app := newApp(t)

	code, body := do(t, app, "GET", "/api/v1/datasets/2024/summary", "")
	require.Equal(t, fiber.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Len(t, data["super_sections"], 13)

	code, body = do(t, app, "GET", "/api/v1/datasets/1999/summary", "")
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, true, body["error"])

	code, body = do(t, app, "GET", "/api/v1/datasets/2024/geometry?zoom=10", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "FeatureCollection", body["type"])
	assert.Len(t, body["features"], 13)

	code, _ = do(t, app, "GET", "/api/v1/datasets/2024/geometry?range=decade", "")
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestSessionFlow(t *testing.T) {
	app := newApp(t)

	code, body := do(t, app, "POST", "/api/v1/sessions", "")
	require.Equal(t, fiber.StatusCreated, code)
	id := body["id"].(string)
	base := "/api/v1/sessions/" + id

	code, body = do(t, app, "POST", base+"/zoom", `{"zoom": 10}`)
	require.Equal(t, fiber.StatusOK, code)
	state := body["data"].(map[string]any)
	assert.Equal(t, float64(domain.TierOverview), state["tier"])
	assert.Equal(t, map[string]any{"superSections": true, "sections": false, "distress": false}, state["visible_layers"])

	code, body = do(t, app, "POST", base+"/progress", `{"percent": 50}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.NotNil(t, body["data"].(map[string]any)["tracked_position"])

	code, _ = do(t, app, "POST", base+"/year", `{"year": 1999}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, body = do(t, app, "POST", base+"/year", `{"year": 2023}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, float64(2023), body["data"].(map[string]any)["year"])

	code, _ = do(t, app, "POST", base+"/video", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = do(t, app, "POST", base+"/distress", `{"enabled": false}`)
	require.Equal(t, fiber.StatusOK, code)
	code, body = do(t, app, "POST", base+"/video", `{"enabled": true}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, false, body["data"].(map[string]any)["toggles"].(map[string]any)["video"])

	code, _ = do(t, app, "POST", base+"/viewport", `{"center": {"lat": 51.5, "lng": -0.1}, "zoom": 12}`)
	assert.Equal(t, fiber.StatusOK, code)

	code, body = do(t, app, "GET", base+"/geometry", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, body["features"], 13)

	code, _ = do(t, app, "GET", base, "")
	assert.Equal(t, fiber.StatusOK, code)

	code, _ = do(t, app, "DELETE", base, "")
	assert.Equal(t, fiber.StatusNoContent, code)

	code, body = do(t, app, "GET", base, "")
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, "Session not found", body["message"])
}

func TestUnknownSession(t *testing.T) {
	app := newApp(t)
	code, _ := do(t, app, "POST", "/api/v1/sessions/nope/zoom", `{"zoom": 3}`)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newApp(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "pavemap_active_sessions")
}

func TestStreamWritesEvents(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	out := make(chan session.Output, 2)
	out <- session.Output{Kind: session.OutputTier, Data: session.TierChange{Tier: 2, Name: "inspection"}}
	out <- session.Output{Kind: session.OutputPosition, Data: domain.Coordinate{Lat: 51.5, Lng: -0.1}}
	close(out)

	require.NoError(t, stream(w, session.InitialState(), out, time.Hour))

	text := buf.String()
	assert.True(t, strings.HasPrefix(text, "event: state\ndata: {"))
	assert.Contains(t, text, "event: tier\ndata: {\"tier\":2,\"name\":\"inspection\"}\n\n")
	assert.Contains(t, text, "event: position\ndata: {\"lat\":51.5,\"lng\":-0.1}\n\n")
}
