package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pinfall/backend/internal/auth"
	"github.com/pinfall/backend/internal/config"
	"github.com/pinfall/backend/internal/game"
	"github.com/pinfall/backend/internal/ws"
)

func setupRouter(t *testing.T) (*gin.Engine, *game.Manager, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment:            "production",
		DefaultScene:           "classic",
		TickRateHz:             60,
		MaxBodiesPerSession:    8,
		SessionInboxSize:       16,
		SessionIdleSeconds:     60,
		JWTSecret:              "routes-test",
		SessionTokenTTLMinutes: 5,
	}
	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub()
	m := game.NewManager(ctx, nil, cfg, hub, nil)
	t.Cleanup(func() {
		m.Shutdown()
		cancel()
	})

	r := gin.New()
	SetupRoutes(r, nil, nil, cfg, m, hub)
	return r, m, cfg
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad JSON %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := do(r, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	body := decode(t, w)
	if body["status"] != "ok" || body["database"] != "disabled" || body["redis"] != "disabled" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestScenes(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := do(r, http.MethodGet, "/api/v1/scenes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status %d", w.Code)
	}
	scenes, _ := decode(t, w)["scenes"].([]interface{})
	if len(scenes) != 2 {
		t.Errorf("expected 2 scenes, got %d", len(scenes))
	}

	w = do(r, http.MethodGet, "/api/v1/scenes/deepwell", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status %d", w.Code)
	}
	body := decode(t, w)
	if body["spawn_height"] != 15.0 {
		t.Errorf("deepwell spawn_height = %v", body["spawn_height"])
	}
	spawnCfg, _ := body["spawn"].(map[string]interface{})
	if spawnCfg["threshold"] != -25.0 {
		t.Errorf("deepwell threshold = %v", spawnCfg["threshold"])
	}

	if w := do(r, http.MethodGet, "/api/v1/scenes/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown scene status %d", w.Code)
	}
}

func TestCreateSession(t *testing.T) {
	r, m, cfg := setupRouter(t)

	w := do(r, http.MethodPost, "/api/v1/sessions", `{"scene":"deepwell"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	id, _ := body["session_id"].(string)
	token, _ := body["token"].(string)
	if id == "" || token == "" {
		t.Fatalf("missing id or token in %v", body)
	}
	if w.Header().Get("X-Session-ID") != id {
		t.Errorf("X-Session-ID = %q, want %q", w.Header().Get("X-Session-ID"), id)
	}
	if wsURL, _ := body["ws_url"].(string); !strings.HasPrefix(wsURL, "/api/v1/sessions/"+id+"/ws?token=") {
		t.Errorf("ws_url = %q", wsURL)
	}

	claims, err := auth.ParseSessionToken(cfg.JWTSecret, token)
	if err != nil {
		t.Fatalf("ParseSessionToken: %v", err)
	}
	if claims.SessionID != id || claims.Scene != "deepwell" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := m.GetSession(id); err != nil {
		t.Errorf("session not registered: %v", err)
	}

	w = do(r, http.MethodGet, "/api/v1/sessions/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get session status %d", w.Code)
	}
	if decode(t, w)["scene"] != "deepwell" {
		t.Errorf("session stats have wrong scene: %s", w.Body.String())
	}
}

func TestCreateSessionDefaultsAndErrors(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := do(r, http.MethodPost, "/api/v1/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("empty body status %d", w.Code)
	}
	if decode(t, w)["scene"] != "classic" {
		t.Errorf("empty body did not use the default scene: %s", w.Body.String())
	}

	if w := do(r, http.MethodPost, "/api/v1/sessions", `{"scene":"moonbase"}`); w.Code != http.StatusBadRequest {
		t.Errorf("unknown scene status %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/sessions", `{"scene":`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/sessions/sess_missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing session status %d", w.Code)
	}
}

func TestStoresUnavailable(t *testing.T) {
	r, _, _ := setupRouter(t)

	for _, path := range []string{"/api/v1/stats", "/api/v1/drops", "/api/v1/admin/sessions"} {
		if w := do(r, http.MethodGet, path, ""); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status %d, want 503", path, w.Code)
		}
	}
	if w := do(r, http.MethodDelete, "/api/v1/admin/sessions/sess_x", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("admin delete status %d, want 503", w.Code)
	}
}

func TestWebSocketRouteChecksOrigin(t *testing.T) {
	r, _, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/sess_x/ws?token=t", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign origin status %d, want 403", w.Code)
	}
}
