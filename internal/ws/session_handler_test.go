package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pinfall/backend/internal/auth"
	"github.com/pinfall/backend/internal/config"
	"github.com/pinfall/backend/internal/game"
)

const testSecret = "test-secret"

func setupServer(t *testing.T) (*httptest.Server, *game.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		DefaultScene:        "classic",
		TickRateHz:          120,
		MaxBodiesPerSession: 8,
		SessionInboxSize:    16,
		SessionIdleSeconds:  60,
		JWTSecret:           testSecret,
	}
	ctx, cancel := context.WithCancel(context.Background())
	hub := startHub(t)
	m := game.NewManager(ctx, nil, cfg, hub, nil)

	r := gin.New()
	r.GET("/api/v1/sessions/:id/ws", HandleWebSocket(hub, m, cfg))
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		m.Shutdown()
		cancel()
	})
	return srv, m
}

func wsURL(srv *httptest.Server, sessionID, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + sessionID + "/ws?token=" + token
}

// readUntil reads messages until one of type want arrives
func readUntil(t *testing.T, conn *websocket.Conn, want string, timeout time.Duration) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", want, err)
		}
		if msg["type"] == want {
			return msg
		}
	}
}

func TestWebSocketInputSpawnsAndDrops(t *testing.T) {
	srv, m := setupServer(t)

	s, err := m.CreateSession("classic")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	token, err := auth.IssueSessionToken(testSecret, s.ID, "classic", time.Minute)
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, s.ID, token), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	readUntil(t, conn, "session_joined", 2*time.Second)

	msg := map[string]interface{}{
		"type": "input",
		"data": map[string]interface{}{"device": "keyboard", "event": "up", "key": "a"},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	spawned := readUntil(t, conn, game.MsgSpawned, 2*time.Second)
	data, _ := spawned["data"].(map[string]interface{})
	if data["trigger"] != "left" {
		t.Errorf("spawned trigger = %v, want left", data["trigger"])
	}

	drop := readUntil(t, conn, game.MsgDrop, 20*time.Second)
	data, _ = drop["data"].(map[string]interface{})
	if data["session_id"] != s.ID {
		t.Errorf("drop for session %v, want %s", data["session_id"], s.ID)
	}

	if err := conn.WriteJSON(map[string]interface{}{"type": "ping"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	readUntil(t, conn, "pong", 2*time.Second)
}

func TestWebSocketSessionCloseDisconnects(t *testing.T) {
	srv, m := setupServer(t)

	s, _ := m.CreateSession("deepwell")
	token, _ := auth.IssueSessionToken(testSecret, s.ID, "deepwell", time.Minute)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, s.ID, token), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	readUntil(t, conn, "session_joined", 2*time.Second)

	if err := m.CloseSession(s.ID); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	readUntil(t, conn, game.MsgSessionClosed, 2*time.Second)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Errorf("expected a normal close, got %v", err)
			}
			return
		}
	}
}

func TestWebSocketRejectsBadTokens(t *testing.T) {
	srv, m := setupServer(t)
	s, _ := m.CreateSession("classic")
	other, _ := m.CreateSession("classic")

	otherToken, _ := auth.IssueSessionToken(testSecret, other.ID, "classic", time.Minute)
	forged, _ := auth.IssueSessionToken("wrong-secret", s.ID, "classic", time.Minute)
	missing, _ := auth.IssueSessionToken(testSecret, "sess_missing", "classic", time.Minute)

	cases := []struct {
		name      string
		sessionID string
		token     string
		want      int
	}{
		{"no token", s.ID, "", http.StatusBadRequest},
		{"forged", s.ID, forged, http.StatusUnauthorized},
		{"other session", s.ID, otherToken, http.StatusForbidden},
		{"unknown session", "sess_missing", missing, http.StatusNotFound},
	}
	for _, c := range cases {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, c.sessionID, c.token), nil)
		if err == nil {
			t.Errorf("%s: dial succeeded", c.name)
			continue
		}
		if resp == nil || resp.StatusCode != c.want {
			got := 0
			if resp != nil {
				got = resp.StatusCode
			}
			t.Errorf("%s: status %d, want %d", c.name, got, c.want)
		}
	}
}
