package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/pinfall/backend/internal/config"
	"github.com/pinfall/backend/internal/scene"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionIdleKey = "session_idle"

// Manager owns every live session in this process
type Manager struct {
	sessions    map[string]*Session
	rdb         *redis.Client
	config      *config.Config
	broadcaster Broadcaster
	recorder    Recorder
	ctx         context.Context
	mu          sync.RWMutex
}

// NewManager creates a manager. Sessions it starts stop when ctx is done.
// rdb, broadcaster and recorder may be nil
func NewManager(ctx context.Context, rdb *redis.Client, cfg *config.Config, broadcaster Broadcaster, recorder Recorder) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		rdb:         rdb,
		config:      cfg,
		broadcaster: broadcaster,
		recorder:    recorder,
		ctx:         ctx,
	}
}

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// generateSessionID generates a unique session ID
func generateSessionID() string {
	return "sess_" + generateToken(8)
}

// CreateSession builds the named scene and starts its loop. An empty name
// uses the configured default scene
func (m *Manager) CreateSession(sceneName string) (*Session, error) {
	if sceneName == "" {
		sceneName = m.config.DefaultScene
	}
	sc, err := scene.Build(sceneName)
	if err != nil {
		return nil, err
	}

	s, err := NewSession(generateSessionID(), sc, SessionOptions{
		TickRate:    m.config.TickRateHz,
		MaxBodies:   m.config.MaxBodiesPerSession,
		InboxSize:   m.config.SessionInboxSize,
		Seed:        m.config.SpawnSeed,
		PointerUp:   m.config.PointerUpCenter,
		Broadcaster: m.broadcaster,
		Recorder:    m.recorder,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	go s.Run(m.ctx)
	go m.reap(s)

	m.MarkActive(s.ID)
	if err := saveSessionToRedis(m.ctx, m.rdb, s.Stats(), m.idleTimeout()); err != nil {
		log.Printf("[REDIS] Failed to save session %s: %v", s.ID, err)
	}
	log.Printf("[SESSION] Created %s (scene=%s)", s.ID, sc.Name)
	return s, nil
}

// reap drops s from the table once it has stopped
func (m *Manager) reap(s *Session) {
	<-s.Done()

	m.mu.Lock()
	if cur, ok := m.sessions[s.ID]; ok && cur == s {
		delete(m.sessions, s.ID)
	}
	m.mu.Unlock()

	if m.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := m.rdb.ZRem(ctx, sessionIdleKey, s.ID).Err(); err != nil {
			log.Printf("[REDIS] Failed to clear idle entry for %s: %v", s.ID, err)
		}
		if err := saveSessionToRedis(ctx, m.rdb, s.Stats(), time.Hour); err != nil {
			log.Printf("[REDIS] Failed to save session %s: %v", s.ID, err)
		}
	}
}

func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// CloseSession stops a session. Closing an unknown session is an error
func (m *Manager) CloseSession(id string) error {
	s, err := m.GetSession(id)
	if err != nil {
		return err
	}
	s.Close()
	return nil
}

// MarkActive pushes back the idle deadline of a session
func (m *Manager) MarkActive(id string) {
	if m.rdb == nil {
		return
	}
	deadline := time.Now().Add(m.idleTimeout()).Unix()
	if err := m.rdb.ZAdd(m.ctx, sessionIdleKey, redis.Z{Score: float64(deadline), Member: id}).Err(); err != nil {
		log.Printf("[REDIS] Failed to mark session %s active: %v", id, err)
	}
}

// ActiveSessions returns summaries of every live session, oldest first
func (m *Manager) ActiveSessions() []Stats {
	m.mu.RLock()
	out := make([]Stats, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Stats())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every session
func (m *Manager) Shutdown() {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
	log.Printf("[SESSION] Shut down %d sessions", len(sessions))
}

func (m *Manager) idleTimeout() time.Duration {
	if m.config.SessionIdleSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(m.config.SessionIdleSeconds) * time.Second
}
