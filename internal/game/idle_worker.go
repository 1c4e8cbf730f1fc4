package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionEventsChannel carries session lifecycle notices such as idle expiry
const SessionEventsChannel = "session_events"

// StartIdleWorker closes sessions that have received no input for
// SESSION_IDLE_SECONDS. Deadlines come from the session_idle sorted set when
// redis is available, otherwise from each session's in-memory timestamp
func StartIdleWorker(ctx context.Context, m *Manager) {
	if m == nil || m.config == nil {
		log.Println("[IDLE] Manager or config missing; idle worker not started")
		return
	}

	interval := time.Duration(m.config.IdleWorkerPollInterval) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}

	log.Println("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case <-ticker.C:
				if m.rdb != nil {
					m.expireFromRedis(ctx)
				}
				m.expireInMemory(time.Now())
			}
		}
	}()
}

func (m *Manager) expireFromRedis(ctx context.Context) {
	now := time.Now().Unix()
	members, err := m.rdb.ZRangeByScore(ctx, sessionIdleKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now)}).Result()
	if err != nil {
		log.Printf("[IDLE] Failed to fetch idle sessions: %v", err)
		return
	}
	for _, id := range members {
		// Only the process that removes the member acts on it
		if removed, _ := m.rdb.ZRem(ctx, sessionIdleKey, id).Result(); removed == 0 {
			continue
		}
		s, err := m.GetSession(id)
		if err != nil {
			continue
		}
		if time.Since(s.LastActivity()) < m.idleTimeout() {
			// input arrived after the deadline was written
			m.MarkActive(id)
			continue
		}
		m.expire(ctx, s)
	}
}

func (m *Manager) expireInMemory(now time.Time) int {
	m.mu.RLock()
	var idle []*Session
	for _, s := range m.sessions {
		if now.Sub(s.LastActivity()) >= m.idleTimeout() {
			idle = append(idle, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range idle {
		m.expire(m.ctx, s)
	}
	return len(idle)
}

func (m *Manager) expire(ctx context.Context, s *Session) {
	if s.Closed() {
		return
	}
	log.Printf("[IDLE] Closing session %s after %s without input", s.ID, time.Since(s.LastActivity()).Round(time.Second))
	defer s.Close()

	if m.rdb == nil {
		return
	}
	payload := map[string]interface{}{"type": "session_expired", "session_id": s.ID, "scene": s.Scene.Name}
	b, _ := json.Marshal(payload)
	if n, err := m.rdb.Publish(ctx, SessionEventsChannel, b).Result(); err != nil {
		log.Printf("[IDLE] publish expiry failed: session=%s err=%v", s.ID, err)
	} else {
		log.Printf("[IDLE] published expiry: session=%s subscribers=%d", s.ID, n)
	}
}
