package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pinfall/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// DropEventsChannel carries every recorded drop across processes
const DropEventsChannel = "drop_events"

// DropEvent is the payload published on DropEventsChannel
type DropEvent struct {
	Origin string      `json:"origin"`
	Drop   models.Drop `json:"drop"`
}

// DropRecorder writes drops to postgres and redis off the session loop.
// Either store may be nil
type DropRecorder struct {
	db     *sqlx.DB
	rdb    *redis.Client
	origin string
	queue  chan models.Drop
}

func NewDropRecorder(db *sqlx.DB, rdb *redis.Client, origin string, queueSize int) *DropRecorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &DropRecorder{
		db:     db,
		rdb:    rdb,
		origin: origin,
		queue:  make(chan models.Drop, queueSize),
	}
}

// RecordDrop queues d for persistence. It never blocks
func (r *DropRecorder) RecordDrop(d models.Drop) {
	select {
	case r.queue <- d:
	default:
		log.Printf("[DB] Drop queue full, discarding drop for session %s body %d", d.SessionID, d.BodyID)
	}
}

// Start runs the persistence worker until ctx is cancelled
func (r *DropRecorder) Start(ctx context.Context) {
	log.Println("[DB] Drop recorder started")
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Println("[DB] Drop recorder stopping")
				return
			case d := <-r.queue:
				r.persist(ctx, d)
			}
		}
	}()
}

func (r *DropRecorder) persist(ctx context.Context, d models.Drop) {
	if r.db != nil {
		err := r.db.QueryRowx(`INSERT INTO drops (session_id, scene, body_id, trigger, spawn_x, exit_x, slot, frames, lifetime_ms, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
			d.SessionID, d.Scene, d.BodyID, d.Trigger, d.SpawnX, d.ExitX, d.Slot, d.Frames, d.LifetimeMS, d.CreatedAt).Scan(&d.ID)
		if err != nil {
			log.Printf("[DB] Failed to record drop for session %s: %v", d.SessionID, err)
		}
	}

	if r.rdb == nil {
		return
	}
	if err := r.rdb.HIncrBy(ctx, histogramKey(d.Scene), strconv.Itoa(d.Slot), 1).Err(); err != nil {
		log.Printf("[REDIS] Failed to update slot histogram for %s: %v", d.Scene, err)
	}
	b, err := json.Marshal(DropEvent{Origin: r.origin, Drop: d})
	if err != nil {
		return
	}
	if err := r.rdb.Publish(ctx, DropEventsChannel, b).Err(); err != nil {
		log.Printf("[REDIS] Failed to publish drop event: %v", err)
	}
}

func histogramKey(sceneName string) string {
	return "slot_histogram:" + sceneName
}

// SlotHistogram returns drop counts per slot for a scene
func SlotHistogram(ctx context.Context, rdb *redis.Client, sceneName string) (map[int]int64, error) {
	raw, err := rdb.HGetAll(ctx, histogramKey(sceneName)).Result()
	if err != nil {
		return nil, fmt.Errorf("read slot histogram: %w", err)
	}
	counts := make(map[int]int64, len(raw))
	for k, v := range raw {
		slot, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		counts[slot] = n
	}
	return counts, nil
}

// MaxRecentDrops caps a single drop history read
const MaxRecentDrops = 500

// RecentDrops returns the newest drops, optionally limited to one session
func RecentDrops(db *sqlx.DB, sessionID string, limit int) ([]models.Drop, error) {
	limit = recentDropsLimit(limit)
	drops := []models.Drop{}
	var err error
	if sessionID != "" {
		err = db.Select(&drops, `SELECT id, session_id, scene, body_id, trigger, spawn_x, exit_x, slot, frames, lifetime_ms, created_at FROM drops WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2`, sessionID, limit)
	} else {
		err = db.Select(&drops, `SELECT id, session_id, scene, body_id, trigger, spawn_x, exit_x, slot, frames, lifetime_ms, created_at FROM drops ORDER BY created_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query drops: %w", err)
	}
	return drops, nil
}

func recentDropsLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > MaxRecentDrops {
		return MaxRecentDrops
	}
	return limit
}

// saveSessionToRedis persists a session summary to Redis
func saveSessionToRedis(ctx context.Context, rdb *redis.Client, st Stats, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return rdb.SetEx(ctx, "session:"+st.ID+":state", data, ttl).Err()
}
