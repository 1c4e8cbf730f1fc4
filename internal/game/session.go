package game

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pinfall/backend/internal/input"
	"github.com/pinfall/backend/internal/models"
	"github.com/pinfall/backend/internal/physics"
	"github.com/pinfall/backend/internal/scene"
	"github.com/pinfall/backend/internal/spawn"
	"github.com/pinfall/backend/internal/world"
)

var ErrSessionClosed = errors.New("session closed")

// Broadcaster delivers session messages to connected clients
type Broadcaster interface {
	BroadcastToSession(sessionID string, message interface{})
	CloseRoom(sessionID string)
}

// Recorder persists finished drops. RecordDrop must not block the caller
type Recorder interface {
	RecordDrop(drop models.Drop)
}

// SessionOptions carries the per-session knobs taken from config
type SessionOptions struct {
	TickRate    int
	MaxBodies   int
	InboxSize   int
	Seed        uint64
	PointerUp   bool
	Broadcaster Broadcaster
	Recorder    Recorder
}

// Session is one browser's board. Router, lifecycle and engine are only
// touched from the Run goroutine; other goroutines talk to it through Input
// and Close
type Session struct {
	ID        string
	Scene     *scene.Scene
	CreatedAt time.Time

	engine   *physics.Engine
	feed     *input.Feed
	router   *input.Router
	bodies   *spawn.Lifecycle
	triggers map[world.BodyID]input.Trigger

	inbox     chan input.DeviceEvent
	done      chan struct{}
	closeOnce sync.Once
	stopOnce  sync.Once

	tick        time.Duration
	maxBodies   int
	broadcaster Broadcaster
	recorder    Recorder

	frame        uint64
	hadBodies    bool
	lastActivity atomic.Int64
	spawned      atomic.Int64
	dropped      atomic.Int64
}

// Message types sent to the browser
const (
	MsgFrame         = "frame"
	MsgSpawned       = "spawned"
	MsgDrop          = "drop"
	MsgError         = "error"
	MsgSessionClosed = "session_closed"
)

// NewSession builds the engine for sc and wires input to spawning
func NewSession(id string, sc *scene.Scene, opts SessionOptions) (*Session, error) {
	if opts.TickRate <= 0 {
		opts.TickRate = 60
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 64
	}

	cfg := sc.Spawn
	if opts.Seed != 0 {
		cfg.Seed = opts.Seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		ID:          id,
		Scene:       sc,
		CreatedAt:   time.Now(),
		engine:      sc.NewEngine(),
		feed:        input.NewFeed(),
		router:      input.NewRouter(input.WithPointerUp(opts.PointerUp)),
		triggers:    make(map[world.BodyID]input.Trigger),
		inbox:       make(chan input.DeviceEvent, opts.InboxSize),
		done:        make(chan struct{}),
		tick:        time.Second / time.Duration(opts.TickRate),
		maxBodies:   opts.MaxBodies,
		broadcaster: opts.Broadcaster,
		recorder:    opts.Recorder,
	}
	s.bodies = spawn.New(s.engine, cfg)
	s.bodies.OnDispose(s.onDispose)

	s.router.Attach(s.feed)
	for _, t := range input.Triggers {
		s.router.Subscribe(t, func(input.Trigger) { s.drop(t) })
	}
	s.touch()
	return s, nil
}

// Input queues a device event for the loop. It never blocks; false means
// the event was dropped
func (s *Session) Input(ev input.DeviceEvent) bool {
	if s.Closed() {
		return false
	}
	select {
	case s.inbox <- ev:
		s.touch()
		return true
	default:
		log.Printf("[SESSION] %s inbox full, dropping %s %s event", s.ID, ev.Device, ev.Kind)
		return false
	}
}

// Run drives the session until ctx is cancelled or Close is called
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	defer s.shutdown()

	log.Printf("[SESSION] %s started (scene=%s tick=%s)", s.ID, s.Scene.Name, s.tick)
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.done:
			return
		case ev := <-s.inbox:
			s.feed.Emit(ev)
		case <-ticker.C:
			s.step()
		}
	}
}

// Close stops the loop. Safe to call more than once and from any goroutine
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Done is closed once the session has been asked to stop
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// LastActivity returns when the session last received input
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// Stats is a point-in-time summary safe to read from any goroutine
type Stats struct {
	ID        string    `json:"id"`
	Scene     string    `json:"scene"`
	CreatedAt time.Time `json:"created_at"`
	Spawned   int64     `json:"spawned"`
	Dropped   int64     `json:"dropped"`
	Closed    bool      `json:"closed"`
}

func (s *Session) Stats() Stats {
	return Stats{
		ID:        s.ID,
		Scene:     s.Scene.Name,
		CreatedAt: s.CreatedAt,
		Spawned:   s.spawned.Load(),
		Dropped:   s.dropped.Load(),
		Closed:    s.Closed(),
	}
}

// minContactSpeed filters resting contacts out of frame broadcasts
const minContactSpeed = 0.5

func (s *Session) step() {
	s.engine.Step(s.tick.Seconds())
	s.frame++

	snapshot := s.engine.Snapshot()
	if len(snapshot) == 0 && !s.hadBodies {
		return
	}
	s.hadBodies = len(snapshot) > 0
	s.broadcast(MsgFrame, map[string]interface{}{
		"frame":    s.frame,
		"bodies":   snapshot,
		"contacts": s.contacts(),
	})
}

// contacts copies the audible collisions of the last step; the engine reuses
// its event buffer
func (s *Session) contacts() []physics.CollisionEvent {
	out := make([]physics.CollisionEvent, 0, len(s.engine.Events))
	for _, ev := range s.engine.Events {
		if ev.Speed >= minContactSpeed {
			out = append(out, ev)
		}
	}
	return out
}

func (s *Session) drop(t input.Trigger) {
	if s.maxBodies > 0 && s.bodies.Live() >= s.maxBodies {
		log.Printf("[SPAWN] %s at body limit (%d), ignoring %s", s.ID, s.maxBodies, t)
		s.broadcast(MsgError, map[string]interface{}{"message": "body limit reached"})
		return
	}

	b, err := s.bodies.SpawnDefault(s.Scene.SpawnPosition(t))
	if err != nil {
		log.Printf("[SPAWN] %s failed to spawn for %s: %v", s.ID, t, err)
		return
	}
	s.triggers[b.ID] = t
	s.spawned.Add(1)

	s.broadcast(MsgSpawned, map[string]interface{}{
		"body_id":  b.ID,
		"trigger":  t,
		"position": b.Origin,
		"impulse":  b.Impulse,
	})
}

func (s *Session) onDispose(d spawn.Disposal) {
	t := s.triggers[d.Body.ID]
	delete(s.triggers, d.Body.ID)
	s.dropped.Add(1)

	drop := models.Drop{
		SessionID:  s.ID,
		Scene:      s.Scene.Name,
		BodyID:     int64(d.Body.ID),
		Trigger:    t.String(),
		SpawnX:     d.Body.Origin.X,
		ExitX:      d.Position.X,
		Slot:       s.Scene.SlotFor(d.Position.X),
		Frames:     d.Frames,
		LifetimeMS: d.Lifetime.Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if s.recorder != nil {
		s.recorder.RecordDrop(drop)
	}
	s.broadcast(MsgDrop, drop)
}

// shutdown releases everything the loop owns. It runs on the loop
// goroutine after the loop has exited
func (s *Session) shutdown() {
	s.stopOnce.Do(func() {
		s.router.DisposeAll()
		s.bodies.Close()
		s.engine.Close()
		s.triggers = map[world.BodyID]input.Trigger{}

		s.broadcast(MsgSessionClosed, map[string]interface{}{
			"session_id": s.ID,
			"spawned":    s.spawned.Load(),
			"dropped":    s.dropped.Load(),
		})
		if s.broadcaster != nil {
			s.broadcaster.CloseRoom(s.ID)
		}
		log.Printf("[SESSION] %s closed (spawned=%d dropped=%d)", s.ID, s.spawned.Load(), s.dropped.Load())
	})
}

func (s *Session) broadcast(msgType string, data interface{}) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToSession(s.ID, map[string]interface{}{
		"type": msgType,
		"data": data,
	})
}
