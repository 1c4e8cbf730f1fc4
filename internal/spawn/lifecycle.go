package spawn

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pinfall/backend/internal/world"
)

var ErrClosed = errors.New("lifecycle closed")

// State of a tracked body
type State uint8

const (
	StateLive State = iota
	StateDisposed
)

func (s State) String() string {
	if s == StateLive {
		return "live"
	}
	return "disposed"
}

// TrackedBody is one spawned sphere and its pre-step hook
type TrackedBody struct {
	ID        world.BodyID
	Hook      world.HookID
	Origin    world.Vec3
	Impulse   world.Vec3
	Threshold float64
	SpawnedAt time.Time

	// Frames counts disposal checks made while live
	Frames       int
	LastPosition world.Vec3

	state State
}

func (b *TrackedBody) State() State {
	return b.state
}

func (b *TrackedBody) Live() bool {
	return b.state == StateLive
}

// Disposal is reported to OnDispose observers
type Disposal struct {
	Body     *TrackedBody
	Position world.Vec3
	Frames   int
	Lifetime time.Duration
}

// Lifecycle spawns spheres into a World and releases each one exactly once
// when it falls below its threshold. Like the World it drives, it is used
// from a single loop goroutine
type Lifecycle struct {
	world     world.World
	cfg       Config
	rng       Rand
	now       func() time.Time
	bodies    map[world.BodyID]*TrackedBody
	onDispose []func(Disposal)
	closed    bool
}

// Option configures a Lifecycle
type Option func(*Lifecycle)

// WithRand overrides the generator derived from Config.Seed
func WithRand(r Rand) Option {
	return func(l *Lifecycle) { l.rng = r }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) { l.now = now }
}

// New creates a Lifecycle that spawns into w
func New(w world.World, cfg Config, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		world:  w,
		cfg:    cfg,
		now:    time.Now,
		bodies: make(map[world.BodyID]*TrackedBody),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.rng == nil {
		l.rng = NewRand(cfg.Seed)
	}
	return l
}

// Config returns the default spawn config
func (l *Lifecycle) Config() Config {
	return l.cfg
}

// OnDispose registers an observer for threshold disposals
func (l *Lifecycle) OnDispose(fn func(Disposal)) {
	l.onDispose = append(l.onDispose, fn)
}

// SpawnDefault spawns with the lifecycle's own config
func (l *Lifecycle) SpawnDefault(position world.Vec3) (*TrackedBody, error) {
	return l.Spawn(position, l.cfg)
}

// Spawn creates a sphere at position, gives it one randomized horizontal
// impulse and registers its disposal check as a pre-step hook
func (l *Lifecycle) Spawn(position world.Vec3, cfg Config) (*TrackedBody, error) {
	if l.closed {
		return nil, ErrClosed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	id, err := l.world.CreateSphereBody(position, cfg.body())
	if err != nil {
		return nil, fmt.Errorf("create sphere: %w", err)
	}

	impulse := world.NewVec3(
		jitter(l.rng.Float64(), cfg.ImpulseMin, cfg.ImpulseMax),
		0,
		jitter(l.rng.Float64(), cfg.ImpulseMin, cfg.ImpulseMax),
	)
	if err := l.world.ApplyImpulse(id, impulse); err != nil {
		if rerr := l.world.RemoveBody(id); rerr != nil {
			log.Printf("[SPAWN] Failed to roll back body %d: %v", id, rerr)
		}
		return nil, fmt.Errorf("apply impulse: %w", err)
	}

	b := &TrackedBody{
		ID:           id,
		Origin:       position,
		Impulse:      impulse,
		Threshold:    cfg.Threshold,
		SpawnedAt:    l.now(),
		LastPosition: position,
	}
	b.Hook = l.world.RegisterPreStepHook(func() { l.Check(b) })
	l.bodies[id] = b

	return b, nil
}

// Check runs the disposal predicate for b once. It reports whether this
// call disposed the body; on an already disposed body it does nothing
func (l *Lifecycle) Check(b *TrackedBody) bool {
	if b == nil || b.state != StateLive {
		return false
	}
	b.Frames++

	pos, err := l.world.GetPosition(b.ID)
	if err != nil {
		// removed behind our back; release the hook but report nothing
		log.Printf("[SPAWN] Body %d vanished from world: %v", b.ID, err)
		l.release(b)
		return false
	}
	b.LastPosition = pos

	if pos.Y >= b.Threshold {
		return false
	}

	l.release(b)
	if err := l.world.RemoveBody(b.ID); err != nil && !errors.Is(err, world.ErrBodyNotFound) {
		log.Printf("[SPAWN] Failed to remove body %d: %v", b.ID, err)
	}

	d := Disposal{Body: b, Position: pos, Frames: b.Frames, Lifetime: l.now().Sub(b.SpawnedAt)}
	for _, fn := range l.onDispose {
		fn(d)
	}
	return true
}

// release marks b disposed, drops its hook and stops tracking it
func (l *Lifecycle) release(b *TrackedBody) {
	b.state = StateDisposed
	if err := l.world.UnregisterPreStepHook(b.Hook); err != nil && !errors.Is(err, world.ErrHookNotFound) {
		log.Printf("[SPAWN] Failed to unregister hook for body %d: %v", b.ID, err)
	}
	delete(l.bodies, b.ID)
}

// Get returns the live body with the given id
func (l *Lifecycle) Get(id world.BodyID) (*TrackedBody, bool) {
	b, ok := l.bodies[id]
	return b, ok
}

// Live returns the number of live bodies
func (l *Lifecycle) Live() int {
	return len(l.bodies)
}

// Bodies returns the live bodies in no particular order
func (l *Lifecycle) Bodies() []*TrackedBody {
	out := make([]*TrackedBody, 0, len(l.bodies))
	for _, b := range l.bodies {
		out = append(out, b)
	}
	return out
}

// Close deregisters every live body's hook. Bodies stay in the world, which
// is being torn down by its owner. Observers are not notified
func (l *Lifecycle) Close() {
	if l.closed {
		return
	}
	l.closed = true
	for _, b := range l.bodies {
		l.release(b)
	}
}
