package physics

import (
	"math"
	"sort"

	"github.com/pinfall/backend/internal/world"
)

var _ world.World = (*Engine)(nil)

type hook struct {
	id world.HookID
	fn world.HookFunc
}

// Engine is a small in-process world.World: gravity, static pins and walls,
// and sphere-sphere contacts. It is driven from one goroutine
type Engine struct {
	gravity world.Vec3
	bodies  map[world.BodyID]*Body
	pins    []Pin
	walls   []Wall
	hooks   []hook

	nextBody world.BodyID
	nextHook world.HookID
	frame    uint64
	closed   bool

	// Events holds the contacts of the most recent Step. The slice is reused
	Events []CollisionEvent
}

// Option configures an Engine
type Option func(*Engine)

// WithGravity sets the vertical acceleration (negative is down)
func WithGravity(g float64) Option {
	return func(e *Engine) { e.gravity = world.NewVec3(0, g, 0) }
}

// NewEngine creates an empty world with default gravity
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		gravity: world.NewVec3(0, DefaultGravity, 0),
		bodies:  make(map[world.BodyID]*Body),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) AddPin(p Pin) {
	e.pins = append(e.pins, p)
}

func (e *Engine) AddWall(w Wall) {
	e.walls = append(e.walls, w)
}

func (e *Engine) CreateSphereBody(position world.Vec3, cfg world.BodyConfig) (world.BodyID, error) {
	if e.closed {
		return 0, world.ErrEngineClosed
	}
	e.nextBody++
	e.bodies[e.nextBody] = &Body{
		ID:          e.nextBody,
		Position:    position,
		Radius:      cfg.Radius,
		Mass:        cfg.Mass,
		Restitution: cfg.Restitution,
	}
	return e.nextBody, nil
}

func (e *Engine) RemoveBody(id world.BodyID) error {
	if _, ok := e.bodies[id]; !ok {
		return world.ErrBodyNotFound
	}
	delete(e.bodies, id)
	return nil
}

// ApplyImpulse changes the body's velocity by impulse/mass
func (e *Engine) ApplyImpulse(id world.BodyID, impulse world.Vec3) error {
	b, ok := e.bodies[id]
	if !ok {
		return world.ErrBodyNotFound
	}
	b.Velocity = b.Velocity.Plus(impulse.Times(1 / b.Mass))
	return nil
}

func (e *Engine) RegisterPreStepHook(fn world.HookFunc) world.HookID {
	e.nextHook++
	e.hooks = append(e.hooks, hook{id: e.nextHook, fn: fn})
	return e.nextHook
}

func (e *Engine) UnregisterPreStepHook(id world.HookID) error {
	for i, h := range e.hooks {
		if h.id == id {
			e.hooks = append(e.hooks[:i:i], e.hooks[i+1:]...)
			return nil
		}
	}
	return world.ErrHookNotFound
}

func (e *Engine) GetPosition(id world.BodyID) (world.Vec3, error) {
	b, ok := e.bodies[id]
	if !ok {
		return world.Vec3{}, world.ErrBodyNotFound
	}
	return b.Position, nil
}

// Close stops the engine from accepting new bodies
func (e *Engine) Close() {
	e.closed = true
}

// Frame returns the number of completed steps
func (e *Engine) Frame() uint64 {
	return e.frame
}

// BodyCount returns the number of bodies in the world
func (e *Engine) BodyCount() int {
	return len(e.bodies)
}

// HookCount returns the number of registered pre-step hooks
func (e *Engine) HookCount() int {
	return len(e.hooks)
}

// Snapshot returns every body sorted by id
func (e *Engine) Snapshot() []BodyState {
	out := make([]BodyState, 0, len(e.bodies))
	for _, b := range e.bodies {
		out = append(out, BodyState{ID: b.ID, Position: b.Position, Velocity: b.Velocity, Radius: b.Radius})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Step runs the pre-step hooks, then integrates dt seconds in Substeps
// slices. A hook unregistered by an earlier hook in the same pass does not
// run
func (e *Engine) Step(dt float64) {
	e.Events = e.Events[:0]
	e.runHooks()

	if dt > 0 {
		h := dt / Substeps
		ordered := e.ordered()
		for i := 0; i < Substeps; i++ {
			e.integrate(ordered, h)
		}
	}
	e.frame++
}

func (e *Engine) runHooks() {
	pending := make([]hook, len(e.hooks))
	copy(pending, e.hooks)
	for _, h := range pending {
		if !e.hookRegistered(h.id) {
			continue
		}
		h.fn()
	}
}

func (e *Engine) hookRegistered(id world.HookID) bool {
	for _, h := range e.hooks {
		if h.id == id {
			return true
		}
	}
	return false
}

// ordered returns live bodies sorted by id so contact resolution is
// deterministic
func (e *Engine) ordered() []*Body {
	out := make([]*Body, 0, len(e.bodies))
	for _, b := range e.bodies {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (e *Engine) integrate(bodies []*Body, h float64) {
	for _, b := range bodies {
		b.Velocity = b.Velocity.Plus(e.gravity.Times(h))
		b.Position = b.Position.Plus(b.Velocity.Times(h))
	}

	for _, b := range bodies {
		for i := range e.pins {
			e.resolveBodyPin(b, i)
		}
		for i := range e.walls {
			e.resolveBodyWall(b, i)
		}
	}

	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			e.resolveBodyBody(bodies[i], bodies[j])
		}
	}
}

// bounce reflects the normal component of v scaled by restitution and
// keeps the tangent component. n points away from the obstacle
func bounce(v, n world.Vec3, restitution float64) (world.Vec3, float64) {
	vn := v.Dot(n)
	if vn >= 0 {
		return v, 0
	}
	normalComp := n.Times(vn)
	tangentComp := v.Minus(normalComp)
	out := -vn * restitution
	if out < MinBounceSpeed {
		out = 0
	}
	return tangentComp.Plus(n.Times(out)), -vn
}

func (e *Engine) resolveBodyPin(b *Body, idx int) {
	pin := &e.pins[idx]
	d := world.NewVec3(b.Position.X-pin.X, b.Position.Y-pin.Y, 0)
	minDist := b.Radius + pin.Radius
	dist := d.Magnitude()
	if dist >= minDist {
		return
	}

	var n world.Vec3
	if dist == 0 {
		n = world.NewVec3(0, 1, 0)
	} else {
		n = d.Times(1 / dist)
	}

	b.Position.X = pin.X + n.X*(minDist+ContactSlop)
	b.Position.Y = pin.Y + n.Y*(minDist+ContactSlop)

	var speed float64
	b.Velocity, speed = bounce(b.Velocity, n, math.Min(b.Restitution, pin.Restitution))
	if speed > 0 {
		e.Events = append(e.Events, CollisionEvent{Type: "pin", BodyID: b.ID, TargetID: idx, Speed: speed})
	}
}

func (e *Engine) resolveBodyWall(b *Body, idx int) {
	w := &e.walls[idx]
	closest := world.NewVec3(
		clamp(b.Position.X, w.Min.X, w.Max.X),
		clamp(b.Position.Y, w.Min.Y, w.Max.Y),
		clamp(b.Position.Z, w.Min.Z, w.Max.Z),
	)
	d := b.Position.Minus(closest)
	dist := d.Magnitude()
	if dist >= b.Radius {
		return
	}

	var n world.Vec3
	if dist == 0 {
		// centre inside the box: leave through the nearest face
		n, dist = exitNormal(b.Position, w)
		b.Position = b.Position.Plus(n.Times(dist + b.Radius + ContactSlop))
	} else {
		n = d.Times(1 / dist)
		b.Position = closest.Plus(n.Times(b.Radius + ContactSlop))
	}

	var speed float64
	b.Velocity, speed = bounce(b.Velocity, n, math.Min(b.Restitution, w.Restitution))
	if speed > 0 {
		e.Events = append(e.Events, CollisionEvent{Type: "wall", BodyID: b.ID, TargetID: idx, Speed: speed})
	}
}

func (e *Engine) resolveBodyBody(a, b *Body) {
	d := b.Position.Minus(a.Position)
	minDist := a.Radius + b.Radius
	dist := d.Magnitude()
	if dist >= minDist {
		return
	}

	n := world.NewVec3(0, 1, 0)
	if dist > 0 {
		n = d.Times(1 / dist)
	}

	invA, invB := 1/a.Mass, 1/b.Mass
	overlap := minDist - dist + ContactSlop
	a.Position = a.Position.Minus(n.Times(overlap * invA / (invA + invB)))
	b.Position = b.Position.Plus(n.Times(overlap * invB / (invA + invB)))

	closing := b.Velocity.Minus(a.Velocity).Dot(n)
	if closing >= 0 {
		return
	}
	restitution := math.Min(a.Restitution, b.Restitution)
	j := -(1 + restitution) * closing / (invA + invB)
	a.Velocity = a.Velocity.Minus(n.Times(j * invA))
	b.Velocity = b.Velocity.Plus(n.Times(j * invB))

	e.Events = append(e.Events, CollisionEvent{Type: "body", BodyID: a.ID, TargetID: int(b.ID), Speed: -closing})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// exitNormal returns the outward normal of the face of w nearest to p and
// the distance to it
func exitNormal(p world.Vec3, w *Wall) (world.Vec3, float64) {
	faces := []struct {
		n    world.Vec3
		dist float64
	}{
		{world.NewVec3(-1, 0, 0), p.X - w.Min.X},
		{world.NewVec3(1, 0, 0), w.Max.X - p.X},
		{world.NewVec3(0, -1, 0), p.Y - w.Min.Y},
		{world.NewVec3(0, 1, 0), w.Max.Y - p.Y},
		{world.NewVec3(0, 0, -1), p.Z - w.Min.Z},
		{world.NewVec3(0, 0, 1), w.Max.Z - p.Z},
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.dist < best.dist {
			best = f
		}
	}
	return best.n, best.dist
}
