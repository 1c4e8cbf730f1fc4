package spawn

import (
	"errors"

	"github.com/pinfall/backend/internal/world"
)

type fakeHook struct {
	id world.HookID
	fn world.HookFunc
}

// fakeWorld moves nothing on its own; tests set positions directly.
type fakeWorld struct {
	positions   map[world.BodyID]world.Vec3
	impulses    map[world.BodyID]world.Vec3
	hooks       []fakeHook
	nextBody    world.BodyID
	nextHook    world.HookID
	removed     []world.BodyID
	failCreate  error
	fallPerStep float64
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		positions: make(map[world.BodyID]world.Vec3),
		impulses:  make(map[world.BodyID]world.Vec3),
	}
}

func (w *fakeWorld) CreateSphereBody(p world.Vec3, _ world.BodyConfig) (world.BodyID, error) {
	if w.failCreate != nil {
		return 0, w.failCreate
	}
	w.nextBody++
	w.positions[w.nextBody] = p
	return w.nextBody, nil
}

func (w *fakeWorld) RemoveBody(id world.BodyID) error {
	if _, ok := w.positions[id]; !ok {
		return world.ErrBodyNotFound
	}
	delete(w.positions, id)
	w.removed = append(w.removed, id)
	return nil
}

func (w *fakeWorld) ApplyImpulse(id world.BodyID, v world.Vec3) error {
	if _, ok := w.positions[id]; !ok {
		return world.ErrBodyNotFound
	}
	w.impulses[id] = w.impulses[id].Plus(v)
	return nil
}

func (w *fakeWorld) RegisterPreStepHook(fn world.HookFunc) world.HookID {
	w.nextHook++
	w.hooks = append(w.hooks, fakeHook{id: w.nextHook, fn: fn})
	return w.nextHook
}

func (w *fakeWorld) UnregisterPreStepHook(id world.HookID) error {
	for i, h := range w.hooks {
		if h.id == id {
			w.hooks = append(w.hooks[:i:i], w.hooks[i+1:]...)
			return nil
		}
	}
	return world.ErrHookNotFound
}

func (w *fakeWorld) GetPosition(id world.BodyID) (world.Vec3, error) {
	p, ok := w.positions[id]
	if !ok {
		return world.Vec3{}, errors.New("fake: no such body")
	}
	return p, nil
}

// Step runs hooks, then drops every body by fallPerStep.
func (w *fakeWorld) Step(float64) {
	hs := make([]fakeHook, len(w.hooks))
	copy(hs, w.hooks)
	for _, h := range hs {
		h.fn()
	}
	for id, p := range w.positions {
		p.Y -= w.fallPerStep
		w.positions[id] = p
	}
}

func (w *fakeWorld) setY(id world.BodyID, y float64) {
	p := w.positions[id]
	p.Y = y
	w.positions[id] = p
}

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }
