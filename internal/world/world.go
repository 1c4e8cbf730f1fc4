package world

import (
	"errors"
	"math"
)

var (
	ErrBodyNotFound = errors.New("body not found")
	ErrHookNotFound = errors.New("pre-step hook not found")
	ErrEngineClosed = errors.New("engine closed")
)

// BodyID identifies a body inside a World
type BodyID uint64

// HookID identifies a registered pre-step hook
type HookID uint64

// Vec3 is a 3D vector. Y is up
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Plus(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Minus(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Times(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Magnitude() float64 {
	return math.Sqrt(v.Dot(v))
}

// BodyConfig holds the physical properties of a spawned sphere
type BodyConfig struct {
	Radius      float64 `json:"radius"`
	Mass        float64 `json:"mass"`
	Restitution float64 `json:"restitution"`
}

// HookFunc runs once per simulation step, before integration
type HookFunc func()

// World is the render/physics boundary the spawn lifecycle talks to.
// Implementations are not required to be safe for concurrent use; callers
// drive a World from a single loop goroutine
type World interface {
	CreateSphereBody(position Vec3, cfg BodyConfig) (BodyID, error)
	RemoveBody(id BodyID) error
	ApplyImpulse(id BodyID, impulse Vec3) error
	RegisterPreStepHook(fn HookFunc) HookID
	UnregisterPreStepHook(id HookID) error
	GetPosition(id BodyID) (Vec3, error)

	// Step advances the simulation by dt seconds. Pre-step hooks run first
	Step(dt float64)
}
