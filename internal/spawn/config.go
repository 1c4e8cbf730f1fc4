package spawn

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/pinfall/backend/internal/world"
)

var ErrInvalidConfig = errors.New("invalid spawn config")

// Config describes the sphere a spawn creates and when it is disposed
type Config struct {
	Radius      float64 `json:"radius"`
	Mass        float64 `json:"mass"`
	Restitution float64 `json:"restitution"`

	// Threshold is the Y below which a body is disposed
	Threshold float64 `json:"threshold"`

	// Horizontal impulse jitter magnitude bounds
	ImpulseMin float64 `json:"impulse_min"`
	ImpulseMax float64 `json:"impulse_max"`

	// Seed 0 means unseeded system randomness
	Seed uint64 `json:"seed,omitempty"`
}

func (c Config) Validate() error {
	switch {
	case c.Radius <= 0:
		return fmt.Errorf("%w: radius must be positive", ErrInvalidConfig)
	case c.Mass <= 0:
		return fmt.Errorf("%w: mass must be positive", ErrInvalidConfig)
	case c.Restitution < 0 || c.Restitution > 1:
		return fmt.Errorf("%w: restitution must be in [0,1]", ErrInvalidConfig)
	case c.ImpulseMin < 0 || c.ImpulseMax < c.ImpulseMin:
		return fmt.Errorf("%w: impulse bounds %v..%v", ErrInvalidConfig, c.ImpulseMin, c.ImpulseMax)
	}
	return nil
}

func (c Config) body() world.BodyConfig {
	return world.BodyConfig{Radius: c.Radius, Mass: c.Mass, Restitution: c.Restitution}
}

// Rand produces doubles in [0,1)
type Rand interface {
	Float64() float64
}

// NewRand returns a deterministic generator for a non-zero seed and a
// randomly seeded one otherwise
func NewRand(seed uint64) Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// jitter maps u in [0,1) to a signed magnitude in [min, max]
func jitter(u, min, max float64) float64 {
	v := (2*u - 1) * max
	if v >= 0 && v < min {
		return min
	}
	if v < 0 && v > -min {
		return -min
	}
	return v
}
