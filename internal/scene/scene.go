package scene

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pinfall/backend/internal/input"
	"github.com/pinfall/backend/internal/physics"
	"github.com/pinfall/backend/internal/spawn"
	"github.com/pinfall/backend/internal/world"
)

var ErrUnknownScene = errors.New("unknown scene")

// Material is passed through to the browser, which owns rendering
type Material struct {
	Color       string  `json:"color"`
	Alpha       float64 `json:"alpha"`
	Restitution float64 `json:"restitution"`
}

// Slot is one scoring bin at the bottom of the board
type Slot struct {
	Index int     `json:"index"`
	MinX  float64 `json:"min_x"`
	MaxX  float64 `json:"max_x"`
}

// Scene describes a board: static geometry, spawn columns and the spawn
// config for dropped spheres
type Scene struct {
	Name        string                    `json:"name"`
	Gravity     float64                   `json:"gravity"`
	Walls       []physics.Wall            `json:"walls"`
	Pins        []physics.Pin             `json:"pins"`
	Slots       []Slot                    `json:"slots"`
	SpawnHeight float64                   `json:"spawn_height"`
	Columns     map[input.Trigger]float64 `json:"columns"`
	Materials   map[string]Material       `json:"materials"`
	Spawn       spawn.Config              `json:"spawn"`
}

type builder func() *Scene

var registry = map[string]builder{
	"classic":  classic,
	"deepwell": deepWell,
}

// Names lists the built-in scenes
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build returns a fresh copy of the named scene
func Build(name string) (*Scene, error) {
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScene, name)
	}
	return b(), nil
}

// NewEngine returns an engine with this scene's gravity and geometry
func (s *Scene) NewEngine() *physics.Engine {
	e := physics.NewEngine(physics.WithGravity(s.Gravity))
	s.Install(e)
	return e
}

// Install adds the scene's walls and pins to e
func (s *Scene) Install(e *physics.Engine) {
	for _, w := range s.Walls {
		e.AddWall(w)
	}
	for _, p := range s.Pins {
		e.AddPin(p)
	}
}

// SpawnPosition returns where a sphere for t is dropped
func (s *Scene) SpawnPosition(t input.Trigger) world.Vec3 {
	return world.NewVec3(s.Columns[t], s.SpawnHeight, 0)
}

// SlotFor returns the index of the slot under x, clamped to the board
func (s *Scene) SlotFor(x float64) int {
	if len(s.Slots) == 0 {
		return -1
	}
	if x < s.Slots[0].MinX {
		return s.Slots[0].Index
	}
	for _, sl := range s.Slots {
		if x >= sl.MinX && x < sl.MaxX {
			return sl.Index
		}
	}
	return s.Slots[len(s.Slots)-1].Index
}
