package scene

import (
	"fmt"

	"github.com/pinfall/backend/internal/input"
	"github.com/pinfall/backend/internal/physics"
	"github.com/pinfall/backend/internal/spawn"
	"github.com/pinfall/backend/internal/world"
)

const (
	wallThickness = 0.25
	glassGap      = 0.5 // half depth between front and back glass
)

// board describes the parameters the two variants differ in
type board struct {
	halfWidth   float64
	top         float64
	bottom      float64
	pinTop      float64
	pinRows     int
	pinSpacing  float64
	pinRadius   float64
	pinJitter   float64
	pinSeed     uint64
	slots       int
	dividerLow  float64
	dividerHigh float64
}

func classic() *Scene {
	b := board{
		halfWidth:   4,
		top:         10,
		bottom:      -1.5,
		pinTop:      6,
		pinRows:     6,
		pinSpacing:  1,
		pinRadius:   0.1,
		slots:       8,
		dividerLow:  -1.5,
		dividerHigh: 0,
	}
	s := b.build("classic")
	s.SpawnHeight = 8
	s.Columns = map[input.Trigger]float64{
		input.TriggerLeft:   -1.5,
		input.TriggerCenter: 0,
		input.TriggerRight:  1.5,
	}
	s.Spawn = spawn.Config{
		Radius:      0.25,
		Mass:        1,
		Restitution: 0.6,
		Threshold:   -2,
		ImpulseMin:  0.05,
		ImpulseMax:  0.3,
	}
	return s
}

func deepWell() *Scene {
	b := board{
		halfWidth:   6,
		top:         18,
		bottom:      -15,
		pinTop:      12,
		pinRows:     16,
		pinSpacing:  1.4,
		pinRadius:   0.12,
		pinJitter:   0.15,
		pinSeed:     7,
		slots:       12,
		dividerLow:  -15,
		dividerHigh: -11,
	}
	s := b.build("deepwell")
	s.SpawnHeight = 15
	s.Columns = map[input.Trigger]float64{
		input.TriggerLeft:   -3,
		input.TriggerCenter: 0,
		input.TriggerRight:  3,
	}
	s.Spawn = spawn.Config{
		Radius:      0.3,
		Mass:        2,
		Restitution: 0.5,
		Threshold:   -25,
		ImpulseMin:  0.1,
		ImpulseMax:  0.6,
	}
	return s
}

func (b board) build(name string) *Scene {
	s := &Scene{
		Name:    name,
		Gravity: physics.DefaultGravity,
		Materials: map[string]Material{
			"wall":   {Color: "#8a8f98", Alpha: 1, Restitution: physics.DefaultWallRestitution},
			"glass":  {Color: "#cfe8ff", Alpha: 0.15, Restitution: physics.DefaultWallRestitution},
			"pin":    {Color: "#f2c14e", Alpha: 1, Restitution: physics.DefaultPinRestitution},
			"sphere": {Color: "#e4572e", Alpha: 1},
		},
	}

	w := b.halfWidth
	s.Walls = []physics.Wall{
		{Name: "left", Min: world.NewVec3(-w-wallThickness, b.bottom, -glassGap), Max: world.NewVec3(-w, b.top, glassGap), Restitution: physics.DefaultWallRestitution},
		{Name: "right", Min: world.NewVec3(w, b.bottom, -glassGap), Max: world.NewVec3(w+wallThickness, b.top, glassGap), Restitution: physics.DefaultWallRestitution},
		{Name: "back", Min: world.NewVec3(-w, b.bottom, -glassGap-wallThickness), Max: world.NewVec3(w, b.top, -glassGap), Restitution: physics.DefaultWallRestitution},
		{Name: "front", Min: world.NewVec3(-w, b.bottom, glassGap), Max: world.NewVec3(w, b.top, glassGap+wallThickness), Restitution: physics.DefaultWallRestitution},
	}

	slotWidth := 2 * w / float64(b.slots)
	var caps []physics.Pin
	for i := 0; i < b.slots; i++ {
		minX := -w + float64(i)*slotWidth
		s.Slots = append(s.Slots, Slot{Index: i, MinX: minX, MaxX: minX + slotWidth})
		if i == 0 {
			continue
		}
		s.Walls = append(s.Walls, physics.Wall{
			Name:        fmt.Sprintf("divider-%d", i),
			Min:         world.NewVec3(minX-0.03, b.dividerLow, -glassGap),
			Max:         world.NewVec3(minX+0.03, b.dividerHigh, glassGap),
			Restitution: physics.DefaultWallRestitution,
		})
		// a rounded cap so nothing can come to rest on a divider
		caps = append(caps, physics.Pin{X: minX, Y: b.dividerHigh, Radius: 0.03, Restitution: physics.DefaultWallRestitution})
	}

	s.Pins = append(b.pins(), caps...)
	return s
}

// pins lays out staggered rows. With a jitter the offsets come from a
// generator seeded by pinSeed, so a scene always has the same layout
func (b board) pins() []physics.Pin {
	var rng spawn.Rand
	if b.pinJitter > 0 {
		rng = spawn.NewRand(b.pinSeed)
	}

	var pins []physics.Pin
	for row := 0; row < b.pinRows; row++ {
		y := b.pinTop - float64(row)*b.pinSpacing
		// outermost pins stay a full spacing from the side walls so a
		// sphere cannot wedge between pin and wall
		inset := b.pinSpacing
		if row%2 == 1 {
			inset += b.pinSpacing / 2
		}
		for x := -b.halfWidth + inset; x <= b.halfWidth-inset+1e-9; x += b.pinSpacing {
			px, py := x, y
			if rng != nil {
				px += (2*rng.Float64() - 1) * b.pinJitter
				py += (2*rng.Float64() - 1) * b.pinJitter
			}
			pins = append(pins, physics.Pin{X: px, Y: py, Radius: b.pinRadius, Restitution: physics.DefaultPinRestitution})
		}
	}
	return pins
}
