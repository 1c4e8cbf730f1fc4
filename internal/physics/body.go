package physics

import "github.com/pinfall/backend/internal/world"

// Body is one dynamic sphere
type Body struct {
	ID          world.BodyID `json:"id"`
	Position    world.Vec3   `json:"position"`
	Velocity    world.Vec3   `json:"velocity"`
	Radius      float64      `json:"radius"`
	Mass        float64      `json:"mass"`
	Restitution float64      `json:"restitution"`
}

// Pin is a static cylinder whose axis runs along Z
type Pin struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Radius      float64 `json:"radius"`
	Restitution float64 `json:"restitution"`
}

// Wall is a static axis-aligned box
type Wall struct {
	Name        string     `json:"name"`
	Min         world.Vec3 `json:"min"`
	Max         world.Vec3 `json:"max"`
	Restitution float64    `json:"restitution"`
}

// CollisionEvent records a contact for the frame that produced it
type CollisionEvent struct {
	Type     string       `json:"type"` // "pin", "wall", "body"
	BodyID   world.BodyID `json:"body_id"`
	TargetID int          `json:"target_id"` // pin index, wall index or body id
	Speed    float64      `json:"speed"`     // normal impact speed
}

// BodyState is a read-only view used for frame snapshots
type BodyState struct {
	ID       world.BodyID `json:"id"`
	Position world.Vec3   `json:"position"`
	Velocity world.Vec3   `json:"velocity"`
	Radius   float64      `json:"radius"`
}
