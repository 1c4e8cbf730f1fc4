package physics

// Simulation constants. Distances are scene units, time is seconds
const (
	DefaultGravity = -9.81

	// Substeps per Step; keeps fast spheres from tunnelling through pins
	Substeps = 4

	// Separation added after resolving a contact
	ContactSlop = 1e-4

	// Speeds below this after a bounce are zeroed along the normal
	MinBounceSpeed = 0.05

	DefaultWallRestitution = 0.6
	DefaultPinRestitution  = 0.5
)
