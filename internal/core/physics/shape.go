package physics

import "github.com/zeusync/vrhand/internal/core/spatial"

// ShapeDesc describes a collision shape at actor creation time.
type ShapeDesc struct {
	// Name ties the shape to the body it came from, usually a bone name.
	Name  string
	Local spatial.Transform
	// HalfExtents of the box approximating the shape.
	HalfExtents [3]float64
}

// Shape is a collision primitive owned by a rigid actor. Its transform is
// relative to the owning actor's global pose.
type Shape struct {
	handle      ShapeHandle
	name        string
	origin      ActorHandle
	local       spatial.Transform
	halfExtents [3]float64
	writes      int
}

func (s *Shape) Handle() ShapeHandle { return s.handle }

// Name is the body name the shape was created for.
func (s *Shape) Name() string { return s.name }

// Origin is the actor that created the shape. It differs from the current
// owner while the origin is welded to another actor.
func (s *Shape) Origin() ActorHandle { return s.origin }

func (s *Shape) LocalTransform() spatial.Transform { return s.local }

func (s *Shape) HalfExtents() [3]float64 { return s.halfExtents }

// SetLocalTransform moves the shape inside its actor.
func (s *Shape) SetLocalTransform(t spatial.Transform) {
	s.local = t
	s.writes++
}

// Writes counts SetLocalTransform calls since creation.
func (s *Shape) Writes() int { return s.writes }
