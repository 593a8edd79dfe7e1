package physics

import "fmt"

// ActorHandle addresses a rigid actor in a Scene. Zero is never issued.
type ActorHandle uint32

// ShapeHandle addresses a collision shape. Handles are unique per Scene.
type ShapeHandle uint32

// ConstraintHandle addresses a drive constraint in a Scene.
type ConstraintHandle uint32

const (
	NoActor      ActorHandle      = 0
	NoConstraint ConstraintHandle = 0
)

// CollisionEnabled selects which collision pipelines an actor takes part in.
type CollisionEnabled uint8

const (
	NoCollision CollisionEnabled = iota
	QueryOnly
	PhysicsOnly
	QueryAndPhysics
)

func (c CollisionEnabled) String() string {
	switch c {
	case NoCollision:
		return "NoCollision"
	case QueryOnly:
		return "QueryOnly"
	case PhysicsOnly:
		return "PhysicsOnly"
	case QueryAndPhysics:
		return "QueryAndPhysics"
	default:
		return fmt.Sprintf("CollisionEnabled(%d)", uint8(c))
	}
}

// HasPhysics reports whether the setting produces contacts.
func (c CollisionEnabled) HasPhysics() bool { return c == PhysicsOnly || c == QueryAndPhysics }

// HasQuery reports whether the setting answers overlap queries.
func (c CollisionEnabled) HasQuery() bool { return c == QueryOnly || c == QueryAndPhysics }

// Built-in collision profile names.
const (
	ProfilePhysicsActor = "PhysicsActor"
	ProfileNoCollision  = "NoCollision"
	ProfileGrabSphere   = "GrabSphere"
	ProfileBlockAll     = "BlockAll"
)

func defaultProfiles() map[string]CollisionEnabled {
	return map[string]CollisionEnabled{
		ProfilePhysicsActor: QueryAndPhysics,
		ProfileNoCollision:  NoCollision,
		ProfileGrabSphere:   QueryOnly,
		ProfileBlockAll:     QueryAndPhysics,
	}
}
