package grab

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/vrhand/internal/core/input"
	"github.com/zeusync/vrhand/internal/core/spatial"
	"github.com/zeusync/vrhand/internal/core/world"
)

// Controller is the hand asking a grabbable object for something.
type Controller interface {
	Name() string
	// Location is the world position of the controller's grab sphere.
	Location() mgl64.Vec3
}

// Attacher is implemented by controllers that can pull a grabbed object into
// the hand. Grabbables call it from OnGrab.
type Attacher interface {
	StartMovingActorToHandForAttachment(actor world.Handle, offset spatial.Transform) bool
}

// Grabbable is the capability a world object implements to take part in the
// grab protocol. Embed GrabbableBase to get the default answers.
type Grabbable interface {
	OnGrab(c Controller)
	OnDrop(c Controller)
	OnFinishedAttachingToHand()
	OnHandTeleported(c Controller)

	// SquaredDistanceTo is used to pick the closest of several candidates.
	SquaredDistanceTo(c Controller) float64
	// RequiresSecondPressToDrop turns hold-to-grab into press-to-toggle.
	RequiresSecondPressToDrop() bool
	IsGrabDisabled() bool
	IsDropDisabled() bool
}

// HandNotified is optionally implemented by grabbables that react to hands
// coming close.
type HandNotified interface {
	// OnHandEnter and OnHandExit report the physical hand touching the object.
	OnHandEnter(c Controller)
	OnHandExit(c Controller)
	// OnCanBeGrabbedStart and OnCanBeGrabbedEnd report the object entering
	// or leaving the grab sphere.
	OnCanBeGrabbedStart(c Controller)
	OnCanBeGrabbedEnd(c Controller)
	// OnPhantomHandEnter and OnPhantomHandExit report the tracked,
	// non-physical hand overlapping the object.
	OnPhantomHandEnter(c Controller)
	OnPhantomHandExit(c Controller)
}

// PlayerInput is implemented by grabbables that receive controller input
// while held.
type PlayerInput = input.Consumer

// GrabbableBase provides the default Grabbable behavior.
type GrabbableBase struct{}

func (GrabbableBase) OnGrab(Controller)                    {}
func (GrabbableBase) OnDrop(Controller)                    {}
func (GrabbableBase) OnFinishedAttachingToHand()           {}
func (GrabbableBase) OnHandTeleported(Controller)          {}
func (GrabbableBase) SquaredDistanceTo(Controller) float64 { return 0 }
func (GrabbableBase) RequiresSecondPressToDrop() bool      { return false }
func (GrabbableBase) IsGrabDisabled() bool                 { return false }
func (GrabbableBase) IsDropDisabled() bool                 { return false }

// HandNotifiedBase provides no-op HandNotified callbacks.
type HandNotifiedBase struct{}

func (HandNotifiedBase) OnHandEnter(Controller)         {}
func (HandNotifiedBase) OnHandExit(Controller)          {}
func (HandNotifiedBase) OnCanBeGrabbedStart(Controller) {}
func (HandNotifiedBase) OnCanBeGrabbedEnd(Controller)   {}
func (HandNotifiedBase) OnPhantomHandEnter(Controller)  {}
func (HandNotifiedBase) OnPhantomHandExit(Controller)   {}
