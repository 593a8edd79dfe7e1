package grab

import (
	"github.com/zeusync/vrhand/internal/core/spatial"
	"github.com/zeusync/vrhand/internal/core/world"
)

// Pickup is a ready-made Grabbable for plain props: it asks the grabbing
// controller to pull it into the hand at Offset and reports its distance from
// the world transform of Self.
type Pickup struct {
	GrabbableBase

	World  *world.World
	Self   world.Handle
	Offset spatial.Transform
	// Sticky makes the pickup stay in the hand until a second grab press.
	Sticky bool
	// Locked keeps the pickup in the hand until a forced release.
	Locked bool

	Held bool
}

// NewPickup spawns a pickup actor named name at t.
func NewPickup(w *world.World, name string, t spatial.Transform) *Pickup {
	p := &Pickup{World: w, Offset: spatial.Identity()}
	p.Self = w.Spawn(world.Spec{Name: name, Transform: t, Behavior: p})
	return p
}

func (p *Pickup) OnGrab(c Controller) {
	p.Held = true
	if a, ok := c.(Attacher); ok {
		a.StartMovingActorToHandForAttachment(p.Self, p.Offset)
	}
}

func (p *Pickup) OnDrop(Controller) { p.Held = false }

func (p *Pickup) SquaredDistanceTo(c Controller) float64 {
	t, ok := p.World.Transform(p.Self)
	if !ok {
		return 0
	}
	return t.Translation.Sub(c.Location()).LenSqr()
}

func (p *Pickup) RequiresSecondPressToDrop() bool { return p.Sticky }
func (p *Pickup) IsDropDisabled() bool            { return p.Locked }
