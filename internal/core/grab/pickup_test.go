package grab

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/vrhand/internal/core/spatial"
	"github.com/zeusync/vrhand/internal/core/world"
)

// attacher is a controller that forwards attachment to a negotiator.
type attacher struct {
	controller
	n *Negotiator
}

func (a *attacher) StartMovingActorToHandForAttachment(actor world.Handle, offset spatial.Transform) bool {
	return a.n.StartMovingActorToHandForAttachment(actor, offset)
}

func TestPickupPullsItselfIntoHand(t *testing.T) {
	f := newFixture(t)
	ctrl := &attacher{}
	f.n = NewNegotiator(ctrl, f.w, f.hand)
	ctrl.n = f.n

	p := NewPickup(f.w, "cube", spatial.FromTranslation(mgl64.Vec3{0, 1, 1}))
	assert.InDelta(t, 1.0, p.SquaredDistanceTo(ctrl), 1e-9)

	require.True(t, f.n.OverlapBegin(p.Self))
	require.True(t, f.n.TryGrab())
	assert.True(t, p.Held)
	assert.True(t, f.n.InTransition())

	f.n.Tick(0.25)
	assert.False(t, f.n.InTransition())
	a, ok := f.w.Get(p.Self)
	require.True(t, ok)
	assert.Equal(t, f.hand.self, a.Parent())

	require.True(t, f.n.TryRelease(false))
	assert.False(t, p.Held)
}

func TestPickupStickyAndLocked(t *testing.T) {
	f := newFixture(t)
	p := NewPickup(f.w, "gun", spatial.Identity())
	p.Sticky = true
	assert.True(t, p.RequiresSecondPressToDrop())
	assert.False(t, p.IsDropDisabled())
	p.Locked = true
	assert.True(t, p.IsDropDisabled())

	// plain controllers cannot pull, the grab still registers
	require.True(t, f.n.OverlapBegin(p.Self))
	require.True(t, f.n.TryGrab())
	assert.True(t, p.Held)
	assert.False(t, f.n.InTransition())
}

func TestPickupDistanceOfDestroyedActor(t *testing.T) {
	w := world.New(nil)
	p := NewPickup(w, "cube", spatial.FromTranslation(mgl64.Vec3{3, 0, 0}))
	require.NoError(t, w.Destroy(p.Self))
	assert.Zero(t, p.SquaredDistanceTo(controller{}))
}
