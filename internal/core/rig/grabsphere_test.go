package rig

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/vrhand/internal/core/grab"
	"github.com/zeusync/vrhand/internal/core/physics"
	"github.com/zeusync/vrhand/internal/core/spatial"
	"github.com/zeusync/vrhand/internal/core/world"
)

type overlaps struct {
	began, ended []world.Handle
}

func (o *overlaps) OverlapBegin(h world.Handle) bool { o.began = append(o.began, h); return true }
func (o *overlaps) OverlapEnd(h world.Handle) bool   { o.ended = append(o.ended, h); return true }

func TestGrabSphereTracksGrabbables(t *testing.T) {
	f := newFixture(t)
	o := &overlaps{}
	s := NewGrabSphere(f.world, "left.grab", physics.ProfileGrabSphere, 0.1, o, nil)
	require.True(t, s.Active())

	near := grab.NewPickup(f.world, "near", spatial.FromTranslation(mgl64.Vec3{0.05, 0, 0}))
	far := grab.NewPickup(f.world, "far", spatial.FromTranslation(mgl64.Vec3{1, 0, 0}))
	f.world.Spawn(world.Spec{Name: "wall", Transform: spatial.Identity()})

	s.Update(mgl64.Vec3{})
	assert.Equal(t, []world.Handle{near.Self}, o.began)
	assert.True(t, s.Inside(near.Self))
	assert.False(t, s.Inside(far.Self))

	s.Update(mgl64.Vec3{})
	assert.Len(t, o.began, 1, "no repeated begin while inside")

	s.Update(mgl64.Vec3{0.95, 0, 0})
	assert.Equal(t, []world.Handle{near.Self}, o.ended)
	assert.Equal(t, []world.Handle{near.Self, far.Self}, o.began)

	s.Destroy()
	assert.Equal(t, []world.Handle{near.Self, far.Self}, o.ended)
	assert.False(t, f.world.Scene().Exists(s.Actor()))
}

func TestGrabSphereIgnoresAttachedAndNonQueryActors(t *testing.T) {
	f := newFixture(t)
	o := &overlaps{}
	s := NewGrabSphere(f.world, "left.grab", physics.ProfileGrabSphere, 0.5, o, nil)

	held := grab.NewPickup(f.world, "held", spatial.Identity())
	holder := f.world.Spawn(world.Spec{Name: "holder"})
	require.NoError(t, f.world.AttachTo(held.Self, holder, false))

	ghostBody := f.world.Scene().CreateActor(physics.ActorDesc{Name: "ghost", Profile: physics.ProfileNoCollision})
	ghost := &grab.Pickup{World: f.world}
	ghost.Self = f.world.Spawn(world.Spec{Name: "ghost", Body: ghostBody, Behavior: ghost})

	s.Update(mgl64.Vec3{})
	assert.Empty(t, o.began)
}

func TestGrabSphereInertWithoutQueryProfile(t *testing.T) {
	f := newFixture(t)
	o := &overlaps{}
	s := NewGrabSphere(f.world, "left.grab", physics.ProfileNoCollision, 0.5, o, nil)
	assert.False(t, s.Active())

	grab.NewPickup(f.world, "near", spatial.Identity())
	s.Update(mgl64.Vec3{})
	assert.Empty(t, o.began)
}

func TestMotionControllerDetectsCandidates(t *testing.T) {
	f := newFixture(t)
	m, _ := f.spawnHand(t, "left", mgl64.Vec3{1.5, 0, 1})
	cube := grab.NewPickup(f.world, "cube", spatial.FromTranslation(mgl64.Vec3{1.5, 0.05, 1}))

	m.Tick(0.01)
	assert.Equal(t, []world.Handle{cube.Self}, m.Negotiator().Candidates())
	assert.Equal(t, grab.Overlapping, m.Negotiator().State())
}
