package grab

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/vrhand/internal/core/events/bus"
	"github.com/zeusync/vrhand/internal/core/input"
	"github.com/zeusync/vrhand/internal/core/spatial"
	"github.com/zeusync/vrhand/internal/core/world"
)

type controller struct{}

func (controller) Name() string         { return "left" }
func (controller) Location() mgl64.Vec3 { return mgl64.Vec3{0, 0, 1} }

type item struct {
	GrabbableBase
	HandNotifiedBase

	dist         float64
	sticky       bool
	grabDisabled bool
	dropDisabled bool

	grabs, drops, finished, teleported int
	canGrabStart, canGrabEnd           int
}

func (i *item) OnGrab(Controller)                    { i.grabs++ }
func (i *item) OnDrop(Controller)                    { i.drops++ }
func (i *item) OnFinishedAttachingToHand()           { i.finished++ }
func (i *item) OnHandTeleported(Controller)          { i.teleported++ }
func (i *item) SquaredDistanceTo(Controller) float64 { return i.dist }
func (i *item) RequiresSecondPressToDrop() bool      { return i.sticky }
func (i *item) IsGrabDisabled() bool                 { return i.grabDisabled }
func (i *item) IsDropDisabled() bool                 { return i.dropDisabled }
func (i *item) OnCanBeGrabbedStart(Controller)       { i.canGrabStart++ }
func (i *item) OnCanBeGrabbedEnd(Controller)         { i.canGrabEnd++ }

type tool struct {
	item
	axes []input.Axis
}

func (t *tool) InputAxis(a input.Axis, _, _ float64)   { t.axes = append(t.axes, a) }
func (t *tool) InputButton(input.Button, input.Action) {}
func (t *tool) ConsumeInputFlags() input.ConsumeFlags  { return input.ConsumeFlags{Thumbstick: true} }

type hand struct {
	w         *world.World
	self      world.Handle
	offset    spatial.Transform
	collision []bool
	attached  []world.Handle
}

func (h *hand) EnableCollision(on bool) { h.collision = append(h.collision, on) }

func (h *hand) AttachmentAnchor() spatial.Transform {
	t, _ := h.w.Transform(h.self)
	return h.offset.Mul(t)
}

func (h *hand) SetAttachmentOffset(offset spatial.Transform) { h.offset = offset }

func (h *hand) AttachActor(actor world.Handle) error {
	h.attached = append(h.attached, actor)
	return h.w.AttachTo(actor, h.self, true)
}

func (h *hand) DetachActor(actor world.Handle) error { return h.w.Detach(actor) }

type fixture struct {
	w      *world.World
	hand   *hand
	n      *Negotiator
	events []bus.Event
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	w := world.New(nil)
	self := w.Spawn(world.Spec{Name: "hand", Transform: spatial.FromTranslation(mgl64.Vec3{0, 0, 1})})
	f := &fixture{w: w, hand: &hand{w: w, self: self, offset: spatial.Identity()}}

	b := bus.New()
	_, err := b.SubscribeAll(func(e bus.Event) error {
		f.events = append(f.events, e)
		return nil
	})
	require.NoError(t, err)

	f.n = NewNegotiator(controller{}, w, f.hand, append([]Option{WithBus(b)}, opts...)...)
	return f
}

func (f *fixture) spawn(name string, it Grabbable, at mgl64.Vec3) world.Handle {
	return f.w.Spawn(world.Spec{Name: name, Transform: spatial.FromTranslation(at), Behavior: it})
}

func (f *fixture) eventTypes() []string {
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type())
	}
	return out
}

func TestTryGrabWithoutCandidates(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, Idle, f.n.State())
	assert.False(t, f.n.TryGrab())
	_, ok := f.n.Connected()
	assert.False(t, ok)
	assert.False(t, f.n.TryRelease(true))
}

func TestSelectClosestCandidate(t *testing.T) {
	f := newFixture(t)
	far := f.spawn("far", &item{dist: 9}, mgl64.Vec3{3, 0, 1})
	near := f.spawn("near", &item{dist: 4}, mgl64.Vec3{2, 0, 1})

	require.True(t, f.n.OverlapBegin(far))
	require.True(t, f.n.OverlapBegin(near))
	assert.Equal(t, Overlapping, f.n.State())

	got, ok := f.n.SelectClosestCandidate()
	require.True(t, ok)
	assert.Equal(t, near, got)
}

func TestSelectSkipsDisabledAndTies(t *testing.T) {
	f := newFixture(t)
	disabled := f.spawn("disabled", &item{dist: 1, grabDisabled: true}, mgl64.Vec3{})
	first := f.spawn("first", &item{dist: 5}, mgl64.Vec3{})
	second := f.spawn("second", &item{dist: 5}, mgl64.Vec3{})
	for _, h := range []world.Handle{disabled, first, second} {
		f.n.OverlapBegin(h)
	}

	got, ok := f.n.SelectClosestCandidate()
	require.True(t, ok)
	assert.Equal(t, first, got)

	f.n.OverlapEnd(first)
	f.n.OverlapEnd(second)
	_, ok = f.n.SelectClosestCandidate()
	assert.False(t, ok, "only disabled candidates remain")
}

func TestOverlapTracking(t *testing.T) {
	f := newFixture(t)
	it := &item{}
	h := f.spawn("cube", it, mgl64.Vec3{})
	wall := f.w.Spawn(world.Spec{Name: "wall"})

	assert.False(t, f.n.OverlapBegin(wall), "actors without the capability are ignored")
	assert.True(t, f.n.OverlapBegin(h))
	assert.False(t, f.n.OverlapBegin(h), "no duplicates")
	assert.Equal(t, []world.Handle{h}, f.n.Candidates())
	assert.Equal(t, 1, it.canGrabStart)

	assert.True(t, f.n.OverlapEnd(h))
	assert.False(t, f.n.OverlapEnd(h))
	assert.Equal(t, 1, it.canGrabEnd)
	assert.Empty(t, f.n.Candidates())
}

func TestStaleCandidatesAreDropped(t *testing.T) {
	f := newFixture(t)
	gone := f.spawn("gone", &item{dist: 1}, mgl64.Vec3{})
	kept := f.spawn("kept", &item{dist: 2}, mgl64.Vec3{})
	f.n.OverlapBegin(gone)
	f.n.OverlapBegin(kept)

	require.NoError(t, f.w.Destroy(gone))
	got, ok := f.n.SelectClosestCandidate()
	require.True(t, ok)
	assert.Equal(t, kept, got)
	assert.Equal(t, []world.Handle{kept}, f.n.Candidates())
}

func TestGrabIsMutuallyExclusive(t *testing.T) {
	f := newFixture(t)
	a := &item{dist: 1}
	b := &item{dist: 2}
	ha := f.spawn("a", a, mgl64.Vec3{})
	f.n.OverlapBegin(ha)
	f.n.OverlapBegin(f.spawn("b", b, mgl64.Vec3{}))

	require.True(t, f.n.TryGrab())
	assert.Equal(t, Grabbing, f.n.State())
	assert.Equal(t, 1, a.grabs)

	assert.False(t, f.n.TryGrab())
	got, _ := f.n.Connected()
	assert.Equal(t, ha, got)
	assert.Equal(t, 1, a.grabs)
	assert.Zero(t, b.grabs)
}

func TestSecondPressDropsStickyObject(t *testing.T) {
	f := newFixture(t)
	it := &item{sticky: true}
	h := f.spawn("tool", it, mgl64.Vec3{})
	f.n.OverlapBegin(h)

	require.True(t, f.n.TryGrab())
	assert.False(t, f.n.TryRelease(false), "releasing the button keeps a sticky grab")
	assert.Zero(t, it.drops)

	assert.True(t, f.n.TryGrab(), "second press releases")
	assert.Equal(t, 1, it.drops)
	assert.Equal(t, 1, it.grabs)
	_, ok := f.n.Connected()
	assert.False(t, ok)
}

func TestDropDisabledObjectNeedsForce(t *testing.T) {
	f := newFixture(t)
	it := &item{dropDisabled: true}
	f.n.OverlapBegin(f.spawn("glued", it, mgl64.Vec3{}))
	require.True(t, f.n.TryGrab())

	assert.False(t, f.n.TryRelease(false))
	assert.True(t, f.n.TryRelease(true))
	assert.Equal(t, 1, it.drops)
}

func TestAttachmentFinishesOnTheReachingTick(t *testing.T) {
	f := newFixture(t, WithAttachmentTime(200*time.Millisecond))
	it := &item{}
	h := f.spawn("cube", it, mgl64.Vec3{1, 0, 1})
	f.n.OverlapBegin(h)
	require.True(t, f.n.TryGrab())
	require.True(t, f.n.StartMovingActorToHandForAttachment(h, spatial.Identity()))
	assert.Equal(t, TransitioningToHand, f.n.State())
	assert.Equal(t, []bool{false}, f.hand.collision)

	f.n.Tick(0.1)
	assert.Zero(t, it.finished)
	assert.InDelta(t, 0.5, f.n.LerpProgress(), 1e-9)
	mid, _ := f.w.Transform(h)
	assert.InDelta(t, 0.5, mid.Translation[0], 1e-9)

	f.n.Tick(0.1)
	assert.Equal(t, 1, it.finished)
	assert.Equal(t, Grabbing, f.n.State())
	assert.Equal(t, []bool{false, true}, f.hand.collision)

	for i := 0; i < 3; i++ {
		f.n.Tick(0.1)
	}
	assert.Equal(t, 1, it.finished)
	assert.Equal(t, []world.Handle{h}, f.hand.attached)

	at, _ := f.w.Transform(h)
	assert.True(t, at.Equals(spatial.FromTranslation(mgl64.Vec3{0, 0, 1}), 1e-9))
	a, _ := f.w.Get(h)
	assert.True(t, a.Attached())
}

func TestLargeStepCompletesOnce(t *testing.T) {
	f := newFixture(t)
	it := &item{}
	h := f.spawn("cube", it, mgl64.Vec3{1, 0, 1})
	f.n.OverlapBegin(h)
	require.True(t, f.n.TryGrab())
	require.True(t, f.n.StartMovingActorToHandForAttachment(h, spatial.Identity()))

	f.n.UpdateAttachedActorLocation(5)
	f.n.UpdateAttachedActorLocation(5)
	assert.Equal(t, 1.0, f.n.LerpProgress())
	assert.Equal(t, 1, it.finished)
	assert.Len(t, f.hand.attached, 1)
}

func TestReleaseDuringTransitionIsDeferred(t *testing.T) {
	f := newFixture(t)
	it := &item{}
	h := f.spawn("cube", it, mgl64.Vec3{1, 0, 1})
	f.n.OverlapBegin(h)
	require.True(t, f.n.TryGrab())
	require.True(t, f.n.StartMovingActorToHandForAttachment(h, spatial.Identity()))

	assert.False(t, f.n.TryRelease(false))
	assert.Zero(t, it.drops)
	assert.False(t, f.n.IsGrabbing())
	got, ok := f.n.Connected()
	require.True(t, ok, "the object stays connected until the pull ends")
	assert.Equal(t, h, got)

	// a grab during the deferred window is rejected
	assert.False(t, f.n.TryGrab())
	assert.Equal(t, 1, it.grabs)

	f.n.Tick(0.1)
	assert.Zero(t, it.drops)
	f.n.Tick(0.1)
	assert.Equal(t, 1, it.finished)
	assert.Equal(t, 1, it.drops)
	_, ok = f.n.Connected()
	assert.False(t, ok)

	for i := 0; i < 20; i++ {
		f.n.Tick(0.1)
	}
	assert.Equal(t, 1, it.drops)

	a, _ := f.w.Get(h)
	assert.False(t, a.Attached())
	assert.Equal(t, []string{bus.GrabCandidate, bus.GrabStarted, bus.GrabAttached, bus.GrabReleased, bus.GrabCandidate}, f.eventTypes())
	released := f.events[3].Data().(bus.GrabPayload)
	assert.True(t, released.Deferred)
	assert.Equal(t, f.events[1].Data().(bus.GrabPayload).Session, released.Session)
}

func TestReleaseDuringTransitionKeepsDropPolicy(t *testing.T) {
	cases := []struct {
		name string
		it   *item
	}{
		{"sticky", &item{sticky: true}},
		{"drop disabled", &item{dropDisabled: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			h := f.spawn("tool", tc.it, mgl64.Vec3{1, 0, 1})
			f.n.OverlapBegin(h)
			require.True(t, f.n.TryGrab())
			require.True(t, f.n.StartMovingActorToHandForAttachment(h, spatial.Identity()))

			f.n.Tick(0.1)
			assert.False(t, f.n.TryRelease(false))
			assert.True(t, f.n.IsGrabbing())

			f.n.Tick(0.1)
			assert.Equal(t, 1, tc.it.finished)
			assert.Zero(t, tc.it.drops)
			assert.True(t, f.n.IsGrabbing())
			got, ok := f.n.Connected()
			require.True(t, ok)
			assert.Equal(t, h, got)
			assert.NotContains(t, f.eventTypes(), bus.GrabReleased)
		})
	}
}

func TestForcedReleaseDuringTransitionOfStickyIsDeferred(t *testing.T) {
	f := newFixture(t)
	it := &item{sticky: true}
	h := f.spawn("tool", it, mgl64.Vec3{1, 0, 1})
	f.n.OverlapBegin(h)
	require.True(t, f.n.TryGrab())
	require.True(t, f.n.StartMovingActorToHandForAttachment(h, spatial.Identity()))

	assert.False(t, f.n.TryRelease(true))
	assert.False(t, f.n.IsGrabbing())
	f.n.Tick(0.2)
	assert.Equal(t, 1, it.finished)
	assert.Equal(t, 1, it.drops)
}

func TestAbortDuringTransition(t *testing.T) {
	f := newFixture(t)
	it := &item{}
	h := f.spawn("cube", it, mgl64.Vec3{1, 0, 1})
	f.n.OverlapBegin(h)
	require.True(t, f.n.TryGrab())
	require.True(t, f.n.StartMovingActorToHandForAttachment(h, spatial.Identity()))
	f.n.Tick(0.1)

	assert.True(t, f.n.Abort())
	assert.Equal(t, 1, it.drops)
	assert.Zero(t, it.finished)
	assert.False(t, f.n.InTransition())
	assert.False(t, f.n.IsGrabbing())
	_, ok := f.n.Connected()
	assert.False(t, ok)
	assert.False(t, f.n.Abort())

	f.n.SetHandBody(nil)
	assert.NotPanics(t, func() { f.n.Tick(0.1) })
	assert.Equal(t, 1, it.drops)
}

func TestHandRemovedDuringTransition(t *testing.T) {
	f := newFixture(t)
	it := &item{}
	h := f.spawn("cube", it, mgl64.Vec3{1, 0, 1})
	f.n.OverlapBegin(h)
	require.True(t, f.n.TryGrab())
	require.True(t, f.n.StartMovingActorToHandForAttachment(h, spatial.Identity()))

	f.n.SetHandBody(nil)
	assert.NotPanics(t, func() { f.n.Tick(0.1) })
	assert.Equal(t, 1, it.drops)
	assert.Zero(t, it.finished)
	assert.Equal(t, Overlapping, f.n.State())
}

func TestCollisionRecoversOnceAfterDelay(t *testing.T) {
	f := newFixture(t)
	it := &item{}
	h := f.spawn("cube", it, mgl64.Vec3{1, 0, 1})
	f.n.OverlapBegin(h)
	require.True(t, f.n.TryGrab())
	require.True(t, f.n.StartMovingActorToHandForAttachment(h, spatial.Identity()))
	f.n.Tick(0.1)
	f.n.Tick(0.1)

	require.True(t, f.n.TryRelease(false))
	assert.Equal(t, []bool{false, true, false}, f.hand.collision)

	f.n.Tick(0.5)
	assert.Equal(t, []bool{false, true, false}, f.hand.collision)
	f.n.Tick(0.5)
	assert.Equal(t, []bool{false, true, false, true}, f.hand.collision)

	for i := 0; i < 10; i++ {
		f.n.Tick(0.5)
	}
	assert.Len(t, f.hand.collision, 4)
}

func TestCollisionRecoverySkippedWhileGrabbingAgain(t *testing.T) {
	f := newFixture(t)
	it := &item{}
	h := f.spawn("cube", it, mgl64.Vec3{1, 0, 1})
	f.n.OverlapBegin(h)
	require.True(t, f.n.TryGrab())
	require.True(t, f.n.TryRelease(false))
	assert.Equal(t, []bool{false}, f.hand.collision)
	assert.Equal(t, 2, it.canGrabStart, "the dropped object is offered again")

	require.True(t, f.n.TryGrab())
	f.n.Tick(1.5)
	assert.Equal(t, []bool{false}, f.hand.collision)
}

func TestStartMovingRequiresCapability(t *testing.T) {
	f := newFixture(t)
	wall := f.w.Spawn(world.Spec{Name: "wall"})
	assert.False(t, f.n.StartMovingActorToHandForAttachment(wall, spatial.Identity()))
	assert.False(t, f.n.InTransition())
	assert.Empty(t, f.hand.collision)

	n := NewNegotiator(controller{}, f.w, nil)
	h := f.spawn("cube", &item{}, mgl64.Vec3{})
	assert.False(t, n.StartMovingActorToHandForAttachment(h, spatial.Identity()))
}

func TestActorDestroyedMidTransition(t *testing.T) {
	f := newFixture(t)
	h := f.spawn("cube", &item{}, mgl64.Vec3{1, 0, 1})
	f.n.OverlapBegin(h)
	require.True(t, f.n.TryGrab())
	require.True(t, f.n.StartMovingActorToHandForAttachment(h, spatial.Identity()))

	require.NoError(t, f.w.Destroy(h))
	f.n.Tick(0.1)
	assert.Equal(t, Idle, f.n.State())
	_, ok := f.n.Connected()
	assert.False(t, ok)
	assert.Equal(t, []bool{false, true}, f.hand.collision)
}

func TestPlayerInputAndTeleport(t *testing.T) {
	f := newFixture(t)
	tl := &tool{}
	f.n.OverlapBegin(f.spawn("gun", tl, mgl64.Vec3{}))

	_, ok := f.n.PlayerInput()
	assert.False(t, ok)
	require.True(t, f.n.TryGrab())
	pi, ok := f.n.PlayerInput()
	require.True(t, ok)
	assert.True(t, pi.ConsumeInputFlags().Thumbstick)

	f.n.HandTeleported()
	assert.Equal(t, 1, tl.teleported)

	require.True(t, f.n.TryRelease(false))
	_, ok = f.n.PlayerInput()
	assert.False(t, ok)
}
