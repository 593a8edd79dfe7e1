package constraint

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/vrhand/internal/core/physics"
	"github.com/zeusync/vrhand/internal/core/skeleton"
	"github.com/zeusync/vrhand/internal/core/spatial"
)

type eventLog struct {
	events []string
}

func (e *eventLog) OnConstraintCreated(_ physics.ActorHandle, bone string) {
	e.events = append(e.events, "create:"+bone)
}

func (e *eventLog) OnConstraintBroken(_ physics.ActorHandle, bone string) {
	e.events = append(e.events, "break:"+bone)
}

func newHand(t *testing.T, scene *physics.Scene) *physics.SkeletalBody {
	t.Helper()
	sk, err := skeleton.New([]skeleton.BoneDef{{Name: "hand_r"}, {Name: "index_01", Parent: "hand_r"}})
	require.NoError(t, err)
	body, err := physics.NewSkeletalBody(scene, skeleton.NewMesh(sk), &physics.Asset{
		Name:   "hand",
		Bodies: []physics.BodyDef{{Bone: "hand_r", Shapes: []physics.ShapeDesc{{}}}},
	}, physics.SkeletalDesc{Name: "hand", Mass: 10, Simulate: true})
	require.NoError(t, err)
	return body
}

func TestAnchorIsKinematicPhysicsOnly(t *testing.T) {
	scene := physics.NewScene()
	l := NewLink(scene, "anchor", spatial.FromTranslation(mgl64.Vec3{0, 0, 1}))

	scene.ExecuteRead(l.Anchor(), func(a *physics.RigidActor) {
		assert.True(t, a.Kinematic())
		assert.False(t, a.Simulating())
		assert.Equal(t, physics.PhysicsOnly, a.CollisionEnabled())
		assert.Equal(t, 1, a.NumShapes())
	})
	assert.InDelta(t, 1.0, l.AnchorPose().Translation[2], 1e-12)
	assert.False(t, l.Attached())
}

func TestCreateTwiceKeepsOneConstraint(t *testing.T) {
	scene := physics.NewScene()
	events := &eventLog{}
	l := NewLink(scene, "anchor", spatial.Identity(), WithObserver(events))
	hand := newHand(t, scene)

	require.True(t, l.CreateConstraint(hand, "hand_r"))
	require.True(t, l.CreateConstraint(hand, "hand_r"))

	assert.Equal(t, []string{"create:hand_r", "break:hand_r", "create:hand_r"}, events.events)
	assert.Equal(t, 1, scene.ActiveConstraints())
	assert.True(t, l.Attached())

	actor, bone, ok := l.Target()
	assert.True(t, ok)
	assert.Equal(t, hand.Actor(), actor)
	assert.Equal(t, "hand_r", bone)
}

func TestBreakIsNoOpWhenDetached(t *testing.T) {
	scene := physics.NewScene()
	events := &eventLog{}
	l := NewLink(scene, "anchor", spatial.Identity(), WithObserver(events))

	l.BreakConstraint()
	assert.Empty(t, events.events)

	require.True(t, l.CreateConstraint(newHand(t, scene), "hand_r"))
	l.BreakConstraint()
	l.BreakConstraint()
	assert.Equal(t, []string{"create:hand_r", "break:hand_r"}, events.events)
	assert.Zero(t, scene.ActiveConstraints())

	_, _, ok := l.Target()
	assert.False(t, ok)
}

func TestCreateWithMissingTargetFails(t *testing.T) {
	scene := physics.NewScene()
	l := NewLink(scene, "anchor", spatial.Identity())

	assert.False(t, l.CreateConstraint(ActorTarget(999), ""))
	assert.False(t, l.CreateConstraint(nil, "hand_r"))
	assert.False(t, l.Attached())
}

func TestUnknownBoneFallsBackToRoot(t *testing.T) {
	scene := physics.NewScene()
	l := NewLink(scene, "anchor", spatial.Identity())
	hand := newHand(t, scene)

	require.True(t, l.CreateConstraint(hand, "pinky_03"))
	actor, _, _ := l.Target()
	assert.Equal(t, hand.Actor(), actor)
}

func TestLinkPullsTargetTowardAnchor(t *testing.T) {
	scene := physics.NewScene()
	l := NewLink(scene, "anchor", spatial.Identity())
	hand := newHand(t, scene)
	require.True(t, l.CreateConstraint(hand, "hand_r"))

	l.SetAnchorPose(spatial.FromTranslation(mgl64.Vec3{0.5, 0, 1}))
	for i := 0; i < 180; i++ {
		scene.Step(1.0 / 90.0)
	}
	scene.ExecuteRead(hand.Actor(), func(a *physics.RigidActor) {
		assert.InDelta(t, 0.5, a.GlobalPose().Translation[0], 0.02)
		assert.InDelta(t, 1.0, a.GlobalPose().Translation[2], 0.02)
	})

	l.Destroy()
	assert.False(t, scene.Exists(l.Anchor()))
	assert.Zero(t, scene.ActiveConstraints())
}
