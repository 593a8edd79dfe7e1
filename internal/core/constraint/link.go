package constraint

import (
	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/core/physics"
	"github.com/zeusync/vrhand/internal/core/spatial"
)

// anchorHalfExtent is the half size of the anchor box in meters.
const anchorHalfExtent = 0.01

// Target is anything a Link can pull: it exposes the physics actor to drive.
type Target interface {
	Actor() physics.ActorHandle
}

// BoneTarget is a Target made of per-bone bodies, such as a skeletal hand.
type BoneTarget interface {
	Target
	BodyFor(bone string) (*physics.Body, bool)
}

// ActorTarget adapts a bare actor handle to Target.
type ActorTarget physics.ActorHandle

func (t ActorTarget) Actor() physics.ActorHandle { return physics.ActorHandle(t) }

// Observer is told about every constraint the link creates or breaks.
type Observer interface {
	OnConstraintCreated(target physics.ActorHandle, bone string)
	OnConstraintBroken(target physics.ActorHandle, bone string)
}

// Link owns a kinematic anchor and at most one drive constraint from that
// anchor to a target body. The target is pulled toward the anchor pose rather
// than fused to it, so contacts push it away smoothly.
type Link struct {
	scene  *physics.Scene
	anchor physics.ActorHandle
	drive  physics.DriveParams

	constraint physics.ConstraintHandle
	target     physics.ActorHandle
	bone       string
	attached   bool

	observers []Observer
	log       log.Log
}

type Option func(*Link)

func WithDrive(p physics.DriveParams) Option {
	return func(l *Link) { l.drive = p }
}

func WithObserver(o Observer) Option {
	return func(l *Link) { l.observers = append(l.observers, o) }
}

func WithLogger(lg log.Log) Option {
	return func(l *Link) { l.log = log.OrNop(lg) }
}

// NewLink creates the anchor actor in scene at pose.
func NewLink(scene *physics.Scene, name string, pose spatial.Transform, opts ...Option) *Link {
	l := &Link{
		scene: scene,
		drive: physics.DefaultDriveParams(),
		log:   log.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.anchor = scene.CreateActor(physics.ActorDesc{
		Name:      name,
		Pose:      pose,
		Kinematic: true,
		Profile:   physics.ProfileNoCollision,
		Shapes: []physics.ShapeDesc{{
			Name:        name,
			HalfExtents: [3]float64{anchorHalfExtent, anchorHalfExtent, anchorHalfExtent},
		}},
	})
	// physics only, responding to no channel
	scene.ExecuteWrite(l.anchor, func(a *physics.RigidActor) {
		a.SetCollisionEnabled(physics.PhysicsOnly)
	})
	return l
}

func (l *Link) Anchor() physics.ActorHandle { return l.anchor }

// Attached reports whether a constraint is live.
func (l *Link) Attached() bool { return l.attached }

// Target returns the constrained actor and bone. ok is false when detached.
func (l *Link) Target() (actor physics.ActorHandle, bone string, ok bool) {
	return l.target, l.bone, l.attached
}

// SetAnchorPose moves the anchor the target is pulled toward.
func (l *Link) SetAnchorPose(t spatial.Transform) {
	l.scene.ExecuteWrite(l.anchor, func(a *physics.RigidActor) {
		a.SetGlobalPose(t, false)
	})
}

// AnchorPose returns the current anchor pose.
func (l *Link) AnchorPose() spatial.Transform {
	pose := spatial.Identity()
	l.scene.ExecuteRead(l.anchor, func(a *physics.RigidActor) { pose = a.GlobalPose() })
	return pose
}

// CreateConstraint links the anchor to bone of target, breaking any existing
// link first. It returns false when the target actor does not exist.
func (l *Link) CreateConstraint(target Target, bone string) bool {
	if l.attached {
		l.BreakConstraint()
	}
	if target == nil {
		l.log.Error("constraint target is nil", log.String("bone", bone))
		return false
	}

	actor := target.Actor()
	if bt, ok := target.(BoneTarget); ok && bone != "" {
		if body, found := bt.BodyFor(bone); found {
			actor = body.Actor()
		} else {
			l.log.Warn("constraint bone has no body, using the target root", log.String("bone", bone))
		}
	}

	h, err := l.scene.CreateConstraint(l.anchor, actor, bone, l.drive)
	if err != nil {
		l.log.Error("failed to create constraint", log.Error(err), log.String("bone", bone))
		return false
	}

	l.constraint = h
	l.target = actor
	l.bone = bone
	l.attached = true
	for _, o := range l.observers {
		o.OnConstraintCreated(actor, bone)
	}
	return true
}

// BreakConstraint releases the live constraint. It does nothing when detached.
func (l *Link) BreakConstraint() {
	if !l.attached {
		return
	}
	l.attached = false
	if err := l.scene.BreakConstraint(l.constraint); err != nil {
		// the scene dropped it already, e.g. because the target was removed
		l.log.Debug("constraint already gone", log.Error(err))
	}
	target, bone := l.target, l.bone
	l.constraint = physics.NoConstraint
	l.target = physics.NoActor
	l.bone = ""
	for _, o := range l.observers {
		o.OnConstraintBroken(target, bone)
	}
}

// Destroy breaks the constraint and removes the anchor actor.
func (l *Link) Destroy() {
	l.BreakConstraint()
	_ = l.scene.RemoveActor(l.anchor)
}
