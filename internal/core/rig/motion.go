package rig

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/vrhand/internal/core/constraint"
	"github.com/zeusync/vrhand/internal/core/controller"
	"github.com/zeusync/vrhand/internal/core/events/bus"
	"github.com/zeusync/vrhand/internal/core/grab"
	"github.com/zeusync/vrhand/internal/core/input"
	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/core/physics"
	"github.com/zeusync/vrhand/internal/core/schedule"
	"github.com/zeusync/vrhand/internal/core/spatial"
	"github.com/zeusync/vrhand/internal/core/world"
)

const (
	DefaultTrackingCheckInterval    = 800 * time.Millisecond
	DefaultTrackingMaxAttempts      = 75
	DefaultTeleportPhysicsResetWait = 100 * time.Millisecond
	DefaultMinTrackedDistanceSq     = 1.0
)

// HandFactory builds the physical hand at the phantom pose.
type HandFactory func(pose spatial.Transform) (*Hand, error)

// Settings configures a MotionControllerHand.
type Settings struct {
	TrackingCheckInterval    time.Duration
	TrackingMaxAttempts      int
	TeleportPhysicsResetWait time.Duration
	MinTrackedDistanceSq     float64
	AttachmentTime           time.Duration
	NoCollisionTime          time.Duration
	GrabRadius               float64
	GrabProfile              string
	Deadzone                 float64
	Drive                    physics.DriveParams
}

func DefaultSettings() Settings {
	return Settings{
		TrackingCheckInterval:    DefaultTrackingCheckInterval,
		TrackingMaxAttempts:      DefaultTrackingMaxAttempts,
		TeleportPhysicsResetWait: DefaultTeleportPhysicsResetWait,
		MinTrackedDistanceSq:     DefaultMinTrackedDistanceSq,
		AttachmentTime:           grab.DefaultAttachmentTime,
		NoCollisionTime:          grab.DefaultNoCollisionTime,
		GrabRadius:               DefaultGrabRadius,
		GrabProfile:              physics.ProfileGrabSphere,
		Deadzone:                 controller.DefaultDeadzone,
		Drive:                    physics.DefaultDriveParams(),
	}
}

// MotionControllerHand binds a tracked controller to a physical hand. The
// hand is spawned once tracking is up and then follows the phantom pose
// through a drive constraint.
type MotionControllerHand struct {
	name     string
	world    *world.World
	tracker  Tracker
	pawn     *Pawn
	factory  HandFactory
	settings Settings

	hand       *Hand
	link       *constraint.Link
	negotiator *grab.Negotiator
	machine    *controller.Machine
	sphere     *GrabSphere
	timer      *schedule.Queue

	trackingTask schedule.TaskID
	resetTask    schedule.TaskID
	following    bool

	registry   *controller.Registry
	teleporter controller.Teleporter
	startState string

	bus bus.EventBus
	log log.Log
}

type Option func(*MotionControllerHand)

func WithSettings(s Settings) Option {
	return func(m *MotionControllerHand) { m.settings = s }
}

func WithPawn(p *Pawn) Option {
	return func(m *MotionControllerHand) { m.pawn = p }
}

// WithRegistry sets the behavior states available to the controller.
func WithRegistry(r *controller.Registry) Option {
	return func(m *MotionControllerHand) { m.registry = r }
}

func WithStartState(name string) Option {
	return func(m *MotionControllerHand) { m.startState = name }
}

func WithTeleporter(t controller.Teleporter) Option {
	return func(m *MotionControllerHand) { m.teleporter = t }
}

func WithBus(b bus.EventBus) Option {
	return func(m *MotionControllerHand) { m.bus = b }
}

func WithLogger(l log.Log) Option {
	return func(m *MotionControllerHand) { m.log = log.OrNop(l) }
}

// NewMotionControllerHand wires the constraint link, grab negotiator and
// state machine for one controller. Nothing is spawned until Begin.
func NewMotionControllerHand(name string, w *world.World, tracker Tracker, factory HandFactory, opts ...Option) *MotionControllerHand {
	m := &MotionControllerHand{
		name:       name,
		world:      w,
		tracker:    tracker,
		factory:    factory,
		settings:   DefaultSettings(),
		registry:   controller.NewDefaultRegistry(),
		startState: controller.StateIdle,
		log:        log.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(log.String("hand", name))

	m.timer = schedule.New(schedule.WithLogger(m.log))
	m.link = constraint.NewLink(w.Scene(), name+".anchor", tracker.PhantomPose(),
		constraint.WithDrive(m.settings.Drive),
		constraint.WithObserver(m),
		constraint.WithLogger(m.log),
	)
	m.negotiator = grab.NewNegotiator(m, w, nil,
		grab.WithAttachmentTime(m.settings.AttachmentTime),
		grab.WithNoCollisionTime(m.settings.NoCollisionTime),
		grab.WithBus(m.bus),
		grab.WithLogger(m.log),
	)
	m.sphere = NewGrabSphere(w, name+".grab", m.settings.GrabProfile, m.settings.GrabRadius, m.negotiator, m.log)
	m.machine = controller.New(name, m.registry,
		controller.WithGrabber(m.negotiator),
		controller.WithTeleporter(m.teleporter),
		controller.WithDefaultState(m.startState),
		controller.WithDeadzone(m.settings.Deadzone),
		controller.WithBus(m.bus),
		controller.WithLogger(m.log),
	)
	return m
}

func (m *MotionControllerHand) Name() string                   { return m.name }
func (m *MotionControllerHand) Hand() *Hand                    { return m.hand }
func (m *MotionControllerHand) Link() *constraint.Link         { return m.link }
func (m *MotionControllerHand) Negotiator() *grab.Negotiator   { return m.negotiator }
func (m *MotionControllerHand) Machine() *controller.Machine   { return m.machine }
func (m *MotionControllerHand) GrabSphere() *GrabSphere        { return m.sphere }
func (m *MotionControllerHand) Following() bool                { return m.following }
func (m *MotionControllerHand) PhantomPose() spatial.Transform { return m.tracker.PhantomPose() }
func (m *MotionControllerHand) Location() mgl64.Vec3           { return m.tracker.PhantomPose().Translation }
func (m *MotionControllerHand) WaitingForTracking() bool       { return m.timer.Pending(m.trackingTask) }

// Begin installs the start state and starts polling the tracker. The hand
// spawns on the first poll that finds the controller tracked away from the
// pawn origin; polling gives up after TrackingMaxAttempts.
func (m *MotionControllerHand) Begin() error {
	if m.factory == nil {
		m.log.Error("physical hand class is not set, hand disabled")
		return ErrNoHandFactory
	}
	if err := m.machine.ChangeToDefault(false); err != nil {
		return err
	}
	m.trackingTask = m.timer.Every("tracking-wait",
		m.settings.TrackingCheckInterval,
		schedule.Retry{Max: m.settings.TrackingMaxAttempts},
		m.checkTracking,
		m.trackingExhausted,
	)
	return nil
}

func (m *MotionControllerHand) checkTracking() schedule.Result {
	if !m.tracker.Tracked() {
		return schedule.Again
	}
	if m.tracker.RelativeLocation().LenSqr() <= m.settings.MinTrackedDistanceSq {
		return schedule.Again
	}

	hand, err := m.factory(m.tracker.PhantomPose())
	if err != nil {
		m.log.Error("cannot spawn physical hand", log.Error(err))
		return schedule.Done
	}
	m.hand = hand
	m.negotiator.SetHandBody(hand)
	m.StartFollowing(true)

	m.log.Info("physical hand spawned", log.Stringer("actor", hand.Handle()))
	m.publish(bus.HandSpawned, bus.HandPayload{Hand: m.name})
	return schedule.Done
}

func (m *MotionControllerHand) trackingExhausted(attempts int) {
	m.publish(bus.HandTrackingExhausted, bus.HandPayload{Hand: m.name, Attempts: attempts})
}

// StartFollowing constrains the hand root bone to the controller anchor,
// replacing any live constraint. With teleportToPhantom the hand is moved to
// the phantom pose while the constraint is created and put back afterwards,
// so the drive targets are computed from the tracked pose.
func (m *MotionControllerHand) StartFollowing(teleportToPhantom bool) bool {
	if m.hand == nil {
		return false
	}
	m.link.BreakConstraint()

	var current spatial.Transform
	if teleportToPhantom {
		current = m.hand.Pose()
		m.TeleportHandToMotionController(false)
	}

	m.hand.SetSimulatePhysics(true)
	m.link.SetAnchorPose(m.tracker.PhantomPose())
	ok := m.link.CreateConstraint(m.hand.Body(), m.hand.Settings().RootBone)
	m.following = ok

	if teleportToPhantom {
		m.hand.TeleportTo(current)
	}
	return ok
}

// StopFollowing breaks the hand constraint. The hand keeps simulating.
func (m *MotionControllerHand) StopFollowing() {
	m.link.BreakConstraint()
	m.following = false
}

// TeleportHandToMotionController snaps the hand to the phantom pose. With
// sweepFromCamera it passes through the headset first, which keeps it on the
// player's side of any wall.
func (m *MotionControllerHand) TeleportHandToMotionController(sweepFromCamera bool) {
	if m.hand == nil {
		return
	}
	if sweepFromCamera && m.pawn != nil {
		m.hand.TeleportTo(m.hand.Pose().WithTranslation(m.pawn.CameraLocation()))
	}
	m.hand.TeleportTo(m.tracker.PhantomPose())
}

// TeleportHandTo places the hand at location and rotation.
func (m *MotionControllerHand) TeleportHandTo(location mgl64.Vec3, rotation mgl64.Quat) {
	if m.hand == nil {
		return
	}
	pose := m.hand.Pose()
	pose.Translation = location
	pose.Rotation = rotation
	m.hand.TeleportTo(pose)
}

// OnPawnTeleport freezes the hand while the pawn moves. When the teleport
// finishes the hand is snapped to the controller and simulation resumes
// after TeleportPhysicsResetWait.
func (m *MotionControllerHand) OnPawnTeleport(started bool) {
	if m.hand == nil {
		return
	}
	if started {
		m.timer.Cancel(m.resetTask)
		m.hand.SetSimulatePhysics(false)
		return
	}

	m.TeleportHandToMotionController(true)
	m.timer.Cancel(m.resetTask)
	m.resetTask = m.timer.After("teleport-physics-reset", m.settings.TeleportPhysicsResetWait, func() {
		if m.hand != nil {
			m.hand.SetSimulatePhysics(true)
		}
	})
	m.negotiator.HandTeleported()
	m.publish(bus.HandTeleported, bus.HandPayload{Hand: m.name})
}

// StartMovingActorToHandForAttachment pulls a grabbed actor into the hand.
func (m *MotionControllerHand) StartMovingActorToHandForAttachment(actor world.Handle, offset spatial.Transform) bool {
	return m.negotiator.StartMovingActorToHandForAttachment(actor, offset)
}

// EnableHandCollision switches the hand between its collision profiles.
func (m *MotionControllerHand) EnableHandCollision(on bool) {
	if m.hand != nil {
		m.hand.EnableCollision(on)
	}
}

// PairWith lets the two controllers' states see each other.
func (m *MotionControllerHand) PairWith(other *MotionControllerHand) {
	controller.Pair(m.machine, other.machine)
}

func (m *MotionControllerHand) InputAxis(a input.Axis, x, y float64) {
	m.machine.InputAxis(a, x, y)
}

func (m *MotionControllerHand) InputButton(b input.Button, action input.Action) {
	m.machine.InputButton(b, action)
}

// PrePhysicsTick runs everything that must happen before the physics step
// except the bone update: timers, the anchor follow, grab detection, the grab
// pull and the behavior state.
func (m *MotionControllerHand) PrePhysicsTick(dt float64) {
	m.timer.Advance(dt)
	phantom := m.tracker.PhantomPose()
	m.link.SetAnchorPose(phantom)
	m.sphere.Update(phantom.Translation)
	m.negotiator.Tick(dt)
	m.machine.Tick(dt)
}

// UpdateBones pushes bone poses into the hand shapes. It only touches this
// hand's body.
func (m *MotionControllerHand) UpdateBones() int {
	if m.hand == nil {
		return 0
	}
	return m.hand.UpdateBones()
}

// Tick is PrePhysicsTick followed by UpdateBones.
func (m *MotionControllerHand) Tick(dt float64) {
	m.PrePhysicsTick(dt)
	m.UpdateBones()
}

// Destroy releases whatever is held and removes the hand and its anchor.
func (m *MotionControllerHand) Destroy() {
	m.timer.Cancel(m.trackingTask)
	m.timer.Cancel(m.resetTask)
	m.negotiator.Abort()
	m.machine.Unpair()
	m.sphere.Destroy()
	m.link.Destroy()
	m.following = false
	if m.hand != nil {
		if err := m.hand.Destroy(); err != nil {
			m.log.Debug("hand already destroyed", log.Error(err))
		}
		m.hand = nil
		m.negotiator.SetHandBody(nil)
	}
}

func (m *MotionControllerHand) OnConstraintCreated(_ physics.ActorHandle, bone string) {
	m.publish(bus.ConstraintCreated, bus.HandPayload{Hand: m.name, Bone: bone})
}

func (m *MotionControllerHand) OnConstraintBroken(_ physics.ActorHandle, bone string) {
	m.publish(bus.ConstraintBroken, bus.HandPayload{Hand: m.name, Bone: bone})
}

func (m *MotionControllerHand) publish(typ string, payload bus.HandPayload) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(bus.NewEvent(typ, "hand."+m.name, payload, nil)); err != nil {
		m.log.Warn("hand event handler failed", log.String("event", typ), log.Error(err))
	}
}
