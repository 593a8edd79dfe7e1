package grab

import (
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/vrhand/internal/core/events/bus"
	"github.com/zeusync/vrhand/internal/core/input"
	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/core/schedule"
	"github.com/zeusync/vrhand/internal/core/spatial"
	"github.com/zeusync/vrhand/internal/core/world"
	"github.com/zeusync/vrhand/pkg/sequence"
)

const (
	DefaultAttachmentTime  = 200 * time.Millisecond
	DefaultNoCollisionTime = time.Second
)

// HandBody is the physical hand a Negotiator moves objects into.
type HandBody interface {
	// EnableCollision toggles the hand's collision with the world.
	EnableCollision(on bool)
	// AttachmentAnchor is the live world transform objects are pulled to.
	AttachmentAnchor() spatial.Transform
	// SetAttachmentOffset places the anchor relative to the hand.
	SetAttachmentOffset(offset spatial.Transform)
	// AttachActor welds actor onto the hand; DetachActor undoes it.
	AttachActor(actor world.Handle) error
	DetachActor(actor world.Handle) error
}

// State is the externally visible phase of a Negotiator.
type State uint8

const (
	Idle State = iota
	Overlapping
	Grabbing
	TransitioningToHand
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Overlapping:
		return "overlapping"
	case Grabbing:
		return "grabbing"
	case TransitioningToHand:
		return "transitioning_to_hand"
	default:
		return "unknown"
	}
}

// Negotiator runs the grab protocol for one controller: it tracks grabbable
// actors in reach, picks one on TryGrab, pulls it into the hand over the
// attachment time and releases it again.
//
// connected is set iff grabbing or transitioning. A release requested during
// the transition is honored right after the attachment completes.
type Negotiator struct {
	ctrl  Controller
	hand  HandBody
	world *world.World
	timer *schedule.Queue
	bus   bus.EventBus
	log   log.Log

	attachmentTime  time.Duration
	noCollisionTime time.Duration

	candidates    []world.Handle
	connected     world.Handle
	grabbing      bool
	transitioning bool
	lerp          float64
	initial       spatial.Transform
	playerInput   PlayerInput
	session       uuid.UUID
	recovery      schedule.TaskID
}

type Option func(*Negotiator)

// WithAttachmentTime sets how long the pull into the hand lasts.
func WithAttachmentTime(d time.Duration) Option {
	return func(n *Negotiator) { n.attachmentTime = d }
}

// WithNoCollisionTime sets how long the hand ignores collisions after a drop.
func WithNoCollisionTime(d time.Duration) Option {
	return func(n *Negotiator) { n.noCollisionTime = d }
}

func WithBus(b bus.EventBus) Option {
	return func(n *Negotiator) { n.bus = b }
}

func WithLogger(l log.Log) Option {
	return func(n *Negotiator) { n.log = log.OrNop(l) }
}

// NewNegotiator creates a negotiator for ctrl. hand may be nil until the
// physical hand exists; see SetHandBody.
func NewNegotiator(ctrl Controller, w *world.World, hand HandBody, opts ...Option) *Negotiator {
	n := &Negotiator{
		ctrl:            ctrl,
		hand:            hand,
		world:           w,
		attachmentTime:  DefaultAttachmentTime,
		noCollisionTime: DefaultNoCollisionTime,
		log:             log.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.timer = schedule.New(schedule.WithLogger(n.log))
	return n
}

// SetHandBody replaces the physical hand, e.g. once it has been spawned.
func (n *Negotiator) SetHandBody(hand HandBody) { n.hand = hand }

func (n *Negotiator) State() State {
	n.pruneCandidates()
	switch {
	case n.transitioning:
		return TransitioningToHand
	case n.grabbing:
		return Grabbing
	case len(n.candidates) > 0:
		return Overlapping
	default:
		return Idle
	}
}

func (n *Negotiator) IsGrabbing() bool      { return n.grabbing }
func (n *Negotiator) InTransition() bool    { return n.transitioning }
func (n *Negotiator) LerpProgress() float64 { return n.lerp }

// Connected returns the actor being held or pulled in.
func (n *Negotiator) Connected() (world.Handle, bool) {
	return n.connected, !n.connected.IsNone()
}

// PlayerInput returns the held object's input capability, if any.
func (n *Negotiator) PlayerInput() (PlayerInput, bool) {
	return n.playerInput, n.playerInput != nil
}

// Candidates returns the tracked candidates in overlap order.
func (n *Negotiator) Candidates() []world.Handle {
	n.pruneCandidates()
	out := make([]world.Handle, len(n.candidates))
	copy(out, n.candidates)
	return out
}

func (n *Negotiator) grabbable(h world.Handle) (Grabbable, bool) {
	g, ok := n.world.Behavior(h).(Grabbable)
	return g, ok
}

func (n *Negotiator) pruneCandidates() {
	n.candidates = sequence.From(n.candidates).Filter(n.world.Alive).Collect()
}

// OverlapBegin records an actor entering the grab sphere. Actors without the
// grab capability are ignored. It reports whether the actor was added.
func (n *Negotiator) OverlapBegin(h world.Handle) bool {
	g, ok := n.grabbable(h)
	if !ok {
		return false
	}
	if sequence.From(n.candidates).Any(func(c world.Handle) bool { return c == h }) {
		return false
	}
	n.candidates = append(n.candidates, h)
	if hn, ok := g.(HandNotified); ok {
		hn.OnCanBeGrabbedStart(n.ctrl)
	}
	n.publish(bus.GrabCandidate, h, uuid.Nil, false)
	return true
}

// OverlapEnd removes an actor from the candidates.
func (n *Negotiator) OverlapEnd(h world.Handle) bool {
	before := len(n.candidates)
	n.candidates = sequence.From(n.candidates).Filter(func(c world.Handle) bool { return c != h }).Collect()
	if len(n.candidates) == before {
		return false
	}
	if g, ok := n.grabbable(h); ok {
		if hn, ok := g.(HandNotified); ok {
			hn.OnCanBeGrabbedEnd(n.ctrl)
		}
	}
	return true
}

// HandContact forwards the physical hand touching or leaving an actor.
func (n *Negotiator) HandContact(h world.Handle, entered bool) {
	g, ok := n.grabbable(h)
	if !ok {
		return
	}
	if hn, ok := g.(HandNotified); ok {
		if entered {
			hn.OnHandEnter(n.ctrl)
		} else {
			hn.OnHandExit(n.ctrl)
		}
	}
}

// PhantomContact forwards the tracked hand overlapping or leaving an actor.
func (n *Negotiator) PhantomContact(h world.Handle, entered bool) {
	g, ok := n.grabbable(h)
	if !ok {
		return
	}
	if hn, ok := g.(HandNotified); ok {
		if entered {
			hn.OnPhantomHandEnter(n.ctrl)
		} else {
			hn.OnPhantomHandExit(n.ctrl)
		}
	}
}

// SelectClosestCandidate returns the candidate reporting the lowest squared
// distance that is not grab-disabled. Ties keep overlap order.
func (n *Negotiator) SelectClosestCandidate() (world.Handle, bool) {
	n.pruneCandidates()
	best, found := world.None, false
	bestDist := 0.0
	for _, h := range n.candidates {
		g, ok := n.grabbable(h)
		if !ok || g.IsGrabDisabled() {
			continue
		}
		d := g.SquaredDistanceTo(n.ctrl)
		if !found || d < bestDist {
			best, bestDist, found = h, d, true
		}
	}
	return best, found
}

// TryGrab grabs the closest eligible candidate. While holding an object that
// requires a second press to drop, it releases that object instead. It
// returns false while an attachment transition is running.
func (n *Negotiator) TryGrab() bool {
	if n.transitioning {
		return false
	}
	if n.grabbing {
		g, ok := n.grabbable(n.connected)
		if !ok || !g.RequiresSecondPressToDrop() || g.IsDropDisabled() {
			return false
		}
		return n.TryRelease(true)
	}

	h, ok := n.SelectClosestCandidate()
	if !ok {
		return false
	}
	g, _ := n.grabbable(h)

	n.grabbing = true
	n.connected = h
	n.session = uuid.New()
	n.playerInput, _ = g.(input.Consumer)
	g.OnGrab(n.ctrl)

	n.log.Debug("grab started",
		log.String("hand", n.ctrl.Name()),
		log.Stringer("actor", h),
		log.Bool("player_input", n.playerInput != nil),
	)
	n.publish(bus.GrabStarted, h, n.session, false)
	return true
}

// StartMovingActorToHandForAttachment begins pulling actor into the hand at
// offset from the hand. Hand collision stays off until the pull completes.
func (n *Negotiator) StartMovingActorToHandForAttachment(actor world.Handle, offset spatial.Transform) bool {
	if _, ok := n.grabbable(actor); !ok {
		n.log.Error("cannot attach actor to hand",
			log.String("hand", n.ctrl.Name()),
			log.Stringer("actor", actor),
			log.Error(ErrNotGrabbable),
		)
		return false
	}
	if n.hand == nil {
		n.log.Error("cannot attach actor to hand",
			log.String("hand", n.ctrl.Name()),
			log.Error(ErrNoHandBody),
		)
		return false
	}
	if n.transitioning {
		return false
	}
	if !n.connected.IsNone() && n.connected != actor {
		return false
	}
	initial, ok := n.world.Transform(actor)
	if !ok {
		return false
	}

	if n.connected.IsNone() {
		n.connected = actor
		n.session = uuid.New()
	}
	n.transitioning = true
	n.lerp = 0
	n.initial = initial
	n.hand.SetAttachmentOffset(offset)
	n.hand.EnableCollision(false)
	n.timer.Cancel(n.recovery)
	return true
}

// UpdateAttachedActorLocation advances the pull by dt seconds. The completion
// path runs exactly once, on the call that reaches the end of the pull.
func (n *Negotiator) UpdateAttachedActorLocation(dt float64) {
	if !n.transitioning {
		return
	}
	if !n.world.Alive(n.connected) {
		n.log.Debug("attaching actor vanished", log.String("hand", n.ctrl.Name()))
		n.transitioning = false
		n.grabbing = false
		n.clearConnection()
		if n.hand != nil {
			n.hand.EnableCollision(true)
		}
		return
	}
	if n.hand == nil {
		n.log.Debug("hand body gone during attachment", log.String("hand", n.ctrl.Name()))
		n.Abort()
		return
	}

	if secs := n.attachmentTime.Seconds(); secs > 0 {
		n.lerp += dt / secs
	} else {
		n.lerp = 1
	}
	if n.lerp > 1 {
		n.lerp = 1
	}

	target := n.hand.AttachmentAnchor().WithScale(n.initial.Scale)
	if n.lerp < 1 {
		_ = n.world.SetTransform(n.connected, spatial.Blend(n.initial, target, n.lerp), true)
		return
	}

	n.transitioning = false
	_ = n.world.SetTransform(n.connected, target, true)
	if err := n.hand.AttachActor(n.connected); err != nil {
		n.log.Warn("attach to hand failed",
			log.String("hand", n.ctrl.Name()),
			log.Stringer("actor", n.connected),
			log.Error(err),
		)
	}
	if g, ok := n.grabbable(n.connected); ok {
		g.OnFinishedAttachingToHand()
	}
	n.hand.EnableCollision(true)
	n.publish(bus.GrabAttached, n.connected, n.session, false)

	if !n.grabbing {
		n.drop(true)
	}
}

// TryRelease drops the held object. Unless force is set, objects that
// require a second press or disable dropping stay in the hand, also while
// they are being pulled in. Any other release during a transition is
// deferred and false is returned.
func (n *Negotiator) TryRelease(force bool) bool {
	if n.connected.IsNone() {
		return false
	}
	g, ok := n.grabbable(n.connected)
	if !force && ok && (g.RequiresSecondPressToDrop() || g.IsDropDisabled()) {
		return false
	}
	if n.transitioning {
		n.grabbing = false
		return false
	}
	if !ok {
		n.grabbing = false
		n.clearConnection()
		return false
	}
	n.drop(false)
	return true
}

// Abort ends a running pull and drops the connected actor at once. Drop
// policies are ignored and no collision recovery is scheduled. It is meant
// for tearing the hand down.
func (n *Negotiator) Abort() bool {
	if n.connected.IsNone() {
		return false
	}
	actor := n.connected
	n.transitioning = false
	n.grabbing = false
	n.lerp = 0
	n.timer.Cancel(n.recovery)

	if n.hand != nil {
		if err := n.hand.DetachActor(actor); err != nil {
			n.log.Debug("held actor was not attached", log.Stringer("actor", actor), log.Error(err))
		}
	}
	if g, ok := n.grabbable(actor); ok {
		g.OnDrop(n.ctrl)
	}
	n.publish(bus.GrabReleased, actor, n.session, false)
	n.clearConnection()
	return true
}

func (n *Negotiator) drop(deferred bool) {
	actor := n.connected
	n.grabbing = false

	if n.hand != nil {
		if err := n.hand.DetachActor(actor); err != nil {
			n.log.Debug("held actor was not attached", log.Stringer("actor", actor), log.Error(err))
		}
	}
	if g, ok := n.grabbable(actor); ok {
		g.OnDrop(n.ctrl)
	}
	n.publish(bus.GrabReleased, actor, n.session, deferred)
	n.clearConnection()

	if n.hand != nil {
		n.hand.EnableCollision(false)
		n.timer.Cancel(n.recovery)
		n.recovery = n.timer.After("collision-recovery", n.noCollisionTime, n.recoverCollision)
	}

	if next, ok := n.SelectClosestCandidate(); ok {
		if g, ok := n.grabbable(next); ok {
			if hn, ok := g.(HandNotified); ok {
				hn.OnCanBeGrabbedStart(n.ctrl)
			}
		}
		n.publish(bus.GrabCandidate, next, uuid.Nil, false)
	}
}

func (n *Negotiator) recoverCollision() {
	if n.transitioning || n.grabbing || n.hand == nil {
		return
	}
	n.hand.EnableCollision(true)
}

func (n *Negotiator) clearConnection() {
	n.connected = world.None
	n.playerInput = nil
	n.session = uuid.Nil
}

// HandTeleported tells the held object the hand was teleported.
func (n *Negotiator) HandTeleported() {
	if g, ok := n.grabbable(n.connected); ok {
		g.OnHandTeleported(n.ctrl)
	}
}

// Tick advances the collision-recovery timer and the attachment pull.
func (n *Negotiator) Tick(dt float64) {
	n.timer.Advance(dt)
	n.UpdateAttachedActorLocation(dt)
}

func (n *Negotiator) publish(typ string, actor world.Handle, session uuid.UUID, deferred bool) {
	if n.bus == nil {
		return
	}
	name := actor.String()
	if a, ok := n.world.Get(actor); ok {
		name = a.Name()
	}
	payload := bus.GrabPayload{Session: session, Hand: n.ctrl.Name(), Actor: name, Deferred: deferred}
	if err := n.bus.Publish(bus.NewEvent(typ, "hand."+n.ctrl.Name(), payload, nil)); err != nil {
		n.log.Warn("grab event handler failed", log.String("event", typ), log.Error(err))
	}
}
