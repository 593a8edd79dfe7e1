package controller

import (
	"github.com/zeusync/vrhand/internal/core/events/bus"
	"github.com/zeusync/vrhand/internal/core/input"
	"github.com/zeusync/vrhand/internal/core/observability/log"
)

// DefaultDeadzone is the thumbstick deflection below which the stick counts
// as centered.
const DefaultDeadzone = 0.5

// Grabber is the grab side of a controller. *grab.Negotiator satisfies it.
type Grabber interface {
	TryGrab() bool
	TryRelease(force bool) bool
	IsGrabbing() bool
	PlayerInput() (input.Consumer, bool)
}

// Teleporter performs pawn teleports. Aim prediction happens behind it.
type Teleporter interface {
	UpdateAim(x, y float64)
	CancelAim()
	Teleport() bool
}

// Machine switches one controller between behavior states and routes input
// to the held object and the current state.
type Machine struct {
	name         string
	registry     *Registry
	defaultState string
	deadzone     float64

	current State
	paired  *Machine

	grabber    Grabber
	teleporter Teleporter
	axes       [3][2]float64

	bus bus.EventBus
	log log.Log
}

type Option func(*Machine)

func WithGrabber(g Grabber) Option {
	return func(m *Machine) { m.grabber = g }
}

func WithTeleporter(t Teleporter) Option {
	return func(m *Machine) { m.teleporter = t }
}

// WithDefaultState names the state ChangeToDefault installs. Defaults to idle.
func WithDefaultState(name string) Option {
	return func(m *Machine) { m.defaultState = name }
}

func WithDeadzone(d float64) Option {
	return func(m *Machine) { m.deadzone = d }
}

func WithBus(b bus.EventBus) Option {
	return func(m *Machine) { m.bus = b }
}

func WithLogger(l log.Log) Option {
	return func(m *Machine) { m.log = log.OrNop(l) }
}

// New creates a machine named after its hand. It holds an inert state until
// ChangeState or ChangeToDefault is called.
func New(name string, registry *Registry, opts ...Option) *Machine {
	m := &Machine{
		name:         name,
		registry:     registry,
		defaultState: StateIdle,
		deadzone:     DefaultDeadzone,
		current:      &emptyState{},
		log:          log.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Name() string           { return m.name }
func (m *Machine) Current() State         { return m.current }
func (m *Machine) Paired() *Machine       { return m.paired }
func (m *Machine) Grabber() Grabber       { return m.grabber }
func (m *Machine) Teleporter() Teleporter { return m.teleporter }
func (m *Machine) Deadzone() float64      { return m.deadzone }

// SetGrabber replaces the grab collaborator, e.g. after the hand respawned.
func (m *Machine) SetGrabber(g Grabber) { m.grabber = g }

// PairedState returns the current state of the paired machine, or nil.
func (m *Machine) PairedState() State {
	if m.paired == nil {
		return nil
	}
	return m.paired.current
}

// Pair cross-references two machines so their states can react to each other.
func Pair(a, b *Machine) {
	if a == nil || b == nil || a == b {
		return
	}
	a.paired = b
	b.paired = a
}

// Unpair drops the cross-reference on both sides.
func (m *Machine) Unpair() {
	if m.paired != nil && m.paired.paired == m {
		m.paired.paired = nil
	}
	m.paired = nil
}

// ChangeState exits the current state, builds name from the registry and
// enters it. With notifyPaired, the paired machine's state is told about the
// exit and the entry. An unknown name installs an inert state and returns
// ErrUnknownState.
func (m *Machine) ChangeState(name string, notifyPaired bool) error {
	prev := m.current
	prev.Exit()
	if notifyPaired {
		m.notifyPaired(prev, false)
	}

	var next State
	var err error
	if m.registry == nil {
		err = ErrNoRegistry
	} else {
		next, err = m.registry.New(name)
	}
	if err != nil {
		m.log.Error("cannot create controller state, input is disabled",
			log.String("hand", m.name),
			log.String("state", name),
			log.Error(err),
		)
		m.current = &emptyState{}
		m.current.Enter(m)
		return err
	}

	m.current = next
	next.Enter(m)
	if notifyPaired {
		m.notifyPaired(next, true)
	}

	m.log.Debug("controller state changed",
		log.String("hand", m.name),
		log.String("from", prev.Name()),
		log.String("to", next.Name()),
	)
	if m.bus != nil {
		payload := bus.StatePayload{Hand: m.name, From: prev.Name(), To: next.Name()}
		if err := m.bus.Publish(bus.NewEvent(bus.StateChanged, "hand."+m.name, payload, nil)); err != nil {
			m.log.Warn("state event handler failed", log.Error(err))
		}
	}
	return nil
}

// ChangeToDefault installs the configured start state.
func (m *Machine) ChangeToDefault(notifyPaired bool) error {
	return m.ChangeState(m.defaultState, notifyPaired)
}

func (m *Machine) notifyPaired(s State, entered bool) {
	if other := m.PairedState(); other != nil {
		other.PairedStateChanged(s, entered)
	}
}

func (m *Machine) Tick(dt float64) { m.current.Tick(dt) }

// Axis returns the last values received for an axis.
func (m *Machine) Axis(a input.Axis) (x, y float64) {
	if int(a) >= len(m.axes) {
		return 0, 0
	}
	return m.axes[a][0], m.axes[a][1]
}

func (m *Machine) heldInput() (input.Consumer, bool) {
	if m.grabber == nil {
		return nil, false
	}
	return m.grabber.PlayerInput()
}

// InputAxis offers the axis to the held object first. The current state only
// sees it if the held object does not consume that axis.
func (m *Machine) InputAxis(a input.Axis, x, y float64) {
	if int(a) < len(m.axes) {
		m.axes[a] = [2]float64{x, y}
	}
	if held, ok := m.heldInput(); ok {
		held.InputAxis(a, x, y)
		if held.ConsumeInputFlags().ConsumesAxis(a) {
			return
		}
	}
	m.current.InputAxis(a, x, y)
}

// InputButton routes a button event like InputAxis.
func (m *Machine) InputButton(b input.Button, action input.Action) {
	if held, ok := m.heldInput(); ok {
		held.InputButton(b, action)
		if held.ConsumeInputFlags().ConsumesButton(b) {
			return
		}
	}
	m.current.InputButton(b, action)
}
