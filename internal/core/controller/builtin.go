package controller

import (
	"math"

	"github.com/zeusync/vrhand/internal/core/input"
)

// Built-in state names.
const (
	StateIdle        = "idle"
	StateTeleportAim = "teleport_aim"
	StateGrab        = "grab"
)

func stickDeflection(x, y float64) float64 { return math.Hypot(x, y) }

// Idle waits for a grip press to grab or a thumbstick push to start aiming
// a teleport.
type Idle struct{ Base }

func (*Idle) Name() string { return StateIdle }

func (s *Idle) InputButton(b input.Button, action input.Action) {
	m := s.Machine()
	if b != input.ButtonGrip || action != input.Pressed || m.Grabber() == nil {
		return
	}
	if m.Grabber().TryGrab() {
		_ = m.ChangeState(StateGrab, true)
	}
}

func (s *Idle) InputAxis(a input.Axis, x, y float64) {
	m := s.Machine()
	if a != input.AxisThumbstick || m.Teleporter() == nil {
		return
	}
	if stickDeflection(x, y) > m.Deadzone() {
		_ = m.ChangeState(StateTeleportAim, true)
		m.Teleporter().UpdateAim(x, y)
	}
}

// TeleportAim follows the thumbstick and teleports once it is released.
// Grabbing is not possible while aiming.
type TeleportAim struct{ Base }

func (*TeleportAim) Name() string { return StateTeleportAim }

func (s *TeleportAim) InputAxis(a input.Axis, x, y float64) {
	m := s.Machine()
	if a != input.AxisThumbstick || m.Teleporter() == nil {
		return
	}
	if stickDeflection(x, y) > m.Deadzone() {
		m.Teleporter().UpdateAim(x, y)
		return
	}
	m.Teleporter().Teleport()
	_ = m.ChangeToDefault(true)
}

// InputButton aborts the teleport on a secondary button press.
func (s *TeleportAim) InputButton(b input.Button, action input.Action) {
	m := s.Machine()
	if b != input.ButtonSecondary || action != input.Pressed {
		return
	}
	if m.Teleporter() != nil {
		m.Teleporter().CancelAim()
	}
	_ = m.ChangeToDefault(true)
}

// Grab holds an object: releasing the grip drops it, pressing again drops
// objects that require a second press. It returns to the default state once
// nothing is held.
type Grab struct{ Base }

func (*Grab) Name() string { return StateGrab }

func (s *Grab) InputButton(b input.Button, action input.Action) {
	m := s.Machine()
	if b != input.ButtonGrip || m.Grabber() == nil {
		return
	}
	switch action {
	case input.Pressed:
		m.Grabber().TryGrab()
	case input.ReleasedPress:
		m.Grabber().TryRelease(false)
	}
}

func (s *Grab) Tick(float64) {
	m := s.Machine()
	if m.Grabber() == nil || !m.Grabber().IsGrabbing() {
		_ = m.ChangeToDefault(true)
	}
}
