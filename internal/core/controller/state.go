package controller

import "github.com/zeusync/vrhand/internal/core/input"

// State is one behavior mode of a controller. A Machine owns exactly one
// State at a time and replaces it on every transition.
type State interface {
	input.Receiver

	Name() string
	// Enter is called once the state is installed. Implementations that
	// override it must call Base.Enter.
	Enter(m *Machine)
	Exit()
	Tick(dt float64)
	// PairedStateChanged reports the paired controller entering or leaving
	// other.
	PairedStateChanged(other State, entered bool)
}

// Base gives a State no-op callbacks and access to its machine.
type Base struct {
	machine *Machine
}

func (b *Base) Enter(m *Machine)                       { b.machine = m }
func (b *Base) Exit()                                  {}
func (b *Base) Tick(float64)                           {}
func (b *Base) PairedStateChanged(State, bool)         {}
func (b *Base) InputAxis(input.Axis, float64, float64) {}
func (b *Base) InputButton(input.Button, input.Action) {}

// Machine returns the machine the state was entered on.
func (b *Base) Machine() *Machine { return b.machine }

// PairedState returns the current state of the paired controller, or nil.
func (b *Base) PairedState() State {
	if b.machine == nil {
		return nil
	}
	return b.machine.PairedState()
}

// emptyState is installed when a transition names an unknown state. It
// ignores all input.
type emptyState struct{ Base }

func (*emptyState) Name() string { return "" }
