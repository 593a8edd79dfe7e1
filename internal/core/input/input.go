// Package input describes the VR controller input surface shared by
// behavior states and held objects.
package input

import "fmt"

type Axis uint8

const (
	AxisThumbstick Axis = iota
	AxisTrigger
	AxisGrip
)

func (a Axis) String() string {
	switch a {
	case AxisThumbstick:
		return "thumbstick"
	case AxisTrigger:
		return "trigger"
	case AxisGrip:
		return "grip"
	default:
		return fmt.Sprintf("axis(%d)", uint8(a))
	}
}

type Button uint8

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonThumbstick
	ButtonTrigger
	ButtonGrip
	ButtonMenu
	ButtonSystem
)

func (b Button) String() string {
	switch b {
	case ButtonPrimary:
		return "primary"
	case ButtonSecondary:
		return "secondary"
	case ButtonThumbstick:
		return "thumbstick"
	case ButtonTrigger:
		return "trigger"
	case ButtonGrip:
		return "grip"
	case ButtonMenu:
		return "menu"
	case ButtonSystem:
		return "system"
	default:
		return fmt.Sprintf("button(%d)", uint8(b))
	}
}

// Action is a discrete button event.
type Action uint8

const (
	Touched Action = iota
	Pressed
	ReleasedPress
	ReleasedTouch
)

func (a Action) String() string {
	switch a {
	case Touched:
		return "touched"
	case Pressed:
		return "pressed"
	case ReleasedPress:
		return "released_press"
	case ReleasedTouch:
		return "released_touch"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Receiver accepts raw controller input. For AxisThumbstick both x and y are
// meaningful; the other axes only use x.
type Receiver interface {
	InputAxis(axis Axis, x, y float64)
	InputButton(button Button, action Action)
}

// ConsumeFlags lists the input categories a held object keeps for itself.
// Menu and system buttons cannot be consumed.
type ConsumeFlags struct {
	Thumbstick       bool `json:"thumbstick" yaml:"thumbstick"`
	Trigger          bool `json:"trigger" yaml:"trigger"`
	Grip             bool `json:"grip" yaml:"grip"`
	PrimaryButton    bool `json:"primary_button" yaml:"primary_button"`
	SecondaryButton  bool `json:"secondary_button" yaml:"secondary_button"`
	ThumbstickButton bool `json:"thumbstick_button" yaml:"thumbstick_button"`
	TriggerButton    bool `json:"trigger_button" yaml:"trigger_button"`
	GripButton       bool `json:"grip_button" yaml:"grip_button"`
}

// ConsumesAxis reports whether axis is kept by the holder of these flags.
func (f ConsumeFlags) ConsumesAxis(a Axis) bool {
	switch a {
	case AxisThumbstick:
		return f.Thumbstick
	case AxisTrigger:
		return f.Trigger
	case AxisGrip:
		return f.Grip
	}
	return false
}

// ConsumesButton reports whether button is kept by the holder of these flags.
func (f ConsumeFlags) ConsumesButton(b Button) bool {
	switch b {
	case ButtonPrimary:
		return f.PrimaryButton
	case ButtonSecondary:
		return f.SecondaryButton
	case ButtonThumbstick:
		return f.ThumbstickButton
	case ButtonTrigger:
		return f.TriggerButton
	case ButtonGrip:
		return f.GripButton
	}
	return false
}

// Consumer is a Receiver that may take over some input categories while it
// is held.
type Consumer interface {
	Receiver
	ConsumeInputFlags() ConsumeFlags
}
