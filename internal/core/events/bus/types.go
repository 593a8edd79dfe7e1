package bus

import "github.com/google/uuid"

// Event types published by the hand components.
const (
	HandSpawned           = "hand.spawned"
	HandTrackingExhausted = "hand.tracking_exhausted"
	HandTeleported        = "hand.teleported"

	ConstraintCreated = "constraint.created"
	ConstraintBroken  = "constraint.broken"

	GrabCandidate = "grab.candidate"
	GrabStarted   = "grab.started"
	GrabAttached  = "grab.attached"
	GrabReleased  = "grab.released"

	StateChanged = "controller.state_changed"
)

// GrabPayload accompanies every grab.* event. Session is shared by all
// events of one grab, from grab.started to grab.released.
type GrabPayload struct {
	Session uuid.UUID `json:"session"`
	Hand    string    `json:"hand"`
	Actor   string    `json:"actor"`
	// Deferred is set on grab.released when the release waited for the
	// attachment transition to finish.
	Deferred bool `json:"deferred,omitempty"`
}

type StatePayload struct {
	Hand string `json:"hand"`
	From string `json:"from"`
	To   string `json:"to"`
}

type HandPayload struct {
	Hand     string `json:"hand"`
	Bone     string `json:"bone,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
}
