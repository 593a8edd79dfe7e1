package sim

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/vrhand/internal/core/input"
	"github.com/zeusync/vrhand/internal/core/spatial"
	"github.com/zeusync/vrhand/pkg/sequence"
)

// Cue is one scripted action fired once simulated time reaches At.
type Cue struct {
	At   time.Duration
	Name string
	Do   func(*Sim)

	seq int
}

// Track reports hand as tracked at relative (pawn space).
func Track(hand string, relative mgl64.Vec3) func(*Sim) {
	return func(s *Sim) {
		if c, ok := s.trackers[hand]; ok {
			c.Update(true, spatial.FromTranslation(relative))
		}
	}
}

// Untrack reports hand as lost.
func Untrack(hand string) func(*Sim) {
	return func(s *Sim) {
		if c, ok := s.trackers[hand]; ok {
			c.Update(false, spatial.Identity())
		}
	}
}

// Press sends a button action to hand.
func Press(hand string, b input.Button, a input.Action) func(*Sim) {
	return func(s *Sim) {
		if h, ok := s.hands[hand]; ok {
			h.InputButton(b, a)
		}
	}
}

// Stick sends an axis value to hand.
func Stick(hand string, a input.Axis, x, y float64) func(*Sim) {
	return func(s *Sim) {
		if h, ok := s.hands[hand]; ok {
			h.InputAxis(a, x, y)
		}
	}
}

// Prop positions of the default scene, relative to the pawn.
var (
	cubeLocation = mgl64.Vec3{0.5, 0.25, 1.0}
	toolLocation = mgl64.Vec3{0.5, -0.25, 1.0}
)

// DefaultScript tracks both controllers, grabs and releases the cube with
// the left hand, grabs the sticky tool with the right hand and drops it with
// a second press, then teleports the pawn forward.
func DefaultScript() []Cue {
	ms := time.Millisecond
	return []Cue{
		{At: 200 * ms, Name: "track left", Do: Track(Left, mgl64.Vec3{0.3, 0.25, 1.0})},
		{At: 200 * ms, Name: "track right", Do: Track(Right, mgl64.Vec3{0.3, -0.25, 1.0})},
		{At: 1000 * ms, Name: "reach cube", Do: Track(Left, cubeLocation)},
		{At: 1100 * ms, Name: "grip cube", Do: Press(Left, input.ButtonGrip, input.Pressed)},
		{At: 1600 * ms, Name: "release cube", Do: Press(Left, input.ButtonGrip, input.ReleasedPress)},
		{At: 1700 * ms, Name: "reach tool", Do: Track(Right, toolLocation)},
		{At: 1800 * ms, Name: "grip tool", Do: Press(Right, input.ButtonGrip, input.Pressed)},
		{At: 2000 * ms, Name: "let go of grip", Do: Press(Right, input.ButtonGrip, input.ReleasedPress)},
		{At: 2200 * ms, Name: "drop tool", Do: Press(Right, input.ButtonGrip, input.Pressed)},
		{At: 2250 * ms, Name: "let go of grip", Do: Press(Right, input.ButtonGrip, input.ReleasedPress)},
		{At: 2400 * ms, Name: "aim teleport", Do: Stick(Right, input.AxisThumbstick, 0, 1)},
		{At: 2600 * ms, Name: "teleport", Do: Stick(Right, input.AxisThumbstick, 0, 0)},
	}
}

// timeline yields cues in time order; cues sharing a time keep script order.
type timeline struct {
	queue *sequence.PriorityQueue[Cue]
}

func newTimeline(cues []Cue) *timeline {
	t := &timeline{queue: sequence.NewPriorityQueue(func(a, b Cue) bool {
		if a.At != b.At {
			return a.At < b.At
		}
		return a.seq < b.seq
	})}
	for i, c := range cues {
		c.seq = i
		t.queue.Enqueue(c)
	}
	return t
}

// due pops every cue scheduled at or before now.
func (t *timeline) due(now time.Duration) []Cue {
	var out []Cue
	for {
		c, ok := t.queue.Peek()
		if !ok || c.At > now {
			return out
		}
		t.queue.Dequeue()
		out = append(out, c)
	}
}

func (t *timeline) Len() int { return t.queue.Len() }
