package physics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/vrhand/internal/core/spatial"
)

// DefaultSleepEnergyThreshold is the kinetic energy per unit mass below which
// a simulating actor is put to sleep.
const DefaultSleepEnergyThreshold = 0.005

// ActorDesc describes a rigid actor at creation time.
type ActorDesc struct {
	Name      string
	Pose      spatial.Transform
	Mass      float64
	Simulate  bool
	Kinematic bool
	// EnableGravity applies scene gravity while simulating.
	EnableGravity bool
	Profile       string
	Shapes        []ShapeDesc
	// SleepEnergyThreshold overrides DefaultSleepEnergyThreshold when positive.
	SleepEnergyThreshold float64
}

// RigidActor is a simulated or kinematic body made of one or more shapes.
// Accessors are not synchronized: use Scene.ExecuteRead or Scene.ExecuteWrite.
type RigidActor struct {
	handle ActorHandle
	name   string

	globalPose      spatial.Transform
	linearVelocity  mgl64.Vec3
	angularVelocity mgl64.Vec3

	shapes []*Shape

	mass           float64
	simulating     bool
	kinematic      bool
	enableGravity  bool
	asleep         bool
	lowEnergySteps int
	sleepThreshold float64

	profile   string
	collision CollisionEnabled

	weld weldState
}

type weldState struct {
	parent   ActorHandle
	relative spatial.Transform
	// saved shape locals and simulate flag restored on unweld
	savedLocals   map[ShapeHandle]spatial.Transform
	savedSimulate bool
	children      []ActorHandle
}

func (a *RigidActor) Handle() ActorHandle                { return a.handle }
func (a *RigidActor) Name() string                       { return a.name }
func (a *RigidActor) GlobalPose() spatial.Transform      { return a.globalPose }
func (a *RigidActor) LinearVelocity() mgl64.Vec3         { return a.linearVelocity }
func (a *RigidActor) AngularVelocity() mgl64.Vec3        { return a.angularVelocity }
func (a *RigidActor) Mass() float64                      { return a.mass }
func (a *RigidActor) Kinematic() bool                    { return a.kinematic }
func (a *RigidActor) Asleep() bool                       { return a.asleep }
func (a *RigidActor) SleepEnergyThreshold() float64      { return a.sleepThreshold }
func (a *RigidActor) Profile() string                    { return a.profile }
func (a *RigidActor) CollisionEnabled() CollisionEnabled { return a.collision }

// Simulating reports whether the solver integrates this actor.
func (a *RigidActor) Simulating() bool { return a.simulating }

// WeldParent returns the actor this one is welded into, or NoActor.
func (a *RigidActor) WeldParent() ActorHandle { return a.weld.parent }

// Welded reports whether the actor currently lives inside another actor.
func (a *RigidActor) Welded() bool { return a.weld.parent != NoActor }

// WeldedChildren lists actors whose shapes were merged into this one.
func (a *RigidActor) WeldedChildren() []ActorHandle {
	out := make([]ActorHandle, len(a.weld.children))
	copy(out, a.weld.children)
	return out
}

// Shapes returns the shapes in native order. The slice is a copy; the shapes
// are shared.
func (a *RigidActor) Shapes() []*Shape {
	out := make([]*Shape, len(a.shapes))
	copy(out, a.shapes)
	return out
}

func (a *RigidActor) NumShapes() int { return len(a.shapes) }

// Shape finds a shape by handle.
func (a *RigidActor) Shape(h ShapeHandle) (*Shape, bool) {
	for _, s := range a.shapes {
		if s.handle == h {
			return s, true
		}
	}
	return nil, false
}

// ShapeWrites sums local-transform writes over every shape of the actor.
func (a *RigidActor) ShapeWrites() int {
	n := 0
	for _, s := range a.shapes {
		n += s.writes
	}
	return n
}

// SetGlobalPose moves the actor. Teleport clears velocities.
func (a *RigidActor) SetGlobalPose(t spatial.Transform, teleport bool) {
	a.globalPose = t
	a.asleep = false
	if teleport {
		a.linearVelocity = mgl64.Vec3{}
		a.angularVelocity = mgl64.Vec3{}
	}
}

func (a *RigidActor) SetLinearVelocity(v mgl64.Vec3) {
	a.linearVelocity = v
	a.asleep = false
}

func (a *RigidActor) SetAngularVelocity(v mgl64.Vec3) {
	a.angularVelocity = v
	a.asleep = false
}

// SetSimulating toggles integration. Welded actors keep following their parent.
func (a *RigidActor) SetSimulating(on bool) {
	if a.Welded() {
		a.weld.savedSimulate = on
		return
	}
	a.simulating = on
	a.asleep = false
	if !on {
		a.linearVelocity = mgl64.Vec3{}
		a.angularVelocity = mgl64.Vec3{}
	}
}

func (a *RigidActor) SetMass(kg float64) {
	if kg > 0 {
		a.mass = kg
	}
}

func (a *RigidActor) SetSleepEnergyThreshold(v float64) {
	if v >= 0 {
		a.sleepThreshold = v
	}
}

// WakeUp clears the sleep flag.
func (a *RigidActor) WakeUp() { a.asleep = false }

// SetCollisionEnabled overrides the profile's collision setting.
func (a *RigidActor) SetCollisionEnabled(c CollisionEnabled) { a.collision = c }

func (a *RigidActor) kineticEnergyPerMass() float64 {
	return 0.5 * (a.linearVelocity.Dot(a.linearVelocity) + a.angularVelocity.Dot(a.angularVelocity))
}
