package weld

import (
	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/core/physics"
	"github.com/zeusync/vrhand/internal/core/skeleton"
	"github.com/zeusync/vrhand/internal/core/spatial"
)

// Host is the skeletal body a Driver works on. *physics.SkeletalBody
// satisfies it.
type Host interface {
	Scene() *physics.Scene
	Mesh() *skeleton.Mesh
	Bodies() []*physics.Body
}

// Binding ties one collision shape to the bone that drives it.
type Binding struct {
	Bone  string
	Shape physics.ShapeHandle
	// Rest is the shape's offset from its bone in the reference pose.
	Rest spatial.Transform
	// LastLocal is the last local transform written to the shape.
	LastLocal spatial.Transform
}

// Driver updates welded shape transforms from bone poses.
type Driver struct {
	host     Host
	bindings []Binding
	byShape  map[physics.ShapeHandle]int

	autoSleep       bool
	sleepMultiplier float64
	tolerance       float64
	// baseSleep holds each root actor's threshold before it was first scaled.
	baseSleep       map[physics.ActorHandle]float64

	log log.Log
}

type Option func(*Driver)

// WithAutoSleepSensitivity controls whether Setup rescales the root actor's
// sleep threshold. Enabled by default.
func WithAutoSleepSensitivity(on bool) Option {
	return func(d *Driver) { d.autoSleep = on }
}

// WithSleepThresholdMultiplier sets the custom sleep multiplier. The default
// of zero keeps an animated hand from ever falling asleep.
func WithSleepThresholdMultiplier(m float64) Option {
	return func(d *Driver) { d.sleepMultiplier = m }
}

// WithTolerance overrides the transform equality epsilon used to skip writes.
func WithTolerance(eps float64) Option {
	return func(d *Driver) { d.tolerance = eps }
}

func WithLogger(l log.Log) Option {
	return func(d *Driver) { d.log = log.OrNop(l) }
}

func New(opts ...Option) *Driver {
	d := &Driver{
		autoSleep: true,
		tolerance: spatial.DefaultTolerance,
		byShape:   make(map[physics.ShapeHandle]int),
		baseSleep: make(map[physics.ActorHandle]float64),
		log:       log.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Attach binds the driver to host and runs Setup unless skipInit is set.
// Passing a nil host detaches.
func (d *Driver) Attach(host Host, skipInit bool) {
	d.host = host
	if !skipInit {
		d.Setup(false)
	}
}

// Refresh rebuilds bindings keeping the rest offsets captured earlier.
func (d *Driver) Refresh() { d.Setup(true) }

// Detach drops the host and every binding.
func (d *Driver) Detach() {
	d.host = nil
	d.reset()
}

// Bindings returns a copy of the current bindings in shape order.
func (d *Driver) Bindings() []Binding {
	out := make([]Binding, len(d.bindings))
	copy(out, d.bindings)
	return out
}

func (d *Driver) reset() {
	d.bindings = nil
	d.byShape = make(map[physics.ShapeHandle]int)
}

// rootBody returns the first body of the host and the actor whose shapes it
// lives in. ok is false when a precondition is missing.
func (d *Driver) rootBody() (body *physics.Body, actor physics.ActorHandle, welded bool, ok bool) {
	if d.host == nil || d.host.Mesh() == nil || d.host.Scene() == nil {
		return nil, physics.NoActor, false, false
	}
	bodies := d.host.Bodies()
	if len(bodies) == 0 {
		return nil, physics.NoActor, false, false
	}
	body = bodies[0]
	if parent := body.WeldParent(); parent != physics.NoActor {
		return body, parent, true, true
	}
	return body, body.Actor(), false, true
}

// Setup rebuilds the bindings from the shapes of the root actor. With reinit,
// rest offsets of the previous bindings are reused by position for as long as
// there are enough of them. Missing preconditions leave the driver empty.
func (d *Driver) Setup(reinit bool) {
	var previous []Binding
	if reinit {
		previous = d.bindings
	}
	d.reset()

	body, actor, welded, ok := d.rootBody()
	if !ok {
		return
	}
	mesh := d.host.Mesh()
	sk := mesh.Skeleton()

	found := d.host.Scene().ExecuteWrite(actor, func(a *physics.RigidActor) {
		for _, sh := range a.Shapes() {
			bone := sh.Name()
			if mesh.BoneIndex(bone) == skeleton.IndexNone {
				continue
			}

			b := Binding{
				Bone:      bone,
				Shape:     sh.Handle(),
				LastLocal: spatial.Identity(),
			}
			if reinit && len(previous) > len(d.bindings) {
				b.Rest = previous[len(d.bindings)].Rest
			} else {
				b.Rest = sh.LocalTransform().Mul(skeleton.RefPoseRelativeToRoot(sk, bone).Inverse())
			}

			d.byShape[b.Shape] = len(d.bindings)
			d.bindings = append(d.bindings, b)
		}

		if d.autoSleep && !welded && len(d.bindings) > 0 {
			body.SetCustomSleepThresholdMultiplier(d.sleepMultiplier)
			base, seen := d.baseSleep[actor]
			if !seen {
				base = a.SleepEnergyThreshold()
				d.baseSleep[actor] = base
			}
			a.SetSleepEnergyThreshold(base * body.SleepThresholdMultiplier())
		}
	})
	if !found {
		return
	}

	d.log.Debug("welded bone driver set up",
		log.Bool("reinit", reinit),
		log.Int("bindings", len(d.bindings)),
		log.Bool("welded", welded),
	)
}

// Update pushes bone-driven local transforms to the bound shapes and returns
// the number of shapes written. It does nothing unless the root body is
// simulating or welded.
func (d *Driver) Update() int {
	if len(d.bindings) == 0 {
		return 0
	}
	body, actor, welded, ok := d.rootBody()
	if !ok {
		return 0
	}
	if !welded && !body.Simulating() {
		return 0
	}
	mesh := d.host.Mesh()

	writes := 0
	d.host.Scene().ExecuteWrite(actor, func(a *physics.RigidActor) {
		inverse := a.GlobalPose().Inverse()
		for _, sh := range a.Shapes() {
			i, bound := d.byShape[sh.Handle()]
			if !bound {
				continue
			}
			b := &d.bindings[i]

			boneWorld, _ := mesh.SocketTransform(b.Bone, skeleton.SpaceWorld)
			local := b.Rest.Mul(boneWorld).Mul(inverse)
			if b.LastLocal.Equals(local, d.tolerance) {
				continue
			}
			sh.SetLocalTransform(local)
			b.LastLocal = local
			writes++
		}
	})
	return writes
}
