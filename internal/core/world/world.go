package world

import (
	"fmt"
	"slices"
	"sync"

	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/core/physics"
	"github.com/zeusync/vrhand/internal/core/spatial"
)

// Handle addresses an actor slot. A slot reused after Destroy gets a new
// generation, so handles to the old occupant stop resolving. The zero Handle
// never resolves.
type Handle struct {
	Index      uint32
	Generation uint32
}

// None is the zero handle.
var None = Handle{}

func (h Handle) IsNone() bool { return h.Generation == 0 }

func (h Handle) String() string { return fmt.Sprintf("%d#%d", h.Index, h.Generation) }

// Spec describes an actor to spawn.
type Spec struct {
	Name      string
	Transform spatial.Transform
	// Body is an optional physics actor that owns the transform.
	Body physics.ActorHandle
	// Behavior carries the capabilities other systems look up by type
	// assertion, such as grab.Grabbable.
	Behavior any
}

// Actor is an entity record. Fields are only touched through World.
type Actor struct {
	handle    Handle
	name      string
	transform spatial.Transform
	body      physics.ActorHandle

	parent   Handle
	relative spatial.Transform
	welded   bool
	children []Handle

	behavior any
}

func (a *Actor) Handle() Handle            { return a.handle }
func (a *Actor) Name() string              { return a.name }
func (a *Actor) Body() physics.ActorHandle { return a.body }
func (a *Actor) Parent() Handle            { return a.parent }
func (a *Actor) Welded() bool              { return a.welded }
func (a *Actor) Behavior() any             { return a.behavior }
func (a *Actor) HasBody() bool             { return a.body != physics.NoActor }
func (a *Actor) Attached() bool            { return !a.parent.IsNone() }

type slot struct {
	actor      *Actor
	generation uint32
}

// World is an arena of actors addressed by generation-checked handles.
type World struct {
	mu    sync.RWMutex
	scene *physics.Scene
	slots []slot
	free  []uint32
	log   log.Log
}

type Option func(*World)

func WithLogger(l log.Log) Option {
	return func(w *World) { w.log = log.OrNop(l) }
}

// New creates an empty world whose physics-backed actors live in scene.
func New(scene *physics.Scene, opts ...Option) *World {
	w := &World{scene: scene, log: log.Nop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *World) Scene() *physics.Scene { return w.scene }

// Spawn adds an actor and returns its handle.
func (w *World) Spawn(spec Spec) Handle {
	w.mu.Lock()
	defer w.mu.Unlock()

	t := spec.Transform
	if t == (spatial.Transform{}) {
		t = spatial.Identity()
	}

	var idx uint32
	if n := len(w.free); n > 0 {
		idx = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		idx = uint32(len(w.slots))
		w.slots = append(w.slots, slot{})
	}
	s := &w.slots[idx]
	s.generation++
	h := Handle{Index: idx, Generation: s.generation}
	s.actor = &Actor{
		handle:    h,
		name:      spec.Name,
		transform: t,
		body:      spec.Body,
		behavior:  spec.Behavior,
	}

	w.log.Debug("actor spawned", log.String("actor", spec.Name), log.Stringer("handle", h))
	return h
}

// Get resolves h. The returned actor must not be retained across Destroy.
func (w *World) Get(h Handle) (*Actor, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.getLocked(h)
}

// Alive reports whether h still resolves.
func (w *World) Alive(h Handle) bool {
	_, ok := w.Get(h)
	return ok
}

func (w *World) getLocked(h Handle) (*Actor, bool) {
	if h.IsNone() || int(h.Index) >= len(w.slots) {
		return nil, false
	}
	s := w.slots[h.Index]
	if s.actor == nil || s.generation != h.Generation {
		return nil, false
	}
	return s.actor, true
}

// Behavior returns the capability value of h, or nil.
func (w *World) Behavior(h Handle) any {
	if a, ok := w.Get(h); ok {
		return a.behavior
	}
	return nil
}

// Destroy removes h. Children are detached and keep their world transforms;
// the physics actor, if any, is removed from the scene.
func (w *World) Destroy(h Handle) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	a, ok := w.getLocked(h)
	if !ok {
		return fmt.Errorf("destroy %s: %w", h, ErrStaleHandle)
	}
	for _, ch := range slices.Clone(a.children) {
		_ = w.detachLocked(ch)
	}
	if a.Attached() {
		_ = w.detachLocked(h)
	}
	if a.HasBody() && w.scene != nil {
		if err := w.scene.RemoveActor(a.body); err != nil {
			w.log.Debug("physics actor already removed", log.Error(err))
		}
	}

	w.slots[h.Index].actor = nil
	w.free = append(w.free, h.Index)
	w.log.Debug("actor destroyed", log.String("actor", a.name), log.Stringer("handle", h))
	return nil
}

// Transform returns the world transform of h.
func (w *World) Transform(h Handle) (spatial.Transform, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.getLocked(h)
	if !ok {
		return spatial.Identity(), false
	}
	return w.transformLocked(a), true
}

func (w *World) transformLocked(a *Actor) spatial.Transform {
	if a.Attached() {
		if p, ok := w.getLocked(a.parent); ok {
			return a.relative.Mul(w.transformLocked(p))
		}
	}
	if a.HasBody() && w.scene != nil {
		pose := a.transform
		if w.scene.ExecuteRead(a.body, func(ra *physics.RigidActor) { pose = ra.GlobalPose() }) {
			return pose
		}
	}
	return a.transform
}

// SetTransform moves h in world space. Attached actors update their offset
// from the parent; welded actors cannot be moved on their own.
func (w *World) SetTransform(h Handle, t spatial.Transform, teleport bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	a, ok := w.getLocked(h)
	if !ok {
		return fmt.Errorf("move %s: %w", h, ErrStaleHandle)
	}
	if a.welded {
		return fmt.Errorf("move %s: %w", a.name, ErrWelded)
	}
	if a.Attached() {
		if p, ok := w.getLocked(a.parent); ok {
			a.relative = t.RelativeTo(w.transformLocked(p))
			return nil
		}
	}
	a.transform = t
	if a.HasBody() && w.scene != nil {
		w.scene.ExecuteWrite(a.body, func(ra *physics.RigidActor) {
			ra.SetGlobalPose(t, teleport)
		})
	}
	return nil
}

// AttachTo parents child to parent keeping child's world transform. With
// weld and physics on both sides, child's shapes are merged into the parent's
// physics actor until Detach.
func (w *World) AttachTo(child, parent Handle, weld bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, ok := w.getLocked(child)
	if !ok {
		return fmt.Errorf("attach child %s: %w", child, ErrStaleHandle)
	}
	p, ok := w.getLocked(parent)
	if !ok {
		return fmt.Errorf("attach parent %s: %w", parent, ErrStaleHandle)
	}
	if c.Attached() {
		return fmt.Errorf("attach %s: %w", c.name, ErrAlreadyAttached)
	}
	for cur := p; ; {
		if cur == c {
			return fmt.Errorf("attach %s to %s: %w", c.name, p.name, ErrAttachCycle)
		}
		next, ok := w.getLocked(cur.parent)
		if !ok {
			break
		}
		cur = next
	}

	childWorld := w.transformLocked(c)
	parentWorld := w.transformLocked(p)

	if weld && c.HasBody() && p.HasBody() && w.scene != nil {
		if err := w.scene.Weld(c.body, p.body); err != nil {
			return fmt.Errorf("attach %s to %s: %w", c.name, p.name, err)
		}
		c.welded = true
	}

	c.parent = parent
	c.relative = childWorld.RelativeTo(parentWorld)
	p.children = append(p.children, child)

	w.log.Debug("actor attached",
		log.String("child", c.name),
		log.String("parent", p.name),
		log.Bool("weld", c.welded),
	)
	return nil
}

// Detach unparents child keeping its world transform.
func (w *World) Detach(child Handle) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.detachLocked(child)
}

func (w *World) detachLocked(child Handle) error {
	c, ok := w.getLocked(child)
	if !ok {
		return fmt.Errorf("detach %s: %w", child, ErrStaleHandle)
	}
	if !c.Attached() {
		return fmt.Errorf("detach %s: %w", c.name, ErrNotAttached)
	}

	worldT := w.transformLocked(c)
	if c.welded && w.scene != nil {
		if err := w.scene.Unweld(c.body); err != nil {
			w.log.Warn("unweld failed", log.String("actor", c.name), log.Error(err))
		}
	}
	if p, ok := w.getLocked(c.parent); ok {
		if i := slices.Index(p.children, child); i >= 0 {
			p.children = slices.Delete(p.children, i, i+1)
		}
	}

	c.parent = None
	c.welded = false
	c.relative = spatial.Identity()
	c.transform = worldT
	return nil
}

// Children lists the actors attached to h.
func (w *World) Children(h Handle) []Handle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.getLocked(h)
	if !ok {
		return nil
	}
	return slices.Clone(a.children)
}

// Each calls fn for every live actor in slot order.
func (w *World) Each(fn func(*Actor)) {
	w.mu.RLock()
	actors := make([]*Actor, 0, len(w.slots))
	for _, s := range w.slots {
		if s.actor != nil {
			actors = append(actors, s.actor)
		}
	}
	w.mu.RUnlock()
	for _, a := range actors {
		fn(a)
	}
}

// Len counts live actors.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.slots) - len(w.free)
}
