package physics

import (
	"fmt"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/core/spatial"
)

// StandardGravity in meters per second squared along -Z.
var StandardGravity = mgl64.Vec3{0, 0, -9.81}

// Scene owns every rigid actor and constraint. All actor state is guarded by a
// single scene lock; callbacks passed to ExecuteRead/ExecuteWrite run with the
// lock held and must not call back into the Scene.
type Scene struct {
	mu sync.Mutex

	actors      map[ActorHandle]*RigidActor
	constraints map[ConstraintHandle]*Constraint
	profiles    map[string]CollisionEnabled

	nextActor      ActorHandle
	nextShape      ShapeHandle
	nextConstraint ConstraintHandle

	gravity mgl64.Vec3
	log     log.Log
}

type SceneOption func(*Scene)

func WithGravity(g mgl64.Vec3) SceneOption {
	return func(s *Scene) { s.gravity = g }
}

func WithLogger(l log.Log) SceneOption {
	return func(s *Scene) { s.log = log.OrNop(l) }
}

// WithProfile registers an extra collision profile.
func WithProfile(name string, enabled CollisionEnabled) SceneOption {
	return func(s *Scene) { s.profiles[name] = enabled }
}

func NewScene(opts ...SceneOption) *Scene {
	s := &Scene{
		actors:      make(map[ActorHandle]*RigidActor),
		constraints: make(map[ConstraintHandle]*Constraint),
		profiles:    defaultProfiles(),
		gravity:     StandardGravity,
		log:         log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Guard holds the scene lock until Release. Release is idempotent.
type Guard struct {
	scene    *Scene
	once     sync.Once
	released bool
}

// Lock acquires the scene lock and returns its guard.
func (s *Scene) Lock() *Guard {
	s.mu.Lock()
	return &Guard{scene: s}
}

func (g *Guard) Release() {
	g.once.Do(func() {
		g.released = true
		g.scene.mu.Unlock()
	})
}

// Actor resolves h while the guard is held.
func (g *Guard) Actor(h ActorHandle) (*RigidActor, bool) {
	if g.released {
		return nil, false
	}
	a, ok := g.scene.actors[h]
	return a, ok
}

// ExecuteWrite runs fn on actor h under the scene lock. It returns false when
// the actor does not exist.
func (s *Scene) ExecuteWrite(h ActorHandle, fn func(*RigidActor)) bool {
	g := s.Lock()
	defer g.Release()
	a, ok := g.Actor(h)
	if !ok {
		return false
	}
	fn(a)
	return true
}

// ExecuteRead is ExecuteWrite for callers that only inspect the actor.
func (s *Scene) ExecuteRead(h ActorHandle, fn func(*RigidActor)) bool {
	return s.ExecuteWrite(h, fn)
}

// CreateActor adds an actor built from desc and returns its handle.
func (s *Scene) CreateActor(desc ActorDesc) ActorHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextActor++
	h := s.nextActor

	pose := desc.Pose
	if pose == (spatial.Transform{}) {
		pose = spatial.Identity()
	}
	mass := desc.Mass
	if mass <= 0 {
		mass = 1
	}
	threshold := desc.SleepEnergyThreshold
	if threshold <= 0 {
		threshold = DefaultSleepEnergyThreshold
	}
	profile := desc.Profile
	if profile == "" {
		profile = ProfileBlockAll
	}
	collision, ok := s.profiles[profile]
	if !ok {
		s.log.Warn("unknown collision profile, using BlockAll",
			log.String("actor", desc.Name), log.String("profile", profile))
		profile, collision = ProfileBlockAll, QueryAndPhysics
	}

	a := &RigidActor{
		handle:         h,
		name:           desc.Name,
		globalPose:     pose,
		mass:           mass,
		simulating:     desc.Simulate && !desc.Kinematic,
		kinematic:      desc.Kinematic,
		enableGravity:  desc.EnableGravity,
		sleepThreshold: threshold,
		profile:        profile,
		collision:      collision,
		shapes:         make([]*Shape, 0, len(desc.Shapes)),
	}
	for _, sd := range desc.Shapes {
		s.nextShape++
		local := sd.Local
		if local == (spatial.Transform{}) {
			local = spatial.Identity()
		}
		a.shapes = append(a.shapes, &Shape{
			handle:      s.nextShape,
			name:        sd.Name,
			origin:      h,
			local:       local,
			halfExtents: sd.HalfExtents,
		})
	}
	s.actors[h] = a

	s.log.Debug("physics actor created",
		log.String("actor", desc.Name),
		log.Uint64("handle", uint64(h)),
		log.Int("shapes", len(a.shapes)),
	)
	return h
}

// RemoveActor deletes h, unwelding it and breaking constraints that use it.
func (s *Scene) RemoveActor(h ActorHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actors[h]
	if !ok {
		return fmt.Errorf("remove %d: %w", h, ErrActorNotFound)
	}
	for _, child := range slices.Clone(a.weld.children) {
		_ = s.unweldLocked(child)
	}
	if a.Welded() {
		_ = s.unweldLocked(h)
	}
	for ch, c := range s.constraints {
		if c.anchor == h || c.target == h {
			delete(s.constraints, ch)
		}
	}
	delete(s.actors, h)
	return nil
}

// Exists reports whether h resolves.
func (s *Scene) Exists(h ActorHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.actors[h]
	return ok
}

// SetProfile applies a named collision profile to h.
func (s *Scene) SetProfile(h ActorHandle, profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled, ok := s.profiles[profile]
	if !ok {
		return fmt.Errorf("%s: %w", profile, ErrUnknownProfile)
	}
	a, ok := s.actors[h]
	if !ok {
		return fmt.Errorf("set profile on %d: %w", h, ErrActorNotFound)
	}
	a.profile = profile
	a.collision = enabled
	return nil
}

// ProfileCollision returns the collision setting a profile maps to.
func (s *Scene) ProfileCollision(profile string) (CollisionEnabled, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.profiles[profile]
	return c, ok
}

func (s *Scene) Gravity() mgl64.Vec3 { return s.gravity }
