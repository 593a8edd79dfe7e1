package rig

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/vrhand/internal/core/grab"
	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/core/physics"
	"github.com/zeusync/vrhand/internal/core/spatial"
	"github.com/zeusync/vrhand/internal/core/world"
)

// DefaultGrabRadius is the reach of the grab sphere in meters.
const DefaultGrabRadius = 0.1

// Overlapper receives grab sphere overlap changes. *grab.Negotiator
// satisfies it.
type Overlapper interface {
	OverlapBegin(h world.Handle) bool
	OverlapEnd(h world.Handle) bool
}

// GrabSphere is the query volume around a controller that turns nearby
// grabbable actors into grab candidates.
type GrabSphere struct {
	world  *world.World
	actor  physics.ActorHandle
	radius float64
	target Overlapper
	inside map[world.Handle]struct{}
	active bool
	log    log.Log
}

// NewGrabSphere creates the sphere actor with profile. A profile that does
// not answer queries leaves the sphere inert.
func NewGrabSphere(w *world.World, name, profile string, radius float64, target Overlapper, l log.Log) *GrabSphere {
	s := &GrabSphere{
		world:  w,
		radius: radius,
		target: target,
		inside: make(map[world.Handle]struct{}),
		log:    log.OrNop(l),
	}
	s.actor = w.Scene().CreateActor(physics.ActorDesc{
		Name:      name,
		Kinematic: true,
		Profile:   profile,
		Shapes:    []physics.ShapeDesc{{Name: name, HalfExtents: [3]float64{radius, radius, radius}}},
	})
	enabled, ok := w.Scene().ProfileCollision(profile)
	s.active = ok && enabled.HasQuery()
	if !s.active {
		s.log.Error("grab detection profile does not answer queries, grabbing is disabled",
			log.String("sphere", name),
			log.String("profile", profile),
		)
	}
	return s
}

func (s *GrabSphere) Actor() physics.ActorHandle { return s.actor }
func (s *GrabSphere) Active() bool               { return s.active }

// Inside reports whether h is currently overlapped.
func (s *GrabSphere) Inside(h world.Handle) bool {
	_, ok := s.inside[h]
	return ok
}

// Update moves the sphere to center and reports actors entering and leaving
// it. Attached actors and actors without query collision are ignored.
func (s *GrabSphere) Update(center mgl64.Vec3) {
	if !s.active {
		return
	}
	s.world.Scene().ExecuteWrite(s.actor, func(a *physics.RigidActor) {
		a.SetGlobalPose(spatial.FromTranslation(center), false)
	})

	seen := make(map[world.Handle]struct{}, len(s.inside))
	var order []world.Handle
	s.world.Each(func(a *world.Actor) {
		if a.Attached() {
			return
		}
		if _, ok := a.Behavior().(grab.Grabbable); !ok {
			return
		}
		if a.HasBody() && !s.queryable(a.Body()) {
			return
		}
		t, ok := s.world.Transform(a.Handle())
		if !ok || t.Translation.Sub(center).LenSqr() > s.radius*s.radius {
			return
		}
		seen[a.Handle()] = struct{}{}
		order = append(order, a.Handle())
	})

	for h := range s.inside {
		if _, ok := seen[h]; !ok {
			delete(s.inside, h)
			s.target.OverlapEnd(h)
		}
	}
	for _, h := range order {
		if _, ok := s.inside[h]; ok {
			continue
		}
		if s.target.OverlapBegin(h) {
			s.inside[h] = struct{}{}
		}
	}
}

func (s *GrabSphere) queryable(body physics.ActorHandle) bool {
	on := false
	s.world.Scene().ExecuteRead(body, func(a *physics.RigidActor) {
		on = a.CollisionEnabled().HasQuery()
	})
	return on
}

// Destroy ends every overlap and removes the sphere actor. The sphere stays
// inert afterwards.
func (s *GrabSphere) Destroy() {
	for h := range s.inside {
		s.target.OverlapEnd(h)
	}
	clear(s.inside)
	s.active = false
	_ = s.world.Scene().RemoveActor(s.actor)
}
