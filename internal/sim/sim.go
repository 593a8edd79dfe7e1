package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/vrhand/internal/config"
	"github.com/zeusync/vrhand/internal/core/controller"
	"github.com/zeusync/vrhand/internal/core/events/bus"
	"github.com/zeusync/vrhand/internal/core/grab"
	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/core/physics"
	"github.com/zeusync/vrhand/internal/core/rig"
	"github.com/zeusync/vrhand/internal/core/spatial"
	"github.com/zeusync/vrhand/internal/core/systems"
	"github.com/zeusync/vrhand/internal/core/world"
)

const (
	Left  = "left"
	Right = "right"
)

// ErrFinished is returned by Step once the configured tick count has run.
var ErrFinished = errors.New("simulation finished")

// Sim owns the scene, both hands and the props they can grab.
type Sim struct {
	cfg      *config.Config
	world    *world.World
	bus      bus.EventBus
	pawn     *rig.Pawn
	pool     *rig.Pool
	runner   *systems.Runner
	teleport *PawnTeleporter

	hands    map[string]*rig.MotionControllerHand
	trackers map[string]*rig.TrackedController
	cube     *grab.Pickup
	tool     *grab.Pickup

	script   *timeline
	dt       time.Duration
	now      time.Duration
	ticks    int
	realtime bool

	mu     sync.Mutex
	counts map[string]int

	log log.Log
}

type Option func(*Sim)

func WithLogger(l log.Log) Option {
	return func(s *Sim) { s.log = log.OrNop(l) }
}

// WithBus publishes hand events on b instead of a private bus.
func WithBus(b bus.EventBus) Option {
	return func(s *Sim) { s.bus = b }
}

// WithScript replaces DefaultScript.
func WithScript(cues []Cue) Option {
	return func(s *Sim) { s.script = newTimeline(cues) }
}

// WithRealtime paces Run at the configured tick rate.
func WithRealtime(on bool) Option {
	return func(s *Sim) { s.realtime = on }
}

// New builds the scene described by cfg: a pawn with two paired hands, a
// cube pickup in front of the left hand and a sticky tool in front of the
// right hand.
func New(cfg *config.Config, opts ...Option) (*Sim, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Sim{
		cfg:      cfg,
		dt:       cfg.TickInterval(),
		hands:    make(map[string]*rig.MotionControllerHand, 2),
		trackers: make(map[string]*rig.TrackedController, 2),
		counts:   make(map[string]int),
		log:      log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = bus.New()
	}
	if s.script == nil {
		s.script = newTimeline(DefaultScript())
	}
	if _, err := s.bus.SubscribeAll(s.count); err != nil {
		return nil, err
	}

	scene := physics.NewScene(physics.WithLogger(s.log.With(log.String("component", "physics"))))
	s.world = world.New(scene, world.WithLogger(s.log.With(log.String("component", "world"))))
	s.pawn = rig.NewPawn(spatial.Identity())
	s.pawn.SetCamera(mgl64.Vec3{0, 0, 1.6})
	s.teleport = NewPawnTeleporter(s.pawn, DefaultTeleportReach, s.log)
	s.pool = rig.NewPool(s.log)

	registry := controller.NewDefaultRegistry()
	settings := cfg.ControllerSettings()
	for _, name := range []string{Left, Right} {
		tracker := rig.NewTrackedController(s.pawn)
		h := rig.NewMotionControllerHand(name, s.world, tracker, s.handFactory(name),
			rig.WithSettings(settings),
			rig.WithPawn(s.pawn),
			rig.WithRegistry(registry),
			rig.WithStartState(cfg.Rig.Controller.StartState),
			rig.WithTeleporter(s.teleport),
			rig.WithBus(s.bus),
			rig.WithLogger(s.log),
		)
		s.trackers[name] = tracker
		s.hands[name] = h
		s.pool.Add(h)
	}
	s.hands[Left].PairWith(s.hands[Right])
	s.teleport.Attach(s.hands[Left], s.hands[Right])

	s.cube = grab.NewPickup(s.world, "cube", spatial.FromTranslation(cubeLocation))
	s.tool = grab.NewPickup(s.world, "tool", spatial.FromTranslation(toolLocation))
	s.tool.Sticky = true

	s.runner = systems.NewRunner(systems.WithLogger(s.log))
	all := append(s.pool.Systems(),
		systems.Func("sim.script", systems.PhasePrePhysics, systems.PriorityHighest, s.playScript),
		systems.Func("physics.step", systems.PhaseDuringPhysics, systems.PriorityNormal, func(_ context.Context, dt float64) error {
			scene.Step(dt)
			return nil
		}),
	)
	for _, sys := range all {
		if err := s.runner.Add(sys); err != nil {
			return nil, err
		}
	}

	for _, name := range []string{Left, Right} {
		if err := s.hands[name].Begin(); err != nil {
			return nil, fmt.Errorf("begin %s hand: %w", name, err)
		}
	}
	return s, nil
}

func (s *Sim) handFactory(name string) rig.HandFactory {
	settings := s.cfg.HandSettings(name)
	return func(pose spatial.Transform) (*rig.Hand, error) {
		mesh, err := newHandMesh(settings.RootBone, settings.PalmSocket)
		if err != nil {
			return nil, err
		}
		return rig.NewHand(s.world, mesh, handAsset, pose, settings,
			rig.WithHandLogger(s.log.With(log.String("hand", name))))
	}
}

func (s *Sim) World() *world.World                        { return s.world }
func (s *Sim) Bus() bus.EventBus                          { return s.bus }
func (s *Sim) Pawn() *rig.Pawn                            { return s.pawn }
func (s *Sim) Runner() *systems.Runner                    { return s.runner }
func (s *Sim) Teleporter() *PawnTeleporter                { return s.teleport }
func (s *Sim) Hand(name string) *rig.MotionControllerHand { return s.hands[name] }
func (s *Sim) Cube() *grab.Pickup                         { return s.cube }
func (s *Sim) Tool() *grab.Pickup                         { return s.tool }
func (s *Sim) Now() time.Duration                         { return s.now }
func (s *Sim) Ticks() int                                 { return s.ticks }

// Counts returns how many events of each type were published so far.
func (s *Sim) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

func (s *Sim) count(e bus.Event) error {
	s.mu.Lock()
	s.counts[e.Type()]++
	s.mu.Unlock()
	return nil
}

func (s *Sim) playScript(context.Context, float64) error {
	for _, c := range s.script.due(s.now) {
		s.log.Debug("cue", log.String("name", c.Name), log.Duration("at", c.At))
		c.Do(s)
	}
	return nil
}

// Step advances the simulation by one fixed tick. It returns ErrFinished
// once sim.ticks ticks have run; zero ticks means no limit.
func (s *Sim) Step(ctx context.Context) error {
	if limit := s.cfg.Sim.Ticks; limit > 0 && s.ticks >= limit {
		return ErrFinished
	}
	s.now += s.dt
	s.ticks++
	return s.runner.Tick(ctx, s.dt.Seconds())
}

// Run steps until the tick limit is reached or ctx is done. System errors are
// logged and do not stop the loop.
func (s *Sim) Run(ctx context.Context) error {
	var ticker *time.Ticker
	if s.realtime {
		ticker = time.NewTicker(s.dt)
		defer ticker.Stop()
	}
	for {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		err := s.Step(ctx)
		switch {
		case errors.Is(err, ErrFinished):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			s.log.Warn("tick failed", log.Int("tick", s.ticks), log.Error(err))
		}
	}
}

// Close destroys both hands.
func (s *Sim) Close() {
	for _, name := range []string{Left, Right} {
		s.hands[name].Destroy()
	}
}
