package systems

import (
	"context"
	"time"
)

// System is one per-tick processor of the hand simulation.
type System interface {
	Name() string
	Phase() Phase
	Priority() Priority
	Update(ctx context.Context, dt float64) error
}

// Priority orders systems within a phase. Higher runs first.
type Priority uint16

const (
	PriorityLowest  Priority = 100
	PriorityLow     Priority = 500
	PriorityNormal  Priority = 600
	PriorityHigh    Priority = 1000
	PriorityHighest Priority = 1300
)

// Phase defines when a system runs relative to the physics step.
type Phase uint8

const (
	PhasePrePhysics Phase = iota
	PhaseDuringPhysics
	PhasePostPhysics
)

var phases = [...]Phase{PhasePrePhysics, PhaseDuringPhysics, PhasePostPhysics}

func (p Phase) String() string {
	switch p {
	case PhasePrePhysics:
		return "pre_physics"
	case PhaseDuringPhysics:
		return "during_physics"
	case PhasePostPhysics:
		return "post_physics"
	default:
		return "unknown"
	}
}

// Metrics provides runtime metrics for a system
type Metrics struct {
	ExecutionCount     uint64
	TotalExecutionTime time.Duration
	MaxExecutionTime   time.Duration
	ErrorCount         uint64
	LastError          error
	LastExecutionTime  time.Time
}

// AverageExecutionTime returns the mean duration of one Update.
func (m Metrics) AverageExecutionTime() time.Duration {
	if m.ExecutionCount == 0 {
		return 0
	}
	return m.TotalExecutionTime / time.Duration(m.ExecutionCount)
}

type funcSystem struct {
	name     string
	phase    Phase
	priority Priority
	fn       func(ctx context.Context, dt float64) error
}

// Func adapts a plain function to System.
func Func(name string, phase Phase, priority Priority, fn func(ctx context.Context, dt float64) error) System {
	return &funcSystem{name: name, phase: phase, priority: priority, fn: fn}
}

func (s *funcSystem) Name() string                                 { return s.name }
func (s *funcSystem) Phase() Phase                                 { return s.phase }
func (s *funcSystem) Priority() Priority                           { return s.priority }
func (s *funcSystem) Update(ctx context.Context, dt float64) error { return s.fn(ctx, dt) }
