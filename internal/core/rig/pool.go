package rig

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/core/systems"
)

// Pool ticks a set of motion controller hands. Control runs hand by hand in
// registration order; bone updates run concurrently since each one only
// writes its own hand body.
type Pool struct {
	mu    sync.RWMutex
	hands []*MotionControllerHand
	log   log.Log
}

func NewPool(l log.Log) *Pool {
	return &Pool{log: log.OrNop(l)}
}

func (p *Pool) Add(h *MotionControllerHand) {
	p.mu.Lock()
	p.hands = append(p.hands, h)
	p.mu.Unlock()
}

func (p *Pool) Remove(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, h := range p.hands {
		if h.Name() == name {
			p.hands = append(p.hands[:i], p.hands[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Pool) Hands() []*MotionControllerHand {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*MotionControllerHand, len(p.hands))
	copy(out, p.hands)
	return out
}

// Control runs PrePhysicsTick on every hand.
func (p *Pool) Control(ctx context.Context, dt float64) error {
	for _, h := range p.Hands() {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.PrePhysicsTick(dt)
	}
	return nil
}

// UpdateBones runs every hand's bone driver and returns the number of shape
// writes.
func (p *Pool) UpdateBones(ctx context.Context) (int, error) {
	hands := p.Hands()
	writes := make([]int, len(hands))

	g, ctx := errgroup.WithContext(ctx)
	for i, h := range hands {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			writes[i] = h.UpdateBones()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range writes {
		total += n
	}
	return total, nil
}

// PrePhysics is Control followed by UpdateBones.
func (p *Pool) PrePhysics(ctx context.Context, dt float64) error {
	if err := p.Control(ctx, dt); err != nil {
		return err
	}
	_, err := p.UpdateBones(ctx)
	return err
}

// Systems exposes the pool's two pre-physics passes to a systems.Runner.
func (p *Pool) Systems() []systems.System {
	return []systems.System{
		systems.Func("hands.control", systems.PhasePrePhysics, systems.PriorityHigh, p.Control),
		systems.Func("hands.bones", systems.PhasePrePhysics, systems.PriorityLow, func(ctx context.Context, _ float64) error {
			n, err := p.UpdateBones(ctx)
			if n > 0 {
				p.log.Debug("hand shapes updated", log.Int("writes", n))
			}
			return err
		}),
	}
}
