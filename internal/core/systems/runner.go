package systems

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/pkg/sequence"
)

var (
	ErrDuplicateSystem = errors.New("system already registered")
	ErrSystemNotFound  = errors.New("system not found")
)

type entry struct {
	system  System
	order   uint64
	enabled bool
	metrics Metrics
}

// Runner executes registered systems phase by phase every tick.
type Runner struct {
	mu      sync.Mutex
	entries []*entry
	order   uint64
	log     log.Log
}

type RunnerOption func(*Runner)

func WithLogger(l log.Log) RunnerOption {
	return func(r *Runner) { r.log = log.OrNop(l) }
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{log: log.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers s. Systems of the same phase and priority run in the order
// they were added.
func (r *Runner) Add(s System) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.system.Name() == s.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateSystem, s.Name())
		}
	}
	r.order++
	r.entries = append(r.entries, &entry{system: s, order: r.order, enabled: true})
	r.entries = sequence.From(r.entries).Sort(func(a, b *entry) bool {
		if a.system.Phase() != b.system.Phase() {
			return a.system.Phase() < b.system.Phase()
		}
		if a.system.Priority() != b.system.Priority() {
			return a.system.Priority() > b.system.Priority()
		}
		return a.order < b.order
	}).Collect()
	return nil
}

func (r *Runner) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.system.Name() == name {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Runner) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.find(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSystemNotFound, name)
	}
	e.enabled = enabled
	return nil
}

func (r *Runner) Metrics(name string) (Metrics, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.find(name)
	if !ok {
		return Metrics{}, false
	}
	return e.metrics, true
}

// Names lists systems in execution order.
func (r *Runner) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.system.Name()
	}
	return names
}

func (r *Runner) find(name string) (*entry, bool) {
	return sequence.From(r.entries).Find(func(e *entry) bool { return e.system.Name() == name })
}

// Tick runs every enabled system once, pre-physics first. A failing system
// does not stop the others; all errors are joined.
func (r *Runner) Tick(ctx context.Context, dt float64) error {
	r.mu.Lock()
	entries := make([]*entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.Unlock()

	var all error
	for _, phase := range phases {
		for _, e := range entries {
			if e.system.Phase() != phase {
				continue
			}
			if err := ctx.Err(); err != nil {
				return errors.Join(all, err)
			}
			r.mu.Lock()
			enabled := e.enabled
			r.mu.Unlock()
			if !enabled {
				continue
			}
			start := time.Now()
			err := e.system.Update(ctx, dt)
			r.record(e, time.Since(start), err)
			if err != nil {
				r.log.Warn("system update failed",
					log.String("system", e.system.Name()),
					log.Stringer("phase", e.system.Phase()),
					log.Error(err),
				)
				all = errors.Join(all, fmt.Errorf("%s: %w", e.system.Name(), err))
			}
		}
	}
	return all
}

func (r *Runner) record(e *entry, took time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := &e.metrics
	m.ExecutionCount++
	m.TotalExecutionTime += took
	if took > m.MaxExecutionTime {
		m.MaxExecutionTime = took
	}
	m.LastExecutionTime = time.Now()
	if err != nil {
		m.ErrorCount++
		m.LastError = err
	}
}
