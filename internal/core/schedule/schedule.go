// Package schedule runs deferred work on the simulation clock. Deadlines are
// one-shot or repeating; repeating polls carry an explicit retry bound so a
// condition that never becomes true cannot poll forever.
package schedule

import (
	"time"

	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/pkg/sequence"
)

type TaskID uint64

// Result is returned by repeating tasks.
type Result uint8

const (
	// Done stops a repeating task.
	Done Result = iota
	// Again reschedules a repeating task one interval later.
	Again
)

// Retry bounds a repeating task. Max is the number of calls after which the
// task gives up; zero or less means unbounded.
type Retry struct {
	Max int
}

// clockEpsilon absorbs accumulated float error of fixed-step clocks.
const clockEpsilon = 1e-9

type entry struct {
	id       TaskID
	name     string
	at       float64
	seq      uint64
	interval float64
	attempts int
	retry    Retry

	once        func()
	repeat      func() Result
	onExhausted func(attempts int)
}

func before(a, b *entry) bool {
	if a.at != b.at {
		return a.at < b.at
	}
	return a.seq < b.seq
}

// Queue is a deadline queue driven by Advance. It is not safe for concurrent
// use; it belongs to the tick that owns it.
type Queue struct {
	now   float64
	seq   uint64
	last  TaskID
	queue *sequence.PriorityQueue[*entry]
	items map[TaskID]*sequence.PriorityItem[*entry]
	log   log.Log
}

type Option func(*Queue)

func WithLogger(l log.Log) Option {
	return func(q *Queue) { q.log = log.OrNop(l) }
}

func New(opts ...Option) *Queue {
	q := &Queue{
		queue: sequence.NewPriorityQueue(before),
		items: make(map[TaskID]*sequence.PriorityItem[*entry]),
		log:   log.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Now returns the simulation time in seconds.
func (q *Queue) Now() float64 { return q.now }

// Len counts pending tasks.
func (q *Queue) Len() int { return q.queue.Len() }

// After runs fn once when delay has elapsed.
func (q *Queue) After(name string, delay time.Duration, fn func()) TaskID {
	return q.push(&entry{name: name, at: q.now + delay.Seconds(), once: fn})
}

// Every calls fn each interval until it returns Done or retry is exhausted.
// The first call happens one interval from now. onExhausted may be nil.
func (q *Queue) Every(name string, interval time.Duration, retry Retry, fn func() Result, onExhausted func(attempts int)) TaskID {
	iv := interval.Seconds()
	return q.push(&entry{
		name:        name,
		at:          q.now + iv,
		interval:    iv,
		retry:       retry,
		repeat:      fn,
		onExhausted: onExhausted,
	})
}

func (q *Queue) push(e *entry) TaskID {
	q.last++
	e.id = q.last
	q.seq++
	e.seq = q.seq
	q.items[e.id] = q.queue.Enqueue(e)
	return e.id
}

// Cancel removes a pending task. It reports whether the task was pending.
func (q *Queue) Cancel(id TaskID) bool {
	item, ok := q.items[id]
	if !ok {
		return false
	}
	delete(q.items, id)
	return q.queue.Remove(item)
}

// Pending reports whether id has yet to fire for the last time.
func (q *Queue) Pending(id TaskID) bool {
	_, ok := q.items[id]
	return ok
}

// Advance moves the clock by dt seconds and runs every task that came due,
// in deadline order. Tasks scheduled while advancing wait for the next call.
// It returns the number of task calls made.
func (q *Queue) Advance(dt float64) int {
	if dt > 0 {
		q.now += dt
	}
	horizon := q.seq
	calls := 0
	for {
		head, ok := q.queue.Peek()
		if !ok || head.at > q.now+clockEpsilon || head.seq > horizon {
			return calls
		}
		q.queue.Dequeue()
		calls++
		q.run(head)
	}
}

func (q *Queue) run(e *entry) {
	if e.once != nil {
		delete(q.items, e.id)
		e.once()
		return
	}

	e.attempts++
	if e.repeat() == Done {
		delete(q.items, e.id)
		return
	}
	if e.retry.Max > 0 && e.attempts >= e.retry.Max {
		delete(q.items, e.id)
		q.log.Warn("repeating task exhausted its retries",
			log.String("task", e.name),
			log.Int("attempts", e.attempts),
		)
		if e.onExhausted != nil {
			e.onExhausted(e.attempts)
		}
		return
	}
	// a task cancelled from inside its own callback stays cancelled
	if _, ok := q.items[e.id]; !ok {
		return
	}

	e.at += e.interval
	if e.at <= q.now {
		e.at = q.now + e.interval
	}
	q.seq++
	e.seq = q.seq
	q.items[e.id] = q.queue.Enqueue(e)
}
