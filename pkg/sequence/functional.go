package sequence

import (
	"iter"
	"slices"
	"sort"
)

// Iterator chains lazy operations over a slice. Each step returns a new
// Iterator; the source slice is never modified.
type Iterator[T any] struct {
	seq iter.Seq[T]
}

func From[T any](data []T) *Iterator[T] {
	return &Iterator[T]{seq: slices.Values(data)}
}

// Collect drains the iterator into a new slice.
func (i *Iterator[T]) Collect() []T {
	var out []T
	for v := range i.seq {
		out = append(out, v)
	}
	return out
}

// Sort is stable.
func (i *Iterator[T]) Sort(less func(a, b T) bool) *Iterator[T] {
	data := i.Collect()
	sort.SliceStable(data, func(a, b int) bool { return less(data[a], data[b]) })
	return From(data)
}

func (i *Iterator[T]) Filter(keep func(T) bool) *Iterator[T] {
	src := i.seq
	return &Iterator[T]{seq: func(yield func(T) bool) {
		for v := range src {
			if keep(v) && !yield(v) {
				return
			}
		}
	}}
}

// Find returns the first element matching match.
func (i *Iterator[T]) Find(match func(T) bool) (T, bool) {
	for v := range i.seq {
		if match(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func (i *Iterator[T]) Any(match func(T) bool) bool {
	_, ok := i.Find(match)
	return ok
}
