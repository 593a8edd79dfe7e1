package sequence

import "container/heap"

// PriorityItem is a queued value. Keep the pointer returned by Enqueue to
// Update or Remove the item later.
type PriorityItem[T any] struct {
	Value T
	index int
}

// Queued reports whether the item is still in its queue.
func (it *PriorityItem[T]) Queued() bool { return it.index >= 0 }

type priorityQueue[T any] struct {
	items []*PriorityItem[T]
	less  func(a, b T) bool
}

func (pq *priorityQueue[T]) Len() int {
	return len(pq.items)
}

func (pq *priorityQueue[T]) Less(i, j int) bool {
	return pq.less(pq.items[i].Value, pq.items[j].Value)
}

func (pq *priorityQueue[T]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index = i
	pq.items[j].index = j
}

func (pq *priorityQueue[T]) Push(x any) {
	item := x.(*PriorityItem[T])
	item.index = len(pq.items)
	pq.items = append(pq.items, item)
}

func (pq *priorityQueue[T]) Pop() any {
	old := pq.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid memory leak
	item.index = -1 // for safety
	pq.items = old[0 : n-1]
	return item
}

// PriorityQueue is a binary heap ordered by a caller-supplied less function:
// the value for which less reports true against every other is dequeued first.
// It is not safe for concurrent use.
type PriorityQueue[T any] struct {
	pq priorityQueue[T]
}

func NewPriorityQueue[T any](less func(a, b T) bool) *PriorityQueue[T] {
	pq := &PriorityQueue[T]{pq: priorityQueue[T]{less: less}}
	heap.Init(&pq.pq)
	return pq
}

func (pq *PriorityQueue[T]) Enqueue(value T) *PriorityItem[T] {
	item := &PriorityItem[T]{Value: value}
	heap.Push(&pq.pq, item)
	return item
}

func (pq *PriorityQueue[T]) Dequeue() (T, bool) {
	if pq.pq.Len() == 0 {
		var zero T
		return zero, false
	}
	item := heap.Pop(&pq.pq).(*PriorityItem[T])
	return item.Value, true
}

func (pq *PriorityQueue[T]) Peek() (T, bool) {
	if pq.pq.Len() == 0 {
		var zero T
		return zero, false
	}
	return pq.pq.items[0].Value, true
}

// Update replaces the value of a queued item and restores heap order.
func (pq *PriorityQueue[T]) Update(item *PriorityItem[T], value T) {
	item.Value = value
	if item.Queued() {
		heap.Fix(&pq.pq, item.index)
	}
}

// Remove takes item out of the queue. It reports false if the item had
// already left the queue.
func (pq *PriorityQueue[T]) Remove(item *PriorityItem[T]) bool {
	if item == nil || !item.Queued() || item.index >= pq.pq.Len() || pq.pq.items[item.index] != item {
		return false
	}
	heap.Remove(&pq.pq, item.index)
	return true
}

func (pq *PriorityQueue[T]) Len() int {
	return pq.pq.Len()
}

func (pq *PriorityQueue[T]) IsEmpty() bool {
	return pq.pq.Len() == 0
}
