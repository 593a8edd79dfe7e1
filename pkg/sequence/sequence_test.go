package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deadline struct {
	at  float64
	seq int
}

func earliest(a, b deadline) bool {
	if a.at != b.at {
		return a.at < b.at
	}
	return a.seq < b.seq
}

func TestPriorityQueueOrdersByLess(t *testing.T) {
	q := NewPriorityQueue(earliest)
	q.Enqueue(deadline{at: 1.0, seq: 1})
	q.Enqueue(deadline{at: 0.2, seq: 2})
	q.Enqueue(deadline{at: 1.0, seq: 0})
	q.Enqueue(deadline{at: 0.5, seq: 3})

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, 0.2, head.at)

	var got []deadline
	for !q.IsEmpty() {
		d, _ := q.Dequeue()
		got = append(got, d)
	}
	assert.Equal(t, []deadline{{0.2, 2}, {0.5, 3}, {1.0, 0}, {1.0, 1}}, got)

	_, ok = q.Dequeue()
	assert.False(t, ok)
	_, ok = q.Peek()
	assert.False(t, ok)
}

func TestPriorityQueueUpdateAndRemove(t *testing.T) {
	q := NewPriorityQueue(earliest)
	a := q.Enqueue(deadline{at: 3})
	b := q.Enqueue(deadline{at: 2})
	c := q.Enqueue(deadline{at: 1})

	q.Update(a, deadline{at: 0.5})
	head, _ := q.Peek()
	assert.Equal(t, 0.5, head.at)

	assert.True(t, q.Remove(c))
	assert.False(t, c.Queued())
	assert.False(t, q.Remove(c))
	assert.Equal(t, 2, q.Len())

	first, _ := q.Dequeue()
	assert.Equal(t, 0.5, first.at)
	assert.False(t, a.Queued())
	assert.True(t, b.Queued())
}

func TestIterator(t *testing.T) {
	data := []int{5, 3, 8, 1, 8}

	even := From(data).Filter(func(v int) bool { return v%2 == 0 }).Collect()
	assert.Equal(t, []int{8, 8}, even)

	v, ok := From(data).Find(func(v int) bool { return v > 4 })
	assert.True(t, ok)
	assert.Equal(t, 5, v, "find stops at the first match")

	assert.True(t, From(data).Any(func(v int) bool { return v == 1 }))
	assert.False(t, From(data).Any(func(v int) bool { return v > 10 }))
	assert.Len(t, From(data).Filter(func(int) bool { return true }).Collect(), 5)
	assert.Equal(t, []int{1, 3, 5, 8, 8}, From(data).Sort(func(a, b int) bool { return a < b }).Collect())
	assert.Empty(t, From[int](nil).Collect())
}
