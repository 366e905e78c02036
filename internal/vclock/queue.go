package vclock

import (
	"container/heap"

	"github.com/roach88/stopover/internal/ordinate"
)

type event struct {
	position ordinate.Ordinate
	fn       Func
	ticket   Ticket
	seq      uint64 // arrival order, breaks position ties
	index    int
}

// queue orders pending events by position, then arrival.
type queue []*event

// Implement sort.Interface
func (q queue) Len() int {
	return len(q)
}

func (q queue) Less(i, j int) bool {
	if c := q[i].position.Cmp(q[j].position); c != 0 {
		return c < 0
	}
	return q[i].seq < q[j].seq
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index, q[j].index = i, j
}

// Implement container.heap.Interface
func (q *queue) Push(x any) {
	ev := x.(*event)
	ev.index = len(*q)
	*q = append(*q, ev)
}

func (q *queue) Pop() any {
	n := len(*q) - 1
	ev := (*q)[n]
	(*q)[n] = nil
	ev.index = -1
	*q = (*q)[:n]
	return ev
}

func (q queue) peek() *event {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

func (q *queue) insert(ev *event) {
	heap.Push(q, ev)
}

func (q *queue) remove(ev *event) {
	if ev.index < 0 {
		return
	}
	heap.Remove(q, ev.index)
}

func (q *queue) popMin() *event {
	return heap.Pop(q).(*event)
}
