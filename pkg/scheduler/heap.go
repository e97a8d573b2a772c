package scheduler

import "container/heap"

// eventHeap implements container/heap.Interface for *event, ordered by
// (due, priority, seq). seq is unique, so the order is total and ties on
// due time and priority resolve to insertion order.
type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if !a.due.Equal(b.due) {
		return a.due.Before(b.due)
	}
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	e := x.(*event)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// peek returns the earliest event without removing it.
func (h eventHeap) peek() (*event, bool) {
	if len(h) == 0 {
		return nil, false
	}
	return h[0], true
}

func heapPush(h *eventHeap, e *event) {
	heap.Push(h, e)
}

func heapPop(h *eventHeap) *event {
	return heap.Pop(h).(*event)
}

// heapRemove drops e from the heap if it is queued.
func heapRemove(h *eventHeap, e *event) bool {
	if e.index < 0 || e.index >= h.Len() || (*h)[e.index] != e {
		return false
	}
	heap.Remove(h, e.index)
	return true
}
