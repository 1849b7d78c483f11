package scheduler

import "container/heap"

// armedHeap is a min-heap of armed timers ordered by deadline. Each entry
// records its own index so it can be removed by name in O(log n).
type armedHeap []*armed

func (h armedHeap) Len() int           { return len(h) }
func (h armedHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }
func (h armedHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *armedHeap) Push(x any) {
	a := x.(*armed)
	a.index = len(*h)
	*h = append(*h, a)
}

func (h *armedHeap) Pop() any {
	old := *h
	n := len(old)
	a := old[n-1]
	old[n-1] = nil
	a.index = -1
	*h = old[:n-1]
	return a
}

func heapPush(h *armedHeap, a *armed) {
	heap.Push(h, a)
}

func heapPop(h *armedHeap) *armed {
	return heap.Pop(h).(*armed)
}

// heapRemove drops a from the heap; it is a no-op for entries no longer queued.
func heapRemove(h *armedHeap, a *armed) bool {
	if a.index < 0 || a.index >= h.Len() || (*h)[a.index] != a {
		return false
	}
	heap.Remove(h, a.index)
	return true
}
