// Package queue provides a bounded priority queue for top-k selection.
package queue

// PriorityQueueItem represents an item in the priority queue.
// Value-based (no pointers) for cache locality and zero allocations.
type PriorityQueueItem struct {
	Node     uint32  // Node is the identifier of the item.
	Distance float32 // Distance is the priority of the item in the queue.
}

// PriorityQueue is a binary heap of PriorityQueueItems.
// Value-based storage, no pointer indirection.
type PriorityQueue struct {
	isMaxHeap bool
	items     []PriorityQueueItem
}

// NewMin initializes a new priority queue with minimum priority on top.
func NewMin(capacity int) *PriorityQueue {
	return &PriorityQueue{isMaxHeap: false, items: make([]PriorityQueueItem, 0, capacity)}
}

// NewMax initializes a new priority queue with maximum priority on top.
func NewMax(capacity int) *PriorityQueue {
	return &PriorityQueue{isMaxHeap: true, items: make([]PriorityQueueItem, 0, capacity)}
}

// Len returns the number of items in the queue.
func (pq *PriorityQueue) Len() int { return len(pq.items) }

// TopItem returns the top element of the heap without removing it.
func (pq *PriorityQueue) TopItem() (PriorityQueueItem, bool) {
	if len(pq.items) == 0 {
		return PriorityQueueItem{}, false
	}
	return pq.items[0], true
}

// PushItem inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) PushItem(item PriorityQueueItem) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// PopItem removes and returns the top element while maintaining the heap invariant.
func (pq *PriorityQueue) PopItem() (PriorityQueueItem, bool) {
	n := len(pq.items)
	if n == 0 {
		return PriorityQueueItem{}, false
	}
	root := pq.items[0]
	last := pq.items[n-1]
	pq.items[n-1] = PriorityQueueItem{}
	pq.items = pq.items[:n-1]
	if n-1 > 0 {
		pq.items[0] = last
		pq.siftDown(0)
	}
	return root, true
}

// PushBounded keeps at most k items with the smallest distances, breaking
// exact distance ties in favor of the lower node. Must be called on a
// max-heap: the tie-aware ordering keeps the highest tied node at the
// root, so it is the one displaced when a closer item arrives.
func (pq *PriorityQueue) PushBounded(item PriorityQueueItem, k int) {
	if len(pq.items) < k {
		pq.PushItem(item)
		return
	}
	worst := pq.items[0]
	if item.Distance < worst.Distance || (item.Distance == worst.Distance && item.Node < worst.Node) {
		pq.items[0] = item
		pq.siftDown(0)
	}
}

// less is tie-aware: among equal distances a max-heap treats the higher
// node as greater, so it surfaces at the root and is evicted first. This
// is what makes the lower index survive a bounded top-k selection when a
// closer item displaces one of several tied residents.
func (pq *PriorityQueue) less(i, j int) bool {
	if pq.isMaxHeap {
		if pq.items[i].Distance != pq.items[j].Distance {
			return pq.items[i].Distance > pq.items[j].Distance
		}
		return pq.items[i].Node > pq.items[j].Node
	}
	if pq.items[i].Distance != pq.items[j].Distance {
		return pq.items[i].Distance < pq.items[j].Distance
	}
	return pq.items[i].Node < pq.items[j].Node
}

func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !pq.less(i, p) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && pq.less(r, l) {
			best = r
		}
		if !pq.less(best, i) {
			return
		}
		pq.items[i], pq.items[best] = pq.items[best], pq.items[i]
		i = best
	}
}
