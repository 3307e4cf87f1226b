package mot

// distancePair is a candidate association between row i and column j of a distance matrix.
// Rows are dark blobs (merger) or detections (engine), columns are bright blobs or tracks.
type distancePair struct {
	i        int
	j        int
	distance float64
}

// Copied from container/heap - https://golang.org/pkg/container/heap/
// Why make copy? Just want to avoid type conversion

// pairHeap is min-heap ordered by distance. Equal distances fall back to (i, j) so
// popping order is identical to a stable sort of row-major generated pairs.
type pairHeap []distancePair

func (h pairHeap) Len() int { return len(h) }
func (h pairHeap) Less(a, b int) bool {
	if h[a].distance != h[b].distance {
		return h[a].distance < h[b].distance
	}
	if h[a].i != h[b].i {
		return h[a].i < h[b].i
	}
	return h[a].j < h[b].j
}
func (h pairHeap) Swap(a, b int) { h[a], h[b] = h[b], h[a] }

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (h *pairHeap) Push(x distancePair) {
	*h = append(*h, x)
	h.up(h.Len() - 1)
}

// Pop removes and returns the minimum element (according to Less) from the heap.
// The complexity is O(log n) where n = h.Len().
func (h *pairHeap) Pop() distancePair {
	n := h.Len() - 1
	h.Swap(0, n)
	h.down(0, n)
	heapSize := len(*h)
	lastNode := (*h)[heapSize-1]
	*h = (*h)[0 : heapSize-1]
	return lastNode
}

func (h pairHeap) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		j = i
	}
}

func (h pairHeap) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.Less(j2, j1) {
			j = j2
		}
		if !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		i = j
	}
	return i > i0
}

// greedyClaim pops pairs in ascending order and accepts those whose row and column are both free.
// Returns accepted pairs in acceptance order.
func greedyClaim(h *pairHeap, rows, cols int) []distancePair {
	usedRows := make([]bool, rows)
	usedCols := make([]bool, cols)
	accepted := make([]distancePair, 0, minInt(rows, cols))
	for h.Len() > 0 {
		pair := h.Pop()
		if usedRows[pair.i] || usedCols[pair.j] {
			continue
		}
		usedRows[pair.i] = true
		usedCols[pair.j] = true
		accepted = append(accepted, pair)
	}
	return accepted
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
