package history

// ring is a fixed-capacity buffer used as a bounded stack. Pushing onto a
// full ring overwrites the oldest element, which is how the past stack
// evicts entries in O(1).
//
// NOT safe for concurrent use; caller must synchronize.
type ring[T any] struct {
	data  []T
	start int // index of the oldest element
	count int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{data: make([]T, capacity)}
}

// push appends item as newest. Returns true if the oldest was evicted.
func (r *ring[T]) push(item T) bool {
	c := len(r.data)
	if r.count == c {
		r.data[r.start] = item
		r.start = (r.start + 1) % c
		return true
	}
	r.data[(r.start+r.count)%c] = item
	r.count++
	return false
}

// popNewest removes and returns the newest element.
func (r *ring[T]) popNewest() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	idx := (r.start + r.count - 1) % len(r.data)
	item := r.data[idx]
	r.data[idx] = zero // release reference
	r.count--
	return item, true
}

// peekNewest returns the newest element without removing it.
func (r *ring[T]) peekNewest() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.data[(r.start+r.count-1)%len(r.data)], true
}

// items returns the elements oldest first.
func (r *ring[T]) items() []T {
	out := make([]T, r.count)
	for i := range out {
		out[i] = r.data[(r.start+i)%len(r.data)]
	}
	return out
}

func (r *ring[T]) clear() {
	clear(r.data)
	r.start = 0
	r.count = 0
}
