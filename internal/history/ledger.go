// Package history implements the bounded past/future ledger behind undo
// and redo.
//
// The ledger keeps a strictly linear history: any new Push discards every
// redo candidate. The past stack never holds more than MaxSize entries; on
// overflow the oldest entry is silently dropped. Every call is synchronous
// and atomic with respect to the caller.
//
// NOT safe for concurrent use; the owning command layer is single-writer.
package history

// DefaultMaxSize is the past stack ceiling used when none is given.
const DefaultMaxSize = 100

// Ledger is a two-stack undo/redo history of T.
type Ledger[T any] struct {
	past    *ring[T]
	future  []T // future[len-1] is the next redo
	maxSize int
	evicted int
}

// New creates a ledger holding at most maxSize past entries.
// A non-positive maxSize means DefaultMaxSize.
func New[T any](maxSize int) *Ledger[T] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Ledger[T]{
		past:    newRing[T](maxSize),
		maxSize: maxSize,
	}
}

// Push records item as the newest past entry and clears the future.
func (l *Ledger[T]) Push(item T) {
	if l.past.push(item) {
		l.evicted++
	}
	clear(l.future)
	l.future = l.future[:0]
}

// Undo moves the newest past entry to the head of the future and returns
// it. The second result is false when there is nothing to undo.
func (l *Ledger[T]) Undo() (T, bool) {
	item, ok := l.past.popNewest()
	if !ok {
		return item, false
	}
	l.future = append(l.future, item)
	return item, true
}

// Redo moves the head of the future back onto the past and returns it.
// The second result is false when there is nothing to redo.
func (l *Ledger[T]) Redo() (T, bool) {
	var zero T
	n := len(l.future)
	if n == 0 {
		return zero, false
	}
	item := l.future[n-1]
	l.future[n-1] = zero
	l.future = l.future[:n-1]
	l.past.push(item)
	return item, true
}

// PeekUndo returns the entry Undo would return, without moving it.
func (l *Ledger[T]) PeekUndo() (T, bool) {
	return l.past.peekNewest()
}

// PeekRedo returns the entry Redo would return, without moving it.
func (l *Ledger[T]) PeekRedo() (T, bool) {
	var zero T
	if len(l.future) == 0 {
		return zero, false
	}
	return l.future[len(l.future)-1], true
}

// Clear empties both stacks.
func (l *Ledger[T]) Clear() {
	l.past.clear()
	clear(l.future)
	l.future = l.future[:0]
}

// CanUndo reports whether the past is non-empty.
func (l *Ledger[T]) CanUndo() bool { return l.past.count > 0 }

// CanRedo reports whether the future is non-empty.
func (l *Ledger[T]) CanRedo() bool { return len(l.future) > 0 }

// PastLen returns the number of undoable entries.
func (l *Ledger[T]) PastLen() int { return l.past.count }

// FutureLen returns the number of redoable entries.
func (l *Ledger[T]) FutureLen() int { return len(l.future) }

// MaxSize returns the past stack ceiling.
func (l *Ledger[T]) MaxSize() int { return l.maxSize }

// Evicted returns how many entries have been dropped for exceeding
// MaxSize since the ledger was created.
func (l *Ledger[T]) Evicted() int { return l.evicted }

// Past returns the past stack oldest first.
func (l *Ledger[T]) Past() []T {
	return l.past.items()
}

// Future returns the future stack, next redo first.
func (l *Ledger[T]) Future() []T {
	out := make([]T, len(l.future))
	for i := range out {
		out[i] = l.future[len(l.future)-1-i]
	}
	return out
}
