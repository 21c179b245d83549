// Package plist provides id-stable arrays: slots keep their index for the
// lifetime of the item stored in them, freed ids are recycled in FIFO order
// and the backing slice is exposed directly for bulk copies.
//
// None of the types lock. Callers serialise Add and Remove.
package plist

import (
	"fmt"
	"iter"
)

type Option func(*options)

type options struct {
	reuseOldest bool
}

// WithReuseOldest makes a full list wrap around and overwrite the oldest
// slot instead of failing with ErrCapacityExceeded.
func WithReuseOldest() Option {
	return func(o *options) { o.reuseOldest = true }
}

type List[T any] struct {
	items       []T
	active      []int32
	free        []int
	next        int
	count       int
	maxCapacity int
	reuseOldest bool
}

func New[T any](startCapacity, maxCapacity int, opts ...Option) *List[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if startCapacity < 1 {
		startCapacity = 1
	}
	if maxCapacity < startCapacity {
		maxCapacity = startCapacity
	}
	return &List[T]{
		items:       make([]T, startCapacity),
		active:      make([]int32, startCapacity),
		maxCapacity: maxCapacity,
		reuseOldest: o.reuseOldest,
	}
}

// Add stores item and returns its id.
func (l *List[T]) Add(item T) (int, error) {
	id, err := l.reserve()
	if err != nil {
		return -1, err
	}
	l.items[id] = item
	l.active[id] = 1
	l.count++
	return id, nil
}

func (l *List[T]) reserve() (int, error) {
	if len(l.free) > 0 {
		id := l.free[0]
		l.free = l.free[1:]
		return id, nil
	}

	if l.next >= len(l.items) {
		switch {
		case len(l.items) < l.maxCapacity:
			l.grow()
		case l.reuseOldest:
			l.next = 0
		default:
			return -1, fmt.Errorf("%w (capacity %d)", ErrCapacityExceeded, l.maxCapacity)
		}
	}

	id := l.next
	l.next++
	if l.active[id] == 1 {
		var zero T
		l.items[id] = zero
		l.active[id] = 0
		l.count--
	}
	return id, nil
}

func (l *List[T]) grow() {
	size := len(l.items) * 2
	if size > l.maxCapacity {
		size = l.maxCapacity
	}
	items := make([]T, size)
	copy(items, l.items)
	active := make([]int32, size)
	copy(active, l.active)
	l.items = items
	l.active = active
}

// Remove frees the slot at id and queues the id for reuse.
func (l *List[T]) Remove(id int) error {
	if id < 0 || id >= len(l.items) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, id)
	}
	if l.active[id] == 0 {
		return fmt.Errorf("%w: %d", ErrNotActive, id)
	}
	var zero T
	l.items[id] = zero
	l.active[id] = 0
	l.count--
	l.free = append(l.free, id)
	return nil
}

// Get returns the item at id and whether the slot is live.
func (l *List[T]) Get(id int) (T, bool) {
	if !l.IsActive(id) {
		var zero T
		return zero, false
	}
	return l.items[id], true
}

func (l *List[T]) Set(id int, item T) error {
	if !l.IsActive(id) {
		return fmt.Errorf("%w: %d", ErrNotActive, id)
	}
	l.items[id] = item
	return nil
}

func (l *List[T]) IsActive(id int) bool {
	return id >= 0 && id < len(l.active) && l.active[id] == 1
}

// Items returns the backing slice. Dead slots hold the zero value.
func (l *List[T]) Items() []T { return l.items }

// Active returns the liveness flags by reference, 1 for live slots.
func (l *List[T]) Active() []int32 { return l.active }

func (l *List[T]) Len() int         { return l.count }
func (l *List[T]) Capacity() int    { return len(l.items) }
func (l *List[T]) MaxCapacity() int { return l.maxCapacity }
func (l *List[T]) FreeIDs() int     { return len(l.free) }

// Clear drops every item and resets id allocation.
func (l *List[T]) Clear() {
	clear(l.items)
	clear(l.active)
	l.free = l.free[:0]
	l.next = 0
	l.count = 0
}

// All iterates live slots in id order.
func (l *List[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for id, item := range l.items {
			if l.active[id] == 0 {
				continue
			}
			if !yield(id, item) {
				return
			}
		}
	}
}

// cursorSlot returns the id the next Add takes when no freed id is queued,
// and false when that Add would grow the list or fail.
func (l *List[T]) cursorSlot() (int, bool) {
	if l.next < len(l.items) {
		return l.next, true
	}
	if len(l.items) < l.maxCapacity || !l.reuseOldest {
		return -1, false
	}
	return 0, true
}
