package fifo

import (
	"errors"
	"sync"
	"unsafe"
)

var (
	ErrInvalidDepth = errors.New("fifo: depth must be greater than zero")
	ErrZeroItemSize = errors.New("fifo: item type has zero size")
)

// Queue is a fixed-capacity FIFO of items of type T.
type Queue[T any] struct {
	mu           sync.Mutex
	buffer       []T
	count        int
	wrIdx        int
	rdIdx        int
	overwritable bool
	evicted      uint64
}

// New allocates a queue holding at most depth items. When overwritable is
// true, writing to a full queue evicts the oldest item instead of failing.
func New[T any](depth int, overwritable bool) (*Queue[T], error) {
	if depth <= 0 {
		return nil, ErrInvalidDepth
	}
	var zero T
	if unsafe.Sizeof(zero) == 0 {
		return nil, ErrZeroItemSize
	}
	return &Queue[T]{
		buffer:       make([]T, depth),
		overwritable: overwritable,
	}, nil
}

// Clear logically removes all queued items. Storage is not zeroed.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.count = 0
	q.wrIdx = 0
	q.rdIdx = 0
}

// Close releases the storage. A closed queue has zero capacity: writes fail
// and reads report an empty queue.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.buffer = nil
	q.count = 0
	q.wrIdx = 0
	q.rdIdx = 0
}

// Write appends one item. It reports false, leaving the queue untouched, if
// the queue is full and not overwritable.
func (q *Queue[T]) Write(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.write(item)
}

// WriteN appends items one by one and returns how many were accepted. On a
// non-overwritable queue it stops at the first rejected item.
func (q *Queue[T]) WriteN(items []T) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, item := range items {
		if !q.write(item) {
			break
		}
		n++
	}
	return n
}

func (q *Queue[T]) write(item T) bool {
	depth := len(q.buffer)
	if depth == 0 {
		return false
	}
	if q.count == depth {
		if !q.overwritable {
			return false
		}
		// Full: wrIdx == rdIdx, so the slot being written holds the oldest
		// item. Drag the read index along with it.
		q.buffer[q.wrIdx] = item
		q.wrIdx = (q.wrIdx + 1) % depth
		q.rdIdx = q.wrIdx
		q.evicted++
		return true
	}
	q.buffer[q.wrIdx] = item
	q.wrIdx = (q.wrIdx + 1) % depth
	q.count++
	return true
}

// Read removes and returns the oldest item. The boolean is false when the
// queue is empty.
func (q *Queue[T]) Read() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.read()
}

// ReadN moves up to len(out) items into out and returns how many were read.
func (q *Queue[T]) ReadN(out []T) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for n < len(out) {
		item, ok := q.read()
		if !ok {
			break
		}
		out[n] = item
		n++
	}
	return n
}

func (q *Queue[T]) read() (zero T, _ bool) {
	if q.count == 0 {
		return zero, false
	}
	item := q.buffer[q.rdIdx]
	q.rdIdx = (q.rdIdx + 1) % len(q.buffer)
	q.count--
	return item, true
}

// PeekAt returns the item at logical offset pos from the read position
// without removing it. Offset 0 is the next item Read would return.
func (q *Queue[T]) PeekAt(pos int) (zero T, _ bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if pos < 0 || pos >= q.count {
		return zero, false
	}
	return q.buffer[(q.rdIdx+pos)%len(q.buffer)], true
}

// Peek returns the next item without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	return q.PeekAt(0)
}

// Empty reports whether the queue holds no items.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count == 0
}

// Full reports whether the queue holds Cap items. A closed queue is never
// full.
func (q *Queue[T]) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffer) > 0 && q.count == len(q.buffer)
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the depth the queue was created with, or 0 once closed.
func (q *Queue[T]) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffer)
}

// Overwritable reports whether a write to a full queue evicts the oldest
// item instead of being rejected.
func (q *Queue[T]) Overwritable() bool {
	return q.overwritable
}

// Evicted returns the number of items lost to overwrite-on-full.
func (q *Queue[T]) Evicted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}
