package router

import "sync"

// GrowableBuffer is a mutex-guarded ring buffer that grows ahead of
// demand: once occupancy would reach 70% the backing slice doubles, so
// senders never block on a full ring.
type GrowableBuffer[T any] struct {
	mu    sync.Mutex
	ready *sync.Cond

	ring  []T
	first int // index of the oldest item
	size  int

	closed bool

	received int64
	sent     int64
	resizes  int
}

// NewGrowableBuffer creates a buffer with the given initial capacity.
func NewGrowableBuffer[T any](initialCapacity int) *GrowableBuffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	b := &GrowableBuffer[T]{ring: make([]T, initialCapacity)}
	b.ready = sync.NewCond(&b.mu)
	return b
}

// Send appends an item, doubling the ring when the occupancy threshold
// is hit. Returns false once the buffer is closed.
func (b *GrowableBuffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	// (size+1)/cap >= 70%, in integers.
	if (b.size+1)*10 >= len(b.ring)*7 {
		b.resize(len(b.ring) * 2)
	}

	b.ring[(b.first+b.size)%len(b.ring)] = item
	b.size++
	b.received++

	b.ready.Signal()
	return true
}

// Receive removes and returns the oldest item, blocking until one is
// available. After Close, remaining items drain first; then ok is false.
func (b *GrowableBuffer[T]) Receive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.size == 0 && !b.closed {
		b.ready.Wait()
	}
	if b.size == 0 {
		var zero T
		return zero, false
	}
	return b.pop(), true
}

// TryReceive is the non-blocking variant of Receive.
func (b *GrowableBuffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 {
		var zero T
		return zero, false
	}
	return b.pop(), true
}

// pop removes the oldest item. Caller holds the lock and size > 0.
func (b *GrowableBuffer[T]) pop() T {
	var zero T
	item := b.ring[b.first]
	b.ring[b.first] = zero // release the reference
	b.first = (b.first + 1) % len(b.ring)
	b.size--
	b.sent++
	return item
}

// Close rejects further sends and wakes blocked receivers.
func (b *GrowableBuffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.ready.Broadcast()
}

// Len returns the current number of buffered items.
func (b *GrowableBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the current ring capacity.
func (b *GrowableBuffer[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ring)
}

// Stats returns buffer statistics.
func (b *GrowableBuffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:         b.size,
		Capacity:      len(b.ring),
		TotalReceived: b.received,
		TotalSent:     b.sent,
		ResizeCount:   b.resizes,
	}
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count         int
	Capacity      int
	TotalReceived int64
	TotalSent     int64
	ResizeCount   int
}

// resize moves the live window to the front of a fresh slice. Caller
// holds the lock.
func (b *GrowableBuffer[T]) resize(capacity int) {
	next := make([]T, capacity)
	for i := 0; i < b.size; i++ {
		next[i] = b.ring[(b.first+i)%len(b.ring)]
	}
	b.ring = next
	b.first = 0
	b.resizes++
}
