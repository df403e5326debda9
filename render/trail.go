package render

// DefaultTrailCapacity is the number of recent points a globe trail keeps.
const DefaultTrailCapacity = 1000

// TrailBuffer is a fixed-capacity FIFO of recent points. Once full, every
// push evicts the oldest point, which is equivalent to shifting the contents
// left by one and writing the new point at the end. It is not safe for
// concurrent use; renderers guard it with their own lock.
type TrailBuffer[T any] struct {
	buf   []T
	start int
	n     int
}

// NewTrailBuffer allocates a buffer. A non-positive capacity selects
// DefaultTrailCapacity.
func NewTrailBuffer[T any](capacity int) *TrailBuffer[T] {
	if capacity <= 0 {
		capacity = DefaultTrailCapacity
	}
	return &TrailBuffer[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest point when the buffer is full.
func (b *TrailBuffer[T]) Push(v T) {
	if b.n < len(b.buf) {
		b.buf[(b.start+b.n)%len(b.buf)] = v
		b.n++
		return
	}
	b.buf[b.start] = v
	b.start = (b.start + 1) % len(b.buf)
}

// Len returns the number of points held.
func (b *TrailBuffer[T]) Len() int { return b.n }

// Cap returns the buffer capacity.
func (b *TrailBuffer[T]) Cap() int { return len(b.buf) }

// Points returns a copy of the held points, oldest first.
func (b *TrailBuffer[T]) Points() []T {
	out := make([]T, b.n)
	for i := range b.n {
		out[i] = b.buf[(b.start+i)%len(b.buf)]
	}
	return out
}

// Last returns the most recent point.
func (b *TrailBuffer[T]) Last() (T, bool) {
	var zero T
	if b.n == 0 {
		return zero, false
	}
	return b.buf[(b.start+b.n-1)%len(b.buf)], true
}

// Reset empties the buffer without releasing its storage.
func (b *TrailBuffer[T]) Reset() {
	var zero T
	for i := range b.buf {
		b.buf[i] = zero
	}
	b.start = 0
	b.n = 0
}
