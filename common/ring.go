package common

// https://logdy.dev/blog/post/ring-buffer-in-golang

// RingBuffer is a fixed capacity FIFO window.
// When full, Add overwrites the oldest element.
// It is not safe for concurrent use; owners serialize access.
type RingBuffer[T any] struct {
	buffer []T
	size   int
	write  int
	count  int
}

// NewRingBuffer creates a new ring buffer with a fixed size.
// A size < 1 is a programmer error.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size < 1 {
		panic("ring buffer size must be positive")
	}
	return &RingBuffer[T]{
		buffer: make([]T, size),
		size:   size,
	}
}

// Add inserts a new element into the buffer, overwriting the oldest if full.
// It returns the evicted element, if any.
func (rb *RingBuffer[T]) Add(value T) (evicted T, ok bool) {
	if rb.count == rb.size {
		evicted, ok = rb.buffer[rb.write], true
	}
	rb.buffer[rb.write] = value
	rb.write = (rb.write + 1) % rb.size

	if rb.count < rb.size {
		rb.count++
	}
	return evicted, ok
}

func (rb *RingBuffer[T]) index(i int) int {
	return (rb.write + rb.size - rb.count + i) % rb.size
}

// Get returns the contents of the buffer in FIFO order.
func (rb *RingBuffer[T]) Get() []T {
	result := make([]T, 0, rb.count)
	for i := 0; i < rb.count; i++ {
		result = append(result, rb.buffer[rb.index(i)])
	}
	return result
}

// Tail returns the last (last in) n elements in the buffer.
func (rb *RingBuffer[T]) Tail(n int) []T {
	if n > rb.count {
		n = rb.count
	}
	result := make([]T, 0, n)
	for i := rb.count - n; i < rb.count; i++ {
		result = append(result, rb.buffer[rb.index(i)])
	}
	return result
}

// Scan calls fn for each element, oldest first, until fn returns false.
func (rb *RingBuffer[T]) Scan(fn func(T) bool) {
	for i := 0; i < rb.count; i++ {
		if !fn(rb.buffer[rb.index(i)]) {
			break
		}
	}
}

// Len returns the current number of elements in the buffer.
func (rb *RingBuffer[T]) Len() int {
	return rb.count
}

// Cap returns the fixed capacity.
func (rb *RingBuffer[T]) Cap() int {
	return rb.size
}

func (rb *RingBuffer[T]) Last() T {
	return rb.buffer[(rb.write+rb.size-1)%rb.size]
}

func (rb *RingBuffer[T]) First() T {
	return rb.buffer[rb.index(0)]
}

// Reset empties the buffer, keeping its capacity.
func (rb *RingBuffer[T]) Reset() {
	var zero T
	for i := range rb.buffer {
		rb.buffer[i] = zero
	}
	rb.write = 0
	rb.count = 0
}
