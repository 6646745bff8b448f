package containers

// HandoffQueue is the multi-producer/single-consumer channel through which
// non-render goroutines hand work to the render thread. Producers enqueue
// from any goroutine; the render thread drains with TryDequeue between
// frames. FIFO order is preserved.
type HandoffQueue[T any] struct {
	ch chan T
}

func NewHandoffQueue[T any](capacity int) *HandoffQueue[T] {
	return &HandoffQueue[T]{
		ch: make(chan T, capacity),
	}
}

// Enqueue adds an element without blocking. Returns ErrQueueFull when the
// queue is at capacity.
func (q *HandoffQueue[T]) Enqueue(value T) error {
	select {
	case q.ch <- value:
		return nil
	default:
		return ErrQueueFull
	}
}

// TryDequeue removes the front element without blocking. The second return
// is false when the queue is empty.
func (q *HandoffQueue[T]) TryDequeue() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of queued elements at the time of the call.
func (q *HandoffQueue[T]) Len() int {
	return len(q.ch)
}
