package containers

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFO(t *testing.T) {
	q := NewRingQueue[int](4)
	for i := 1; i <= 4; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	assert.True(t, q.IsFull())
	assert.ErrorIs(t, q.Enqueue(5), ErrQueueFull)

	head, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, 1, head)

	for i := 1; i <= 4; i++ {
		v, err := q.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.True(t, q.IsEmpty())
	_, err = q.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
	_, err = q.Peek()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestRingQueueWrapsAround(t *testing.T) {
	q := NewRingQueue[int](2)
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	_, err := q.Dequeue()
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(3))

	v, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	v, err = q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, 0, q.Len())
}

func TestHandoffQueueNonBlocking(t *testing.T) {
	q := NewHandoffQueue[string](1)
	require.NoError(t, q.Enqueue("a"))
	assert.ErrorIs(t, q.Enqueue("b"), ErrQueueFull)

	v, ok := q.TryDequeue()
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = q.TryDequeue()
	assert.False(t, ok)
}

func TestHandoffQueueManyProducersOneConsumer(t *testing.T) {
	const producers = 8
	const perProducer = 100

	q := NewHandoffQueue[int](producers * perProducer)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, q.Enqueue(1))
			}
		}()
	}
	wg.Wait()

	total := 0
	for {
		v, ok := q.TryDequeue()
		if !ok {
			break
		}
		total += v
	}
	assert.Equal(t, producers*perProducer, total)
}
