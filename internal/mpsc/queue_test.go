package mpsc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		require.True(t, q.Push(i))
	}
	assert.Equal(t, 5, q.Len())

	for i := 0; i < 5; i++ {
		v, err := q.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PopWaitsForPush(t *testing.T) {
	q := New[string]()

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push("hello")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestQueue_CloseDrainsThenFails(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	q.Close()

	assert.False(t, q.Push(3), "push after close must be rejected")
	assert.True(t, q.Closed())

	v, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueue_CloseWakesConsumer(t *testing.T) {
	q := New[int]()

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Pop(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("consumer was not woken up by Close")
	}
}

func TestQueue_PopContextCancel(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_ConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	const producers = 8
	const perProducer = 200

	type item struct {
		producer int
		seq      int
	}

	q := New[item]()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(item{producer: p, seq: i})
			}
		}(p)
	}

	last := make(map[int]int)
	for p := 0; p < producers; p++ {
		last[p] = -1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < producers*perProducer; i++ {
		it, err := q.Pop(ctx)
		require.NoError(t, err)
		require.Greater(t, it.seq, last[it.producer], "producer %d delivered out of order", it.producer)
		last[it.producer] = it.seq
	}
	wg.Wait()
}
