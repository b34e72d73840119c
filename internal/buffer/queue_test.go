package buffer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	type input struct {
		items []int
	}

	type expected struct {
		popped []int
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "items come out in push order",
			input:    input{items: []int{3, 1, 2}},
			expected: expected{popped: []int{3, 1, 2}},
		},
		{
			name:     "empty queue",
			input:    input{items: nil},
			expected: expected{popped: nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue[int]()
			for _, item := range tt.input.items {
				q.Push(item)
			}
			q.Close()

			var popped []int
			for {
				item, err := q.Pop(context.Background())
				if err != nil {
					assert.ErrorIs(t, err, ErrClosed)
					break
				}
				popped = append(popped, item)
			}
			assert.Equal(t, tt.expected.popped, popped)
		})
	}
}

func TestQueue_PushAfterCloseIsDropped(t *testing.T) {
	q := NewQueue[string]()
	q.Push("kept")
	q.Close()
	q.Push("dropped")

	assert.Equal(t, 1, q.Len())
	item, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "kept", item)
}

func TestQueue_CloseWithError(t *testing.T) {
	boom := errors.New("boom")
	q := NewQueue[int]()
	q.Push(1)
	q.CloseWithError(boom)
	q.CloseWithError(errors.New("ignored"))

	item, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, item)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestQueue_PopHonoursContext(t *testing.T) {
	q := NewQueue[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	const producers, perProducer = 8, 100
	q := NewQueue[int]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(i)
			}
		}()
	}
	go func() {
		wg.Wait()
		q.Close()
	}()

	count := 0
	for {
		_, err := q.Pop(context.Background())
		if err != nil {
			break
		}
		count++
	}
	assert.Equal(t, producers*perProducer, count)
}

func TestQueue_PopWakesOnPush(t *testing.T) {
	q := NewQueue[int]()
	done := make(chan int)
	go func() {
		item, _ := q.Pop(context.Background())
		done <- item
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(42)

	select {
	case item := <-done:
		assert.Equal(t, 42, item)
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up")
	}
}
