package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkQueueFIFO(t *testing.T) {
	q := newChunkQueue()
	for i := 0; i < 5; i++ {
		require.True(t, q.Push([]byte(fmt.Sprintf("c%d", i))))
	}

	chunks, size := q.Len()
	assert.Equal(t, 5, chunks)
	assert.Equal(t, 10, size)

	for i := 0; i < 5; i++ {
		got, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("c%d", i), string(got))
	}

	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestChunkQueueCloseDrainsThenEnds(t *testing.T) {
	q := newChunkQueue()
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	q.Close()

	assert.True(t, q.Closed())
	assert.False(t, q.Push([]byte("late")))

	got, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", string(got))
	got, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", string(got))

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestChunkQueuePopBlocksUntilPush(t *testing.T) {
	q := newChunkQueue()
	result := make(chan string, 1)

	go func() {
		got, ok := q.Pop()
		if ok {
			result <- string(got)
		}
		close(result)
	}()

	select {
	case <-result:
		t.Fatal("Pop returned before anything was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push([]byte("hello"))

	select {
	case got := <-result:
		assert.Equal(t, "hello", got)
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up after Push")
	}
}

func TestChunkQueuePopWakesOnClose(t *testing.T) {
	q := newChunkQueue()
	done := make(chan bool, 1)

	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after Close")
	}
}

func TestChunkQueueConcurrentProducerConsumer(t *testing.T) {
	q := newChunkQueue()
	const n = 10000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			q.Push([]byte{byte(i)})
		}
		q.Close()
	}()

	count := 0
	for {
		got, ok := q.Pop()
		if !ok {
			break
		}
		require.Equal(t, byte(count), got[0])
		count++
	}
	wg.Wait()
	assert.Equal(t, n, count)
}
