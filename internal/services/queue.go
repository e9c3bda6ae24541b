package services

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// chunkQueue is the unbounded FIFO between a session's reader and
// coalescer goroutines. It has exactly one producer and one consumer.
// Push never blocks, so a slow consumer can never stall PTY reads.
type chunkQueue struct {
	mu     sync.Mutex
	items  *linkedlistqueue.Queue
	bytes  int
	closed bool
	ready  chan struct{}
}

func newChunkQueue() *chunkQueue {
	return &chunkQueue{
		items: linkedlistqueue.New(),
		ready: make(chan struct{}, 1),
	}
}

// Push appends a chunk. It returns false once the queue is closed.
func (q *chunkQueue) Push(chunk []byte) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items.Enqueue(chunk)
	q.bytes += len(chunk)
	q.mu.Unlock()

	q.signal()
	return true
}

// Close marks the end of input. Chunks already queued can still be popped.
func (q *chunkQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.signal()
}

// TryPop removes the oldest chunk without blocking.
func (q *chunkQueue) TryPop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dequeueLocked()
}

// Pop blocks until a chunk is available. It returns false when the queue is
// closed and fully drained.
func (q *chunkQueue) Pop() ([]byte, bool) {
	for {
		q.mu.Lock()
		if chunk, ok := q.dequeueLocked(); ok {
			q.mu.Unlock()
			return chunk, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		q.mu.Unlock()

		<-q.ready
	}
}

// Ready is signalled after every Push and on Close. A receive may be stale,
// so callers must re-check with TryPop.
func (q *chunkQueue) Ready() <-chan struct{} {
	return q.ready
}

// Closed reports whether Close has been called.
func (q *chunkQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued chunks and their total size in bytes.
func (q *chunkQueue) Len() (chunks, bytes int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Size(), q.bytes
}

func (q *chunkQueue) dequeueLocked() ([]byte, bool) {
	v, ok := q.items.Dequeue()
	if !ok {
		return nil, false
	}
	chunk := v.([]byte)
	q.bytes -= len(chunk)
	return chunk, true
}

func (q *chunkQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
