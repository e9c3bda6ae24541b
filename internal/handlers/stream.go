package handlers

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/vanpelt/catnip-pty/internal/models"
)

var errStreamAbandoned = errors.New("output stream abandoned")

// streamHub is the OutputSink behind a session's websocket stream. Chunks
// are held in a bounded buffer until the single consumer reads them. A full
// buffer blocks the session's coalescer, while its reader keeps queueing.
type streamHub struct {
	sessionID string
	messages  chan models.StreamMessage
	attached  atomic.Bool

	abandoned   chan struct{}
	abandonOnce sync.Once
}

func newStreamHub(sessionID string, buffer int) *streamHub {
	if buffer < 1 {
		buffer = 1
	}
	return &streamHub{
		sessionID: sessionID,
		messages:  make(chan models.StreamMessage, buffer),
		abandoned: make(chan struct{}),
	}
}

// Send implements services.OutputSink.
func (h *streamHub) Send(chunk models.OutputChunk) error {
	return h.push(models.StreamMessage{
		Type:      models.StreamOutput,
		SessionID: chunk.SessionID,
		Seq:       chunk.Seq,
		Data:      chunk.Data,
	})
}

// Finish implements services.OutputSink. It is called once, after the last
// Send, so closing messages here cannot race a send.
func (h *streamHub) Finish(err error) {
	if err != nil {
		_ = h.push(models.StreamMessage{
			Type:      models.StreamError,
			SessionID: h.sessionID,
			Error:     err.Error(),
		})
	}
	close(h.messages)
}

func (h *streamHub) push(msg models.StreamMessage) error {
	select {
	case <-h.abandoned:
		return errStreamAbandoned
	default:
	}

	select {
	case h.messages <- msg:
		return nil
	case <-h.abandoned:
		return errStreamAbandoned
	}
}

// abandon releases a coalescer blocked on a full buffer. Used when the
// session is closed or replaced.
func (h *streamHub) abandon() {
	h.abandonOnce.Do(func() { close(h.abandoned) })
}

// attach claims the hub for a consumer. Only one consumer may be attached
// at a time.
func (h *streamHub) attach() bool {
	return h.attached.CompareAndSwap(false, true)
}

func (h *streamHub) detach() {
	h.attached.Store(false)
}
