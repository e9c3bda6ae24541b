package services

import (
	"errors"
	"io"
	"os"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/vanpelt/catnip-pty/internal/metrics"
	"github.com/vanpelt/catnip-pty/internal/models"
	"github.com/vanpelt/catnip-pty/internal/recovery"
)

// MaxBatchBytes bounds a single coalesced batch.
const MaxBatchBytes = 1 << 20

// OutputSink receives the output of one session. Send is called from a
// single goroutine, in order. A Send error means the consumer is gone;
// nothing more is sent afterwards. Finish is called exactly once when the
// pipeline ends.
type OutputSink interface {
	Send(chunk models.OutputChunk) error
	Finish(err error)
}

// pipeline moves bytes from a PTY master to an OutputSink through a reader
// goroutine and a coalescer goroutine joined by an unbounded queue.
type pipeline struct {
	sessionID string
	reader    io.Reader
	sink      OutputSink
	queue     *chunkQueue
	bufSize   int
	window    func() time.Duration
	log       zerolog.Logger

	readErr    error
	seq        uint64
	sinkGone   bool
	readerDone chan struct{}
	done       chan struct{}
}

func startPipeline(sessionID string, r io.Reader, sink OutputSink, bufSize int, window func() time.Duration, log zerolog.Logger) *pipeline {
	p := &pipeline{
		sessionID:  sessionID,
		reader:     r,
		sink:       sink,
		queue:      newChunkQueue(),
		bufSize:    bufSize,
		window:     window,
		log:        log,
		readerDone: make(chan struct{}),
		done:       make(chan struct{}),
	}

	recovery.SafeGoWithCleanup("pty-reader:"+sessionID, p.readLoop, func() {
		p.queue.Close()
		close(p.readerDone)
	})
	recovery.SafeGoWithCleanup("pty-coalescer:"+sessionID, p.coalesceLoop, func() {
		p.sink.Finish(p.readErr)
		close(p.done)
	})
	return p
}

// Done is closed once the sink has been finished.
func (p *pipeline) Done() <-chan struct{} {
	return p.done
}

func (p *pipeline) readLoop() {
	buf := make([]byte, p.bufSize)
	for {
		n, err := p.reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			metrics.OutputBytes.Add(float64(n))
			p.queue.Push(chunk)
		}
		if err != nil {
			if isStreamEnd(err) {
				p.log.Debug().Err(err).Msg("📭 PTY output ended")
			} else {
				p.log.Debug().Err(err).Msg("⚠️ PTY read failed")
				p.readErr = err
			}
			return
		}
		if n == 0 {
			p.log.Debug().Msg("📭 PTY returned no data, ending output")
			return
		}
	}
}

func (p *pipeline) coalesceLoop() {
	var leftover []byte
	for {
		first, ok := p.queue.Pop()
		if !ok {
			break
		}

		batch := make([]byte, 0, len(leftover)+len(first))
		batch = append(batch, leftover...)
		batch = append(batch, first...)
		batch = p.drain(batch)

		safe := Utf8Boundary(batch)
		if safe > 0 {
			p.deliver(batch[:safe])
		}
		leftover = append(leftover[:0], batch[safe:]...)
	}

	if len(leftover) > 0 {
		p.deliver(leftover)
	}
}

// drain appends queued chunks to batch until the coalescing window closes,
// the queue ends, or the batch is full.
func (p *pipeline) drain(batch []byte) []byte {
	window := p.window()
	if window <= 0 {
		runtime.Gosched()
		for len(batch) < MaxBatchBytes {
			chunk, ok := p.queue.TryPop()
			if !ok {
				break
			}
			batch = append(batch, chunk...)
		}
		return batch
	}

	timer := time.NewTimer(window)
	defer timer.Stop()

	for len(batch) < MaxBatchBytes {
		if chunk, ok := p.queue.TryPop(); ok {
			batch = append(batch, chunk...)
			continue
		}
		if p.queue.Closed() {
			return batch
		}
		select {
		case <-p.queue.Ready():
		case <-timer.C:
			return batch
		}
	}
	return batch
}

func (p *pipeline) deliver(data []byte) {
	if p.sinkGone {
		return
	}

	p.seq++
	chunk := models.OutputChunk{
		SessionID: p.sessionID,
		Seq:       p.seq,
		Data:      decodeLossy(data),
	}
	if err := p.sink.Send(chunk); err != nil {
		p.log.Debug().Err(err).Uint64("seq", chunk.Seq).Msg("🔌 Output consumer gone, discarding further output")
		p.sinkGone = true
		return
	}
	metrics.OutputChunks.Inc()
}

// decodeLossy converts bytes to a string, replacing invalid sequences with
// U+FFFD.
func decodeLossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// isStreamEnd reports whether a read error is the normal end of a PTY
// stream: EOF, EIO once the slave side is gone, or a handle closed by
// teardown.
func isStreamEnd(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EIO)
}
