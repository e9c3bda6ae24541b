package services

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/vanpelt/catnip-pty/internal/models"
)

// fakePTY stands in for a PTY master and the shell behind it. Tests write
// shell output with Emit and read what the service typed with Input.
type fakePTY struct {
	outR *io.PipeReader
	outW *io.PipeWriter

	mu        sync.Mutex
	input     bytes.Buffer
	writeErr  error
	resizeErr error
	resizes   [][2]uint16

	pid          int
	ignoreHangup bool
	exit         chan int
	exitOnce     sync.Once
	hangups      atomic.Int32
	kills        atomic.Int32
	closed       atomic.Bool

	// blockWrites makes Write hang like a full input queue until the shell
	// is gone.
	blockWrites  bool
	writeBlocked atomic.Bool
	gone         chan struct{}
}

func newFakePTY(pid int) *fakePTY {
	r, w := io.Pipe()
	return &fakePTY{outR: r, outW: w, pid: pid, exit: make(chan int, 1), gone: make(chan struct{})}
}

// Emit writes bytes as if the shell printed them. It blocks until the
// pipeline's reader has taken them.
func (f *fakePTY) Emit(t *testing.T, data string) {
	t.Helper()
	if _, err := f.outW.Write([]byte(data)); err != nil {
		t.Fatalf("emit: %v", err)
	}
}

// EndOutput closes the shell side so the reader sees EOF.
func (f *fakePTY) EndOutput() {
	f.outW.Close()
}

// Exit makes the shell exit with code.
func (f *fakePTY) Exit(code int) {
	f.exitOnce.Do(func() {
		close(f.gone)
		f.exit <- code
	})
}

func (f *fakePTY) Input() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input.String()
}

func (f *fakePTY) Resizes() [][2]uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]uint16(nil), f.resizes...)
}

func (f *fakePTY) Write(p []byte) (int, error) {
	if f.blockWrites {
		f.writeBlocked.Store(true)
		<-f.gone
		return 0, syscall.EIO
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.input.Write(p)
}

func (f *fakePTY) Resize(cols, rows uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resizeErr != nil {
		return f.resizeErr
	}
	f.resizes = append(f.resizes, [2]uint16{cols, rows})
	return nil
}

func (f *fakePTY) Close() error {
	f.closed.Store(true)
	return f.outR.Close()
}

func (f *fakePTY) Pid() int { return f.pid }

func (f *fakePTY) Wait() (int, error) {
	return <-f.exit, nil
}

func (f *fakePTY) Hangup() error {
	f.hangups.Add(1)
	if !f.ignoreHangup {
		f.Exit(129)
	}
	return nil
}

func (f *fakePTY) Kill() error {
	f.kills.Add(1)
	f.Exit(137)
	return nil
}

// fakeLauncher hands out fakePTYs in order.
type fakeLauncher struct {
	mu       sync.Mutex
	ptys     []*fakePTY
	requests []LaunchRequest
	err      error
	nextPID  int
	prepare  func(*fakePTY)
}

func (l *fakeLauncher) Launch(req LaunchRequest) (*LaunchedPTY, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.requests = append(l.requests, req)
	if l.err != nil {
		return nil, l.err
	}
	l.nextPID++
	f := newFakePTY(1000 + l.nextPID)
	if l.prepare != nil {
		l.prepare(f)
	}
	l.ptys = append(l.ptys, f)
	return &LaunchedPTY{
		Reader:  f.outR,
		Writer:  f,
		Resizer: f,
		Closer:  f,
		Process: f,
		Shell:   "/bin/fake",
	}, nil
}

func (l *fakeLauncher) Last() *fakePTY {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ptys[len(l.ptys)-1]
}

func (l *fakeLauncher) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

// recordingSink collects delivered chunks.
type recordingSink struct {
	mu        sync.Mutex
	chunks    []models.OutputChunk
	failAfter int // reject sends once this many chunks were accepted; 0 never
	finished  chan struct{}
	finishErr error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{finished: make(chan struct{})}
}

func (s *recordingSink) Send(chunk models.OutputChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && len(s.chunks) >= s.failAfter {
		return errors.New("consumer gone")
	}
	s.chunks = append(s.chunks, chunk)
	return nil
}

func (s *recordingSink) Finish(err error) {
	s.finishErr = err
	close(s.finished)
}

func (s *recordingSink) Chunks() []models.OutputChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.OutputChunk(nil), s.chunks...)
}

func (s *recordingSink) Text() string {
	var b bytes.Buffer
	for _, c := range s.Chunks() {
		b.WriteString(c.Data)
	}
	return b.String()
}

func (s *recordingSink) WaitFinished(t *testing.T) {
	t.Helper()
	select {
	case <-s.finished:
	case <-time.After(2 * time.Second):
		t.Fatal("sink was not finished")
	}
}

// eventRecorder collects lifecycle events.
type eventRecorder struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (r *eventRecorder) Listen(e models.SessionEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) Types() []models.SessionEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.SessionEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *eventRecorder) Has(eventType models.SessionEventType) bool {
	for _, t := range r.Types() {
		if t == eventType {
			return true
		}
	}
	return false
}
