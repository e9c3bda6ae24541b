package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vanpelt/catnip-pty/internal/services"
)

// fakeShell is an in-memory PTY and shell for handler tests.
type fakeShell struct {
	outR *io.PipeReader
	outW *io.PipeWriter

	mu     sync.Mutex
	input  bytes.Buffer
	exit   chan int
	once   sync.Once
	closed atomic.Bool
}

func (f *fakeShell) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input.Write(p)
}

func (f *fakeShell) Input() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input.String()
}

func (f *fakeShell) Resize(cols, rows uint16) error { return nil }
func (f *fakeShell) Close() error                   { f.closed.Store(true); return f.outR.Close() }
func (f *fakeShell) Pid() int                       { return 4242 }
func (f *fakeShell) Wait() (int, error)             { return <-f.exit, nil }
func (f *fakeShell) Hangup() error                  { f.stop(129); return nil }
func (f *fakeShell) Kill() error                    { f.stop(137); return nil }
func (f *fakeShell) stop(code int)                  { f.once.Do(func() { f.exit <- code }) }

type fakeLauncher struct {
	mu     sync.Mutex
	shells map[int]*fakeShell
	count  int
}

func (l *fakeLauncher) Launch(req services.LaunchRequest) (*services.LaunchedPTY, error) {
	r, w := io.Pipe()
	f := &fakeShell{outR: r, outW: w, exit: make(chan int, 1)}

	l.mu.Lock()
	l.count++
	if l.shells == nil {
		l.shells = make(map[int]*fakeShell)
	}
	l.shells[l.count] = f
	l.mu.Unlock()

	return &services.LaunchedPTY{
		Reader:  r,
		Writer:  f,
		Resizer: f,
		Closer:  f,
		Process: f,
		Shell:   "/bin/fake",
	}, nil
}

func (l *fakeLauncher) Last() *fakeShell {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shells[l.count]
}

func newTestApp(t *testing.T, token string) (*App, *fakeLauncher) {
	t.Helper()
	launcher := &fakeLauncher{}
	svc := services.NewPTYService(launcher, services.Options{
		CoalesceWindow: time.Millisecond,
		KillGrace:      50 * time.Millisecond,
	})
	app := NewApp(AppConfig{Service: svc, StreamBuffer: 64, AuthToken: token})
	t.Cleanup(func() {
		app.Close()
		svc.Shutdown(time.Second)
	})
	return app, launcher
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}
