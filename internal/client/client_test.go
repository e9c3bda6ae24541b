package client

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/catnip-pty/internal/handlers"
	"github.com/vanpelt/catnip-pty/internal/models"
	"github.com/vanpelt/catnip-pty/internal/services"
)

// echoShell writes every input back as output.
type echoShell struct {
	r    *io.PipeReader
	w    *io.PipeWriter
	exit chan int
	once sync.Once
}

func (e *echoShell) Write(p []byte) (int, error) { return e.w.Write(p) }
func (e *echoShell) Resize(cols, rows uint16) error {
	return nil
}
func (e *echoShell) Close() error       { return e.r.Close() }
func (e *echoShell) Pid() int           { return 99 }
func (e *echoShell) Wait() (int, error) { return <-e.exit, nil }
func (e *echoShell) Hangup() error      { e.stop(); return nil }
func (e *echoShell) Kill() error        { e.stop(); return nil }
func (e *echoShell) stop() {
	e.once.Do(func() {
		e.w.Close()
		e.exit <- 0
	})
}

type echoLauncher struct{}

func (echoLauncher) Launch(req services.LaunchRequest) (*services.LaunchedPTY, error) {
	r, w := io.Pipe()
	sh := &echoShell{r: r, w: w, exit: make(chan int, 1)}
	return &services.LaunchedPTY{Reader: r, Writer: sh, Resizer: sh, Closer: sh, Process: sh, Shell: "/bin/echo-shell"}, nil
}

func startHost(t *testing.T, token string) string {
	t.Helper()
	svc := services.NewPTYService(echoLauncher{}, services.Options{
		CoalesceWindow: time.Millisecond,
		KillGrace:      50 * time.Millisecond,
	})
	app := handlers.NewApp(handlers.AppConfig{Service: svc, StreamBuffer: 64, AuthToken: token})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()

	t.Cleanup(func() {
		app.Close()
		svc.Shutdown(time.Second)
		_ = app.ShutdownWithTimeout(time.Second)
	})
	return "http://" + ln.Addr().String()
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com", "")
	assert.Error(t, err)

	_, err = New("://nope", "")
	assert.Error(t, err)
}

func TestClientCommands(t *testing.T) {
	base := startHost(t, "tok")
	c, err := New(base, "tok")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.CreatePTY(ctx, models.CreatePTYRequest{ID: "a", Cols: 80, Rows: 24}))

	info, err := c.GetSession(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", info.ID)
	assert.Equal(t, uint16(80), info.Cols)
	assert.True(t, info.Running)

	require.NoError(t, c.ResizePTY(ctx, "a", 100, 30))
	info, err = c.GetSession(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, uint16(100), info.Cols)
	assert.Equal(t, uint16(30), info.Rows)

	err = c.ResizePTY(ctx, "a", 0, 30)
	assert.ErrorIs(t, err, services.ErrInvalidDimensions)

	err = c.WritePTY(ctx, "missing", "x")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)

	sessions, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	require.NoError(t, c.ClosePTY(ctx, "a"))
	require.NoError(t, c.ClosePTY(ctx, "a"))

	_, err = c.GetSession(ctx, "a")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
}

func TestClientUnauthorized(t *testing.T) {
	base := startHost(t, "tok")
	c, err := New(base, "wrong")
	require.NoError(t, err)

	_, err = c.ListSessions(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
}

func TestStreamRoundTrip(t *testing.T) {
	base := startHost(t, "")
	c, err := New(base, "")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.CreatePTY(ctx, models.CreatePTYRequest{ID: "s", Cols: 80, Rows: 24}))

	stream, err := c.Stream(ctx, "s")
	require.NoError(t, err)
	defer stream.Close()

	deadline := time.After(3 * time.Second)
	var out strings.Builder
	readUntil := func(want string) {
		t.Helper()
		for out.String() != want {
			select {
			case msg, ok := <-stream.Messages():
				require.True(t, ok, "stream ended early")
				require.Equal(t, models.StreamOutput, msg.Type)
				out.WriteString(msg.Data)
			case <-deadline:
				t.Fatalf("timed out, got %q", out.String())
			}
		}
	}

	require.NoError(t, stream.SendInput("hello"))
	readUntil("hello")
	require.NoError(t, c.WritePTY(ctx, "s", " world"))
	readUntil("hello world")

	require.NoError(t, stream.Resize(0, 0))
	select {
	case msg := <-stream.Messages():
		assert.Equal(t, models.StreamError, msg.Type)
	case <-deadline:
		t.Fatal("no error message for bad resize")
	}

	require.NoError(t, c.ClosePTY(ctx, "s"))
	for msg := range stream.Messages() {
		if msg.Type == models.StreamExit {
			break
		}
	}
}

func TestStreamUnknownSession(t *testing.T) {
	base := startHost(t, "")
	c, err := New(base, "")
	require.NoError(t, err)

	_, err = c.Stream(context.Background(), "nope")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
}
