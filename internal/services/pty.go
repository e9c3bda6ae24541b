package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vanpelt/catnip-pty/internal/config"
	"github.com/vanpelt/catnip-pty/internal/logger"
	"github.com/vanpelt/catnip-pty/internal/metrics"
	"github.com/vanpelt/catnip-pty/internal/models"
)

var (
	// ErrSessionNotFound is returned for ids that are not registered.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidDimensions is returned when cols or rows is zero.
	ErrInvalidDimensions = errors.New("invalid PTY dimensions")
	// ErrInvalidRequest is returned for malformed commands.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrLaunchFailed wraps failures to open a PTY or spawn the shell.
	ErrLaunchFailed = errors.New("failed to launch shell")
	// ErrSessionIO wraps write and resize failures on a live session.
	ErrSessionIO = errors.New("session I/O failed")
)

func invalidDimensions(cols, rows uint16) error {
	return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cols, rows)
}

// Options tunes a PTYService.
type Options struct {
	ReadBufferSize int
	CoalesceWindow time.Duration
	KillGrace      time.Duration
}

// OptionsFromConfig extracts service options from the PTY config section.
func OptionsFromConfig(cfg config.PTYConfig) Options {
	return Options{
		ReadBufferSize: cfg.ReadBufferSize,
		CoalesceWindow: cfg.CoalesceWindow,
		KillGrace:      cfg.KillGrace,
	}
}

// EventListener receives session lifecycle events. It is called
// synchronously and must not block.
type EventListener func(models.SessionEvent)

// PTYService manages the set of PTY sessions behind the terminal UI.
type PTYService struct {
	launcher Launcher
	registry *Registry

	readBufferSize int
	killGrace      time.Duration
	window         atomic.Int64

	listenerMu sync.RWMutex
	listener   EventListener
}

// NewPTYService creates a service that spawns shells through launcher.
func NewPTYService(launcher Launcher, opts Options) *PTYService {
	if opts.ReadBufferSize < config.MinReadBufferSize {
		opts.ReadBufferSize = config.MinReadBufferSize
	}
	if opts.KillGrace <= 0 {
		opts.KillGrace = config.DefaultKillGrace
	}

	s := &PTYService{
		launcher:       launcher,
		registry:       NewRegistry(),
		readBufferSize: opts.ReadBufferSize,
		killGrace:      opts.KillGrace,
	}
	s.SetCoalesceWindow(opts.CoalesceWindow)
	return s
}

// SetCoalesceWindow changes how long output is held back for batching.
// Running sessions pick it up on their next batch.
func (s *PTYService) SetCoalesceWindow(d time.Duration) {
	if d < 0 {
		d = 0
	}
	if d > config.MaxCoalesceWindow {
		d = config.MaxCoalesceWindow
	}
	s.window.Store(int64(d))
}

// CoalesceWindow returns the current coalescing window.
func (s *PTYService) CoalesceWindow() time.Duration {
	return time.Duration(s.window.Load())
}

// SetEventListener installs fn as the lifecycle event listener. nil removes
// it.
func (s *PTYService) SetEventListener(fn EventListener) {
	s.listenerMu.Lock()
	s.listener = fn
	s.listenerMu.Unlock()
}

func (s *PTYService) emit(eventType models.SessionEventType, id string, payload any) {
	s.listenerMu.RLock()
	fn := s.listener
	s.listenerMu.RUnlock()

	if fn != nil {
		fn(models.SessionEvent{Type: eventType, SessionID: id, Payload: payload})
	}
}

// CreatePTY spawns a login shell on a new cols x rows PTY and streams its
// output to sink. An existing session with the same id is replaced and
// released. Nothing is registered on error.
func (s *PTYService) CreatePTY(id string, cols, rows uint16, cwd string, sink OutputSink) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	if cols == 0 || rows == 0 {
		return invalidDimensions(cols, rows)
	}
	if sink == nil {
		return fmt.Errorf("%w: output sink is required", ErrInvalidRequest)
	}

	log := logger.ForSession(id)

	launched, err := s.launcher.Launch(LaunchRequest{Cols: cols, Rows: rows, Cwd: cwd})
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to launch PTY")
		return err
	}

	session := &ptySession{
		id:        id,
		shell:     launched.Shell,
		cwd:       cwd,
		createdAt: time.Now(),
		pid:       launched.Process.Pid(),
		writer:    launched.Writer,
		resizer:   launched.Resizer,
		closer:    launched.Closer,
		process:   launched.Process,
		cols:      cols,
		rows:      rows,
		exited:    make(chan struct{}),
		log:       log,
	}
	session.pipeline = startPipeline(id, launched.Reader, sink, s.readBufferSize, s.CoalesceWindow, log)
	session.wait(func(code int) {
		s.emit(models.SessionExitedEvent, id, models.SessionExitedPayload{PID: session.pid, ExitCode: code})
	})

	if prev := s.registry.Put(session); prev != nil {
		log.Info().Int("previous_pid", prev.pid).Msg("♻️ Replacing existing PTY session")
		s.emit(models.SessionClosedEvent, id, nil)
		prev.release(s.killGrace)
	}

	metrics.SessionsCreated.Inc()
	metrics.SessionsActive.Set(float64(s.registry.Len()))

	log.Info().
		Str("shell", session.shell).
		Int("pid", session.pid).
		Uint16("cols", cols).
		Uint16("rows", rows).
		Msg("🚀 PTY session started")

	s.emit(models.SessionCreatedEvent, id, models.SessionCreatedPayload{
		PID:   session.pid,
		Shell: session.shell,
		Cols:  cols,
		Rows:  rows,
	})
	return nil
}

// WritePTY sends data to the shell's input. A failed write leaves the
// session registered.
func (s *PTYService) WritePTY(id string, data []byte) error {
	session, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := session.write(data); err != nil {
		session.log.Warn().Err(err).Msg("⚠️ PTY write failed")
		return err
	}
	metrics.InputBytes.Add(float64(len(data)))
	return nil
}

// ResizePTY changes the window size. Repeating the current size is a no-op
// that never reaches the PTY.
func (s *PTYService) ResizePTY(id string, cols, rows uint16) error {
	if cols == 0 || rows == 0 {
		return invalidDimensions(cols, rows)
	}

	session, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	applied, err := session.resize(cols, rows)
	switch {
	case err != nil:
		metrics.Resizes.WithLabelValues(metrics.ResizeFailed).Inc()
		session.log.Warn().Err(err).Msg("⚠️ PTY resize failed")
		return err
	case !applied:
		metrics.Resizes.WithLabelValues(metrics.ResizeSkipped).Inc()
		return nil
	}

	metrics.Resizes.WithLabelValues(metrics.ResizeApplied).Inc()
	session.log.Debug().Uint16("cols", cols).Uint16("rows", rows).Msg("📐 Resized PTY")
	s.emit(models.SessionResizedEvent, id, models.SessionResizedPayload{Cols: cols, Rows: rows})
	return nil
}

// ClosePTY unregisters the session and terminates its shell. Unknown or
// already closed ids are not an error.
func (s *PTYService) ClosePTY(id string) error {
	session := s.registry.Remove(id)
	if session == nil {
		return nil
	}

	metrics.SessionsActive.Set(float64(s.registry.Len()))
	s.emit(models.SessionClosedEvent, id, nil)
	session.release(s.killGrace)
	session.log.Info().Int("pid", session.pid).Msg("🧹 Closed PTY session")
	return nil
}

// GetSession returns the public view of one session.
func (s *PTYService) GetSession(id string) (models.PTYSessionInfo, error) {
	session, err := s.registry.Get(id)
	if err != nil {
		return models.PTYSessionInfo{}, err
	}
	return session.info(), nil
}

// ListSessions returns all sessions, oldest first.
func (s *PTYService) ListSessions() []models.PTYSessionInfo {
	sessions := s.registry.Snapshot()
	out := make([]models.PTYSessionInfo, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, session.info())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Shutdown closes every session and waits up to timeout for their shells
// to exit and their output to be flushed.
func (s *PTYService) Shutdown(timeout time.Duration) {
	sessions := s.registry.Drain()
	if len(sessions) == 0 {
		return
	}
	logger.Infof("🛑 Shutting down %d PTY session(s)", len(sessions))

	for _, session := range sessions {
		s.emit(models.SessionClosedEvent, session.id, nil)
		session.release(s.killGrace)
	}
	metrics.SessionsActive.Set(0)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for _, session := range sessions {
		select {
		case <-session.exited:
		case <-deadline.C:
			logger.Warnf("⚠️ Timed out waiting for PTY sessions to exit")
			return
		}
		select {
		case <-session.pipeline.Done():
		case <-deadline.C:
			logger.Warnf("⚠️ Timed out waiting for PTY output to flush")
			return
		}
	}
}
