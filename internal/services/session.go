package services

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/vanpelt/catnip-pty/internal/models"
	"github.com/vanpelt/catnip-pty/internal/recovery"
)

// ptySession is one live shell. Writes and resizes are serialized by ioMu.
// Teardown never takes ioMu, so a write blocked on a shell that stopped
// reading cannot hold up a close. The PTY reader belongs to the pipeline's
// reader goroutine.
type ptySession struct {
	id        string
	shell     string
	cwd       string
	createdAt time.Time
	pid       int

	writer   io.Writer
	resizer  Resizer
	closer   io.Closer
	process  Process
	pipeline *pipeline

	ioMu     sync.Mutex
	released atomic.Bool

	// dimsMu guards cols and rows so info never waits behind a blocked write.
	dimsMu sync.Mutex
	cols   uint16
	rows   uint16

	exited   chan struct{}
	exitCode int
	waitErr  error

	releaseOnce sync.Once
	log         zerolog.Logger
}

// wait reaps the shell and closes exited. onExit runs afterwards.
func (s *ptySession) wait(onExit func(code int)) {
	recovery.SafeGo("pty-waiter:"+s.id, func() {
		code, err := s.process.Wait()
		s.exitCode = code
		s.waitErr = err
		close(s.exited)

		if err != nil {
			s.log.Warn().Err(err).Int("pid", s.pid).Msg("⚠️ Failed to reap shell")
		} else {
			s.log.Info().Int("pid", s.pid).Int("exit_code", code).Msg("🏁 Shell exited")
		}
		if onExit != nil {
			onExit(code)
		}
	})
}

func (s *ptySession) hasExited() bool {
	select {
	case <-s.exited:
		return true
	default:
		return false
	}
}

func (s *ptySession) write(data []byte) error {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	if s.released.Load() {
		return ErrSessionNotFound
	}
	if _, err := s.writer.Write(data); err != nil {
		return fmt.Errorf("%w: write to session %s: %w", ErrSessionIO, s.id, err)
	}
	return nil
}

// resize applies cols x rows unless they match the last applied size. It
// reports whether the PTY was actually resized.
func (s *ptySession) resize(cols, rows uint16) (bool, error) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	if s.released.Load() {
		return false, ErrSessionNotFound
	}
	s.dimsMu.Lock()
	same := s.cols == cols && s.rows == rows
	s.dimsMu.Unlock()
	if same {
		return false, nil
	}
	if err := s.resizer.Resize(cols, rows); err != nil {
		return false, fmt.Errorf("%w: resize session %s to %dx%d: %w", ErrSessionIO, s.id, cols, rows, err)
	}
	s.dimsMu.Lock()
	s.cols = cols
	s.rows = rows
	s.dimsMu.Unlock()
	return true, nil
}

// release hangs up the shell's process group, closes the PTY master and
// escalates to SIGKILL if the group is still alive after grace. Once the
// group is gone the slave side closes, so a write blocked on a full input
// queue fails with EIO. It returns immediately and is safe to call more
// than once.
func (s *ptySession) release(grace time.Duration) {
	s.releaseOnce.Do(func() {
		s.released.Store(true)

		running := !s.hasExited()
		if running {
			if err := s.process.Hangup(); err != nil {
				s.log.Debug().Err(err).Int("pid", s.pid).Msg("SIGHUP failed")
			}
		}
		if err := s.closer.Close(); err != nil {
			s.log.Debug().Err(err).Msg("Closing PTY master failed")
		}
		if !running {
			return
		}

		recovery.SafeGo("pty-reaper:"+s.id, func() {
			timer := time.NewTimer(grace)
			defer timer.Stop()

			select {
			case <-s.exited:
			case <-timer.C:
				s.log.Warn().Int("pid", s.pid).Dur("grace", grace).Msg("💀 Shell ignored SIGHUP, killing process group")
				if err := s.process.Kill(); err != nil {
					s.log.Debug().Err(err).Int("pid", s.pid).Msg("SIGKILL failed")
				}
			}
		})
	})
}

func (s *ptySession) info() models.PTYSessionInfo {
	s.dimsMu.Lock()
	cols, rows := s.cols, s.rows
	s.dimsMu.Unlock()

	info := models.PTYSessionInfo{
		ID:        s.id,
		Shell:     s.shell,
		Cwd:       s.cwd,
		Cols:      cols,
		Rows:      rows,
		PID:       s.pid,
		CreatedAt: s.createdAt,
		Running:   !s.hasExited(),
	}
	if !info.Running {
		code := s.exitCode
		info.ExitCode = &code
	}
	return info
}
