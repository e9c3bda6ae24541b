package services

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/creack/pty"
)

// LaunchRequest describes the shell to spawn.
type LaunchRequest struct {
	Cols uint16
	Rows uint16
	Cwd  string
}

// Resizer applies a new window size to a PTY.
type Resizer interface {
	Resize(cols, rows uint16) error
}

// Process is the spawned shell. Hangup and Kill address the whole process
// group the shell leads.
type Process interface {
	Pid() int
	// Wait blocks until the process exits and returns its exit code.
	// It is called exactly once.
	Wait() (int, error)
	Hangup() error
	Kill() error
}

// LaunchedPTY holds the handles of a freshly spawned shell. Reader belongs to
// the session's reader goroutine, Writer and Resizer to the session itself.
// Closing Closer releases the PTY and unblocks a pending Read.
type LaunchedPTY struct {
	Reader  io.Reader
	Writer  io.Writer
	Resizer Resizer
	Closer  io.Closer
	Process Process
	Shell   string
}

// Launcher spawns shells attached to new PTYs.
type Launcher interface {
	Launch(req LaunchRequest) (*LaunchedPTY, error)
}

// ShellLauncher spawns the user's login shell with creack/pty.
type ShellLauncher struct {
	DefaultShell      string
	TermProgram       string
	ExtraDenylist     []string
	ExtraDenyPrefixes []string

	// Environ supplies the ambient environment. Defaults to os.Environ.
	Environ func() []string
}

// NewShellLauncher creates a launcher that falls back to defaultShell when
// SHELL is unset.
func NewShellLauncher(defaultShell, termProgram string) *ShellLauncher {
	return &ShellLauncher{
		DefaultShell: defaultShell,
		TermProgram:  termProgram,
		Environ:      os.Environ,
	}
}

// ResolveShell returns SHELL from environ or the fallback.
func ResolveShell(environ []string, fallback string) string {
	for i := len(environ) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(environ[i], "SHELL="); ok && v != "" {
			return v
		}
	}
	return fallback
}

// Launch opens a PTY of the requested size and starts the shell as a login
// shell on its slave side. Nothing is left open or running on error.
func (l *ShellLauncher) Launch(req LaunchRequest) (*LaunchedPTY, error) {
	if req.Cols == 0 || req.Rows == 0 {
		return nil, invalidDimensions(req.Cols, req.Rows)
	}

	environ := os.Environ
	if l.Environ != nil {
		environ = l.Environ
	}
	ambient := environ()
	shell := ResolveShell(ambient, l.DefaultShell)

	if req.Cwd != "" {
		info, err := os.Stat(req.Cwd)
		if err != nil {
			return nil, fmt.Errorf("%w: working directory: %w", ErrLaunchFailed, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: working directory %s is not a directory", ErrLaunchFailed, req.Cwd)
		}
	}

	cmd := exec.Command(shell, "-l")
	cmd.Dir = req.Cwd
	cmd.Env = SanitizeEnv(ambient, EnvOptions{
		Shell:             shell,
		TermProgram:       l.TermProgram,
		Cols:              req.Cols,
		Rows:              req.Rows,
		ExtraDenylist:     l.ExtraDenylist,
		ExtraDenyPrefixes: l.ExtraDenyPrefixes,
	})

	// StartWithSize makes the shell a session and process group leader with
	// the PTY slave as its controlling terminal.
	master, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: req.Cols, Rows: req.Rows})
	if err != nil {
		return nil, fmt.Errorf("%w: start %s: %w", ErrLaunchFailed, shell, err)
	}

	return &LaunchedPTY{
		Reader:  master,
		Writer:  master,
		Resizer: ptyResizer{master: master},
		Closer:  master,
		Process: &shellProcess{cmd: cmd},
		Shell:   shell,
	}, nil
}

type ptyResizer struct {
	master *os.File
}

func (r ptyResizer) Resize(cols, rows uint16) error {
	return pty.Setsize(r.master, &pty.Winsize{Cols: cols, Rows: rows})
}

type shellProcess struct {
	cmd *exec.Cmd
}

func (p *shellProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *shellProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if p.cmd.ProcessState == nil {
		return -1, err
	}
	if _, ok := err.(*exec.ExitError); ok {
		// A non-zero exit is reported through the code, not as a failure.
		err = nil
	}
	return p.cmd.ProcessState.ExitCode(), err
}
