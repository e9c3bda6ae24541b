//go:build windows

package services

// Windows has no process groups or SIGHUP; both fall back to terminating
// the shell itself.

func (p *shellProcess) Hangup() error {
	return p.cmd.Process.Kill()
}

func (p *shellProcess) Kill() error {
	return p.cmd.Process.Kill()
}
