//go:build !windows

package services

import "syscall"

func (p *shellProcess) Hangup() error {
	return signalGroup(p.Pid(), syscall.SIGHUP)
}

func (p *shellProcess) Kill() error {
	return signalGroup(p.Pid(), syscall.SIGKILL)
}

// signalGroup signals the process group led by pid, falling back to the
// process alone when the group is already gone.
func signalGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil {
		if err == syscall.ESRCH {
			return nil
		}
		return syscall.Kill(pid, sig)
	}
	return nil
}
