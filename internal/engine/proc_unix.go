//go:build !windows

package engine

import (
	"os/exec"
	"syscall"
)

func (p *proc) signalProcess(force bool) error {
	signal := syscall.SIGTERM
	if force {
		signal = syscall.SIGKILL
	}
	if pgid, err := syscall.Getpgid(p.pid); err == nil {
		// Negative pid sends signal to all in process group
		return syscall.Kill(-pgid, signal)
	} else {
		return syscall.Kill(p.pid, signal)
	}
}

func initCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// canTerminate reports whether the platform supports a graceful
// termination signal distinct from a forced kill.
func canTerminate() bool {
	return true
}
