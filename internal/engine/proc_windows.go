//go:build windows

package engine

import "os/exec"

func (p *proc) signalProcess(_ bool) error {
	return p.cmd.Process.Kill()
}

func initCmd(cmd *exec.Cmd) {
	// No-op on Windows.
}

// canTerminate reports whether the platform supports a graceful
// termination signal distinct from a forced kill.
func canTerminate() bool {
	return false
}
