package engine

import (
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

type proc struct {
	pid     int
	cmd     *exec.Cmd
	done    chan struct{}
	exitErr error
	stdout  io.ReadCloser
	stderr  io.ReadCloser
	stdin   io.WriteCloser

	log *zap.Logger
}

func startProc(config StartConfig, log *zap.Logger) (*proc, error) {
	if config.Cmd == "" {
		return nil, fmt.Errorf("no engine command configured")
	}

	// resolve the binary to an absolute path so the engine does not
	// depend on the shell's working directory or PATH at exec time
	path, err := exec.LookPath(config.Cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve engine binary: %w", err)
	}

	if path, err = filepath.Abs(path); err != nil {
		return nil, fmt.Errorf("failed to resolve engine binary: %w", err)
	}

	cmd := exec.Command(path, config.Args...)

	if config.Env != nil {
		env := make([]string, 0, len(config.Env))
		for k, v := range config.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}

	if config.Cwd != "" {
		cmd.Dir = config.Cwd
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	initCmd(cmd)

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	log = log.Named("proc").With(zap.Int("pid", cmd.Process.Pid))

	process := &proc{
		pid:    cmd.Process.Pid,
		cmd:    cmd,
		done:   make(chan struct{}),
		stdout: stdout,
		stderr: stderr,
		stdin:  stdin,
		log:    log,
	}

	go func() {
		// block until the process exits
		process.exitErr = cmd.Wait()

		// signal exit to observers
		close(process.done)
	}()

	return process, nil
}

// Done returns a channel that is closed once the process has exited.
func (p *proc) Done() <-chan struct{} {
	return p.done
}

// ExitErr returns the error reported by the OS for the exited
// process. Only valid after Done is closed.
func (p *proc) ExitErr() error {
	return p.exitErr
}

// Alive reports whether the OS has not yet produced an exit
// code for the process.
func (p *proc) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// CloseStdin signals end-of-input to the process, giving it the
// chance to exit voluntarily.
func (p *proc) CloseStdin() error {
	return p.stdin.Close()
}

// Terminate asks the process to stop. On unix this sends SIGTERM to
// the process group; on Windows it is equivalent to Kill.
func (p *proc) Terminate() error {
	if !p.Alive() {
		p.log.Debug("process already terminated")
		return nil
	}

	p.log.Info("terminating process")

	return p.signalProcess(false)
}

// Kill force-kills the process without waiting.
func (p *proc) Kill() error {
	if !p.Alive() {
		p.log.Debug("process already terminated")
		return nil
	}

	p.log.Info("killing process")

	return p.signalProcess(true)
}

// WaitFor blocks until the process exits or the timeout elapses.
// A zero timeout waits indefinitely.
func (p *proc) WaitFor(timeout time.Duration) error {
	if timeout == 0 {
		<-p.done
		return nil
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(timeout):
		return ErrKillTimeout
	}
}

// StdinPipe returns the pipe connected to the process's stdin.
func (p *proc) StdinPipe() io.WriteCloser {
	return p.stdin
}

// StdoutPipe returns the pipe connected to the process's stdout.
func (p *proc) StdoutPipe() io.ReadCloser {
	return p.stdout
}

// StderrPipe returns the pipe connected to the process's stderr.
func (p *proc) StderrPipe() io.ReadCloser {
	return p.stderr
}
