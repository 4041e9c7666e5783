package engine

import (
	"errors"
	"time"
)

var (
	ErrNotRunning     = errors.New("engine not running")
	ErrAlreadyStarted = errors.New("engine already started")
	ErrCallTimeout    = errors.New("call timed out")
	ErrShuttingDown   = errors.New("engine shutting down")
	ErrProcessExited  = errors.New("engine process exited")
	ErrKillTimeout    = errors.New("kill timeout")
)

// StartConfig describes how to launch the engine binary.
type StartConfig struct {
	// Cmd is the path or name of the engine binary to execute
	Cmd string `conf:"command"`

	// Cwd is the working directory in which
	// the binary should be executed
	Cwd string `conf:"cwd"`

	// Args is the list of arguments to pass to the engine
	Args []string `conf:"args"`

	// Env is a map of environment variables
	// to set when running the engine
	Env map[string]string `conf:"env"`
}

// Config is the configuration for the engine supervisor.
type Config struct {
	// Start describes how to launch the engine process.
	Start StartConfig `conf:"start,squash"`

	// CallTimeout is the per-request timeout for engine calls.
	CallTimeout time.Duration `conf:"call_timeout"`

	// GraceTimeout is the duration to wait after closing the engine's
	// stdin before escalating to a termination signal.
	GraceTimeout time.Duration `conf:"grace_timeout"`

	// KillTimeout is the duration after which a shutdown that has not
	// completed force-kills the engine process.
	KillTimeout time.Duration `conf:"kill_timeout"`

	// MaxRestarts is the number of automatic restarts after
	// unexpected engine exits.
	MaxRestarts int `conf:"max_restarts"`

	// RestartBackoff is the base delay of the exponential restart
	// backoff. The n-th restart waits RestartBackoff * 2^(n-1).
	RestartBackoff time.Duration `conf:"restart_backoff"`

	// HealthyReset is the duration a session has to stay alive for the
	// restart counter to reset to zero. Zero disables the reset.
	HealthyReset time.Duration `conf:"healthy_reset"`
}

func (c Config) withDefaults() Config {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.GraceTimeout <= 0 {
		c.GraceTimeout = 500 * time.Millisecond
	}
	if c.KillTimeout <= 0 {
		c.KillTimeout = 5 * time.Second
	}
	if c.MaxRestarts == 0 {
		c.MaxRestarts = 3
	}
	if c.RestartBackoff <= 0 {
		c.RestartBackoff = time.Second
	}
	if c.HealthyReset < 0 {
		c.HealthyReset = 0
	}
	return c
}

// Status describes the connectivity of the engine process, as
// observed by the supervisor.
type Status struct {
	// Connected reports whether a live engine process is available.
	Connected bool `json:"connected"`

	// Restarting reports whether the supervisor is about to spawn
	// a replacement after an unexpected exit.
	Restarting bool `json:"restarting"`
}
