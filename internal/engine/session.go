package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// session is the live handle to one spawned engine process: the
// process itself, the framed transport on its stdio, and the set of
// in-flight calls. A session's outstanding requests never carry over
// to a successor session.
type session struct {
	proc      *proc
	transport *lineTransport
	calls     *correlator
	events    *broadcaster

	log *zap.Logger
}

func startSession(
	config StartConfig,
	ids *atomic.Uint64,
	callTimeout time.Duration,
	events *broadcaster,
	log *zap.Logger,
) (*session, error) {
	log = log.Named("session")

	log.With(
		zap.String("command", config.Cmd),
		zap.Strings("args", config.Args),
		zap.String("cwd", config.Cwd),
	).Debug("starting engine process")

	process, err := startProc(config, log)
	if err != nil {
		return nil, fmt.Errorf("failed to start engine process: %w", err)
	}

	s := &session{
		proc:      process,
		transport: newLineTransport(process.StdinPipe(), log),
		calls:     newCorrelator(ids, callTimeout, log),
		events:    events,
		log:       log,
	}

	// a single goroutine drives the stdout stream, so replies and
	// events are dispatched in exactly the order the engine emitted
	// them
	go s.transport.readLines(process.StdoutPipe(), s.dispatch)

	go drainStderr(process.StderrPipe(), log)

	return s, nil
}

func (s *session) dispatch(msg Inbound) {
	switch {
	case msg.IsReply():
		s.calls.resolve(*msg.ID, msg.Result, msg.Error)
	case msg.IsEvent():
		s.events.publish(msg.Event, msg.Data)
	default:
		s.log.Warn("dropping message with neither id nor event")
	}
}

// Call issues one request and suspends the caller until the matching
// reply arrives, the per-request timeout fires, the write fails, or
// the session is torn down.
func (s *session) Call(
	ctx context.Context,
	method string,
	params map[string]any,
) (json.RawMessage, error) {
	if !s.proc.Alive() {
		return nil, ErrNotRunning
	}

	id, call, err := s.calls.register(method)
	if err != nil {
		return nil, err
	}

	if err := s.transport.Send(Request{ID: id, Method: method, Params: params}); err != nil {
		s.calls.fail(id, fmt.Errorf("failed to write request: %w", err))
	}

	select {
	case <-ctx.Done():
		s.calls.fail(id, ctx.Err())
	case res := <-call.done:
		return res.data, res.err
	}

	res := <-call.done
	return res.data, res.err
}

// Alive reports whether the engine process has not yet exited.
func (s *session) Alive() bool {
	return s.proc.Alive()
}

// Done is closed once the engine process has exited.
func (s *session) Done() <-chan struct{} {
	return s.proc.Done()
}

// reject bulk-fails every outstanding call on this session.
func (s *session) reject(err error) {
	s.calls.failAll(err)
}

// shutdown performs the two-phase stop: close stdin so the engine
// observes end-of-input, escalate to a termination signal after the
// grace period where the platform supports one, and force-kill if
// the process is still around when the kill timeout expires.
// Outstanding calls are rejected immediately, not when the process
// actually dies.
func (s *session) shutdown(grace, kill time.Duration) {
	s.calls.failAll(ErrShuttingDown)

	deadline := time.Now().Add(kill)

	if err := s.proc.CloseStdin(); err != nil {
		s.log.Debug("close stdin failed", zap.Error(err))
	}

	if canTerminate() {
		if err := s.proc.WaitFor(grace); err == nil {
			return
		}

		if err := s.proc.Terminate(); err != nil {
			s.log.Warn("terminate failed", zap.Error(err))
		}
	}

	if err := s.proc.WaitFor(time.Until(deadline)); err == nil {
		return
	}

	s.log.Warn("engine did not exit in time, killing")

	if err := s.proc.Kill(); err != nil {
		s.log.Error("kill failed", zap.Error(err))
	}

	s.proc.WaitFor(0)
}
