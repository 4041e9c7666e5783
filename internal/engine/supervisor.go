package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Supervisor owns the engine process lifecycle: it spawns the
// process, brokers calls to the current session, restarts the engine
// with exponential backoff after unexpected exits, and notifies
// observers of connectivity changes. At most one session is current
// at any time.
type Supervisor struct {
	config Config

	// nextID outlives individual sessions: request identifiers are
	// never reused within the supervisor's lifetime, even across
	// engine restarts
	nextID atomic.Uint64

	events *broadcaster

	mu           sync.Mutex
	current      *session
	shuttingDown bool
	restarts     int
	healthyTimer *time.Timer

	statusMu sync.Mutex
	statusCb map[int]StatusHandler
	nextCb   int

	log *zap.Logger
}

func NewSupervisor(config Config, log *zap.Logger) *Supervisor {
	return &Supervisor{
		config:   config.withDefaults(),
		events:   newBroadcaster(),
		statusCb: make(map[int]StatusHandler),
		log:      log.Named("supervisor"),
	}
}

// Start spawns the engine process. A spawn failure surfaces as an
// immediate disconnected status and does not enter the restart loop.
func (s *Supervisor) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("failed to start engine: %w", ctx.Err())
	}

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	err := s.spawnLocked()
	s.mu.Unlock()

	if err != nil {
		s.notify(Status{Connected: false, Restarting: false})
		return err
	}

	s.notify(Status{Connected: true, Restarting: false})

	return nil
}

// spawnLocked starts a fresh session and its exit monitor.
// Callers must hold s.mu.
func (s *Supervisor) spawnLocked() error {
	sess, err := startSession(
		s.config.Start,
		&s.nextID,
		s.config.CallTimeout,
		s.events,
		s.log,
	)
	if err != nil {
		return err
	}

	s.current = sess

	if s.config.HealthyReset > 0 {
		count := s.restarts
		s.healthyTimer = time.AfterFunc(s.config.HealthyReset, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			// only reset if the same session is still alive
			if s.current == sess && s.restarts == count {
				s.restarts = 0
			}
		})
	}

	go s.monitor(sess)

	return nil
}

// monitor waits for the session's process to exit and drives the
// restart policy for unexpected exits.
func (s *Supervisor) monitor(sess *session) {
	<-sess.Done()

	s.mu.Lock()

	if s.current != sess {
		// a shutdown already detached this session; nothing to do
		s.mu.Unlock()
		return
	}

	s.current = nil
	if s.healthyTimer != nil {
		s.healthyTimer.Stop()
	}

	sess.reject(ErrProcessExited)

	exitErr := sess.proc.ExitErr()
	s.log.Warn("engine exited unexpectedly", zap.Error(exitErr))

	if s.shuttingDown {
		s.mu.Unlock()
		return
	}

	if s.restarts >= s.config.MaxRestarts {
		s.mu.Unlock()
		s.log.Error("restart ceiling reached, giving up",
			zap.Int("restarts", s.config.MaxRestarts),
		)
		s.notify(Status{Connected: false, Restarting: false})
		return
	}

	s.restarts++
	attempt := s.restarts
	delay := s.backoff(attempt)
	s.mu.Unlock()

	s.notify(Status{Connected: false, Restarting: true})

	s.log.Info("restarting engine",
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
	)

	time.Sleep(delay)

	s.mu.Lock()
	if s.shuttingDown || s.current != nil {
		s.mu.Unlock()
		return
	}
	err := s.spawnLocked()
	s.mu.Unlock()

	if err != nil {
		s.log.Error("engine restart failed", zap.Error(err))
		s.notify(Status{Connected: false, Restarting: false})
		return
	}

	s.notify(Status{Connected: true, Restarting: false})
}

// backoff returns the delay before the n-th restart attempt:
// base * 2^(n-1).
func (s *Supervisor) backoff(n int) time.Duration {
	return s.config.RestartBackoff << (n - 1)
}

// Call issues one request against the current session. It fails
// immediately with ErrNotRunning when no live session exists; calls
// are never queued across restarts.
func (s *Supervisor) Call(
	ctx context.Context,
	method string,
	params map[string]any,
) (json.RawMessage, error) {
	s.mu.Lock()
	sess := s.current
	s.mu.Unlock()

	if sess == nil || !sess.Alive() {
		return nil, ErrNotRunning
	}

	return sess.Call(ctx, method, params)
}

// Running reports whether a live engine process exists.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current != nil && s.current.Alive()
}

// Status returns the current connectivity snapshot.
func (s *Supervisor) Status() Status {
	return Status{Connected: s.Running()}
}

// SubscribeEvents registers a handler for every engine event. The
// returned function removes the subscription.
func (s *Supervisor) SubscribeEvents(h EventHandler) func() {
	return s.events.Subscribe(h)
}

// OnEvent installs the single external event callback, replacing
// any previous one.
func (s *Supervisor) OnEvent(h EventHandler) {
	s.events.SetCallback(h)
}

// SubscribeStatus registers a handler for connectivity changes. The
// returned function removes the subscription.
func (s *Supervisor) SubscribeStatus(h StatusHandler) func() {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	id := s.nextCb
	s.nextCb++
	s.statusCb[id] = h

	return func() {
		s.statusMu.Lock()
		defer s.statusMu.Unlock()
		delete(s.statusCb, id)
	}
}

func (s *Supervisor) notify(status Status) {
	s.statusMu.Lock()
	handlers := make([]StatusHandler, 0, len(s.statusCb))
	for i := 0; i < s.nextCb; i++ {
		if h, ok := s.statusCb[i]; ok {
			handlers = append(handlers, h)
		}
	}
	s.statusMu.Unlock()

	for _, h := range handlers {
		h(status)
	}
}

// Shutdown performs the deliberate two-phase stop of the engine.
// Pending calls are rejected the moment shutdown is invoked.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return nil
	}
	s.shuttingDown = true
	sess := s.current
	s.current = nil
	if s.healthyTimer != nil {
		s.healthyTimer.Stop()
	}
	s.mu.Unlock()

	if sess != nil {
		sess.shutdown(s.config.GraceTimeout, s.config.KillTimeout)
	}

	s.notify(Status{Connected: false, Restarting: false})

	return nil
}
