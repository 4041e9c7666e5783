package engine

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type callResult struct {
	data json.RawMessage
	err  error
}

// pendingCall is one in-flight request awaiting a reply.
type pendingCall struct {
	method string
	done   chan callResult
	timer  *time.Timer
}

// correlator tracks outstanding requests keyed by identifier and
// resolves each at most once, whichever of reply, timeout, write
// failure or session teardown happens first.
type correlator struct {
	ids     *atomic.Uint64
	timeout time.Duration

	mu      sync.Mutex
	pending map[uint64]*pendingCall
	closed  bool

	log *zap.Logger
}

func newCorrelator(ids *atomic.Uint64, timeout time.Duration, log *zap.Logger) *correlator {
	return &correlator{
		ids:     ids,
		timeout: timeout,
		pending: make(map[uint64]*pendingCall),
		log:     log.Named("correlator"),
	}
}

// register allocates the next identifier and tracks a new pending
// call with the configured timeout deadline.
func (c *correlator) register(method string) (uint64, *pendingCall, error) {
	id := c.ids.Add(1)

	call := &pendingCall{
		method: method,
		done:   make(chan callResult, 1),
	}
	call.timer = time.AfterFunc(c.timeout, func() {
		c.fail(id, ErrCallTimeout)
	})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		call.timer.Stop()
		return 0, nil, ErrNotRunning
	}
	c.pending[id] = call
	c.mu.Unlock()

	return id, call, nil
}

// resolve completes the pending call for id with the given reply. A
// reply for an unknown identifier is a no-op: the call may already
// have been resolved, timed out, or bulk-rejected.
func (c *correlator) resolve(id uint64, result json.RawMessage, rpcErr *RPCError) {
	call := c.take(id)
	if call == nil {
		c.log.Debug("dropping reply for unknown request", zap.Uint64("id", id))
		return
	}

	if rpcErr != nil {
		msg := rpcErr.Message
		if msg == "" {
			msg = "RPC error"
		}
		call.done <- callResult{err: errors.New(msg)}
		return
	}

	call.done <- callResult{data: result}
}

// fail rejects the pending call for id. A no-op if the call has
// already been completed.
func (c *correlator) fail(id uint64, err error) {
	call := c.take(id)
	if call == nil {
		return
	}

	call.done <- callResult{err: err}
}

// failAll rejects every outstanding call and refuses further
// registrations. Used on session teardown.
func (c *correlator) failAll(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[uint64]*pendingCall)
	c.closed = true
	c.mu.Unlock()

	for id, call := range pending {
		call.timer.Stop()
		c.log.Debug("rejecting outstanding request",
			zap.Uint64("id", id),
			zap.String("method", call.method),
			zap.Error(err),
		)
		call.done <- callResult{err: err}
	}
}

// take removes and returns the pending call for id. Removal under
// the lock is the single at-most-once transition: only the caller
// that removed the entry may complete it.
func (c *correlator) take(id uint64) *pendingCall {
	c.mu.Lock()
	defer c.mu.Unlock()

	call, ok := c.pending[id]
	if !ok {
		return nil
	}

	delete(c.pending, id)
	call.timer.Stop()

	return call
}

// outstanding returns the number of in-flight calls.
func (c *correlator) outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}
