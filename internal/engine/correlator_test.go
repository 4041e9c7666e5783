package engine

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCorrelator(timeout time.Duration) *correlator {
	var ids atomic.Uint64
	return newCorrelator(&ids, timeout, zap.NewNop())
}

func TestCorrelator_Register_AssignsMonotonicIDs(t *testing.T) {
	c := newTestCorrelator(time.Minute)

	id1, _, err := c.register("a")
	require.NoError(t, err)
	id2, _, err := c.register("b")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(2), id2)
}

func TestCorrelator_Register_UniqueIDsUnderConcurrency(t *testing.T) {
	c := newTestCorrelator(time.Minute)

	const n = 100

	var mu sync.Mutex
	seen := make(map[uint64]bool)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _, err := c.register("m")
			require.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			seen[id] = true
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.Equal(t, n, c.outstanding())
}

func TestCorrelator_Resolve_CompletesCall(t *testing.T) {
	c := newTestCorrelator(time.Minute)

	id, call, err := c.register("get_download")
	require.NoError(t, err)

	c.resolve(id, json.RawMessage(`{"name":"f.iso"}`), nil)

	res := <-call.done
	require.NoError(t, res.err)
	assert.JSONEq(t, `{"name":"f.iso"}`, string(res.data))
	assert.Zero(t, c.outstanding())
}

func TestCorrelator_Resolve_ErrorPayload(t *testing.T) {
	c := newTestCorrelator(time.Minute)

	id, call, err := c.register("add_download")
	require.NoError(t, err)

	c.resolve(id, nil, &RPCError{Message: "disk full"})

	res := <-call.done
	require.EqualError(t, res.err, "disk full")
}

func TestCorrelator_Resolve_ErrorWithoutMessage(t *testing.T) {
	c := newTestCorrelator(time.Minute)

	id, call, err := c.register("add_download")
	require.NoError(t, err)

	c.resolve(id, nil, &RPCError{})

	res := <-call.done
	require.EqualError(t, res.err, "RPC error")
}

func TestCorrelator_Resolve_UnknownIDIsNoop(t *testing.T) {
	c := newTestCorrelator(time.Minute)

	assert.NotPanics(t, func() {
		c.resolve(42, json.RawMessage(`{}`), nil)
	})
}

func TestCorrelator_Timeout_RejectsCall(t *testing.T) {
	c := newTestCorrelator(20 * time.Millisecond)

	_, call, err := c.register("get_settings")
	require.NoError(t, err)

	select {
	case res := <-call.done:
		assert.ErrorIs(t, res.err, ErrCallTimeout)
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}

	assert.Zero(t, c.outstanding())
}

func TestCorrelator_AtMostOnceResolution(t *testing.T) {
	c := newTestCorrelator(10 * time.Millisecond)

	id, call, err := c.register("get_settings")
	require.NoError(t, err)

	// race the reply against the timeout and a bulk rejection; the
	// completion slot must be written exactly once
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.resolve(id, json.RawMessage(`"ok"`), nil)
	}()
	go func() {
		defer wg.Done()
		c.failAll(ErrProcessExited)
	}()
	wg.Wait()

	<-call.done

	select {
	case res, ok := <-call.done:
		if ok {
			t.Fatalf("completion slot written twice: %+v", res)
		}
	case <-time.After(50 * time.Millisecond):
		// no second write observed, including after the timeout window
	}
}

func TestCorrelator_FailAll_RejectsEverything(t *testing.T) {
	c := newTestCorrelator(time.Minute)

	_, call1, err := c.register("a")
	require.NoError(t, err)
	_, call2, err := c.register("b")
	require.NoError(t, err)

	c.failAll(ErrShuttingDown)

	res1 := <-call1.done
	res2 := <-call2.done
	assert.ErrorIs(t, res1.err, ErrShuttingDown)
	assert.ErrorIs(t, res2.err, ErrShuttingDown)

	// registrations after teardown fail immediately
	_, _, err = c.register("c")
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestCorrelator_IDsNotReusedAcrossInstances(t *testing.T) {
	// the id counter outlives a single correlator, mirroring how the
	// supervisor carries it across engine restarts
	var ids atomic.Uint64

	c1 := newCorrelator(&ids, time.Minute, zap.NewNop())
	id1, _, err := c1.register("a")
	require.NoError(t, err)
	c1.failAll(ErrProcessExited)

	c2 := newCorrelator(&ids, time.Minute, zap.NewNop())
	id2, _, err := c2.register("b")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(2), id2)
}
