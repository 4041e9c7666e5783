package engine

import (
	"testing"
	"time"

	"github.com/fetchdeck/fetchd/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProc_Start_IsAlive(t *testing.T) {
	p, err := startProc(StartConfig{Cmd: "cat"}, zap.NewNop())
	require.NoError(t, err)

	defer p.Kill()

	require.NotZero(t, p.pid)
	assert.True(t, p.Alive())

	require.Eventually(t, func() bool {
		return util.IsProcessAlive(p.pid)
	}, 2*time.Second, 10*time.Millisecond, "process never reported alive")
}

func TestProc_Start_FailsForEmptyCommand(t *testing.T) {
	_, err := startProc(StartConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestProc_Start_FailsForUnknownBinary(t *testing.T) {
	_, err := startProc(StartConfig{Cmd: "definitely-not-a-real-binary"}, zap.NewNop())
	assert.Error(t, err)
}

func TestProc_CloseStdin_LetsProcessExitVoluntarily(t *testing.T) {
	p, err := startProc(StartConfig{Cmd: "cat"}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, p.CloseStdin())

	require.NoError(t, p.WaitFor(2*time.Second))
	assert.False(t, p.Alive())
}

func TestProc_Terminate_StopsProcess(t *testing.T) {
	p, err := startProc(StartConfig{Cmd: "sleep", Args: []string{"10"}}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, p.Terminate())

	require.NoError(t, p.WaitFor(2*time.Second))

	assert.Equal(t, false, util.IsProcessAlive(p.pid))
}

func TestProc_Kill_StopsProcess(t *testing.T) {
	p, err := startProc(StartConfig{Cmd: "sleep", Args: []string{"10"}}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, p.Kill())

	require.NoError(t, p.WaitFor(2*time.Second))
	assert.False(t, p.Alive())
}

func TestProc_WaitFor_TimesOut(t *testing.T) {
	p, err := startProc(StartConfig{Cmd: "sleep", Args: []string{"10"}}, zap.NewNop())
	require.NoError(t, err)

	defer p.Kill()

	err = p.WaitFor(50 * time.Millisecond)
	assert.ErrorIs(t, err, ErrKillTimeout)
}

func TestProc_Done_ClosesOnExit(t *testing.T) {
	p, err := startProc(StartConfig{Cmd: "true"}, zap.NewNop())
	require.NoError(t, err)

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("process never reported exit")
	}

	assert.NoError(t, p.ExitErr())
}
