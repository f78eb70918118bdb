package execctx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txtxlabs/txtx/internal/value"
)

func TestNewInstanceStartsPending(t *testing.T) {
	t.Parallel()

	s := New()
	require.Equal(t, StatusPending, s.Status("action.deploy"))
}

func TestTransitionFollowsStateMachine(t *testing.T) {
	t.Parallel()

	s := New()
	require.NoError(t, s.Transition("action.deploy", StatusRunning))
	require.NoError(t, s.Transition("action.deploy", StatusSucceeded))
	require.Equal(t, StatusSucceeded, s.Status("action.deploy"))
}

func TestTransitionRejectsIllegalJump(t *testing.T) {
	t.Parallel()

	s := New()
	require.NoError(t, s.Transition("action.deploy", StatusRunning))
	require.NoError(t, s.Transition("action.deploy", StatusSucceeded))
	err := s.Transition("action.deploy", StatusRunning)
	require.Error(t, err)
}

func TestSetAndReadOutput(t *testing.T) {
	t.Parallel()

	s := New()
	s.SetOutput("action.deploy", "tx_hash", value.String("0xabc"))

	v, ok := s.Output("action.deploy", "tx_hash")
	require.True(t, ok)
	got, _ := v.AsString()
	require.Equal(t, "0xabc", got)

	_, ok = s.Output("action.deploy", "missing")
	require.False(t, ok)
}

func TestTickIsMonotonic(t *testing.T) {
	t.Parallel()

	s := New()
	require.Equal(t, uint64(0), s.CurrentTick())
	require.Equal(t, uint64(1), s.Tick())
	require.Equal(t, uint64(2), s.Tick())
}

func TestSnapshotAndRewindRestoresPriorState(t *testing.T) {
	t.Parallel()

	s := New()
	s.SetOutput("action.deploy", "tx_hash", value.String("0xabc"))
	require.NoError(t, s.Transition("action.deploy", StatusRunning))
	s.Tick()
	snap1 := s.Snapshot()

	require.NoError(t, s.Transition("action.deploy", StatusSucceeded))
	s.SetOutput("action.deploy", "tx_hash", value.String("0xdef"))
	s.Tick()
	s.Snapshot()

	restored, err := s.Rewind(snap1.Tick)
	require.NoError(t, err)
	require.Equal(t, snap1.Tick, restored)
	require.Equal(t, StatusRunning, s.Status("action.deploy"))

	v, ok := s.Output("action.deploy", "tx_hash")
	require.True(t, ok)
	got, _ := v.AsString()
	require.Equal(t, "0xabc", got)
}

func TestRewindPastLatestSnapshotSucceedsAndEmptyHistoryErrors(t *testing.T) {
	t.Parallel()

	s := New()
	s.Tick()
	s.Snapshot()

	_, err := s.Rewind(999)
	require.NoError(t, err) // most recent snapshot at or before 999 is still found

	empty := New()
	_, err = empty.Rewind(0)
	require.Error(t, err)
}

func TestFailRecordsErrorAndStatus(t *testing.T) {
	t.Parallel()

	s := New()
	s.Fail("action.deploy", errors.New("rpc timeout"))
	require.Equal(t, StatusFailed, s.Status("action.deploy"))
}
