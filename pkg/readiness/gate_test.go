package readiness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGateStartsNotReady(t *testing.T) {
	g := NewGate(0)
	require.False(t, g.IsReadReady())
	require.False(t, g.IsWriteReady())
}

func TestGateLeaderStartGrantsWriteReady(t *testing.T) {
	g := NewGate(0)
	g.OnLeaderStart(3)
	require.True(t, g.IsWriteReady())
	require.True(t, g.IsReadReady())
	require.Equal(t, uint64(3), g.LeaderTerm())
}

func TestGateLeaderStopRevokesWriteReady(t *testing.T) {
	g := NewGate(0)
	g.OnLeaderStart(1)
	g.OnLeaderStop()
	require.False(t, g.IsWriteReady())
}

func TestGateObserveApplyCatchesUp(t *testing.T) {
	g := NewGate(0)
	g.ObserveApply(5, 10)
	require.False(t, g.IsReadReady())
	g.ObserveApply(10, 10)
	require.True(t, g.IsReadReady())
	require.Equal(t, uint64(10), g.AppliedIndex())
}

func TestGateStartPeriodGrace(t *testing.T) {
	g := NewGate(50 * time.Millisecond)
	g.OnLeaderStart(1)
	require.False(t, g.IsReadReady())
	time.Sleep(60 * time.Millisecond)
	require.True(t, g.IsReadReady())
}
