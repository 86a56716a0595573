// internal/session/grace_test.go
package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraceTimerFires(t *testing.T) {
	gt := NewGraceTimers(30 * time.Millisecond)
	defer gt.Stop()
	matchID, playerID := uuid.New(), uuid.New()

	fired := make(chan struct{})
	gt.Start(matchID, playerID, func() { close(fired) })
	require.True(t, gt.Has(matchID, playerID))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("grace timer never fired")
	}
	assert.False(t, gt.Has(matchID, playerID), "fired timer should be cleared from the registry")
}

func TestCancelPreventsExpiry(t *testing.T) {
	gt := NewGraceTimers(30 * time.Millisecond)
	defer gt.Stop()
	matchID, playerID := uuid.New(), uuid.New()

	var fired atomic.Int32
	gt.Start(matchID, playerID, func() { fired.Add(1) })
	gt.Cancel(matchID, playerID)
	assert.False(t, gt.Has(matchID, playerID))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	// Cancelling again, or a key that never existed, is safe.
	gt.Cancel(matchID, playerID)
	gt.Cancel(uuid.New(), uuid.New())
}

func TestRestartSupersedesPriorTimer(t *testing.T) {
	gt := NewGraceTimers(40 * time.Millisecond)
	defer gt.Stop()
	matchID, playerID := uuid.New(), uuid.New()

	var firstFired, secondFired atomic.Int32
	gt.Start(matchID, playerID, func() { firstFired.Add(1) })
	time.Sleep(10 * time.Millisecond)
	gt.Start(matchID, playerID, func() { secondFired.Add(1) })

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(0), firstFired.Load(), "superseded timer must never fire")
	assert.Equal(t, int32(1), secondFired.Load(), "at most one callback per key per episode")
}

func TestCancelMatchClearsAllKeysForMatch(t *testing.T) {
	gt := NewGraceTimers(time.Minute)
	defer gt.Stop()
	matchID, other := uuid.New(), uuid.New()
	p1, p2 := uuid.New(), uuid.New()

	gt.Start(matchID, p1, func() {})
	gt.Start(matchID, p2, func() {})
	gt.Start(other, p1, func() {})

	gt.CancelMatch(matchID)
	assert.False(t, gt.Has(matchID, p1))
	assert.False(t, gt.Has(matchID, p2))
	assert.True(t, gt.Has(other, p1), "other matches keep their timers")
}

func TestStopCancelsEverythingAndRefusesNewTimers(t *testing.T) {
	gt := NewGraceTimers(30 * time.Millisecond)
	matchID, playerID := uuid.New(), uuid.New()

	var fired atomic.Int32
	gt.Start(matchID, playerID, func() { fired.Add(1) })
	gt.Stop()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load(), "no callback may fire after Stop")

	gt.Start(matchID, playerID, func() { fired.Add(1) })
	assert.False(t, gt.Has(matchID, playerID), "stopped registry must refuse new timers")
}
