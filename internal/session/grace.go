// internal/session/grace.go
package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

type timerKey struct {
	matchID  uuid.UUID
	playerID uuid.UUID
}

// GraceTimers is a registry of cancellable delayed callbacks keyed by
// (match, player). At most one live timer exists per key: Start cancels any
// prior timer for the key before scheduling the new one, so a disconnect
// episode can never produce two expiry callbacks.
type GraceTimers struct {
	mu      sync.Mutex
	window  time.Duration
	timers  map[timerKey]*time.Timer
	stopped bool
}

// NewGraceTimers builds a registry whose timers fire after window.
func NewGraceTimers(window time.Duration) *GraceTimers {
	return &GraceTimers{
		window: window,
		timers: make(map[timerKey]*time.Timer),
	}
}

// Start schedules onExpire to run after the grace window, replacing any
// existing timer for the key. onExpire runs on the timer goroutine; a timer
// that was cancelled or superseded between firing and running is ignored.
func (gt *GraceTimers) Start(matchID, playerID uuid.UUID, onExpire func()) {
	gt.mu.Lock()
	defer gt.mu.Unlock()

	if gt.stopped {
		log.Printf("GraceTimers: registry stopped, refusing timer for match %s player %s", matchID, playerID)
		return
	}

	key := timerKey{matchID, playerID}
	if prev, ok := gt.timers[key]; ok {
		prev.Stop()
		delete(gt.timers, key)
	}

	var timer *time.Timer
	timer = time.AfterFunc(gt.window, func() {
		gt.mu.Lock()
		// A cancel or a replacement may have raced with the firing; only
		// the timer still registered under the key gets to run.
		if current, ok := gt.timers[key]; !ok || current != timer {
			gt.mu.Unlock()
			return
		}
		delete(gt.timers, key)
		gt.mu.Unlock()
		onExpire()
	})
	gt.timers[key] = timer
}

// Cancel clears the timer for the key if one exists. Safe to call when none
// does.
func (gt *GraceTimers) Cancel(matchID, playerID uuid.UUID) {
	gt.mu.Lock()
	defer gt.mu.Unlock()
	key := timerKey{matchID, playerID}
	if timer, ok := gt.timers[key]; ok {
		timer.Stop()
		delete(gt.timers, key)
	}
}

// CancelMatch clears every outstanding timer belonging to the match.
func (gt *GraceTimers) CancelMatch(matchID uuid.UUID) {
	gt.mu.Lock()
	defer gt.mu.Unlock()
	for key, timer := range gt.timers {
		if key.matchID == matchID {
			timer.Stop()
			delete(gt.timers, key)
		}
	}
}

// Has reports whether a timer is pending for the key. Observability/test hook.
func (gt *GraceTimers) Has(matchID, playerID uuid.UUID) bool {
	gt.mu.Lock()
	defer gt.mu.Unlock()
	_, ok := gt.timers[timerKey{matchID, playerID}]
	return ok
}

// Stop cancels every outstanding timer and refuses new ones. Called on
// process shutdown so no callback can fire after teardown.
func (gt *GraceTimers) Stop() {
	gt.mu.Lock()
	defer gt.mu.Unlock()
	gt.stopped = true
	for key, timer := range gt.timers {
		timer.Stop()
		delete(gt.timers, key)
	}
	log.Printf("GraceTimers: stopped, all timers cancelled")
}
