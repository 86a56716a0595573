// internal/heartbeat/tracker.go
package heartbeat

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voltgames/arena/internal/bus"
)

// Publisher emits the tracker's own zone heartbeat. Satisfied by *bus.Bus.
type Publisher interface {
	Publish(subject string, v interface{}) error
}

// Tracker publishes this orchestrator's zone identity on a fixed interval
// so matchmaking registries can discover it, and records last-seen
// timestamps for the simulation hosts that ping us. Host liveness is
// bookkeeping only: nothing is evicted on silence yet.
type Tracker struct {
	zoneID       string
	transportURL string
	interval     time.Duration
	publisher    Publisher
	logger       *logrus.Logger

	mu       sync.Mutex
	lastSeen map[string]time.Time

	done chan struct{}
	wg   sync.WaitGroup
	now  func() time.Time
}

// NewTracker builds a stopped tracker. Call Start to begin publishing.
func NewTracker(zoneID, transportURL string, interval time.Duration, publisher Publisher, logger *logrus.Logger) *Tracker {
	return &Tracker{
		zoneID:       zoneID,
		transportURL: transportURL,
		interval:     interval,
		publisher:    publisher,
		logger:       logger,
		lastSeen:     make(map[string]time.Time),
		done:         make(chan struct{}),
		now:          time.Now,
	}
}

// Start launches the interval loop. An immediate first heartbeat goes out
// so a fresh deployment is discoverable before the first full interval.
func (t *Tracker) Start() {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.publishOnce()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.publishOnce()
				t.warnSilentServices()
			case <-t.done:
				return
			}
		}
	}()
	t.logger.Infof("heartbeat: publishing zone %s every %s", t.zoneID, t.interval)
}

// Stop halts the interval loop and waits for it to exit.
func (t *Tracker) Stop() {
	close(t.done)
	t.wg.Wait()
	t.logger.Info("heartbeat: stopped")
}

// publishOnce emits a single heartbeat. Failures are warnings: the next
// tick retries, the loop never blocks or dies.
func (t *Tracker) publishOnce() {
	hb := bus.ZoneHeartbeat{
		ZoneID:       t.zoneID,
		TransportURL: t.transportURL,
		ReportedAt:   t.now(),
	}
	if err := t.publisher.Publish(bus.SubjectOwnZoneHeartbeat, hb); err != nil {
		t.logger.Warnf("heartbeat: publish failed, will retry next tick: %v", err)
	}
}

// Observe records a liveness ping from a simulation host.
func (t *Tracker) Observe(serviceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen[serviceID] = t.now()
}

// LastSeen returns when the service last pinged, if ever.
func (t *Tracker) LastSeen(serviceID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.lastSeen[serviceID]
	return ts, ok
}

// Silent reports whether a known service has gone quiet for longer than
// three intervals. Unknown services are not silent; they were never seen.
func (t *Tracker) Silent(serviceID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.lastSeen[serviceID]
	if !ok {
		return false
	}
	return t.now().Sub(ts) > 3*t.interval
}

// warnSilentServices logs hosts that stopped pinging. Operators (or a
// future evictor) act on it; the tracker itself does not.
func (t *Tracker) warnSilentServices() {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-3 * t.interval)
	for id, ts := range t.lastSeen {
		if ts.Before(cutoff) {
			t.logger.Warnf("heartbeat: gameplay service %s silent since %s", id, ts.Format(time.RFC3339))
		}
	}
}
