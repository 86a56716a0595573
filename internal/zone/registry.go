// internal/zone/registry.go
package zone

import (
	"log"
	"sync"
	"time"
)

// Selection is a zone chosen to host a new match: its identity plus the
// transport address clients should connect to.
type Selection struct {
	ZoneID       string `json:"zoneId"`
	TransportURL string `json:"transportUrl"`
}

type record struct {
	transportURL string
	lastSeen     time.Time
}

// Registry tracks live game-zone hosts from their periodic heartbeats.
// Heartbeats are last-write-wins; a zone that stops reporting is skipped
// (and reaped) once its record is older than the staleness window.
type Registry struct {
	mu    sync.Mutex
	zones map[string]*record

	// staleAfter is how old a heartbeat may be before the zone is
	// considered dead. Zero disables staleness checks.
	staleAfter time.Duration

	now func() time.Time // overridable for tests
}

// NewRegistry returns an empty Registry. staleAfter should normally be a
// small multiple of the zone heartbeat interval.
func NewRegistry(staleAfter time.Duration) *Registry {
	return &Registry{
		zones:      make(map[string]*record),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// UpsertHeartbeat records a heartbeat from a zone, overwriting any previous
// record for that zone unconditionally.
func (r *Registry) UpsertHeartbeat(zoneID, transportURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zones[zoneID] = &record{
		transportURL: transportURL,
		lastSeen:     r.now(),
	}
}

// SelectZone returns an available zone for a new match, or ok=false when no
// live zone is known. Callers must surface ok=false as a capacity failure,
// never silently proceed.
func (r *Registry) SelectZone() (Selection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, rec := range r.zones {
		if r.staleAfter > 0 && now.Sub(rec.lastSeen) > r.staleAfter {
			log.Printf("ZoneRegistry: reaping stale zone %s (last seen %s ago)", id, now.Sub(rec.lastSeen))
			delete(r.zones, id)
			continue
		}
		return Selection{ZoneID: id, TransportURL: rec.transportURL}, true
	}
	return Selection{}, false
}

// Len reports how many zone records are currently held, stale or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.zones)
}
