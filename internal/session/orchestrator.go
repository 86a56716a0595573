// internal/session/orchestrator.go
package session

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/voltgames/arena/internal/bus"
)

// Publisher emits outbound commands to the simulation hosts. Satisfied by
// *bus.Bus; tests inject a recording stub.
type Publisher interface {
	Publish(subject string, v interface{}) error
}

// ServiceTracker records simulation-host liveness pings. Satisfied by
// *heartbeat.Tracker.
type ServiceTracker interface {
	Observe(serviceID string)
}

// LobbyFinisher lets the orchestrator close out the lobby that spawned a
// match once the simulation host reports it finished.
type LobbyFinisher interface {
	FinishByMatch(matchID uuid.UUID)
}

// Auditor receives match lifecycle records for the out-of-band historian.
// All calls are best-effort.
type Auditor interface {
	Record(event string, matchID, playerID uuid.UUID)
}

// Orchestrator coordinates the match-session lifecycle: it consumes
// match-found, connection-status and heartbeat events, drives the slot table
// and grace timers, and emits start-simulation / remove-player commands.
//
// Handlers are idempotent by construction: the bus redelivers, and nothing
// here may double-start a simulation or double-evict a player.
//
// A single mutex serializes every handler, including the grace expiry body.
// The reconnect reply and the eviction path mutate the same slot; without
// serialization a client could be told success and still be evicted.
type Orchestrator struct {
	Slots  *SlotManager
	Timers *GraceTimers

	mu        sync.Mutex
	publisher Publisher
	services  ServiceTracker
	lobbies   LobbyFinisher
	audit     Auditor
}

// NewOrchestrator wires the orchestrator. services, lobbies and audit may be
// nil; the corresponding hooks become no-ops.
func NewOrchestrator(slots *SlotManager, timers *GraceTimers, publisher Publisher, services ServiceTracker, lobbies LobbyFinisher, audit Auditor) *Orchestrator {
	return &Orchestrator{
		Slots:     slots,
		Timers:    timers,
		publisher: publisher,
		services:  services,
		lobbies:   lobbies,
		audit:     audit,
	}
}

// HandleMatchFound initializes presence slots for the match and asks the
// zone host to start simulating. A redelivered event for an already-known
// match is dropped without re-emitting the start command.
func (o *Orchestrator) HandleMatchFound(ev bus.MatchFound) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.Slots.InitializeMatchSlots(ev.MatchID, ev.PlayerIDs) {
		return
	}
	o.emit(bus.SubjectStartSimulation, bus.StartSimulation{
		MatchID:   ev.MatchID,
		PlayerIDs: ev.PlayerIDs,
		ZoneID:    ev.ZoneID,
	})
	o.record("match_started", ev.MatchID, uuid.Nil)
}

// HandleConnectionStatus applies a transport presence change. Events for
// matches this orchestrator does not own are ignored. A connect cancels the
// player's grace timer; a disconnect starts one whose expiry marks the slot
// grace-expired and emits the eviction command.
func (o *Orchestrator) HandleConnectionStatus(ev bus.ConnectionStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.Slots.HasMatch(ev.MatchID) {
		log.Printf("Orchestrator: connection status for unknown match %s, ignoring", ev.MatchID)
		return
	}

	switch ev.Status {
	case bus.StatusConnected:
		o.Timers.Cancel(ev.MatchID, ev.PlayerID)
		o.Slots.MarkConnected(ev.MatchID, ev.PlayerID)

	case bus.StatusDisconnected:
		o.Slots.MarkDisconnected(ev.MatchID, ev.PlayerID)
		matchID, playerID := ev.MatchID, ev.PlayerID
		o.Timers.Start(matchID, playerID, func() {
			o.expireGrace(matchID, playerID)
		})

	default:
		log.Printf("Orchestrator: unknown connection status %q for match %s player %s", ev.Status, ev.MatchID, ev.PlayerID)
	}
}

// expireGrace runs on the timer goroutine when a disconnected player's
// window lapses: terminal slot state, then the eviction command. The timer
// pops itself from the registry before this body runs, so a reconnect served
// in that gap may already have restored the slot; the mark is re-checked
// under the orchestrator lock and a restored slot wins — no eviction.
func (o *Orchestrator) expireGrace(matchID, playerID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.Slots.MarkGraceExpired(matchID, playerID) {
		log.Printf("Orchestrator: grace expiry for player %s in match %s lost to a reconnect, no eviction", playerID, matchID)
		return
	}
	log.Printf("Orchestrator: grace period expired for player %s in match %s", playerID, matchID)
	o.emit(bus.SubjectRemovePlayer, bus.RemovePlayer{
		MatchID:  matchID,
		PlayerID: playerID,
		Reason:   bus.ReasonGracePeriodExpired,
	})
	o.record("player_removed", matchID, playerID)

	// Every slot expired means nobody is coming back; reap the match
	// rather than leak it until a match_finished that may never arrive.
	if o.Slots.AllExpired(matchID) {
		log.Printf("Orchestrator: all slots expired for match %s, dropping", matchID)
		o.dropMatch(matchID)
	}
}

// HandleServiceHeartbeat records a simulation host's liveness ping. Purely
// observational; eviction on silence is a future hook.
func (o *Orchestrator) HandleServiceHeartbeat(ev bus.ServiceHeartbeat) {
	if o.services != nil {
		o.services.Observe(ev.ServiceID)
	}
}

// HandleMatchFinished reaps the match's slots and timers and finishes the
// owning lobby, if any. Idempotent: an unknown match is a no-op.
func (o *Orchestrator) HandleMatchFinished(ev bus.MatchFinished) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.Slots.HasMatch(ev.MatchID) {
		return
	}
	o.dropMatch(ev.MatchID)
	if o.lobbies != nil {
		o.lobbies.FinishByMatch(ev.MatchID)
	}
	o.record("match_finished", ev.MatchID, uuid.Nil)
}

// HandleReconnect is the request/reply operation behind reconnect.request.
// A successful evaluation restores presence as a side effect: the grace
// timer is cancelled and the slot flips back to connected. Evaluate, cancel
// and mark happen atomically with respect to the expiry body, so a success
// reply always means the player keeps their slot.
func (o *Orchestrator) HandleReconnect(req bus.ReconnectRequest) ReconnectStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := o.Slots.EvaluateReconnect(req.MatchID, req.PlayerID)
	if status != ReconnectSuccess {
		log.Printf("Orchestrator: reconnect denied for player %s in match %s: %s", req.PlayerID, req.MatchID, status)
		return status
	}
	o.Timers.Cancel(req.MatchID, req.PlayerID)
	o.Slots.MarkConnected(req.MatchID, req.PlayerID)
	o.record("player_reconnected", req.MatchID, req.PlayerID)
	return ReconnectSuccess
}

// Stop cancels all outstanding grace timers. No expiry callback may fire
// after Stop returns.
func (o *Orchestrator) Stop() {
	o.Timers.Stop()
}

func (o *Orchestrator) dropMatch(matchID uuid.UUID) {
	o.Timers.CancelMatch(matchID)
	o.Slots.DropMatch(matchID)
}

func (o *Orchestrator) emit(subject string, v interface{}) {
	if err := o.publisher.Publish(subject, v); err != nil {
		// Publish failures are infrastructure faults: log and let the
		// next natural cycle retry. Never crash the orchestrator.
		log.Printf("Orchestrator: publish %s failed: %v", subject, err)
	}
}

func (o *Orchestrator) record(event string, matchID, playerID uuid.UUID) {
	if o.audit != nil {
		o.audit.Record(event, matchID, playerID)
	}
}
