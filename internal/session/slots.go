// internal/session/slots.go
package session

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// ReconnectStatus is the closed result type of a reconnect evaluation.
// Non-success values are normal protocol outcomes, not faults, so they are
// never modeled as errors.
type ReconnectStatus string

const (
	ReconnectSuccess          ReconnectStatus = "success"
	ReconnectSlotNotAvailable ReconnectStatus = "SLOT_NOT_AVAILABLE"
	ReconnectGraceExpired     ReconnectStatus = "GRACE_EXPIRED"
	ReconnectMatchNotFound    ReconnectStatus = "MATCH_NOT_FOUND"
)

// Slot is one player's presence record within an active match.
type Slot struct {
	Connected    bool
	GraceExpired bool
}

// SlotManager owns the per-match, per-player presence table. Slots are
// created in bulk when a match is initialized and dropped as a set when the
// match is disposed of; they are never auto-created by status updates.
type SlotManager struct {
	mu      sync.Mutex
	matches map[uuid.UUID]map[uuid.UUID]*Slot
}

// NewSlotManager returns an empty SlotManager.
func NewSlotManager() *SlotManager {
	return &SlotManager{
		matches: make(map[uuid.UUID]map[uuid.UUID]*Slot),
	}
}

// InitializeMatchSlots creates one connected slot per player. Returns false
// without touching anything when the match already has slots, so redelivered
// match-found events cannot duplicate or reset state.
func (sm *SlotManager) InitializeMatchSlots(matchID uuid.UUID, playerIDs []uuid.UUID) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.matches[matchID]; exists {
		log.Printf("SlotManager: match %s already initialized, ignoring duplicate init", matchID)
		return false
	}
	slots := make(map[uuid.UUID]*Slot, len(playerIDs))
	for _, pid := range playerIDs {
		slots[pid] = &Slot{Connected: true}
	}
	sm.matches[matchID] = slots
	log.Printf("SlotManager: initialized match %s with %d slots", matchID, len(slots))
	return true
}

// MarkConnected flips the slot to connected and clears any grace expiry.
// No-op if the match or slot is unknown.
func (sm *SlotManager) MarkConnected(matchID, playerID uuid.UUID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if slot, ok := sm.slot(matchID, playerID); ok {
		slot.Connected = true
		slot.GraceExpired = false
	}
}

// MarkDisconnected flips the slot to disconnected. No-op if unknown.
func (sm *SlotManager) MarkDisconnected(matchID, playerID uuid.UUID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if slot, ok := sm.slot(matchID, playerID); ok {
		slot.Connected = false
	}
}

// MarkGraceExpired records that the player's grace window lapsed. It only
// lands on a slot that is still disconnected: a reconnect that beat the
// expiry keeps its restored state. Reports whether the expiry was recorded.
// Terminal for reconnect eligibility until a fresh MarkConnected.
func (sm *SlotManager) MarkGraceExpired(matchID, playerID uuid.UUID) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	slot, ok := sm.slot(matchID, playerID)
	if !ok || slot.Connected {
		return false
	}
	slot.GraceExpired = true
	return true
}

// EvaluateReconnect decides whether a reconnecting player may rejoin.
func (sm *SlotManager) EvaluateReconnect(matchID, playerID uuid.UUID) ReconnectStatus {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	slots, ok := sm.matches[matchID]
	if !ok {
		return ReconnectMatchNotFound
	}
	slot, ok := slots[playerID]
	if !ok {
		return ReconnectSlotNotAvailable
	}
	if slot.GraceExpired {
		return ReconnectGraceExpired
	}
	return ReconnectSuccess
}

// HasMatch reports whether the match is known to the manager.
func (sm *SlotManager) HasMatch(matchID uuid.UUID) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	_, ok := sm.matches[matchID]
	return ok
}

// GetSlot returns a copy of the slot, if present.
func (sm *SlotManager) GetSlot(matchID, playerID uuid.UUID) (Slot, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	slot, ok := sm.slot(matchID, playerID)
	if !ok {
		return Slot{}, false
	}
	return *slot, true
}

// PlayerIDs lists the players holding slots in the match.
func (sm *SlotManager) PlayerIDs(matchID uuid.UUID) []uuid.UUID {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	slots, ok := sm.matches[matchID]
	if !ok {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(slots))
	for pid := range slots {
		ids = append(ids, pid)
	}
	return ids
}

// AllExpired reports whether every slot in the match has grace-expired.
// False for unknown or empty matches.
func (sm *SlotManager) AllExpired(matchID uuid.UUID) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	slots, ok := sm.matches[matchID]
	if !ok || len(slots) == 0 {
		return false
	}
	for _, slot := range slots {
		if !slot.GraceExpired {
			return false
		}
	}
	return true
}

// DropMatch discards the whole slot set for a match. Safe when unknown.
func (sm *SlotManager) DropMatch(matchID uuid.UUID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.matches[matchID]; ok {
		delete(sm.matches, matchID)
		log.Printf("SlotManager: dropped match %s", matchID)
	}
}

// slot fetches the live slot pointer. Caller must hold sm.mu.
func (sm *SlotManager) slot(matchID, playerID uuid.UUID) (*Slot, bool) {
	slots, ok := sm.matches[matchID]
	if !ok {
		return nil, false
	}
	slot, ok := slots[playerID]
	return slot, ok
}
