// internal/lobby/lobby.go
package lobby

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a lobby. Transitions are monotonic:
// open -> started -> finished, never reversed, never skipped. The one
// exception is AbortStart, which reopens a start whose match announcement
// never happened.
type Status string

const (
	StatusOpen     Status = "open"
	StatusStarted  Status = "started"
	StatusFinished Status = "finished"
)

// Domain errors surfaced by lobby operations. The HTTP front door maps
// these 1:1 onto 4xx/503 responses.
var (
	ErrLobbyNotFound    = errors.New("lobby not found")
	ErrLobbyNotOpen     = errors.New("lobby is not open")
	ErrLobbyNotStarted  = errors.New("lobby has not been started")
	ErrLobbyFull        = errors.New("lobby is full")
	ErrOwnerCannotLeave = errors.New("owner cannot leave the lobby")
	ErrNotInLobby       = errors.New("player is not in the lobby")
	ErrNoZoneAvailable  = errors.New("no game zone available")
)

// Lobby is a pre-match grouping of players awaiting match start.
// PlayerIDs preserves join order; the owner is always a member.
// Lobbies are never physically deleted: finished lobbies remain in the
// store for audit and listing.
type Lobby struct {
	ID            uuid.UUID   `json:"id"`
	OwnerPlayerID uuid.UUID   `json:"ownerPlayerId"`
	PlayerIDs     []uuid.UUID `json:"playerIds"`
	MaxPlayers    int         `json:"maxPlayers"`
	Status        Status      `json:"status"`

	// Set when the lobby is started.
	MatchID      uuid.UUID `json:"matchId,omitempty"`
	ZoneID       string    `json:"zoneId,omitempty"`
	TransportURL string    `json:"transportUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// hasPlayer reports whether playerID is already a member.
func (l *Lobby) hasPlayer(playerID uuid.UUID) bool {
	for _, id := range l.PlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// removePlayer drops playerID from the ordered member list, preserving the
// order of everyone else. No-op if absent.
func (l *Lobby) removePlayer(playerID uuid.UUID) {
	for i, id := range l.PlayerIDs {
		if id == playerID {
			l.PlayerIDs = append(l.PlayerIDs[:i], l.PlayerIDs[i+1:]...)
			return
		}
	}
}

// snapshot returns a copy safe to hand outside the store lock.
func (l *Lobby) snapshot() *Lobby {
	cp := *l
	cp.PlayerIDs = make([]uuid.UUID, len(l.PlayerIDs))
	copy(cp.PlayerIDs, l.PlayerIDs)
	return &cp
}
