// internal/lobby/lobby_store.go
package lobby

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voltgames/arena/internal/zone"
)

// ZoneSelector picks a live game zone for a new match. Satisfied by
// *zone.Registry; injected so tests can stub availability.
type ZoneSelector interface {
	SelectZone() (zone.Selection, bool)
}

// SoloMatch describes a single-player match created via the direct join
// path. It is a degenerate lobby of size 1 that never materializes a
// Lobby record.
type SoloMatch struct {
	MatchID      uuid.UUID   `json:"matchId"`
	ZoneID       string      `json:"zoneId"`
	TransportURL string      `json:"transportUrl"`
	PlayerIDs    []uuid.UUID `json:"playerIds"`
}

// Store manages lobby aggregates in memory. All operations are
// thread-safe; mutation happens under the store lock and callers receive
// snapshots, never live pointers.
type Store struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]*Lobby
	zones   ZoneSelector

	now func() time.Time // overridable for tests
}

// NewStore initializes an empty Store with the given zone selector.
func NewStore(zones ZoneSelector) *Store {
	return &Store{
		lobbies: make(map[uuid.UUID]*Lobby),
		zones:   zones,
		now:     time.Now,
	}
}

// Create builds a new open lobby owned by ownerPlayerID. maxPlayers below 1
// is clamped to 1 so the invariant len(playerIds) <= maxPlayers holds from
// the first moment.
func (s *Store) Create(ownerPlayerID uuid.UUID, maxPlayers int) *Lobby {
	if maxPlayers < 1 {
		maxPlayers = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	l := &Lobby{
		ID:            uuid.New(),
		OwnerPlayerID: ownerPlayerID,
		PlayerIDs:     []uuid.UUID{ownerPlayerID},
		MaxPlayers:    maxPlayers,
		Status:        StatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.lobbies[l.ID] = l
	log.Printf("LobbyStore: created lobby %s (owner %s, max %d)", l.ID, ownerPlayerID, maxPlayers)
	return l.snapshot()
}

// Join adds playerID to an open lobby. Joining a lobby the player already
// belongs to is a no-op that still succeeds.
func (s *Store) Join(lobbyID, playerID uuid.UUID) (*Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if l.Status != StatusOpen {
		return nil, ErrLobbyNotOpen
	}
	if l.hasPlayer(playerID) {
		return l.snapshot(), nil
	}
	if len(l.PlayerIDs) >= l.MaxPlayers {
		return nil, ErrLobbyFull
	}
	l.PlayerIDs = append(l.PlayerIDs, playerID)
	l.UpdatedAt = s.now()
	log.Printf("LobbyStore: player %s joined lobby %s (%d/%d)", playerID, lobbyID, len(l.PlayerIDs), l.MaxPlayers)
	return l.snapshot(), nil
}

// Leave removes playerID from an open lobby. The owner cannot leave; they
// must start the match or abandon the lobby entirely.
func (s *Store) Leave(lobbyID, playerID uuid.UUID) (*Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if l.Status != StatusOpen {
		return nil, ErrLobbyNotOpen
	}
	if playerID == l.OwnerPlayerID {
		return nil, ErrOwnerCannotLeave
	}
	if !l.hasPlayer(playerID) {
		return nil, ErrNotInLobby
	}
	l.removePlayer(playerID)
	l.UpdatedAt = s.now()
	log.Printf("LobbyStore: player %s left lobby %s (%d/%d)", playerID, lobbyID, len(l.PlayerIDs), l.MaxPlayers)
	return l.snapshot(), nil
}

// Start transitions an open lobby to started: selects a zone, generates a
// fresh match ID, and records the placement. Any lobby member may request
// the start. Returns ErrNoZoneAvailable when the registry has no live zone.
func (s *Store) Start(lobbyID, requesterID uuid.UUID) (*Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if l.Status != StatusOpen {
		return nil, ErrLobbyNotOpen
	}
	if !l.hasPlayer(requesterID) {
		return nil, ErrNotInLobby
	}
	sel, ok := s.zones.SelectZone()
	if !ok {
		return nil, ErrNoZoneAvailable
	}

	l.Status = StatusStarted
	l.MatchID = uuid.New()
	l.ZoneID = sel.ZoneID
	l.TransportURL = sel.TransportURL
	l.UpdatedAt = s.now()
	log.Printf("LobbyStore: lobby %s started as match %s on zone %s", lobbyID, l.MatchID, l.ZoneID)
	return l.snapshot(), nil
}

// AbortStart reopens a lobby whose start committed locally but whose match
// announcement never left the process: the match id is discarded and the
// lobby accepts joins again. Guarded by matchID so only the start that
// failed can undo itself; anything else gets ErrLobbyNotStarted.
func (s *Store) AbortStart(lobbyID, matchID uuid.UUID) (*Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if l.Status != StatusStarted || l.MatchID != matchID {
		return nil, ErrLobbyNotStarted
	}
	l.Status = StatusOpen
	l.MatchID = uuid.Nil
	l.ZoneID = ""
	l.TransportURL = ""
	l.UpdatedAt = s.now()
	log.Printf("LobbyStore: lobby %s reopened, match %s was never announced", lobbyID, matchID)
	return l.snapshot(), nil
}

// StartSolo is the direct single-player path: it selects a zone and
// fabricates a match without ever creating a Lobby record.
func (s *Store) StartSolo(playerID uuid.UUID) (*SoloMatch, error) {
	sel, ok := s.zones.SelectZone()
	if !ok {
		return nil, ErrNoZoneAvailable
	}
	m := &SoloMatch{
		MatchID:      uuid.New(),
		ZoneID:       sel.ZoneID,
		TransportURL: sel.TransportURL,
		PlayerIDs:    []uuid.UUID{playerID},
	}
	log.Printf("LobbyStore: solo match %s for player %s on zone %s", m.MatchID, playerID, m.ZoneID)
	return m, nil
}

// Finish transitions a started lobby to finished. Idempotent when already
// finished; rejects an open lobby so status can never skip "started".
func (s *Store) Finish(lobbyID uuid.UUID) (*Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[lobbyID]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	switch l.Status {
	case StatusFinished:
		return l.snapshot(), nil
	case StatusOpen:
		return nil, ErrLobbyNotStarted
	}
	l.Status = StatusFinished
	l.UpdatedAt = s.now()
	log.Printf("LobbyStore: lobby %s finished (match %s)", lobbyID, l.MatchID)
	return l.snapshot(), nil
}

// FinishByMatch marks the lobby that owns matchID as finished, if any.
// Used when the simulation host reports match end; unknown matches are
// ignored (solo matches have no lobby record).
func (s *Store) FinishByMatch(matchID uuid.UUID) {
	s.mu.Lock()
	var lobbyID uuid.UUID
	found := false
	for id, l := range s.lobbies {
		if l.MatchID == matchID && l.Status == StatusStarted {
			lobbyID = id
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		if _, err := s.Finish(lobbyID); err != nil {
			log.Printf("LobbyStore: finishing lobby %s for match %s: %v", lobbyID, matchID, err)
		}
	}
}

// Get retrieves a lobby snapshot by ID.
func (s *Store) Get(lobbyID uuid.UUID) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[lobbyID]
	if !ok {
		return nil, false
	}
	return l.snapshot(), true
}

// List returns snapshots of all lobbies, finished ones included. Primarily
// for the dashboard listing endpoint and debugging.
func (s *Store) List() []*Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		out = append(out, l.snapshot())
	}
	return out
}
