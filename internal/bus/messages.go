// internal/bus/messages.go
package bus

import (
	"time"

	"github.com/google/uuid"
)

// Subjects exchanged over the bus. Inbound events feed the orchestrator;
// outbound events drive the simulation hosts.
const (
	SubjectMatchFound       = "match.found"
	SubjectConnectionStatus = "player.connection_status"
	SubjectZoneHeartbeat    = "zone.heartbeat"
	SubjectServiceHeartbeat = "gameplay.heartbeat"
	SubjectMatchFinished    = "gameplay.match_finished"
	SubjectReconnectRequest = "reconnect.request"
	SubjectStartSimulation  = "gameplay.start_simulation"
	SubjectRemovePlayer     = "gameplay.remove_player"
	SubjectOwnZoneHeartbeat = "orchestrator.zone_heartbeat"
)

// Connection status values carried by ConnectionStatus events.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// ReasonGracePeriodExpired is the eviction reason attached to a
// RemovePlayer command after a grace window lapses without a reconnect.
const ReasonGracePeriodExpired = "grace_period_expired"

// MatchFound announces a freshly formed match awaiting simulation.
// LobbyID is nil for solo matches.
type MatchFound struct {
	MatchID      uuid.UUID   `json:"matchId"`
	LobbyID      *uuid.UUID  `json:"lobbyId,omitempty"`
	ZoneID       string      `json:"zoneId"`
	TransportURL string      `json:"transportUrl"`
	PlayerIDs    []uuid.UUID `json:"playerIds"`
}

// ConnectionStatus reports a transport-level presence change for one player.
type ConnectionStatus struct {
	MatchID  uuid.UUID `json:"matchId"`
	PlayerID uuid.UUID `json:"playerId"`
	Status   string    `json:"status"`
}

// ZoneHeartbeat is a zone host announcing itself. ReportedAt is only set on
// the orchestrator's own outbound heartbeat.
type ZoneHeartbeat struct {
	ZoneID       string    `json:"zoneId"`
	TransportURL string    `json:"transportUrl"`
	ReportedAt   time.Time `json:"reportedAt,omitempty"`
}

// ServiceHeartbeat is a simulation host's liveness ping.
type ServiceHeartbeat struct {
	ServiceID string `json:"serviceId"`
}

// MatchFinished is emitted by a simulation host when a match ends.
type MatchFinished struct {
	MatchID uuid.UUID  `json:"matchId"`
	LobbyID *uuid.UUID `json:"lobbyId,omitempty"`
}

// ReconnectRequest asks whether a player may rejoin a match.
type ReconnectRequest struct {
	MatchID  uuid.UUID `json:"matchId"`
	PlayerID uuid.UUID `json:"playerId"`
}

// ReconnectReply carries the typed outcome of a reconnect evaluation.
type ReconnectReply struct {
	Status string `json:"status"`
}

// StartSimulation tells a zone host to begin simulating a match.
type StartSimulation struct {
	MatchID   uuid.UUID   `json:"matchId"`
	PlayerIDs []uuid.UUID `json:"playerIds"`
	ZoneID    string      `json:"zoneId"`
}

// RemovePlayer tells a zone host to evict a player from a running match.
type RemovePlayer struct {
	MatchID  uuid.UUID `json:"matchId"`
	PlayerID uuid.UUID `json:"playerId"`
	Reason   string    `json:"reason"`
}
