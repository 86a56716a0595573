// internal/database/lobby.go
package database

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/voltgames/arena/internal/lobby"
)

// UpsertLobby mirrors the in-memory lobby record for audit and offline
// query. Best-effort: the in-memory store stays authoritative, so failures
// (and a disabled pool) only log.
func UpsertLobby(ctx context.Context, l *lobby.Lobby) {
	if DB == nil {
		return
	}
	q := `
	INSERT INTO lobbies (
		id, owner_player_id, player_ids, max_players, status,
		match_id, zone_id, transport_url, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO UPDATE SET
		player_ids    = EXCLUDED.player_ids,
		status        = EXCLUDED.status,
		match_id      = EXCLUDED.match_id,
		zone_id       = EXCLUDED.zone_id,
		transport_url = EXCLUDED.transport_url,
		updated_at    = EXCLUDED.updated_at
	`
	playerIDs := make([]string, len(l.PlayerIDs))
	for i, id := range l.PlayerIDs {
		playerIDs[i] = id.String()
	}

	var matchID interface{}
	if l.MatchID != uuid.Nil {
		matchID = l.MatchID
	}

	_, err := DB.Exec(ctx, q,
		l.ID,
		l.OwnerPlayerID,
		playerIDs,
		l.MaxPlayers,
		string(l.Status),
		matchID,
		l.ZoneID,
		l.TransportURL,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		log.Printf("database: failed to upsert lobby %s: %v", l.ID, err)
	}
}
