// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/voltgames/arena/internal/bus"
	"github.com/voltgames/arena/internal/database"
)

type createLobbyRequest struct {
	MaxPlayers int `json:"maxPlayers"`
}

type lobbyActionRequest struct {
	LobbyID uuid.UUID `json:"lobbyId"`
}

// CreateLobbyHandler builds a new open lobby owned by the caller.
func (s *ApiServer) CreateLobbyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := authenticatedPlayer(r)
		if err != nil {
			http.Error(w, "invalid or missing token", http.StatusUnauthorized)
			return
		}

		var req createLobbyRequest
		// An empty body is fine: every field has a default.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad lobby request payload", http.StatusBadRequest)
			return
		}
		if req.MaxPlayers == 0 {
			req.MaxPlayers = 2
		}
		if req.MaxPlayers < 1 {
			http.Error(w, "maxPlayers must be at least 1", http.StatusBadRequest)
			return
		}

		l := s.Lobbies.Create(playerID, req.MaxPlayers)
		database.UpsertLobby(r.Context(), l)
		writeJSON(w, http.StatusOK, l)
	}
}

// JoinLobbyHandler adds the caller to an open lobby. Idempotent for
// players already present.
func (s *ApiServer) JoinLobbyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := authenticatedPlayer(r)
		if err != nil {
			http.Error(w, "invalid or missing token", http.StatusUnauthorized)
			return
		}
		var req lobbyActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request payload", http.StatusBadRequest)
			return
		}

		l, err := s.Lobbies.Join(req.LobbyID, playerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		database.UpsertLobby(r.Context(), l)
		writeJSON(w, http.StatusOK, l)
	}
}

// LeaveLobbyHandler removes the caller from an open lobby.
func (s *ApiServer) LeaveLobbyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := authenticatedPlayer(r)
		if err != nil {
			http.Error(w, "invalid or missing token", http.StatusUnauthorized)
			return
		}
		var req lobbyActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request payload", http.StatusBadRequest)
			return
		}

		l, err := s.Lobbies.Leave(req.LobbyID, playerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		database.UpsertLobby(r.Context(), l)
		writeJSON(w, http.StatusOK, l)
	}
}

// StartLobbyHandler transitions the lobby to started and announces the
// match on the bus. Zone selection failure surfaces as 503, never a silent
// start.
func (s *ApiServer) StartLobbyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := authenticatedPlayer(r)
		if err != nil {
			http.Error(w, "invalid or missing token", http.StatusUnauthorized)
			return
		}
		var req lobbyActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request payload", http.StatusBadRequest)
			return
		}

		l, err := s.Lobbies.Start(req.LobbyID, playerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		lobbyID := l.ID
		ev := bus.MatchFound{
			MatchID:      l.MatchID,
			LobbyID:      &lobbyID,
			ZoneID:       l.ZoneID,
			TransportURL: l.TransportURL,
			PlayerIDs:    l.PlayerIDs,
		}
		if err := s.Bus.Publish(bus.SubjectMatchFound, ev); err != nil {
			// The bus never accepted the announcement, so no simulation
			// will run this match. Reopen the lobby; a retried start gets
			// a fresh match id and a clean announcement.
			s.Logger.Errorf("failed to publish match.found for lobby %s: %v", l.ID, err)
			if reverted, aerr := s.Lobbies.AbortStart(l.ID, l.MatchID); aerr != nil {
				s.Logger.Errorf("failed to reopen lobby %s after announce failure: %v", l.ID, aerr)
			} else {
				database.UpsertLobby(r.Context(), reverted)
			}
			http.Error(w, "match announcement failed", http.StatusBadGateway)
			return
		}
		database.UpsertLobby(r.Context(), l)
		writeJSON(w, http.StatusOK, l)
	}
}

// SoloMatchHandler is the direct single-player path: no lobby record, just
// a zone selection and a match.found announcement.
func (s *ApiServer) SoloMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := authenticatedPlayer(r)
		if err != nil {
			http.Error(w, "invalid or missing token", http.StatusUnauthorized)
			return
		}

		m, err := s.Lobbies.StartSolo(playerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		ev := bus.MatchFound{
			MatchID:      m.MatchID,
			ZoneID:       m.ZoneID,
			TransportURL: m.TransportURL,
			PlayerIDs:    m.PlayerIDs,
		}
		if err := s.Bus.Publish(bus.SubjectMatchFound, ev); err != nil {
			s.Logger.Errorf("failed to publish match.found for solo match %s: %v", m.MatchID, err)
			http.Error(w, "match announcement failed", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// ListLobbiesHandler dumps the in-memory store for dashboards and debugging.
func (s *ApiServer) ListLobbiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authenticatedPlayer(r); err != nil {
			http.Error(w, "invalid or missing token", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, s.Lobbies.List())
	}
}
