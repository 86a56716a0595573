// internal/handlers/api_server.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/voltgames/arena/internal/auth"
	"github.com/voltgames/arena/internal/lobby"
)

// ApiServer bundles what the front-door handlers need: the lobby store,
// the bus for publishing match.found and for the reconnect request/reply,
// and a logger.
type ApiServer struct {
	Lobbies *lobby.Store
	Bus     MatchBus
	Logger  *logrus.Logger
}

// MatchBus is the bus surface the front door uses.
type MatchBus interface {
	Publish(subject string, v interface{}) error
	Request(ctx context.Context, subject string, v, out interface{}) error
}

// NewApiServer wires the front door.
func NewApiServer(lobbies *lobby.Store, b MatchBus, logger *logrus.Logger) *ApiServer {
	return &ApiServer{Lobbies: lobbies, Bus: b, Logger: logger}
}

// authenticatedPlayer extracts and verifies the caller's token from the
// auth_token cookie or an Authorization bearer header.
func authenticatedPlayer(r *http.Request) (uuid.UUID, error) {
	if c, err := r.Cookie("auth_token"); err == nil && c.Value != "" {
		return auth.VerifyToken(c.Value)
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return auth.VerifyToken(strings.TrimPrefix(h, "Bearer "))
	}
	return uuid.Nil, errors.New("missing auth token")
}

// writeJSON encodes v with the right content type.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDomainError maps lobby domain errors onto HTTP statuses. Unknown
// errors become a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, lobby.ErrLobbyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lobby.ErrLobbyNotOpen), errors.Is(err, lobby.ErrLobbyNotStarted), errors.Is(err, lobby.ErrLobbyFull):
		status = http.StatusConflict
	case errors.Is(err, lobby.ErrOwnerCannotLeave), errors.Is(err, lobby.ErrNotInLobby):
		status = http.StatusForbidden
	case errors.Is(err, lobby.ErrNoZoneAvailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
