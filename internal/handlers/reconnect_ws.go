// internal/handlers/reconnect_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/voltgames/arena/internal/bus"
	"github.com/voltgames/arena/internal/session"
)

// ReconnectWSHandler is the transport gateway's reconnection edge. A client
// whose connection dropped reconnects here with its token; the handler
// verifies the token, asks the orchestrator over the bus whether the slot
// is still available, and only then resumes the transport session. A
// non-success status is a typed close, not an error: the client decides
// whether to retry or re-enter matchmaking.
func ReconnectWSHandler(logger *logrus.Logger, b MatchBus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Path: /game/ws/{match_id}
		matchIDStr := strings.TrimPrefix(r.URL.Path, "/game/ws/")
		if i := strings.Index(matchIDStr, "/"); i >= 0 {
			matchIDStr = matchIDStr[:i]
		}
		if matchIDStr == "" {
			http.Error(w, "Missing match_id in path (/game/ws/{match_id})", http.StatusBadRequest)
			return
		}
		matchID, err := uuid.Parse(matchIDStr)
		if err != nil {
			http.Error(w, "Invalid match_id format", http.StatusBadRequest)
			return
		}

		playerID, err := authenticatedPlayer(r)
		if err != nil {
			http.Error(w, "invalid or missing token", http.StatusUnauthorized)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for match %s: %v", matchID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "game" {
			c.Close(websocket.StatusPolicyViolation, "Client must use the 'game' subprotocol.")
			return
		}

		var reply bus.ReconnectReply
		req := bus.ReconnectRequest{MatchID: matchID, PlayerID: playerID}
		if err := b.Request(r.Context(), bus.SubjectReconnectRequest, req, &reply); err != nil {
			// Infrastructure fault, not a verdict: the client may retry.
			logger.Warnf("reconnect request failed for player %s match %s: %v", playerID, matchID, err)
			c.Close(websocket.StatusTryAgainLater, "Reconnect validation unavailable.")
			return
		}

		if reply.Status != string(session.ReconnectSuccess) {
			logger.Infof("reconnect denied for player %s in match %s: %s", playerID, matchID, reply.Status)
			c.Close(websocket.StatusPolicyViolation, reply.Status)
			return
		}

		logger.Infof("player %s reconnected to match %s", playerID, matchID)
		sendWsMessage(c, map[string]interface{}{
			"type":    "reconnected",
			"matchId": matchID.String(),
		})

		// The orchestrator already restored presence as part of the
		// reconnect reply; announce the transport-level connect so every
		// consumer sees the same stream of status changes.
		publishStatus(b, logger, matchID, playerID, bus.StatusConnected)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		readClientMessages(ctx, c, logger, playerID, matchID)

		// Read loop exit means the transport dropped again.
		publishStatus(b, logger, matchID, playerID, bus.StatusDisconnected)
		logger.Infof("player %s transport session for match %s closed", playerID, matchID)
	}
}

// publishStatus emits a player.connection_status event; failures are logged
// and left to the client's next transition to correct.
func publishStatus(b MatchBus, logger *logrus.Logger, matchID, playerID uuid.UUID, status string) {
	ev := bus.ConnectionStatus{MatchID: matchID, PlayerID: playerID, Status: status}
	if err := b.Publish(bus.SubjectConnectionStatus, ev); err != nil {
		logger.Warnf("failed to publish %s status for player %s match %s: %v", status, playerID, matchID, err)
	}
}

// readClientMessages keeps the resumed session alive, answering pings until
// the client goes away or the context is cancelled.
func readClientMessages(ctx context.Context, c *websocket.Conn, logger *logrus.Logger, playerID, matchID uuid.UUID) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for player %s in match %s.", playerID, matchID)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for player %s in match %s.", playerID, matchID)
			} else {
				logger.Warnf("Error reading from WebSocket for player %s in match %s: %v", playerID, matchID, err)
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsMessage(c, map[string]interface{}{"type": "error", "message": "Invalid JSON format."})
			continue
		}
		if msg.Type == "ping" {
			sendWsMessage(c, map[string]string{"type": "pong"})
		}
	}
}

// sendWsMessage marshals a message and sends it with a write timeout.
func sendWsMessage(c *websocket.Conn, message interface{}) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Write(writeCtx, websocket.MessageText, msgBytes)
}
