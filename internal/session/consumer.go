// internal/session/consumer.go
package session

import (
	"encoding/json"
	"fmt"

	"github.com/voltgames/arena/internal/bus"
)

// EventBus is the slice of the bus the consumer needs: durable event
// subscriptions plus the reconnect request/reply responder.
type EventBus interface {
	Subscribe(subject, durable string, handler func(data []byte) error) error
	RespondTo(subject string, handler func(data []byte) ([]byte, error)) error
}

// ZoneObserver receives zone heartbeats decoded off the bus. Satisfied by
// *zone.Registry.
type ZoneObserver interface {
	UpsertHeartbeat(zoneID, transportURL string)
}

// Consumer binds the orchestrator's handlers to their bus subjects. Each
// inbound payload is validated by JSON decoding before it reaches the
// orchestrator; a decode failure leaves the message unacked so the bus's
// redelivery policy applies.
type Consumer struct {
	orch  *Orchestrator
	zones ZoneObserver
}

// NewConsumer builds the subscription binder.
func NewConsumer(orch *Orchestrator, zones ZoneObserver) *Consumer {
	return &Consumer{orch: orch, zones: zones}
}

// Start registers every subscription. Durable names are stable across
// restarts so redelivery resumes where the process left off.
func (c *Consumer) Start(eb EventBus) error {
	if err := eb.Subscribe(bus.SubjectMatchFound, "orch-match-found", c.onMatchFound); err != nil {
		return err
	}
	if err := eb.Subscribe(bus.SubjectConnectionStatus, "orch-conn-status", c.onConnectionStatus); err != nil {
		return err
	}
	if err := eb.Subscribe(bus.SubjectZoneHeartbeat, "orch-zone-heartbeat", c.onZoneHeartbeat); err != nil {
		return err
	}
	if err := eb.Subscribe(bus.SubjectServiceHeartbeat, "orch-service-heartbeat", c.onServiceHeartbeat); err != nil {
		return err
	}
	if err := eb.Subscribe(bus.SubjectMatchFinished, "orch-match-finished", c.onMatchFinished); err != nil {
		return err
	}
	return eb.RespondTo(bus.SubjectReconnectRequest, c.onReconnectRequest)
}

func (c *Consumer) onMatchFound(data []byte) error {
	var ev bus.MatchFound
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("malformed match.found: %w", err)
	}
	if len(ev.PlayerIDs) == 0 {
		return fmt.Errorf("match.found for %s carries no players", ev.MatchID)
	}
	c.orch.HandleMatchFound(ev)
	return nil
}

func (c *Consumer) onConnectionStatus(data []byte) error {
	var ev bus.ConnectionStatus
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("malformed player.connection_status: %w", err)
	}
	if ev.Status != bus.StatusConnected && ev.Status != bus.StatusDisconnected {
		return fmt.Errorf("unknown connection status %q", ev.Status)
	}
	c.orch.HandleConnectionStatus(ev)
	return nil
}

func (c *Consumer) onZoneHeartbeat(data []byte) error {
	var ev bus.ZoneHeartbeat
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("malformed zone.heartbeat: %w", err)
	}
	if ev.ZoneID == "" || ev.TransportURL == "" {
		return fmt.Errorf("zone.heartbeat missing zoneId or transportUrl")
	}
	c.zones.UpsertHeartbeat(ev.ZoneID, ev.TransportURL)
	return nil
}

func (c *Consumer) onServiceHeartbeat(data []byte) error {
	var ev bus.ServiceHeartbeat
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("malformed gameplay.heartbeat: %w", err)
	}
	c.orch.HandleServiceHeartbeat(ev)
	return nil
}

func (c *Consumer) onMatchFinished(data []byte) error {
	var ev bus.MatchFinished
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("malformed gameplay.match_finished: %w", err)
	}
	c.orch.HandleMatchFinished(ev)
	return nil
}

func (c *Consumer) onReconnectRequest(data []byte) ([]byte, error) {
	var req bus.ReconnectRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("malformed reconnect.request: %w", err)
	}
	status := c.orch.HandleReconnect(req)
	return json.Marshal(bus.ReconnectReply{Status: string(status)})
}
