// internal/session/consumer_test.go
package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltgames/arena/internal/bus"
)

// fakeEventBus captures the handlers Start registers so tests can feed
// payloads straight in, no NATS server required.
type fakeEventBus struct {
	handlers   map[string]func(data []byte) error
	responders map[string]func(data []byte) ([]byte, error)
	durables   map[string]string
}

func newFakeEventBus() *fakeEventBus {
	return &fakeEventBus{
		handlers:   make(map[string]func(data []byte) error),
		responders: make(map[string]func(data []byte) ([]byte, error)),
		durables:   make(map[string]string),
	}
}

func (f *fakeEventBus) Subscribe(subject, durable string, handler func(data []byte) error) error {
	f.handlers[subject] = handler
	f.durables[subject] = durable
	return nil
}

func (f *fakeEventBus) RespondTo(subject string, handler func(data []byte) ([]byte, error)) error {
	f.responders[subject] = handler
	return nil
}

// fakeZones records heartbeat upserts.
type fakeZones struct {
	upserts [][2]string
}

func (f *fakeZones) UpsertHeartbeat(zoneID, transportURL string) {
	f.upserts = append(f.upserts, [2]string{zoneID, transportURL})
}

func setupConsumer(t *testing.T) (*fakeEventBus, *fakeZones, *Orchestrator, *mockPublisher) {
	t.Helper()
	mp := newMockPublisher()
	orch := NewOrchestrator(NewSlotManager(), NewGraceTimers(time.Minute), mp, nil, nil, nil)
	t.Cleanup(orch.Stop)
	zones := &fakeZones{}
	eb := newFakeEventBus()
	require.NoError(t, NewConsumer(orch, zones).Start(eb))
	return eb, zones, orch, mp
}

func TestConsumerRegistersAllSubjects(t *testing.T) {
	eb, _, _, _ := setupConsumer(t)

	for _, subject := range []string{
		bus.SubjectMatchFound,
		bus.SubjectConnectionStatus,
		bus.SubjectZoneHeartbeat,
		bus.SubjectServiceHeartbeat,
		bus.SubjectMatchFinished,
	} {
		assert.Contains(t, eb.handlers, subject)
		assert.NotEmpty(t, eb.durables[subject], "every event subscription needs a durable name")
	}
	assert.Contains(t, eb.responders, bus.SubjectReconnectRequest)
}

func TestMalformedPayloadsAreRejected(t *testing.T) {
	eb, _, _, _ := setupConsumer(t)

	for subject, handler := range eb.handlers {
		assert.Error(t, handler([]byte("{not json")), "subject %s must reject malformed payloads", subject)
	}
	_, err := eb.responders[bus.SubjectReconnectRequest]([]byte("{not json"))
	assert.Error(t, err)
}

func TestMatchFoundWithoutPlayersIsRejected(t *testing.T) {
	eb, _, orch, _ := setupConsumer(t)

	ev := bus.MatchFound{MatchID: uuid.New(), ZoneID: "zone-1", TransportURL: "ws://zone-1:9000"}
	data, _ := json.Marshal(ev)
	assert.Error(t, eb.handlers[bus.SubjectMatchFound](data))
	assert.False(t, orch.Slots.HasMatch(ev.MatchID))
}

func TestMatchFoundFlowsToOrchestrator(t *testing.T) {
	eb, _, orch, mp := setupConsumer(t)

	ev := matchFound(uuid.New(), uuid.New())
	data, _ := json.Marshal(ev)
	require.NoError(t, eb.handlers[bus.SubjectMatchFound](data))
	assert.True(t, orch.Slots.HasMatch(ev.MatchID))
	assert.Equal(t, 1, mp.count(bus.SubjectStartSimulation))
}

func TestUnknownConnectionStatusIsRejected(t *testing.T) {
	eb, _, _, _ := setupConsumer(t)

	ev := bus.ConnectionStatus{MatchID: uuid.New(), PlayerID: uuid.New(), Status: "rebooting"}
	data, _ := json.Marshal(ev)
	assert.Error(t, eb.handlers[bus.SubjectConnectionStatus](data))
}

func TestZoneHeartbeatRequiresIdentity(t *testing.T) {
	eb, zones, _, _ := setupConsumer(t)

	data, _ := json.Marshal(bus.ZoneHeartbeat{ZoneID: "zone-1"})
	assert.Error(t, eb.handlers[bus.SubjectZoneHeartbeat](data), "missing transportUrl")

	data, _ = json.Marshal(bus.ZoneHeartbeat{ZoneID: "zone-1", TransportURL: "ws://zone-1:9000"})
	require.NoError(t, eb.handlers[bus.SubjectZoneHeartbeat](data))
	require.Len(t, zones.upserts, 1)
	assert.Equal(t, [2]string{"zone-1", "ws://zone-1:9000"}, zones.upserts[0])
}

func TestReconnectRequestReply(t *testing.T) {
	eb, _, orch, _ := setupConsumer(t)

	playerID := uuid.New()
	ev := matchFound(playerID)
	orch.HandleMatchFound(ev)

	req, _ := json.Marshal(bus.ReconnectRequest{MatchID: ev.MatchID, PlayerID: playerID})
	replyData, err := eb.responders[bus.SubjectReconnectRequest](req)
	require.NoError(t, err)

	var reply bus.ReconnectReply
	require.NoError(t, json.Unmarshal(replyData, &reply))
	assert.Equal(t, string(ReconnectSuccess), reply.Status)

	// Unknown match answers with a status, not an error, so the caller
	// can close its socket with a reason.
	req, _ = json.Marshal(bus.ReconnectRequest{MatchID: uuid.New(), PlayerID: playerID})
	replyData, err = eb.responders[bus.SubjectReconnectRequest](req)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(replyData, &reply))
	assert.Equal(t, string(ReconnectMatchNotFound), reply.Status)
}
