// internal/bus/bus.go
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// StreamName is the JetStream stream holding all arena subjects.
const StreamName = "ARENA"

// queueGroup load-balances event consumption across orchestrator replicas
// that share a deployment (each replica still owns only the matches it
// created).
const queueGroup = "arena-orchestrator"

// requestTimeout bounds synchronous request/reply calls.
const requestTimeout = 5 * time.Second

// Bus wraps the NATS connection: JetStream pub/sub for events
// (at-least-once, manual ack) and core request/reply for the reconnect
// query. The wire framing underneath is NATS's concern, not ours.
type Bus struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Logger

	subs []*nats.Subscription
}

// Connect dials NATS and ensures the arena stream exists. Reconnection is
// unbounded; a dropped broker is an infrastructure fault we ride out.
func Connect(url string, logger *logrus.Logger) (*Bus, error) {
	conn, err := nats.Connect(
		url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	b := &Bus{conn: conn, js: js, logger: logger}
	if err := b.initStream(); err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

// initStream creates or updates the arena stream. Idempotent across
// restarts and replicas.
func (b *Bus) initStream() error {
	cfg := &nats.StreamConfig{
		Name: StreamName,
		Subjects: []string{
			"match.>", "player.>", "zone.>", "gameplay.>", "orchestrator.>",
		},
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
		Replicas: 1,
	}

	_, err := b.js.StreamInfo(StreamName)
	if errors.Is(err, nats.ErrStreamNotFound) {
		if _, err := b.js.AddStream(cfg); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
		}
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to query stream %s: %w", StreamName, err)
	}

	if _, err := b.js.UpdateStream(cfg); err != nil {
		return fmt.Errorf("failed to update stream %s: %w", StreamName, err)
	}
	return nil
}

// Publish marshals v and publishes it synchronously, waiting for the
// JetStream ack so the event is durably accepted before we move on.
func (b *Bus) Publish(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", subject, err)
	}
	if _, err := b.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a durable, manually-acked queue subscription. The
// handler's error leaves the message unacked: a malformed or failed event is
// redelivered under the bus's own retry policy rather than silently lost.
func (b *Bus) Subscribe(subject, durable string, handler func(data []byte) error) error {
	sub, err := b.js.QueueSubscribe(
		subject,
		queueGroup,
		func(msg *nats.Msg) {
			if err := handler(msg.Data); err != nil {
				b.logger.WithFields(logrus.Fields{
					"subject": msg.Subject,
					"payload": string(msg.Data),
				}).Warnf("event handler rejected message: %v", err)
				msg.Nak()
				return
			}
			msg.Ack()
		},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.AckWait(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

// RespondTo registers a core-NATS request/reply responder. The handler
// returns the reply bytes; errors are logged and the request left to time
// out on the caller's side.
func (b *Bus) RespondTo(subject string, handler func(data []byte) ([]byte, error)) error {
	sub, err := b.conn.QueueSubscribe(subject, queueGroup, func(msg *nats.Msg) {
		reply, err := handler(msg.Data)
		if err != nil {
			b.logger.WithField("subject", msg.Subject).Warnf("request handler failed: %v", err)
			return
		}
		if err := msg.Respond(reply); err != nil {
			b.logger.WithField("subject", msg.Subject).Warnf("failed to respond: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register responder on %s: %w", subject, err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

// Request performs a synchronous request/reply round trip, decoding the
// reply into out.
func (b *Bus) Request(ctx context.Context, subject string, v, out interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", subject, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	msg, err := b.conn.RequestWithContext(reqCtx, subject, data)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", subject, err)
	}
	if err := json.Unmarshal(msg.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s reply: %w", subject, err)
	}
	return nil
}

// Close drains all subscriptions and closes the connection. After Close no
// handler will be invoked again.
func (b *Bus) Close() {
	for _, sub := range b.subs {
		if err := sub.Drain(); err != nil {
			b.logger.Warnf("failed to drain subscription %s: %v", sub.Subject, err)
		}
	}
	if b.conn != nil {
		b.conn.Close()
	}
}
