// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// MatchEventRecord is the minimal audit record pushed to the historian
// queue for each match lifecycle transition.
type MatchEventRecord struct {
	Event     string    `json:"event"`
	MatchID   uuid.UUID `json:"match_id"`
	PlayerID  uuid.UUID `json:"player_id,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// AuditQueue pushes match lifecycle records onto a Redis list consumed by
// the out-of-band historian. Every call is best-effort: a failed push is a
// warning, never a blocker for the orchestrator.
type AuditQueue struct {
	rdb    *redis.Client
	queue  string
	logger *logrus.Logger
}

// Connect initializes the Redis client and verifies connectivity.
func Connect(addr string, db int, queue string, logger *logrus.Logger) (*AuditQueue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &AuditQueue{rdb: rdb, queue: queue, logger: logger}, nil
}

// Record serializes the event and pushes it to the audit queue.
func (q *AuditQueue) Record(event string, matchID, playerID uuid.UUID) {
	rec := MatchEventRecord{
		Event:     event,
		MatchID:   matchID,
		PlayerID:  playerID,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		q.logger.Warnf("audit: failed to marshal %s record: %v", event, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := q.rdb.RPush(ctx, q.queue, data).Err(); err != nil {
		q.logger.Warnf("audit: failed to push %s record for match %s: %v", event, matchID, err)
	}
}

// Close releases the Redis client.
func (q *AuditQueue) Close() error {
	return q.rdb.Close()
}
