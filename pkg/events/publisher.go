package events

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// logRingSize bounds the per-message event log. The sequence number lives
// inside each stored envelope, so trimming old entries does not disturb
// replay ordering or dedupe.
const logRingSize = 1000

// logTTL is how long a message's event log (and its sequence counter)
// survives after the last publish.
const logTTL = 24 * time.Hour

// lockStripes sizes the per-message lock table.
const lockStripes = 64

// Publisher appends events to the durable per-message log and broadcasts
// them on the message's pub/sub channel. One orchestrator process owns a
// message, but its stages fan out goroutines that publish concurrently, so
// sequence allocation and log append are serialized per message: without
// that, a goroutine holding sequence N can append after the one holding
// N+1 and the log order diverges from the sequence order.
type Publisher struct {
	rdb   *redis.Client
	locks [lockStripes]sync.Mutex
}

// NewPublisher creates a Publisher on the given Redis client.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// lock returns the stripe serializing publishes for a message.
func (p *Publisher) lock(messageID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(messageID))
	return &p.locks[h.Sum32()%lockStripes]
}

// Publish marshals the payload, assigns the next sequence number, appends
// the envelope to the log, and broadcasts it on the channel. Append happens
// before broadcast so a replaying subscriber can always dedupe the live
// copy by sequence.
func (p *Publisher) Publish(ctx context.Context, sessionID, messageID, eventType string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	mu := p.lock(messageID)
	mu.Lock()
	defer mu.Unlock()

	seq, err := p.rdb.Incr(ctx, SeqKey(messageID)).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate event sequence: %w", err)
	}

	evt := Event{
		Seq:       seq - 1, // INCR starts at 1; sequences are 0-based
		Type:      eventType,
		Timestamp: time.Now().Format(time.RFC3339Nano),
		SessionID: sessionID,
		MessageID: messageID,
		Payload:   payloadJSON,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	pipe := p.rdb.Pipeline()
	pipe.RPush(ctx, LogKey(messageID), data)
	pipe.LTrim(ctx, LogKey(messageID), -logRingSize, -1)
	pipe.Expire(ctx, LogKey(messageID), logTTL)
	pipe.Expire(ctx, SeqKey(messageID), logTTL)
	pipe.Publish(ctx, ChannelName(messageID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}
