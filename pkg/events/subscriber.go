package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultHeartbeatInterval is how long the tail may stay idle before the
// subscriber synthesizes a heartbeat so intermediate proxies keep the
// connection open.
const defaultHeartbeatInterval = 15 * time.Second

// Subscriber attaches to a message's event stream: full replay of the
// durable log first, then live tail of the pub/sub channel. A subscriber
// never influences the publishing side; disconnecting only tears down the
// channel subscription.
type Subscriber struct {
	rdb       *redis.Client
	heartbeat time.Duration
}

// NewSubscriber creates a Subscriber with the default heartbeat interval.
func NewSubscriber(rdb *redis.Client) *Subscriber {
	return &Subscriber{rdb: rdb, heartbeat: defaultHeartbeatInterval}
}

// cursor enforces exactly-once delivery across the replay/tail seam. Each
// sequence passes once, however it arrives; a log whose stored order ever
// diverged from sequence order still delivers every event. Synthesized
// events (negative seq) always pass.
type cursor struct {
	seen map[int64]struct{}
}

func newCursor() *cursor { return &cursor{seen: map[int64]struct{}{}} }

// Admit reports whether the event should be delivered, recording it when
// it is.
func (c *cursor) Admit(e Event) bool {
	if e.Seq < 0 {
		return true
	}
	if _, dup := c.seen[e.Seq]; dup {
		return false
	}
	c.seen[e.Seq] = struct{}{}
	return true
}

// Subscribe returns a channel delivering the message's full event history
// followed by its live tail. The channel closes after a terminal event,
// on context cancellation, or on a fabric error. Cancellation cleans up
// the Redis subscription only; the producing orchestrator is unaffected.
func (s *Subscriber) Subscribe(ctx context.Context, messageID string) (<-chan Event, error) {
	pubsub := s.rdb.Subscribe(ctx, ChannelName(messageID))

	// Wait for the subscription to be active before reading the log.
	// Subscribing first closes the gap where an event published between
	// replay and tail would be lost; the cursor closes the overlap.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", ChannelName(messageID), err)
	}

	replay, err := s.rdb.LRange(ctx, LogKey(messageID), 0, -1).Result()
	if err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to read event log for %s: %w", messageID, err)
	}

	out := make(chan Event, 64)
	go s.run(ctx, messageID, pubsub, replay, out)
	return out, nil
}

// run delivers replayed events, then tails the live channel with idle
// heartbeats, until a terminal event or cancellation.
func (s *Subscriber) run(ctx context.Context, messageID string, pubsub *redis.PubSub, replay []string, out chan<- Event) {
	defer close(out)
	defer func() { _ = pubsub.Close() }()

	cur := newCursor()

	for _, raw := range replay {
		evt, ok := decodeEvent(messageID, []byte(raw))
		if !ok || !cur.Admit(evt) {
			continue
		}
		select {
		case out <- evt:
		case <-ctx.Done():
			return
		}
		if IsTerminal(evt.Type) {
			return
		}
	}

	live := pubsub.Channel()
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-live:
			if !ok {
				return
			}
			ticker.Reset(s.heartbeat)
			evt, decoded := decodeEvent(messageID, []byte(msg.Payload))
			if !decoded || !cur.Admit(evt) {
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
			if IsTerminal(evt.Type) {
				return
			}
		case <-ticker.C:
			hb := Event{
				Seq:       -1,
				Type:      TypeHeartbeat,
				Timestamp: time.Now().Format(time.RFC3339Nano),
				MessageID: messageID,
				Payload:   json.RawMessage("{}"),
			}
			select {
			case out <- hb:
			case <-ctx.Done():
				return
			}
		}
	}
}

// decodeEvent parses a stored or broadcast envelope, logging and skipping
// anything malformed.
func decodeEvent(messageID string, data []byte) (Event, bool) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		slog.Warn("Skipping malformed event", "message_id", messageID, "error", err)
		return Event{}, false
	}
	return evt, true
}
