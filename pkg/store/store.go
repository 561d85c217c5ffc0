// Package store is the typed Redis state store for sessions and messages.
// Every write refreshes a 24 h TTL; records are last-writer-wins at record
// granularity, which is safe because each record has a single writer (the
// orchestrator owning a message, or the session-management API).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tickertalk/tickertalk/pkg/events"
	"github.com/tickertalk/tickertalk/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist or has
// expired.
var ErrNotFound = errors.New("record not found")

// recordTTL is the idle lifetime of sessions, messages, and owner indexes.
const recordTTL = 24 * time.Hour

// zoneTTL is the lifetime of cached anomaly zones.
const zoneTTL = 12 * time.Hour

func sessionKey(id string) string  { return "session:" + id }
func messageKey(id string) string  { return "message:" + id }
func ownerKey(owner string) string { return "user_sessions:" + owner }
func zoneKey(code string) string   { return "stock_zones:" + code }

// Store provides typed reads and writes keyed in Redis.
type Store struct {
	rdb *redis.Client
}

// New creates a Store on the given Redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Ping verifies connectivity, for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// SaveSession writes the session record, refreshes its TTL, and keeps the
// owner index in step.
func (s *Store) SaveSession(ctx context.Context, sess *models.Session) error {
	sess.UpdatedAt = time.Now()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sess.ID, err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, sessionKey(sess.ID), data, recordTTL)
	if sess.OwnerID != "" {
		pipe.SAdd(ctx, ownerKey(sess.OwnerID), sess.ID)
		pipe.Expire(ctx, ownerKey(sess.OwnerID), recordTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	return nil
}

// GetSession reads a session record, or ErrNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &sess, nil
}

// DeleteSession removes a session and cascades to every message it
// references, plus their event logs.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	sess, err := s.GetSession(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	keys := []string{sessionKey(id)}
	for _, msgID := range sess.MessageIDs {
		keys = append(keys,
			messageKey(msgID),
			events.LogKey(msgID),
			events.SeqKey(msgID),
		)
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, keys...)
	if sess.OwnerID != "" {
		pipe.SRem(ctx, ownerKey(sess.OwnerID), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// SessionIDsForOwner lists the session ids recorded for an owner. Expired
// sessions may linger in the index; callers filter on read.
func (s *Store) SessionIDsForOwner(ctx context.Context, owner string) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, ownerKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for owner: %w", err)
	}
	return ids, nil
}

// SaveMessage writes the message record and refreshes its TTL.
func (s *Store) SaveMessage(ctx context.Context, msg *models.Message) error {
	msg.UpdatedAt = time.Now()
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message %s: %w", msg.ID, err)
	}
	if err := s.rdb.Set(ctx, messageKey(msg.ID), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("failed to save message %s: %w", msg.ID, err)
	}
	return nil
}

// GetMessage reads a message record, or ErrNotFound.
func (s *Store) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	data, err := s.rdb.Get(ctx, messageKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", id, err)
	}
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message %s: %w", id, err)
	}
	return &msg, nil
}

// ZoneCacheEntry wraps cached anomaly zones with the window they were
// computed over, so a hit for a different window can be discarded instead
// of returning mismatched zones.
type ZoneCacheEntry struct {
	Zones     []models.AnomalyZone `json:"zones"`
	StartDate string               `json:"start_date"`
	EndDate   string               `json:"end_date"`
	CachedAt  time.Time            `json:"cached_at"`
}

// SaveZones caches anomaly zones for an entity code. Concurrent writers
// for the same code race and the last one wins; results are deterministic
// modulo input, so that is acceptable.
func (s *Store) SaveZones(ctx context.Context, code string, entry *ZoneCacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal zones for %s: %w", code, err)
	}
	if err := s.rdb.Set(ctx, zoneKey(code), data, zoneTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache zones for %s: %w", code, err)
	}
	return nil
}

// GetZones returns the cached anomaly zones for an entity code, or
// ErrNotFound.
func (s *Store) GetZones(ctx context.Context, code string) (*ZoneCacheEntry, error) {
	data, err := s.rdb.Get(ctx, zoneKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached zones for %s: %w", code, err)
	}
	var entry ZoneCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cached zones for %s: %w", code, err)
	}
	return &entry, nil
}
