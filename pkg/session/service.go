// Package session is the session-management layer between the HTTP surface
// and the orchestrator: create/list/rename/delete, analysis start with
// idempotent re-entry, and message snapshots for polling clients.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tickertalk/tickertalk/pkg/models"
	"github.com/tickertalk/tickertalk/pkg/store"
)

// titleLimit bounds auto-generated session titles.
const titleLimit = 40

// ErrForbidden is returned when a caller touches a session they do not own.
var ErrForbidden = errors.New("session belongs to a different owner")

// Store is the slice of the state store the service uses.
type Store interface {
	SaveSession(ctx context.Context, sess *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	SessionIDsForOwner(ctx context.Context, owner string) ([]string, error)
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
}

// Runner is the slice of the orchestrator the service drives.
type Runner interface {
	Start(sess *models.Session, msg *models.Message) bool
	Processing(messageID string) bool
}

// Summary is one row of the session listing.
type Summary struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// StartResult reports how a start-analysis request was handled.
type StartResult struct {
	Session    *models.Session
	Message    *models.Message
	Reattached bool
}

// Service manages sessions and launches analyses.
type Service struct {
	store  Store
	runner Runner
}

// New creates a Service.
func New(st Store, runner Runner) *Service {
	return &Service{store: st, runner: runner}
}

// Create makes a new empty session for the owner.
func (s *Service) Create(ctx context.Context, owner, title string) (*models.Session, error) {
	if title == "" {
		title = "New conversation"
	}
	sess := &models.Session{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Title:     title,
		CreatedAt: time.Now(),
		Status:    models.SessionStatusActive,
	}
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// List returns the owner's sessions, most recently updated first. Index
// entries whose session has expired are skipped.
func (s *Service) List(ctx context.Context, owner string) ([]Summary, error) {
	ids, err := s.store.SessionIDsForOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		sess, err := s.store.GetSession(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summary{
			SessionID:    sess.ID,
			Title:        sess.Title,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			MessageCount: len(sess.MessageIDs),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// Rename updates a session's title.
func (s *Service) Rename(ctx context.Context, owner, id, title string) (*models.Session, error) {
	sess, err := s.ownedSession(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	sess.Title = title
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes a session, cascading through its messages.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if _, err := s.ownedSession(ctx, owner, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.store.DeleteSession(ctx, id)
}

// Start launches the analysis of a query. An existing session id is
// reused; a missing or empty one creates a session titled after the query.
// When the session's current message is still processing the same query,
// the request re-attaches to it instead of spawning a duplicate.
func (s *Service) Start(ctx context.Context, owner, sessionID, query, modelHint string) (*StartResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	sess, err := s.sessionForStart(ctx, owner, sessionID, query)
	if err != nil {
		return nil, err
	}

	if sess.CurrentMessageID != "" {
		current, err := s.store.GetMessage(ctx, sess.CurrentMessageID)
		if err == nil &&
			current.Status == models.MessageStatusProcessing &&
			current.Query == query &&
			s.runner.Processing(current.ID) {
			return &StartResult{Session: sess, Message: current, Reattached: true}, nil
		}
	}

	msg := &models.Message{
		ID:           uuid.NewString(),
		SessionID:    sess.ID,
		Query:        query,
		ModelHint:    modelHint,
		CreatedAt:    time.Now(),
		Status:       models.MessageStatusPending,
		StreamStatus: models.StreamStatusIdle,
	}
	sess.MessageIDs = append(sess.MessageIDs, msg.ID)
	sess.CurrentMessageID = msg.ID

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}

	s.runner.Start(sess, msg)
	return &StartResult{Session: sess, Message: msg}, nil
}

// Status returns the latest message snapshot of a session, or nil when it
// has no messages yet.
func (s *Service) Status(ctx context.Context, owner, sessionID string) (*models.Session, *models.Message, error) {
	sess, err := s.ownedSession(ctx, owner, sessionID)
	if err != nil {
		return nil, nil, err
	}

	lastID := sess.CurrentMessageID
	if lastID == "" && len(sess.MessageIDs) > 0 {
		lastID = sess.MessageIDs[len(sess.MessageIDs)-1]
	}
	if lastID == "" {
		return sess, nil, nil
	}

	msg, err := s.store.GetMessage(ctx, lastID)
	if errors.Is(err, store.ErrNotFound) {
		return sess, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return sess, msg, nil
}

func (s *Service) sessionForStart(ctx context.Context, owner, sessionID, query string) (*models.Session, error) {
	if sessionID != "" {
		sess, err := s.ownedSession(ctx, owner, sessionID)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return s.Create(ctx, owner, titleFromQuery(query))
}

func (s *Service) ownedSession(ctx context.Context, owner, id string) (*models.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.OwnerID != owner {
		return nil, ErrForbidden
	}
	return sess, nil
}

// titleFromQuery derives a short session title from the first query.
func titleFromQuery(query string) string {
	title := strings.Join(strings.Fields(query), " ")
	runes := []rune(title)
	if len(runes) > titleLimit {
		title = string(runes[:titleLimit]) + "…"
	}
	return title
}
