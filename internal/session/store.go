// Package session provides chat session persistence and turn streaming.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/parley-ai/parley/internal/event"
	"github.com/parley-ai/parley/internal/storage"
	"github.com/parley-ai/parley/pkg/types"
)

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrValidation is returned when session input is malformed.
	ErrValidation = errors.New("invalid session input")
)

// Store manages session records.
type Store struct {
	storage *storage.Storage
	bus     *event.Bus
}

// NewStore creates a session store backed by the given storage.
func NewStore(store *storage.Storage, bus *event.Bus) *Store {
	return &Store{storage: store, bus: bus}
}

// Create creates a new session for the given owner.
func (s *Store) Create(ctx context.Context, owner, title, intent string) (*types.Session, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	if title == "" {
		title = "New Session"
	}

	now := time.Now().UnixMilli()
	session := &types.Session{
		ID:     generateID(),
		Owner:  owner,
		Title:  title,
		Intent: intent,
		Time: types.SessionTime{
			Created: now,
			Updated: now,
		},
		Messages: []types.Message{},
	}

	if err := s.storage.Put(ctx, []string{"session", owner, session.ID}, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.publish(event.SessionCreated, event.SessionCreatedData{Info: session})
	return session, nil
}

// Get retrieves a session by ID, scanning all owners.
func (s *Store) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	owners, err := s.storage.List(ctx, []string{"session"})
	if err != nil {
		return nil, err
	}

	for _, owner := range owners {
		var session types.Session
		if err := s.storage.Get(ctx, []string{"session", owner, sessionID}, &session); err == nil {
			return &session, nil
		}
	}

	return nil, ErrNotFound
}

// GetOwned retrieves a session by ID when it belongs to the given owner.
func (s *Store) GetOwned(ctx context.Context, owner, sessionID string) (*types.Session, error) {
	var session types.Session
	if err := s.storage.Get(ctx, []string{"session", owner, sessionID}, &session); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Rename updates the title of a session.
func (s *Store) Rename(ctx context.Context, owner, sessionID, title string) (*types.Session, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	var renamed *types.Session
	path := []string{"session", owner, sessionID}
	err := s.storage.Update(ctx, path, func(current json.RawMessage) (any, error) {
		var session types.Session
		if err := json.Unmarshal(current, &session); err != nil {
			return nil, err
		}
		session.Title = title
		session.Time.Updated = time.Now().UnixMilli()
		renamed = &session
		return &session, nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.publish(event.SessionRenamed, event.SessionRenamedData{Info: renamed})
	return renamed, nil
}

// Delete removes a session. It reports whether a session was deleted.
func (s *Store) Delete(ctx context.Context, owner, sessionID string) (bool, error) {
	err := s.storage.Delete(ctx, []string{"session", owner, sessionID})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	s.publish(event.SessionDeleted, event.SessionDeletedData{SessionID: sessionID})
	return true, nil
}

// ListByOwner returns all sessions for an owner, newest first.
func (s *Store) ListByOwner(ctx context.Context, owner string) ([]*types.Session, error) {
	sessions := []*types.Session{}
	err := s.storage.Scan(ctx, []string{"session", owner}, func(key string, data json.RawMessage) error {
		var session types.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return err
		}
		sessions = append(sessions, &session)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Time.Created > sessions[j].Time.Created
	})
	return sessions, nil
}

// AppendTurn appends a user/assistant message pair to a session in a single
// write. The pair either lands together or not at all.
func (s *Store) AppendTurn(ctx context.Context, sessionID, userContent, assistantContent string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	path := []string{"session", session.Owner, sessionID}
	err = s.storage.Update(ctx, path, func(current json.RawMessage) (any, error) {
		var sess types.Session
		if err := json.Unmarshal(current, &sess); err != nil {
			return nil, err
		}
		sess.Messages = append(sess.Messages,
			types.Message{Role: types.RoleUser, Content: userContent},
			types.Message{Role: types.RoleAssistant, Content: assistantContent},
		)
		sess.Time.Updated = time.Now().UnixMilli()
		return &sess, nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Store) publish(t event.EventType, data any) {
	if s.bus != nil {
		s.bus.Publish(event.Event{Type: t, Data: data})
	}
}

func generateID() string {
	return ulid.Make().String()
}
