// Package user manages account records created on login.
package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parley-ai/parley/internal/storage"
	"github.com/parley-ai/parley/pkg/types"
)

var (
	// ErrNotFound reports an unknown user.
	ErrNotFound = errors.New("user not found")
	// ErrValidation reports malformed login input.
	ErrValidation = errors.New("invalid user data")
)

// Service manages user records.
type Service struct {
	storage *storage.Storage
}

// NewService creates a new user service.
func NewService(store *storage.Storage) *Service {
	return &Service{storage: store}
}

// Upsert creates the user on first login or refreshes last-login on a
// repeat one, and returns the stored record.
func (s *Service) Upsert(ctx context.Context, email, firstName, lastName string) (*types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email %q", ErrValidation, email)
	}

	now := time.Now().UnixMilli()

	existing, err := s.GetByEmail(ctx, email)
	if err == nil {
		existing.LastLogin = now
		if firstName != "" {
			existing.FirstName = firstName
		}
		if lastName != "" {
			existing.LastName = lastName
		}
		if err := s.storage.Put(ctx, []string{"user", existing.ID}, existing); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user := &types.User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		LastLogin: now,
	}

	if err := s.storage.Put(ctx, []string{"user", user.ID}, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Get retrieves a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*types.User, error) {
	var user types.User
	if err := s.storage.Get(ctx, []string{"user", id}, &user); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email address.
func (s *Service) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var found *types.User
	err := s.storage.Scan(ctx, []string{"user"}, func(key string, data json.RawMessage) error {
		var user types.User
		if err := json.Unmarshal(data, &user); err != nil {
			return err
		}
		if user.Email == email {
			found = &user
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}
