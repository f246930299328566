package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/internal/storage"
	"github.com/parley-ai/parley/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(storage.New(t.TempDir()), nil)
}

func TestStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "owner-1", "Trip planning", "travel")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "owner-1", created.Owner)
	assert.Equal(t, "Trip planning", created.Title)
	assert.Equal(t, "travel", created.Intent)
	assert.NotNil(t, created.Messages)
	assert.Empty(t, created.Messages)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Title, got.Title)
}

func TestStoreCreateDefaultsTitle(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create(context.Background(), "owner-1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "New Session", created.Title)
}

func TestStoreCreateRequiresOwner(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(context.Background(), "", "title", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStoreGetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreGetIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "owner-1", "Stable", "")
	require.NoError(t, err)

	first, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	second, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStoreGetOwnedScoping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "owner-1", "Mine", "")
	require.NoError(t, err)

	got, err := store.GetOwned(ctx, "owner-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = store.GetOwned(ctx, "owner-2", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreRename(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "owner-1", "Old", "")
	require.NoError(t, err)

	renamed, err := store.Rename(ctx, "owner-1", created.ID, "New title")
	require.NoError(t, err)
	assert.Equal(t, "New title", renamed.Title)
	assert.GreaterOrEqual(t, renamed.Time.Updated, created.Time.Updated)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
}

func TestStoreRenameValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "owner-1", "Old", "")
	require.NoError(t, err)

	_, err = store.Rename(ctx, "owner-1", created.ID, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.Rename(ctx, "owner-1", "missing", "New")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "owner-1", "Doomed", "")
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, "owner-1", created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = store.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err = store.Delete(ctx, "owner-1", created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStoreListByOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "owner-1", "First", "")
	require.NoError(t, err)
	_, err = store.Create(ctx, "owner-1", "Second", "")
	require.NoError(t, err)
	_, err = store.Create(ctx, "owner-2", "Other owner", "")
	require.NoError(t, err)

	sessions, err := store.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, sess := range sessions {
		assert.Equal(t, "owner-1", sess.Owner)
	}
	assert.GreaterOrEqual(t, sessions[0].Time.Created, sessions[1].Time.Created)
}

func TestStoreListByOwnerEmpty(t *testing.T) {
	store := newTestStore(t)

	sessions, err := store.ListByOwner(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestStoreAppendTurn(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "owner-1", "Chat", "")
	require.NoError(t, err)

	require.NoError(t, store.AppendTurn(ctx, created.ID, "hello", "hi there"))

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, types.Message{Role: types.RoleUser, Content: "hello"}, got.Messages[0])
	assert.Equal(t, types.Message{Role: types.RoleAssistant, Content: "hi there"}, got.Messages[1])
}

func TestStoreAppendTurnUnknownSession(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendTurn(context.Background(), "missing", "hello", "hi")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreAppendTurnConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "owner-1", "Busy", "")
	require.NoError(t, err)

	done := make(chan error, 2)
	go func() { done <- store.AppendTurn(ctx, created.ID, "q1", "a1") }()
	go func() { done <- store.AppendTurn(ctx, created.ID, "q2", "a2") }()
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 4)

	// Pair order between turns is unspecified, but each pair stays adjacent.
	for i := 0; i < 4; i += 2 {
		assert.Equal(t, types.RoleUser, got.Messages[i].Role)
		assert.Equal(t, types.RoleAssistant, got.Messages[i+1].Role)
		assert.Equal(t, got.Messages[i].Content[1:], got.Messages[i+1].Content[1:])
	}
}
