package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskyapp/tasky-backend/internal/models"
	"github.com/taskyapp/tasky-backend/internal/storage"
	"github.com/taskyapp/tasky-backend/internal/storage/memory"
)

func TestResolveIdempotent(t *testing.T) {
	store := memory.NewChatStore()
	r := NewThreadResolver(store, store, zerolog.Nop())

	first, err := r.Resolve(context.Background(), "alice", "bob")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	threads, err := store.ThreadsFor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, threads, 1)
}

func TestResolveSymmetric(t *testing.T) {
	store := memory.NewChatStore()
	r := NewThreadResolver(store, store, zerolog.Nop())

	ab, err := r.Resolve(context.Background(), "alice", "bob")
	require.NoError(t, err)
	ba, err := r.Resolve(context.Background(), "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestResolveInvalidParticipant(t *testing.T) {
	store := memory.NewChatStore()
	r := NewThreadResolver(store, store, zerolog.Nop())

	for _, pair := range [][2]string{
		{"", "bob"},
		{"alice", ""},
		{"alice", "alice"},
	} {
		_, err := r.Resolve(context.Background(), pair[0], pair[1])
		assert.ErrorIs(t, err, ErrInvalidParticipant, "pair %v", pair)
	}

	threads, err := store.ThreadsFor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestResolveRecordsCheckpoint(t *testing.T) {
	store := memory.NewChatStore()
	r := NewThreadResolver(store, store, zerolog.Nop())
	opened := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return opened }

	id, err := r.Resolve(context.Background(), "alice", "bob")
	require.NoError(t, err)

	at, ok, err := store.Checkpoint(context.Background(), "alice", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, opened, at)

	// The peer has not opened the thread.
	_, ok, err = store.Checkpoint(context.Background(), "bob", id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveBackendUnavailable(t *testing.T) {
	failing := &failingThreadStore{}
	ckpts := memory.NewChatStore()
	r := NewThreadResolver(failing, ckpts, zerolog.Nop())

	_, err := r.Resolve(context.Background(), "alice", "bob")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestThreadIDCanonical(t *testing.T) {
	assert.Equal(t, ThreadID("alice", "bob"), ThreadID("bob", "alice"))
	assert.NotEqual(t, ThreadID("alice", "bob"), ThreadID("alice", "carol"))
}

type failingThreadStore struct{}

var errStoreDown = errors.New("store down")

func (f *failingThreadStore) EnsureThread(ctx context.Context, id string, participants [2]string, createdAt time.Time) (*models.Thread, bool, error) {
	return nil, false, errStoreDown
}

func (f *failingThreadStore) ThreadByID(ctx context.Context, id string) (*models.Thread, error) {
	return nil, errStoreDown
}

func (f *failingThreadStore) ThreadsFor(ctx context.Context, userID string) ([]*models.Thread, error) {
	return nil, errStoreDown
}

var _ storage.ThreadStore = (*failingThreadStore)(nil)
