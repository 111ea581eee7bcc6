package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskyapp/tasky-backend/internal/storage"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newThread(t *testing.T, s *ChatStore) string {
	t.Helper()
	_, _, err := s.EnsureThread(context.Background(), "thread-1", [2]string{"alice", "bob"}, base)
	require.NoError(t, err)
	return "thread-1"
}

func TestEnsureThreadIdempotent(t *testing.T) {
	s := NewChatStore()
	first, created, err := s.EnsureThread(context.Background(), "t1", [2]string{"a", "b"}, base)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.EnsureThread(context.Background(), "t1", [2]string{"a", "b"}, base.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)

	threads, err := s.ThreadsFor(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, threads, 1)
}

func TestRecentMessagesNewestFirstWithTieBreak(t *testing.T) {
	s := NewChatStore()
	id := newThread(t, s)

	// Same client-stamped time: the later insertion wins the tie.
	_, err := s.AppendMessage(context.Background(), id, "alice", "first", base)
	require.NoError(t, err)
	_, err = s.AppendMessage(context.Background(), id, "bob", "second", base)
	require.NoError(t, err)

	msgs, err := s.RecentMessages(context.Background(), id, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Text)
	assert.Equal(t, "first", msgs[1].Text)
}

func TestRecentMessagesHandlesOutOfOrderStamps(t *testing.T) {
	s := NewChatStore()
	id := newThread(t, s)

	// A skewed client stamps an older time after a newer one was written.
	_, err := s.AppendMessage(context.Background(), id, "alice", "late", base.Add(2*time.Second))
	require.NoError(t, err)
	_, err = s.AppendMessage(context.Background(), id, "bob", "early", base.Add(time.Second))
	require.NoError(t, err)

	msgs, err := s.RecentMessages(context.Background(), id, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "late", msgs[0].Text)
}

func TestRecentMessagesLimit(t *testing.T) {
	s := NewChatStore()
	id := newThread(t, s)
	for i := 0; i < 5; i++ {
		_, err := s.AppendMessage(context.Background(), id, "alice", "m", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	msgs, err := s.RecentMessages(context.Background(), id, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, base.Add(4*time.Second), msgs[0].CreatedAt)
	assert.Equal(t, base.Add(2*time.Second), msgs[2].CreatedAt)
}

func TestAppendToMissingThread(t *testing.T) {
	s := NewChatStore()
	_, err := s.AppendMessage(context.Background(), "nope", "alice", "m", base)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLatestMessageAt(t *testing.T) {
	s := NewChatStore()
	id := newThread(t, s)

	_, ok, err := s.LatestMessageAt(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.AppendMessage(context.Background(), id, "alice", "m", base.Add(time.Second))
	require.NoError(t, err)
	_, err = s.AppendMessage(context.Background(), id, "alice", "m", base) // older stamp
	require.NoError(t, err)

	at, ok, err := s.LatestMessageAt(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Second), at)
}

func TestCheckpointUpsertOverwrites(t *testing.T) {
	s := NewChatStore()
	id := newThread(t, s)

	_, ok, err := s.Checkpoint(context.Background(), "alice", id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.UpsertCheckpoint(context.Background(), "alice", id, base))
	require.NoError(t, s.UpsertCheckpoint(context.Background(), "alice", id, base.Add(time.Minute)))

	at, ok, err := s.Checkpoint(context.Background(), "alice", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Minute), at)
}
