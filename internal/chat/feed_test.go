package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskyapp/tasky-backend/internal/models"
	"github.com/taskyapp/tasky-backend/internal/storage"
	"github.com/taskyapp/tasky-backend/internal/storage/memory"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seedThread(t *testing.T, store *memory.ChatStore, a, b string) string {
	t.Helper()
	id := ThreadID(a, b)
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	_, _, err := store.EnsureThread(context.Background(), id, [2]string{lo, hi}, testBase)
	require.NoError(t, err)
	return id
}

func seedMessages(t *testing.T, store *memory.ChatStore, threadID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := store.AppendMessage(context.Background(), threadID, "alice", "message", testBase.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
}

// waitWindow reads snapshots until one of the wanted length arrives.
func waitWindow(t *testing.T, feed *FeedController, wantLen int) []models.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case win, ok := <-feed.Snapshots():
			require.True(t, ok, "snapshots closed while waiting for window of %d", wantLen)
			if len(win) == wantLen {
				return win
			}
		case <-deadline:
			t.Fatalf("no window of %d messages within deadline", wantLen)
		}
	}
}

func newFeedFixture(t *testing.T) (*memory.ChatStore, *Service, *FeedController) {
	t.Helper()
	store := memory.NewChatStore()
	broker := NewBroker(store)
	svc := NewService(store, store, store, broker, zerolog.Nop())
	return store, svc, NewFeedController(svc)
}

func TestFeedOrderingNewestFirst(t *testing.T) {
	store, _, feed := newFeedFixture(t)
	threadID := seedThread(t, store, "alice", "bob")
	for i, text := range []string{"first", "second", "third"} {
		_, err := store.AppendMessage(context.Background(), threadID, "alice", text, testBase.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	require.NoError(t, feed.Open(context.Background(), threadID, 2))
	defer feed.Close()

	win := waitWindow(t, feed, 2)
	assert.Equal(t, "third", win[0].Text)
	assert.Equal(t, "second", win[1].Text)
}

func TestFeedPaginationGrowth(t *testing.T) {
	store, _, feed := newFeedFixture(t)
	threadID := seedThread(t, store, "alice", "bob")
	seedMessages(t, store, threadID, 25)

	require.NoError(t, feed.Open(context.Background(), threadID, 10))
	defer feed.Close()

	waitWindow(t, feed, 10)
	feed.LoadMore()
	waitWindow(t, feed, 20)
	feed.LoadMore()
	// Only 25 exist; the window is capped at the available count.
	win := waitWindow(t, feed, 25)
	assert.True(t, win[0].CreatedAt.After(win[len(win)-1].CreatedAt))
}

func TestFeedObservesSend(t *testing.T) {
	store, svc, feed := newFeedFixture(t)
	threadID := seedThread(t, store, "alice", "bob")

	sent := testBase.Add(time.Minute)
	svc.now = func() time.Time { return sent }

	require.NoError(t, feed.Open(context.Background(), threadID, 10))
	defer feed.Close()
	waitWindow(t, feed, 0)

	msg, err := feed.Send(context.Background(), "alice", "hello bob")
	require.NoError(t, err)
	assert.Equal(t, "hello bob", msg.Text)

	win := waitWindow(t, feed, 1)
	assert.Equal(t, "hello bob", win[0].Text)

	// Sending moved the sender's checkpoint to the send time.
	at, ok, err := store.Checkpoint(context.Background(), "alice", threadID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sent, at)
}

func TestSendEmptyMessageRejected(t *testing.T) {
	store, _, feed := newFeedFixture(t)
	threadID := seedThread(t, store, "alice", "bob")

	require.NoError(t, feed.Open(context.Background(), threadID, 10))
	defer feed.Close()

	_, err := feed.Send(context.Background(), "alice", "   \t\n")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	// No backend write happened.
	msgs, err := store.RecentMessages(context.Background(), threadID, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestLoadMoreSingleInFlight(t *testing.T) {
	store := memory.NewChatStore()
	gated := &gatedMessageStore{inner: store, gate: make(chan struct{})}
	broker := NewBroker(gated)
	svc := NewService(store, gated, store, broker, zerolog.Nop())
	feed := NewFeedController(svc)

	threadID := seedThread(t, store, "alice", "bob")
	seedMessages(t, store, threadID, 30)

	require.NoError(t, feed.Open(context.Background(), threadID, 10))
	defer feed.Close()
	waitWindow(t, feed, 10)

	gated.arm()
	feed.LoadMore()
	// The second call arrives while the first widening is still in flight and
	// must be dropped, not queued.
	feed.LoadMore()
	gated.release()

	win := waitWindow(t, feed, 20)
	assert.Len(t, win, 20)

	// Give a queued widening (a bug) time to surface, then confirm the window
	// stayed at one step.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, feed.Window(), 20)
	assert.Equal(t, StateLive, feed.State())
}

func TestFeedCloseIdempotent(t *testing.T) {
	store, svc, feed := newFeedFixture(t)
	threadID := seedThread(t, store, "alice", "bob")

	require.NoError(t, feed.Open(context.Background(), threadID, 10))
	waitWindow(t, feed, 0)

	feed.Close()
	feed.Close()
	assert.Equal(t, StateUnsubscribed, feed.State())

	// Appends after close deliver nothing: the channel drains and closes.
	_, err := svc.Send(context.Background(), threadID, "bob", "too late")
	require.NoError(t, err)
	for {
		win, ok := <-feed.Snapshots()
		if !ok {
			break
		}
		assert.Empty(t, win, "no new window may be produced after close")
	}

	_, err = feed.Send(context.Background(), "alice", "hi")
	assert.ErrorIs(t, err, ErrFeedClosed)
}

func TestCloseDuringFailingOpen(t *testing.T) {
	store := memory.NewChatStore()
	threadID := seedThread(t, store, "alice", "bob")

	slow := &stalledFailingStore{entered: make(chan struct{}), gate: make(chan struct{})}
	broker := NewBroker(slow)
	svc := NewService(store, slow, store, broker, zerolog.Nop())
	feed := NewFeedController(svc)

	openErr := make(chan error, 1)
	go func() { openErr <- feed.Open(context.Background(), threadID, 10) }()

	// Close lands while Open is blocked inside the subscribe, which then fails.
	<-slow.entered
	feed.Close()
	close(slow.gate)

	assert.ErrorIs(t, <-openErr, ErrFeedClosed)
	assert.Equal(t, StateUnsubscribed, feed.State())

	// Unsubscribed is terminal: the feed cannot come back.
	assert.ErrorIs(t, feed.Open(context.Background(), threadID, 10), ErrFeedClosed)

	_, ok := <-feed.Snapshots()
	assert.False(t, ok, "snapshots must be closed after the aborted open")
}

func TestFeedOpenTwice(t *testing.T) {
	store, _, feed := newFeedFixture(t)
	threadID := seedThread(t, store, "alice", "bob")

	require.NoError(t, feed.Open(context.Background(), threadID, 10))
	defer feed.Close()
	assert.ErrorIs(t, feed.Open(context.Background(), threadID, 10), ErrFeedClosed)
}

func TestLoadMoreBeforeOpenIsNoop(t *testing.T) {
	_, _, feed := newFeedFixture(t)
	feed.LoadMore()
	assert.Equal(t, StateIdle, feed.State())
}

// stalledFailingStore signals entry into RecentMessages, then blocks until
// released and fails.
type stalledFailingStore struct {
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (s *stalledFailingStore) RecentMessages(ctx context.Context, threadID string, limit int) ([]models.Message, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.gate
	return nil, errStoreDown
}

func (s *stalledFailingStore) AppendMessage(ctx context.Context, threadID, senderID, text string, createdAt time.Time) (*models.Message, error) {
	return nil, errStoreDown
}

func (s *stalledFailingStore) LatestMessageAt(ctx context.Context, threadID string) (time.Time, bool, error) {
	return time.Time{}, false, errStoreDown
}

// gatedMessageStore blocks RecentMessages while armed, to hold a load-more in
// flight.
type gatedMessageStore struct {
	inner storage.MessageStore
	mu    sync.Mutex
	armed bool
	gate  chan struct{}
}

func (g *gatedMessageStore) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
}

func (g *gatedMessageStore) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = false
	close(g.gate)
}

func (g *gatedMessageStore) RecentMessages(ctx context.Context, threadID string, limit int) ([]models.Message, error) {
	g.mu.Lock()
	armed := g.armed
	gate := g.gate
	g.mu.Unlock()
	if armed {
		<-gate
	}
	return g.inner.RecentMessages(ctx, threadID, limit)
}

func (g *gatedMessageStore) AppendMessage(ctx context.Context, threadID, senderID, text string, createdAt time.Time) (*models.Message, error) {
	return g.inner.AppendMessage(ctx, threadID, senderID, text, createdAt)
}

func (g *gatedMessageStore) LatestMessageAt(ctx context.Context, threadID string) (time.Time, bool, error) {
	return g.inner.LatestMessageAt(ctx, threadID)
}
