package chat

import (
	"context"
	"sync"

	"github.com/taskyapp/tasky-backend/internal/models"
	"github.com/taskyapp/tasky-backend/internal/storage"
)

// Subscription is a live, size-limited view over one thread's newest messages.
// Every value on C carries the entire current window, newest first; the consumer
// replaces its state wholesale on each delivery. A consumer that lags only ever
// misses intermediate windows, never the newest one.
type Subscription struct {
	threadID string
	limit    int
	ch       chan []models.Message
	closed   bool
}

// C delivers full window snapshots. It is closed by Unsubscribe.
func (s *Subscription) C() <-chan []models.Message { return s.ch }

// deliver coalesces into the subscription's single-slot buffer: a stale
// undelivered window is dropped in favor of the new one. Callers hold the
// broker mutex, so there is at most one deliverer at a time.
func (s *Subscription) deliver(win []models.Message) {
	for {
		select {
		case s.ch <- win:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// Broker is the in-process realization of the backend's limited live query:
// subscribers register a window over a thread, and every published change
// re-materializes each window from the store and delivers it whole. Queries run
// under the broker mutex, so successive windows of one subscription are drawn
// from a serialized, never-rewinding view of the log.
type Broker struct {
	mu    sync.Mutex
	store storage.MessageStore
	subs  map[string]map[*Subscription]bool // threadID -> subscriptions
}

func NewBroker(store storage.MessageStore) *Broker {
	return &Broker{
		store: store,
		subs:  make(map[string]map[*Subscription]bool),
	}
}

// Subscribe registers a window over threadID and delivers the current snapshot
// before returning.
func (b *Broker) Subscribe(ctx context.Context, threadID string, limit int) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	win, err := b.store.RecentMessages(ctx, threadID, limit)
	if err != nil {
		return nil, err
	}
	sub := &Subscription{
		threadID: threadID,
		limit:    limit,
		ch:       make(chan []models.Message, 1),
	}
	if b.subs[threadID] == nil {
		b.subs[threadID] = make(map[*Subscription]bool)
	}
	b.subs[threadID][sub] = true
	sub.deliver(win)
	return sub, nil
}

// Resize raises the subscription's window limit and redelivers the full window
// at the new size. Resizing a closed subscription is a no-op.
func (b *Broker) Resize(ctx context.Context, sub *Subscription, limit int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.closed {
		return nil
	}
	win, err := b.store.RecentMessages(ctx, sub.threadID, limit)
	if err != nil {
		return err
	}
	sub.limit = limit
	sub.deliver(win)
	return nil
}

// Publish re-materializes and delivers every subscriber's window on threadID.
// Called after each append.
func (b *Broker) Publish(ctx context.Context, threadID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for sub := range b.subs[threadID] {
		win, err := b.store.RecentMessages(ctx, threadID, sub.limit)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sub.deliver(win)
	}
	return firstErr
}

// Unsubscribe removes the subscription and closes its channel. It is idempotent,
// and once it returns no further window is delivered: removal happens under the
// same mutex every delivery runs under.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	if subs, ok := b.subs[sub.threadID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.threadID)
		}
	}
	close(sub.ch)
}
