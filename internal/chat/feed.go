package chat

import (
	"context"
	"sync"
	"time"

	"github.com/taskyapp/tasky-backend/internal/models"
)

const (
	// DefaultPageSize is the initial feed window.
	DefaultPageSize = 10
	// DefaultPageStep is how much LoadMore widens the window.
	DefaultPageStep = 10

	loadMoreTimeout = 15 * time.Second
)

// FeedState is the lifecycle of a feed controller.
type FeedState int

const (
	StateIdle FeedState = iota
	StateLoading
	StateLive
	StateLoadingMore
	StateUnsubscribed
)

// FeedController manages one live, paginated, reverse-chronological view of a
// thread. The visible window is always exactly "the newest N messages": each
// broker delivery replaces it wholesale, so there is no incremental merge or
// dedup anywhere. Pagination only widens N.
type FeedController struct {
	svc  *Service
	step int

	mu          sync.Mutex
	state       FeedState
	threadID    string
	limit       int
	loadingMore bool
	window      []models.Message
	sub         *Subscription

	snapshots chan []models.Message
	pumpDone  chan struct{}
}

func NewFeedController(svc *Service) *FeedController {
	return &FeedController{
		svc:       svc,
		step:      DefaultPageStep,
		snapshots: make(chan []models.Message, 1),
	}
}

// Snapshots delivers the full visible window after every change, newest first.
// The channel is closed once the feed is fully torn down.
func (c *FeedController) Snapshots() <-chan []models.Message { return c.snapshots }

// State reports the current lifecycle state.
func (c *FeedController) State() FeedState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Window returns the last delivered window, newest first.
func (c *FeedController) Window() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.window))
	copy(out, c.window)
	return out
}

// ThreadID returns the thread this feed is bound to; empty before Open.
func (c *FeedController) ThreadID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threadID
}

// Open subscribes to the thread's newest pageSize messages and goes Live on the
// first delivered window. Valid only from Idle.
func (c *FeedController) Open(ctx context.Context, threadID string, pageSize int) error {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrFeedClosed
	}
	c.state = StateLoading
	c.threadID = threadID
	c.limit = pageSize
	c.mu.Unlock()

	sub, err := c.svc.broker.Subscribe(ctx, threadID, pageSize)
	if err != nil {
		c.mu.Lock()
		if c.state == StateUnsubscribed {
			// Closed while the subscribe was in flight; Unsubscribed stays
			// terminal even though the subscribe itself failed.
			c.mu.Unlock()
			close(c.snapshots)
			return ErrFeedClosed
		}
		c.state = StateIdle
		c.threadID = ""
		c.mu.Unlock()
		return backendErr("open feed", err)
	}

	c.mu.Lock()
	if c.state == StateUnsubscribed {
		// Closed while the subscribe was in flight.
		c.mu.Unlock()
		c.svc.broker.Unsubscribe(sub)
		close(c.snapshots)
		return ErrFeedClosed
	}
	c.sub = sub
	c.pumpDone = make(chan struct{})
	c.mu.Unlock()

	go c.pump(sub)
	return nil
}

// pump forwards broker deliveries to the consumer, tracking the window and the
// Loading->Live transition. It exits when Unsubscribe closes the subscription.
func (c *FeedController) pump(sub *Subscription) {
	defer close(c.pumpDone)
	defer close(c.snapshots)
	for win := range sub.C() {
		c.mu.Lock()
		c.window = win
		if c.state == StateLoading {
			c.state = StateLive
		}
		c.mu.Unlock()

		// Same coalescing as the broker: the consumer only ever waits on the
		// newest window.
		for {
			select {
			case c.snapshots <- win:
			default:
				select {
				case <-c.snapshots:
				default:
				}
				continue
			}
			break
		}
	}
}

// LoadMore widens the window by one step and re-issues the subscription at the
// larger limit. At most one widening is in flight: calls arriving while one is
// pending are dropped, not queued. Calling outside Live is a no-op.
func (c *FeedController) LoadMore() {
	c.mu.Lock()
	if c.state != StateLive || c.loadingMore {
		c.mu.Unlock()
		return
	}
	c.loadingMore = true
	c.state = StateLoadingMore
	newLimit := c.limit + c.step
	sub := c.sub
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), loadMoreTimeout)
		defer cancel()

		err := c.svc.broker.Resize(ctx, sub, newLimit)

		c.mu.Lock()
		if err == nil {
			c.limit = newLimit
		} else {
			c.svc.log.Warn().Err(err).Str("thread_id", c.threadID).Msg("load more failed")
		}
		c.loadingMore = false
		if c.state == StateLoadingMore {
			c.state = StateLive
		}
		c.mu.Unlock()
	}()
}

// Send writes through the service on this feed's thread.
func (c *FeedController) Send(ctx context.Context, senderID, text string) (*models.Message, error) {
	c.mu.Lock()
	threadID := c.threadID
	state := c.state
	c.mu.Unlock()
	if state == StateIdle || state == StateUnsubscribed {
		return nil, ErrFeedClosed
	}
	return c.svc.Send(ctx, threadID, senderID, text)
}

// Close tears the feed down. It is idempotent, and once it returns no snapshot
// is delivered: the subscription is removed under the broker mutex and the
// forwarding pump has exited.
func (c *FeedController) Close() {
	c.mu.Lock()
	if c.state == StateUnsubscribed {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = StateUnsubscribed
	sub := c.sub
	c.sub = nil
	done := c.pumpDone
	c.mu.Unlock()

	switch {
	case sub != nil:
		c.svc.broker.Unsubscribe(sub)
		<-done
	case prev == StateIdle:
		close(c.snapshots)
	// prev == StateLoading with no sub: Open is mid-subscribe and will observe
	// Unsubscribed, release the subscription and close the channel itself.
	}
}
