package chat

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/taskyapp/tasky-backend/internal/models"
	"github.com/taskyapp/tasky-backend/internal/storage"
)

// Service owns the message write path and the thread-list reads shared by the
// REST handlers and the live feed sessions.
type Service struct {
	threads     storage.ThreadStore
	messages    storage.MessageStore
	checkpoints storage.CheckpointStore
	broker      *Broker
	log         zerolog.Logger
	now         func() time.Time
}

func NewService(threads storage.ThreadStore, messages storage.MessageStore, checkpoints storage.CheckpointStore, broker *Broker, log zerolog.Logger) *Service {
	return &Service{
		threads:     threads,
		messages:    messages,
		checkpoints: checkpoints,
		broker:      broker,
		log:         log,
		now:         time.Now,
	}
}

// Send appends text to the thread with a writer-stamped creation time, then
// moves the sender's checkpoint to now. The two writes are not transactional:
// a failed checkpoint update is logged and tolerated, since it only leaves the
// sender's own unread dot stale. Subscribed feeds observe the append through
// the broker.
func (s *Service) Send(ctx context.Context, threadID, senderID, text string) (*models.Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}

	now := s.now().UTC()
	msg, err := s.messages.AppendMessage(ctx, threadID, senderID, trimmed, now)
	if err != nil {
		return nil, backendErr("append message", err)
	}

	if err := s.checkpoints.UpsertCheckpoint(ctx, senderID, threadID, now); err != nil {
		s.log.Warn().Err(err).Str("thread_id", threadID).Str("user_id", senderID).
			Msg("checkpoint update failed after send")
	}

	if err := s.broker.Publish(ctx, threadID); err != nil {
		s.log.Warn().Err(err).Str("thread_id", threadID).Msg("snapshot publish failed")
	}
	return msg, nil
}

// Window is the one-shot form of the live feed: the newest limit messages of
// the thread, newest first.
func (s *Service) Window(ctx context.Context, threadID string, limit int) ([]models.Message, error) {
	msgs, err := s.messages.RecentMessages(ctx, threadID, limit)
	if err != nil {
		return nil, backendErr("read messages", err)
	}
	return msgs, nil
}

// Thread returns the thread row, for participant checks at the API boundary.
func (s *Service) Thread(ctx context.Context, threadID string) (*models.Thread, error) {
	t, err := s.threads.ThreadByID(ctx, threadID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, backendErr("read thread", err)
	}
	return t, nil
}

// ThreadSummaries builds the user's chat list. A thread is unread iff it has a
// last message and either the user never opened it or the last message is
// strictly newer than the checkpoint. All timestamps compared here come from
// this service's own clock at write time, so the comparison never crosses time
// sources.
//
// The reads are not ordered against any live subscription; a summary may
// transiently lag a message that a feed has already delivered.
func (s *Service) ThreadSummaries(ctx context.Context, userID string) ([]models.ThreadSummary, error) {
	threads, err := s.threads.ThreadsFor(ctx, userID)
	if err != nil {
		return nil, backendErr("list threads", err)
	}

	summaries := make([]models.ThreadSummary, 0, len(threads))
	for _, t := range threads {
		peer := t.Participants[0]
		if peer == userID {
			peer = t.Participants[1]
		}

		sum := models.ThreadSummary{ThreadID: t.ID, PeerID: peer}

		last, hasLast, err := s.messages.LatestMessageAt(ctx, t.ID)
		if err != nil {
			return nil, backendErr("read latest message time", err)
		}
		if hasLast {
			sum.LastMessageAt = &last
		}

		opened, hasOpened, err := s.checkpoints.Checkpoint(ctx, userID, t.ID)
		if err != nil {
			return nil, backendErr("read checkpoint", err)
		}
		if hasOpened {
			sum.LastOpenedAt = &opened
		}

		sum.Unread = hasLast && (!hasOpened || last.After(opened))
		summaries = append(summaries, sum)
	}
	return summaries, nil
}
