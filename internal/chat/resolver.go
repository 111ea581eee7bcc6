package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/taskyapp/tasky-backend/internal/storage"
)

// threadNamespace is the UUIDv5 namespace for deterministic thread ids.
var threadNamespace = uuid.MustParse("8f0e2a46-6f6e-4a51-9c5b-1d2f3a4b5c6d")

// ThreadID derives the id of the unique thread between two users. The pair is
// canonicalized by sorting, so ThreadID(a, b) == ThreadID(b, a).
func ThreadID(a, b string) string {
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	return uuid.NewSHA1(threadNamespace, []byte(lo+"\x00"+hi)).String()
}

// ThreadResolver finds or creates the conversation thread between two users and
// records the caller's "last opened" checkpoint. Because the thread id is a pure
// function of the participant pair, creation is naturally idempotent: concurrent
// resolutions of the same pair converge on the same row without locking.
type ThreadResolver struct {
	threads     storage.ThreadStore
	checkpoints storage.CheckpointStore
	log         zerolog.Logger
	now         func() time.Time
}

func NewThreadResolver(threads storage.ThreadStore, checkpoints storage.CheckpointStore, log zerolog.Logger) *ThreadResolver {
	return &ThreadResolver{
		threads:     threads,
		checkpoints: checkpoints,
		log:         log,
		now:         time.Now,
	}
}

// Resolve returns the thread id for the pair (currentUser, peer), creating the
// thread on first contact. Found or created, it stamps currentUser's checkpoint
// to now: the user has "opened" the thread as of this call.
func (r *ThreadResolver) Resolve(ctx context.Context, currentUser, peer string) (string, error) {
	if currentUser == "" || peer == "" || currentUser == peer {
		return "", ErrInvalidParticipant
	}

	lo, hi := currentUser, peer
	if hi < lo {
		lo, hi = hi, lo
	}
	id := ThreadID(lo, hi)
	now := r.now().UTC()

	_, created, err := r.threads.EnsureThread(ctx, id, [2]string{lo, hi}, now)
	if err != nil {
		return "", backendErr("resolve thread", err)
	}
	if created {
		r.log.Info().Str("thread_id", id).Str("user_id", currentUser).Str("peer_id", peer).Msg("created thread")
	}

	if err := r.checkpoints.UpsertCheckpoint(ctx, currentUser, id, now); err != nil {
		return "", backendErr("record thread open", err)
	}
	return id, nil
}
