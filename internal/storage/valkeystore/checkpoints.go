package valkeystore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"
)

// CheckpointStore keeps read checkpoints in Valkey. Checkpoints are the hottest
// write in the system (every open and every send touches one) and carry a
// single millisecond timestamp, which suits a key-value store better than a
// relational row.
type CheckpointStore struct {
	client valkey.Client
}

func New(addr string) (*CheckpointStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}
	return &CheckpointStore{client: client}, nil
}

func key(userID, threadID string) string {
	return "chat:ckpt:" + userID + ":" + threadID
}

func (s *CheckpointStore) UpsertCheckpoint(ctx context.Context, userID, threadID string, openedAt time.Time) error {
	cmd := s.client.B().Set().
		Key(key(userID, threadID)).
		Value(strconv.FormatInt(openedAt.UnixMilli(), 10)).
		Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

func (s *CheckpointStore) Checkpoint(ctx context.Context, userID, threadID string) (time.Time, bool, error) {
	cmd := s.client.B().Get().Key(key(userID, threadID)).Build()
	ms, err := s.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("get checkpoint: %w", err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

func (s *CheckpointStore) Close() {
	s.client.Close()
}
