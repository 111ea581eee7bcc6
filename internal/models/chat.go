package models

import "time"

// Thread is the single conversation between exactly two participants. Its ID is
// derived deterministically from the sorted participant pair, so resolving the
// same pair from either side always lands on the same row.
type Thread struct {
	ID           string    `json:"id"`
	Participants [2]string `json:"participants"` // canonically sorted, always 2
	CreatedAt    time.Time `json:"created_at"`
}

// Message is immutable once written. CreatedAt is stamped by the writer at
// submission time; Seq is the store's insertion order and breaks timestamp ties.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Seq       int64     `json:"-"`
}

// ReadCheckpoint records when a user last opened a thread. It only drives the
// unread indicator and is never authoritative for message visibility.
type ReadCheckpoint struct {
	UserID   string    `json:"user_id"`
	ThreadID string    `json:"thread_id"`
	OpenedAt time.Time `json:"opened_at"`
}

// ThreadSummary is one row of a user's chat list.
type ThreadSummary struct {
	ThreadID      string     `json:"thread_id"`
	PeerID        string     `json:"peer_id"`
	PeerUsername  string     `json:"peer_username,omitempty"` // filled by the API layer
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	LastOpenedAt  *time.Time `json:"last_opened_at,omitempty"`
	Unread        bool       `json:"unread"`
	ActiveViewers int        `json:"active_viewers"` // live feed sessions, via the WebSocket hub
}
