package chats

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/taskyapp/tasky-backend/internal/chat"
	"github.com/taskyapp/tasky-backend/internal/middleware"
	"github.com/taskyapp/tasky-backend/internal/models"
	"github.com/taskyapp/tasky-backend/internal/storage"
	"github.com/taskyapp/tasky-backend/internal/ws"
)

// Handler serves the chat endpoints: thread resolution, the chat list with
// unread flags, message windows, sends and live feed sessions.
type Handler struct {
	Resolver      *chat.ThreadResolver
	Service       *chat.Service
	Users         storage.UserStore
	Hub           *ws.Hub
	Log           zerolog.Logger
	PageSize      int
	AllowedOrigin string
}

// Resolve finds or creates the thread between the current user and a peer and
// stamps the current user's checkpoint.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		PeerID string `json:"peer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	threadID, err := h.Resolver.Resolve(r.Context(), userID, req.PeerID)
	if err != nil {
		h.fail(w, err, "resolve thread failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"thread_id": threadID}) //nolint:errcheck
}

// List returns the current user's chat list with unread flags, peer usernames
// and live viewer counts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	summaries, err := h.Service.ThreadSummaries(r.Context(), userID)
	if err != nil {
		h.fail(w, err, "list threads failed")
		return
	}

	for i := range summaries {
		if peer, err := h.Users.UserByID(r.Context(), summaries[i].PeerID); err == nil {
			summaries[i].PeerUsername = peer.Username
		}
		summaries[i].ActiveViewers = h.Hub.ActiveViewers(summaries[i].ThreadID)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries) //nolint:errcheck
}

// Messages returns the newest window of a thread, newest first.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	threadID := mux.Vars(r)["id"]
	if !h.requireParticipant(w, r, threadID, userID) {
		return
	}

	limit := h.PageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	msgs, err := h.Service.Window(r.Context(), threadID, limit)
	if err != nil {
		h.fail(w, err, "read messages failed")
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msgs) //nolint:errcheck
}

// SendMessage appends a message to the thread.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	threadID := mux.Vars(r)["id"]
	if !h.requireParticipant(w, r, threadID, userID) {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.Service.Send(r.Context(), threadID, userID, req.Text)
	if err != nil {
		h.fail(w, err, "send failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg) //nolint:errcheck
}

// ServeWS upgrades to a live feed session on a thread. The server pushes full
// window snapshots; the client may ask for more history or send messages.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	threadID := r.URL.Query().Get("thread_id")
	if threadID == "" {
		http.Error(w, "thread_id is required", http.StatusBadRequest)
		return
	}
	if !h.requireParticipant(w, r, threadID, userID) {
		return
	}

	pageSize := h.PageSize
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == h.AllowedOrigin
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	feed := chat.NewFeedController(h.Service)
	if err := feed.Open(r.Context(), threadID, pageSize); err != nil {
		h.Log.Error().Err(err).Str("thread_id", threadID).Msg("open feed failed")
		conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "feed unavailable"))
		conn.Close()
		return
	}

	client := ws.NewClient(h.Hub, conn, feed, userID, threadID, h.Log)
	h.Log.Info().Str("thread_id", threadID).Str("user_id", userID).Msg("feed session opened")
	client.Serve()
	h.Log.Info().Str("thread_id", threadID).Str("user_id", userID).Msg("feed session closed")
}

// requireParticipant loads the thread and rejects callers who are not one of
// its two participants. It writes the error response itself.
func (h *Handler) requireParticipant(w http.ResponseWriter, r *http.Request, threadID, userID string) bool {
	t, err := h.Service.Thread(r.Context(), threadID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Thread not found", http.StatusNotFound)
			return false
		}
		h.fail(w, err, "load thread failed")
		return false
	}
	if t.Participants[0] != userID && t.Participants[1] != userID {
		http.Error(w, "Not a participant of this thread", http.StatusForbidden)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, chat.ErrInvalidParticipant):
		http.Error(w, "Invalid participant", http.StatusBadRequest)
	case errors.Is(err, chat.ErrEmptyMessage):
		http.Error(w, "Message is empty", http.StatusBadRequest)
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, chat.ErrBackendUnavailable):
		h.Log.Error().Err(err).Msg(msg)
		http.Error(w, "Backend unavailable, please retry", http.StatusServiceUnavailable)
	default:
		h.Log.Error().Err(err).Msg(msg)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
