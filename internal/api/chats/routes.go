package chats

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers the chat endpoints. Every route, the WebSocket feed
// included, requires a token.
func RegisterRoutes(r *mux.Router, h *Handler, authMw mux.MiddlewareFunc) {
	s := r.PathPrefix("/api/v1/chats").Subrouter()
	s.Use(authMw)
	s.HandleFunc("/resolve", h.Resolve).Methods(http.MethodPost)
	s.HandleFunc("", h.List).Methods(http.MethodGet)
	s.HandleFunc("/{id}/messages", h.Messages).Methods(http.MethodGet)
	s.HandleFunc("/{id}/messages", h.SendMessage).Methods(http.MethodPost)

	w := r.PathPrefix("/ws/chats").Subrouter()
	w.Use(authMw)
	w.HandleFunc("", h.ServeWS).Methods(http.MethodGet)
}
