package tasks

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers the task endpoints. All of them require a token.
func RegisterRoutes(r *mux.Router, h *Handler, authMw mux.MiddlewareFunc) {
	s := r.PathPrefix("/api/v1/tasks").Subrouter()
	s.Use(authMw)
	s.HandleFunc("", h.Create).Methods(http.MethodPost)
	s.HandleFunc("", h.List).Methods(http.MethodGet)
	s.HandleFunc("/{id}", h.UpdateStatus).Methods(http.MethodPatch)
	s.HandleFunc("/{id}", h.Delete).Methods(http.MethodDelete)
}
