package users

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers the auth and user endpoints. Signup and login are
// public; everything else requires a token.
func RegisterRoutes(r *mux.Router, h *Handler, authMw mux.MiddlewareFunc) {
	r.HandleFunc("/api/v1/auth/signup", h.Signup).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/auth/login", h.Login).Methods(http.MethodPost)

	s := r.PathPrefix("/api/v1/users").Subrouter()
	s.Use(authMw)
	s.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	s.HandleFunc("/me", h.UpdateMe).Methods(http.MethodPut)
	s.HandleFunc("/{id}", h.Get).Methods(http.MethodGet)
}
