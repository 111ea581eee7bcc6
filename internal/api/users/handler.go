package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskyapp/tasky-backend/internal/auth"
	"github.com/taskyapp/tasky-backend/internal/middleware"
	"github.com/taskyapp/tasky-backend/internal/models"
	"github.com/taskyapp/tasky-backend/internal/storage"
)

const searchLimit = 20

// Handler serves account and profile endpoints.
type Handler struct {
	Store  storage.UserStore
	Secret []byte
	Log    zerolog.Logger
}

type credentialsResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup registers an account. Username uniqueness is checked before creation;
// a duplicate is a conflict, not a server error.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			http.Error(w, "Username already taken", http.StatusConflict)
			return
		}
		h.Log.Error().Err(err).Msg("create user failed")
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	token, err := auth.Issue(h.Secret, u)
	if err != nil {
		h.Log.Error().Err(err).Msg("issue token failed")
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	h.Log.Info().Str("user_id", u.ID).Str("username", u.Username).Msg("user signed up")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(credentialsResponse{Token: token, User: u}) //nolint:errcheck
}

// Login authenticates by email and password.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.Store.UserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		h.Log.Error().Err(err).Msg("login lookup failed")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.Issue(h.Secret, u)
	if err != nil {
		h.Log.Error().Err(err).Msg("issue token failed")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(credentialsResponse{Token: token, User: u}) //nolint:errcheck
}

// Search finds users whose username starts with the query, for the "message
// someone" flow.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Error(w, "Query parameter q is required", http.StatusBadRequest)
		return
	}

	found, err := h.Store.SearchUsers(r.Context(), q, searchLimit)
	if err != nil {
		h.Log.Error().Err(err).Msg("user search failed")
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}
	if found == nil {
		found = []*models.User{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(found) //nolint:errcheck
}

// Get returns one user's public profile.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	u, err := h.Store.UserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.Log.Error().Err(err).Str("user_id", id).Msg("get user failed")
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u) //nolint:errcheck
}

// UpdateMe updates the authenticated user's profile fields.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var upd models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.Store.UpdateProfile(r.Context(), userID, upd)
	if err != nil {
		h.Log.Error().Err(err).Str("user_id", userID).Msg("profile update failed")
		http.Error(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u) //nolint:errcheck
}
