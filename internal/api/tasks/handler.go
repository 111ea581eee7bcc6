package tasks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/taskyapp/tasky-backend/internal/middleware"
	"github.com/taskyapp/tasky-backend/internal/models"
	"github.com/taskyapp/tasky-backend/internal/storage"
)

// Handler serves the per-user to-do list.
type Handler struct {
	Store storage.TaskStore
	Log   zerolog.Logger
}

// Create adds a pending task for the current user.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}

	t := &models.Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     req.Title,
		Status:    models.TaskPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateTask(r.Context(), t); err != nil {
		h.Log.Error().Err(err).Msg("create task failed")
		http.Error(w, "Failed to create task", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(t) //nolint:errcheck
}

// List returns the current user's tasks, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tasks, err := h.Store.TasksFor(r.Context(), userID)
	if err != nil {
		h.Log.Error().Err(err).Msg("list tasks failed")
		http.Error(w, "Failed to load tasks", http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks) //nolint:errcheck
}

// UpdateStatus flips a task between pending and done.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Status != models.TaskPending && req.Status != models.TaskDone {
		http.Error(w, "Status must be pending or done", http.StatusBadRequest)
		return
	}

	t, err := h.Store.SetTaskStatus(r.Context(), userID, mux.Vars(r)["id"], req.Status)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Task not found", http.StatusNotFound)
			return
		}
		h.Log.Error().Err(err).Msg("update task failed")
		http.Error(w, "Failed to update task", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t) //nolint:errcheck
}

// Delete removes a task owned by the current user.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.Store.DeleteTask(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Task not found", http.StatusNotFound)
			return
		}
		h.Log.Error().Err(err).Msg("delete task failed")
		http.Error(w, "Failed to delete task", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
