package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/services"
)

// GroupHandler handles the admin group-management endpoints.
type GroupHandler struct {
	service services.GroupServiceProvider
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(service services.GroupServiceProvider) *GroupHandler {
	return &GroupHandler{service: service}
}

type groupPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List returns every group.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.GetAllGroups(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// Create adds a new group.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload groupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, apperr.Validation("Invalid request body"))
		return
	}

	group, err := h.service.CreateGroup(r.Context(), payload.Name, payload.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, group)
}

// Get returns a single group.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, err := h.service.GetGroupByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

// Update edits a group.
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload groupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, apperr.Validation("Invalid request body"))
		return
	}

	group, err := h.service.UpdateGroup(r.Context(), chi.URLParam(r, "id"), payload.Name, payload.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

// Delete removes a group without members.
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteGroup(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
