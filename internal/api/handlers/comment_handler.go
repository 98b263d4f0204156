package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/auth"
	"github.com/groupdesk/groupdesk-be/internal/models"
	"github.com/groupdesk/groupdesk-be/internal/services"
)

// CommentHandler handles HTTP requests for comments and answers.
type CommentHandler struct {
	service services.CommentServiceProvider
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(service services.CommentServiceProvider) *CommentHandler {
	return &CommentHandler{service: service}
}

// ListForQuestion returns a question's comments.
func (h *CommentHandler) ListForQuestion(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	comments, err := h.service.ListComments(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	respondJSON(w, http.StatusOK, comments)
}

// Create adds a comment to a question.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, apperr.Validation("Invalid request body"))
		return
	}

	comment, err := h.service.AddComment(r.Context(), user, chi.URLParam(r, "id"), payload.Content)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

// Accept promotes a comment to the accepted answer.
func (h *CommentHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	comment, err := h.service.AcceptAnswer(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, comment)
}

// Delete removes a comment.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if err := h.service.DeleteComment(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
