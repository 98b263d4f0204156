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

// QuestionHandler handles HTTP requests for the question queue.
type QuestionHandler struct {
	service services.QuestionServiceProvider
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(service services.QuestionServiceProvider) *QuestionHandler {
	return &QuestionHandler{service: service}
}

// List returns the questions visible to the caller. Admins may filter by
// ?group=.
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	questions, err := h.service.ListQuestions(r.Context(), user, r.URL.Query().Get("group"))
	if err != nil {
		respondError(w, err)
		return
	}
	if questions == nil {
		questions = []models.Question{}
	}
	respondJSON(w, http.StatusOK, questions)
}

// Create posts a new question into the caller's group queue.
func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	var payload struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, apperr.Validation("Invalid request body"))
		return
	}

	question, err := h.service.CreateQuestion(r.Context(), user, payload.Title, payload.Content)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, question)
}

// Get returns a single question.
func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	question, err := h.service.GetQuestion(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, question)
}

// Update edits a question's title and content.
func (h *QuestionHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	var payload struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, apperr.Validation("Invalid request body"))
		return
	}

	question, err := h.service.UpdateQuestion(r.Context(), user, chi.URLParam(r, "id"), payload.Title, payload.Content)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, question)
}

// Close marks a question closed.
func (h *QuestionHandler) Close(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	question, err := h.service.CloseQuestion(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, question)
}

// Delete removes a question and everything hanging off it.
func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if err := h.service.DeleteQuestion(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
