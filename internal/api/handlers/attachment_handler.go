package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/auth"
	"github.com/groupdesk/groupdesk-be/internal/models"
	"github.com/groupdesk/groupdesk-be/internal/services"
)

// AttachmentHandler handles file uploads and downloads for questions.
type AttachmentHandler struct {
	service services.AttachmentServiceProvider
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(service services.AttachmentServiceProvider) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

// Upload accepts a multipart form with a single "file" field.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxAttachmentSize+4096)
	if err := r.ParseMultipartForm(services.MaxAttachmentSize); err != nil {
		respondError(w, apperr.Validation("File exceeds the 10 MiB limit or the form is malformed"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, apperr.Validation("A \"file\" form field is required"))
		return
	}
	defer file.Close()

	attachment, err := h.service.Upload(r.Context(), user, chi.URLParam(r, "id"),
		header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, attachment)
}

// ListForQuestion returns a question's attachments.
func (h *AttachmentHandler) ListForQuestion(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	attachments, err := h.service.ListForQuestion(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	respondJSON(w, http.StatusOK, attachments)
}

// Download redirects to a time-limited presigned URL.
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	url, err := h.service.DownloadURL(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// Delete removes an attachment.
func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if err := h.service.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
