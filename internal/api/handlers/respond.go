package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/rs/zerolog/log"
)

// respondJSON writes v as the response body.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response body")
	}
}

// respondError maps an error to its HTTP status and writes the structured
// {success:false, error:{code,message}} body. Unexpected errors are logged
// and collapse to a generic 500 with no internal detail.
func respondError(w http.ResponseWriter, err error) {
	e := apperr.From(err)
	if e.Code == apperr.CodeInternal {
		log.Error().Err(err).Msg("Request failed with internal error")
	}
	respondJSON(w, statusFor(e.Code), map[string]interface{}{
		"success": false,
		"error":   e,
	})
}

func statusFor(code string) int {
	switch code {
	case apperr.CodeValidation, apperr.CodeInvalidToken, apperr.CodeTokenExpired,
		apperr.CodeTokenAlreadyUsed, apperr.CodeWeakPassword:
		return http.StatusBadRequest
	case apperr.CodeUnauthorized, apperr.CodeInvalidCreds:
		return http.StatusUnauthorized
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeNotFound, apperr.CodeUserNotFound, apperr.CodeTokenNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
