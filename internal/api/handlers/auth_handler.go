package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/auth"
	"github.com/groupdesk/groupdesk-be/internal/mail"
	"github.com/groupdesk/groupdesk-be/internal/services"
	"github.com/rs/zerolog/log"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthHandler handles login, logout, session introspection, and the
// password-reset flow.
type AuthHandler struct {
	sessions   services.SessionServiceProvider
	resets     services.PasswordResetServiceProvider
	mailer     mail.Mailer
	appBaseURL string
	production bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessions services.SessionServiceProvider, resets services.PasswordResetServiceProvider, mailer mail.Mailer, appBaseURL string, production bool) *AuthHandler {
	return &AuthHandler{
		sessions:   sessions,
		resets:     resets,
		mailer:     mailer,
		appBaseURL: appBaseURL,
		production: production,
	}
}

// Login authenticates credentials and issues a session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, apperr.Validation("Invalid request body"))
		return
	}
	if payload.Username == "" || payload.Password == "" {
		respondError(w, apperr.Validation("Username and password are required"))
		return
	}

	user, session, err := h.sessions.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
		respondError(w, err)
		return
	}

	h.setSessionCookie(w, session.Token, session.ExpiresAt)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"user":         user,
		"sessionToken": session.Token,
	})
}

// Me returns the user behind the presented session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, apperr.Unauthorized("Authentication required"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// Logout revokes the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if err := h.sessions.Logout(r.Context(), token); err != nil {
		respondError(w, err)
		return
	}

	h.setSessionCookie(w, "", time.Unix(0, 0))
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// RequestPasswordReset issues a reset token and emails a link. The response
// is identical whether or not the account exists, so the endpoint cannot be
// used to probe for registered emails.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, apperr.Validation("Invalid request body"))
		return
	}
	if payload.Email == "" || !emailPattern.MatchString(payload.Email) {
		respondError(w, apperr.Validation("A valid email address is required"))
		return
	}

	user, token, err := h.resets.Request(r.Context(), payload.Email)
	switch {
	case err == nil:
		resetLink := h.appBaseURL + "/reset-password?token=" + token.Token
		mail.SendBestEffort(r.Context(), h.mailer, mail.Message{
			To:      user.Email,
			Subject: "Reset your password",
			Text:    "Hi " + user.Username + ",\n\nUse this link to reset your password (valid for 24 hours):\n" + resetLink,
			HTML: "<p>Hi " + user.Username + ",</p><p>Use this link to reset your password (valid for 24 hours):</p>" +
				"<p><a href=\"" + resetLink + "\">" + resetLink + "</a></p>",
		})
	case apperr.CodeOf(err) == apperr.CodeUserNotFound:
		// Deliberately indistinguishable from success.
	default:
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "If an account with that email exists, a password reset link has been sent",
	})
}

// ValidateResetToken reports whether a reset token is redeemable without
// consuming it.
func (h *AuthHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if !auth.ValidResetTokenFormat(token) {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"valid": false,
			"error": apperr.New(apperr.CodeInvalidToken, "Malformed reset token"),
		})
		return
	}

	user, err := h.resets.Validate(r.Context(), token)
	if err != nil {
		e := apperr.From(err)
		if e.Code == apperr.CodeInternal {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"valid": false,
			"error": e,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user":  user.Public(),
	})
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, apperr.Validation("Invalid request body"))
		return
	}
	if payload.Token == "" || payload.NewPassword == "" {
		respondError(w, apperr.Validation("Token and new password are required"))
		return
	}
	if !auth.ValidResetTokenFormat(payload.Token) {
		respondError(w, apperr.New(apperr.CodeInvalidToken, "Malformed reset token"))
		return
	}
	// Checked here so each missing character class gets its own message
	// before the token is touched.
	if err := auth.ValidatePassword(payload.NewPassword); err != nil {
		respondError(w, err)
		return
	}

	user, err := h.resets.Reset(r.Context(), payload.Token, payload.NewPassword)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password has been reset",
		"user":    user.Public(),
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.production,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
}
