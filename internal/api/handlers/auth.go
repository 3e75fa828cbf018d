package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dvloznov/carteira/internal/api/middleware"
	"github.com/dvloznov/carteira/internal/auth"
	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/store"
	"github.com/rs/zerolog"
)

// IdentityProvider verifies a social-login credential.
type IdentityProvider interface {
	Authenticate(ctx context.Context, code, accessToken string) (*auth.GoogleUser, error)
}

// TokenIssuer signs application tokens.
type TokenIssuer interface {
	GenerateToken(userID int64) (string, error)
}

// AuthHandler handles login and the current-user endpoint.
type AuthHandler struct {
	identity IdentityProvider
	tokens   TokenIssuer
	users    store.UserRepository
	profiles store.ProfileRepository
	log      zerolog.Logger
	now      func() time.Time
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(identity IdentityProvider, tokens TokenIssuer, users store.UserRepository, profiles store.ProfileRepository, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		tokens:   tokens,
		users:    users,
		profiles: profiles,
		log:      log,
		now:      time.Now,
	}
}

// GoogleLogin handles POST /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"code"`
		AccessToken string `json:"access_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	gu, err := h.identity.Authenticate(ctx, req.Code, req.AccessToken)
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		middleware.WriteError(w, http.StatusBadRequest, "code or access_token is required")
		return
	case errors.Is(err, auth.ErrGoogleRejected):
		h.log.Warn().Err(err).Msg("Google login rejected")
		middleware.WriteError(w, http.StatusUnauthorized, "Google login failed")
		return
	case err != nil:
		writeServiceError(w, h.log, err, "Failed to authenticate with Google")
		return
	}

	user, err := h.users.UpsertGoogleUser(ctx, &domain.User{
		Email:      gu.Email,
		Name:       gu.Name,
		PictureURL: gu.Picture,
		GoogleID:   gu.ID,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to save user")
		return
	}

	if err := h.touchProfile(ctx, user.ID); err != nil {
		writeServiceError(w, h.log, err, "Failed to update profile")
		return
	}

	token, err := h.tokens.GenerateToken(user.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to issue token")
		return
	}

	h.log.Info().Int64("user_id", user.ID).Msg("User logged in")
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// touchProfile records the login and resets the date window on the first login of the day.
func (h *AuthHandler) touchProfile(ctx context.Context, userID int64) error {
	profile, err := h.profiles.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return err
	}
	now := h.now()
	if profile.NeedsWindowReset(now) {
		profile.ResetWindow(now)
	}
	profile.LastLogin = &now
	return h.profiles.SaveProfile(ctx, profile)
}

// CurrentUser handles GET /api/user
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load user")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}
