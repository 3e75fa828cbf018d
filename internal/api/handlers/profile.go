package handlers

import (
	"net/http"
	"strings"

	"github.com/dvloznov/carteira/internal/api/middleware"
	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/store"
	"github.com/rs/zerolog"
)

// ProfileHandler handles the dashboard preferences endpoints.
type ProfileHandler struct {
	repo store.ProfileRepository
	log  zerolog.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(repo store.ProfileRepository, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		repo: repo,
		log:  log,
	}
}

// GetProfile handles GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	profile, err := h.repo.GetOrCreateProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load profile")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PATCH /api/profile. Absent fields are left unchanged.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Theme              *string      `json:"theme"`
		StartDate          *domain.Date `json:"start_date"`
		EndDate            *domain.Date `json:"end_date"`
		FilteredCategories *[]string    `json:"filtered_categories"`
	}
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	profile, err := h.repo.GetOrCreateProfile(ctx, userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load profile")
		return
	}

	if req.Theme != nil {
		theme := strings.TrimSpace(*req.Theme)
		if theme == "" {
			middleware.WriteError(w, http.StatusBadRequest, "theme must not be empty")
			return
		}
		profile.Theme = theme
	}
	if req.StartDate != nil {
		profile.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		profile.EndDate = *req.EndDate
	}
	if req.FilteredCategories != nil {
		profile.FilteredCategories = *req.FilteredCategories
		if profile.FilteredCategories == nil {
			profile.FilteredCategories = []string{}
		}
	}
	if !profile.StartDate.IsZero() && !profile.EndDate.IsZero() && profile.EndDate.Before(profile.StartDate.Time) {
		middleware.WriteError(w, http.StatusBadRequest, "end_date must not be before start_date")
		return
	}

	if err := h.repo.SaveProfile(ctx, profile); err != nil {
		writeServiceError(w, h.log, err, "Failed to save profile")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, profile)
}
