package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/carteira/internal/api/middleware"
	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/store"
	"github.com/rs/zerolog"
)

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct {
	repo store.CategoryRepository
	log  zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(repo store.CategoryRepository, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{
		repo: repo,
		log:  log,
	}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	categories, err := h.repo.ListCategories(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []*domain.Category{}
	}
	middleware.WriteJSON(w, http.StatusOK, categories)
}

// CreateCategory handles POST /api/categories
func (h *CategoriesHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	name, msg := decodeCategoryName(r)
	if msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	c := &domain.Category{UserID: userID, Name: name}
	if err := h.repo.CreateCategory(r.Context(), c); err != nil {
		writeServiceError(w, h.log, err, "Failed to create category")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, c)
}

// RenameCategory handles PUT and PATCH /api/categories/{id}
func (h *CategoriesHandler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid category id")
		return
	}
	name, msg := decodeCategoryName(r)
	if msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	c := &domain.Category{ID: id, UserID: userID, Name: name}
	if err := h.repo.RenameCategory(r.Context(), c); err != nil {
		writeServiceError(w, h.log, err, "Failed to rename category")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/categories/{id}. Transactions in the
// category keep existing without one.
func (h *CategoriesHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid category id")
		return
	}

	if err := h.repo.DeleteCategory(r.Context(), userID, id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeCategoryName(r *http.Request) (string, string) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return "", "Invalid request body"
	}
	name := strings.Join(strings.Fields(req.Name), " ")
	if name == "" {
		return "", "name is required"
	}
	if utf8.RuneCountInString(name) > domain.MaxCategoryNameLength {
		return "", "name is too long"
	}
	return name, ""
}
