package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/carteira/internal/domain"
)

func TestCreateCategory(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantName   string
	}{
		{"valid", map[string]string{"name": "Mercado"}, http.StatusCreated, "Mercado"},
		{"collapses whitespace", map[string]string{"name": "  Casa   e  Lazer "}, http.StatusCreated, "Casa e Lazer"},
		{"empty", map[string]string{"name": "   "}, http.StatusBadRequest, ""},
		{"too long", map[string]string{"name": strings.Repeat("a", domain.MaxCategoryNameLength+1)}, http.StatusBadRequest, ""},
		{"no body", nil, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCategoriesHandler(&categoryRepo{}, nopLog)
			rec := httptest.NewRecorder()
			h.CreateCategory(rec, newRequest(t, http.MethodPost, "/api/categories", tt.body))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantName == "" {
				return
			}
			var c domain.Category
			if err := json.Unmarshal(rec.Body.Bytes(), &c); err != nil {
				t.Fatal(err)
			}
			if c.Name != tt.wantName || c.ID == 0 {
				t.Errorf("category = %+v, want name %q", c, tt.wantName)
			}
		})
	}
}

func TestCreateCategoryDuplicate(t *testing.T) {
	repo := &categoryRepo{}
	h := NewCategoriesHandler(repo, nopLog)
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		rec := httptest.NewRecorder()
		h.CreateCategory(rec, newRequest(t, http.MethodPost, "/api/categories", map[string]string{"name": "Mercado"}))
		if rec.Code != want {
			t.Fatalf("attempt %d: status = %d, want %d", i+1, rec.Code, want)
		}
	}
}

func TestRenameAndDeleteCategory(t *testing.T) {
	repo := &categoryRepo{}
	repo.CreateCategory(context.Background(), &domain.Category{UserID: testUser, Name: "Old"})
	repo.CreateCategory(context.Background(), &domain.Category{UserID: 99, Name: "Theirs"})
	h := NewCategoriesHandler(repo, nopLog)

	rec := httptest.NewRecorder()
	h.RenameCategory(rec, withID(newRequest(t, http.MethodPut, "/api/categories/1", map[string]string{"name": "New"}), 1))
	if rec.Code != http.StatusOK || repo.rows[0].Name != "New" {
		t.Fatalf("rename: status = %d, name = %q", rec.Code, repo.rows[0].Name)
	}

	rec = httptest.NewRecorder()
	h.RenameCategory(rec, withID(newRequest(t, http.MethodPut, "/api/categories/2", map[string]string{"name": "Mine"}), 2))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("rename other user's: status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.DeleteCategory(rec, withID(newRequest(t, http.MethodDelete, "/api/categories/1", nil), 1))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ListCategories(rec, newRequest(t, http.MethodGet, "/api/categories", nil))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("list = %s, want []", rec.Body.String())
	}
}
