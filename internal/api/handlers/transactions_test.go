package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dvloznov/carteira/internal/domain"
	"github.com/shopspring/decimal"
)

func mustDate(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCreateTransaction(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantError  string
	}{
		{
			name:       "valid",
			body:       map[string]interface{}{"date": "2024-03-01", "amount": "10.555", "type": " Debit ", "description": "  Padaria  "},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing fields",
			body:       map[string]interface{}{"description": "x"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing required fields: date, amount, type",
		},
		{
			name:       "bad type",
			body:       map[string]interface{}{"date": "2024-03-01", "amount": 1, "type": "transfer"},
			wantStatus: http.StatusBadRequest,
			wantError:  "type must be credit or debit",
		},
		{
			name:       "bad date",
			body:       map[string]interface{}{"date": "01/03/2024", "amount": 1, "type": "credit"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not json",
			body:       "{",
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTransactionsHandler(newTxRepo(), nopLog)
			rec := httptest.NewRecorder()
			h.CreateTransaction(rec, newRequest(t, http.MethodPost, "/api/transactions", tt.body))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantError != "" {
				if got := errorBody(t, rec); got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
			}
		})
	}
}

func TestCreateTransactionNormalizes(t *testing.T) {
	repo := newTxRepo()
	h := NewTransactionsHandler(repo, nopLog)
	rec := httptest.NewRecorder()
	h.CreateTransaction(rec, newRequest(t, http.MethodPost, "/api/transactions",
		map[string]interface{}{"date": "2024-03-01", "amount": "10.555", "type": " Debit ", "description": "  Padaria  "}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}

	stored, err := repo.GetTransaction(context.Background(), testUser, 1)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Type != domain.TransactionDebit {
		t.Errorf("type = %q", stored.Type)
	}
	if stored.Description != "Padaria" {
		t.Errorf("description = %q", stored.Description)
	}
	if stored.AmountKey() != "10.56" {
		t.Errorf("amount = %s, want 10.56", stored.AmountKey())
	}
}

func TestCreateTransactionDuplicate(t *testing.T) {
	repo := newTxRepo(&domain.Transaction{
		UserID: testUser,
		Date:   mustDate(t, "2024-03-01"),
		Amount: decimal.RequireFromString("10.00"),
		Type:   domain.TransactionDebit,
	})
	h := NewTransactionsHandler(repo, nopLog)
	rec := httptest.NewRecorder()
	h.CreateTransaction(rec, newRequest(t, http.MethodPost, "/api/transactions",
		map[string]interface{}{"date": "2024-03-01", "amount": 10, "type": "debit", "description": "other"}))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	repo := newTxRepo(
		&domain.Transaction{UserID: testUser, Date: mustDate(t, "2024-01-10"), Amount: decimal.NewFromInt(1), Type: domain.TransactionCredit},
		&domain.Transaction{UserID: testUser, Date: mustDate(t, "2024-02-10"), Amount: decimal.NewFromInt(2), Type: domain.TransactionCredit},
		&domain.Transaction{UserID: 99, Date: mustDate(t, "2024-02-11"), Amount: decimal.NewFromInt(3), Type: domain.TransactionCredit},
	)
	h := NewTransactionsHandler(repo, nopLog)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantLen    int
	}{
		{"all own rows", "/api/transactions", http.StatusOK, 2},
		{"start date", "/api/transactions?start_date=2024-02-01", http.StatusOK, 1},
		{"end date", "/api/transactions?end_date=2024-01-31", http.StatusOK, 1},
		{"empty window", "/api/transactions?start_date=2025-01-01", http.StatusOK, 0},
		{"bad date", "/api/transactions?start_date=yesterday", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ListTransactions(rec, newRequest(t, http.MethodGet, tt.target, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got []json.RawMessage
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v (%s)", err, rec.Body.String())
			}
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestUpdateTransaction(t *testing.T) {
	seed := func() *txRepo {
		return newTxRepo(&domain.Transaction{
			UserID:      testUser,
			Date:        mustDate(t, "2024-03-01"),
			Amount:      decimal.NewFromInt(50),
			Type:        domain.TransactionDebit,
			Description: "Mercado",
		})
	}

	t.Run("patch keeps absent fields", func(t *testing.T) {
		repo := seed()
		h := NewTransactionsHandler(repo, nopLog)
		rec := httptest.NewRecorder()
		h.UpdateTransaction(rec, withID(newRequest(t, http.MethodPatch, "/api/transactions/1", map[string]interface{}{"amount": "75.5"}), 1))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		tx, _ := repo.GetTransaction(context.Background(), testUser, 1)
		if tx.AmountKey() != "75.50" || tx.Description != "Mercado" || tx.Type != domain.TransactionDebit {
			t.Errorf("updated = %+v", tx)
		}
	})

	t.Run("put requires all fields", func(t *testing.T) {
		h := NewTransactionsHandler(seed(), nopLog)
		rec := httptest.NewRecorder()
		h.UpdateTransaction(rec, withID(newRequest(t, http.MethodPut, "/api/transactions/1", map[string]interface{}{"amount": "75.5"}), 1))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("other user's row", func(t *testing.T) {
		repo := seed()
		repo.rows[1].UserID = 99
		h := NewTransactionsHandler(repo, nopLog)
		rec := httptest.NewRecorder()
		h.UpdateTransaction(rec, withID(newRequest(t, http.MethodPatch, "/api/transactions/1", map[string]interface{}{"amount": 1}), 1))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestDeleteTransaction(t *testing.T) {
	repo := newTxRepo(&domain.Transaction{UserID: testUser, Date: mustDate(t, "2024-03-01"), Amount: decimal.NewFromInt(1), Type: domain.TransactionCredit})
	h := NewTransactionsHandler(repo, nopLog)

	rec := httptest.NewRecorder()
	h.DeleteTransaction(rec, withID(newRequest(t, http.MethodDelete, "/api/transactions/1", nil), 1))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.DeleteTransaction(rec, withID(newRequest(t, http.MethodDelete, "/api/transactions/1", nil), 1))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}
