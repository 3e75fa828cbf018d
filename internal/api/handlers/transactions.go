package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/carteira/internal/api/middleware"
	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/store"
	"github.com/rs/zerolog"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	repo store.TransactionRepository
	log  zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo store.TransactionRepository, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		repo: repo,
		log:  log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var filter store.TransactionFilter
	query := r.URL.Query()
	if s := query.Get("start_date"); s != "" {
		d, err := domain.ParseDate(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
		filter.StartDate = d
	}
	if s := query.Get("end_date"); s != "" {
		d, err := domain.ParseDate(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
		filter.EndDate = d
	}

	transactions, err := h.repo.ListTransactions(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to query transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	tx, err := h.repo.GetTransaction(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	tx := &domain.Transaction{}
	if msg := decodeTransaction(r, tx, true); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	tx.UserID = userID

	if err := h.repo.CreateTransaction(r.Context(), tx); err != nil {
		writeServiceError(w, h.log, err, "Failed to create transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// UpdateTransaction handles PUT and PATCH /api/transactions/{id}. PUT
// requires every identity field; PATCH changes only the fields present.
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	ctx := r.Context()
	tx, err := h.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load transaction")
		return
	}
	full := r.Method == http.MethodPut
	if full {
		tx = &domain.Transaction{}
	}
	if msg := decodeTransaction(r, tx, full); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	tx.ID = id
	tx.UserID = userID

	if err := h.repo.UpdateTransaction(ctx, tx); err != nil {
		writeServiceError(w, h.log, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	if err := h.repo.DeleteTransaction(r.Context(), userID, id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var requiredTransactionFields = []string{"date", "amount", "type"}

// decodeTransaction overlays the request body onto tx and validates the
// result. It returns a client message, or "" when tx is valid.
func decodeTransaction(r *http.Request, tx *domain.Transaction, requireAll bool) string {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "Invalid request body"
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "Invalid request body"
	}
	if requireAll {
		var missing []string
		for _, f := range requiredTransactionFields {
			if raw, ok := fields[f]; !ok || string(raw) == "null" {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return "Missing required fields: " + strings.Join(missing, ", ")
		}
	}

	if err := json.Unmarshal(body, tx); err != nil {
		return fmt.Sprintf("Invalid transaction: %v", err)
	}
	tx.CategoryName = ""

	if tx.Date.IsZero() {
		return "date is required"
	}
	t, err := domain.ParseTransactionType(string(tx.Type))
	if err != nil {
		return "type must be credit or debit"
	}
	tx.Type = t
	tx.Description = strings.TrimSpace(tx.Description)
	if utf8.RuneCountInString(tx.Description) > domain.MaxDescriptionLength {
		return fmt.Sprintf("description must be at most %d characters", domain.MaxDescriptionLength)
	}
	tx.Amount = tx.Amount.Round(2)
	return ""
}
