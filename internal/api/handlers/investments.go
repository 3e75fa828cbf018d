package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/dvloznov/carteira/internal/api/middleware"
	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/store"
	"github.com/rs/zerolog"
)

// InvestmentsHandler handles holding CRUD endpoints.
type InvestmentsHandler struct {
	repo store.InvestmentRepository
	log  zerolog.Logger
}

// NewInvestmentsHandler creates a new investments handler.
func NewInvestmentsHandler(repo store.InvestmentRepository, log zerolog.Logger) *InvestmentsHandler {
	return &InvestmentsHandler{
		repo: repo,
		log:  log,
	}
}

// investmentView adds the formatted position value to a holding.
type investmentView struct {
	*domain.Investment
	PositionValue string `json:"position_value"`
}

func viewOf(inv *domain.Investment) investmentView {
	return investmentView{Investment: inv, PositionValue: inv.PositionValue()}
}

// ListInvestments handles GET /api/investments
func (h *InvestmentsHandler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	investments, err := h.repo.ListInvestments(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list investments")
		return
	}
	views := make([]investmentView, 0, len(investments))
	for _, inv := range investments {
		views = append(views, viewOf(inv))
	}
	middleware.WriteJSON(w, http.StatusOK, views)
}

// GetInvestment handles GET /api/investments/{id}
func (h *InvestmentsHandler) GetInvestment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid investment id")
		return
	}

	inv, err := h.repo.GetInvestment(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load investment")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, viewOf(inv))
}

// CreateInvestment handles POST /api/investments
func (h *InvestmentsHandler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	inv := &domain.Investment{}
	if msg := decodeInvestment(r, inv); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	inv.UserID = userID

	if err := h.repo.CreateInvestment(r.Context(), inv); err != nil {
		writeServiceError(w, h.log, err, "Failed to create investment")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, viewOf(inv))
}

// UpdateInvestment handles PUT and PATCH /api/investments/{id}
func (h *InvestmentsHandler) UpdateInvestment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid investment id")
		return
	}

	ctx := r.Context()
	inv, err := h.repo.GetInvestment(ctx, userID, id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load investment")
		return
	}
	if r.Method == http.MethodPut {
		inv = &domain.Investment{}
	}
	if msg := decodeInvestment(r, inv); msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	inv.ID = id
	inv.UserID = userID

	if err := h.repo.UpdateInvestment(ctx, inv); err != nil {
		writeServiceError(w, h.log, err, "Failed to update investment")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, viewOf(inv))
}

// DeleteInvestment handles DELETE /api/investments/{id}
func (h *InvestmentsHandler) DeleteInvestment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid investment id")
		return
	}

	if err := h.repo.DeleteInvestment(r.Context(), userID, id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete investment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeInvestment overlays the body onto inv, then normalizes and validates it.
func decodeInvestment(r *http.Request, inv *domain.Investment) string {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "Invalid request body"
	}
	if err := json.Unmarshal(body, inv); err != nil {
		return "Invalid request body"
	}
	inv.Normalize()
	if err := inv.Validate(); err != nil {
		return err.Error()
	}
	return ""
}
