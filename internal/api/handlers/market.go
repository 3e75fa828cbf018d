package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/carteira/internal/api/middleware"
	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/market"
	"github.com/dvloznov/carteira/internal/providers/bcb"
	"github.com/rs/zerolog"
)

// MarketService is the cached quote and index lookup.
type MarketService interface {
	Search(ctx context.Context, provider, q string) (interface{}, error)
	Quote(ctx context.Context, req market.QuoteRequest) (interface{}, error)
	Indexes(ctx context.Context) (map[string]bcb.Observation, error)
	Series(ctx context.Context, seriesID int, start, end time.Time, periodicity string) ([]bcb.Observation, error)
}

// MarketHandler handles symbol search, quotes and economic indexes.
type MarketHandler struct {
	svc MarketService
	log zerolog.Logger
}

// NewMarketHandler creates a new market handler.
func NewMarketHandler(svc MarketService, log zerolog.Logger) *MarketHandler {
	return &MarketHandler{
		svc: svc,
		log: log,
	}
}

// Search handles GET /api/investments/search?q=&provider=
func (h *MarketHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := strings.TrimSpace(query.Get("q"))
	if q == "" {
		q = strings.TrimSpace(query.Get("symbol"))
	}
	if q == "" {
		middleware.WriteError(w, http.StatusBadRequest, "The function must be called with one argument 'symbol'.")
		return
	}

	data, err := h.svc.Search(r.Context(), query.Get("provider"), q)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to search symbols")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

// Quote handles GET /api/investments/quote?symbol=&range=&interval=&provider=
func (h *MarketHandler) Quote(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	symbol := strings.TrimSpace(query.Get("symbol"))
	if symbol == "" {
		middleware.WriteError(w, http.StatusBadRequest, "The function must be called with 'symbol'.")
		return
	}

	data, err := h.svc.Quote(r.Context(), market.QuoteRequest{
		Provider: query.Get("provider"),
		Symbol:   symbol,
		Range:    query.Get("range"),
		Interval: query.Get("interval"),
	})
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to fetch quote")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

// Indexes handles GET /api/indexes
func (h *MarketHandler) Indexes(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Indexes(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to fetch indexes")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

// Series handles POST /api/indexes/series
func (h *MarketHandler) Series(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SeriesID    interface{} `json:"seriesId"`
		StartDate   string      `json:"startDate"`
		EndDate     string      `json:"endDate"`
		Periodicity string      `json:"periodicity"`
	}
	const missing = "Missing required parameters: seriesId, startDate, endDate"
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, missing)
		return
	}
	seriesID, ok := parseSeriesID(req.SeriesID)
	if !ok || req.StartDate == "" || req.EndDate == "" {
		middleware.WriteError(w, http.StatusBadRequest, missing)
		return
	}
	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid startDate format")
		return
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid endDate format")
		return
	}

	data, err := h.svc.Series(r.Context(), seriesID, start.Time, end.Time, req.Periodicity)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to fetch series")
		return
	}
	if data == nil {
		data = []bcb.Observation{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

// parseSeriesID accepts a numeric id, a numeric string or a named series ("CDI").
func parseSeriesID(v interface{}) (int, bool) {
	switch id := v.(type) {
	case float64:
		if id > 0 && id == float64(int(id)) {
			return int(id), true
		}
	case string:
		if n, err := strconv.Atoi(id); err == nil && n > 0 {
			return n, true
		}
		if n, ok := bcb.NamedSeries[strings.ToLower(id)]; ok {
			return n, true
		}
	}
	return 0, false
}
