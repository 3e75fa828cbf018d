package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/carteira/internal/api/middleware"
	"github.com/dvloznov/carteira/internal/history"
	"github.com/dvloznov/carteira/internal/jobs"
	"github.com/rs/zerolog"
)

// HistoryReader loads stored price documents.
type HistoryReader interface {
	GetDocument(ctx context.Context, symbol, rangeKey string) (*history.Document, error)
}

// Dispatcher triggers the remote refresh workflow.
type Dispatcher interface {
	DispatchHistoricalFetch(ctx context.Context, symbol, rangeKey string) error
}

// HistoryHandler serves stored price history and schedules fetches.
type HistoryHandler struct {
	docs       HistoryReader
	dispatcher Dispatcher
	publisher  jobs.Publisher
	jobStore   jobs.JobStore
	log        zerolog.Logger
}

// NewHistoryHandler creates a history handler. With a nil dispatcher, fetch
// requests are queued on publisher instead.
func NewHistoryHandler(docs HistoryReader, dispatcher Dispatcher, publisher jobs.Publisher, jobStore jobs.JobStore, log zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		docs:       docs,
		dispatcher: dispatcher,
		publisher:  publisher,
		jobStore:   jobStore,
		log:        log,
	}
}

// GetHistory handles GET /api/historical-data/{symbol}?range=
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	rangeKey := r.URL.Query().Get("range")
	if rangeKey == "" {
		rangeKey = history.DefaultRange
	}
	if symbol == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Missing required parameter: symbol")
		return
	}
	if err := history.ValidateRange(rangeKey); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.docs.GetDocument(r.Context(), symbol, rangeKey)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load historical data")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, doc)
}

// Dispatch handles POST /api/historical-data/dispatch
func (h *HistoryHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
		Range  string `json:"range"`
	}
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Missing required parameter: symbol")
		return
	}
	if req.Range == "" {
		req.Range = history.DefaultRange
	}
	if err := history.ValidateRange(req.Range); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if h.dispatcher != nil {
		if err := h.dispatcher.DispatchHistoricalFetch(ctx, symbol, req.Range); err != nil {
			writeServiceError(w, h.log, err, "Failed to dispatch GitHub Action")
			return
		}
		h.log.Info().Str("symbol", symbol).Str("range", req.Range).Msg("GitHub Action dispatched")
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "GitHub Action dispatched successfully for " + symbol,
			"symbol":  symbol,
			"range":   req.Range,
		})
		return
	}

	job := &jobs.FetchHistoryJob{Symbol: symbol, Range: req.Range}
	if err := h.publisher.PublishFetchHistory(ctx, job); err != nil {
		writeServiceError(w, h.log, err, "Failed to enqueue fetch job")
		return
	}
	h.log.Info().Str("job_id", job.JobID).Str("symbol", symbol).Msg("Fetch job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"message": "Fetch queued for " + symbol,
		"symbol":  symbol,
		"range":   req.Range,
		"job_id":  job.JobID,
		"status":  job.Status,
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *HistoryHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	job, err := h.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Debug().Err(err).Str("job_id", jobID).Msg("Job lookup failed")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs?symbol=&status=&limit=&offset=
func (h *HistoryHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Symbol: strings.ToUpper(strings.TrimSpace(query.Get("symbol"))),
		Status: jobs.JobStatus(query.Get("status")),
		Limit:  50,
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid "+name)
			return
		}
		*dst = n
	}

	list, err := h.jobStore.ListJobs(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list jobs")
		return
	}
	if list == nil {
		list = []*jobs.FetchHistoryJob{}
	}
	middleware.WriteJSON(w, http.StatusOK, list)
}
