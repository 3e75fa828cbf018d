package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dvloznov/carteira/internal/api/middleware"
	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/pipeline"
	"github.com/rs/zerolog"
)

// StatementField is the multipart field carrying the uploaded statement.
const StatementField = "statement"

// StatementImporter runs the full import pipeline.
type StatementImporter interface {
	Import(ctx context.Context, req pipeline.ImportRequest) (*pipeline.ImportResult, error)
}

// StatementsHandler handles statement upload and extraction.
type StatementsHandler struct {
	importer  StatementImporter
	extractor pipeline.TransactionExtractor
	maxUpload int64
	log       zerolog.Logger
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(importer StatementImporter, extractor pipeline.TransactionExtractor, maxUpload int64, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		importer:  importer,
		extractor: extractor,
		maxUpload: maxUpload,
		log:       log,
	}
}

// ProcessStatement handles POST /api/process-statement
func (h *StatementsHandler) ProcessStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile(StatementField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Statement file is too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "No statement file found")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to read statement")
		return
	}

	result, err := h.importer.Import(r.Context(), pipeline.ImportRequest{
		UserID:   userID,
		Filename: header.Filename,
		Content:  content,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to process statement")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, result.Created)
}

// ExtractStatement handles POST /api/statements/extract. It returns the
// model's records without persisting them.
func (h *StatementsHandler) ExtractStatement(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "The function must be called with extracted text from a statement.")
		return
	}

	records, err := h.extractor.Extract(r.Context(), req.Text)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to extract transactions")
		return
	}
	if records == nil {
		records = []domain.RawTransaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": records})
}
