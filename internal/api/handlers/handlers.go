package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/carteira/internal/api/middleware"
	"github.com/dvloznov/carteira/internal/market"
	"github.com/dvloznov/carteira/internal/pipeline"
	"github.com/dvloznov/carteira/internal/providers"
	"github.com/dvloznov/carteira/internal/providers/brapi"
	"github.com/dvloznov/carteira/internal/providers/github"
	"github.com/dvloznov/carteira/internal/providers/twelvedata"
	"github.com/dvloznov/carteira/internal/store"
	"github.com/rs/zerolog"
)

// errorResponse maps a service error onto a status and client message.
// Unknown errors become a 500 with fallback.
func errorResponse(err error, fallback string) (int, string) {
	var (
		brapiErr    *brapi.APIError
		tdErr       *twelvedata.APIError
		statusErr   *providers.StatusError
		dispatchErr *github.DispatchError
		maxBytesErr *http.MaxBytesError
	)

	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "A record with the same identity already exists"
	case errors.Is(err, store.ErrUnknownCategory):
		return http.StatusBadRequest, "Unknown category"
	case errors.Is(err, market.ErrUnknownProvider):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, pipeline.ErrEmptyText):
		return http.StatusBadRequest, "No text could be extracted from the statement"
	case errors.Is(err, pipeline.ErrUnsupportedDocument):
		return http.StatusUnsupportedMediaType, "Unsupported statement format; upload a PDF or text file"
	case errors.Is(err, brapi.ErrMissingAPIKey), errors.Is(err, twelvedata.ErrMissingAPIKey):
		return http.StatusInternalServerError, err.Error()
	case errors.As(err, &brapiErr):
		if brapiErr.StatusCode == http.StatusNotFound || brapiErr.StatusCode == http.StatusForbidden {
			return brapiErr.StatusCode, brapiErr.Message
		}
		return http.StatusBadGateway, brapiErr.Message
	case errors.As(err, &tdErr):
		return http.StatusBadGateway, tdErr.Message
	case errors.As(err, &dispatchErr):
		return dispatchErr.StatusCode, dispatchErr.Error()
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, statusErr.Error()
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	}
	return http.StatusInternalServerError, fallback
}

// writeServiceError logs err and writes the mapped response.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error, fallback string) {
	status, msg := errorResponse(err, fallback)
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Int("status", status).Msg(fallback)
	middleware.WriteError(w, status, msg)
}

// decodeJSON reads a JSON object body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(body, v)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// currentUser returns the authenticated user id or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
	}
	return userID, ok
}
