package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Simplici0/printcost/internal/estimation"
	"github.com/Simplici0/printcost/internal/logger"
	"github.com/Simplici0/printcost/internal/pipeline"
	"github.com/Simplici0/printcost/internal/store"
)

type errorResponse struct {
	Error  string                       `json:"error"`
	Fields []estimation.ValidationError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

// writeError maps domain errors to HTTP statuses. Dependency failures only
// expose their generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verrs  estimation.ValidationErrors
		depErr *pipeline.DependencyError
	)
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid estimation", Fields: verrs})
	case errors.Is(err, pipeline.ErrMissingPaperType):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  err.Error(),
			Fields: []estimation.ValidationError{{Field: "paper_type", Message: "is required"}},
		})
	case errors.As(err, &depErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: depErr.UserMessage()})
	case errors.Is(err, estimation.ErrNotFound), errors.Is(err, store.ErrDocumentNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, estimation.ErrInvalidTransition),
		errors.Is(err, estimation.ErrLocked),
		errors.Is(err, estimation.ErrMissingBOMRef),
		errors.Is(err, pipeline.ErrMissingBOM),
		errors.Is(err, pipeline.ErrNoValuationRate):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		logger.WithContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
