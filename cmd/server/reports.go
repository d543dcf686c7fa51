package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/printcost/internal/pipeline"
	"github.com/Simplici0/printcost/internal/report"
)

// documentKinds maps URL slugs to document kinds.
var documentKinds = map[string]string{
	"quotation":   pipeline.KindQuotation,
	"sales-order": pipeline.KindSalesOrder,
	"work-order":  pipeline.KindWorkOrder,
	"stock-entry": pipeline.KindStockEntry,
}

func parseFilter(r *http.Request) (report.Filter, string) {
	q := r.URL.Query()
	f := report.Filter{
		Status: strings.TrimSpace(q.Get("status")),
		Client: strings.TrimSpace(q.Get("client_name")),
	}
	for key, dst := range map[string]*time.Time{"from_date": &f.From, "to_date": &f.To} {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return f, key + " must be YYYY-MM-DD"
		}
		*dst = d
	}
	return f, ""
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, msg := parseFilter(r)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}
	rows, err := s.reports.Summary(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *server) handleSummaryXLSX(w http.ResponseWriter, r *http.Request) {
	f, msg := parseFilter(r)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}
	rows, err := s.reports.Summary(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := report.SummaryXLSX(rows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="estimation-summary.xlsx"`)
	_, _ = w.Write(data)
}

func (s *server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	kind, ok := documentKinds[chi.URLParam(r, "kind")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	doc, err := s.documents.Get(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *server) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	kind, ok := documentKinds[chi.URLParam(r, "kind")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &body); err != nil || strings.TrimSpace(body.Status) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "status is required"})
		return
	}

	doc, err := s.documents.SetStatus(r.Context(), kind, chi.URLParam(r, "id"), strings.TrimSpace(body.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
