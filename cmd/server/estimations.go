package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/printcost/internal/estimation"
	"github.com/Simplici0/printcost/internal/logger"
	"github.com/Simplici0/printcost/internal/report"
)

// estimationRequest is the form body of create and update calls.
type estimationRequest struct {
	ProjectName  string `json:"project_name"`
	ClientName   string `json:"client_name"`
	DeliveryDate string `json:"delivery_date"`
	PaperType    string `json:"paper_type"`
	Finish       string `json:"finish"`
	UrgencyLevel string `json:"urgency_level"`
	Notes        string `json:"notes"`
	estimation.RawInput
}

type estimationView struct {
	Name         string                     `json:"name"`
	Status       estimation.Status          `json:"status"`
	ProjectName  string                     `json:"project_name"`
	ClientName   string                     `json:"client_name"`
	DeliveryDate string                     `json:"delivery_date"`
	PaperType    string                     `json:"paper_type"`
	Finish       string                     `json:"finish"`
	UrgencyLevel string                     `json:"urgency_level"`
	Notes        string                     `json:"notes"`
	Input        estimation.RawInput        `json:"input"`
	Result       estimation.Result          `json:"result"`
	Quotation    string                     `json:"quotation_reference,omitempty"`
	SalesOrder   string                     `json:"sales_order_reference,omitempty"`
	WorkOrder    string                     `json:"work_order_reference,omitempty"`
	BOM          string                     `json:"bom_reference,omitempty"`
	StockEntries []estimation.StockEntryRef `json:"stock_entries,omitempty"`
	CreatedAt    string                     `json:"creation"`
	UpdatedAt    string                     `json:"modified"`
}

func viewOf(e *estimation.Estimation) estimationView {
	return estimationView{
		Name:         e.Name,
		Status:       e.Status.Normalize(),
		ProjectName:  e.ProjectName,
		ClientName:   e.ClientName,
		DeliveryDate: e.DeliveryDate,
		PaperType:    e.PaperType,
		Finish:       e.Finish,
		UrgencyLevel: e.UrgencyLevel,
		Notes:        e.Notes,
		Input:        e.Input.Raw(),
		Result:       e.Result,
		Quotation:    e.QuotationRef,
		SalesOrder:   e.SalesOrderRef,
		WorkOrder:    e.WorkOrderRef,
		BOM:          e.BOMRef,
		StockEntries: e.StockEntries,
		CreatedAt:    e.CreatedAt.Format(time.DateTime),
		UpdatedAt:    e.UpdatedAt.Format(time.DateTime),
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseRequest decodes the body, applies configured defaults to empty
// percentages and coerces the form into an Input.
func (s *server) parseRequest(w http.ResponseWriter, r *http.Request) (estimationRequest, estimation.Input, bool) {
	var req estimationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return req, estimation.Input{}, false
	}

	if strings.TrimSpace(string(req.WastePercentage)) == "" {
		req.WastePercentage = estimation.Value(s.cfg.DefaultWastePercent.String())
	}
	if strings.TrimSpace(string(req.ProfitMargin)) == "" {
		req.ProfitMargin = estimation.Value(s.cfg.DefaultProfitMargin.String())
	}
	for i := range req.Items {
		if strings.TrimSpace(string(req.Items[i].WastePercentage)) == "" {
			req.Items[i].WastePercentage = estimation.Value(s.cfg.DefaultWastePercent.String())
		}
	}

	in, errs := estimation.Parse(req.RawInput)
	if len(errs) > 0 {
		writeError(w, r, errs)
		return req, estimation.Input{}, false
	}
	return req, in, true
}

func applyHeader(e *estimation.Estimation, req estimationRequest) {
	e.ProjectName = strings.TrimSpace(req.ProjectName)
	e.ClientName = strings.TrimSpace(req.ClientName)
	e.DeliveryDate = strings.TrimSpace(req.DeliveryDate)
	e.PaperType = strings.TrimSpace(req.PaperType)
	e.Finish = strings.TrimSpace(req.Finish)
	e.UrgencyLevel = strings.TrimSpace(req.UrgencyLevel)
	e.Notes = strings.TrimSpace(req.Notes)
}

func (s *server) handlePreview(w http.ResponseWriter, r *http.Request) {
	_, in, ok := s.parseRequest(w, r)
	if !ok {
		return
	}
	res, err := estimation.Compute(in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleCreateEstimation(w http.ResponseWriter, r *http.Request) {
	req, in, ok := s.parseRequest(w, r)
	if !ok {
		return
	}

	e := &estimation.Estimation{Status: estimation.StatusDraft}
	applyHeader(e, req)
	if err := e.SetInput(in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.estimations.Create(r.Context(), e); err != nil {
		writeError(w, r, err)
		return
	}

	logger.WithContext(logger.WithEstimation(r.Context(), e.Name)).Info("estimation created",
		"client", e.ClientName, "sales_price", e.Result.SalesPrice.StringFixed(2))
	writeJSON(w, http.StatusCreated, viewOf(e))
}

func (s *server) handleGetEstimation(w http.ResponseWriter, r *http.Request) {
	e, err := s.estimations.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(e))
}

func (s *server) handleUpdateEstimation(w http.ResponseWriter, r *http.Request) {
	e, err := s.estimations.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, in, ok := s.parseRequest(w, r)
	if !ok {
		return
	}

	if err := e.SetInput(in); err != nil {
		writeError(w, r, err)
		return
	}
	applyHeader(e, req)
	if err := s.estimations.Save(r.Context(), e); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(e))
}

type estimationStep func(ctx context.Context, name string) (*estimation.Estimation, error)

func (s *server) handleEstimationStep(step estimationStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := step(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(e))
	}
}

func (s *server) handleSampleBOM(w http.ResponseWriter, r *http.Request) {
	id, created, err := s.pipeline.CreateSampleBOM(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"bom": id, "created": created})
}

type documentStep func(ctx context.Context, name string) (string, error)

type documentCreated struct {
	Kind       string         `json:"kind"`
	ID         string         `json:"name"`
	Estimation estimationView `json:"estimation"`
}

func (s *server) handleCreateDocument(kind string, step documentStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		id, err := step(r.Context(), name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		e, err := s.estimations.Get(r.Context(), name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, documentCreated{Kind: kind, ID: id, Estimation: viewOf(e)})
	}
}

func (s *server) handleStockEntries(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	refs, err := s.pipeline.CreateStockEntries(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.estimations.Get(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"stock_entries": refs, "estimation": viewOf(e)})
}

func (s *server) handleFlow(w http.ResponseWriter, r *http.Request) {
	flow, err := s.pipeline.FlowSummary(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, flow)
}

func (s *server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	e, err := s.estimations.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.CostBreakdown(e))
}

func (s *server) handleEstimationPDF(w http.ResponseWriter, r *http.Request) {
	e, err := s.estimations.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := report.EstimationPDF(e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+e.Name+`.pdf"`)
	_, _ = w.Write(data)
}
