package pipeline

import (
	"context"

	"github.com/Simplici0/printcost/internal/estimation"
	"github.com/Simplici0/printcost/internal/logger"
)

// Flow summarises the documents linked to an estimation.
type Flow struct {
	Estimation   FlowEstimation            `json:"estimation"`
	Quotation    *FlowDocument             `json:"quotation,omitempty"`
	SalesOrder   *FlowDocument             `json:"sales_order,omitempty"`
	WorkOrder    *FlowDocument             `json:"work_order,omitempty"`
	StockEntries []estimation.StockEntryRef `json:"stock_entries,omitempty"`
}

type FlowEstimation struct {
	Name        string            `json:"name"`
	Status      estimation.Status `json:"status"`
	ProjectName string            `json:"project_name"`
	ClientName  string            `json:"client_name"`
	SalesPrice  string            `json:"sales_price"`
}

type FlowDocument struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Total  any    `json:"grand_total,omitempty"`
	Qty    any    `json:"qty,omitempty"`
}

// FlowSummary reports the estimation and whichever linked documents can be
// read. Missing or unreadable documents are left out.
func (o *Orchestrator) FlowSummary(ctx context.Context, name string) (Flow, error) {
	ctx = logger.WithEstimation(ctx, name)
	e, err := o.load(ctx, OpFlowSummary, name)
	if err != nil {
		return Flow{}, err
	}

	flow := Flow{
		Estimation: FlowEstimation{
			Name:        e.Name,
			Status:      e.Status.Normalize(),
			ProjectName: e.ProjectName,
			ClientName:  e.ClientName,
			SalesPrice:  e.Result.SalesPrice.StringFixed(2),
		},
		StockEntries: e.StockEntries,
	}
	flow.Quotation = o.flowDocument(ctx, KindQuotation, e.QuotationRef)
	flow.SalesOrder = o.flowDocument(ctx, KindSalesOrder, e.SalesOrderRef)
	flow.WorkOrder = o.flowDocument(ctx, KindWorkOrder, e.WorkOrderRef)
	return flow, nil
}

func (o *Orchestrator) flowDocument(ctx context.Context, kind, id string) *FlowDocument {
	if id == "" {
		return nil
	}
	doc, err := o.docs.Get(ctx, kind, id)
	if err != nil {
		logger.WithContext(ctx).Debug("linked document unavailable", "kind", kind, "id", id, "error", err)
		return nil
	}
	return &FlowDocument{
		Name:   doc.ID,
		Status: doc.Status,
		Total:  doc.Fields["grand_total"],
		Qty:    doc.Fields["qty"],
	}
}
