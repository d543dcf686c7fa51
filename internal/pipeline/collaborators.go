// Package pipeline turns a sent estimation into the downstream records of the
// sales and production flow: quotation, sales order, work order and stock
// entries. The records themselves live in an external document store.
package pipeline

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/printcost/internal/estimation"
)

// Document kinds written to the document store.
const (
	KindQuotation  = "Quotation"
	KindSalesOrder = "Sales Order"
	KindWorkOrder  = "Work Order"
	KindStockEntry = "Stock Entry"
)

// Statuses of external documents the pipeline checks.
const (
	QuotationOpen              = "Open"
	SalesOrderDraft            = "Draft"
	SalesOrderToDeliverAndBill = "To Deliver and Bill"
	WorkOrderCompleted         = "Completed"
)

// Stock entry types created when production completes.
const (
	StockEntryConsumption = "Material Transfer for Manufacture"
	StockEntryManufacture = "Manufacture"
)

// Document is a record owned by the external document store.
type Document struct {
	Kind   string         `json:"kind"`
	ID     string         `json:"name"`
	Status string         `json:"status"`
	Fields map[string]any `json:"fields"`
}

// Estimations loads and stores estimation records.
type Estimations interface {
	Get(ctx context.Context, name string) (*estimation.Estimation, error)
	Save(ctx context.Context, e *estimation.Estimation) error
}

// DocumentRepository is the synchronous contract of the external document
// store. A "status" field passed to Create sets the initial status.
type DocumentRepository interface {
	Create(ctx context.Context, kind string, fields map[string]any) (string, error)
	Get(ctx context.Context, kind, id string) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// ItemCatalog exposes item master data.
type ItemCatalog interface {
	ValuationRate(ctx context.Context, itemCode string) (rate decimal.Decimal, found bool, err error)
}

// BOMRepository finds and creates bills of materials. Finders return nil
// without error when nothing matches.
type BOMRepository interface {
	FindActiveDefault(ctx context.Context, itemCode string) (*BOM, error)
	FindAnyActive(ctx context.Context, itemCode string) (*BOM, error)
	Create(ctx context.Context, bom BOM) (string, error)
}

// BOM is a bill of materials for producing an item.
type BOM struct {
	ID         string         `json:"name"`
	Item       string         `json:"item"`
	IsActive   bool           `json:"is_active"`
	IsDefault  bool           `json:"is_default"`
	Items      []BOMItem      `json:"items"`
	Operations []BOMOperation `json:"operations"`
}

// BOMItem is a component line of a BOM.
type BOMItem struct {
	ItemCode string          `json:"item_code"`
	Qty      decimal.Decimal `json:"qty"`
	Rate     decimal.Decimal `json:"rate"`
	UOM      string          `json:"uom"`
}

// BOMOperation is a routing step of a BOM.
type BOMOperation struct {
	Operation   string `json:"operation"`
	Workstation string `json:"workstation"`
	TimeInMins  int    `json:"time_in_mins"`
	Description string `json:"description,omitempty"`
}

// Warehouses are the stock locations used for production stock entries.
type Warehouses struct {
	Source        string
	FinishedGoods string
	Scrap         string
}
