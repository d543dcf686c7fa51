package report

import (
	"github.com/shopspring/decimal"

	"github.com/Simplici0/printcost/internal/estimation"
)

// Breakdown splits the cost of an estimation into its parts.
type Breakdown struct {
	PaperCost       decimal.Decimal            `json:"paper_cost"`
	OperationsCost  decimal.Decimal            `json:"operations_cost"`
	Subtotal        decimal.Decimal            `json:"subtotal"`
	ProfitMargin    decimal.Decimal            `json:"profit_margin_percent"`
	MarginAmount    decimal.Decimal            `json:"profit_margin_amount"`
	TotalWithMargin decimal.Decimal            `json:"total_with_margin"`
	SalesPrice      decimal.Decimal            `json:"sales_price"`
	ItemCount       int                        `json:"item_count"`
	Processes       []estimation.ProcessResult `json:"processes"`
}

// CostBreakdown reads the last computed result of e.
func CostBreakdown(e *estimation.Estimation) Breakdown {
	res := e.Result
	b := Breakdown{
		PaperCost:       res.TotalPaperCost,
		OperationsCost:  res.TotalProcessCost,
		Subtotal:        res.TotalCost,
		ProfitMargin:    e.Input.ProfitMargin,
		MarginAmount:    res.MarginAmount,
		TotalWithMargin: res.TotalCost.Add(res.MarginAmount),
		SalesPrice:      res.SalesPrice,
		ItemCount:       len(e.Input.Items),
		Processes:       res.Processes,
	}
	if b.ItemCount == 0 {
		b.ItemCount = 1
	}
	if b.Processes == nil {
		b.Processes = []estimation.ProcessResult{}
	}
	return b
}
