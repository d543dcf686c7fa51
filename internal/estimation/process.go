package estimation

import "github.com/shopspring/decimal"

// ProcessLine is one operation priced into the estimation (printing,
// lamination, die cutting, ...).
type ProcessLine struct {
	ProcessType string
	Workstation string
	Details     string
	Rate        *decimal.Decimal
	Qty         decimal.Decimal
}

// TotalCost is rate * qty, or zero while either is unset.
func (p ProcessLine) TotalCost() decimal.Decimal {
	if p.Rate == nil || p.Qty.IsZero() {
		return decimal.Zero
	}
	return p.Rate.Mul(p.Qty)
}

// ProcessResult is a process line with its derived total.
type ProcessResult struct {
	ProcessType string          `json:"process_type"`
	Workstation string          `json:"workstation"`
	Rate        decimal.Decimal `json:"rate"`
	Qty         decimal.Decimal `json:"qty"`
	TotalCost   decimal.Decimal `json:"total_cost"`
}

func deriveProcesses(lines []ProcessLine) ([]ProcessResult, decimal.Decimal) {
	total := decimal.Zero
	if len(lines) == 0 {
		return nil, total
	}

	results := make([]ProcessResult, 0, len(lines))
	for _, line := range lines {
		rate := decimal.Zero
		if line.Rate != nil {
			rate = *line.Rate
		}
		cost := line.TotalCost()
		total = total.Add(cost)
		results = append(results, ProcessResult{
			ProcessType: line.ProcessType,
			Workstation: line.Workstation,
			Rate:        rate,
			Qty:         line.Qty,
			TotalCost:   cost,
		})
	}
	return results, total
}
