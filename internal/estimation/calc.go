// Package estimation derives paper weight, cost and sales price for a print job
// and tracks the status of the estimation that owns the figures.
package estimation

import "github.com/shopspring/decimal"

var (
	one        = decimal.NewFromInt(1)
	hundred    = decimal.NewFromInt(100)
	cm2PerM2   = decimal.NewFromInt(10_000)
	gramsPerKg = decimal.NewFromInt(1_000)

	// legacyWeightDivisor turns length_cm * width_cm * gsm straight into kg.
	legacyWeightDivisor = decimal.NewFromInt(10_000_000)

	// WeightTolerance is the accepted drift, in kg per piece, between weight figures.
	WeightTolerance = decimal.New(1, -6)
)

// Sheet is the paper specification of one produced item.
type Sheet struct {
	GSM             decimal.Decimal
	LengthCM        decimal.Decimal
	WidthCM         decimal.Decimal
	Quantity        int64
	WastePercentage decimal.Decimal
	RatePerKg       decimal.Decimal
}

// Input holds every value the calculator reads. When Items is non-empty the
// embedded Sheet is ignored and paper metrics are summed over the items.
type Input struct {
	Sheet
	ProfitMargin decimal.Decimal
	Processes    []ProcessLine
	Items        []Item

	// SalesPrice is set when the caller fixed the price explicitly.
	SalesPrice *decimal.Decimal
	// StoredWeightPerPieceKg is the weight persisted by a previous compute.
	StoredWeightPerPieceKg *decimal.Decimal
}

// PaperMetrics contains weight and paper cost figures for a sheet.
type PaperMetrics struct {
	WeightPerPieceKg decimal.Decimal `json:"weight_per_piece_kg"`
	PiecesPerKg      decimal.Decimal `json:"pieces_per_kg"`
	NetWeightKg      decimal.Decimal `json:"net_weight_kg"`
	WasteKg          decimal.Decimal `json:"waste_kg"`
	TotalWeightKg    decimal.Decimal `json:"total_weight_kg"`
	TotalPaperCost   decimal.Decimal `json:"total_paper_cost"`
	CostPerPiece     decimal.Decimal `json:"cost_per_piece"`
}

// Result is recomputed from an Input on every change and never edited directly.
type Result struct {
	PaperMetrics
	Quantity         int64           `json:"quantity"`
	TotalProcessCost decimal.Decimal `json:"total_cost_for_operations"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	CostPerUnit      decimal.Decimal `json:"cost_per_unit"`
	MarginAmount     decimal.Decimal `json:"margin_amount"`
	SalesPrice       decimal.Decimal `json:"sales_price"`

	Items     []ItemResult    `json:"estimation_items,omitempty"`
	Processes []ProcessResult `json:"estimation_processes,omitempty"`
	Warnings  []Warning       `json:"warnings,omitempty"`
}

// Metrics computes weight and paper cost using the area formula:
// (length_cm * width_cm / 10000) m² * gsm g/m², converted to kg.
func (s Sheet) Metrics() PaperMetrics {
	area := s.LengthCM.Mul(s.WidthCM).Div(cm2PerM2)
	weight := s.GSM.Mul(area).Div(gramsPerKg)
	qty := decimal.NewFromInt(s.Quantity)

	net := weight.Mul(qty)
	waste := net.Mul(s.WastePercentage).Div(hundred)
	total := net.Add(waste)
	paperCost := total.Mul(s.RatePerKg)

	return PaperMetrics{
		WeightPerPieceKg: weight,
		PiecesPerKg:      safeDiv(one, weight),
		NetWeightKg:      net,
		WasteKg:          waste,
		TotalWeightKg:    total,
		TotalPaperCost:   paperCost,
		CostPerPiece:     safeDiv(paperCost, qty),
	}
}

// LegacyWeightPerPieceKg is the direct cm·gsm formula found in older records.
func (s Sheet) LegacyWeightPerPieceKg() decimal.Decimal {
	return s.LengthCM.Mul(s.WidthCM).Mul(s.GSM).Div(legacyWeightDivisor)
}

// Derive computes the result without validating the input. Zero divisors
// yield zero instead of failing.
func Derive(in Input) Result {
	var res Result
	if len(in.Items) > 0 {
		res.Items, res.PaperMetrics, res.Quantity = deriveItems(in.Items)
	} else {
		res.PaperMetrics = in.Sheet.Metrics()
		res.Quantity = in.Quantity
	}

	res.Processes, res.TotalProcessCost = deriveProcesses(in.Processes)

	qty := decimal.NewFromInt(res.Quantity)
	res.TotalCost = res.TotalPaperCost.Add(res.TotalProcessCost)
	res.CostPerUnit = safeDiv(res.TotalCost, qty)
	res.MarginAmount = res.TotalCost.Mul(in.ProfitMargin).Div(hundred)

	if in.SalesPrice != nil {
		res.SalesPrice = *in.SalesPrice
	} else {
		res.SalesPrice = res.TotalCost.Add(res.MarginAmount)
	}

	return res
}

// Compute validates the input, derives the result and attaches consistency
// warnings. Validation failures are returned as ValidationErrors.
func Compute(in Input) (Result, error) {
	if errs := Validate(in); len(errs) > 0 {
		return Result{}, errs
	}

	res := Derive(in)
	res.Warnings = Check(in, res)
	return res, nil
}

// Check compares weight figures that should agree and reports drift beyond
// WeightTolerance as warnings.
func Check(in Input, res Result) []Warning {
	var warnings []Warning

	if len(in.Items) == 0 {
		legacy := in.Sheet.LegacyWeightPerPieceKg()
		if drift(legacy, res.WeightPerPieceKg) {
			warnings = append(warnings, Warning{
				Field:   "weight_per_piece_kg",
				Message: "direct formula gives " + legacy.String() + " kg, area formula gives " + res.WeightPerPieceKg.String() + " kg",
			})
		}
	}
	for i, item := range res.Items {
		legacy := in.Items[i].Sheet.LegacyWeightPerPieceKg()
		if drift(legacy, item.WeightPerPieceKg) {
			warnings = append(warnings, Warning{
				Field:   itemField(i, "weight_per_piece_kg"),
				Message: "direct formula gives " + legacy.String() + " kg, area formula gives " + item.WeightPerPieceKg.String() + " kg",
			})
		}
	}

	if in.StoredWeightPerPieceKg != nil && drift(*in.StoredWeightPerPieceKg, res.WeightPerPieceKg) {
		warnings = append(warnings, Warning{
			Field:   "weight_per_piece_kg",
			Message: "stored weight " + in.StoredWeightPerPieceKg.String() + " kg differs from computed " + res.WeightPerPieceKg.String() + " kg",
		})
	}

	return warnings
}

func drift(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(WeightTolerance)
}

func safeDiv(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}
