package estimation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AddonType names the kind of extra attached to an item.
type AddonType string

const (
	AddonWrapper AddonType = "Wrapper"
	AddonColor   AddonType = "Color"
	AddonHandle  AddonType = "Handle"
)

// Addon is an extra component (wrapper, print color, handle) of an item.
type Addon struct {
	Type        AddonType `json:"addon_type"`
	WrapperItem string    `json:"wrapper_item,omitempty"`
	ColorItem   string    `json:"color_item,omitempty"`
	HandleItem  string    `json:"handle_item,omitempty"`
}

// Item is one produced item of a multi-item estimation.
type Item struct {
	Sheet
	ItemCode  string
	PaperType string
	Finish    string
	Addons    []Addon
}

// ItemResult carries the paper metrics of one item.
type ItemResult struct {
	PaperMetrics
	ItemCode  string `json:"item"`
	PaperType string `json:"paper_type"`
	Quantity  int64  `json:"quantity"`
}

func deriveItems(items []Item) ([]ItemResult, PaperMetrics, int64) {
	results := make([]ItemResult, 0, len(items))
	var sum PaperMetrics
	var qty int64

	for _, item := range items {
		m := item.Sheet.Metrics()
		results = append(results, ItemResult{
			PaperMetrics: m,
			ItemCode:     item.ItemCode,
			PaperType:    item.PaperType,
			Quantity:     item.Quantity,
		})
		sum.NetWeightKg = sum.NetWeightKg.Add(m.NetWeightKg)
		sum.WasteKg = sum.WasteKg.Add(m.WasteKg)
		sum.TotalWeightKg = sum.TotalWeightKg.Add(m.TotalWeightKg)
		sum.TotalPaperCost = sum.TotalPaperCost.Add(m.TotalPaperCost)
		qty += item.Quantity
	}

	total := decimal.NewFromInt(qty)
	sum.WeightPerPieceKg = safeDiv(sum.NetWeightKg, total)
	sum.PiecesPerKg = safeDiv(one, sum.WeightPerPieceKg)
	sum.CostPerPiece = safeDiv(sum.TotalPaperCost, total)

	return results, sum, qty
}

func (a Addon) validate(field string) *ValidationError {
	var missing bool
	switch a.Type {
	case AddonWrapper:
		missing = a.WrapperItem == ""
	case AddonColor:
		missing = a.ColorItem == ""
	case AddonHandle:
		missing = a.HandleItem == ""
	case "":
		return &ValidationError{Field: field + ".addon_type", Message: "is required"}
	default:
		return &ValidationError{Field: field + ".addon_type", Message: fmt.Sprintf("unknown addon type %q", a.Type)}
	}
	if !missing {
		return nil
	}

	what := a.Type + " Item"
	if a.Type == AddonColor {
		what = "Color"
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%s is required when Addon Type is %s", what, a.Type),
	}
}

func itemField(i int, name string) string {
	return fmt.Sprintf("estimation_items[%d].%s", i, name)
}
