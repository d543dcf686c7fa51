package estimation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Value is a form field that may arrive as a JSON string or a JSON number.
type Value string

// UnmarshalJSON keeps the literal text of numbers and the content of strings.
func (v *Value) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*v = ""
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = Value(str)
	default:
		*v = Value(s)
	}
	return nil
}

// RawInput is the untyped shape of an estimation form.
type RawInput struct {
	GSM              Value        `json:"gsm"`
	LengthCM         Value        `json:"length_cm"`
	WidthCM          Value        `json:"width_cm"`
	Quantity         Value        `json:"quantity"`
	WastePercentage  Value        `json:"waste_percentage"`
	RatePerKg        Value        `json:"rate_per_kg"`
	ProfitMargin     Value        `json:"profit_margin"`
	SalesPrice       Value        `json:"sales_price"`
	WeightPerPieceKg Value        `json:"weight_per_piece_kg"`
	Processes        []RawProcess `json:"estimation_processes"`
	Items            []RawItem    `json:"estimation_items"`
}

// RawProcess is the untyped shape of a process row.
type RawProcess struct {
	ProcessType string `json:"process_type"`
	Workstation string `json:"workstation"`
	Details     string `json:"details"`
	Rate        Value  `json:"rate"`
	Qty         Value  `json:"qty"`
}

// RawItem is the untyped shape of an item row.
type RawItem struct {
	ItemCode        string  `json:"item"`
	PaperType       string  `json:"paper_type"`
	Finish          string  `json:"finish"`
	GSM             Value   `json:"gsm"`
	LengthCM        Value   `json:"length_cm"`
	WidthCM         Value   `json:"width_cm"`
	Quantity        Value   `json:"quantity"`
	WastePercentage Value   `json:"waste_percentage"`
	RatePerKg       Value   `json:"rate_per_kg"`
	Addons          []Addon `json:"addons"`
}

// Parse coerces raw form values into an Input. Values that are not numeric
// are reported per field; empty values are left at zero for Validate to judge.
func Parse(raw RawInput) (Input, ValidationErrors) {
	p := &parser{}

	in := Input{
		Sheet: Sheet{
			GSM:             p.decimal("gsm", raw.GSM),
			LengthCM:        p.decimal("length_cm", raw.LengthCM),
			WidthCM:         p.decimal("width_cm", raw.WidthCM),
			Quantity:        p.integer("quantity", raw.Quantity),
			WastePercentage: p.decimal("waste_percentage", raw.WastePercentage),
			RatePerKg:       p.decimal("rate_per_kg", raw.RatePerKg),
		},
		ProfitMargin:           p.decimal("profit_margin", raw.ProfitMargin),
		SalesPrice:             p.optional("sales_price", raw.SalesPrice),
		StoredWeightPerPieceKg: p.optional("weight_per_piece_kg", raw.WeightPerPieceKg),
	}

	for i, rp := range raw.Processes {
		field := func(name string) string { return fmt.Sprintf("estimation_processes[%d].%s", i, name) }
		in.Processes = append(in.Processes, ProcessLine{
			ProcessType: strings.TrimSpace(rp.ProcessType),
			Workstation: strings.TrimSpace(rp.Workstation),
			Details:     strings.TrimSpace(rp.Details),
			Rate:        p.optional(field("rate"), rp.Rate),
			Qty:         p.decimal(field("qty"), rp.Qty),
		})
	}

	for i, ri := range raw.Items {
		in.Items = append(in.Items, Item{
			Sheet: Sheet{
				GSM:             p.decimal(itemField(i, "gsm"), ri.GSM),
				LengthCM:        p.decimal(itemField(i, "length_cm"), ri.LengthCM),
				WidthCM:         p.decimal(itemField(i, "width_cm"), ri.WidthCM),
				Quantity:        p.integer(itemField(i, "quantity"), ri.Quantity),
				WastePercentage: p.decimal(itemField(i, "waste_percentage"), ri.WastePercentage),
				RatePerKg:       p.decimal(itemField(i, "rate_per_kg"), ri.RatePerKg),
			},
			ItemCode:  strings.TrimSpace(ri.ItemCode),
			PaperType: strings.TrimSpace(ri.PaperType),
			Finish:    strings.TrimSpace(ri.Finish),
			Addons:    ri.Addons,
		})
	}

	return in, p.errs
}

// Raw renders an Input back into its form shape.
func (in Input) Raw() RawInput {
	raw := RawInput{
		GSM:             Value(in.GSM.String()),
		LengthCM:        Value(in.LengthCM.String()),
		WidthCM:         Value(in.WidthCM.String()),
		Quantity:        Value(fmt.Sprint(in.Quantity)),
		WastePercentage: Value(in.WastePercentage.String()),
		RatePerKg:       Value(in.RatePerKg.String()),
		ProfitMargin:    Value(in.ProfitMargin.String()),
	}
	if in.SalesPrice != nil {
		raw.SalesPrice = Value(in.SalesPrice.String())
	}
	if in.StoredWeightPerPieceKg != nil {
		raw.WeightPerPieceKg = Value(in.StoredWeightPerPieceKg.String())
	}
	for _, p := range in.Processes {
		rp := RawProcess{ProcessType: p.ProcessType, Workstation: p.Workstation, Details: p.Details, Qty: Value(p.Qty.String())}
		if p.Rate != nil {
			rp.Rate = Value(p.Rate.String())
		}
		raw.Processes = append(raw.Processes, rp)
	}
	for _, it := range in.Items {
		raw.Items = append(raw.Items, RawItem{
			ItemCode:        it.ItemCode,
			PaperType:       it.PaperType,
			Finish:          it.Finish,
			GSM:             Value(it.GSM.String()),
			LengthCM:        Value(it.LengthCM.String()),
			WidthCM:         Value(it.WidthCM.String()),
			Quantity:        Value(fmt.Sprint(it.Quantity)),
			WastePercentage: Value(it.WastePercentage.String()),
			RatePerKg:       Value(it.RatePerKg.String()),
			Addons:          it.Addons,
		})
	}
	return raw
}

// Numeric inputs are bounded before any arithmetic runs on them.
const (
	maxExponent = 12
	minExponent = -16
)

// maxMagnitude caps every numeric field, including quantities.
var maxMagnitude = decimal.New(1, maxExponent)

type parser struct {
	errs ValidationErrors
}

func (p *parser) optional(field string, v Value) *decimal.Decimal {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		p.errs = append(p.errs, ValidationError{Field: field, Message: "not numeric"})
		return nil
	}
	// Exponent first: comparing a huge exponent against the cap rescales it.
	if d.Exponent() > maxExponent || d.Exponent() < minExponent || d.Abs().GreaterThan(maxMagnitude) {
		p.errs = append(p.errs, ValidationError{Field: field, Message: "out of range"})
		return nil
	}
	return &d
}

func (p *parser) decimal(field string, v Value) decimal.Decimal {
	if d := p.optional(field, v); d != nil {
		return *d
	}
	return decimal.Zero
}

func (p *parser) integer(field string, v Value) int64 {
	d := p.optional(field, v)
	if d == nil {
		return 0
	}
	if !d.IsInteger() {
		p.errs = append(p.errs, ValidationError{Field: field, Message: "must be a whole number"})
		return 0
	}
	if !d.BigInt().IsInt64() {
		p.errs = append(p.errs, ValidationError{Field: field, Message: "out of range"})
		return 0
	}
	return d.IntPart()
}
