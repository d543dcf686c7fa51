package estimation

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParse_AcceptsNumbersAndText(t *testing.T) {
	body := []byte(`{
		"gsm": "100",
		"length_cm": 50,
		"width_cm": " 70 ",
		"quantity": "1000",
		"waste_percentage": 5,
		"rate_per_kg": "80.00",
		"profit_margin": null,
		"estimation_processes": [
			{"process_type": "Printing", "workstation": "Offset", "rate": "0.5", "qty": 1000}
		]
	}`)

	var raw RawInput
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	in, errs := Parse(raw)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}

	equalDecimal(t, "gsm", in.GSM, "100")
	equalDecimal(t, "width_cm", in.WidthCM, "70")
	equalDecimal(t, "profit_margin", in.ProfitMargin, "0")
	if in.Quantity != 1000 {
		t.Fatalf("quantity = %d, want 1000", in.Quantity)
	}
	if in.SalesPrice != nil {
		t.Fatalf("sales price should be unset, got %s", in.SalesPrice)
	}
	if len(in.Processes) != 1 || in.Processes[0].Rate == nil {
		t.Fatalf("unexpected processes: %+v", in.Processes)
	}
	equalDecimal(t, "process total", in.Processes[0].TotalCost(), "500")
}

func TestParse_ReportsNonNumericFields(t *testing.T) {
	raw := RawInput{
		GSM:      "heavy",
		LengthCM: "50",
		WidthCM:  "70cm",
		Quantity: "12.5",
		Processes: []RawProcess{
			{ProcessType: "Printing", Workstation: "Offset", Rate: "ten"},
		},
	}

	_, errs := Parse(raw)

	want := map[string]string{
		"gsm":                          "not numeric",
		"width_cm":                     "not numeric",
		"quantity":                     "must be a whole number",
		"estimation_processes[0].rate": "not numeric",
	}
	if len(errs) != len(want) {
		t.Fatalf("errors = %v, want %d entries", errs, len(want))
	}
	for _, e := range errs {
		if want[e.Field] != e.Message {
			t.Fatalf("unexpected error %q: %q", e.Field, e.Message)
		}
	}
}

func TestParse_RawRoundTrip(t *testing.T) {
	in := sampleInput()
	in.ProfitMargin = dec("25")
	in.SalesPrice = ptr("4000")
	in.Processes = []ProcessLine{{ProcessType: "Printing", Workstation: "Offset", Rate: ptr("0.5"), Qty: dec("1000")}}

	back, errs := Parse(in.Raw())
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	a, _ := Compute(in)
	b, _ := Compute(back)
	if !a.SalesPrice.Equal(b.SalesPrice) || !a.TotalCost.Equal(b.TotalCost) {
		t.Fatalf("round trip changed result: %+v vs %+v", a, b)
	}
}

func TestParse_RejectsOutOfRangeNumbers(t *testing.T) {
	base := func() RawInput {
		return RawInput{GSM: "100", LengthCM: "50", WidthCM: "70", Quantity: "1000", RatePerKg: "80"}
	}

	tests := []struct {
		name  string
		edit  func(*RawInput)
		field string
	}{
		{"quantity beyond uint64", func(r *RawInput) { r.Quantity = "18446744073709551617" }, "quantity"},
		{"quantity just beyond int64", func(r *RawInput) { r.Quantity = "9223372036854775808" }, "quantity"},
		{"quantity in exponent form", func(r *RawInput) { r.Quantity = "1e30" }, "quantity"},
		{"quantity above cap", func(r *RawInput) { r.Quantity = "1000000000001" }, "quantity"},
		{"huge gsm exponent", func(r *RawInput) { r.GSM = "1e900000000" }, "gsm"},
		{"tiny length exponent", func(r *RawInput) { r.LengthCM = "1e-900000000" }, "length_cm"},
		{"long integer width", func(r *RawInput) { r.WidthCM = "123456789012345678901234567890" }, "width_cm"},
		{"huge sales price", func(r *RawInput) { r.SalesPrice = "5e20" }, "sales_price"},
		{"huge process rate", func(r *RawInput) {
			r.Processes = []RawProcess{{ProcessType: "Printing", Workstation: "Offset", Rate: "1e900000000", Qty: "1"}}
		}, "estimation_processes[0].rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := base()
			tt.edit(&raw)

			_, errs := Parse(raw)
			if len(errs) != 1 || errs[0].Field != tt.field || errs[0].Message != "out of range" {
				t.Fatalf("errors = %v, want %s out of range", errs, tt.field)
			}
		})
	}
}

func TestParse_AcceptsValuesAtTheCap(t *testing.T) {
	raw := RawInput{GSM: "100", LengthCM: "50", WidthCM: "70", Quantity: "1e12", RatePerKg: "0.0000000000000001"}

	in, errs := Parse(raw)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if in.Quantity != 1_000_000_000_000 {
		t.Fatalf("quantity = %d", in.Quantity)
	}
	if _, err := Compute(in); err != nil {
		t.Fatalf("Compute: %v", err)
	}
}

func TestCompute_RejectsItemQuantityTotalOutOfRange(t *testing.T) {
	item := RawItem{GSM: "100", LengthCM: "50", WidthCM: "70", Quantity: "600000000000", RatePerKg: "80"}
	in, errs := Parse(RawInput{Items: []RawItem{item, item}})
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	_, err := Compute(in)

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	found := false
	for _, e := range verrs {
		if e.Field == "estimation_items" && e.Message == "total quantity out of range" {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing total quantity error in %v", verrs)
	}
}
