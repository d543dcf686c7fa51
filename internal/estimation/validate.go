package estimation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError reports a bad or missing input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// ValidationErrors collects every violation found in one pass.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return "invalid estimation: " + strings.Join(parts, "; ")
}

// Fields lists the offending field names in order.
func (errs ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	return fields
}

// Warning is a non-blocking finding attached to a result.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks every precondition of Compute and returns all violations.
func Validate(in Input) ValidationErrors {
	var errs ValidationErrors
	add := func(e *ValidationError) {
		if e != nil {
			errs = append(errs, *e)
		}
	}

	if len(in.Items) == 0 {
		for _, e := range validateSheet(in.Sheet, func(name string) string { return name }) {
			add(e)
		}
	} else {
		for i, item := range in.Items {
			for _, e := range validateSheet(item.Sheet, func(name string) string { return itemField(i, name) }) {
				add(e)
			}
			for j, addon := range item.Addons {
				add(addon.validate(fmt.Sprintf("%s[%d]", itemField(i, "addons"), j)))
			}
		}
		add(totalQuantity(in.Items))
	}

	add(percent("profit_margin", in.ProfitMargin))

	for i, p := range in.Processes {
		field := func(name string) string { return fmt.Sprintf("estimation_processes[%d].%s", i, name) }
		if strings.TrimSpace(p.ProcessType) == "" {
			add(&ValidationError{Field: field("process_type"), Message: "is required"})
		}
		if strings.TrimSpace(p.Workstation) == "" {
			add(&ValidationError{Field: field("workstation"), Message: "is required"})
		}
		if p.Rate == nil {
			add(&ValidationError{Field: field("rate"), Message: "is required"})
		} else {
			add(nonNegative(field("rate"), *p.Rate))
		}
		add(nonNegative(field("qty"), p.Qty))
	}

	if in.SalesPrice != nil {
		add(nonNegative("sales_price", *in.SalesPrice))
	}

	return errs
}

func validateSheet(s Sheet, field func(string) string) []*ValidationError {
	return []*ValidationError{
		positive(field("gsm"), s.GSM),
		positive(field("length_cm"), s.LengthCM),
		positive(field("width_cm"), s.WidthCM),
		positive(field("quantity"), decimal.NewFromInt(s.Quantity)),
		bounded(field("gsm"), s.GSM),
		bounded(field("length_cm"), s.LengthCM),
		bounded(field("width_cm"), s.WidthCM),
		bounded(field("quantity"), decimal.NewFromInt(s.Quantity)),
		bounded(field("rate_per_kg"), s.RatePerKg),
		percent(field("waste_percentage"), s.WastePercentage),
		nonNegative(field("rate_per_kg"), s.RatePerKg),
	}
}

// totalQuantity rejects item quantities whose sum leaves the numeric range.
func totalQuantity(items []Item) *ValidationError {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(decimal.NewFromInt(item.Quantity))
	}
	if total.GreaterThan(maxMagnitude) {
		return &ValidationError{Field: "estimation_items", Message: "total quantity out of range"}
	}
	return nil
}

func positive(field string, v decimal.Decimal) *ValidationError {
	if v.IsPositive() {
		return nil
	}
	return &ValidationError{Field: field, Message: "must be greater than 0"}
}

func bounded(field string, v decimal.Decimal) *ValidationError {
	if v.Exponent() > maxExponent || v.Exponent() < minExponent || v.Abs().GreaterThan(maxMagnitude) {
		return &ValidationError{Field: field, Message: "out of range"}
	}
	return nil
}

func nonNegative(field string, v decimal.Decimal) *ValidationError {
	if v.IsNegative() {
		return &ValidationError{Field: field, Message: "must not be negative"}
	}
	return nil
}

func percent(field string, v decimal.Decimal) *ValidationError {
	if v.IsNegative() || v.GreaterThan(hundred) {
		return &ValidationError{Field: field, Message: "must be between 0 and 100"}
	}
	return nil
}
