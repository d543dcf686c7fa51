package estimation

import (
	"fmt"
	"time"
)

// Estimation is the work order estimation record that owns an Input and its
// last computed Result.
type Estimation struct {
	ID           int64
	Name         string
	ProjectName  string
	ClientName   string
	DeliveryDate string
	PaperType    string
	Finish       string
	UrgencyLevel string
	Notes        string
	Status       Status

	Input  Input
	Result Result

	QuotationRef  string
	SalesOrderRef string
	WorkOrderRef  string
	BOMRef        string
	StockEntries  []StockEntryRef

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StockEntryRef points at a stock entry created for the estimation.
type StockEntryRef struct {
	ID   string `json:"name"`
	Type string `json:"stock_entry_type"`
}

// FormatName builds the record name from its numeric id.
func FormatName(id int64) string {
	return fmt.Sprintf("WOE-%05d", id)
}

// Recompute derives the result again from the current input. The stored
// weight of the previous result feeds the consistency check.
func (e *Estimation) Recompute() error {
	e.Status = e.Status.Normalize()

	in := e.Input
	if in.StoredWeightPerPieceKg == nil && !e.Result.WeightPerPieceKg.IsZero() {
		stored := e.Result.WeightPerPieceKg
		in.StoredWeightPerPieceKg = &stored
	}

	res, err := Compute(in)
	if err != nil {
		return err
	}
	e.Result = res
	return nil
}

// SetInput replaces the input while the estimation is still a draft.
func (e *Estimation) SetInput(in Input) error {
	if e.Status.Normalize() != StatusDraft {
		return fmt.Errorf("%w: status is %q", ErrLocked, e.Status)
	}
	in.StoredWeightPerPieceKg = nil
	e.Input = in
	e.Result = Result{}
	return e.Recompute()
}

// Submit recomputes and moves a draft to Sent.
func (e *Estimation) Submit() error {
	next, err := Transition(e.Status, StatusSent, e.BOMRef)
	if err != nil {
		return err
	}
	if err := e.Recompute(); err != nil {
		return err
	}
	e.Status = next
	return nil
}

// Cancel moves a draft or sent estimation to Cancelled.
func (e *Estimation) Cancel() error {
	next, err := Transition(e.Status, StatusCancelled, e.BOMRef)
	if err != nil {
		return err
	}
	e.Status = next
	return nil
}

// Advance applies a pipeline transition.
func (e *Estimation) Advance(to Status) error {
	next, err := Transition(e.Status, to, e.BOMRef)
	if err != nil {
		return err
	}
	e.Status = next
	return nil
}

// ProducedItem is the item code the downstream documents refer to.
func (e *Estimation) ProducedItem() string {
	if e.PaperType != "" {
		return e.PaperType
	}
	if len(e.Input.Items) > 0 && e.Input.Items[0].ItemCode != "" {
		return e.Input.Items[0].ItemCode
	}
	return e.Name
}
