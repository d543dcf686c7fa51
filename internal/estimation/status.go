package estimation

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of an estimation.
type Status string

const (
	StatusDraft                Status = "Draft"
	StatusSent                 Status = "Sent"
	StatusConvertedToQuotation Status = "Converted to Quotation"
	StatusCancelled            Status = "Cancelled"
	StatusSalesOrderCreated    Status = "Sales Order Created"
	StatusWorkOrderCreated     Status = "Work Order Created"
	StatusProductionCompleted  Status = "Production Completed"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingBOMRef     = errors.New("bom reference is required")
	ErrLocked            = errors.New("estimation is not editable")
	ErrNotFound          = errors.New("estimation not found")
)

var transitions = map[Status][]Status{
	StatusDraft:                {StatusSent, StatusCancelled},
	StatusSent:                 {StatusConvertedToQuotation, StatusCancelled},
	StatusConvertedToQuotation: {StatusSalesOrderCreated},
	StatusSalesOrderCreated:    {StatusWorkOrderCreated},
	StatusWorkOrderCreated:     {StatusProductionCompleted},
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move estimation from %q to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Normalize maps an unset status to Draft.
func (s Status) Normalize() Status {
	if s == "" {
		return StatusDraft
	}
	return s
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusProductionCompleted
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusConvertedToQuotation, StatusCancelled,
		StatusSalesOrderCreated, StatusWorkOrderCreated, StatusProductionCompleted:
		return true
	}
	return false
}

// CanTransition reports whether the edge from -> to exists.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from.Normalize()] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns the new status or a *TransitionError. bomRef guards the
// states that need a bill of materials.
func Transition(from, to Status, bomRef string) (Status, error) {
	from = from.Normalize()
	if !CanTransition(from, to) {
		return from, &TransitionError{From: from, To: to}
	}
	if (to == StatusWorkOrderCreated || to == StatusProductionCompleted) && bomRef == "" {
		return from, fmt.Errorf("enter %q: %w", to, ErrMissingBOMRef)
	}
	return to, nil
}
