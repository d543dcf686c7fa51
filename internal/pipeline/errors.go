package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrMissingBOM       = errors.New("no active BOM for item")
	ErrNoValuationRate  = errors.New("no valuation rate found")
	ErrMissingPaperType = errors.New("paper type is not set")
)

// Operation names, phrased for the user-facing retry message.
const (
	OpRefresh      = "refreshing calculations"
	OpSubmit       = "submitting estimation"
	OpCancel       = "cancelling estimation"
	OpQuotation    = "converting to quotation"
	OpSalesOrder   = "creating sales order"
	OpWorkOrder    = "creating work order"
	OpStockEntries = "creating stock entries"
	OpFetchRate    = "auto-fetching rate"
	OpSampleBOM    = "creating sample BOM"
	OpFlowSummary  = "getting document flow summary"
)

// detailLimit caps the cause written to the log.
const detailLimit = 100

// DependencyError wraps a failed collaborator call.
type DependencyError struct {
	Op         string
	Estimation string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s for %s: %v", e.Op, e.Estimation, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// UserMessage is the generic text shown instead of the cause.
func (e *DependencyError) UserMessage() string {
	return "Error " + e.Op + ". Please try again."
}
