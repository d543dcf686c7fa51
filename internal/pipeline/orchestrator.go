package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/Simplici0/printcost/internal/estimation"
	"github.com/Simplici0/printcost/internal/logger"
)

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Estimations Estimations
	Documents   DocumentRepository
	Catalog     ItemCatalog
	BOMs        BOMRepository
	Warehouses  Warehouses
}

// Orchestrator sequences estimation results into downstream records. Each
// call runs to completion against the collaborators and holds no state.
type Orchestrator struct {
	estimations Estimations
	docs        DocumentRepository
	catalog     ItemCatalog
	boms        BOMRepository
	warehouses  Warehouses
}

// New returns an Orchestrator over deps.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		estimations: deps.Estimations,
		docs:        deps.Documents,
		catalog:     deps.Catalog,
		boms:        deps.BOMs,
		warehouses:  deps.Warehouses,
	}
}

// RefreshCalculations recomputes an estimation from its stored input.
func (o *Orchestrator) RefreshCalculations(ctx context.Context, name string) (*estimation.Estimation, error) {
	ctx = logger.WithEstimation(ctx, name)
	e, err := o.load(ctx, OpRefresh, name)
	if err != nil {
		return nil, err
	}
	if err := e.Recompute(); err != nil {
		return nil, err
	}
	if err := o.save(ctx, OpRefresh, e); err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("calculations refreshed", "warnings", len(e.Result.Warnings))
	return e, nil
}

// Submit moves a draft estimation to Sent.
func (o *Orchestrator) Submit(ctx context.Context, name string) (*estimation.Estimation, error) {
	return o.apply(ctx, OpSubmit, name, (*estimation.Estimation).Submit)
}

// Cancel moves a draft or sent estimation to Cancelled.
func (o *Orchestrator) Cancel(ctx context.Context, name string) (*estimation.Estimation, error) {
	return o.apply(ctx, OpCancel, name, (*estimation.Estimation).Cancel)
}

func (o *Orchestrator) apply(ctx context.Context, op, name string, fn func(*estimation.Estimation) error) (*estimation.Estimation, error) {
	ctx = logger.WithEstimation(ctx, name)
	e, err := o.load(ctx, op, name)
	if err != nil {
		return nil, err
	}
	from := e.Status.Normalize()
	if err := fn(e); err != nil {
		return nil, err
	}
	if err := o.save(ctx, op, e); err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("estimation status changed", "from", from, "to", e.Status)
	return e, nil
}

// AutoFetchRate fills rate_per_kg from the item catalog valuation rate, for
// the estimation paper and for every item whose paper has a rate.
func (o *Orchestrator) AutoFetchRate(ctx context.Context, name string) (*estimation.Estimation, error) {
	ctx = logger.WithEstimation(ctx, name)
	e, err := o.load(ctx, OpFetchRate, name)
	if err != nil {
		return nil, err
	}
	if e.Status.Normalize() != estimation.StatusDraft {
		return nil, fmt.Errorf("%w: status is %q", estimation.ErrLocked, e.Status)
	}

	in := e.Input
	in.Items = append([]estimation.Item(nil), e.Input.Items...)
	updated := 0

	if len(in.Items) == 0 {
		if e.PaperType == "" {
			return nil, ErrMissingPaperType
		}
		rate, found, err := o.catalog.ValuationRate(ctx, e.PaperType)
		if err != nil {
			return nil, o.fail(ctx, OpFetchRate, name, err)
		}
		if !found {
			return nil, fmt.Errorf("%w for item %s", ErrNoValuationRate, e.PaperType)
		}
		in.RatePerKg = rate
		updated++
	}
	for i, item := range in.Items {
		paper := item.PaperType
		if paper == "" {
			paper = e.PaperType
		}
		if paper == "" {
			continue
		}
		rate, found, err := o.catalog.ValuationRate(ctx, paper)
		if err != nil {
			return nil, o.fail(ctx, OpFetchRate, name, err)
		}
		if found {
			in.Items[i].RatePerKg = rate
			updated++
		}
	}
	if updated == 0 {
		return nil, ErrNoValuationRate
	}

	if err := e.SetInput(in); err != nil {
		return nil, err
	}
	if err := o.save(ctx, OpFetchRate, e); err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("rate per kg fetched from item master", "rates", updated)
	return e, nil
}

// CreateSampleBOM returns the active BOM of the paper type, creating one from
// the estimation when none exists.
func (o *Orchestrator) CreateSampleBOM(ctx context.Context, name string) (bomID string, created bool, err error) {
	ctx = logger.WithEstimation(ctx, name)
	e, err := o.load(ctx, OpSampleBOM, name)
	if err != nil {
		return "", false, err
	}
	if e.PaperType == "" {
		return "", false, ErrMissingPaperType
	}

	existing, err := o.findBOM(ctx, e.PaperType)
	if err != nil {
		return "", false, o.fail(ctx, OpSampleBOM, name, err)
	}
	if existing != nil {
		return existing.ID, false, nil
	}

	bom := BOM{
		Item:      e.PaperType,
		IsActive:  true,
		IsDefault: true,
		Items: []BOMItem{{
			ItemCode: e.PaperType,
			Qty:      one,
			Rate:     e.Input.RatePerKg,
			UOM:      "Kg",
		}},
	}
	for _, p := range e.Input.Processes {
		bom.Operations = append(bom.Operations, BOMOperation{
			Operation:   p.ProcessType,
			Workstation: p.Workstation,
			TimeInMins:  60,
			Description: p.Details,
		})
	}

	id, err := o.boms.Create(ctx, bom)
	if err != nil {
		return "", false, o.fail(ctx, OpSampleBOM, name, err)
	}
	logger.WithContext(ctx).Info("sample BOM created", "bom", id, "item", e.PaperType)
	return id, true, nil
}

func (o *Orchestrator) findBOM(ctx context.Context, item string) (*BOM, error) {
	bom, err := o.boms.FindActiveDefault(ctx, item)
	if err != nil || bom != nil {
		return bom, err
	}
	return o.boms.FindAnyActive(ctx, item)
}

func (o *Orchestrator) load(ctx context.Context, op, name string) (*estimation.Estimation, error) {
	e, err := o.estimations.Get(ctx, name)
	if err != nil {
		if errors.Is(err, estimation.ErrNotFound) {
			return nil, err
		}
		return nil, o.fail(ctx, op, name, err)
	}
	return e, nil
}

func (o *Orchestrator) save(ctx context.Context, op string, e *estimation.Estimation) error {
	if err := o.estimations.Save(ctx, e); err != nil {
		return o.fail(ctx, op, e.Name, err)
	}
	return nil
}

// fail logs the cause with a truncated detail and wraps it.
func (o *Orchestrator) fail(ctx context.Context, op, name string, err error) error {
	logger.WithContext(ctx).Error("pipeline step failed",
		"op", op,
		"detail", logger.Truncate(err.Error(), detailLimit),
	)
	return &DependencyError{Op: op, Estimation: name, Err: err}
}

// guard rejects re-invocation once the estimation moved past a step.
func guard(e *estimation.Estimation, to estimation.Status) error {
	if !estimation.CanTransition(e.Status, to) {
		return &estimation.TransitionError{From: e.Status.Normalize(), To: to}
	}
	return nil
}
