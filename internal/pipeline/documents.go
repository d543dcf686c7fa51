package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/printcost/internal/estimation"
	"github.com/Simplici0/printcost/internal/logger"
)

var one = decimal.NewFromInt(1)

const quotationValidity = 30 * 24 * time.Hour

// CreateQuotation creates a quotation priced from the estimation result and
// moves the estimation to Converted to Quotation.
func (o *Orchestrator) CreateQuotation(ctx context.Context, name string) (string, error) {
	ctx = logger.WithEstimation(ctx, name)
	e, err := o.load(ctx, OpQuotation, name)
	if err != nil {
		return "", err
	}
	if err := guard(e, estimation.StatusConvertedToQuotation); err != nil {
		return "", err
	}
	if err := e.Recompute(); err != nil {
		return "", err
	}

	id, err := o.docs.Create(ctx, KindQuotation, quotationFields(e, time.Now()))
	if err != nil {
		return "", o.fail(ctx, OpQuotation, name, err)
	}
	e.QuotationRef = id
	if err := e.Advance(estimation.StatusConvertedToQuotation); err != nil {
		return "", err
	}
	if err := o.save(ctx, OpQuotation, e); err != nil {
		return "", err
	}

	logger.WithContext(ctx).Info("quotation created", "quotation", id, "sales_price", e.Result.SalesPrice.StringFixed(2))
	return id, nil
}

// CreateSalesOrder creates a sales order from the open quotation of the estimation.
func (o *Orchestrator) CreateSalesOrder(ctx context.Context, name string) (string, error) {
	ctx = logger.WithEstimation(ctx, name)
	e, err := o.load(ctx, OpSalesOrder, name)
	if err != nil {
		return "", err
	}
	if err := guard(e, estimation.StatusSalesOrderCreated); err != nil {
		return "", err
	}

	q, err := o.docs.Get(ctx, KindQuotation, e.QuotationRef)
	if err != nil {
		return "", o.fail(ctx, OpSalesOrder, name, err)
	}
	if q.Status != QuotationOpen {
		return "", fmt.Errorf("%w: quotation %s is %q, want %q",
			estimation.ErrInvalidTransition, q.ID, q.Status, QuotationOpen)
	}

	fields := map[string]any{
		"customer":              e.ClientName,
		"transaction_date":      time.Now().Format(time.DateOnly),
		"delivery_date":         e.DeliveryDate,
		"quotation":             q.ID,
		"items":                 q.Fields["items"],
		"grand_total":           q.Fields["grand_total"],
		"work_order_estimation": e.Name,
		"status":                SalesOrderDraft,
	}
	id, err := o.docs.Create(ctx, KindSalesOrder, fields)
	if err != nil {
		return "", o.fail(ctx, OpSalesOrder, name, err)
	}
	e.SalesOrderRef = id
	if err := e.Advance(estimation.StatusSalesOrderCreated); err != nil {
		return "", err
	}
	if err := o.save(ctx, OpSalesOrder, e); err != nil {
		return "", err
	}

	logger.WithContext(ctx).Info("sales order created", "sales_order", id, "quotation", q.ID)
	return id, nil
}

// CreateWorkOrder creates a work order for the produced item against its
// active BOM. Without a BOM the estimation is left untouched.
func (o *Orchestrator) CreateWorkOrder(ctx context.Context, name string) (string, error) {
	ctx = logger.WithEstimation(ctx, name)
	e, err := o.load(ctx, OpWorkOrder, name)
	if err != nil {
		return "", err
	}
	if err := guard(e, estimation.StatusWorkOrderCreated); err != nil {
		return "", err
	}

	so, err := o.docs.Get(ctx, KindSalesOrder, e.SalesOrderRef)
	if err != nil {
		return "", o.fail(ctx, OpWorkOrder, name, err)
	}
	if so.Status != SalesOrderDraft && so.Status != SalesOrderToDeliverAndBill {
		return "", fmt.Errorf("%w: sales order %s is %q",
			estimation.ErrInvalidTransition, so.ID, so.Status)
	}

	item := e.ProducedItem()
	bom, err := o.findBOM(ctx, item)
	if err != nil {
		return "", o.fail(ctx, OpWorkOrder, name, err)
	}
	if bom == nil {
		return "", fmt.Errorf("%w %s", ErrMissingBOM, item)
	}

	fields := map[string]any{
		"production_item":       item,
		"bom_no":                bom.ID,
		"qty":                   e.Result.Quantity,
		"sales_order":           so.ID,
		"source_warehouse":      o.warehouses.Source,
		"fg_warehouse":          o.warehouses.FinishedGoods,
		"work_order_estimation": e.Name,
		"status":                "Not Started",
	}
	id, err := o.docs.Create(ctx, KindWorkOrder, fields)
	if err != nil {
		return "", o.fail(ctx, OpWorkOrder, name, err)
	}
	e.WorkOrderRef = id
	e.BOMRef = bom.ID
	if err := e.Advance(estimation.StatusWorkOrderCreated); err != nil {
		return "", err
	}
	if err := o.save(ctx, OpWorkOrder, e); err != nil {
		return "", err
	}

	logger.WithContext(ctx).Info("work order created", "work_order", id, "bom", bom.ID)
	return id, nil
}

// CreateStockEntries records paper consumption and finished goods once the
// work order is completed.
func (o *Orchestrator) CreateStockEntries(ctx context.Context, name string) ([]estimation.StockEntryRef, error) {
	ctx = logger.WithEstimation(ctx, name)
	e, err := o.load(ctx, OpStockEntries, name)
	if err != nil {
		return nil, err
	}
	if err := guard(e, estimation.StatusProductionCompleted); err != nil {
		return nil, err
	}

	wo, err := o.docs.Get(ctx, KindWorkOrder, e.WorkOrderRef)
	if err != nil {
		return nil, o.fail(ctx, OpStockEntries, name, err)
	}
	if wo.Status != WorkOrderCompleted {
		return nil, fmt.Errorf("%w: work order %s is %q, want %q",
			estimation.ErrInvalidTransition, wo.ID, wo.Status, WorkOrderCompleted)
	}

	entries := []struct {
		typ    string
		fields map[string]any
	}{
		{StockEntryConsumption, o.consumptionFields(e, wo.ID)},
		{StockEntryManufacture, o.manufactureFields(e, wo.ID)},
	}

	refs := make([]estimation.StockEntryRef, 0, len(entries))
	for _, entry := range entries {
		id, err := o.docs.Create(ctx, KindStockEntry, entry.fields)
		if err != nil {
			return nil, o.fail(ctx, OpStockEntries, name, err)
		}
		refs = append(refs, estimation.StockEntryRef{ID: id, Type: entry.typ})
	}

	e.StockEntries = append(e.StockEntries, refs...)
	if err := e.Advance(estimation.StatusProductionCompleted); err != nil {
		return nil, err
	}
	if err := o.save(ctx, OpStockEntries, e); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("stock entries created", "work_order", wo.ID, "entries", len(refs))
	return refs, nil
}

func quotationFields(e *estimation.Estimation, now time.Time) map[string]any {
	res := e.Result
	unit := decimal.Zero
	if res.Quantity > 0 {
		unit = res.SalesPrice.Div(decimal.NewFromInt(res.Quantity))
	}

	unit = unit.Round(2)

	type line struct {
		item string
		qty  int64
	}
	var lines []line
	if len(res.Items) == 0 {
		lines = append(lines, line{e.ProducedItem(), res.Quantity})
	}
	for _, it := range res.Items {
		code := it.ItemCode
		if code == "" {
			code = e.ProducedItem()
		}
		lines = append(lines, line{code, it.Quantity})
	}

	// The last line absorbs the rounding so the amounts add up to grand_total.
	items := make([]map[string]any, 0, len(lines))
	remaining := res.SalesPrice
	for i, l := range lines {
		amount := unit.Mul(decimal.NewFromInt(l.qty))
		if i == len(lines)-1 {
			amount = remaining
		}
		remaining = remaining.Sub(amount)
		items = append(items, quotationLine(l.item, l.qty, unit, amount))
	}

	return map[string]any{
		"quotation_to":          "Customer",
		"party_name":            e.ClientName,
		"title":                 e.ProjectName,
		"transaction_date":      now.Format(time.DateOnly),
		"valid_till":            now.Add(quotationValidity).Format(time.DateOnly),
		"items":                 items,
		"grand_total":           res.SalesPrice,
		"work_order_estimation": e.Name,
		"status":                "Draft",
	}
}

func quotationLine(item string, qty int64, rate, amount decimal.Decimal) map[string]any {
	return map[string]any{
		"item_code": item,
		"qty":       qty,
		"rate":      rate,
		"amount":    amount,
	}
}

func (o *Orchestrator) consumptionFields(e *estimation.Estimation, workOrder string) map[string]any {
	var items []map[string]any
	if len(e.Result.Items) == 0 {
		items = append(items, paperLine(e.ProducedItem(), e.Result.TotalWeightKg, o.warehouses.Source))
	}
	for _, it := range e.Result.Items {
		paper := it.PaperType
		if paper == "" {
			paper = e.ProducedItem()
		}
		items = append(items, paperLine(paper, it.TotalWeightKg, o.warehouses.Source))
	}
	return map[string]any{
		"stock_entry_type":      StockEntryConsumption,
		"work_order":            workOrder,
		"from_warehouse":        o.warehouses.Source,
		"items":                 items,
		"work_order_estimation": e.Name,
		"status":                "Submitted",
	}
}

func (o *Orchestrator) manufactureFields(e *estimation.Estimation, workOrder string) map[string]any {
	items := []map[string]any{
		{
			"item_code":        e.ProducedItem(),
			"qty":              e.Result.Quantity,
			"t_warehouse":      o.warehouses.FinishedGoods,
			"is_finished_item": true,
		},
	}
	if e.Result.WasteKg.IsPositive() {
		items = append(items, map[string]any{
			"item_code":     e.ProducedItem(),
			"qty":           e.Result.WasteKg,
			"uom":           "Kg",
			"t_warehouse":   o.warehouses.Scrap,
			"is_scrap_item": true,
		})
	}
	return map[string]any{
		"stock_entry_type":      StockEntryManufacture,
		"work_order":            workOrder,
		"to_warehouse":          o.warehouses.FinishedGoods,
		"items":                 items,
		"work_order_estimation": e.Name,
		"status":                "Submitted",
	}
}

func paperLine(item string, qty decimal.Decimal, warehouse string) map[string]any {
	return map[string]any{
		"item_code":   item,
		"qty":         qty,
		"uom":         "Kg",
		"s_warehouse": warehouse,
	}
}
