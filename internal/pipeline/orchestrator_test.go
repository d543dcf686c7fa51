package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/printcost/internal/estimation"
)

type fixture struct {
	orch    *Orchestrator
	records *memEstimations
	docs    *memDocuments
	boms    *memBOMs
}

func newFixture(t *testing.T, status estimation.Status) *fixture {
	t.Helper()

	e := estimation.Estimation{
		ID:          1,
		Name:        "WOE-00001",
		ProjectName: "Gift bags",
		ClientName:  "Acme Retail",
		PaperType:   "PAPER-100GSM",
		Status:      estimation.StatusDraft,
		Input: estimation.Input{
			Sheet: estimation.Sheet{
				GSM:             decimal.NewFromInt(100),
				LengthCM:        decimal.NewFromInt(50),
				WidthCM:         decimal.NewFromInt(70),
				Quantity:        1000,
				WastePercentage: decimal.NewFromInt(5),
				RatePerKg:       decimal.NewFromInt(80),
			},
			ProfitMargin: decimal.NewFromInt(25),
		},
	}
	require.NoError(t, e.Recompute())
	e.Status = status

	f := &fixture{
		records: &memEstimations{records: map[string]estimation.Estimation{e.Name: e}},
		docs:    newMemDocuments(),
		boms:    &memBOMs{},
	}
	f.orch = New(Deps{
		Estimations: f.records,
		Documents:   f.docs,
		Catalog:     memCatalog{"PAPER-100GSM": decimal.RequireFromString("92.5")},
		BOMs:        f.boms,
		Warehouses:  Warehouses{Source: "Stores", FinishedGoods: "Finished Goods", Scrap: "Scrap"},
	})
	return f
}

func (f *fixture) status(t *testing.T) estimation.Status {
	t.Helper()
	return f.records.records["WOE-00001"].Status
}

func TestPipeline_FullFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, estimation.StatusDraft)
	f.boms.boms = append(f.boms.boms, BOM{ID: "BOM-PAPER-100GSM-001", Item: "PAPER-100GSM", IsActive: true, IsDefault: true})

	_, err := f.orch.Submit(ctx, "WOE-00001")
	require.NoError(t, err)
	assert.Equal(t, estimation.StatusSent, f.status(t))

	qid, err := f.orch.CreateQuotation(ctx, "WOE-00001")
	require.NoError(t, err)
	assert.Equal(t, estimation.StatusConvertedToQuotation, f.status(t))

	q, err := f.docs.Get(ctx, KindQuotation, qid)
	require.NoError(t, err)
	assert.Equal(t, "Acme Retail", q.Fields["party_name"])
	assert.True(t, decimal.RequireFromString("3675").Equal(q.Fields["grand_total"].(decimal.Decimal)))

	f.docs.setStatus(KindQuotation, qid, QuotationOpen)
	soid, err := f.orch.CreateSalesOrder(ctx, "WOE-00001")
	require.NoError(t, err)
	assert.Equal(t, estimation.StatusSalesOrderCreated, f.status(t))

	woid, err := f.orch.CreateWorkOrder(ctx, "WOE-00001")
	require.NoError(t, err)
	assert.Equal(t, estimation.StatusWorkOrderCreated, f.status(t))

	wo, err := f.docs.Get(ctx, KindWorkOrder, woid)
	require.NoError(t, err)
	assert.Equal(t, "BOM-PAPER-100GSM-001", wo.Fields["bom_no"])
	assert.Equal(t, soid, wo.Fields["sales_order"])
	assert.Equal(t, int64(1000), wo.Fields["qty"])

	f.docs.setStatus(KindWorkOrder, woid, WorkOrderCompleted)
	refs, err := f.orch.CreateStockEntries(ctx, "WOE-00001")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, StockEntryConsumption, refs[0].Type)
	assert.Equal(t, StockEntryManufacture, refs[1].Type)

	consumption, err := f.docs.Get(ctx, KindStockEntry, refs[0].ID)
	require.NoError(t, err)
	lines := consumption.Fields["items"].([]map[string]any)
	require.Len(t, lines, 1)
	assert.True(t, decimal.RequireFromString("36.75").Equal(lines[0]["qty"].(decimal.Decimal)))
	assert.Equal(t, "Stores", lines[0]["s_warehouse"])

	final := f.records.records["WOE-00001"]
	assert.Equal(t, estimation.StatusProductionCompleted, final.Status)
	assert.Equal(t, qid, final.QuotationRef)
	assert.Equal(t, soid, final.SalesOrderRef)
	assert.Equal(t, woid, final.WorkOrderRef)
	assert.Equal(t, "BOM-PAPER-100GSM-001", final.BOMRef)
	assert.Len(t, final.StockEntries, 2)
}

func TestCreateQuotation_RequiresSent(t *testing.T) {
	f := newFixture(t, estimation.StatusDraft)

	_, err := f.orch.CreateQuotation(context.Background(), "WOE-00001")
	require.ErrorIs(t, err, estimation.ErrInvalidTransition)
	assert.Empty(t, f.docs.created)
	assert.Equal(t, estimation.StatusDraft, f.status(t))
}

func TestCreateQuotation_SecondCallRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, estimation.StatusSent)

	_, err := f.orch.CreateQuotation(ctx, "WOE-00001")
	require.NoError(t, err)

	_, err = f.orch.CreateQuotation(ctx, "WOE-00001")
	require.ErrorIs(t, err, estimation.ErrInvalidTransition)
	assert.Equal(t, []string{KindQuotation}, f.docs.created)
}

func TestCreateSalesOrder_RequiresOpenQuotation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, estimation.StatusSent)

	_, err := f.orch.CreateQuotation(ctx, "WOE-00001")
	require.NoError(t, err)

	_, err = f.orch.CreateSalesOrder(ctx, "WOE-00001")
	require.ErrorIs(t, err, estimation.ErrInvalidTransition)
	assert.Equal(t, estimation.StatusConvertedToQuotation, f.status(t))
}

func TestCreateWorkOrder_MissingBOMLeavesStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, estimation.StatusSent)

	qid, err := f.orch.CreateQuotation(ctx, "WOE-00001")
	require.NoError(t, err)
	f.docs.setStatus(KindQuotation, qid, QuotationOpen)
	_, err = f.orch.CreateSalesOrder(ctx, "WOE-00001")
	require.NoError(t, err)

	_, err = f.orch.CreateWorkOrder(ctx, "WOE-00001")
	require.ErrorIs(t, err, ErrMissingBOM)
	assert.Equal(t, estimation.StatusSalesOrderCreated, f.status(t))
	assert.NotContains(t, f.docs.created, KindWorkOrder)
}

func TestCreateWorkOrder_FallsBackToAnyActiveBOM(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, estimation.StatusSent)
	f.boms.boms = append(f.boms.boms,
		BOM{ID: "BOM-OLD", Item: "PAPER-100GSM", IsActive: false, IsDefault: true},
		BOM{ID: "BOM-ALT", Item: "PAPER-100GSM", IsActive: true},
	)

	qid, err := f.orch.CreateQuotation(ctx, "WOE-00001")
	require.NoError(t, err)
	f.docs.setStatus(KindQuotation, qid, QuotationOpen)
	_, err = f.orch.CreateSalesOrder(ctx, "WOE-00001")
	require.NoError(t, err)

	_, err = f.orch.CreateWorkOrder(ctx, "WOE-00001")
	require.NoError(t, err)
	assert.Equal(t, "BOM-ALT", f.records.records["WOE-00001"].BOMRef)
}

func TestCreateStockEntries_RequiresCompletedWorkOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, estimation.StatusSent)
	f.boms.boms = append(f.boms.boms, BOM{ID: "BOM-1", Item: "PAPER-100GSM", IsActive: true, IsDefault: true})

	qid, err := f.orch.CreateQuotation(ctx, "WOE-00001")
	require.NoError(t, err)
	f.docs.setStatus(KindQuotation, qid, QuotationOpen)
	_, err = f.orch.CreateSalesOrder(ctx, "WOE-00001")
	require.NoError(t, err)
	_, err = f.orch.CreateWorkOrder(ctx, "WOE-00001")
	require.NoError(t, err)

	_, err = f.orch.CreateStockEntries(ctx, "WOE-00001")
	require.ErrorIs(t, err, estimation.ErrInvalidTransition)
	assert.Equal(t, estimation.StatusWorkOrderCreated, f.status(t))
}

func TestDependencyFailure_ReportsGenericMessage(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	f := newFixture(t, estimation.StatusSent)
	f.docs.failOn = KindQuotation

	_, err := f.orch.CreateQuotation(context.Background(), "WOE-00001")
	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, "Error converting to quotation. Please try again.", depErr.UserMessage())
	assert.Equal(t, estimation.StatusSent, f.status(t))
	assert.Contains(t, buf.String(), "pipeline step failed")
	assert.Equal(t, 1, strings.Count(buf.String(), "estimation=WOE-00001"))
}

func TestDependencyFailure_TruncatesLoggedDetail(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	o := &Orchestrator{}
	long := strings.Repeat("x", 250)
	err := o.fail(context.Background(), OpWorkOrder, "WOE-00009", errors.New(long))

	require.Error(t, err)
	assert.Contains(t, buf.String(), `"detail":"`+strings.Repeat("x", detailLimit)+`"`)
	assert.NotContains(t, buf.String(), strings.Repeat("x", detailLimit+1))
}

func TestGet_NotFoundPassesThrough(t *testing.T) {
	f := newFixture(t, estimation.StatusDraft)

	_, err := f.orch.Submit(context.Background(), "WOE-00404")
	require.ErrorIs(t, err, estimation.ErrNotFound)
	var depErr *DependencyError
	assert.False(t, errors.As(err, &depErr))
}

func TestCancel_FromSent(t *testing.T) {
	f := newFixture(t, estimation.StatusSent)

	e, err := f.orch.Cancel(context.Background(), "WOE-00001")
	require.NoError(t, err)
	assert.Equal(t, estimation.StatusCancelled, e.Status)

	_, err = f.orch.Submit(context.Background(), "WOE-00001")
	require.ErrorIs(t, err, estimation.ErrInvalidTransition)
}

func TestAutoFetchRate(t *testing.T) {
	f := newFixture(t, estimation.StatusDraft)

	e, err := f.orch.AutoFetchRate(context.Background(), "WOE-00001")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("92.5").Equal(e.Input.RatePerKg))
	assert.True(t, decimal.RequireFromString("3399.375").Equal(e.Result.TotalPaperCost), "got %s", e.Result.TotalPaperCost)
}

func TestAutoFetchRate_UnknownPaper(t *testing.T) {
	f := newFixture(t, estimation.StatusDraft)
	rec := f.records.records["WOE-00001"]
	rec.PaperType = "UNKNOWN"
	f.records.records["WOE-00001"] = rec

	_, err := f.orch.AutoFetchRate(context.Background(), "WOE-00001")
	require.ErrorIs(t, err, ErrNoValuationRate)
}

func TestAutoFetchRate_LockedAfterSubmit(t *testing.T) {
	f := newFixture(t, estimation.StatusSent)

	_, err := f.orch.AutoFetchRate(context.Background(), "WOE-00001")
	require.ErrorIs(t, err, estimation.ErrLocked)
}

func TestCreateSampleBOM_ReusesExisting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, estimation.StatusDraft)

	id, created, err := f.orch.CreateSampleBOM(ctx, "WOE-00001")
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, f.boms.boms, 1)
	assert.Equal(t, "Kg", f.boms.boms[0].Items[0].UOM)

	again, created, err := f.orch.CreateSampleBOM(ctx, "WOE-00001")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)
	assert.Len(t, f.boms.boms, 1)
}

func TestFlowSummary_ToleratesMissingDocuments(t *testing.T) {
	f := newFixture(t, estimation.StatusSalesOrderCreated)
	rec := f.records.records["WOE-00001"]
	rec.QuotationRef = "Quotation-404"
	rec.SalesOrderRef = "Sales Order-404"
	f.records.records["WOE-00001"] = rec

	flow, err := f.orch.FlowSummary(context.Background(), "WOE-00001")
	require.NoError(t, err)
	assert.Equal(t, "WOE-00001", flow.Estimation.Name)
	assert.Equal(t, "3675.00", flow.Estimation.SalesPrice)
	assert.Nil(t, flow.Quotation)
	assert.Nil(t, flow.SalesOrder)
	assert.Nil(t, flow.WorkOrder)
}

func TestQuotationFields_LineAmountsMatchGrandTotal(t *testing.T) {
	e := &estimation.Estimation{
		Name:      "WOE-00002",
		PaperType: "KRAFT-120GSM",
		Result: estimation.Result{
			Quantity:   6,
			SalesPrice: decimal.NewFromInt(100),
			Items: []estimation.ItemResult{
				{ItemCode: "BAG-S", Quantity: 3},
				{ItemCode: "BAG-L", Quantity: 3},
			},
		},
	}

	fields := quotationFields(e, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))

	lines := fields["items"].([]map[string]any)
	require.Len(t, lines, 2)
	total := decimal.Zero
	for _, l := range lines {
		assert.Equal(t, "16.67", l["rate"].(decimal.Decimal).String())
		total = total.Add(l["amount"].(decimal.Decimal))
	}
	assert.Equal(t, "50.01", lines[0]["amount"].(decimal.Decimal).String())
	assert.Equal(t, "49.99", lines[1]["amount"].(decimal.Decimal).String())
	assert.True(t, total.Equal(decimal.NewFromInt(100)), "sum of amounts = %s", total)
	assert.Equal(t, "2026-10-31", fields["valid_till"])
}
