package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/printcost/internal/db"
	"github.com/Simplici0/printcost/internal/estimation"
	"github.com/Simplici0/printcost/internal/migrations"
	"github.com/Simplici0/printcost/internal/pipeline"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "store-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.Up(database.DB))
	return database
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newEstimation(t *testing.T) *estimation.Estimation {
	t.Helper()

	rate, free := dec("1.2"), dec("0")
	e := &estimation.Estimation{
		ProjectName: "Gift bags",
		ClientName:  "Acme Retail",
		PaperType:   "PAPER-100GSM",
		Input: estimation.Input{
			Sheet: estimation.Sheet{
				GSM:             dec("100"),
				LengthCM:        dec("50"),
				WidthCM:         dec("70"),
				Quantity:        1000,
				WastePercentage: dec("5"),
				RatePerKg:       dec("80"),
			},
			ProfitMargin: dec("25"),
			Processes: []estimation.ProcessLine{
				{ProcessType: "Printing", Workstation: "Offset Press", Rate: &rate, Qty: dec("1000")},
				{ProcessType: "Lamination", Workstation: "Laminator", Rate: &free, Qty: dec("1000")},
			},
		},
	}
	require.NoError(t, e.Recompute())
	return e
}

func TestEstimations_CreateAssignsName(t *testing.T) {
	repo := NewEstimations(openTestDB(t))
	ctx := context.Background()

	first := newEstimation(t)
	require.NoError(t, repo.Create(ctx, first))
	second := newEstimation(t)
	require.NoError(t, repo.Create(ctx, second))

	assert.Equal(t, "WOE-00001", first.Name)
	assert.Equal(t, "WOE-00002", second.Name)
	assert.Equal(t, estimation.StatusDraft, first.Status)
	assert.False(t, first.CreatedAt.IsZero())
}

func TestEstimations_RoundTrip(t *testing.T) {
	repo := NewEstimations(openTestDB(t))
	ctx := context.Background()

	e := newEstimation(t)
	require.NoError(t, repo.Create(ctx, e))

	got, err := repo.Get(ctx, e.Name)
	require.NoError(t, err)

	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "Acme Retail", got.ClientName)
	assert.True(t, got.Input.GSM.Equal(dec("100")))
	assert.Equal(t, int64(1000), got.Input.Quantity)
	require.Len(t, got.Input.Processes, 2)
	require.NotNil(t, got.Input.Processes[0].Rate)
	assert.True(t, got.Input.Processes[0].Rate.Equal(dec("1.2")))
	require.NotNil(t, got.Input.Processes[1].Rate)
	assert.True(t, got.Input.Processes[1].Rate.IsZero())
	assert.Nil(t, got.Input.SalesPrice)

	assert.True(t, got.Result.TotalPaperCost.Equal(dec("2940")))
	assert.True(t, got.Result.TotalProcessCost.Equal(dec("1200")))
	assert.True(t, got.Result.TotalCost.Equal(dec("4140")))
	assert.True(t, got.Result.SalesPrice.Equal(dec("5175")))
	assert.True(t, got.Result.Processes[0].TotalCost.Equal(dec("1200")))

	recomputed := *got
	require.NoError(t, recomputed.Recompute())
	assert.Empty(t, recomputed.Result.Warnings)
	assert.True(t, recomputed.Result.SalesPrice.Equal(got.Result.SalesPrice))
}

func TestEstimations_SaveReplacesChildren(t *testing.T) {
	repo := NewEstimations(openTestDB(t))
	ctx := context.Background()

	e := newEstimation(t)
	require.NoError(t, repo.Create(ctx, e))

	in := e.Input
	in.Processes = in.Processes[:1]
	in.Items = []estimation.Item{{
		Sheet:    estimation.Sheet{GSM: dec("80"), LengthCM: dec("30"), WidthCM: dec("40"), Quantity: 500, RatePerKg: dec("70")},
		ItemCode: "BAG-S",
		Addons:   []estimation.Addon{{Type: estimation.AddonHandle, HandleItem: "ROPE-HANDLE"}},
	}}
	require.NoError(t, e.SetInput(in))
	require.NoError(t, e.Submit())
	e.StockEntries = []estimation.StockEntryRef{{ID: "STE-1", Type: pipeline.StockEntryConsumption}}
	require.NoError(t, repo.Save(ctx, e))

	got, err := repo.Get(ctx, e.Name)
	require.NoError(t, err)
	assert.Equal(t, estimation.StatusSent, got.Status)
	assert.Len(t, got.Input.Processes, 1)
	require.Len(t, got.Input.Items, 1)
	assert.Equal(t, "ROPE-HANDLE", got.Input.Items[0].Addons[0].HandleItem)
	require.Len(t, got.Result.Items, 1)
	assert.True(t, got.Result.Items[0].TotalWeightKg.Equal(dec("4.8")), "got %s", got.Result.Items[0].TotalWeightKg)
	assert.Equal(t, e.StockEntries, got.StockEntries)
}

func TestEstimations_GetMissing(t *testing.T) {
	repo := NewEstimations(openTestDB(t))

	_, err := repo.Get(context.Background(), "WOE-09999")
	require.ErrorIs(t, err, estimation.ErrNotFound)
}

func TestEstimations_SalesPriceOverride(t *testing.T) {
	repo := NewEstimations(openTestDB(t))
	ctx := context.Background()

	e := newEstimation(t)
	price := dec("4999.99")
	e.Input.SalesPrice = &price
	require.NoError(t, e.Recompute())
	require.NoError(t, repo.Create(ctx, e))

	got, err := repo.Get(ctx, e.Name)
	require.NoError(t, err)
	require.NotNil(t, got.Input.SalesPrice)
	assert.True(t, got.Input.SalesPrice.Equal(price))
	assert.True(t, got.Result.SalesPrice.Equal(price))
}

func TestDocuments_CreateGetSave(t *testing.T) {
	docs := NewDocuments(openTestDB(t))
	ctx := context.Background()

	id, err := docs.Create(ctx, pipeline.KindQuotation, map[string]any{
		"party_name":  "Acme Retail",
		"grand_total": dec("3675"),
		"status":      "Draft",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^QTN-[0-9A-F]{8}$`, id)

	doc, err := docs.Get(ctx, pipeline.KindQuotation, id)
	require.NoError(t, err)
	assert.Equal(t, "Draft", doc.Status)
	assert.Equal(t, "Acme Retail", doc.Fields["party_name"])
	assert.Equal(t, "3675", doc.Fields["grand_total"])
	assert.NotContains(t, doc.Fields, "status")

	doc, err = docs.SetStatus(ctx, pipeline.KindQuotation, id, pipeline.QuotationOpen)
	require.NoError(t, err)
	assert.Equal(t, pipeline.QuotationOpen, doc.Status)

	doc, err = docs.Get(ctx, pipeline.KindQuotation, id)
	require.NoError(t, err)
	assert.Equal(t, pipeline.QuotationOpen, doc.Status)
}

func TestDocuments_WrongKindIsNotFound(t *testing.T) {
	docs := NewDocuments(openTestDB(t))
	ctx := context.Background()

	id, err := docs.Create(ctx, pipeline.KindSalesOrder, map[string]any{})
	require.NoError(t, err)

	_, err = docs.Get(ctx, pipeline.KindWorkOrder, id)
	require.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = docs.Create(ctx, "Invoice", map[string]any{})
	require.Error(t, err)
}

func TestCatalog_ValuationRate(t *testing.T) {
	database := openTestDB(t)
	_, err := database.Exec(`INSERT INTO items (item_code, item_name, valuation_rate) VALUES
		('PAPER-80GSM', '80 GSM Paper', '72.5'),
		('KRAFT-NORATE', 'Kraft without rate', NULL)`)
	require.NoError(t, err)

	catalog := NewCatalog(database)
	ctx := context.Background()

	rate, found, err := catalog.ValuationRate(ctx, "PAPER-80GSM")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, rate.Equal(dec("72.5")))

	_, found, err = catalog.ValuationRate(ctx, "KRAFT-NORATE")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = catalog.ValuationRate(ctx, "MISSING")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBOMs_LookupOrder(t *testing.T) {
	boms := NewBOMs(openTestDB(t))
	ctx := context.Background()

	none, err := boms.FindAnyActive(ctx, "PAPER-100GSM")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = boms.Create(ctx, pipeline.BOM{ID: "BOM-INACTIVE", Item: "PAPER-100GSM", IsDefault: true})
	require.NoError(t, err)
	_, err = boms.Create(ctx, pipeline.BOM{ID: "BOM-ACTIVE", Item: "PAPER-100GSM", IsActive: true})
	require.NoError(t, err)

	def, err := boms.FindActiveDefault(ctx, "PAPER-100GSM")
	require.NoError(t, err)
	assert.Nil(t, def)

	active, err := boms.FindAnyActive(ctx, "PAPER-100GSM")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "BOM-ACTIVE", active.ID)

	id, err := boms.Create(ctx, pipeline.BOM{
		Item:      "PAPER-100GSM",
		IsActive:  true,
		IsDefault: true,
		Items:     []pipeline.BOMItem{{ItemCode: "PAPER-100GSM", Qty: dec("1"), Rate: dec("80"), UOM: "Kg"}},
	})
	require.NoError(t, err)

	def, err = boms.FindActiveDefault(ctx, "PAPER-100GSM")
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, id, def.ID)
	require.Len(t, def.Items, 1)
	assert.True(t, def.Items[0].Rate.Equal(dec("80")))
}
