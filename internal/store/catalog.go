package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/printcost/internal/pipeline"
)

// Catalog reads item master data.
type Catalog struct {
	db *sqlx.DB
}

func NewCatalog(db *sqlx.DB) *Catalog {
	return &Catalog{db: db}
}

// ValuationRate returns the valuation rate of an item. found is false when
// the item is unknown or has no rate.
func (c *Catalog) ValuationRate(ctx context.Context, itemCode string) (decimal.Decimal, bool, error) {
	var rate decimal.NullDecimal
	err := c.db.GetContext(ctx, &rate, `SELECT valuation_rate FROM items WHERE item_code = ?`, itemCode)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("get valuation rate of %s: %w", itemCode, err)
	}
	if !rate.Valid {
		return decimal.Zero, false, nil
	}
	return rate.Decimal, true, nil
}

type bomRow struct {
	ID             string `db:"id"`
	ItemCode       string `db:"item_code"`
	IsActive       bool   `db:"is_active"`
	IsDefault      bool   `db:"is_default"`
	ItemsJSON      string `db:"items_json"`
	OperationsJSON string `db:"operations_json"`
	CreatedAt      string `db:"created_at"`
}

// BOMs is the SQLite repository of bills of materials.
type BOMs struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewBOMs(db *sqlx.DB) *BOMs {
	return &BOMs{db: db, now: time.Now}
}

// FindActiveDefault returns the newest active default BOM of an item, or nil.
func (s *BOMs) FindActiveDefault(ctx context.Context, itemCode string) (*pipeline.BOM, error) {
	return s.findOne(ctx, `
		SELECT * FROM boms
		WHERE item_code = ? AND is_active = 1 AND is_default = 1
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, itemCode)
}

// FindAnyActive returns an active BOM of an item, preferring defaults, or nil.
func (s *BOMs) FindAnyActive(ctx context.Context, itemCode string) (*pipeline.BOM, error) {
	return s.findOne(ctx, `
		SELECT * FROM boms
		WHERE item_code = ? AND is_active = 1
		ORDER BY is_default DESC, created_at DESC, rowid DESC LIMIT 1`, itemCode)
}

func (s *BOMs) findOne(ctx context.Context, query, itemCode string) (*pipeline.BOM, error) {
	var row bomRow
	err := s.db.GetContext(ctx, &row, query, itemCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find bom for %s: %w", itemCode, err)
	}

	bom := &pipeline.BOM{
		ID:        row.ID,
		Item:      row.ItemCode,
		IsActive:  row.IsActive,
		IsDefault: row.IsDefault,
	}
	if err := json.Unmarshal([]byte(row.ItemsJSON), &bom.Items); err != nil {
		return nil, fmt.Errorf("decode items of bom %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.OperationsJSON), &bom.Operations); err != nil {
		return nil, fmt.Errorf("decode operations of bom %s: %w", row.ID, err)
	}
	return bom, nil
}

// Create inserts bom and returns its id. An empty ID is generated from the item.
func (s *BOMs) Create(ctx context.Context, bom pipeline.BOM) (string, error) {
	if bom.ID == "" {
		bom.ID = "BOM-" + bom.Item + "-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if bom.Items == nil {
		bom.Items = []pipeline.BOMItem{}
	}
	if bom.Operations == nil {
		bom.Operations = []pipeline.BOMOperation{}
	}
	items, err := json.Marshal(bom.Items)
	if err != nil {
		return "", fmt.Errorf("encode bom items: %w", err)
	}
	ops, err := json.Marshal(bom.Operations)
	if err != nil {
		return "", fmt.Errorf("encode bom operations: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO boms (id, item_code, is_active, is_default, items_json, operations_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bom.ID, bom.Item, bom.IsActive, bom.IsDefault, string(items), string(ops),
		s.now().UTC().Format(TimeLayout)); err != nil {
		return "", fmt.Errorf("insert bom %s: %w", bom.ID, err)
	}
	return bom.ID, nil
}
