package seed

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Time layout of created_at columns.
const timeLayout = "2006-01-02 15:04:05"

type paperItem struct {
	code string
	name string
	rate string
}

var defaultPapers = []paperItem{
	{code: "PAPER-80GSM", name: "Maplitho 80 GSM", rate: "72.50"},
	{code: "PAPER-100GSM", name: "Art Paper 100 GSM", rate: "80.00"},
	{code: "KRAFT-120GSM", name: "Brown Kraft 120 GSM", rate: "65.00"},
}

const (
	defaultBOMID   = "BOM-PAPER-100GSM-001"
	defaultBOMItem = "PAPER-100GSM"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	now := time.Now().UTC().Format(timeLayout)

	for _, p := range defaultPapers {
		if err := ensureItem(tx, p, now, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	if err := ensureDefaultBOM(tx, now, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureItem(tx *sql.Tx, p paperItem, now string, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM items WHERE item_code = ? LIMIT 1)`, p.code).Scan(&exists); err != nil {
		return fmt.Errorf("check item %s existence: %w", p.code, err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO items (item_code, item_name, stock_uom, valuation_rate, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.code, p.name, "Kg", p.rate, now); err != nil {
		return fmt.Errorf("insert item %s: %w", p.code, err)
	}
	stats.Inserts++
	return nil
}

func ensureDefaultBOM(tx *sql.Tx, now string, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`
		SELECT EXISTS(
			SELECT 1
			FROM boms
			WHERE item_code = ? AND is_active = 1 AND is_default = 1
			LIMIT 1
		)
	`, defaultBOMItem).Scan(&exists); err != nil {
		return fmt.Errorf("check default bom existence: %w", err)
	}
	if exists {
		return nil
	}

	items, err := json.Marshal([]map[string]any{
		{"item_code": defaultBOMItem, "qty": "1", "rate": "80.00", "uom": "Kg"},
	})
	if err != nil {
		return fmt.Errorf("encode default bom items: %w", err)
	}
	ops, err := json.Marshal([]map[string]any{
		{"operation": "Printing", "workstation": "Offset Press", "time_in_mins": 60},
	})
	if err != nil {
		return fmt.Errorf("encode default bom operations: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO boms (id, item_code, is_active, is_default, items_json, operations_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, defaultBOMID, defaultBOMItem, true, true, string(items), string(ops), now); err != nil {
		return fmt.Errorf("insert default bom: %w", err)
	}
	stats.Inserts++
	return nil
}
