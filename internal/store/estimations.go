// Package store persists estimations, catalog data and downstream documents
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/printcost/internal/estimation"
)

// TimeLayout is how timestamps are written to TEXT columns.
const TimeLayout = "2006-01-02 15:04:05"

type estimationRow struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	ProjectName  string `db:"project_name"`
	ClientName   string `db:"client_name"`
	DeliveryDate string `db:"delivery_date"`
	PaperType    string `db:"paper_type"`
	Finish       string `db:"finish"`
	UrgencyLevel string `db:"urgency_level"`
	Notes        string `db:"notes"`
	Status       string `db:"status"`

	GSM             decimal.Decimal     `db:"gsm"`
	LengthCM        decimal.Decimal     `db:"length_cm"`
	WidthCM         decimal.Decimal     `db:"width_cm"`
	Quantity        int64               `db:"quantity"`
	WastePercentage decimal.Decimal     `db:"waste_percentage"`
	RatePerKg       decimal.Decimal     `db:"rate_per_kg"`
	ProfitMargin    decimal.Decimal     `db:"profit_margin"`
	SalesOverride   decimal.NullDecimal `db:"sales_price_override"`

	WeightPerPieceKg decimal.Decimal `db:"weight_per_piece_kg"`
	PiecesPerKg      decimal.Decimal `db:"pieces_per_kg"`
	NetWeightKg      decimal.Decimal `db:"net_weight_kg"`
	WasteKg          decimal.Decimal `db:"waste_kg"`
	TotalWeightKg    decimal.Decimal `db:"total_weight_kg"`
	TotalPaperCost   decimal.Decimal `db:"total_paper_cost"`
	CostPerPiece     decimal.Decimal `db:"cost_per_piece"`
	TotalQuantity    int64           `db:"total_quantity"`
	TotalProcessCost decimal.Decimal `db:"total_cost_for_operations"`
	TotalCost        decimal.Decimal `db:"total_cost"`
	CostPerUnit      decimal.Decimal `db:"cost_per_unit"`
	MarginAmount     decimal.Decimal `db:"margin_amount"`
	SalesPrice       decimal.Decimal `db:"sales_price"`
	WarningsJSON     string          `db:"warnings_json"`

	QuotationRef  string `db:"quotation_reference"`
	SalesOrderRef string `db:"sales_order_reference"`
	WorkOrderRef  string `db:"work_order_reference"`
	BOMRef        string `db:"bom_reference"`

	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

type processRow struct {
	EstimationID int64               `db:"estimation_id"`
	Position     int                 `db:"position"`
	ProcessType  string              `db:"process_type"`
	Workstation  string              `db:"workstation"`
	Details      string              `db:"details"`
	Rate         decimal.NullDecimal `db:"rate"`
	Qty          decimal.Decimal     `db:"qty"`
	TotalCost    decimal.Decimal     `db:"total_cost"`
}

type itemRow struct {
	EstimationID     int64           `db:"estimation_id"`
	Position         int             `db:"position"`
	ItemCode         string          `db:"item_code"`
	PaperType        string          `db:"paper_type"`
	Finish           string          `db:"finish"`
	GSM              decimal.Decimal `db:"gsm"`
	LengthCM         decimal.Decimal `db:"length_cm"`
	WidthCM          decimal.Decimal `db:"width_cm"`
	Quantity         int64           `db:"quantity"`
	WastePercentage  decimal.Decimal `db:"waste_percentage"`
	RatePerKg        decimal.Decimal `db:"rate_per_kg"`
	AddonsJSON       string          `db:"addons_json"`
	WeightPerPieceKg decimal.Decimal `db:"weight_per_piece_kg"`
	PiecesPerKg      decimal.Decimal `db:"pieces_per_kg"`
	NetWeightKg      decimal.Decimal `db:"net_weight_kg"`
	WasteKg          decimal.Decimal `db:"waste_kg"`
	TotalWeightKg    decimal.Decimal `db:"total_weight_kg"`
	TotalPaperCost   decimal.Decimal `db:"total_paper_cost"`
	CostPerPiece     decimal.Decimal `db:"cost_per_piece"`
}

type stockEntryRow struct {
	EstimationID int64  `db:"estimation_id"`
	ID           string `db:"stock_entry_id"`
	Type         string `db:"stock_entry_type"`
}

const estimationColumns = `
	project_name, client_name, delivery_date, paper_type, finish, urgency_level, notes, status,
	gsm, length_cm, width_cm, quantity, waste_percentage, rate_per_kg, profit_margin, sales_price_override,
	weight_per_piece_kg, pieces_per_kg, net_weight_kg, waste_kg, total_weight_kg, total_paper_cost,
	cost_per_piece, total_quantity, total_cost_for_operations, total_cost, cost_per_unit, margin_amount,
	sales_price, warnings_json,
	quotation_reference, sales_order_reference, work_order_reference, bom_reference,
	created_at, updated_at`

const estimationValues = `
	:project_name, :client_name, :delivery_date, :paper_type, :finish, :urgency_level, :notes, :status,
	:gsm, :length_cm, :width_cm, :quantity, :waste_percentage, :rate_per_kg, :profit_margin, :sales_price_override,
	:weight_per_piece_kg, :pieces_per_kg, :net_weight_kg, :waste_kg, :total_weight_kg, :total_paper_cost,
	:cost_per_piece, :total_quantity, :total_cost_for_operations, :total_cost, :cost_per_unit, :margin_amount,
	:sales_price, :warnings_json,
	:quotation_reference, :sales_order_reference, :work_order_reference, :bom_reference,
	:created_at, :updated_at`

const updateEstimationSQL = `
UPDATE estimations SET
	project_name = :project_name, client_name = :client_name, delivery_date = :delivery_date,
	paper_type = :paper_type, finish = :finish, urgency_level = :urgency_level, notes = :notes,
	status = :status,
	gsm = :gsm, length_cm = :length_cm, width_cm = :width_cm, quantity = :quantity,
	waste_percentage = :waste_percentage, rate_per_kg = :rate_per_kg, profit_margin = :profit_margin,
	sales_price_override = :sales_price_override,
	weight_per_piece_kg = :weight_per_piece_kg, pieces_per_kg = :pieces_per_kg,
	net_weight_kg = :net_weight_kg, waste_kg = :waste_kg, total_weight_kg = :total_weight_kg,
	total_paper_cost = :total_paper_cost, cost_per_piece = :cost_per_piece,
	total_quantity = :total_quantity, total_cost_for_operations = :total_cost_for_operations,
	total_cost = :total_cost, cost_per_unit = :cost_per_unit, margin_amount = :margin_amount,
	sales_price = :sales_price, warnings_json = :warnings_json,
	quotation_reference = :quotation_reference, sales_order_reference = :sales_order_reference,
	work_order_reference = :work_order_reference, bom_reference = :bom_reference,
	updated_at = :updated_at
WHERE id = :id`

// Estimations is the SQLite repository of estimation records.
type Estimations struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewEstimations returns a repository over db.
func NewEstimations(db *sqlx.DB) *Estimations {
	return &Estimations{db: db, now: time.Now}
}

// Create inserts e and assigns its id, name and timestamps.
func (s *Estimations) Create(ctx context.Context, e *estimation.Estimation) error {
	now := s.now().UTC().Truncate(time.Second)
	e.Status = e.Status.Normalize()
	e.CreatedAt, e.UpdatedAt = now, now

	row, err := toRow(e)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create estimation: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, `INSERT INTO estimations (`+estimationColumns+`) VALUES (`+estimationValues+`)`, row)
	if err != nil {
		return fmt.Errorf("insert estimation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read estimation id: %w", err)
	}
	name := estimation.FormatName(id)
	if _, err := tx.ExecContext(ctx, `UPDATE estimations SET name = ? WHERE id = ?`, name, id); err != nil {
		return fmt.Errorf("name estimation %d: %w", id, err)
	}

	e.ID, e.Name = id, name
	if err := writeChildren(ctx, tx, e); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create estimation: %w", err)
	}
	return nil
}

// Save updates e and replaces its process, item and stock entry rows.
func (s *Estimations) Save(ctx context.Context, e *estimation.Estimation) error {
	if e.ID == 0 {
		return fmt.Errorf("save estimation %q: missing id", e.Name)
	}
	e.UpdatedAt = s.now().UTC().Truncate(time.Second)

	row, err := toRow(e)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save estimation: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, updateEstimationSQL, row)
	if err != nil {
		return fmt.Errorf("update estimation %s: %w", e.Name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update estimation %s: %w", e.Name, estimation.ErrNotFound)
	}

	for _, table := range []string{"estimation_processes", "estimation_items", "estimation_stock_entries"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE estimation_id = ?`, e.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := writeChildren(ctx, tx, e); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save estimation: %w", err)
	}
	return nil
}

// Get loads an estimation by name.
func (s *Estimations) Get(ctx context.Context, name string) (*estimation.Estimation, error) {
	var row estimationRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM estimations WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get estimation %s: %w", name, estimation.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get estimation %s: %w", name, err)
	}

	var processes []processRow
	if err := s.db.SelectContext(ctx, &processes,
		`SELECT * FROM estimation_processes WHERE estimation_id = ? ORDER BY position`, row.ID); err != nil {
		return nil, fmt.Errorf("list processes of %s: %w", name, err)
	}
	var items []itemRow
	if err := s.db.SelectContext(ctx, &items,
		`SELECT * FROM estimation_items WHERE estimation_id = ? ORDER BY position`, row.ID); err != nil {
		return nil, fmt.Errorf("list items of %s: %w", name, err)
	}
	var entries []stockEntryRow
	if err := s.db.SelectContext(ctx, &entries,
		`SELECT * FROM estimation_stock_entries WHERE estimation_id = ? ORDER BY rowid`, row.ID); err != nil {
		return nil, fmt.Errorf("list stock entries of %s: %w", name, err)
	}

	return fromRows(row, processes, items, entries)
}

func writeChildren(ctx context.Context, tx *sqlx.Tx, e *estimation.Estimation) error {
	for i, p := range e.Input.Processes {
		row := processRow{
			EstimationID: e.ID,
			Position:     i,
			ProcessType:  p.ProcessType,
			Workstation:  p.Workstation,
			Details:      p.Details,
			Qty:          p.Qty,
			TotalCost:    p.TotalCost(),
		}
		if p.Rate != nil {
			row.Rate = decimal.NewNullDecimal(*p.Rate)
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO estimation_processes (estimation_id, position, process_type, workstation, details, rate, qty, total_cost)
			VALUES (:estimation_id, :position, :process_type, :workstation, :details, :rate, :qty, :total_cost)`, row); err != nil {
			return fmt.Errorf("insert process %d: %w", i, err)
		}
	}

	for i, it := range e.Input.Items {
		addons, err := json.Marshal(it.Addons)
		if err != nil {
			return fmt.Errorf("encode addons of item %d: %w", i, err)
		}
		row := itemRow{
			EstimationID:    e.ID,
			Position:        i,
			ItemCode:        it.ItemCode,
			PaperType:       it.PaperType,
			Finish:          it.Finish,
			GSM:             it.GSM,
			LengthCM:        it.LengthCM,
			WidthCM:         it.WidthCM,
			Quantity:        it.Quantity,
			WastePercentage: it.WastePercentage,
			RatePerKg:       it.RatePerKg,
			AddonsJSON:      string(addons),
		}
		if i < len(e.Result.Items) {
			m := e.Result.Items[i].PaperMetrics
			row.WeightPerPieceKg = m.WeightPerPieceKg
			row.PiecesPerKg = m.PiecesPerKg
			row.NetWeightKg = m.NetWeightKg
			row.WasteKg = m.WasteKg
			row.TotalWeightKg = m.TotalWeightKg
			row.TotalPaperCost = m.TotalPaperCost
			row.CostPerPiece = m.CostPerPiece
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO estimation_items (estimation_id, position, item_code, paper_type, finish, gsm, length_cm, width_cm,
				quantity, waste_percentage, rate_per_kg, addons_json, weight_per_piece_kg, pieces_per_kg, net_weight_kg,
				waste_kg, total_weight_kg, total_paper_cost, cost_per_piece)
			VALUES (:estimation_id, :position, :item_code, :paper_type, :finish, :gsm, :length_cm, :width_cm,
				:quantity, :waste_percentage, :rate_per_kg, :addons_json, :weight_per_piece_kg, :pieces_per_kg, :net_weight_kg,
				:waste_kg, :total_weight_kg, :total_paper_cost, :cost_per_piece)`, row); err != nil {
			return fmt.Errorf("insert item %d: %w", i, err)
		}
	}

	for _, se := range e.StockEntries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO estimation_stock_entries (estimation_id, stock_entry_id, stock_entry_type) VALUES (?, ?, ?)`,
			e.ID, se.ID, se.Type); err != nil {
			return fmt.Errorf("insert stock entry %s: %w", se.ID, err)
		}
	}
	return nil
}

func toRow(e *estimation.Estimation) (estimationRow, error) {
	warnings := e.Result.Warnings
	if warnings == nil {
		warnings = []estimation.Warning{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return estimationRow{}, fmt.Errorf("encode warnings: %w", err)
	}

	in, res := e.Input, e.Result
	row := estimationRow{
		ID:           e.ID,
		Name:         e.Name,
		ProjectName:  e.ProjectName,
		ClientName:   e.ClientName,
		DeliveryDate: e.DeliveryDate,
		PaperType:    e.PaperType,
		Finish:       e.Finish,
		UrgencyLevel: e.UrgencyLevel,
		Notes:        e.Notes,
		Status:       string(e.Status.Normalize()),

		GSM:             in.GSM,
		LengthCM:        in.LengthCM,
		WidthCM:         in.WidthCM,
		Quantity:        in.Quantity,
		WastePercentage: in.WastePercentage,
		RatePerKg:       in.RatePerKg,
		ProfitMargin:    in.ProfitMargin,

		WeightPerPieceKg: res.WeightPerPieceKg,
		PiecesPerKg:      res.PiecesPerKg,
		NetWeightKg:      res.NetWeightKg,
		WasteKg:          res.WasteKg,
		TotalWeightKg:    res.TotalWeightKg,
		TotalPaperCost:   res.TotalPaperCost,
		CostPerPiece:     res.CostPerPiece,
		TotalQuantity:    res.Quantity,
		TotalProcessCost: res.TotalProcessCost,
		TotalCost:        res.TotalCost,
		CostPerUnit:      res.CostPerUnit,
		MarginAmount:     res.MarginAmount,
		SalesPrice:       res.SalesPrice,
		WarningsJSON:     string(warningsJSON),

		QuotationRef:  e.QuotationRef,
		SalesOrderRef: e.SalesOrderRef,
		WorkOrderRef:  e.WorkOrderRef,
		BOMRef:        e.BOMRef,

		CreatedAt: e.CreatedAt.UTC().Format(TimeLayout),
		UpdatedAt: e.UpdatedAt.UTC().Format(TimeLayout),
	}
	if in.SalesPrice != nil {
		row.SalesOverride = decimal.NewNullDecimal(*in.SalesPrice)
	}
	return row, nil
}

func fromRows(row estimationRow, processes []processRow, items []itemRow, entries []stockEntryRow) (*estimation.Estimation, error) {
	e := &estimation.Estimation{
		ID:           row.ID,
		Name:         row.Name,
		ProjectName:  row.ProjectName,
		ClientName:   row.ClientName,
		DeliveryDate: row.DeliveryDate,
		PaperType:    row.PaperType,
		Finish:       row.Finish,
		UrgencyLevel: row.UrgencyLevel,
		Notes:        row.Notes,
		Status:       estimation.Status(row.Status).Normalize(),

		Input: estimation.Input{
			Sheet: estimation.Sheet{
				GSM:             row.GSM,
				LengthCM:        row.LengthCM,
				WidthCM:         row.WidthCM,
				Quantity:        row.Quantity,
				WastePercentage: row.WastePercentage,
				RatePerKg:       row.RatePerKg,
			},
			ProfitMargin: row.ProfitMargin,
		},
		Result: estimation.Result{
			PaperMetrics: estimation.PaperMetrics{
				WeightPerPieceKg: row.WeightPerPieceKg,
				PiecesPerKg:      row.PiecesPerKg,
				NetWeightKg:      row.NetWeightKg,
				WasteKg:          row.WasteKg,
				TotalWeightKg:    row.TotalWeightKg,
				TotalPaperCost:   row.TotalPaperCost,
				CostPerPiece:     row.CostPerPiece,
			},
			Quantity:         row.TotalQuantity,
			TotalProcessCost: row.TotalProcessCost,
			TotalCost:        row.TotalCost,
			CostPerUnit:      row.CostPerUnit,
			MarginAmount:     row.MarginAmount,
			SalesPrice:       row.SalesPrice,
		},

		QuotationRef:  row.QuotationRef,
		SalesOrderRef: row.SalesOrderRef,
		WorkOrderRef:  row.WorkOrderRef,
		BOMRef:        row.BOMRef,
	}
	if row.SalesOverride.Valid {
		price := row.SalesOverride.Decimal
		e.Input.SalesPrice = &price
	}
	if err := json.Unmarshal([]byte(row.WarningsJSON), &e.Result.Warnings); err != nil {
		return nil, fmt.Errorf("decode warnings of %s: %w", row.Name, err)
	}
	if len(e.Result.Warnings) == 0 {
		e.Result.Warnings = nil
	}
	e.CreatedAt, _ = time.Parse(TimeLayout, row.CreatedAt)
	e.UpdatedAt, _ = time.Parse(TimeLayout, row.UpdatedAt)

	for _, p := range processes {
		line := estimation.ProcessLine{
			ProcessType: p.ProcessType,
			Workstation: p.Workstation,
			Details:     p.Details,
			Qty:         p.Qty,
		}
		rate := decimal.Zero
		if p.Rate.Valid {
			r := p.Rate.Decimal
			line.Rate = &r
			rate = r
		}
		e.Input.Processes = append(e.Input.Processes, line)
		e.Result.Processes = append(e.Result.Processes, estimation.ProcessResult{
			ProcessType: p.ProcessType,
			Workstation: p.Workstation,
			Rate:        rate,
			Qty:         p.Qty,
			TotalCost:   p.TotalCost,
		})
	}

	for _, it := range items {
		item := estimation.Item{
			Sheet: estimation.Sheet{
				GSM:             it.GSM,
				LengthCM:        it.LengthCM,
				WidthCM:         it.WidthCM,
				Quantity:        it.Quantity,
				WastePercentage: it.WastePercentage,
				RatePerKg:       it.RatePerKg,
			},
			ItemCode:  it.ItemCode,
			PaperType: it.PaperType,
			Finish:    it.Finish,
		}
		if err := json.Unmarshal([]byte(it.AddonsJSON), &item.Addons); err != nil {
			return nil, fmt.Errorf("decode addons of %s item %d: %w", row.Name, it.Position, err)
		}
		e.Input.Items = append(e.Input.Items, item)
		e.Result.Items = append(e.Result.Items, estimation.ItemResult{
			PaperMetrics: estimation.PaperMetrics{
				WeightPerPieceKg: it.WeightPerPieceKg,
				PiecesPerKg:      it.PiecesPerKg,
				NetWeightKg:      it.NetWeightKg,
				WasteKg:          it.WasteKg,
				TotalWeightKg:    it.TotalWeightKg,
				TotalPaperCost:   it.TotalPaperCost,
				CostPerPiece:     it.CostPerPiece,
			},
			ItemCode:  it.ItemCode,
			PaperType: it.PaperType,
			Quantity:  it.Quantity,
		})
	}

	for _, se := range entries {
		e.StockEntries = append(e.StockEntries, estimation.StockEntryRef{ID: se.ID, Type: se.Type})
	}
	return e, nil
}
