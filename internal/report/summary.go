// Package report projects stored estimations into summaries, cost breakdowns
// and downloadable exports.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Filter narrows the summary. Zero values leave a dimension unfiltered;
// From and To compare whole days of the creation date.
type Filter struct {
	From   time.Time
	To     time.Time
	Status string
	Client string
}

// Row is one estimation in the summary report.
type Row struct {
	Name         string          `db:"name" json:"name"`
	ProjectName  string          `db:"project_name" json:"project_name"`
	ClientName   string          `db:"client_name" json:"client_name"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	TotalCost    decimal.Decimal `db:"total_cost" json:"total_cost"`
	CostPerUnit  decimal.Decimal `db:"cost_per_unit" json:"cost_per_unit"`
	ProfitMargin decimal.Decimal `db:"profit_margin" json:"profit_margin"`
	MarginAmount decimal.Decimal `db:"margin_amount" json:"margin_amount"`
	SalesPrice   decimal.Decimal `db:"sales_price" json:"sales_price"`
	Status       string          `db:"status" json:"status"`
	Created      string          `db:"created_at" json:"creation"`
	DeliveryDate string          `db:"delivery_date" json:"delivery_date"`
}

// Reports reads estimation projections.
type Reports struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Reports {
	return &Reports{db: db}
}

// Summary lists estimations matching f, newest first.
func (r *Reports) Summary(ctx context.Context, f Filter) ([]Row, error) {
	var (
		where []string
		args  []any
	)
	if !f.From.IsZero() {
		where = append(where, "substr(created_at, 1, 10) >= ?")
		args = append(args, f.From.Format(time.DateOnly))
	}
	if !f.To.IsZero() {
		where = append(where, "substr(created_at, 1, 10) <= ?")
		args = append(args, f.To.Format(time.DateOnly))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Client != "" {
		where = append(where, "client_name = ?")
		args = append(args, f.Client)
	}

	query := `
		SELECT name, project_name, client_name, total_quantity AS quantity, total_cost, cost_per_unit,
			profit_margin, margin_amount, sales_price, status, created_at, delivery_date
		FROM estimations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows := []Row{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query estimation summary: %w", err)
	}
	return rows, nil
}
