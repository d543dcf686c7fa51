package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Simplici0/printcost/internal/pipeline"
)

// ErrDocumentNotFound is returned when no document matches kind and id.
var ErrDocumentNotFound = errors.New("document not found")

var kindPrefixes = map[string]string{
	pipeline.KindQuotation:  "QTN",
	pipeline.KindSalesOrder: "SO",
	pipeline.KindWorkOrder:  "WO",
	pipeline.KindStockEntry: "STE",
}

type documentRow struct {
	ID         string `db:"id"`
	Kind       string `db:"kind"`
	Status     string `db:"status"`
	FieldsJSON string `db:"fields_json"`
	CreatedAt  string `db:"created_at"`
	UpdatedAt  string `db:"updated_at"`
}

// Documents stores quotations, sales orders, work orders and stock entries
// as typed JSON blobs.
type Documents struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewDocuments(db *sqlx.DB) *Documents {
	return &Documents{db: db, now: time.Now}
}

// Create inserts a document and returns its generated id.
func (s *Documents) Create(ctx context.Context, kind string, fields map[string]any) (string, error) {
	prefix, ok := kindPrefixes[kind]
	if !ok {
		return "", fmt.Errorf("create document: unknown kind %q", kind)
	}

	fields = maps.Clone(fields)
	status := "Draft"
	if s, ok := fields["status"].(string); ok && s != "" {
		status = s
	}
	delete(fields, "status")

	body, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode %s fields: %w", kind, err)
	}

	id := prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
	now := s.now().UTC().Format(TimeLayout)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, kind, status, fields_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, kind, status, string(body), now, now); err != nil {
		return "", fmt.Errorf("insert %s: %w", kind, err)
	}
	return id, nil
}

// Get loads a document of the given kind.
func (s *Documents) Get(ctx context.Context, kind, id string) (pipeline.Document, error) {
	var row documentRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM documents WHERE kind = ? AND id = ?`, kind, id)
	if errors.Is(err, sql.ErrNoRows) {
		return pipeline.Document{}, fmt.Errorf("get %s %s: %w", kind, id, ErrDocumentNotFound)
	}
	if err != nil {
		return pipeline.Document{}, fmt.Errorf("get %s %s: %w", kind, id, err)
	}

	doc := pipeline.Document{Kind: row.Kind, ID: row.ID, Status: row.Status}
	if err := json.Unmarshal([]byte(row.FieldsJSON), &doc.Fields); err != nil {
		return pipeline.Document{}, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return doc, nil
}

// Save overwrites the status and fields of an existing document.
func (s *Documents) Save(ctx context.Context, doc pipeline.Document) error {
	body, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("encode %s fields: %w", doc.Kind, err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, fields_json = ?, updated_at = ? WHERE kind = ? AND id = ?`,
		doc.Status, string(body), s.now().UTC().Format(TimeLayout), doc.Kind, doc.ID)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", doc.Kind, doc.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update %s %s: %w", doc.Kind, doc.ID, ErrDocumentNotFound)
	}
	return nil
}

// SetStatus moves a document to status, standing in for the workflow of the
// document owner.
func (s *Documents) SetStatus(ctx context.Context, kind, id, status string) (pipeline.Document, error) {
	doc, err := s.Get(ctx, kind, id)
	if err != nil {
		return pipeline.Document{}, err
	}
	doc.Status = status
	if err := s.Save(ctx, doc); err != nil {
		return pipeline.Document{}, err
	}
	return doc, nil
}
