package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/printcost/internal/estimation"
)

var errUnavailable = errors.New("document store unavailable")

type memEstimations struct {
	records map[string]estimation.Estimation
	saves   int
}

func (m *memEstimations) Get(_ context.Context, name string) (*estimation.Estimation, error) {
	e, ok := m.records[name]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", name, estimation.ErrNotFound)
	}
	return &e, nil
}

func (m *memEstimations) Save(_ context.Context, e *estimation.Estimation) error {
	m.records[e.Name] = *e
	m.saves++
	return nil
}

type memDocuments struct {
	docs    map[string]Document
	seq     int
	failOn  string
	created []string
}

func newMemDocuments() *memDocuments {
	return &memDocuments{docs: map[string]Document{}}
}

func (m *memDocuments) Create(_ context.Context, kind string, fields map[string]any) (string, error) {
	if kind == m.failOn {
		return "", errUnavailable
	}
	m.seq++
	id := fmt.Sprintf("%s-%03d", kind, m.seq)
	status, _ := fields["status"].(string)
	if status == "" {
		status = "Draft"
	}
	m.docs[kind+"/"+id] = Document{Kind: kind, ID: id, Status: status, Fields: fields}
	m.created = append(m.created, kind)
	return id, nil
}

func (m *memDocuments) Get(_ context.Context, kind, id string) (Document, error) {
	doc, ok := m.docs[kind+"/"+id]
	if !ok {
		return Document{}, fmt.Errorf("%s %s not found", kind, id)
	}
	return doc, nil
}

func (m *memDocuments) Save(_ context.Context, doc Document) error {
	m.docs[doc.Kind+"/"+doc.ID] = doc
	return nil
}

func (m *memDocuments) setStatus(kind, id, status string) {
	doc := m.docs[kind+"/"+id]
	doc.Status = status
	m.docs[kind+"/"+id] = doc
}

type memCatalog map[string]decimal.Decimal

func (m memCatalog) ValuationRate(_ context.Context, item string) (decimal.Decimal, bool, error) {
	rate, ok := m[item]
	return rate, ok, nil
}

type memBOMs struct {
	boms []BOM
}

func (m *memBOMs) FindActiveDefault(_ context.Context, item string) (*BOM, error) {
	for i := range m.boms {
		if m.boms[i].Item == item && m.boms[i].IsActive && m.boms[i].IsDefault {
			return &m.boms[i], nil
		}
	}
	return nil, nil
}

func (m *memBOMs) FindAnyActive(_ context.Context, item string) (*BOM, error) {
	for i := range m.boms {
		if m.boms[i].Item == item && m.boms[i].IsActive {
			return &m.boms[i], nil
		}
	}
	return nil, nil
}

func (m *memBOMs) Create(_ context.Context, bom BOM) (string, error) {
	bom.ID = fmt.Sprintf("BOM-%s-%03d", bom.Item, len(m.boms)+1)
	m.boms = append(m.boms, bom)
	return bom.ID, nil
}
