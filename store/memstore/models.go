package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"github.com/fgacore/fgacore/pkg/model"
)

const modelsTable = "models"

type modelRecord struct {
	TenantID    string
	ModelID     string
	PublishedAt time.Time
	Model       *model.Model
}

func modelSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: modelsTable,
		Indexes: map[string]*memdb.IndexSchema{
			"id": {
				Name:   "id",
				Unique: true,
				Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
					&memdb.StringFieldIndex{Field: "TenantID"},
					&memdb.StringFieldIndex{Field: "ModelID"},
				}},
			},
			"tenant": {
				Name:    "tenant",
				Indexer: &memdb.StringFieldIndex{Field: "TenantID"},
			},
		},
	}
}

// GetLatest implements model.Store by scanning every version published for
// tenantID and keeping the one with the newest PublishedAt. go-memdb has no
// built-in "max" query, so this walks the tenant index once per call —
// acceptable for the small number of model versions any one tenant
// realistically publishes.
func (s *Store) GetLatest(_ context.Context, tenantID string) (string, *model.Model, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(modelsTable, "tenant", tenantID)
	if err != nil {
		return "", nil, fmt.Errorf("memstore: scanning models: %w", err)
	}

	var latest *modelRecord
	for raw := it.Next(); raw != nil; raw = it.Next() {
		rec := raw.(modelRecord)
		if latest == nil || rec.PublishedAt.After(latest.PublishedAt) {
			r := rec
			latest = &r
		}
	}
	if latest == nil {
		return "", nil, notFoundError{tenantID: tenantID}
	}
	return latest.ModelID, latest.Model, nil
}

// Get implements model.Store.
func (s *Store) Get(_ context.Context, tenantID, modelID string) (*model.Model, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(modelsTable, "id", tenantID, modelID)
	if err != nil {
		return nil, fmt.Errorf("memstore: looking up model: %w", err)
	}
	if raw == nil {
		return nil, notFoundError{tenantID: tenantID, modelID: modelID}
	}
	return raw.(modelRecord).Model, nil
}

// Save implements model.Store, assigning a random model ID when m.ModelID is
// empty.
func (s *Store) Save(_ context.Context, m *model.Model) (string, error) {
	modelID := m.ModelID
	if modelID == "" {
		modelID = uuid.NewString()
	}
	stored := *m
	stored.ModelID = modelID

	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(modelsTable, modelRecord{
		TenantID:    m.TenantID,
		ModelID:     modelID,
		PublishedAt: time.Now(),
		Model:       &stored,
	}); err != nil {
		return "", fmt.Errorf("memstore: saving model: %w", err)
	}
	txn.Commit()
	return modelID, nil
}

// List implements model.Store, returning every published model ID for
// tenantID ordered oldest first.
func (s *Store) List(_ context.Context, tenantID string, page model.Page) ([]string, *int, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(modelsTable, "tenant", tenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("memstore: scanning models: %w", err)
	}

	var recs []modelRecord
	for raw := it.Next(); raw != nil; raw = it.Next() {
		recs = append(recs, raw.(modelRecord))
	}
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j-1].PublishedAt.After(recs[j].PublishedAt); j-- {
			recs[j-1], recs[j] = recs[j], recs[j-1]
		}
	}

	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ModelID
	}

	if page.PageSize <= 0 || len(ids) <= page.PageSize {
		total := len(ids)
		return ids, &total, nil
	}
	total := len(ids)
	return ids[:page.PageSize], &total, nil
}

type notFoundError struct {
	tenantID string
	modelID  string
}

func (e notFoundError) Error() string {
	if e.modelID == "" {
		return "memstore: no model published for tenant " + e.tenantID
	}
	return "memstore: model " + e.modelID + " not found for tenant " + e.tenantID
}
