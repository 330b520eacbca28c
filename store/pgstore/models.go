package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fgacore/fgacore/pkg/model"
)

// ModelStore is a model.Store backed by a fga_models table. Models are
// stored as a single JSONB snapshot per version rather than normalized into
// rows — a Model is read as a whole and never queried by its internals at
// the storage layer, so there's nothing a relational schema would buy here
// that a snapshot column doesn't already give for free.
type ModelStore struct {
	q      Querier
	errMapper *Store // reuses Store's mapError/logger rather than duplicating it
}

// NewModelStore builds a ModelStore over q.
func NewModelStore(q Querier, opts ...Option) *ModelStore {
	return &ModelStore{q: q, errMapper: New(q, opts...)}
}

// GetLatest implements model.Store.
func (s *ModelStore) GetLatest(ctx context.Context, tenantID string) (string, *model.Model, error) {
	row := s.q.QueryRow(ctx, `SELECT model_id, definition FROM fga_models
		WHERE tenant_id = $1 ORDER BY published_at DESC LIMIT 1`, tenantID)

	var modelID string
	var raw []byte
	if err := row.Scan(&modelID, &raw); err != nil {
		return "", nil, s.errMapper.mapError("get_latest_model", err)
	}

	m, err := decodeModel(tenantID, modelID, raw)
	if err != nil {
		return "", nil, err
	}
	return modelID, m, nil
}

// Get implements model.Store.
func (s *ModelStore) Get(ctx context.Context, tenantID, modelID string) (*model.Model, error) {
	row := s.q.QueryRow(ctx, `SELECT definition FROM fga_models WHERE tenant_id = $1 AND model_id = $2`, tenantID, modelID)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return nil, s.errMapper.mapError("get_model", err)
	}
	return decodeModel(tenantID, modelID, raw)
}

// Save implements model.Store.
func (s *ModelStore) Save(ctx context.Context, m *model.Model) (string, error) {
	modelID := m.ModelID
	if modelID == "" {
		modelID = uuid.NewString()
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return "", errors.New("pgstore: encoding model: " + err.Error())
	}

	_, err = s.q.Exec(ctx, `INSERT INTO fga_models (tenant_id, model_id, schema_version, definition, published_at)
		VALUES ($1, $2, $3, $4, $5)`, m.TenantID, modelID, m.SchemaVersion, raw, time.Now())
	if err != nil {
		return "", s.errMapper.mapError("save_model", err)
	}
	return modelID, nil
}

// List implements model.Store.
func (s *ModelStore) List(ctx context.Context, tenantID string, page model.Page) ([]string, *int, error) {
	limit := 0
	query := `SELECT model_id FROM fga_models WHERE tenant_id = $1 ORDER BY published_at`
	args := []any{tenantID}
	if page.PageSize > 0 {
		limit = page.PageSize
		query += " LIMIT $2"
		args = append(args, limit+1)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, s.errMapper.mapError("list_models", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, nil, s.errMapper.mapError("scan_model_id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, s.errMapper.mapError("list_models_rows", err)
	}

	if limit > 0 && len(ids) > limit {
		total := len(ids)
		return ids[:limit], &total, nil
	}
	total := len(ids)
	return ids, &total, nil
}

func decodeModel(tenantID, modelID string, raw []byte) (*model.Model, error) {
	var m model.Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.New("pgstore: decoding model " + modelID + ": " + err.Error())
	}
	m.TenantID = tenantID
	m.ModelID = modelID
	return &m, nil
}
