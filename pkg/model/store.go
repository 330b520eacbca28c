package model

import "context"

// Store is the external collaborator spec.md §6 calls ModelStore: it
// publishes and retrieves compiled Model snapshots, keyed by tenant and
// model ID. Writers publish a new Model version to invalidate the Cache
// layer for their tenant (see pkg/cache) rather than mutating a Model in
// place — Models are immutable once returned from Store.
type Store interface {
	// GetLatest returns the most recently published Model for a tenant.
	GetLatest(ctx context.Context, tenantID string) (modelID string, m *Model, err error)

	// Get returns a specific Model version.
	Get(ctx context.Context, tenantID, modelID string) (m *Model, err error)

	// Save publishes a new Model version, assigning it a model ID if m.ModelID
	// is empty, and returns the ID it was stored under.
	Save(ctx context.Context, m *Model) (modelID string, err error)

	// List enumerates published model IDs for a tenant, oldest first.
	List(ctx context.Context, tenantID string, page Page) (ids []string, total *int, err error)
}

// Page requests a bounded, tokenized slice of a larger result set. Mirrors
// tuple.Page; kept as a distinct type since ModelStore paginates over model
// IDs rather than tuples.
type Page struct {
	Token    string
	PageSize int
}
