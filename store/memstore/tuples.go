// Package memstore is an in-process tuple.Store and model.Store backed by
// go-memdb, grounded on the source system's own in-memory relationship
// reader: a single indexed table, queried inside a read or write
// transaction, with any filter fields the index can't express refined by a
// plain Go predicate scan over the transaction's result iterator.
package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/fgacore/fgacore/pkg/tuple"
)

const tuplesTable = "tuples"

type tupleRecord struct {
	TenantID     string
	ObjectType   string
	ObjectID     string
	Relation     string
	UserType     string
	UserID       string
	UserRelation string
	CreatedAt    time.Time
}

func (r tupleRecord) key() tuple.Key {
	return tuple.Key{
		ObjectType:   tuple.ObjectType(r.ObjectType),
		ObjectID:     r.ObjectID,
		Relation:     tuple.Relation(r.Relation),
		UserType:     tuple.ObjectType(r.UserType),
		UserID:       r.UserID,
		UserRelation: tuple.Relation(r.UserRelation),
	}
}

func fromKey(tenantID string, k tuple.Key, createdAt time.Time) tupleRecord {
	return tupleRecord{
		TenantID:     tenantID,
		ObjectType:   string(k.ObjectType),
		ObjectID:     k.ObjectID,
		Relation:     string(k.Relation),
		UserType:     string(k.UserType),
		UserID:       k.UserID,
		UserRelation: string(k.UserRelation),
		CreatedAt:    createdAt,
	}
}

func tupleSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: tuplesTable,
		Indexes: map[string]*memdb.IndexSchema{
			"id": {
				Name:   "id",
				Unique: true,
				// AllowMissing lets a plain-subject tuple, whose UserRelation is
				// empty, still produce a primary key.
				Indexer: &memdb.CompoundIndex{AllowMissing: true, Indexes: []memdb.Indexer{
					&memdb.StringFieldIndex{Field: "TenantID"},
					&memdb.StringFieldIndex{Field: "ObjectType"},
					&memdb.StringFieldIndex{Field: "ObjectID"},
					&memdb.StringFieldIndex{Field: "Relation"},
					&memdb.StringFieldIndex{Field: "UserType"},
					&memdb.StringFieldIndex{Field: "UserID"},
					&memdb.StringFieldIndex{Field: "UserRelation"},
				}},
			},
			// object narrows a transaction's scan to one object's tuples before
			// the remaining filter fields (subject shape, Or-branches) are
			// refined in Go — mirroring how the reference reader pairs a memdb
			// index lookup with a FilterIterator for whatever the index can't
			// express.
			"object": {
				Name: "object",
				Indexer: &memdb.CompoundIndex{Indexes: []memdb.Indexer{
					&memdb.StringFieldIndex{Field: "TenantID"},
					&memdb.StringFieldIndex{Field: "ObjectType"},
					&memdb.StringFieldIndex{Field: "ObjectID"},
					&memdb.StringFieldIndex{Field: "Relation"},
				}},
			},
			"tenant": {
				Name:    "tenant",
				Indexer: &memdb.StringFieldIndex{Field: "TenantID"},
			},
		},
	}
}

// Store is a tuple.Store backed by an in-process go-memdb database.
type Store struct {
	db *memdb.MemDB
}

// NewStore builds an empty Store.
func NewStore() (*Store, error) {
	schema := &memdb.DBSchema{Tables: map[string]*memdb.TableSchema{
		tuplesTable: tupleSchema(),
		modelsTable: modelSchema(),
	}}
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("memstore: building schema: %w", err)
	}
	return &Store{db: db}, nil
}

// List implements tuple.Store.
func (s *Store) List(_ context.Context, tenantID string, filter tuple.Filter, page *tuple.Page) ([]tuple.Tuple, *int, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := s.scan(txn, tenantID, filter)
	if err != nil {
		return nil, nil, err
	}

	var out []tuple.Tuple
	for raw := it.Next(); raw != nil; raw = it.Next() {
		rec := raw.(tupleRecord)
		k := rec.key()
		if !filter.Matches(k) {
			continue
		}
		out = append(out, tuple.Tuple{TenantID: rec.TenantID, Key: k, CreatedAt: rec.CreatedAt})
	}

	if page == nil || page.PageSize <= 0 || len(out) <= page.PageSize {
		total := len(out)
		return out, &total, nil
	}
	total := len(out)
	return out[:page.PageSize], &total, nil
}

// scan picks the narrowest memdb index the filter's equality fields support,
// falling back to a per-tenant scan when the filter doesn't pin an object.
func (s *Store) scan(txn *memdb.Txn, tenantID string, filter tuple.Filter) (memdb.ResultIterator, error) {
	if filter.ObjectTypeEq != "" && filter.ObjectIDEq != "" && filter.RelationEq != "" {
		it, err := txn.Get(tuplesTable, "object", tenantID, string(filter.ObjectTypeEq), filter.ObjectIDEq, string(filter.RelationEq))
		if err != nil {
			return nil, fmt.Errorf("memstore: object scan: %w", err)
		}
		return it, nil
	}
	it, err := txn.Get(tuplesTable, "tenant", tenantID)
	if err != nil {
		return nil, fmt.Errorf("memstore: tenant scan: %w", err)
	}
	return it, nil
}

// Save implements tuple.Store, upserting each tuple in one write transaction.
func (s *Store) Save(_ context.Context, tenantID string, tuples []tuple.Tuple) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	for _, t := range tuples {
		createdAt := t.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if err := txn.Insert(tuplesTable, fromKey(tenantID, t.Key, createdAt)); err != nil {
			return fmt.Errorf("memstore: inserting tuple: %w", err)
		}
	}

	txn.Commit()
	return nil
}

// Delete implements tuple.Store, removing every stored tuple matching filter.
func (s *Store) Delete(_ context.Context, tenantID string, filter tuple.Filter) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	it, err := s.scan(txn, tenantID, filter)
	if err != nil {
		return err
	}

	var toDelete []tupleRecord
	for raw := it.Next(); raw != nil; raw = it.Next() {
		rec := raw.(tupleRecord)
		if filter.Matches(rec.key()) {
			toDelete = append(toDelete, rec)
		}
	}
	for _, rec := range toDelete {
		if err := txn.Delete(tuplesTable, rec); err != nil {
			return fmt.Errorf("memstore: deleting tuple: %w", err)
		}
	}

	txn.Commit()
	return nil
}
