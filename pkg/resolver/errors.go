package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/fgacore/fgacore/pkg/tuple"
)

// ErrDepthExceeded is returned when a check exceeds its depth budget.
// A deny is a positive statement ("no path found within budget"); this error
// is the absence of a statement — callers must not translate it into deny.
var ErrDepthExceeded = errors.New("resolver: depth budget exceeded")

// ErrCancelled is returned when a check's context is cancelled mid-flight.
// The cache layer must never memoize this outcome.
var ErrCancelled = errors.New("resolver: check cancelled")

// NotFoundRelationError means the model has no such relation on the object
// type — a caller error, not a denial.
type NotFoundRelationError struct {
	ObjectType tuple.ObjectType
	Relation   tuple.Relation
}

func (e *NotFoundRelationError) Error() string {
	return fmt.Sprintf("resolver: relation %q not found on type %q", e.Relation, e.ObjectType)
}

// NewNotFoundRelation builds a NotFoundRelationError.
func NewNotFoundRelation(objectType tuple.ObjectType, relation tuple.Relation) error {
	return &NotFoundRelationError{ObjectType: objectType, Relation: relation}
}

// IsNotFoundRelation reports whether err is (or wraps) a NotFoundRelationError.
func IsNotFoundRelation(err error) bool {
	var e *NotFoundRelationError
	return errors.As(err, &e)
}

// NoDirectTypesError means a This rewrite declares no directly related user
// types — a schema bug, not a denial.
type NoDirectTypesError struct {
	ObjectType tuple.ObjectType
	Relation   tuple.Relation
}

func (e *NoDirectTypesError) Error() string {
	return fmt.Sprintf("resolver: relation %q on type %q has a This rewrite but no directly_related_user_types", e.Relation, e.ObjectType)
}

// NewNoDirectTypes builds a NoDirectTypesError.
func NewNoDirectTypes(objectType tuple.ObjectType, relation tuple.Relation) error {
	return &NoDirectTypesError{ObjectType: objectType, Relation: relation}
}

// IsNoDirectTypes reports whether err is (or wraps) a NoDirectTypesError.
func IsNoDirectTypes(err error) bool {
	var e *NoDirectTypesError
	return errors.As(err, &e)
}

// IsDepthExceeded reports whether err is (or wraps) ErrDepthExceeded.
func IsDepthExceeded(err error) bool {
	return errors.Is(err, ErrDepthExceeded)
}

// NotOnlyDirectError means a tupleset relation (the left side of a
// TupleToUserset) is populated by something other than a Direct reference —
// only Direct tuplesets are valid.
type NotOnlyDirectError struct {
	TuplesetRelation tuple.Relation
}

func (e *NotOnlyDirectError) Error() string {
	return fmt.Sprintf("resolver: tupleset relation %q must only be populated by direct references", e.TuplesetRelation)
}

// NewNotOnlyDirect builds a NotOnlyDirectError.
func NewNotOnlyDirect(tuplesetRelation tuple.Relation) error {
	return &NotOnlyDirectError{TuplesetRelation: tuplesetRelation}
}

// IsNotOnlyDirect reports whether err is (or wraps) a NotOnlyDirectError.
func IsNotOnlyDirect(err error) bool {
	var e *NotOnlyDirectError
	return errors.As(err, &e)
}

// StorageError wraps a failure returned by the underlying TupleStore or
// ModelStore.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("resolver: storage: %v", e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err as a StorageError. Returns nil if err is nil.
func NewStorageError(err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var e *StorageError
	return errors.As(err, &e)
}

// IsCancelled reports whether err is (or wraps) ErrCancelled, or a context
// cancellation/deadline error surfaced directly from a store call.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
