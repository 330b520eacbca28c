// Package fgacore ties the resolver, cache, forward expander, and reverse
// expander together behind the four operations spec.md §6 calls the "Core
// API the resolver exposes to transports": check, expand, list_objects, and
// list_users. Engine resolves tenant_id/model_id into a concrete Model on
// every call (defaulting to the tenant's latest published Model when
// model_id is omitted, per spec.md §6's `get_latest`) and then delegates to
// the package that implements that operation.
//
// # Basic usage
//
//	store, _ := memstore.NewStore()
//	models, _ := memstore.NewStore() // same Store value also satisfies model.Store
//	engine := fgacore.New(store, models)
//	defer engine.Close()
//
//	res, err := engine.Check(ctx, fgacore.CheckRequest{
//	    TenantID: "acme",
//	    Key:      tuple.NewKey("document", "q1", "viewer", "user", "alice"),
//	})
//
// # Caching
//
// New wraps the resolver in pkg/cache by default; WithoutCache disables it
// for callers that want every check to hit the store (e.g. tests asserting
// exact QueryCount).
package fgacore

import (
	"context"
	"fmt"
	"time"

	"github.com/fgacore/fgacore/pkg/cache"
	"github.com/fgacore/fgacore/pkg/expand"
	"github.com/fgacore/fgacore/pkg/model"
	"github.com/fgacore/fgacore/pkg/resolver"
	"github.com/fgacore/fgacore/pkg/reverse"
	"github.com/fgacore/fgacore/pkg/tuple"
)

// config holds the fields Option mutates, following the teacher's
// options-over-ambient-config pattern rather than a loaded file.
type config struct {
	depthBudget   int
	cacheCapacity int64
	cacheTTL      time.Duration
	noCache       bool
	concurrency   int
}

// Option configures an Engine.
type Option func(*config)

// WithDepthBudget overrides resolver.DefaultDepthBudget for every check this
// Engine performs.
func WithDepthBudget(budget int) Option {
	return func(c *config) { c.depthBudget = budget }
}

// WithCacheCapacity overrides cache.DefaultCapacity.
func WithCacheCapacity(n int64) Option {
	return func(c *config) { c.cacheCapacity = n }
}

// WithCacheTTL overrides the cache's entry lifetime (see cache.WithTTL).
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *config) { c.cacheTTL = ttl }
}

// WithoutCache disables the caching layer entirely; checks always reach the
// TupleStore.
func WithoutCache() Option {
	return func(c *config) { c.noCache = true }
}

// WithReverseConcurrency overrides reverse.DefaultConcurrency for
// ListObjects' candidate fan-out.
func WithReverseConcurrency(n int) Option {
	return func(c *config) { c.concurrency = n }
}

// Engine is the top-level entry point wiring a TupleStore and a ModelStore
// into the resolver, cache, forward expander, and reverse expander.
type Engine struct {
	tuples      tuple.Store
	models      model.Store
	checker     resolver.Checker
	expander    *expand.Expander
	reverser    *reverse.Expander
	depthBudget int
}

// New builds an Engine over the given stores.
func New(tuples tuple.Store, models model.Store, opts ...Option) *Engine {
	cfg := config{depthBudget: resolver.DefaultDepthBudget, cacheCapacity: cache.DefaultCapacity, concurrency: reverse.DefaultConcurrency}
	for _, opt := range opts {
		opt(&cfg)
	}

	local := resolver.NewLocal(tuples, resolver.WithDepthBudget(cfg.depthBudget))

	var checker resolver.Checker = local
	if !cfg.noCache {
		cacheOpts := []cache.Option{cache.WithCapacity(cfg.cacheCapacity)}
		if cfg.cacheTTL > 0 {
			cacheOpts = append(cacheOpts, cache.WithTTL(cfg.cacheTTL))
		}
		checker = cache.New(local, cacheOpts...)
	}

	return &Engine{
		tuples:      tuples,
		models:      models,
		checker:     checker,
		expander:    expand.New(tuples),
		reverser:    reverse.New(tuples, reverse.WithConcurrency(cfg.concurrency)),
		depthBudget: cfg.depthBudget,
	}
}

// Close releases resources held by the checker chain (cache entries, any
// pooled connections a Checker wraps).
func (e *Engine) Close() error {
	return e.checker.Close()
}

// InvalidateModel drops any cached decisions computed against modelID, for
// callers that publish a new Model version and need old decisions evicted
// immediately rather than aged out.
func (e *Engine) InvalidateModel(tenantID, modelID string) {
	if c, ok := e.checker.(*cache.Cache); ok {
		c.Invalidate(tenantID, modelID)
	}
}

// CheckRequest is the external check call spec.md §6 describes. ModelID is
// optional — an empty value resolves to the tenant's latest published Model.
type CheckRequest struct {
	TenantID         string
	ModelID          string
	Key              tuple.Key
	ContextualTuples []tuple.ContextualTuple
}

// Check resolves one CheckRequest. See pkg/resolver.Checker.Check for the
// error-never-becomes-deny contract this honors.
func (e *Engine) Check(ctx context.Context, req CheckRequest) (resolver.Result, error) {
	m, err := e.resolveModel(ctx, req.TenantID, req.ModelID)
	if err != nil {
		return resolver.Result{}, err
	}
	return e.checker.Check(ctx, resolver.NewRequest(m, req.Key, req.ContextualTuples).WithDepthBudget(e.depthBudget))
}

// Expand builds the forward expansion tree for objectType:objectID#relation.
func (e *Engine) Expand(ctx context.Context, tenantID, modelID string, key tuple.Key, contextual []tuple.ContextualTuple) (expand.Node, error) {
	m, err := e.resolveModel(ctx, tenantID, modelID)
	if err != nil {
		return expand.Node{}, err
	}
	return e.expander.Expand(ctx, m, key, contextual)
}

// ListObjects returns every objectID of objectType that subject can reach
// through relation.
func (e *Engine) ListObjects(ctx context.Context, tenantID, modelID string, objectType tuple.ObjectType, relation tuple.Relation, subject tuple.Key, contextual []tuple.ContextualTuple) ([]string, error) {
	m, err := e.resolveModel(ctx, tenantID, modelID)
	if err != nil {
		return nil, err
	}
	return e.reverser.ListObjects(ctx, m, objectType, relation, subject, contextual)
}

// ListUsers returns every concrete subject of subjectType that reaches
// key.ObjectType:key.ObjectID#key.Relation.
func (e *Engine) ListUsers(ctx context.Context, tenantID, modelID string, key tuple.Key, subjectType tuple.ObjectType, contextual []tuple.ContextualTuple) ([]string, error) {
	m, err := e.resolveModel(ctx, tenantID, modelID)
	if err != nil {
		return nil, err
	}
	return e.reverser.ListUsers(ctx, m, key, subjectType, contextual)
}

// resolveModel fetches modelID, or the tenant's latest published Model when
// modelID is empty, per spec.md §6's get_latest/get split.
func (e *Engine) resolveModel(ctx context.Context, tenantID, modelID string) (*model.Model, error) {
	if modelID == "" {
		_, m, err := e.models.GetLatest(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("fgacore: resolving latest model for tenant %q: %w", tenantID, err)
		}
		return m, nil
	}
	m, err := e.models.Get(ctx, tenantID, modelID)
	if err != nil {
		return nil, fmt.Errorf("fgacore: resolving model %q for tenant %q: %w", modelID, tenantID, err)
	}
	return m, nil
}
