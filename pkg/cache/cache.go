// Package cache wraps any resolver.Checker with a deduplicating,
// bounded-eviction cache. A cache hit costs zero datastore queries; a miss
// costs exactly what the wrapped Checker reports, and is not memoized if
// resolution failed to produce a real decision (spec.md §4.3).
package cache

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/karlseguin/ccache/v3"

	"github.com/fgacore/fgacore/pkg/resolver"
	"github.com/fgacore/fgacore/pkg/tuple"
)

// DefaultCapacity is the number of entries the cache holds before ccache's
// LRU eviction starts reclaiming space.
const DefaultCapacity = 100

// Option configures a Cache.
type Option func(*config)

type config struct {
	capacity int64
	ttl      time.Duration
}

// WithCapacity overrides the maximum number of cached entries.
func WithCapacity(n int64) Option {
	return func(c *config) { c.capacity = n }
}

// WithTTL sets how long an entry is trusted once inserted. 0 (the default)
// gives entries a one-year lifetime, so in practice they leave only through
// Invalidate or eviction for space, since a check result is only ever stale
// relative to a model_id, and model_id is already part of the fingerprint.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) { c.ttl = ttl }
}

// Cache wraps a resolver.Checker, memoizing decisive outcomes.
type Cache struct {
	inner resolver.Checker
	items *ccache.Cache[resolver.Result]
	ttl   time.Duration
}

// New wraps inner with a bounded cache.
func New(inner resolver.Checker, opts ...Option) *Cache {
	cfg := config{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache{
		inner: inner,
		items: ccache.New(ccache.Configure[resolver.Result]().MaxSize(cfg.capacity)),
		ttl:   cfg.ttl,
	}
}

// Name implements resolver.Checker.
func (c *Cache) Name() string { return "cache.Cache(" + c.inner.Name() + ")" }

// Close implements resolver.Checker, stopping the cache's background janitor
// and closing the wrapped Checker.
func (c *Cache) Close() error {
	c.items.Stop()
	return c.inner.Close()
}

// Invalidate drops every entry cached under modelID. Callers should do this
// whenever a new model version is published for a tenant — the cache is
// never invalidated by tuple writes, only by a model_id change, since a
// cached decision is pinned to the model it was computed against.
func (c *Cache) Invalidate(tenantID, modelID string) {
	c.items.DeletePrefix(modelPrefix(tenantID, modelID))
}

// Check implements resolver.Checker. A cache hit returns QueryCount 0, since
// no datastore access happened. DepthExceeded, storage, and cancellation
// outcomes are never memoized — only a real allow/deny decision is.
func (c *Cache) Check(ctx context.Context, req resolver.Request) (resolver.Result, error) {
	key := fingerprint(req)

	if item := c.items.Get(key); item != nil && !item.Expired() {
		return resolver.Result{Allow: item.Value().Allow, QueryCount: 0}, nil
	}

	res, err := c.inner.Check(ctx, req)
	if err != nil {
		return res, err
	}

	ttl := c.ttl
	if ttl <= 0 {
		ttl = time.Hour * 24 * 365
	}
	c.items.Set(key, res, ttl)
	return res, nil
}

// modelPrefix is the fingerprint prefix shared by every entry computed
// against one tenant's model version, used by Invalidate's bulk delete.
func modelPrefix(tenantID, modelID string) string {
	return tenantID + "\x1f" + modelID + "\x1f"
}

// fingerprint renders the cache key spec.md §4.3 describes: tenant_id,
// model_id, the tuple key's canonical form, and the sorted canonical form of
// any contextual tuples, hashed with xxhash and base64-encoded into a short
// opaque string. Contextual tuples participate so that a check made with a
// different contextual overlay never collides with one made without it.
func fingerprint(req resolver.Request) string {
	var modelID string
	if req.Model != nil {
		modelID = req.Model.ModelID
	}
	var tenantID string
	if req.Model != nil {
		tenantID = req.Model.TenantID
	}

	var b strings.Builder
	b.WriteString(modelPrefix(tenantID, modelID))
	b.WriteString(req.Key.Canonical())
	b.WriteByte('\x1f')
	b.WriteString(tuple.CanonicalContextualTuples(req.ContextualTuples))

	sum := xxhash.Sum64String(b.String())
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], sum)

	// The prefix stays in plaintext ahead of the hash so Invalidate's
	// DeletePrefix can target one tenant/model without decoding keys back.
	return modelPrefix(tenantID, modelID) + base64.RawURLEncoding.EncodeToString(buf[:])
}
