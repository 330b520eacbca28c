package resolver

import "context"

// Decision wraps a Checker with an explicit override, so admin tooling and
// tests can bypass resolution without touching tuple data or the model.
// This is not part of the check-resolution algorithm the specification
// describes; it supplements it the way the source system's own Checker does,
// and is kept to the same opt-in discipline: a Decision must be constructed
// explicitly, and context-level overrides only take effect when the Checker
// was built WithContextOverride.
type Override int

const (
	// OverrideUnset performs normal resolution.
	OverrideUnset Override = iota
	// OverrideAllow always returns an allow, with QueryCount 0.
	OverrideAllow
	// OverrideDeny always returns a deny, with QueryCount 0.
	OverrideDeny
)

type overrideContextKey struct{}

var overrideKey = overrideContextKey{}

// WithOverrideContext returns a context carrying an override. It has no
// effect unless the Decision it reaches was built WithContextOverride.
func WithOverrideContext(ctx context.Context, o Override) context.Context {
	return context.WithValue(ctx, overrideKey, o)
}

// overrideFromContext returns the override carried by ctx, or OverrideUnset.
func overrideFromContext(ctx context.Context) Override {
	if o, ok := ctx.Value(overrideKey).(Override); ok {
		return o
	}
	return OverrideUnset
}

// Decision is a Checker wrapping another Checker with a fixed override,
// and optionally an opt-in for context-level overrides.
type Decision struct {
	inner          Checker
	override       Override
	contextEnabled bool
}

// DecisionOption configures a Decision.
type DecisionOption func(*Decision)

// WithOverride sets the Checker-level override applied to every Check call.
func WithOverride(o Override) DecisionOption {
	return func(d *Decision) { d.override = o }
}

// WithContextOverride enables consulting WithOverrideContext on every Check
// call. Disabled by default so an override placed on a context by, say, a
// test helper can never silently bypass authorization in a Checker that
// didn't ask for it.
func WithContextOverride() DecisionOption {
	return func(d *Decision) { d.contextEnabled = true }
}

// NewDecision wraps inner with override controls.
func NewDecision(inner Checker, opts ...DecisionOption) *Decision {
	d := &Decision{inner: inner, override: OverrideUnset}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check implements Checker. The Checker-level override is applied first;
// if unset and context overrides are enabled, the context's override is
// consulted; otherwise the wrapped Checker resolves normally.
func (d *Decision) Check(ctx context.Context, req Request) (Result, error) {
	o := d.override
	if o == OverrideUnset && d.contextEnabled {
		o = overrideFromContext(ctx)
	}
	switch o {
	case OverrideAllow:
		return Result{Allow: true}, nil
	case OverrideDeny:
		return Result{Allow: false}, nil
	default:
		return d.inner.Check(ctx, req)
	}
}

// Close implements Checker, closing the wrapped Checker.
func (d *Decision) Close() error { return d.inner.Close() }

// Name implements Checker.
func (d *Decision) Name() string { return "resolver.Decision(" + d.inner.Name() + ")" }
