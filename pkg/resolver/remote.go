package resolver

import "context"

// RemoteClient is the transport collaborator a Remote Checker dials out
// through. It is intentionally left unimplemented here — building an actual
// RPC client is transport work, which spec.md places out of scope — but the
// interface documents the extension point a future transport package would
// satisfy to let checks run against another node's resolver rather than the
// local one.
type RemoteClient interface {
	Check(ctx context.Context, req Request) (Result, error)
	Close() error
}

// Remote is a Checker that forwards every call to a RemoteClient instead of
// evaluating locally. It exists so a caller can select between Local and
// Remote polymorphically through the same Checker interface — e.g. wrapping
// either one in Cache or Decision identically — without the rest of this
// package knowing which one it's holding.
type Remote struct {
	client RemoteClient
}

// NewRemote builds a Remote Checker over client.
func NewRemote(client RemoteClient) *Remote {
	return &Remote{client: client}
}

// Name implements Checker.
func (r *Remote) Name() string { return "resolver.Remote" }

// Close implements Checker.
func (r *Remote) Close() error { return r.client.Close() }

// Check implements Checker by forwarding to the RemoteClient.
func (r *Remote) Check(ctx context.Context, req Request) (Result, error) {
	return r.client.Check(ctx, req)
}
