package resolver

import (
	"context"

	"github.com/sourcegraph/conc"
)

// thunk is a lazy sub-check: building one must not perform any I/O, so that
// an unevaluated thunk costs nothing. The combinators below start every
// thunk of a set concurrently (see spawn) and, once the answer is decided,
// cancel the siblings still running rather than waiting for them.
type thunk func(ctx context.Context) (Result, error)

type outcome struct {
	res Result
	err error
}

// spawn runs each thunk in its own goroutine, panic-safe via conc.WaitGroup,
// and streams results back on a channel sized to never block a writer. ctx
// cancellation (via the caller's context.WithCancel) is how combinators stop
// paying for siblings after a decisive result: recursive Check calls check
// ctx at entry and at every store call, so a cancelled sibling unwinds
// quickly and its partial query count is simply never added to the total.
func spawn(ctx context.Context, thunks []thunk) <-chan outcome {
	ch := make(chan outcome, len(thunks))
	var wg conc.WaitGroup
	for _, t := range thunks {
		t := t
		wg.Go(func() {
			res, err := t(ctx)
			ch <- outcome{res, err}
		})
	}
	go func() {
		wg.Wait()
		close(ch)
	}()
	return ch
}

// unionCombine allows on the first child that allows, summing query counts
// of children actually evaluated. Denies only if every child denies.
func unionCombine(ctx context.Context, thunks ...thunk) (Result, error) {
	if len(thunks) == 0 {
		return Result{Allow: false}, nil
	}

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := spawn(cctx, thunks)

	var total uint32
	for i := 0; i < len(thunks); i++ {
		select {
		case out := <-ch:
			if out.err != nil {
				return Result{}, out.err
			}
			total += out.res.QueryCount
			if out.res.Allow {
				return Result{Allow: true, QueryCount: total}, nil
			}
		case <-ctx.Done():
			return Result{}, ErrCancelled
		}
	}
	return Result{Allow: false, QueryCount: total}, nil
}

// intersectionCombine denies on the first child that denies, summing query
// counts of children actually evaluated. Allows only if every child allows.
func intersectionCombine(ctx context.Context, thunks ...thunk) (Result, error) {
	if len(thunks) == 0 {
		return Result{Allow: true}, nil
	}

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := spawn(cctx, thunks)

	var total uint32
	for i := 0; i < len(thunks); i++ {
		select {
		case out := <-ch:
			if out.err != nil {
				return Result{}, out.err
			}
			total += out.res.QueryCount
			if !out.res.Allow {
				return Result{Allow: false, QueryCount: total}, nil
			}
		case <-ctx.Done():
			return Result{}, ErrCancelled
		}
	}
	return Result{Allow: true, QueryCount: total}, nil
}

// differenceCombine implements the canonical base ∧ ¬subtract form (spec.md
// §9: the Intersection-routed alternative some sources use is not
// implemented). base and subtract run concurrently; the result is decided —
// and the other child's in-flight cost discarded — as soon as either base
// denies or subtract allows, since both conditions alone force the overall
// answer to deny regardless of the other child's outcome.
func differenceCombine(ctx context.Context, base, subtract thunk) (Result, error) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	baseCh := spawn(cctx, []thunk{base})
	subCh := spawn(cctx, []thunk{subtract})

	var baseDone, subDone bool
	var baseRes, subRes Result

	for !baseDone || !subDone {
		select {
		case out := <-baseCh:
			baseDone = true
			baseCh = nil // spawn closes the channel; a nil channel is never selected again
			if out.err != nil {
				return Result{}, out.err
			}
			baseRes = out.res
			if !baseRes.Allow {
				return Result{Allow: false, QueryCount: baseRes.QueryCount}, nil
			}
		case out := <-subCh:
			subDone = true
			subCh = nil
			if out.err != nil {
				return Result{}, out.err
			}
			subRes = out.res
			if subRes.Allow {
				return Result{Allow: false, QueryCount: subRes.QueryCount}, nil
			}
		case <-ctx.Done():
			return Result{}, ErrCancelled
		}
	}

	return Result{Allow: true, QueryCount: baseRes.QueryCount + subRes.QueryCount}, nil
}
