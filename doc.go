/*
Package relay provides transactional private state for display output
pipelines: chains of elements between a signal source and a physical output
that must reconfigure atomically, with copy-on-write isolation between
concurrent transactions and automatic rollback on failure.

relay is designed to be embedded within drivers that need to negotiate
per-element configuration (bus formats, timings, link parameters) as part of
a larger pipeline transaction, not run as a standalone service.

# Basic Usage

Build a pipeline and attach elements to an endpoint chain:

	pipe := relay.NewPipeline()
	out := pipe.NewEndpoint("lvds-0")

	bridge := relay.NewElement("encoder-bridge",
	    relay.WithStateHooks(busHooks),
	)
	if err := out.Attach(ctx, bridge, nil); err != nil {
	    return err
	}

Reconfigure atomically:

	err := pipe.Update(ctx, func(tx *relay.Transaction) error {
	    if err := tx.AddChain(ctx, out); err != nil {
	        return err
	    }
	    st, err := tx.ElementState(ctx, bridge)
	    if err != nil {
	        return err
	    }
	    st.(*busState).Format = formatRGB888
	    return nil
	})

Update owns the retry loop: when two transactions contend for the same
element, the younger one observes ErrLockConflict, is torn down, and is
restarted from scratch after a short backoff. No element's persisted state
changes unless its transaction fully commits.

# State Hooks

Elements opt into atomic tracking by supplying all three state hooks:

	hooks := relay.StateHooks{
	    Reset: func(e *relay.Element) (relay.ElementState, error) {
	        return &busState{Format: formatAuto}, nil
	    },
	    Duplicate: func(e *relay.Element) (relay.ElementState, error) {
	        cp := *e.State().(*busState)
	        return &cp, nil
	    },
	    Destroy: func(e *relay.Element, s relay.ElementState) {},
	}

Payload types embed relay.StateBase; the framework binds the owning element
on every reset and duplicate. Elements with no payload beyond the
back-reference can use relay.WithDefaultState(). Supplying only some of the
three hooks is a programming error rejected at attach time.

# Working Copies

The first time a transaction touches an element, the element's persisted
state is duplicated into a working copy private to that transaction. The
original is retained as an immutable old snapshot. Validation code mutates
only the working copy; Commit swaps working copies into place atomically and
retires the previous instances, while Abort discards them without side
effects.

# Observability

relay emits capitan signals for every lifecycle edge (transaction begin,
commit, abort, restart, lock conflicts, element attach and detach). Hook
them for logging or tracing:

	capitan.Hook(relay.TransactionRestarted, func(_ context.Context, e *capitan.Event) {
	    age, _ := relay.KeyAge.From(e)
	    log.Printf("contention: transaction %d backing off", age)
	})

A MetricsProvider can additionally be injected with relay.WithMetrics for
counters and latencies.
*/
package relay
