package relay

import (
	"context"
	"fmt"

	"github.com/zoobzio/capitan"
)

// Endpoint is a fixed point of the pipeline topology (a physical output or
// signal source) carrying an ordered chain of elements. Chains grow from
// the endpoint outward; position in the chain is position in signal order.
type Endpoint struct {
	pipeline *Pipeline
	name     string
	chain    []*Element
}

// Name returns the endpoint's name.
func (ep *Endpoint) Name() string { return ep.name }

// Elements returns a snapshot of the chain in signal order.
func (ep *Endpoint) Elements() []*Element {
	ep.pipeline.mu.Lock()
	defer ep.pipeline.mu.Unlock()
	out := make([]*Element, len(ep.chain))
	copy(out, ep.chain)
	return out
}

// Attach links e into the endpoint's chain immediately after the given
// element, or at the head when after is nil. If e declares state hooks, its
// baseline state is created via Reset and registered with the pipeline; a
// partial hook set fails with ErrCapabilityMismatch and a failure in any
// later step unwinds the earlier ones, leaving the element fully detached.
//
// Attach and Detach reshape topology and must not run concurrently with
// open transactions that walk this chain.
func (ep *Endpoint) Attach(ctx context.Context, e *Element, after *Element) error {
	if e.hooks.partial() {
		return fmt.Errorf("element %q: %w", e.name, ErrCapabilityMismatch)
	}
	if err := ep.link(e, after); err != nil {
		return err
	}

	if e.onAttach != nil {
		if err := e.onAttach(e); err != nil {
			ep.unlink(e)
			e.endpoint = nil
			return fmt.Errorf("attach element %q: %w", e.name, err)
		}
	}

	if e.hooks.Reset != nil {
		if err := e.resetState(); err != nil {
			if e.onDetach != nil {
				e.onDetach(e)
			}
			ep.unlink(e)
			e.endpoint = nil
			return fmt.Errorf("attach element %q: %w", e.name, err)
		}
	}

	capitan.Emit(ctx, ElementAttached,
		KeyElement.Field(e.name),
		KeyEndpoint.Field(ep.name),
	)
	return nil
}

// Detach releases the element's persisted state, runs its detach hook, and
// unlinks it from the chain.
func (ep *Endpoint) Detach(ctx context.Context, e *Element) error {
	if e.endpoint != ep {
		return fmt.Errorf("element %q: %w", e.name, ErrNotAttached)
	}

	if e.slot != nil {
		ep.pipeline.ReleaseSlot(e.slot)
		e.slot = nil
	}
	if e.onDetach != nil {
		e.onDetach(e)
	}
	ep.unlink(e)
	e.endpoint = nil

	capitan.Emit(ctx, ElementDetached,
		KeyElement.Field(e.name),
		KeyEndpoint.Field(ep.name),
	)
	return nil
}

// link validates the requested position and inserts e into the chain.
func (ep *Endpoint) link(e *Element, after *Element) error {
	ep.pipeline.mu.Lock()
	defer ep.pipeline.mu.Unlock()

	if e.endpoint != nil {
		return fmt.Errorf("element %q: %w", e.name, ErrAlreadyAttached)
	}
	at := 0
	if after != nil {
		if after.endpoint != ep {
			return fmt.Errorf("element %q after %q: %w", e.name, after.name, ErrInvalidPosition)
		}
		for i, cur := range ep.chain {
			if cur == after {
				at = i + 1
				break
			}
		}
	}
	ep.chain = append(ep.chain, nil)
	copy(ep.chain[at+1:], ep.chain[at:])
	ep.chain[at] = e
	e.endpoint = ep
	return nil
}

func (ep *Endpoint) unlink(e *Element) {
	ep.pipeline.mu.Lock()
	defer ep.pipeline.mu.Unlock()
	for i, cur := range ep.chain {
		if cur == e {
			ep.chain = append(ep.chain[:i], ep.chain[i+1:]...)
			return
		}
	}
}

// AddChain enrolls every stateful element reachable from ep into the
// transaction, in chain order, creating each element's working copy on the
// way. A nil endpoint is a no-op: a source may legitimately have no output
// attached. Elements without a Duplicate hook are skipped silently; they
// have opted out of atomic tracking.
//
// The first failure stops the walk and is returned as-is. Entries already
// created stay in the transaction; the transaction's own abort or restart
// path cleans them up.
func (tx *Transaction) AddChain(ctx context.Context, ep *Endpoint) error {
	if ep == nil {
		return nil
	}
	for _, e := range ep.Elements() {
		if !e.hooks.stateful() {
			continue
		}
		if _, err := tx.ElementState(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
