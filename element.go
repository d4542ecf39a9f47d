package relay

import (
	"context"
	"fmt"
)

// Element is one participant in an endpoint's ordered chain. Stateless
// elements (no hooks) pass signal through without joining transactions;
// stateful elements carry an ElementState that transactions duplicate,
// mutate, and swap atomically.
//
// Elements are configured at construction and immutable afterwards; chain
// membership changes only through Endpoint.Attach and Endpoint.Detach.
type Element struct {
	name     string
	hooks    StateHooks
	onAttach func(*Element) error
	onDetach func(*Element)

	endpoint *Endpoint
	slot     *Slot
}

// NewElement creates an element. Without options the element is stateless
// and opts out of atomic tracking entirely.
func NewElement(name string, opts ...ElementOption) *Element {
	e := &Element{name: name}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the element's name.
func (e *Element) Name() string { return e.name }

// Endpoint returns the endpoint whose chain the element is linked into, or
// nil when detached.
func (e *Element) Endpoint() *Endpoint { return e.endpoint }

// Stateful reports whether the element participates in atomic tracking.
func (e *Element) Stateful() bool { return e.hooks.stateful() }

// State returns the element's persisted state: the configuration in effect
// outside any open transaction. It is non-nil from successful attach until
// detach for stateful elements, and always nil for stateless ones.
func (e *Element) State() ElementState {
	if e.slot == nil {
		return nil
	}
	st, _ := e.slot.State().(ElementState)
	return st
}

// ElementState returns the transaction's working copy for e, creating it on
// first touch by duplicating the persisted state under the element's lock.
// Drivers call this from their validation and enable paths to read and
// mutate their negotiated configuration.
func (tx *Transaction) ElementState(ctx context.Context, e *Element) (ElementState, error) {
	if e.slot == nil {
		return nil, fmt.Errorf("element %q: %w", e.name, ErrNoState)
	}
	st, err := tx.StateOf(ctx, e.slot)
	if err != nil {
		return nil, err
	}
	return st.(ElementState), nil
}

// OldElementState returns the snapshot of e's state taken when this
// transaction first touched it, or false if the element was never added.
func (tx *Transaction) OldElementState(e *Element) (ElementState, bool) {
	if e.slot == nil {
		return nil, false
	}
	st, ok := tx.OldStateOf(e.slot)
	if !ok {
		return nil, false
	}
	return st.(ElementState), true
}

// NewElementState returns the working copy of e's state, or false if the
// element was never added to this transaction.
func (tx *Transaction) NewElementState(e *Element) (ElementState, bool) {
	if e.slot == nil {
		return nil, false
	}
	st, ok := tx.NewStateOf(e.slot)
	if !ok {
		return nil, false
	}
	return st.(ElementState), true
}

// slotOps adapts the element's hooks to the generic slot layer. The
// framework binds the back-reference after every hook call, so payloads
// cannot forget it.
func (e *Element) slotOps() SlotOps {
	return SlotOps{
		Duplicate: func(*Slot, any) (any, error) {
			st, err := e.hooks.Duplicate(e)
			if err != nil {
				return nil, err
			}
			st.bind(e)
			return st, nil
		},
		Destroy: func(_ *Slot, state any) {
			e.hooks.Destroy(e, state.(ElementState))
		},
	}
}

// resetState runs the element's Reset hook and registers the result as the
// persisted state. Called during attach, after the chain linkage and the
// element's attach hook succeeded.
func (e *Element) resetState() error {
	st, err := e.hooks.Reset(e)
	if err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	st.bind(e)
	slot, err := e.endpoint.pipeline.NewSlot(st, e.slotOps())
	if err != nil {
		e.hooks.Destroy(e, st)
		return fmt.Errorf("register state: %w", err)
	}
	e.slot = slot
	return nil
}
