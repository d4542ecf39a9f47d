package relay

// ElementState is the payload type a stateful element carries through
// transactions. Concrete payloads embed StateBase, which supplies the
// back-reference to the owning element; the framework binds it on every
// reset and duplicate, so hooks only copy their own fields.
type ElementState interface {
	// Element returns the element this state belongs to.
	Element() *Element

	bind(*Element)
}

// StateBase holds the back-reference to the owning element. Embed it in
// every payload type:
//
//	type busState struct {
//	    relay.StateBase
//	    Format uint32 `validate:"min=1"`
//	}
type StateBase struct {
	element *Element
}

// Element returns the element this state belongs to.
func (b *StateBase) Element() *Element { return b.element }

func (b *StateBase) bind(e *Element) { b.element = e }

// StateHooks is the pluggable per-element state lifecycle. An element
// supplies either all three hooks or none; attach rejects anything partial
// with ErrCapabilityMismatch.
//
// Reset allocates the baseline state for a newly attached element and runs
// exactly once, at attach time. Duplicate copies the element's persisted
// state (available via Element.State, guaranteed non-nil) into an
// independent instance with no aliased owned sub-objects; it must not
// mutate the source. Destroy releases everything a state owns and must
// accept any value produced by Reset or Duplicate for this element; it
// cannot fail.
type StateHooks struct {
	Reset     func(e *Element) (ElementState, error)
	Duplicate func(e *Element) (ElementState, error)
	Destroy   func(e *Element, state ElementState)
}

// stateful reports whether the element participates in atomic tracking.
// The Duplicate hook is the capability test used by the chain collector.
func (h StateHooks) stateful() bool { return h.Duplicate != nil }

// partial reports a hook set that is neither empty nor complete.
func (h StateHooks) partial() bool {
	n := 0
	if h.Reset != nil {
		n++
	}
	if h.Duplicate != nil {
		n++
	}
	if h.Destroy != nil {
		n++
	}
	return n != 0 && n != 3
}

// DefaultStateHooks returns hooks sufficient for elements with no payload
// beyond the back-reference: reset allocates a bare StateBase, duplicate
// shallow-copies it, destroy releases nothing.
func DefaultStateHooks() StateHooks {
	return StateHooks{
		Reset: func(*Element) (ElementState, error) {
			return &StateBase{}, nil
		},
		Duplicate: func(e *Element) (ElementState, error) {
			cp := *e.State().(*StateBase)
			return &cp, nil
		},
		Destroy: func(*Element, ElementState) {},
	}
}
