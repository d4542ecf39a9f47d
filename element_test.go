package relay

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestAttach_CreatesPersistedStateOnce(t *testing.T) {
	_, _, e := attachOne(t, testHooks(nil, nil))

	s0 := e.State()
	if s0 == nil {
		t.Fatal("expected persisted state immediately after attach")
	}
	if s0.Element() != e {
		t.Error("expected persisted state to reference its element")
	}
	if e.State() != s0 {
		t.Error("expected persisted state identity to be stable")
	}
}

func TestAttach_StatelessElementHasNoState(t *testing.T) {
	ctx := context.Background()
	pipe := NewPipeline()
	ep := pipe.NewEndpoint("out-0")
	e := NewElement("passthrough")

	if err := ep.Attach(ctx, e, nil); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if e.State() != nil {
		t.Error("expected stateless element to keep a nil persisted state")
	}
	if e.Stateful() {
		t.Error("expected element without hooks to report stateless")
	}

	tx := pipe.Begin(ctx)
	defer tx.Abort(ctx)
	if _, err := tx.ElementState(ctx, e); !errors.Is(err, ErrNoState) {
		t.Errorf("expected ErrNoState, got %v", err)
	}
}

func TestAttach_PartialHooksRejected(t *testing.T) {
	ctx := context.Background()
	pipe := NewPipeline()
	ep := pipe.NewEndpoint("out-0")
	e := NewElement("broken", WithStateHooks(StateHooks{
		Reset: func(*Element) (ElementState, error) { return &busState{}, nil },
	}))

	if err := ep.Attach(ctx, e, nil); !errors.Is(err, ErrCapabilityMismatch) {
		t.Fatalf("expected ErrCapabilityMismatch, got %v", err)
	}
	if e.Endpoint() != nil {
		t.Error("expected rejected element to stay detached")
	}
	if len(ep.Elements()) != 0 {
		t.Error("expected chain to stay empty")
	}
}

func TestAttach_ResetFailureUnwinds(t *testing.T) {
	ctx := context.Background()
	pipe := NewPipeline()
	ep := pipe.NewEndpoint("out-0")

	boom := errors.New("no memory for baseline")
	var attachRan, detachRan atomic.Int32
	e := NewElement("fragile",
		WithStateHooks(StateHooks{
			Reset:     func(*Element) (ElementState, error) { return nil, boom },
			Duplicate: func(*Element) (ElementState, error) { return &busState{}, nil },
			Destroy:   func(*Element, ElementState) {},
		}),
		WithAttachFunc(func(*Element) error { attachRan.Add(1); return nil }),
		WithDetachFunc(func(*Element) { detachRan.Add(1) }),
	)

	if err := ep.Attach(ctx, e, nil); !errors.Is(err, boom) {
		t.Fatalf("expected reset failure to propagate, got %v", err)
	}
	if attachRan.Load() != 1 {
		t.Errorf("expected attach hook to run once, got %d", attachRan.Load())
	}
	if detachRan.Load() != 1 {
		t.Errorf("expected detach hook to unwind the attach hook, got %d", detachRan.Load())
	}
	if e.Endpoint() != nil || e.State() != nil {
		t.Error("expected element fully detached after failed attach")
	}
	if len(ep.Elements()) != 0 {
		t.Error("expected chain to stay empty after failed attach")
	}
}

func TestAttach_HookFailureUnlinksWithoutDetachHook(t *testing.T) {
	ctx := context.Background()
	pipe := NewPipeline()
	ep := pipe.NewEndpoint("out-0")

	boom := errors.New("hardware rejected attach")
	var detachRan atomic.Int32
	e := NewElement("rejected",
		WithAttachFunc(func(*Element) error { return boom }),
		WithDetachFunc(func(*Element) { detachRan.Add(1) }),
	)

	if err := ep.Attach(ctx, e, nil); !errors.Is(err, boom) {
		t.Fatalf("expected attach hook failure to propagate, got %v", err)
	}
	if detachRan.Load() != 0 {
		t.Error("detach hook must not run when the attach hook itself failed")
	}
	if e.Endpoint() != nil {
		t.Error("expected element unlinked after failed attach hook")
	}
}

func TestAttach_PositionValidation(t *testing.T) {
	ctx := context.Background()
	pipe := NewPipeline()
	ep := pipe.NewEndpoint("out-0")
	other := pipe.NewEndpoint("out-1")

	a := NewElement("a")
	stranger := NewElement("stranger")
	if err := other.Attach(ctx, stranger, nil); err != nil {
		t.Fatalf("attach stranger: %v", err)
	}

	if err := ep.Attach(ctx, a, stranger); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
	if err := ep.Attach(ctx, a, nil); err != nil {
		t.Fatalf("attach a: %v", err)
	}
	if err := ep.Attach(ctx, a, nil); !errors.Is(err, ErrAlreadyAttached) {
		t.Fatalf("expected ErrAlreadyAttached, got %v", err)
	}
}

func TestDetach_ReleasesStateAndUnlinks(t *testing.T) {
	ctx := context.Background()
	var destroys atomic.Int32
	var detachRan atomic.Int32
	pipe := NewPipeline()
	ep := pipe.NewEndpoint("out-0")
	e := NewElement("bridge-0",
		WithStateHooks(testHooks(nil, &destroys)),
		WithDetachFunc(func(*Element) { detachRan.Add(1) }),
	)
	if err := ep.Attach(ctx, e, nil); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	if err := ep.Detach(ctx, e); err != nil {
		t.Fatalf("detach failed: %v", err)
	}
	if destroys.Load() != 1 {
		t.Errorf("expected persisted state destroyed exactly once, got %d", destroys.Load())
	}
	if detachRan.Load() != 1 {
		t.Errorf("expected detach hook to run once, got %d", detachRan.Load())
	}
	if e.Endpoint() != nil || e.State() != nil {
		t.Error("expected element fully detached")
	}
	if err := ep.Detach(ctx, e); !errors.Is(err, ErrNotAttached) {
		t.Errorf("expected ErrNotAttached on second detach, got %v", err)
	}

	// Detached elements can re-attach with a fresh baseline.
	if err := ep.Attach(ctx, e, nil); err != nil {
		t.Fatalf("re-attach failed: %v", err)
	}
	if e.State() == nil {
		t.Error("expected fresh persisted state after re-attach")
	}
}

func TestDefaultStateHooks_RoundTrip(t *testing.T) {
	ctx := context.Background()
	pipe := NewPipeline()
	ep := pipe.NewEndpoint("out-0")
	e := NewElement("fence-only", WithDefaultState())
	if err := ep.Attach(ctx, e, nil); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if e.State().Element() != e {
		t.Fatal("expected default reset to bind the back-reference")
	}

	err := pipe.Update(ctx, func(tx *Transaction) error {
		st, err := tx.ElementState(ctx, e)
		if err != nil {
			return err
		}
		if st == e.State() {
			return errors.New("working copy aliases persisted state")
		}
		if st.Element() != e {
			return errors.New("duplicate lost the back-reference")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
}
