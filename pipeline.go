package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultBackoff is the base delay Update waits before rerunning a
// transaction that lost a wound-wait conflict.
const DefaultBackoff = time.Millisecond

// Pipeline is the service object tying the pieces together: it owns the
// slot registry, the endpoint topology, and the age counter that orders
// concurrent transactions. Elements receive it implicitly when attached to
// one of its endpoints.
type Pipeline struct {
	clock   clockz.Clock
	backoff time.Duration
	metrics MetricsProvider
	history *errorRing

	age atomic.Uint64

	mu    sync.Mutex
	slots map[*Slot]struct{}
}

// NewPipeline creates an empty pipeline.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	cfg := &pipelineConfig{
		clock:   clockz.RealClock,
		backoff: DefaultBackoff,
		metrics: NoOpMetricsProvider{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Pipeline{
		clock:   cfg.clock,
		backoff: cfg.backoff,
		metrics: cfg.metrics,
		history: newErrorRing(cfg.historySize),
		slots:   make(map[*Slot]struct{}),
	}
}

// NewEndpoint creates a named endpoint with an empty element chain.
func (p *Pipeline) NewEndpoint(name string) *Endpoint {
	return &Endpoint{pipeline: p, name: name}
}

// NewSlot registers private state with the pipeline: initial becomes the
// persisted state and ops supplies the duplicate/destroy behavior used by
// transactions. Both ops are required. Element attach calls this
// internally; drivers only need it for non-element private objects.
func (p *Pipeline) NewSlot(initial any, ops SlotOps) (*Slot, error) {
	s, err := newSlot(p, initial, ops)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.slots[s] = struct{}{}
	p.mu.Unlock()
	return s, nil
}

// ReleaseSlot destroys the slot's persisted state and removes it from the
// registry. The caller must ensure no open transaction still references the
// slot.
func (p *Pipeline) ReleaseSlot(s *Slot) {
	p.mu.Lock()
	delete(p.slots, s)
	p.mu.Unlock()
	s.destroyPersisted()
}

// Begin opens a transaction with the next wound-wait age. Callers that do
// not use Update must drive the commit/abort/restart protocol themselves,
// restarting the entire attempt whenever any operation reports
// ErrLockConflict.
func (p *Pipeline) Begin(ctx context.Context) *Transaction {
	tx := &Transaction{
		pipeline: p,
		age:      p.age.Add(1),
		entries:  make(map[*Slot]*entry),
	}
	capitan.Emit(ctx, TransactionBegan,
		KeyAge.Field(int(tx.age)),
	)
	return tx
}

// Update runs fn inside a transaction and commits it. This is the retry
// driver the wound-wait protocol requires: on ErrLockConflict the
// transaction is restarted from scratch (same age, so it grows older
// relative to new contenders and eventually wins) after an exponential
// backoff. Any other error aborts the transaction and is returned; the
// pipeline keeps its pre-transaction state in every failure case.
//
// fn may run multiple times and must not carry side effects between
// attempts beyond mutating working copies.
func (p *Pipeline) Update(ctx context.Context, fn func(tx *Transaction) error) error {
	tx := p.Begin(ctx)
	for attempt := 1; ; attempt++ {
		err := fn(tx)
		if err == nil {
			err = tx.Commit(ctx)
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrLockConflict) {
			p.history.push(err)
			tx.Abort(ctx)
			return err
		}

		tx.Restart(ctx)
		p.metrics.OnRetry(attempt)
		if err := p.wait(ctx, backoffFor(p.backoff, attempt)); err != nil {
			p.history.push(err)
			tx.Abort(ctx)
			return err
		}
	}
}

// wait blocks for d using the pipeline clock, honoring ctx cancellation.
func (p *Pipeline) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := p.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}

// backoffFor doubles the base delay per attempt, capped at 64x.
func backoffFor(base time.Duration, attempt int) time.Duration {
	shift := attempt - 1
	if shift > 6 {
		shift = 6
	}
	return base << shift
}

// RecentErrors returns the most recent failed update attempts, oldest
// first. Empty unless the pipeline was built with WithErrorHistory.
func (p *Pipeline) RecentErrors() []error {
	return p.history.all()
}
