package relay

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/zoobzio/capitan"
)

// entry is one versioned state pair inside a transaction: old is the
// immutable snapshot taken when the slot was first touched, new is the
// working copy that validation code mutates. At most one entry exists per
// slot per transaction.
type entry struct {
	old       any
	new       any
	committed bool
}

// Transaction is an atomic unit of proposed pipeline reconfiguration. It
// lazily collects a working copy of every slot it touches, acquiring each
// slot's lock with the wound-wait discipline, and either swaps all working
// copies into place (Commit) or discards them (Abort) with no partial
// effects.
//
// A transaction is driven by a single goroutine. Concurrent transactions on
// the same pipeline are safe; sharing one *Transaction between goroutines is
// not.
type Transaction struct {
	pipeline *Pipeline
	age      uint64

	phase   Phase
	wounded atomic.Bool

	entries map[*Slot]*entry
	order   []*Slot
	held    []*Slot
}

// Age returns the transaction's wound-wait age. Lower is older; ages are
// unique per pipeline and retained across Restart.
func (tx *Transaction) Age() uint64 { return tx.age }

// Phase returns the transaction's lifecycle phase.
func (tx *Transaction) Phase() Phase { return tx.phase }

// StateOf returns the working copy of s for this transaction, creating the
// entry on first touch: the slot's lock is acquired, the persisted state is
// snapshotted as old, and a duplicate becomes new. Repeated calls return the
// same working copy without duplicating again.
//
// ErrLockConflict means the wound-wait protocol chose this transaction to
// back off; the caller must restart the whole attempt. Any other error comes
// from the slot's Duplicate op and is fatal to this attempt.
func (tx *Transaction) StateOf(ctx context.Context, s *Slot) (any, error) {
	if tx.phase != PhaseOpen {
		return nil, ErrTransactionDone
	}
	if ent, ok := tx.entries[s]; ok {
		return ent.new, nil
	}

	if err := s.acquire(tx); err != nil {
		if err == ErrLockConflict {
			capitan.Emit(ctx, LockConflictDetected,
				KeyAge.Field(int(tx.age)),
			)
			tx.pipeline.metrics.OnLockConflict(tx.age)
		}
		return nil, err
	}

	// Owning the lock orders this read after the last committed swap.
	dup, err := s.ops.Duplicate(s, s.persisted)
	if err != nil {
		return nil, fmt.Errorf("duplicate state: %w", err)
	}
	tx.entries[s] = &entry{old: s.persisted, new: dup}
	tx.order = append(tx.order, s)
	tx.pipeline.metrics.OnEntryCreated()
	return dup, nil
}

// OldStateOf returns the snapshot of s taken when this transaction first
// touched it. The second return is false if the slot was never added to the
// transaction; that is an absent result, not an error. Never locks, never
// allocates.
func (tx *Transaction) OldStateOf(s *Slot) (any, bool) {
	ent, ok := tx.entries[s]
	if !ok {
		return nil, false
	}
	return ent.old, true
}

// NewStateOf returns the working copy of s, or false if the slot was never
// added to the transaction. Never locks, never allocates.
func (tx *Transaction) NewStateOf(s *Slot) (any, bool) {
	ent, ok := tx.entries[s]
	if !ok {
		return nil, false
	}
	return ent.new, true
}

// Commit verifies every working copy and atomically swaps each into place as
// the persisted state of its slot. On verification failure nothing is
// swapped and the transaction stays open so the caller can inspect or abort.
// After a successful commit the previous persisted instances are destroyed
// exactly once and all locks are released.
func (tx *Transaction) Commit(ctx context.Context) error {
	if tx.phase != PhaseOpen {
		return ErrTransactionDone
	}
	start := tx.pipeline.clock.Now()

	for _, s := range tx.order {
		if err := verifyState(tx.entries[s].new); err != nil {
			capitan.Emit(ctx, CommitVerifyFailed,
				KeyAge.Field(int(tx.age)),
				KeyError.Field(err.Error()),
			)
			return fmt.Errorf("verify state: %w", err)
		}
	}

	retired := make([]any, 0, len(tx.order))
	for _, s := range tx.order {
		ent := tx.entries[s]
		retired = append(retired, s.swap(ent.new))
		ent.committed = true
	}
	tx.phase = PhaseCommitted
	tx.releaseAll()

	// Retire the replaced instances. Each equals the entry's old snapshot
	// and is destroyed exactly once, here.
	for i, s := range tx.order {
		if retired[i] != nil {
			s.ops.Destroy(s, retired[i])
		}
	}

	capitan.Emit(ctx, TransactionCommitted,
		KeyAge.Field(int(tx.age)),
		KeyEntries.Field(len(tx.order)),
	)
	tx.pipeline.metrics.OnCommit(len(tx.order), tx.pipeline.clock.Since(start))
	return nil
}

// Abort discards every working copy and releases all locks. No persisted
// state is touched. Calling Abort on a finished transaction is a no-op.
func (tx *Transaction) Abort(ctx context.Context) {
	if tx.phase != PhaseOpen {
		return
	}
	entries := len(tx.order)
	tx.discard()
	tx.phase = PhaseAborted
	tx.releaseAll()

	capitan.Emit(ctx, TransactionAborted,
		KeyAge.Field(int(tx.age)),
		KeyEntries.Field(entries),
	)
	tx.pipeline.metrics.OnAbort(entries)
}

// Restart tears the transaction back down to empty after a lock conflict:
// every working copy is destroyed, all locks are released, and the wound
// flag is cleared. The age is retained, which is what guarantees forward
// progress when the attempt reruns. Only open transactions may restart.
func (tx *Transaction) Restart(ctx context.Context) {
	if tx.phase != PhaseOpen {
		return
	}
	tx.discard()
	tx.releaseAll()
	tx.wounded.Store(false)
	tx.entries = make(map[*Slot]*entry)
	tx.order = nil

	capitan.Emit(ctx, TransactionRestarted,
		KeyAge.Field(int(tx.age)),
	)
}

// discard destroys every working copy not already handed over by a commit.
// Old snapshots are never destroyed here: they are references to state that
// remains persisted.
func (tx *Transaction) discard() {
	for s, ent := range tx.entries {
		if !ent.committed {
			s.ops.Destroy(s, ent.new)
		}
	}
}

func (tx *Transaction) releaseAll() {
	for _, s := range tx.held {
		s.release(tx)
	}
	tx.held = nil
}
