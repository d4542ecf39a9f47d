package relay

import (
	"fmt"
	"sync"
)

// SlotOps supplies the pluggable copy semantics for a Slot's payload.
// Duplicate must produce an independent copy of state without mutating it;
// it may fail on resource exhaustion. Destroy releases all resources owned
// by state and must be safe for any value produced for this slot.
type SlotOps struct {
	Duplicate func(s *Slot, state any) (any, error)
	Destroy   func(s *Slot, state any)
}

// Slot is a versioned holder of private state for one opaque object. It
// carries the object's persisted state (visible pipeline-wide) and the
// per-slot lock used by the wound-wait protocol. Slots are created with
// Pipeline.NewSlot and keyed by identity: transactions index their entries
// by *Slot.
type Slot struct {
	pipeline *Pipeline
	ops      SlotOps

	mu        sync.Mutex
	cond      *sync.Cond
	owner     *Transaction
	persisted any
	released  bool
}

func newSlot(p *Pipeline, initial any, ops SlotOps) (*Slot, error) {
	if ops.Duplicate == nil || ops.Destroy == nil {
		return nil, fmt.Errorf("slot requires both duplicate and destroy ops")
	}
	s := &Slot{
		pipeline:  p,
		ops:       ops,
		persisted: initial,
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// State returns the slot's currently persisted state. The value is stable
// between commits; transactions read it implicitly through their old
// snapshots instead.
func (s *Slot) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persisted
}

// acquire takes the slot's exclusive lock on behalf of tx using wound-wait:
//
//   - re-entrant acquisition by the current owner is a no-op
//   - a contender younger than the holder fails with ErrLockConflict
//   - a contender older than the holder wounds it (the holder's next
//     acquisition fails) and waits for the slot to be released
//
// Ages are unique and retained across Restart, so the oldest contender in
// any conflict set is never forced to back off and the protocol terminates.
func (s *Slot) acquire(tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.released {
			return ErrSlotReleased
		}
		if s.owner == tx {
			return nil
		}
		if tx.wounded.Load() {
			return ErrLockConflict
		}
		if s.owner == nil {
			s.owner = tx
			tx.held = append(tx.held, s)
			return nil
		}
		if s.owner.age < tx.age {
			// Holder is older: the younger contender dies.
			return ErrLockConflict
		}
		// Holder is younger: wound it and wait for the release.
		s.owner.wounded.Store(true)
		s.cond.Wait()
	}
}

// release drops tx's ownership. Called for every held slot when the
// transaction commits, aborts, or restarts.
func (s *Slot) release(tx *Transaction) {
	s.mu.Lock()
	if s.owner == tx {
		s.owner = nil
		s.cond.Broadcast()
	}
	s.mu.Unlock()
}

// swap installs next as the persisted state and returns the previous
// instance for retirement. Only a committing transaction that owns the
// slot's lock may call it.
func (s *Slot) swap(next any) any {
	s.mu.Lock()
	prev := s.persisted
	s.persisted = next
	s.mu.Unlock()
	return prev
}

func (s *Slot) destroyPersisted() {
	s.mu.Lock()
	state := s.persisted
	s.persisted = nil
	s.released = true
	s.cond.Broadcast()
	s.mu.Unlock()
	if state != nil {
		s.ops.Destroy(s, state)
	}
}
