package relay

import "errors"

var (
	// ErrLockConflict signals that the wound-wait protocol forced this
	// transaction to back off. It is not a failure: the caller must discard
	// every entry acquired so far (Restart or Abort) and rerun the whole
	// transaction attempt. Pipeline.Update does this automatically. It is
	// never retried silently by the slot or collector layers.
	ErrLockConflict = errors.New("lock conflict: transaction must restart")

	// ErrCapabilityMismatch reports an element that supplies only some of
	// the three state hooks. An element either opts out of atomic tracking
	// entirely or implements Reset, Duplicate, and Destroy together.
	ErrCapabilityMismatch = errors.New("element must implement all of reset/duplicate/destroy or none")

	// ErrTransactionDone reports an operation on a transaction that has
	// already committed or aborted.
	ErrTransactionDone = errors.New("transaction already committed or aborted")

	// ErrAlreadyAttached reports an attach of an element that is still
	// linked into a chain.
	ErrAlreadyAttached = errors.New("element already attached")

	// ErrNotAttached reports a detach of an element that is not linked into
	// the endpoint's chain.
	ErrNotAttached = errors.New("element not attached to endpoint")

	// ErrInvalidPosition reports an attach after an element that is not part
	// of the target endpoint's chain.
	ErrInvalidPosition = errors.New("position element not in endpoint chain")

	// ErrNoState reports a working-copy request for an element that carries
	// no state hooks and therefore never participates in transactions.
	ErrNoState = errors.New("element carries no state")

	// ErrSlotReleased reports use of a slot after Pipeline.ReleaseSlot.
	ErrSlotReleased = errors.New("slot already released")
)

// Allocation failures have no dedicated sentinel: any error returned by a
// Reset or Duplicate hook is wrapped and propagated as-is, and the
// transaction attempt must be aborted. Destroy hooks cannot fail.
