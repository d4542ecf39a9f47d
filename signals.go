package relay

import "github.com/zoobzio/capitan"

// Transaction lifecycle signals.
var (
	// TransactionBegan is emitted when a transaction is opened.
	TransactionBegan = capitan.NewSignal(
		"relay.transaction.began",
		"Transaction opened",
	)

	// TransactionCommitted is emitted after every working copy has been
	// swapped into place.
	TransactionCommitted = capitan.NewSignal(
		"relay.transaction.committed",
		"Transaction committed",
	)

	// TransactionAborted is emitted when a transaction discards its working
	// copies without touching persisted state.
	TransactionAborted = capitan.NewSignal(
		"relay.transaction.aborted",
		"Transaction aborted",
	)

	// TransactionRestarted is emitted when a transaction is torn down after
	// a lock conflict to rerun from scratch.
	TransactionRestarted = capitan.NewSignal(
		"relay.transaction.restarted",
		"Transaction restarted after lock conflict",
	)
)

// Locking and verification signals.
var (
	// LockConflictDetected is emitted when the wound-wait protocol forces a
	// transaction to back off.
	LockConflictDetected = capitan.NewSignal(
		"relay.lock.conflict",
		"Wound-wait lock conflict",
	)

	// CommitVerifyFailed is emitted when a working copy fails the commit
	// verification gate.
	CommitVerifyFailed = capitan.NewSignal(
		"relay.commit.verify.failed",
		"Working copy failed verification",
	)
)

// Topology signals.
var (
	// ElementAttached is emitted when an element joins an endpoint chain.
	ElementAttached = capitan.NewSignal(
		"relay.element.attached",
		"Element attached to endpoint chain",
	)

	// ElementDetached is emitted when an element leaves an endpoint chain.
	ElementDetached = capitan.NewSignal(
		"relay.element.detached",
		"Element detached from endpoint chain",
	)
)
