package relay

// Phase represents the lifecycle phase of a Transaction.
type Phase int32

const (
	// PhaseOpen indicates the transaction is collecting entries and may
	// still commit, abort, or restart.
	PhaseOpen Phase = iota

	// PhaseCommitted indicates every working copy has been swapped into
	// place and the transaction holds no locks.
	PhaseCommitted

	// PhaseAborted indicates every working copy has been discarded and no
	// persisted state was changed.
	PhaseAborted
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseCommitted:
		return "committed"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
