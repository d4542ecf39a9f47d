package relay

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key transaction events.
type MetricsProvider interface {
	// OnCommit is called after a successful commit with the number of
	// entries swapped and the time taken to verify and swap them.
	OnCommit(entries int, duration time.Duration)

	// OnAbort is called when a transaction discards its working copies.
	OnAbort(entries int)

	// OnLockConflict is called when a transaction of the given age is
	// forced to back off by the wound-wait protocol.
	OnLockConflict(age uint64)

	// OnRetry is called before a conflicted transaction reruns.
	// Attempt counts from 1.
	OnRetry(attempt int)

	// OnEntryCreated is called when a transaction duplicates a persisted
	// state into a new working copy.
	OnEntryCreated()
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnCommit(_ int, _ time.Duration) {}
func (NoOpMetricsProvider) OnAbort(_ int)                   {}
func (NoOpMetricsProvider) OnLockConflict(_ uint64)         {}
func (NoOpMetricsProvider) OnRetry(_ int)                   {}
func (NoOpMetricsProvider) OnEntryCreated()                 {}
