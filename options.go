package relay

import (
	"time"

	"github.com/zoobzio/clockz"
)

// pipelineConfig holds configuration collected by PipelineOptions.
type pipelineConfig struct {
	clock       clockz.Clock
	backoff     time.Duration
	metrics     MetricsProvider
	historySize int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*pipelineConfig)

// WithClock sets a custom clock for backoff timing.
// Use this with clockz.FakeClock for deterministic contention testing.
func WithClock(clock clockz.Clock) PipelineOption {
	return func(c *pipelineConfig) {
		c.clock = clock
	}
}

// WithBackoff sets the base delay Update waits after a lock conflict before
// rerunning the transaction. The delay doubles per consecutive conflict.
// Zero disables the wait entirely.
func WithBackoff(d time.Duration) PipelineOption {
	return func(c *pipelineConfig) {
		c.backoff = d
	}
}

// WithMetrics installs a MetricsProvider receiving callbacks on commits,
// aborts, lock conflicts, and retries.
func WithMetrics(m MetricsProvider) PipelineOption {
	return func(c *pipelineConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithErrorHistory keeps the last size errors from failed Update attempts,
// readable via Pipeline.RecentErrors. Disabled when size is zero.
func WithErrorHistory(size int) PipelineOption {
	return func(c *pipelineConfig) {
		c.historySize = size
	}
}

// ElementOption configures an Element at construction.
type ElementOption func(*Element)

// WithStateHooks supplies the element's state lifecycle and opts it into
// atomic tracking. All three hooks must be set; attach rejects partial sets.
func WithStateHooks(h StateHooks) ElementOption {
	return func(e *Element) {
		e.hooks = h
	}
}

// WithDefaultState opts the element into atomic tracking with a payload-free
// state, for elements that only need to be fenced by transactions.
func WithDefaultState() ElementOption {
	return func(e *Element) {
		e.hooks = DefaultStateHooks()
	}
}

// WithAttachFunc sets a hook invoked while the element joins a chain, after
// linking and before its baseline state is created. An error unwinds the
// attach.
func WithAttachFunc(fn func(*Element) error) ElementOption {
	return func(e *Element) {
		e.onAttach = fn
	}
}

// WithDetachFunc sets a hook invoked while the element leaves a chain, after
// its persisted state is released and before unlinking.
func WithDetachFunc(fn func(*Element)) ElementOption {
	return func(e *Element) {
		e.onDetach = fn
	}
}
