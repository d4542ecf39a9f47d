package relay

import "sync"

// errorRing is a thread-safe ring buffer holding the most recent failed
// update attempts. A nil ring (capacity zero) is valid and drops everything.
type errorRing struct {
	mu   sync.RWMutex
	errs []error
	next int
	full bool
}

func newErrorRing(capacity int) *errorRing {
	if capacity <= 0 {
		return nil
	}
	return &errorRing{errs: make([]error, capacity)}
}

func (r *errorRing) push(err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errs[r.next] = err
	r.next = (r.next + 1) % len(r.errs)
	if r.next == 0 {
		r.full = true
	}
}

// all returns the recorded errors, oldest first.
func (r *errorRing) all() []error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full {
		return append([]error(nil), r.errs[:r.next]...)
	}
	out := make([]error, 0, len(r.errs))
	out = append(out, r.errs[r.next:]...)
	out = append(out, r.errs[:r.next]...)
	return out
}
