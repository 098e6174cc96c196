package connectors

import "sync/atomic"

// UsageRecorder tallies upstream calls for one accounting scope. Each scope
// owns its own recorder, so reentrant scopes never double-count; the scope
// owner flushes the final count into the descriptor exactly once on exit.
type UsageRecorder struct {
	n atomic.Int64
}

// Record notes one upstream call attempt. Safe on a nil recorder so
// connectors constructed outside an accounting scope keep working.
func (r *UsageRecorder) Record() {
	if r == nil {
		return
	}
	r.n.Add(1)
}

// Count returns the number of upstream calls recorded so far.
func (r *UsageRecorder) Count() int64 {
	if r == nil {
		return 0
	}
	return r.n.Load()
}
