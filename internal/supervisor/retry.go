package supervisor

import (
	"context"
	"time"
)

// PollPolicy configures a bounded wait loop: a fixed number of attempts
// separated by a fixed interval. Both service supervisors share it.
type PollPolicy struct {
	Attempts  int               // total probe attempts
	Interval  time.Duration     // delay between attempts
	OnAttempt func(attempt int) // optional progress callback
}

// DefaultPollPolicy covers local services that need a few seconds to
// open their listen socket.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Attempts: 15,
		Interval: time.Second,
	}
}

// Poll invokes fn up to p.Attempts times, sleeping p.Interval between
// attempts. It returns true on the first success and false when attempts
// are exhausted or ctx is cancelled. The attempt count is a hard bound;
// there is no backoff and no retry beyond it.
func Poll(ctx context.Context, p PollPolicy, fn func(ctx context.Context) bool) bool {
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if p.OnAttempt != nil {
			p.OnAttempt(attempt)
		}
		if fn(ctx) {
			return true
		}
		if attempt == p.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(p.Interval):
		}
	}
	return false
}
