package wa

import (
	"log/slog"
	"sync"
)

// DefaultSendLimit is the per-customer sends allowed per window.
const DefaultSendLimit = 15

// SendLimiter enforces a soft per-customer outbound rate limit: a rolling
// counter capped at limit sends per window. Counters are cleared all at
// once on a fixed timer (the Reset job), not by per-send expiry, matching
// the upstream provider's window semantics. Exceeding the limit is logged
// and counted but the send still proceeds — soft enforcement.
type SendLimiter struct {
	mu       sync.Mutex
	counters map[string]int
	limit    int
	logger   *slog.Logger

	// OnOverLimit, if non-nil, is invoked once per over-limit send
	// (metrics hook).
	OnOverLimit func(customerID string)
}

// NewSendLimiter creates a limiter. limit <= 0 uses DefaultSendLimit.
func NewSendLimiter(limit int, logger *slog.Logger) *SendLimiter {
	if limit <= 0 {
		limit = DefaultSendLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SendLimiter{
		counters: make(map[string]int),
		limit:    limit,
		logger:   logger.With("component", "wa.ratelimit"),
	}
}

// Note records one send for customerID and reports whether the customer
// is now over the limit. The send is never blocked.
func (l *SendLimiter) Note(customerID string) bool {
	l.mu.Lock()
	l.counters[customerID]++
	count := l.counters[customerID]
	l.mu.Unlock()

	if count > l.limit {
		l.logger.Warn("send over rate limit, proceeding anyway",
			"customer_id", customerID,
			"count", count,
			"limit", l.limit,
		)
		if l.OnOverLimit != nil {
			l.OnOverLimit(customerID)
		}
		return true
	}
	return false
}

// Count returns the current window count for customerID.
func (l *SendLimiter) Count(customerID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counters[customerID]
}

// Reset clears all counters. Called by the fixed window timer.
func (l *SendLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.counters)
}
