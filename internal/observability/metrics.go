package observability

import "sync"

// SessionMetrics provides basic in-memory counters for session lifecycle
// events.
type SessionMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

// Counter names recorded by the session core.
const (
	MetricLogins          = "logins"
	MetricRenewals        = "renewals"
	MetricRenewalFailures = "renewal_failures"
	MetricForcedLogouts   = "forced_logouts"
	MetricRecoveries      = "recoveries"
	MetricGuardRedirects  = "guard_redirects"
	MetricStaleRenewals   = "stale_renewals_discarded"
)

// NewSessionMetrics initializes metrics storage.
func NewSessionMetrics() *SessionMetrics {
	return &SessionMetrics{counters: make(map[string]int64)}
}

// Record increments the named counter. Safe on a nil receiver so callers can
// leave metrics unwired.
func (m *SessionMetrics) Record(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// Snapshot returns a copy of all counters.
func (m *SessionMetrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}
