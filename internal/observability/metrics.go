package observability

import (
	"sync"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// Metrics provides basic in-memory counters for the notification and
// escalation paths.
type Metrics struct {
	mu         sync.Mutex
	raised     map[domain.NotificationKind]int64
	suppressed int64
	scans      int64
	overdue    int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		raised: make(map[domain.NotificationKind]int64),
	}
}

// RecordRaise counts a notification that was actually inserted.
func (m *Metrics) RecordRaise(kind domain.NotificationKind) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raised[kind]++
}

// RecordSuppressed counts a raise suppressed by the dedup invariant.
func (m *Metrics) RecordSuppressed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressed++
}

// RecordScan counts one full staleness pass.
func (m *Metrics) RecordScan() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++
}

// RecordOverdue counts a ticket detected over the staleness threshold.
// Detections repeat every scan; the dedup invariant keeps the alerts
// at-most-once.
func (m *Metrics) RecordOverdue() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overdue++
}

// Raised returns the insert count for a kind.
func (m *Metrics) Raised(kind domain.NotificationKind) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.raised[kind]
}

// Suppressed returns the dedup suppression count.
func (m *Metrics) Suppressed() int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suppressed
}

// Scans returns the number of completed staleness passes.
func (m *Metrics) Scans() int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scans
}
