package twostep

import (
	"sync/atomic"
)

// MetricID identifies one of the engine's counters.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that passed the credential check
	// and produced a challenge.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins rejected on credentials or a
	// disabled account.
	MetricLoginFailure
	// MetricChallengeIssued counts codes stored and handed to delivery.
	MetricChallengeIssued
	// MetricResendBlocked counts issue attempts refused by the resend
	// cooldown.
	MetricResendBlocked
	// MetricIssueLockedOut counts issue attempts refused by an active
	// lockout.
	MetricIssueLockedOut
	// MetricDeliveryFailure counts delivery sink errors. Delivery
	// failures never fail the calling operation.
	MetricDeliveryFailure
	// MetricVerifySuccess counts verifications that consumed a code.
	MetricVerifySuccess
	// MetricVerifyFailure counts wrong or expired codes.
	MetricVerifyFailure
	// MetricVerifyLockedOut counts verifications refused by an active
	// lockout.
	MetricVerifyLockedOut
	// MetricLockoutEscalated counts lockout level escalations.
	MetricLockoutEscalated
	// MetricTokenRejected counts correlation or access tokens rejected
	// as expired, malformed, or of the wrong purpose.
	MetricTokenRejected
	metricIDCount
)

const cacheLineSize = 64

// paddedCounter keeps each counter on its own cache line so hot
// counters do not false-share under concurrent load.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's lock-free counters.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a Metrics instance from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
	}
}

// Enabled reports whether counting is active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments a counter. No-op when metrics are disabled.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter into a map.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
