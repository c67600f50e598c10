package formlogin

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one gate counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that issued a session cookie.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected login/password pairs.
	MetricLoginFailure
	// MetricLoginRateLimited counts login attempts refused by the throttle.
	MetricLoginRateLimited
	// MetricLogout counts logout requests.
	MetricLogout
	// MetricSessionResolved counts forwarded requests whose cookie resolved to an identity.
	MetricSessionResolved
	// MetricSessionMissing counts forwarded requests carrying an unknown or undecodable cookie.
	MetricSessionMissing
	// MetricRedirect401 counts 401 responses turned into login redirects.
	MetricRedirect401
	// MetricRedirect403 counts 403 responses turned into login redirects.
	MetricRedirect403
	// MetricBrokerError counts broker failures answered with 500.
	MetricBrokerError
	// MetricResolveLatency is the histogram of cookie-to-identity resolution time.
	MetricResolveLatency
	metricIDCount
)

// resolveBounds are the inclusive upper bounds of the resolve latency buckets; a final
// overflow bucket catches everything slower.
var resolveBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const (
	histBucketCount = len(resolveBounds) + 1
	cacheLineSize   = 64
)

// counterSlot keeps each counter on its own cache line so hot counters on concurrent
// requests do not contend.
type counterSlot struct {
	n atomic.Uint64
	_ [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the resolve latency histogram.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]counterSlot
	resolve       [histBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics value honoring cfg. A nil *Metrics is valid and records nothing.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id. Histogram ids are ignored.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || id == MetricResolveLatency {
		return
	}
	m.counters[id].n.Add(1)
}

// Observe records d in the histogram id. Only MetricResolveLatency carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricResolveLatency {
		return
	}
	m.resolve[resolveBucket(d)].Add(1)
}

// Value returns the current counter value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

// Snapshot copies every counter and, when enabled, the latency histogram. A disabled
// Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id != MetricResolveLatency {
			s.Counters[id] = m.counters[id].n.Load()
		}
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.resolve[i].Load()
		}
		s.Histograms[MetricResolveLatency] = buckets
	}
	return s
}

func resolveBucket(d time.Duration) int {
	for i, bound := range resolveBounds {
		if d <= bound {
			return i
		}
	}
	return len(resolveBounds)
}
