package goAuthClient

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a client counter or histogram.
type MetricID uint16

const (
	// MetricInitRestored counts restorations that needed a refresh.
	MetricInitRestored MetricID = iota
	// MetricInitCacheRestored counts restorations served from the snapshot cache.
	MetricInitCacheRestored
	// MetricInitNoSession counts restorations that found no session marker.
	MetricInitNoSession
	// MetricInitInvalidCookie counts restorations abandoned on a malformed user_info cookie.
	MetricInitInvalidCookie
	// MetricInitExhausted counts restorations that ran out of attempts.
	MetricInitExhausted
	// MetricInitRejected counts restorations stopped by a 401.
	MetricInitRejected
	// MetricRefreshSuccess counts committed refreshes.
	MetricRefreshSuccess
	// MetricRefreshAuthFailure counts 401 refresh responses.
	MetricRefreshAuthFailure
	// MetricRefreshTransientFailure counts network and non-401 refresh failures.
	MetricRefreshTransientFailure
	// MetricRefreshProtocolFailure counts 2xx refresh responses without a token.
	MetricRefreshProtocolFailure
	// MetricRefreshIdentityMissing counts refreshes with no resolvable identity.
	MetricRefreshIdentityMissing
	// MetricProactiveRefresh counts scheduler firings.
	MetricProactiveRefresh
	// MetricOTPRequested counts accepted OTP requests.
	MetricOTPRequested
	// MetricOTPVerifySuccess counts committed OTP verifications.
	MetricOTPVerifySuccess
	// MetricOTPVerifyFailure counts rejected or malformed OTP verifications.
	MetricOTPVerifyFailure
	// MetricCallSuccess counts 2xx authenticated calls.
	MetricCallSuccess
	// MetricCallFailure counts authenticated calls returning an error.
	MetricCallFailure
	// MetricCallTimeout counts authenticated calls aborted by the client timeout.
	MetricCallTimeout
	// MetricReauth counts 401-triggered re-authentications.
	MetricReauth
	// MetricLogout counts Logout calls.
	MetricLogout
	// MetricSessionRepaired counts authenticated flags restored by reconciliation.
	MetricSessionRepaired
	// MetricSessionExpired counts flags dropped because the token reached the safety buffer.
	MetricSessionExpired
	// MetricSessionCleared counts session wipes.
	MetricSessionCleared
	// MetricCacheHit counts snapshot cache hits.
	MetricCacheHit
	// MetricCacheMiss counts snapshot cache misses.
	MetricCacheMiss
	// MetricCallLatency is the authenticated call latency histogram.
	MetricCallLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and fixed-bucket latency histograms.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of [Metrics].
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns zeroed counters. Latency histograms need both flags.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether latency observations are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc is safe for concurrent use and a no-op when metrics are disabled.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only [MetricCallLatency] has a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricCallLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram. Disabled metrics give empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricCallLatency].buckets[i])
		}
		s.Histograms[MetricCallLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
