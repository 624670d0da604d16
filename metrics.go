package reeutil

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricCaptchaIssued counts challenges handed out.
	MetricCaptchaIssued MetricID = iota
	// MetricCaptchaRejected counts wrong, expired, or replayed challenge answers.
	MetricCaptchaRejected
	// MetricLoginSuccess counts terminal logins that issued a token.
	MetricLoginSuccess
	// MetricLoginFailure counts first-step failures of any kind.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused by the per-IP throttle.
	MetricLoginRateLimited
	// MetricLoginCodeSent counts second factors started.
	MetricLoginCodeSent
	// MetricLoginCodeSuccess counts second factors completed.
	MetricLoginCodeSuccess
	// MetricLoginCodeFailure counts rejected second-factor submissions.
	MetricLoginCodeFailure
	// MetricAccountBlocked counts lockout transitions.
	MetricAccountBlocked
	// MetricPasswordExpired counts logins refused for password age.
	MetricPasswordExpired
	// MetricCodeDeliveryFailed counts mailer failures.
	MetricCodeDeliveryFailed
	// MetricVerificationCodeSent counts standalone codes issued.
	MetricVerificationCodeSent
	// MetricVerificationCodeSuccess counts standalone codes accepted.
	MetricVerificationCodeSuccess
	// MetricVerificationCodeFailure counts standalone codes rejected.
	MetricVerificationCodeFailure
	// MetricTokenIssued counts signed session tokens.
	MetricTokenIssued
	// MetricAuthorizeSuccess counts resolved bearer tokens.
	MetricAuthorizeSuccess
	// MetricAuthorizeFailure counts rejected bearer tokens.
	MetricAuthorizeFailure
	// MetricAuthorizeForbidden counts role gate refusals.
	MetricAuthorizeForbidden
	// MetricAuthorizeLatency is the only histogram.
	MetricAuthorizeLatency
	metricIDCount
)

// MetricCount is the number of defined MetricIDs.
const MetricCount = int(metricIDCount)

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

// Metrics holds lock-free engine counters.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
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

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only MetricAuthorizeLatency
// carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricAuthorizeLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter.
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
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthorizeLatency].buckets[i])
		}
		s.Histograms[MetricAuthorizeLatency] = buckets
	}

	return s
}

// Bucket upper bounds in milliseconds; the last bucket is unbounded.
var histogramBoundsMS = [histBucketCount - 1]int64{5, 10, 25, 50, 100, 250, 500}

// HistogramBoundsMS returns the inclusive upper bound of every finite bucket.
func HistogramBoundsMS() []int64 {
	out := make([]int64, len(histogramBoundsMS))
	copy(out, histogramBoundsMS[:])
	return out
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	for i, bound := range histogramBoundsMS {
		if ms <= bound {
			return i
		}
	}
	return histBucketCount - 1
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
