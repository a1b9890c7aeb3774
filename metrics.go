package authflow

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by authflow APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricSignInSuccess is an exported constant or variable used by the flow controllers.
	MetricSignInSuccess MetricID = iota
	// MetricSignInFailure is an exported constant or variable used by the flow controllers.
	MetricSignInFailure
	// MetricSignUpSuccess is an exported constant or variable used by the flow controllers.
	MetricSignUpSuccess
	// MetricSignUpFailure is an exported constant or variable used by the flow controllers.
	MetricSignUpFailure
	// MetricSignUpSandboxRouted is an exported constant or variable used by the flow controllers.
	MetricSignUpSandboxRouted
	// MetricSignUpLocalRejected is an exported constant or variable used by the flow controllers.
	MetricSignUpLocalRejected
	// MetricResetRequestSuccess is an exported constant or variable used by the flow controllers.
	MetricResetRequestSuccess
	// MetricResetRequestFailure is an exported constant or variable used by the flow controllers.
	MetricResetRequestFailure
	// MetricResetConfirmSuccess is an exported constant or variable used by the flow controllers.
	MetricResetConfirmSuccess
	// MetricResetConfirmFailure is an exported constant or variable used by the flow controllers.
	MetricResetConfirmFailure
	// MetricVerificationSuccess is an exported constant or variable used by the flow controllers.
	MetricVerificationSuccess
	// MetricVerificationFailure is an exported constant or variable used by the flow controllers.
	MetricVerificationFailure
	// MetricBackTransition is an exported constant or variable used by the flow controllers.
	MetricBackTransition
	// MetricSubmitRejectedInFlight is an exported constant or variable used by the flow controllers.
	MetricSubmitRejectedInFlight
	// MetricSubmitLatency is an exported constant or variable used by the flow controllers.
	MetricSubmitLatency
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

// Metrics defines a public type used by authflow APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot defines a public type used by authflow APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics set honoring cfg's enable switches. A
// disabled Metrics is a no-op on every path.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether the metric set records anything at all.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments the counter identified by id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a submit duration into the latency histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricSubmitLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads the current value of the counter identified by id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram into maps for exporters.
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
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricSubmitLatency].buckets[i])
		}
		s.Histograms[MetricSubmitLatency] = buckets
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
