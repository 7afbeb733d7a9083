package scan

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// snapshotMetrics collects pass and read instrumentation for one snapshot.
// Registration is optional; an unregistered instance still records so the
// hot path never branches on observability config.
type snapshotMetrics struct {
	passesTotal       prometheus.Counter
	passDuration      prometheus.Histogram
	readDuration      prometheus.Histogram
	readBytesTotal    prometheus.Counter
	readFailuresTotal prometheus.Counter
	regions           prometheus.Gauge
	trackedBytes      prometheus.Gauge
	validElements     prometheus.Gauge
}

func newSnapshotMetrics() *snapshotMetrics {
	return &snapshotMetrics{
		passesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "memsift",
			Subsystem: "scan",
			Name:      "passes_total",
			Help:      "Total read+filter passes executed.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "memsift",
			Subsystem: "scan",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a full pass across all regions.",
			Buckets:   prometheus.DefBuckets,
		}),
		readDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "memsift",
			Subsystem: "scan",
			Name:      "read_duration_seconds",
			Help:      "Wall time of a single region read.",
			Buckets:   prometheus.DefBuckets,
		}),
		readBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "memsift",
			Subsystem: "scan",
			Name:      "read_bytes_total",
			Help:      "Bytes fetched from the target across all reads.",
		}),
		readFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "memsift",
			Subsystem: "scan",
			Name:      "read_failures_total",
			Help:      "Region reads that returned an error.",
		}),
		regions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "memsift",
			Subsystem: "scan",
			Name:      "regions",
			Help:      "Regions currently tracked by the snapshot.",
		}),
		trackedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "memsift",
			Subsystem: "scan",
			Name:      "tracked_bytes",
			Help:      "Logical bytes covered by tracked regions.",
		}),
		validElements: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "memsift",
			Subsystem: "scan",
			Name:      "valid_elements",
			Help:      "Valid candidate elements across all regions.",
		}),
	}
}

// register attaches every collector to reg. Collectors another snapshot
// already registered are tolerated so multiple sessions can share one
// registry.
func (m *snapshotMetrics) register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.passesTotal,
		m.passDuration,
		m.readDuration,
		m.readBytesTotal,
		m.readFailuresTotal,
		m.regions,
		m.trackedBytes,
		m.validElements,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			are := &prometheus.AlreadyRegisteredError{}
			if errors.As(err, are) {
				continue
			}
			return err
		}
	}
	return nil
}
