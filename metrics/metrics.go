// Package metrics exposes the activity of resp.Decoders as prometheus
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zapcore"

	"github.com/mediocregopher/respfeed/trace"
)

const (
	// DefaultNamespace is used when NewDecoderMetrics is given an empty
	// namespace.
	DefaultNamespace = "respfeed"

	//prometheus label keys
	typeName  = "type"
	labelName = "level"
)

var (
	typeLabel  = []string{typeName}
	levelLabel = []string{labelName}
)

// DecoderMetrics holds the metrics describing one or more Decoders. A single
// DecoderMetrics may be shared between Decoders, as long as they are all used
// from the same goroutine or the callbacks returned by Trace are otherwise
// synchronized.
type DecoderMetrics struct {
	RepliesCounterVec       *prometheus.CounterVec
	ProtocolErrorsCounter   prometheus.Counter
	DiscardedBytesCounter   prometheus.Counter
	SuspensionsCounter      prometheus.Counter
	PendingDepthGauge       prometheus.Gauge
	ReplyBytesHistogram     prometheus.Histogram
	ReplySuspensionsHistVec *prometheus.HistogramVec

	//logger
	LogMetricsCounterVec *prometheus.CounterVec
}

// NewDecoderMetrics creates a DecoderMetrics whose metrics all fall under the
// given namespace. The metrics aren't registered anywhere, see Register.
func NewDecoderMetrics(namespace string) *DecoderMetrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &DecoderMetrics{}
	m.RepliesCounterVec = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "The total of top-level replies decoded, by type",
		}, typeLabel)

	m.ProtocolErrorsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "The total of malformed streams encountered",
		})

	m.DiscardedBytesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_bytes_total",
			Help:      "The total of buffered bytes thrown away on protocol errors",
		})

	m.SuspensionsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suspensions_total",
			Help:      "The total of times decoding stopped part way through a reply",
		})

	m.PendingDepthGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_depth",
			Help:      "The number of arrays pending as of the last decoder event",
		})

	m.ReplyBytesHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reply_bytes",
			Buckets:   prometheus.ExponentialBuckets(4, 4, 12),
			Help:      "The wire size of decoded top-level replies",
		})

	m.ReplySuspensionsHistVec = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reply_suspensions",
			Buckets:   prometheus.LinearBuckets(0, 1, 8),
			Help:      "The number of suspensions it took to decode each top-level reply",
		}, typeLabel)

	m.LogMetricsCounterVec = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logs_entries_total",
			Help:      "Number of logs of certain level",
		}, levelLabel)

	return m
}

func (m *DecoderMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RepliesCounterVec,
		m.ProtocolErrorsCounter,
		m.DiscardedBytesCounter,
		m.SuspensionsCounter,
		m.PendingDepthGauge,
		m.ReplyBytesHistogram,
		m.ReplySuspensionsHistVec,
		m.LogMetricsCounterVec,
	}
}

// Register registers all metrics with the given Registerer, stopping at the
// first error.
func (m *DecoderMetrics) Register(r prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Trace returns callbacks which update the metrics. It can be given to
// resp.DecoderWithTrace directly, or combined with other callbacks using
// trace.MergeDecoderTraces.
func (m *DecoderMetrics) Trace() trace.DecoderTrace {
	return trace.DecoderTrace{
		Suspended: func(s trace.DecoderSuspended) {
			m.SuspensionsCounter.Inc()
			m.PendingDepthGauge.Set(float64(s.Depth))
		},
		Resumed: func(r trace.DecoderResumed) {
			m.PendingDepthGauge.Set(float64(r.Depth))
		},
		Completed: func(c trace.DecoderCompleted) {
			m.RepliesCounterVec.WithLabelValues(c.Type).Inc()
			m.ReplyBytesHistogram.Observe(float64(c.Size))
			m.ReplySuspensionsHistVec.WithLabelValues(c.Type).Observe(float64(c.Suspensions))
			m.PendingDepthGauge.Set(0)
		},
		ProtocolError: func(p trace.DecoderProtocolError) {
			m.ProtocolErrorsCounter.Inc()
			m.DiscardedBytesCounter.Add(float64(p.Discarded))
			m.PendingDepthGauge.Set(0)
		},
	}
}

// Measure counts log entries by logger name and level. It is meant to be
// installed with zap.Hooks.
func (m *DecoderMetrics) Measure(e zapcore.Entry) error {
	label := e.LoggerName + "_" + e.Level.String()
	m.LogMetricsCounterVec.WithLabelValues(label).Inc()
	return nil
}
