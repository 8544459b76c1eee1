// Package observability exposes the Prometheus instruments shared by the
// node, the RPC server and the event pipeline.
package observability

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	leaseerrors "leasex/core/errors"
	"leasex/core/events"
)

const namespace = "leasex"

// Metrics bundles every LeaseX instrument. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	throttles  *prometheus.CounterVec
	operations *prometheus.CounterVec
	opLatency  *prometheus.HistogramVec
	events     *prometheus.CounterVec
	resolved   *prometheus.CounterVec
}

// NewMetrics creates the instruments and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Total JSON-RPC requests segmented by method and outcome.",
		}, []string{"method", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for JSON-RPC handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "throttles_total",
			Help:      "Count of requests rejected by the rate limiter.",
		}, []string{"reason"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "operations_total",
			Help:      "State operations segmented by operation and outcome.",
		}, []string{"op", "outcome"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "operation_duration_seconds",
			Help:      "Time spent holding the state lock per operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "events_committed_total",
			Help:      "Committed events segmented by type.",
		}, []string{"type"}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispute",
			Name:      "resolved_total",
			Help:      "Resolved lease disputes segmented by outcome.",
		}, []string{"status"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.requests, m.latency, m.throttles, m.operations, m.opLatency, m.events, m.resolved,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveRequest records one JSON-RPC call. code is the JSON-RPC error code,
// zero on success.
func (m *Metrics) ObserveRequest(method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	switch {
	case code == 0:
	case code == -32010:
		outcome = "rejected"
	default:
		outcome = "error"
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle counts a request rejected by the limiter. Reasons should be
// stable strings such as "rate_limit".
func (m *Metrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// OperationOutcome labels a node operation result as committed, rejected
// (business rule) or failed (internal error).
func OperationOutcome(err error) string {
	switch {
	case err == nil:
		return "committed"
	case leaseerrors.IsDomain(err):
		return "rejected"
	default:
		return "failed"
	}
}

// ObserveOperation implements core.Observer.
func (m *Metrics) ObserveOperation(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, OperationOutcome(err)).Inc()
	m.opLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Emit counts committed events so the metrics can sit on the node as an
// event sink.
func (m *Metrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	kind := strings.TrimSpace(evt.EventType())
	if kind == "" {
		kind = "unknown"
	}
	m.events.WithLabelValues(kind).Inc()
	if kind != "LeaseDisputeResolved" {
		return
	}
	status := events.Payload(evt).Attributes["status"]
	if status == "" {
		status = "unknown"
	}
	m.resolved.WithLabelValues(status).Inc()
}
