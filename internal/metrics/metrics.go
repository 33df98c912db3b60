// Package metrics wires Prometheus instrumentation for the block server
// and the RAID-5 client, in the idiom the pack's prometheus/client_golang
// consumers use: plain CounterVec/GaugeVec instruments registered against
// a caller-owned registry. No hand-rolled Collector is defined: every
// instrument here is a plain counter or gauge.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// ServerMetrics instruments a single block-server process.
type ServerMetrics struct {
	requests    *prometheus.CounterVec
	corruptions prometheus.Counter
}

// NewServerMetrics creates and registers a ServerMetrics against reg. reg
// may be a fresh prometheus.NewRegistry() (as used in tests) or
// prometheus.DefaultRegisterer.
func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	m := &ServerMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blockserver_requests_total",
			Help: "Number of RPC requests served by this block server, by operation.",
		}, []string{"op"}),
		corruptions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockserver_corruptions_total",
			Help: "Number of Get calls that returned CORRUPTED_BLOCK.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.corruptions)
	}
	return m
}

// ObserveRequest records one served request of the given op ("get",
// "put", "rsm"). Safe to call on a nil *ServerMetrics (no-op), so tests
// that don't care about metrics can pass nil to server.New.
func (m *ServerMetrics) ObserveRequest(op string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op).Inc()
}

// ObserveCorruption records one corrupted-block response.
func (m *ServerMetrics) ObserveCorruption() {
	if m == nil {
		return
	}
	m.corruptions.Inc()
}

// ClientMetrics instruments a single RAID-5 client session.
type ClientMetrics struct {
	failedServers prometheus.Gauge
	degraded      *prometheus.CounterVec
	repairs       prometheus.Counter
}

// NewClientMetrics creates and registers a ClientMetrics against reg.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		failedServers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raid5_failed_servers",
			Help: "Current number of servers in this session's failed_servers set.",
		}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raid5_degraded_operations_total",
			Help: "Number of Get/Put calls that took a degraded-mode path.",
		}, []string{"op"}),
		repairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raid5_repairs_total",
			Help: "Number of completed repair() calls.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.failedServers, m.degraded, m.repairs)
	}
	return m
}

// SetFailedServers records the current size of failed_servers.
func (m *ClientMetrics) SetFailedServers(n int) {
	if m == nil {
		return
	}
	m.failedServers.Set(float64(n))
}

// ObserveDegraded records one degraded-mode Get or Put.
func (m *ClientMetrics) ObserveDegraded(op string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(op).Inc()
}

// ObserveRepair records one completed repair.
func (m *ClientMetrics) ObserveRepair() {
	if m == nil {
		return
	}
	m.repairs.Inc()
}
