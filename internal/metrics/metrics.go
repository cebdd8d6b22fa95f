// Package metrics instruments the daemon with Prometheus collectors.
//
// Collection is always on; the scrape endpoint is only served when the
// debug config names a listen address.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ledge-desktop/ledge/internal/state"
)

// Metrics holds all Prometheus collectors for the daemon. Collectors
// register against a private registry so the daemon can be rebuilt
// in-process without duplicate-registration panics.
type Metrics struct {
	// State machine metrics
	Transitions   *prometheus.CounterVec
	OpenRequests  *prometheus.CounterVec
	CloseRequests *prometheus.CounterVec
	Transients    *prometheus.CounterVec

	// Hover metrics
	HoverEngagements *prometheus.CounterVec
	HeartbeatTick    prometheus.Histogram

	// Session metrics
	DisplaysActive prometheus.Gauge
	Inhibitors     prometheus.Gauge

	// Bus metrics
	BusCalls *prometheus.CounterVec

	// Journal metrics
	JournalRecords prometheus.Counter
	JournalErrors  prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry
	stopCh   chan struct{}
}

// New creates a metrics collector with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		startTime: time.Now(),
		registry:  registry,
		stopCh:    make(chan struct{}),

		// State machine metrics
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledged_state_transitions_total",
				Help: "Total display state transitions",
			},
			[]string{"display", "content"},
		),
		OpenRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledged_open_requests_total",
				Help: "Total requests to open the surface",
			},
			[]string{"source"},
		),
		CloseRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledged_close_requests_total",
				Help: "Total requests to close the surface",
			},
			[]string{"source"},
		),
		Transients: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledged_transient_events_total",
				Help: "Total transient events shown",
			},
			[]string{"kind"},
		),

		// Hover metrics
		HoverEngagements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledged_hover_engagements_total",
				Help: "Total hover engagements per display",
			},
			[]string{"display"},
		),
		HeartbeatTick: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ledged_heartbeat_tick_duration_seconds",
				Help:    "Pointer sampling tick duration in seconds",
				Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
			},
		),

		// Session metrics
		DisplaysActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ledged_displays",
				Help: "Number of tracked displays",
			},
		),
		Inhibitors: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ledged_inhibitors",
				Help: "Number of active open inhibitors",
			},
		),

		// Bus metrics
		BusCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledged_bus_calls_total",
				Help: "Total D-Bus method calls",
			},
			[]string{"method", "status"},
		),

		// Journal metrics
		JournalRecords: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ledged_journal_records_total",
				Help: "Total journal records written",
			},
		),
		JournalErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ledged_journal_errors_total",
				Help: "Total journal write failures",
			},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ledged_uptime_seconds",
				Help: "Daemon uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// Registry returns the private registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Close stops the uptime updater.
func (m *Metrics) Close() {
	close(m.stopCh)
}

// updateUptime refreshes the uptime gauge once a second.
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		}
	}
}

// RecordTransition records a display settling into a new state.
func (m *Metrics) RecordTransition(display string, to state.DisplayState) {
	m.Transitions.WithLabelValues(display, contentLabel(to)).Inc()
}

// contentLabel collapses a state to a bounded label value.
func contentLabel(s state.DisplayState) string {
	if s.Kind == state.KindOpen {
		return string(state.KindOpen)
	}
	return string(s.Content)
}

// RecordOpenRequest records an open intent by origin.
func (m *Metrics) RecordOpenRequest(source string) {
	m.OpenRequests.WithLabelValues(source).Inc()
}

// RecordCloseRequest records a close intent by origin.
func (m *Metrics) RecordCloseRequest(source string) {
	m.CloseRequests.WithLabelValues(source).Inc()
}

// RecordTransient records a transient event.
func (m *Metrics) RecordTransient(kind state.EventKind) {
	m.Transients.WithLabelValues(string(kind)).Inc()
}

// RecordHoverEngagement records the pointer settling over a display's surface.
func (m *Metrics) RecordHoverEngagement(display string) {
	m.HoverEngagements.WithLabelValues(display).Inc()
}

// ObserveHeartbeatTick records how long one pointer sample took.
func (m *Metrics) ObserveHeartbeatTick(d time.Duration) {
	m.HeartbeatTick.Observe(d.Seconds())
}

// RecordBusCall records a D-Bus method call and its outcome.
func (m *Metrics) RecordBusCall(method string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.BusCalls.WithLabelValues(method, status).Inc()
}

// RecordJournalRecord counts one persisted transition record.
func (m *Metrics) RecordJournalRecord() {
	m.JournalRecords.Inc()
}

// RecordJournalError counts one failed journal write.
func (m *Metrics) RecordJournalError() {
	m.JournalErrors.Inc()
}

// SetDisplays sets the tracked display count.
func (m *Metrics) SetDisplays(count int) {
	m.DisplaysActive.Set(float64(count))
}

// SetInhibitors sets the active inhibitor count.
func (m *Metrics) SetInhibitors(count int) {
	m.Inhibitors.Set(float64(count))
}
