package reporting

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	errsys "github.com/NexTeck/ExceptionHandler/pkg/errors"
)

// Metrics tracks pipeline counters locally and mirrors them to Prometheus.
// Recording never takes a lock.
type Metrics struct {
	reports       atomic.Int64
	persisted     atomic.Int64
	dropped       atomic.Int64
	cycles        atomic.Int64
	workerRuns    atomic.Int64
	notifications atomic.Int64
	suppressed    atomic.Int64
	restarts      atomic.Int64

	reportsTotal       *prometheus.CounterVec
	persistedTotal     prometheus.Counter
	droppedTotal       prometheus.Counter
	cyclesTotal        prometheus.Counter
	workerRunsTotal    prometheus.Counter
	notificationsTotal *prometheus.CounterVec
	suppressedTotal    prometheus.Counter
	restartsTotal      prometheus.Counter
	queueDepth         prometheus.Gauge
	severityLevel      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// keeps the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exhandler_reports_total",
				Help: "Total number of failures reported, by severity",
			},
			[]string{"severity"},
		),
		persistedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exhandler_persisted_total",
			Help: "Total number of reports written to the error log",
		}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exhandler_dropped_total",
			Help: "Total number of reports discarded after a failed persist",
		}),
		cyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exhandler_drain_cycles_total",
			Help: "Total number of drain cycles run by the recovery worker",
		}),
		workerRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exhandler_worker_runs_total",
			Help: "Total number of recovery worker runs started",
		}),
		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exhandler_notifications_total",
				Help: "Total number of operator notifications delivered, by kind",
			},
			[]string{"kind"},
		),
		suppressedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exhandler_notifications_suppressed_total",
			Help: "Total number of notifications suppressed by sampling",
		}),
		restartsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exhandler_restarts_total",
			Help: "Total number of process restarts requested",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "exhandler_queue_depth",
			Help: "Reports waiting to be persisted",
		}),
		severityLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "exhandler_severity_level",
			Help: "Worst severity seen (0 simple, 1 severe, 2 fatal)",
		}),
	}

	if reg != nil {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.reportsTotal,
		m.persistedTotal,
		m.droppedTotal,
		m.cyclesTotal,
		m.workerRunsTotal,
		m.notificationsTotal,
		m.suppressedTotal,
		m.restartsTotal,
		m.queueDepth,
		m.severityLevel,
	}
}

// RecordReport records a reported failure
func (m *Metrics) RecordReport(sev errsys.Severity) {
	m.reports.Add(1)
	m.reportsTotal.WithLabelValues(sev.String()).Inc()
}

// RecordPersisted records n reports written to the log
func (m *Metrics) RecordPersisted(n int) {
	m.persisted.Add(int64(n))
	m.persistedTotal.Add(float64(n))
}

// RecordDropped records n reports lost to a failed cycle
func (m *Metrics) RecordDropped(n int) {
	m.dropped.Add(int64(n))
	m.droppedTotal.Add(float64(n))
}

// RecordCycle records one drain cycle
func (m *Metrics) RecordCycle() {
	m.cycles.Add(1)
	m.cyclesTotal.Inc()
}

// RecordWorkerRun records a worker start
func (m *Metrics) RecordWorkerRun() {
	m.workerRuns.Add(1)
	m.workerRunsTotal.Inc()
}

// RecordNotification records a delivered notification
func (m *Metrics) RecordNotification(kind Kind) {
	m.notifications.Add(1)
	m.notificationsTotal.WithLabelValues(kind.String()).Inc()
}

// RecordSuppressed records a notification skipped by sampling
func (m *Metrics) RecordSuppressed() {
	m.suppressed.Add(1)
	m.suppressedTotal.Inc()
}

// RecordRestart records a restart request
func (m *Metrics) RecordRestart() {
	m.restarts.Add(1)
	m.restartsTotal.Inc()
}

// SetQueueDepth updates the queue depth gauge
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// SetSeverity updates the severity gauge
func (m *Metrics) SetSeverity(sev errsys.Severity) {
	m.severityLevel.Set(float64(sev))
}

// Stats is a point-in-time snapshot of the pipeline
type Stats struct {
	Reports       int64           `json:"reports"`
	Persisted     int64           `json:"persisted"`
	Dropped       int64           `json:"dropped"`
	Cycles        int64           `json:"cycles"`
	WorkerRuns    int64           `json:"worker_runs"`
	Notifications int64           `json:"notifications"`
	Suppressed    int64           `json:"suppressed"`
	Restarts      int64           `json:"restarts"`
	QueueDepth    int             `json:"queue_depth"`
	Severity      errsys.Severity `json:"severity"`
	State         WorkerState     `json:"state"`
}

func (m *Metrics) snapshot() Stats {
	return Stats{
		Reports:       m.reports.Load(),
		Persisted:     m.persisted.Load(),
		Dropped:       m.dropped.Load(),
		Cycles:        m.cycles.Load(),
		WorkerRuns:    m.workerRuns.Load(),
		Notifications: m.notifications.Load(),
		Suppressed:    m.suppressed.Load(),
		Restarts:      m.restarts.Load(),
	}
}
