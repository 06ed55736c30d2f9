// Package prometheus provides the Prometheus implementation of the
// metrics interfaces.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rakshithvk19/rax-ftp-server/pkg/metrics"
)

// ftpMetrics is the Prometheus implementation of metrics.FTPMetrics.
type ftpMetrics struct {
	sessionsTotal    prometheus.Counter
	sessionsRejected prometheus.Counter
	activeSessions   prometheus.Gauge
	logins           *prometheus.CounterVec
	commands         *prometheus.CounterVec
	transferBytes    *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec
	leasedPorts      prometheus.Gauge
}

// NewFTPMetrics creates a Prometheus-backed FTPMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewFTPMetrics() metrics.FTPMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &ftpMetrics{
		sessionsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "raxftp_sessions_total",
			Help: "Total number of accepted control connections",
		}),
		sessionsRejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "raxftp_sessions_rejected_total",
			Help: "Control connections refused because the client limit was reached",
		}),
		activeSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "raxftp_active_sessions",
			Help: "Number of currently active control connections",
		}),
		logins: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "raxftp_logins_total",
				Help: "PASS attempts by outcome",
			},
			[]string{"status"}, // "success", "failure"
		),
		commands: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "raxftp_commands_total",
				Help: "Handled commands by verb and reply code",
			},
			[]string{"verb", "code"},
		),
		transferBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "raxftp_transfer_bytes_total",
				Help: "Bytes moved over data connections by direction",
			},
			[]string{"direction"}, // "upload", "download", "list"
		),
		transferDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "raxftp_transfer_duration_seconds",
				Help: "Duration of data transfers by direction and outcome",
				Buckets: []float64{
					0.01, // small files on loopback
					0.05,
					0.1,
					0.5,
					1,
					5,
					30,
					120, // large uploads
				},
			},
			[]string{"direction", "error_code"},
		),
		leasedPorts: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "raxftp_leased_passive_ports",
			Help: "Passive-mode data ports currently leased from the pool",
		}),
	}
}

func (m *ftpMetrics) RecordSessionStarted() {
	m.sessionsTotal.Inc()
	m.activeSessions.Inc()
}

func (m *ftpMetrics) RecordSessionClosed() {
	m.activeSessions.Dec()
}

func (m *ftpMetrics) RecordSessionRejected() {
	m.sessionsRejected.Inc()
}

func (m *ftpMetrics) RecordLogin(success bool) {
	status := "failure"
	if success {
		status = "success"
	}
	m.logins.WithLabelValues(status).Inc()
}

func (m *ftpMetrics) RecordCommand(verb string, code int) {
	m.commands.WithLabelValues(verb, strconv.Itoa(code)).Inc()
}

func (m *ftpMetrics) RecordTransfer(direction string, bytes int64, duration time.Duration, errorCode string) {
	m.transferBytes.WithLabelValues(direction).Add(float64(bytes))
	m.transferDuration.WithLabelValues(direction, errorCode).Observe(duration.Seconds())
}

func (m *ftpMetrics) SetLeasedPorts(n int) {
	m.leasedPorts.Set(float64(n))
}
