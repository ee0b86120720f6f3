// Package metrics defines Prometheus metrics for the ATM Master server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Result labels for table and row counters.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
	ResultError   = "error"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atm_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atm_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atm_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	BackupTables = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atm_backup_tables_total",
			Help: "Tables exported, by result",
		},
		[]string{"result"},
	)

	RestoreTables = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atm_restore_tables_total",
			Help: "Tables restored, by result",
		},
		[]string{"result"},
	)

	RestoreRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atm_restore_rows_total",
			Help: "Rows processed by restore, by result",
		},
		[]string{"result"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atm_operation_duration_seconds",
			Help:    "Duration of backup and restore operations",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"operation"},
	)

	AuditQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "atm_audit_queue_depth",
			Help: "Current audit queue depth",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "atm_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		BackupTables, RestoreTables, RestoreRows, OperationDuration,
		AuditQueueDepth, WSConnections,
	)
}
