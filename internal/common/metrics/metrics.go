// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DosesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medtracker_doses_recorded_total",
			Help: "Total number of doses recorded",
		},
		[]string{"was_taken"},
	)

	SupplyExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medtracker_supply_exhausted_total",
			Help: "Total number of dose attempts rejected because no doses remained",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medtracker_notifications_total",
			Help: "Total number of notifications by category, recipient role and outcome",
		},
		[]string{"category", "role", "status"},
	)

	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medtracker_delivery_attempts_total",
			Help: "Total number of individual delivery attempts",
		},
		[]string{"transport", "result"},
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "medtracker_delivery_duration_seconds",
			Help: "Duration of a notification delivery including retries",
		},
		[]string{"transport"},
	)

	LedgerSinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medtracker_ledger_sink_failures_total",
			Help: "Total number of dose events a durability sink failed to persist",
		},
		[]string{"sink"},
	)

	ReportCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medtracker_report_cache_lookups_total",
			Help: "Adherence report cache lookups",
		},
		[]string{"result"},
	)

	PatientsRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "medtracker_patients_registered",
			Help: "Number of patients in the directory",
		},
	)
)
