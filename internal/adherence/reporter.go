// Package adherence aggregates dose ledger entries into adherence reports.
package adherence

import (
	"context"
	"time"

	"medication-alerts/internal/common/logger"
	"medication-alerts/internal/common/metrics"
	"medication-alerts/internal/models"
)

// PatientLookup resolves a patient or returns a NOT_FOUND error.
type PatientLookup interface {
	Get(patientID string) (models.Patient, error)
}

// EventSource is the read side of the dose ledger.
type EventSource interface {
	Query(patientID string, start, end time.Time) []models.DoseEvent
	Version(patientID string) int
}

type Reporter struct {
	patients PatientLookup
	events   EventSource
	cache    *Cache
	logger   logger.Logger
}

// NewReporter builds a reporter. cache may be nil.
func NewReporter(patients PatientLookup, events EventSource, cache *Cache, log logger.Logger) *Reporter {
	return &Reporter{
		patients: patients,
		events:   events,
		cache:    cache,
		logger:   log.WithFields(map[string]interface{}{"component": "adherence"}),
	}
}

// GenerateReport summarizes the patient's events with start <= timestamp <=
// end. It has no effect on the ledger.
func (r *Reporter) GenerateReport(ctx context.Context, patientID string, start, end time.Time) (*models.Report, error) {
	patient, err := r.patients.Get(patientID)
	if err != nil {
		return nil, err
	}

	// The version is read before the events, so a cached entry holds at
	// least the events its key claims. An append in between can add more;
	// that entry is only ever read by callers that saw the same older version.
	version := r.events.Version(patientID)
	key := cacheKey(patientID, version, start, end)

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, key)
		switch {
		case err != nil:
			metrics.ReportCacheLookups.WithLabelValues("error").Inc()
			r.logger.Warn("report cache lookup failed", map[string]interface{}{"patientId": patientID, "error": err})
		case cached != nil:
			metrics.ReportCacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			metrics.ReportCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	report := Summarize(patient, r.events.Query(patientID, start, end), start, end)

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, report); err != nil {
			r.logger.Warn("report cache store failed", map[string]interface{}{"patientId": patientID, "error": err})
		}
	}
	return report, nil
}

// Summarize computes totals, the overall rate and the per-medication
// breakdown in one pass. The rate is 0 when there are no events.
func Summarize(patient models.Patient, events []models.DoseEvent, start, end time.Time) *models.Report {
	report := &models.Report{
		PatientName:         patient.Name,
		PatientID:           patient.ID,
		Period:              models.ReportPeriod{Start: start, End: end},
		MedicationBreakdown: make(map[string]models.MedicationAdherence),
	}

	for _, e := range events {
		entry := report.MedicationBreakdown[e.MedicationName]
		entry.TotalDoses++
		report.TotalDoses++
		if e.WasTaken {
			entry.DosesTaken++
			report.DosesTaken++
		}
		report.MedicationBreakdown[e.MedicationName] = entry
	}

	if report.TotalDoses > 0 {
		report.OverallAdherenceRate = float64(report.DosesTaken) / float64(report.TotalDoses) * 100
	}
	return report
}
