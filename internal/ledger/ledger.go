// Package ledger is the append-only record of dose events. The in-memory
// store is authoritative for the life of the process; sinks are best-effort
// durability side-channels.
package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"

	apperrors "medication-alerts/internal/common/errors"
	"medication-alerts/internal/common/logger"
	"medication-alerts/internal/common/metrics"
	"medication-alerts/internal/models"
)

// Sink persists a copy of each appended event.
type Sink interface {
	Name() string
	Write(ctx context.Context, event models.DoseEvent) error
}

type Ledger struct {
	mu     sync.RWMutex
	events map[string][]models.DoseEvent
	sinks  []Sink
	logger logger.Logger
}

func New(log logger.Logger, sinks ...Sink) *Ledger {
	return &Ledger{
		events: make(map[string][]models.DoseEvent),
		sinks:  sinks,
		logger: log.WithFields(map[string]interface{}{"component": "ledger"}),
	}
}

// Append records the event in memory, which always succeeds, then writes it
// to every sink. A non-nil error means at least one sink failed; it is a
// PERSISTENCE_FAILED error combining each sink's failure.
func (l *Ledger) Append(ctx context.Context, event models.DoseEvent) error {
	l.mu.Lock()
	l.events[event.PatientID] = append(l.events[event.PatientID], event)
	l.mu.Unlock()

	var errs error
	for _, sink := range l.sinks {
		if err := sink.Write(ctx, event); err != nil {
			metrics.LedgerSinkFailures.WithLabelValues(sink.Name()).Inc()
			l.logger.Error("failed to persist dose event", map[string]interface{}{
				"sink":      sink.Name(),
				"patientId": event.PatientID,
				"eventId":   event.ID,
				"error":     err,
			})
			errs = multierr.Append(errs, apperrors.NewPersistenceFailedError(sink.Name(), err))
		}
	}
	return errs
}

// Query returns the patient's events with start <= timestamp <= end, in
// insertion order. The slice is a copy.
func (l *Ledger) Query(patientID string, start, end time.Time) []models.DoseEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.DoseEvent
	for _, e := range l.events[patientID] {
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Version is the number of events held for the patient. It only grows, so it
// identifies a ledger state for cache keys.
func (l *Ledger) Version(patientID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events[patientID])
}
