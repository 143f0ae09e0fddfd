// Package directory owns the registered patients and orchestrates dose
// recording across the supply tracker, the dose ledger and the dispatcher.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "medication-alerts/internal/common/errors"
	"medication-alerts/internal/common/logger"
	"medication-alerts/internal/common/metrics"
	"medication-alerts/internal/common/observability"
	"medication-alerts/internal/common/validation"
	"medication-alerts/internal/models"
	"medication-alerts/internal/notification"
	"medication-alerts/internal/supply"
)

// Appender is the write side of the dose ledger.
type Appender interface {
	Append(ctx context.Context, event models.DoseEvent) error
}

// Notifier delivers every copy of one alert category.
type Notifier interface {
	Notify(ctx context.Context, patient models.Patient, med models.Medication, category models.Category) []notification.Result
}

type ServiceDependencies struct {
	Tracker       *supply.Tracker
	Ledger        Appender
	Notifier      Notifier
	Observability *observability.Observability
	Logger        logger.Logger
}

// patientEntry serializes decrement, ledger append and trigger evaluation
// for one patient.
type patientEntry struct {
	mu      sync.Mutex
	patient models.Patient
}

type Service struct {
	mu       sync.RWMutex
	patients map[string]*patientEntry

	tracker  *supply.Tracker
	ledger   Appender
	notifier Notifier
	obs      *observability.Observability
	logger   logger.Logger
	now      func() time.Time
}

func NewService(deps ServiceDependencies) *Service {
	return &Service{
		patients: make(map[string]*patientEntry),
		tracker:  deps.Tracker,
		ledger:   deps.Ledger,
		notifier: deps.Notifier,
		obs:      deps.Observability,
		logger:   deps.Logger.WithFields(map[string]interface{}{"component": "directory"}),
		now:      time.Now,
	}
}

// Register adds a patient. Each medication starts with a full supply.
func (s *Service) Register(ctx context.Context, p models.Patient) (err error) {
	defer s.obs.Track(ctx, "register_patient", time.Now(), &err)

	result, err := validation.ValidatePatient(p)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}

	p = p.Clone()
	for i := range p.Medications {
		p.Medications[i].Remaining = p.Medications[i].Total
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.patients[p.ID]; exists {
		return apperrors.NewDuplicatePatientError(p.ID)
	}
	s.patients[p.ID] = &patientEntry{patient: p}
	metrics.PatientsRegistered.Set(float64(len(s.patients)))

	s.logger.Info("patient registered", map[string]interface{}{
		"patientId":   p.ID,
		"medications": len(p.Medications),
	})
	return nil
}

// AddMedication appends a medication with a full supply and returns its
// zero-based index.
func (s *Service) AddMedication(ctx context.Context, patientID string, med models.Medication) (int, error) {
	med.Remaining = med.Total
	result, err := validation.ValidateMedication(med)
	if err != nil {
		return 0, err
	}
	if err := result.Err(); err != nil {
		return 0, err
	}

	entry, err := s.entry(patientID)
	if err != nil {
		return 0, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.patient.Medications = append(entry.patient.Medications, med)
	index := len(entry.patient.Medications) - 1

	s.logger.Info("medication added", map[string]interface{}{
		"patientId":  patientID,
		"medication": med.Name,
		"index":      index,
	})
	return index, nil
}

// Get returns a snapshot of the patient.
func (s *Service) Get(patientID string) (models.Patient, error) {
	entry, err := s.entry(patientID)
	if err != nil {
		return models.Patient{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.patient.Clone(), nil
}

// IDs returns the registered patient ids in sorted order.
func (s *Service) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.patients))
	for id := range s.patients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Service) entry(patientID string) (*patientEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.patients[patientID]
	if !ok {
		return nil, apperrors.NewNotFoundError("patient", fmt.Sprintf("patient id %q", patientID))
	}
	return entry, nil
}

// RecordDose takes one dose of the medication at index. Under the patient
// lock it decrements the supply, appends the ledger entry and decides which
// alerts fire; the alerts are delivered after the lock is released.
//
// NOT_FOUND and SUPPLY_EXHAUSTED abort with no state change. Sink and
// delivery failures do not: they are reported on the returned outcome.
func (s *Service) RecordDose(ctx context.Context, patientID string, index int) (outcome *DoseOutcome, err error) {
	defer s.obs.Track(ctx, "record_dose", time.Now(), &err)

	entry, err := s.entry(patientID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()

	if index < 0 || index >= len(entry.patient.Medications) {
		entry.mu.Unlock()
		return nil, apperrors.NewNotFoundError("medication", fmt.Sprintf("patient %q has no medication at index %d", patientID, index))
	}

	med := &entry.patient.Medications[index]
	remaining, err := s.tracker.RecordDose(med)
	if err != nil {
		entry.mu.Unlock()
		metrics.SupplyExhausted.Inc()
		s.logger.Warn("dose rejected, supply exhausted", map[string]interface{}{
			"patientId":  patientID,
			"medication": med.Name,
		})
		return nil, err
	}

	event := models.DoseEvent{
		ID:             uuid.New().String(),
		Timestamp:      s.now().UTC(),
		MedicationName: med.Name,
		DosageTaken:    med.DosageAmount,
		ScheduledTime:  med.DosageTime,
		PatientID:      patientID,
		WasTaken:       true,
		DelayMinutes:   0,
	}
	persistErr := s.ledger.Append(ctx, event)
	alerts := s.tracker.Alerts(remaining)

	patient := entry.patient.Clone()
	medSnapshot := *med
	entry.mu.Unlock()

	metrics.DosesRecorded.WithLabelValues(strconv.FormatBool(event.WasTaken)).Inc()
	s.logger.Info("dose recorded", map[string]interface{}{
		"patientId":  patientID,
		"medication": medSnapshot.Name,
		"remaining":  remaining,
		"alerts":     alerts,
	})

	outcome = &DoseOutcome{
		PatientID:      patientID,
		Medication:     medSnapshot.Name,
		Remaining:      remaining,
		Event:          event,
		Alerts:         alerts,
		PersistenceErr: persistErr,
	}
	for _, category := range alerts {
		outcome.Deliveries = append(outcome.Deliveries, s.notifier.Notify(ctx, patient, medSnapshot, category)...)
	}
	return outcome, nil
}
