// Package supply owns the remaining-dose counters and the alert trigger
// policy keyed off them.
package supply

import (
	apperrors "medication-alerts/internal/common/errors"
	"medication-alerts/internal/models"
)

// Tracker is stateless apart from its policy; the counters live on the
// medication and the caller serializes access per patient.
type Tracker struct {
	threshold int
}

func NewTracker(cfg Config) *Tracker {
	if cfg.LowSupplyThreshold <= 0 {
		cfg.LowSupplyThreshold = DefaultLowSupplyThreshold
	}
	return &Tracker{threshold: cfg.LowSupplyThreshold}
}

func (t *Tracker) LowSupplyThreshold() int {
	return t.threshold
}

// RecordDose decrements the medication by one and returns the new count.
// With nothing left it returns SUPPLY_EXHAUSTED and leaves med untouched.
func (t *Tracker) RecordDose(med *models.Medication) (int, error) {
	if med.Remaining <= 0 {
		return 0, apperrors.NewSupplyExhaustedError(med.Name)
	}
	med.Remaining--
	return med.Remaining, nil
}

// Alerts returns the categories to fire for a successful dose that left
// newRemaining doses. Thresholds are point checks on the new value, so each
// one fires at most once over the life of a medication.
func (t *Tracker) Alerts(newRemaining int) []models.Category {
	alerts := []models.Category{models.CategoryReminder}
	if newRemaining == t.threshold {
		alerts = append(alerts, models.CategoryLowSupply)
	}
	if newRemaining == 0 {
		alerts = append(alerts, models.CategoryEmptySupply)
	}
	return alerts
}
