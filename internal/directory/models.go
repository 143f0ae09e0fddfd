package directory

import (
	"medication-alerts/internal/models"
	"medication-alerts/internal/notification"
)

// DoseOutcome is everything the caller needs to present after a dose is
// recorded. The dose has committed whenever a DoseOutcome is returned, even
// if deliveries failed or PersistenceErr is set.
type DoseOutcome struct {
	PatientID      string
	Medication     string
	Remaining      int
	Event          models.DoseEvent
	Alerts         []models.Category
	Deliveries     []notification.Result
	PersistenceErr error
}

// FailedDeliveries returns the copies that exhausted their retries.
func (o *DoseOutcome) FailedDeliveries() []notification.Result {
	var failed []notification.Result
	for _, d := range o.Deliveries {
		if !d.Delivered() {
			failed = append(failed, d)
		}
	}
	return failed
}
