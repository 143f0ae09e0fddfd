// internal/models/dose_event.go
package models

import "time"

// DoseEvent is one immutable ledger entry. The JSON field names are the
// on-disk format of the medication log file.
type DoseEvent struct {
	ID             string    `json:"id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	MedicationName string    `json:"medication_name"`
	DosageTaken    string    `json:"dosage_taken"`
	ScheduledTime  string    `json:"scheduled_time"`
	PatientID      string    `json:"patient_id"`
	WasTaken       bool      `json:"was_taken"`
	DelayMinutes   int       `json:"delay_minutes"`
}
