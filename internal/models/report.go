// internal/models/report.go
package models

import "time"

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type MedicationAdherence struct {
	DosesTaken int `json:"doses_taken"`
	TotalDoses int `json:"total_doses"`
}

// Report is a read-only adherence snapshot over a time window.
type Report struct {
	PatientName          string                         `json:"patient_name"`
	PatientID            string                         `json:"patient_id"`
	Period               ReportPeriod                   `json:"report_period"`
	OverallAdherenceRate float64                        `json:"overall_adherence_rate"`
	TotalDoses           int                            `json:"total_doses"`
	DosesTaken           int                            `json:"doses_taken"`
	MedicationBreakdown  map[string]MedicationAdherence `json:"medication_breakdown"`
}
