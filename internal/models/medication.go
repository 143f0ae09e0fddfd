// internal/models/medication.go
package models

// Medication belongs to exactly one patient.
// Invariant: 0 <= Remaining <= Total.
type Medication struct {
	Name         string `json:"name"`
	DosageAmount string `json:"dosageAmount"`
	DosageTime   string `json:"dosageTime"`
	Total        int    `json:"totalDoses"`
	Remaining    int    `json:"dosesRemaining"`
}

// NewMedication returns a medication with a full supply.
func NewMedication(name, dosageAmount, dosageTime string, total int) Medication {
	return Medication{
		Name:         name,
		DosageAmount: dosageAmount,
		DosageTime:   dosageTime,
		Total:        total,
		Remaining:    total,
	}
}
