// internal/models/patient.go
package models

// Patient is a registered person whose medications are tracked.
// ID is assigned at registration and never changes.
type Patient struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
	Doctor           Doctor           `json:"doctor"`
	Medications      []Medication     `json:"medications"`
}

type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Doctor is the prescribing doctor. Email may be empty.
type Doctor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Clone returns a deep copy so callers can read a patient without holding
// the directory lock.
func (p *Patient) Clone() Patient {
	out := *p
	out.Medications = make([]Medication, len(p.Medications))
	copy(out.Medications, p.Medications)
	return out
}
