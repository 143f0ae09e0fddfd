package notification

import (
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"medication-alerts/internal/models"
)

func subjectFor(med models.Medication) string {
	return fmt.Sprintf("Medication Alert: %s", med.Name)
}

// Compose builds the per-recipient requests for one alert category. The
// doctor copy of an empty-supply alert is left out when no doctor email is on
// file.
func Compose(patient models.Patient, med models.Medication, category models.Category) []models.NotificationRequest {
	subject := subjectFor(med)

	newRequest := func(recipient, role, body string) models.NotificationRequest {
		return models.NotificationRequest{
			ID:        uuid.New().String(),
			Recipient: recipient,
			Role:      role,
			Subject:   subject,
			Body:      body,
			Category:  category,
		}
	}

	switch category {
	case models.CategoryReminder:
		return []models.NotificationRequest{
			newRequest(patient.Email, models.RolePatient, reminderBody(patient, med)),
		}
	case models.CategoryLowSupply:
		return []models.NotificationRequest{
			newRequest(patient.Email, models.RolePatient, lowSupplyBody(patient, med)),
		}
	case models.CategoryEmptySupply:
		reqs := []models.NotificationRequest{
			newRequest(patient.Email, models.RolePatient, emptySupplyPatientBody(patient, med)),
		}
		if strings.TrimSpace(patient.Doctor.Email) != "" {
			reqs = append(reqs, newRequest(patient.Doctor.Email, models.RoleDoctor, emptySupplyDoctorBody(patient, med)))
		}
		return reqs
	}
	return nil
}

func reminderBody(p models.Patient, med models.Medication) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Medication Reminder for %s\n\n", p.Name)
	fmt.Fprintf(&b, "Time to take: %s\n", med.DosageTime)
	fmt.Fprintf(&b, "Medication: %s\n", med.Name)
	fmt.Fprintf(&b, "Dosage Amount: %s\n", med.DosageAmount)
	fmt.Fprintf(&b, "Doses Remaining: %d\n\n", med.Remaining)
	fmt.Fprintf(&b, "Emergency Contact: %s - %s\n", p.EmergencyContact.Name, p.EmergencyContact.Phone)
	fmt.Fprintf(&b, "Doctor: %s", p.Doctor.Name)
	return b.String()
}

func lowSupplyBody(p models.Patient, med models.Medication) string {
	var b strings.Builder
	fmt.Fprintf(&b, "LOW DOSAGE ALERT for %s\n\n", p.Name)
	fmt.Fprintf(&b, "Medication: %s\n", med.Name)
	fmt.Fprintf(&b, "Only %d doses remaining!\n\n", med.Remaining)
	fmt.Fprintf(&b, "Please refill your prescription soon or talk to your doctor: %s", p.Doctor.Name)
	return b.String()
}

func emptySupplyPatientBody(p models.Patient, med models.Medication) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URGENT: NO DOSES REMAINING for %s\n\n", p.Name)
	fmt.Fprintf(&b, "Medication: %s\n", med.Name)
	b.WriteString("You have run out of doses for this medication.\n")
	fmt.Fprintf(&b, "Please get another prescription, update the program, or see your doctor: %s", p.Doctor.Name)
	return b.String()
}

func emptySupplyDoctorBody(p models.Patient, med models.Medication) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URGENT: NO DOSES REMAINING for %s\n\n", p.Name)
	fmt.Fprintf(&b, "Medication: %s\n", med.Name)
	b.WriteString("Patient has run out of doses for this medication.\n")
	b.WriteString("Please review and provide new prescription if needed.")
	return b.String()
}

// buildMessage renders an RFC 5322 plain-text message.
func buildMessage(from string, req models.NotificationRequest, now time.Time) []byte {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("From: %s\r\n", headerValue(from)))
	b.WriteString(fmt.Sprintf("To: %s\r\n", headerValue(req.Recipient)))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(req.Subject))))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", now.Format(time.RFC1123Z)))
	if req.ID != "" {
		b.WriteString(fmt.Sprintf("X-Notification-ID: %s\r\n", req.ID))
	}
	b.WriteString(fmt.Sprintf("X-Notification-Category: %s\r\n", req.Category))
	if req.Category == models.CategoryEmptySupply {
		b.WriteString("X-Priority: 1\r\n")
		b.WriteString("Importance: high\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")

	// bare LF is not allowed in SMTP DATA
	b.WriteString(strings.ReplaceAll(req.Body, "\n", "\r\n"))
	b.WriteString("\r\n")

	return []byte(b.String())
}

// headerValue folds any line breaks into spaces so a value can never start a
// new header or the body.
func headerValue(v string) string {
	return strings.Join(strings.FieldsFunc(v, func(r rune) bool {
		return r == '\r' || r == '\n'
	}), " ")
}
