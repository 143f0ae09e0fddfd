package notification

import "medication-alerts/internal/models"

// Delivery outcomes
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Result reports the outcome of one recipient's delivery.
type Result struct {
	NotificationID string          `json:"notificationId"`
	Recipient      string          `json:"recipient"`
	Role           string          `json:"role"`
	Category       models.Category `json:"category"`
	Status         string          `json:"status"`
	Attempts       int             `json:"attempts"`
	Err            error           `json:"-"`
}

func (r Result) Delivered() bool {
	return r.Status == StatusSent
}
