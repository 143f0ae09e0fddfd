// internal/models/notification.go
package models

// Category selects how an alert is composed and who receives it.
type Category string

const (
	CategoryReminder    Category = "reminder"
	CategoryLowSupply   Category = "low_supply"
	CategoryEmptySupply Category = "empty_supply"
)

// Recipient roles
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// NotificationRequest is built per recipient and never persisted.
type NotificationRequest struct {
	ID        string   `json:"id"`
	Recipient string   `json:"recipient"`
	Role      string   `json:"role"`
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
	Category  Category `json:"category"`
}
