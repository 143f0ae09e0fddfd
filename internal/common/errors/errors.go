// Package errors provides the standardized error taxonomy shared by the
// supply, ledger, notification and adherence components.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeDuplicatePatient  ErrorCode = "DUPLICATE_PATIENT"
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeSupplyExhausted   ErrorCode = "SUPPLY_EXHAUSTED"
	ErrCodeDeliveryFailed    ErrorCode = "DELIVERY_FAILED"
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeConfigInvalid     ErrorCode = "CONFIGURATION_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is reports whether target is a StandardError with the same code, so the
// sentinels below work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound          = &StandardError{Code: ErrCodeNotFound}
	ErrDuplicatePatient  = &StandardError{Code: ErrCodeDuplicatePatient}
	ErrValidationFailed  = &StandardError{Code: ErrCodeValidationFailed}
	ErrSupplyExhausted   = &StandardError{Code: ErrCodeSupplyExhausted}
	ErrDeliveryFailed    = &StandardError{Code: ErrCodeDeliveryFailed}
	ErrPersistenceFailed = &StandardError{Code: ErrCodePersistenceFailed}
	ErrConfigInvalid     = &StandardError{Code: ErrCodeConfigInvalid}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewNotFoundError creates a non-retryable lookup error for a patient or
// medication index.
func NewNotFoundError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicatePatientError creates a non-retryable registration error.
func NewDuplicatePatientError(patientID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicatePatient,
		Message:   "Patient ID already exists",
		Details:   fmt.Sprintf("patientId: %s", patientID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable input validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSupplyExhaustedError is returned when a dose is recorded against a
// medication with nothing left. The patient should be prompted to refill.
func NewSupplyExhaustedError(medication string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSupplyExhausted,
		Message:   "No doses remaining, please refill prescription",
		Details:   fmt.Sprintf("medication: %s", medication),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliveryFailedError reports that every delivery attempt to recipient failed.
func NewDeliveryFailedError(recipient string, attempts int, err error) *StandardError {
	details := fmt.Sprintf("recipient: %s, attempts: %d", recipient, attempts)
	if err != nil {
		details = fmt.Sprintf("%s, error: %s", details, err.Error())
	}
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "Failed to deliver notification",
		Details:   details,
		Retryable: true,
		Metadata: map[string]interface{}{
			"recipient": recipient,
			"attempts":  attempts,
		},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// NewPersistenceFailedError reports a ledger sink write failure. The
// in-memory ledger is unaffected.
func NewPersistenceFailedError(sink string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Failed to persist dose event",
		Details:   fmt.Sprintf("sink: %s, error: %v", sink, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewConfigInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigInvalid,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// CodeOf returns the code of a StandardError anywhere in err's chain, or
// "INTERNAL_ERROR".
func CodeOf(err error) ErrorCode {
	for err != nil {
		if stdErr, ok := err.(*StandardError); ok {
			return stdErr.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return "INTERNAL_ERROR"
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DELIVERY"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "PERSISTENCE"):
		return "STORAGE"
	case strings.Contains(codeStr, "SUPPLY"):
		return "SUPPLY"
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "DUPLICATE"):
		return "DIRECTORY"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
