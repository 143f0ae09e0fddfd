// internal/common/errors/handler.go
package errors

import (
	stderrors "errors"
	"net/http"
	"time"
)

// ErrorHandler maps component errors onto the HTTP boundary.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle normalizes err and returns the status code to answer with.
// Unexpected errors are logged and their details withheld from the caller.
func (h *ErrorHandler) Handle(err error) (int, *StandardError) {
	stdErr := h.normalizeError(err)
	status := HTTPStatus(stdErr.Code)

	if status >= http.StatusInternalServerError {
		h.logError(stdErr, err)
		if stdErr.Code == "INTERNAL_ERROR" {
			stdErr = &StandardError{
				Code:      stdErr.Code,
				Message:   stdErr.Message,
				Timestamp: stdErr.Timestamp,
			}
		}
	}
	return status, stdErr
}

// HTTPStatus returns the status code for an error code.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeDuplicatePatient, ErrCodeSupplyExhausted:
		return http.StatusConflict
	case ErrCodeDeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func (h *ErrorHandler) logError(stdErr *StandardError, err error) {
	h.logger.Error("request failed", map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"error":         err,
	})
}
