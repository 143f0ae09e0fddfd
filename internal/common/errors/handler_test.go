package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type captureLogger struct {
	messages []string
	fields   []map[string]interface{}
}

func (c *captureLogger) Error(msg string, fields map[string]interface{}) {
	c.messages = append(c.messages, msg)
	c.fields = append(c.fields, fields)
}

func TestErrorHandler_Handle(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
		wantLogged bool
	}{
		{"not found", NewNotFoundError("patient", "patient id \"x\""), http.StatusNotFound, ErrCodeNotFound, false},
		{"wrapped validation", fmt.Errorf("register: %w", NewValidationFailedError("email")), http.StatusBadRequest, ErrCodeValidationFailed, false},
		{"duplicate", NewDuplicatePatientError("p-1"), http.StatusConflict, ErrCodeDuplicatePatient, false},
		{"supply exhausted", NewSupplyExhaustedError("Aspirin"), http.StatusConflict, ErrCodeSupplyExhausted, false},
		{"delivery", NewDeliveryFailedError("p@example.com", 3, stderrors.New("timeout")), http.StatusBadGateway, ErrCodeDeliveryFailed, false},
		{"persistence", NewPersistenceFailedError("postgres", stderrors.New("conn reset")), http.StatusInternalServerError, ErrCodePersistenceFailed, true},
		{"plain", stderrors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &captureLogger{}
			status, se := NewErrorHandler(log).Handle(tt.err)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, se.Code)
			assert.Equal(t, tt.wantLogged, len(log.messages) == 1)
		})
	}
}

func TestErrorHandler_HidesInternalDetails(t *testing.T) {
	log := &captureLogger{}
	_, se := NewErrorHandler(log).Handle(stderrors.New("dial tcp 10.0.0.4:5432: refused"))

	assert.Empty(t, se.Details)
	assert.Equal(t, "Unexpected error", se.Message)
	assert.Equal(t, "INTERNAL_ERROR", log.fields[0]["errorCode"])
}
