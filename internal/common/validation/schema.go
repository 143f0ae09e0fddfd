package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "medication-alerts/internal/common/errors"
	"medication-alerts/internal/models"
)

// Text that ends up in message headers or bodies must stay on one line.
const singleLine = `"pattern": "^[^\\r\\n]*$"`

// A bare addr-spec: what RCPT TO accepts. format alone would also pass
// display-name forms like "Ada <ada@example.com>".
const emailSchemaJSON = `{"type": "string", "format": "email", "pattern": "^[^\\s<>@(),;:]+@[^\\s<>@(),;:]+$"}`

const medicationSchemaJSON = `{
  "type": "object",
  "required": ["name", "dosageAmount", "dosageTime", "totalDoses"],
  "properties": {
    "name":         {"type": "string", "minLength": 1, "maxLength": 200, ` + singleLine + `},
    "dosageAmount": {"type": "string", "minLength": 1, ` + singleLine + `},
    "dosageTime":   {"type": "string", "minLength": 1, ` + singleLine + `},
    "totalDoses":   {"type": "integer", "minimum": 1},
    "dosesRemaining": {"type": "integer", "minimum": 0}
  }
}`

const patientSchemaJSON = `{
  "type": "object",
  "required": ["id", "name", "email", "emergencyContact", "doctor"],
  "properties": {
    "id":    {"type": "string", "minLength": 1, "maxLength": 64, "pattern": "^[A-Za-z0-9._-]+$"},
    "name":  {"type": "string", "minLength": 1, ` + singleLine + `},
    "email": ` + emailSchemaJSON + `,
    "emergencyContact": {
      "type": "object",
      "required": ["name", "phone"],
      "properties": {
        "name":  {"type": "string", "minLength": 1, ` + singleLine + `},
        "phone": {"type": "string", "pattern": "^\\+?[0-9 ()-]{3,20}$"}
      }
    },
    "doctor": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name":  {"type": "string", "minLength": 1, ` + singleLine + `},
        "email": {"anyOf": [{"type": "string", "maxLength": 0}, ` + emailSchemaJSON + `]}
      }
    },
    "medications": {
      "anyOf": [{"type": "null"}, {"type": "array", "items": ` + medicationSchemaJSON + `}]
    }
  }
}`

var (
	patientSchema    = mustSchema(patientSchemaJSON)
	medicationSchema = mustSchema(medicationSchemaJSON)
	emailSchema      = mustSchema(emailSchemaJSON)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid built-in schema: %v", err))
	}
	return s
}

// ValidationError is one schema violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// Err converts a failed result into a VALIDATION_FAILED error, nil otherwise.
func (vr *ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	return apperrors.NewValidationFailedError(strings.Join(vr.GetErrorMessages(), "; "))
}

func validate(schema *gojsonschema.Schema, doc gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := schema.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// ValidatePatient checks a registration payload including any medications.
func ValidatePatient(p models.Patient) (*ValidationResult, error) {
	return validate(patientSchema, gojsonschema.NewGoLoader(p))
}

func ValidateMedication(m models.Medication) (*ValidationResult, error) {
	return validate(medicationSchema, gojsonschema.NewGoLoader(m))
}

// ValidatePatientJSON validates raw JSON, e.g. a seed file entry, before it is
// decoded into a Patient.
func ValidatePatientJSON(raw []byte) (*ValidationResult, error) {
	return validate(patientSchema, gojsonschema.NewBytesLoader(raw))
}

// ValidateEmail reports whether email is a bare address a mail relay will
// accept as a recipient or sender.
func ValidateEmail(email string) bool {
	result, err := emailSchema.Validate(gojsonschema.NewGoLoader(email))
	return err == nil && result.Valid()
}
