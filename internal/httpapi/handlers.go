package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "medication-alerts/internal/common/errors"
	"medication-alerts/internal/common/logger"
	"medication-alerts/internal/models"
)

const defaultReportDays = 30

type handlers struct {
	opts   Options
	logger logger.Logger
	errs   *apperrors.ErrorHandler
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type deliveryResponse struct {
	NotificationID string          `json:"notificationId"`
	Recipient      string          `json:"recipient"`
	Role           string          `json:"role"`
	Category       models.Category `json:"category"`
	Status         string          `json:"status"`
	Attempts       int             `json:"attempts"`
	Error          string          `json:"error,omitempty"`
}

type doseResponse struct {
	PatientID        string             `json:"patientId"`
	Medication       string             `json:"medication"`
	Remaining        int                `json:"remaining"`
	Event            models.DoseEvent   `json:"event"`
	Alerts           []models.Category  `json:"alerts"`
	Deliveries       []deliveryResponse `json:"deliveries"`
	PersistenceError string             `json:"persistenceError,omitempty"`
}

func (h *handlers) ready(w http.ResponseWriter, r *http.Request) {
	if h.opts.Ready == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	if failures := h.opts.Ready(r.Context()); len(failures) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not ready", "failures": failures})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *handlers) registerPatient(w http.ResponseWriter, r *http.Request) {
	var p models.Patient
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: string(apperrors.ErrCodeValidationFailed), Message: "invalid json"})
		return
	}
	if err := h.opts.Directory.Register(r.Context(), p); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.opts.Directory.Get(p.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handlers) getPatient(w http.ResponseWriter, r *http.Request) {
	p, err := h.opts.Directory.Get(chi.URLParam(r, "patientID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) addMedication(w http.ResponseWriter, r *http.Request) {
	var med models.Medication
	if err := json.NewDecoder(r.Body).Decode(&med); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: string(apperrors.ErrCodeValidationFailed), Message: "invalid json"})
		return
	}
	index, err := h.opts.Directory.AddMedication(r.Context(), chi.URLParam(r, "patientID"), med)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"index": index})
}

func (h *handlers) recordDose(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: string(apperrors.ErrCodeValidationFailed), Message: "medication index must be an integer"})
		return
	}

	outcome, err := h.opts.Directory.RecordDose(r.Context(), chi.URLParam(r, "patientID"), index)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := doseResponse{
		PatientID:  outcome.PatientID,
		Medication: outcome.Medication,
		Remaining:  outcome.Remaining,
		Event:      outcome.Event,
		Alerts:     outcome.Alerts,
		Deliveries: make([]deliveryResponse, 0, len(outcome.Deliveries)),
	}
	for _, d := range outcome.Deliveries {
		dr := deliveryResponse{
			NotificationID: d.NotificationID,
			Recipient:      d.Recipient,
			Role:           d.Role,
			Category:       d.Category,
			Status:         d.Status,
			Attempts:       d.Attempts,
		}
		if d.Err != nil {
			dr.Error = d.Err.Error()
		}
		resp.Deliveries = append(resp.Deliveries, dr)
	}
	if outcome.PersistenceErr != nil {
		resp.PersistenceError = outcome.PersistenceErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) adherenceReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.reportWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: string(apperrors.ErrCodeValidationFailed), Message: err.Error()})
		return
	}

	report, err := h.opts.Reporter.GenerateReport(r.Context(), chi.URLParam(r, "patientID"), start, end)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// reportWindow reads either start and end (RFC 3339) or days, the latter
// ending now.
func (h *handlers) reportWindow(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()

	if q.Get("start") != "" || q.Get("end") != "" {
		start, err := time.Parse(time.RFC3339, q.Get("start"))
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("start must be an RFC 3339 timestamp")
		}
		end, err := time.Parse(time.RFC3339, q.Get("end"))
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("end must be an RFC 3339 timestamp")
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, errors.New("end must not be before start")
		}
		return start, end, nil
	}

	days := defaultReportDays
	if raw := q.Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return time.Time{}, time.Time{}, errors.New("days must be a positive integer")
		}
		days = n
	}
	end := h.opts.Now().UTC()
	return end.AddDate(0, 0, -days), end, nil
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	status, se := h.errs.Handle(err)
	writeJSON(w, status, errorResponse{Code: string(se.Code), Message: se.Message, Details: se.Details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
