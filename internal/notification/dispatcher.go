// Package notification composes medication alerts and delivers them over a
// pluggable mail transport with a bounded, fixed-delay retry.
package notification

import (
	"context"
	"fmt"
	"time"

	apperrors "medication-alerts/internal/common/errors"
	"medication-alerts/internal/common/logger"
	"medication-alerts/internal/common/metrics"
	"medication-alerts/internal/models"
)

type Dispatcher struct {
	config    *Config
	transport Transport
	logger    logger.Logger
	now       func() time.Time
}

func NewDispatcher(cfg *Config, transport Transport, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		config:    cfg,
		transport: transport,
		logger:    log.WithFields(map[string]interface{}{"component": "dispatcher", "transport": transport.Name()}),
		now:       time.Now,
	}
}

// Notify composes the alert for category and delivers every copy with its
// own retry budget. One Result is returned per copy sent; a failed copy never
// suppresses the others.
func (d *Dispatcher) Notify(ctx context.Context, patient models.Patient, med models.Medication, category models.Category) []Result {
	reqs := Compose(patient, med, category)
	if category == models.CategoryEmptySupply && len(reqs) == 1 {
		d.logger.Debug("no doctor email on file, skipping doctor copy", map[string]interface{}{
			"patientId":  patient.ID,
			"medication": med.Name,
		})
	}

	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		results = append(results, d.Deliver(ctx, req))
	}
	return results
}

// Deliver sends one message, retrying up to MaxAttempts with a fixed
// RetryDelay. Each attempt uses a fresh session. A failed delivery is
// reported in the Result and logged; it is never returned as a panic or
// fatal error. The wait between attempts ends early if ctx is cancelled.
func (d *Dispatcher) Deliver(ctx context.Context, req models.NotificationRequest) Result {
	result := Result{
		NotificationID: req.ID,
		Recipient:      req.Recipient,
		Role:           req.Role,
		Category:       req.Category,
		Status:         StatusFailed,
	}

	start := time.Now()
	defer func() {
		metrics.DeliveryDuration.WithLabelValues(d.transport.Name()).Observe(time.Since(start).Seconds())
		metrics.NotificationsTotal.WithLabelValues(string(req.Category), req.Role, result.Status).Inc()
	}()

	msg := buildMessage(d.config.FromEmail, req, d.now())

	var lastErr error
	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		result.Attempts = attempt

		err := d.attempt(ctx, req.Recipient, msg)
		if err == nil {
			metrics.DeliveryAttempts.WithLabelValues(d.transport.Name(), "success").Inc()
			result.Status = StatusSent
			d.logger.Info("notification delivered", map[string]interface{}{
				"notificationId": req.ID,
				"recipient":      req.Recipient,
				"category":       req.Category,
				"attempt":        attempt,
			})
			return result
		}

		metrics.DeliveryAttempts.WithLabelValues(d.transport.Name(), "failure").Inc()
		lastErr = err
		d.logger.Warn("delivery attempt failed", map[string]interface{}{
			"notificationId": req.ID,
			"recipient":      req.Recipient,
			"attempt":        attempt,
			"maxAttempts":    d.config.MaxAttempts,
			"error":          err,
		})

		if attempt < d.config.MaxAttempts {
			if err := sleep(ctx, d.config.RetryDelay); err != nil {
				lastErr = fmt.Errorf("%w (retry aborted: %v)", lastErr, err)
				break
			}
		}
	}

	result.Err = apperrors.NewDeliveryFailedError(req.Recipient, result.Attempts, lastErr)
	d.logger.Error("notification delivery failed", map[string]interface{}{
		"notificationId": req.ID,
		"recipient":      req.Recipient,
		"category":       req.Category,
		"attempts":       result.Attempts,
		"error":          lastErr,
	})
	return result
}

// attempt runs one session. The session is closed on every path once dialled.
func (d *Dispatcher) attempt(ctx context.Context, recipient string, msg []byte) error {
	session, err := d.transport.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			d.logger.Debug("session close failed", map[string]interface{}{"error": cerr})
		}
	}()

	if err := session.Authenticate(ctx); err != nil {
		return err
	}
	return session.Send(ctx, d.config.FromEmail, []string{recipient}, msg)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
