package notification

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "medication-alerts/internal/common/errors"
	"medication-alerts/internal/common/logger"
	"medication-alerts/internal/models"
)

// fakeTransport fails the first failUntil sends, then succeeds.
type fakeTransport struct {
	mu        sync.Mutex
	failUntil int
	dialErr   error
	authErr   error

	dials    int
	sends    int
	closes   int
	messages []sentMessage
}

type sentMessage struct {
	from string
	to   []string
	msg  string
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Dial(ctx context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials++
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	return &fakeSession{t: f}, nil
}

type fakeSession struct {
	t *fakeTransport
}

func (s *fakeSession) Authenticate(ctx context.Context) error {
	return s.t.authErr
}

func (s *fakeSession) Send(ctx context.Context, from string, to []string, msg []byte) error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	s.t.sends++
	if s.t.sends <= s.t.failUntil {
		return stderrors.New("451 temporary relay failure")
	}
	s.t.messages = append(s.t.messages, sentMessage{from: from, to: to, msg: string(msg)})
	return nil
}

func (s *fakeSession) Close() error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	s.t.closes++
	return nil
}

func testConfig(delay time.Duration) *Config {
	return &Config{FromEmail: "alerts@clinic.example", MaxAttempts: 3, RetryDelay: delay}
}

func testPatient() models.Patient {
	return models.Patient{
		ID:               "p-1",
		Name:             "Ada",
		Email:            "ada@example.com",
		EmergencyContact: models.EmergencyContact{Name: "Charles", Phone: "555-0100"},
		Doctor:           models.Doctor{Name: "Dr. Babbage", Email: "babbage@clinic.example"},
	}
}

func testRequest() models.NotificationRequest {
	return models.NotificationRequest{
		ID:        "n-1",
		Recipient: "ada@example.com",
		Role:      models.RolePatient,
		Subject:   "Medication Alert: Aspirin",
		Body:      "hello",
		Category:  models.CategoryReminder,
	}
}

func TestDeliver_SucceedsOnThirdAttempt(t *testing.T) {
	transport := &fakeTransport{failUntil: 2}
	delay := 20 * time.Millisecond
	d := NewDispatcher(testConfig(delay), transport, logger.NewTestLogger(t))

	start := time.Now()
	result := d.Deliver(context.Background(), testRequest())
	elapsed := time.Since(start)

	assert.True(t, result.Delivered())
	assert.Equal(t, StatusSent, result.Status)
	assert.Equal(t, 3, result.Attempts)
	assert.NoError(t, result.Err)
	assert.Equal(t, 3, transport.dials)
	assert.Equal(t, 3, transport.closes)
	assert.GreaterOrEqual(t, elapsed, 2*delay)
	require.Len(t, transport.messages, 1)
	assert.Equal(t, []string{"ada@example.com"}, transport.messages[0].to)
	assert.Equal(t, "alerts@clinic.example", transport.messages[0].from)
}

func TestDeliver_ExhaustsAttempts(t *testing.T) {
	transport := &fakeTransport{failUntil: 100}
	d := NewDispatcher(testConfig(time.Millisecond), transport, logger.NewNoOpLogger())

	result := d.Deliver(context.Background(), testRequest())

	assert.False(t, result.Delivered())
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, transport.dials)
	assert.Equal(t, 3, transport.closes)
	require.Error(t, result.Err)
	assert.True(t, stderrors.Is(result.Err, apperrors.ErrDeliveryFailed))
	assert.Contains(t, result.Err.Error(), "451 temporary relay failure")
}

func TestDeliver_DialAndAuthFailuresRetry(t *testing.T) {
	dialFail := &fakeTransport{dialErr: stderrors.New("connection refused")}
	d := NewDispatcher(testConfig(0), dialFail, logger.NewNoOpLogger())
	result := d.Deliver(context.Background(), testRequest())
	assert.False(t, result.Delivered())
	assert.Equal(t, 3, dialFail.dials)
	assert.Equal(t, 0, dialFail.closes)

	authFail := &fakeTransport{authErr: stderrors.New("535 bad credentials")}
	d = NewDispatcher(testConfig(0), authFail, logger.NewNoOpLogger())
	result = d.Deliver(context.Background(), testRequest())
	assert.False(t, result.Delivered())
	assert.Equal(t, 3, authFail.dials)
	assert.Equal(t, 3, authFail.closes, "every dialled session is closed")
	assert.Equal(t, 0, authFail.sends)
}

func TestDeliver_CancelledContextStopsRetrying(t *testing.T) {
	transport := &fakeTransport{failUntil: 100}
	d := NewDispatcher(testConfig(time.Hour), transport, logger.NewNoOpLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result := d.Deliver(ctx, testRequest())
	assert.False(t, result.Delivered())
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, transport.dials)
}

func TestNotify_EmptySupplySendsIndependentCopies(t *testing.T) {
	// patient copy fails all three attempts, doctor copy succeeds first time
	transport := &fakeTransport{failUntil: 3}
	d := NewDispatcher(testConfig(0), transport, logger.NewNoOpLogger())

	med := models.NewMedication("Aspirin", "100mg", "08:00", 6)
	med.Remaining = 0

	results := d.Notify(context.Background(), testPatient(), med, models.CategoryEmptySupply)
	require.Len(t, results, 2)

	assert.Equal(t, models.RolePatient, results[0].Role)
	assert.False(t, results[0].Delivered())
	assert.Equal(t, models.RoleDoctor, results[1].Role)
	assert.True(t, results[1].Delivered())
	assert.Equal(t, "babbage@clinic.example", results[1].Recipient)
	assert.Equal(t, 4, transport.dials)
}

func TestNotify_EmptySupplySkipsDoctorWithoutEmail(t *testing.T) {
	transport := &fakeTransport{}
	d := NewDispatcher(testConfig(0), transport, logger.NewNoOpLogger())

	patient := testPatient()
	patient.Doctor.Email = ""
	med := models.NewMedication("Aspirin", "100mg", "08:00", 6)
	med.Remaining = 0

	results := d.Notify(context.Background(), patient, med, models.CategoryEmptySupply)
	require.Len(t, results, 1)
	assert.Equal(t, models.RolePatient, results[0].Role)
	assert.True(t, results[0].Delivered())
}

func TestNotify_ReminderAndLowSupplyGoToPatient(t *testing.T) {
	transport := &fakeTransport{}
	d := NewDispatcher(testConfig(0), transport, logger.NewNoOpLogger())
	med := models.NewMedication("Aspirin", "100mg", "08:00", 6)
	med.Remaining = 5

	for _, c := range []models.Category{models.CategoryReminder, models.CategoryLowSupply} {
		results := d.Notify(context.Background(), testPatient(), med, c)
		require.Len(t, results, 1)
		assert.Equal(t, "ada@example.com", results[0].Recipient)
		assert.Equal(t, c, results[0].Category)
		assert.True(t, results[0].Delivered())
	}
}

func testLogger(t *testing.T) logger.Logger {
	return logger.NewTestLogger(t)
}
