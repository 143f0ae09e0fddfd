package directory

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "medication-alerts/internal/common/errors"
	"medication-alerts/internal/common/logger"
	"medication-alerts/internal/common/metrics"
	"medication-alerts/internal/ledger"
	"medication-alerts/internal/models"
	"medication-alerts/internal/notification"
	"medication-alerts/internal/supply"
)

type stubTransport struct {
	mu    sync.Mutex
	fail  bool
	sent  []string
	dials int
}

func (s *stubTransport) Name() string { return "stub" }

func (s *stubTransport) Dial(ctx context.Context) (notification.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dials++
	return &stubSession{t: s}, nil
}

type stubSession struct{ t *stubTransport }

func (s *stubSession) Authenticate(ctx context.Context) error { return nil }

func (s *stubSession) Send(ctx context.Context, from string, to []string, msg []byte) error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if s.t.fail {
		return stderrors.New("relay unavailable")
	}
	s.t.sent = append(s.t.sent, to...)
	return nil
}

func (s *stubSession) Close() error { return nil }

type failingSink struct{}

func (failingSink) Name() string { return "file" }
func (failingSink) Write(ctx context.Context, event models.DoseEvent) error {
	return stderrors.New("read-only file system")
}

type fixture struct {
	svc       *Service
	ledger    *ledger.Ledger
	transport *stubTransport
}

func newFixture(t *testing.T, sinks ...ledger.Sink) *fixture {
	t.Helper()
	log := logger.NewNoOpLogger()
	transport := &stubTransport{}
	dispatcher := notification.NewDispatcher(&notification.Config{
		FromEmail:   "alerts@clinic.example",
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	}, transport, log)

	l := ledger.New(log, sinks...)
	svc := NewService(ServiceDependencies{
		Tracker:  supply.NewTracker(supply.DefaultConfig()),
		Ledger:   l,
		Notifier: dispatcher,
		Logger:   log,
	})
	return &fixture{svc: svc, ledger: l, transport: transport}
}

func testPatient(doctorEmail string, total int) models.Patient {
	return models.Patient{
		ID:               "p-1",
		Name:             "Ada",
		Email:            "ada@example.com",
		EmergencyContact: models.EmergencyContact{Name: "Charles", Phone: "555-0100"},
		Doctor:           models.Doctor{Name: "Dr. Babbage", Email: doctorEmail},
		Medications:      []models.Medication{models.NewMedication("Aspirin", "100mg", "08:00", total)},
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := testPatient("", 10)
	p.Medications[0].Remaining = 0
	require.NoError(t, f.svc.Register(ctx, p))

	got, err := f.svc.Get("p-1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Medications[0].Remaining)

	err = f.svc.Register(ctx, testPatient("", 3))
	assert.True(t, stderrors.Is(err, apperrors.ErrDuplicatePatient))

	bad := testPatient("", 3)
	bad.ID = "p-2"
	bad.Email = "nope"
	err = f.svc.Register(ctx, bad)
	assert.True(t, stderrors.Is(err, apperrors.ErrValidationFailed))

	// a relay rejects RCPT TO with a display name, so registration must too
	named := testPatient("", 3)
	named.ID = "p-3"
	named.Email = "Ada <ada@example.com>"
	err = f.svc.Register(ctx, named)
	assert.True(t, stderrors.Is(err, apperrors.ErrValidationFailed))

	assert.Equal(t, []string{"p-1"}, f.svc.IDs())
}

func TestGet_ReturnsSnapshot(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Register(context.Background(), testPatient("", 10)))

	snap, err := f.svc.Get("p-1")
	require.NoError(t, err)
	snap.Medications[0].Remaining = 99

	again, err := f.svc.Get("p-1")
	require.NoError(t, err)
	assert.Equal(t, 10, again.Medications[0].Remaining)

	_, err = f.svc.Get("ghost")
	assert.True(t, stderrors.Is(err, apperrors.ErrNotFound))
}

func TestAddMedication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, testPatient("", 10)))

	idx, err := f.svc.AddMedication(ctx, "p-1", models.Medication{Name: "Metformin", DosageAmount: "500mg", DosageTime: "evening", Total: 60})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	p, err := f.svc.Get("p-1")
	require.NoError(t, err)
	assert.Equal(t, 60, p.Medications[1].Remaining)

	_, err = f.svc.AddMedication(ctx, "ghost", models.NewMedication("X", "1", "am", 1))
	assert.True(t, stderrors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.AddMedication(ctx, "p-1", models.NewMedication("X", "1", "am", 0))
	assert.True(t, stderrors.Is(err, apperrors.ErrValidationFailed))

	_, err = f.svc.AddMedication(ctx, "p-1", models.NewMedication("Aspirin\r\nBcc: attacker@evil.example", "1", "am", 5))
	assert.True(t, stderrors.Is(err, apperrors.ErrValidationFailed))

	p, err = f.svc.Get("p-1")
	require.NoError(t, err)
	assert.Len(t, p.Medications, 2)
}

func TestRecordDose_SixDoseScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, testPatient("", 6)))

	first, err := f.svc.RecordDose(ctx, "p-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Remaining)
	assert.Equal(t, []models.Category{models.CategoryReminder, models.CategoryLowSupply}, first.Alerts)
	require.Len(t, first.Deliveries, 2)
	assert.NoError(t, first.PersistenceErr)

	var last *DoseOutcome
	for i := 0; i < 5; i++ {
		last, err = f.svc.RecordDose(ctx, "p-1", 0)
		require.NoError(t, err)
		if i < 4 {
			assert.Equal(t, []models.Category{models.CategoryReminder}, last.Alerts)
		}
	}
	assert.Equal(t, 0, last.Remaining)
	assert.Equal(t, []models.Category{models.CategoryReminder, models.CategoryEmptySupply}, last.Alerts)

	// reminder + patient copy of empty supply; no doctor email on file
	require.Len(t, last.Deliveries, 2)
	for _, d := range last.Deliveries {
		assert.Equal(t, models.RolePatient, d.Role)
		assert.True(t, d.Delivered())
	}

	_, err = f.svc.RecordDose(ctx, "p-1", 0)
	assert.True(t, stderrors.Is(err, apperrors.ErrSupplyExhausted))

	p, err := f.svc.Get("p-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Medications[0].Remaining)

	// the rejected attempt is not in the ledger
	assert.Equal(t, 6, f.ledger.Version("p-1"))
}

func TestRecordDose_EmptySupplyNotifiesDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, testPatient("babbage@clinic.example", 1)))

	outcome, err := f.svc.RecordDose(ctx, "p-1", 0)
	require.NoError(t, err)
	require.Len(t, outcome.Deliveries, 3)
	assert.Equal(t, models.RoleDoctor, outcome.Deliveries[2].Role)
	assert.Contains(t, f.transport.sent, "babbage@clinic.example")
}

func TestRecordDose_DeliveryFailureKeepsDecrement(t *testing.T) {
	f := newFixture(t)
	f.transport.fail = true
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, testPatient("", 10)))

	outcome, err := f.svc.RecordDose(ctx, "p-1", 0)
	require.NoError(t, err)
	require.Len(t, outcome.FailedDeliveries(), 1)
	assert.True(t, stderrors.Is(outcome.FailedDeliveries()[0].Err, apperrors.ErrDeliveryFailed))
	assert.Equal(t, 3, f.transport.dials)

	p, err := f.svc.Get("p-1")
	require.NoError(t, err)
	assert.Equal(t, 9, p.Medications[0].Remaining)
	assert.Equal(t, 1, f.ledger.Version("p-1"))
}

func TestRecordDose_PersistenceFailureIsNonFatal(t *testing.T) {
	f := newFixture(t, failingSink{})
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, testPatient("", 10)))

	outcome, err := f.svc.RecordDose(ctx, "p-1", 0)
	require.NoError(t, err)
	require.Error(t, outcome.PersistenceErr)
	assert.True(t, stderrors.Is(outcome.PersistenceErr, apperrors.ErrPersistenceFailed))
	assert.Equal(t, 9, outcome.Remaining)

	events := f.ledger.Query("p-1", outcome.Event.Timestamp, outcome.Event.Timestamp)
	require.Len(t, events, 1)
	assert.Equal(t, outcome.Event, events[0])
}

func TestRecordDose_EventFields(t *testing.T) {
	f := newFixture(t)
	fixed := time.Date(2025, 3, 10, 8, 3, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, testPatient("", 10)))
	takenBefore := testutil.ToFloat64(metrics.DosesRecorded.WithLabelValues("true"))

	outcome, err := f.svc.RecordDose(ctx, "p-1", 0)
	require.NoError(t, err)
	assert.Equal(t, takenBefore+1, testutil.ToFloat64(metrics.DosesRecorded.WithLabelValues("true")))

	e := outcome.Event
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, fixed, e.Timestamp)
	assert.Equal(t, "Aspirin", e.MedicationName)
	assert.Equal(t, "100mg", e.DosageTaken)
	assert.Equal(t, "08:00", e.ScheduledTime)
	assert.Equal(t, "p-1", e.PatientID)
	assert.True(t, e.WasTaken)
	assert.Equal(t, 0, e.DelayMinutes)
}

func TestRecordDose_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, testPatient("", 10)))

	for _, tc := range []struct {
		patientID string
		index     int
	}{
		{"ghost", 0},
		{"p-1", 1},
		{"p-1", -1},
	} {
		_, err := f.svc.RecordDose(ctx, tc.patientID, tc.index)
		assert.True(t, stderrors.Is(err, apperrors.ErrNotFound), "%s/%d", tc.patientID, tc.index)
	}

	p, err := f.svc.Get("p-1")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Medications[0].Remaining)
	assert.Equal(t, 0, f.ledger.Version("p-1"))
}

func TestRecordDose_ConcurrentCallersNeverDoubleFire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, testPatient("", 20)))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		counts    = map[models.Category]int{}
		exhausted int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := f.svc.RecordDose(ctx, "p-1", 0)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				exhausted++
				return
			}
			for _, c := range outcome.Alerts {
				counts[c]++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, exhausted)
	assert.Equal(t, 20, counts[models.CategoryReminder])
	assert.Equal(t, 1, counts[models.CategoryLowSupply])
	assert.Equal(t, 1, counts[models.CategoryEmptySupply])
	assert.Equal(t, 20, f.ledger.Version("p-1"))
}
