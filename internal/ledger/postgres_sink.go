package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"medication-alerts/internal/models"
)

const createDoseEventsTable = `CREATE TABLE IF NOT EXISTS dose_events (
	id TEXT PRIMARY KEY,
	patient_id TEXT NOT NULL,
	medication_name TEXT NOT NULL,
	dosage_taken TEXT NOT NULL,
	scheduled_time TEXT NOT NULL,
	was_taken BOOLEAN NOT NULL,
	delay_minutes INTEGER NOT NULL DEFAULT 0,
	taken_at TIMESTAMPTZ NOT NULL
)`

const createDoseEventsIndex = `CREATE INDEX IF NOT EXISTS dose_events_patient_taken_at ON dose_events (patient_id, taken_at)`

const insertDoseEvent = `INSERT INTO dose_events (id, patient_id, medication_name, dosage_taken, scheduled_time, was_taken, delay_minutes, taken_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`

// PostgresSink mirrors dose events into the dose_events table.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Name() string { return "postgres" }

// EnsureSchema creates the table and index if they are missing.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createDoseEventsTable, createDoseEventsIndex} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure dose_events schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresSink) Write(ctx context.Context, event models.DoseEvent) error {
	_, err := s.db.ExecContext(ctx, insertDoseEvent,
		event.ID,
		event.PatientID,
		event.MedicationName,
		event.DosageTaken,
		event.ScheduledTime,
		event.WasTaken,
		event.DelayMinutes,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert dose event: %w", err)
	}
	return nil
}
