package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"medication-alerts/internal/adherence"
	apperrors "medication-alerts/internal/common/errors"
	"medication-alerts/internal/directory"
	"medication-alerts/internal/models"
)

var errInputClosed = errors.New("input closed")

// Menu is the interactive console driver.
type Menu struct {
	dir      *directory.Service
	reporter *adherence.Reporter
	in       *bufio.Scanner
	out      io.Writer
	now      func() time.Time
}

func NewMenu(dir *directory.Service, reporter *adherence.Reporter, in io.Reader, out io.Writer) *Menu {
	return &Menu{dir: dir, reporter: reporter, in: bufio.NewScanner(in), out: out, now: time.Now}
}

// Run loops until the user exits, input ends or ctx is cancelled.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		m.println("\nPatient Directory Menu:")
		m.println("1. Add new patient")
		m.println("2. Display patient information")
		m.println("3. Record medication taken")
		m.println("4. Generate adherence report")
		m.println("5. Exit")

		choice, err := m.prompt("\nEnter your choice (1-5): ")
		if err != nil {
			return nil
		}

		switch choice {
		case "1":
			err = m.addPatient(ctx)
		case "2":
			err = m.displayPatient()
		case "3":
			err = m.recordDose(ctx)
		case "4":
			err = m.report(ctx)
		case "5":
			m.println("Exiting program...")
			return nil
		default:
			m.println("Invalid choice. Please try again.")
		}
		if errors.Is(err, errInputClosed) {
			return nil
		}
	}
}

func (m *Menu) println(a ...any) {
	fmt.Fprintln(m.out, a...)
}

func (m *Menu) prompt(label string) (string, error) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		return "", errInputClosed
	}
	return strings.TrimSpace(m.in.Text()), nil
}

func (m *Menu) promptInt(label string) (int, error) {
	for {
		raw, err := m.prompt(label)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(raw)
		if err == nil {
			return n, nil
		}
		m.println("Please enter a whole number.")
	}
}

func (m *Menu) addPatient(ctx context.Context) error {
	var p models.Patient
	var err error

	if p.Name, err = m.prompt("Enter patient name: "); err != nil {
		return err
	}
	if p.Email, err = m.prompt("Enter patient email: "); err != nil {
		return err
	}
	for {
		if p.ID, err = m.prompt("Enter patient ID: "); err != nil {
			return err
		}
		if _, lookupErr := m.dir.Get(p.ID); errors.Is(lookupErr, apperrors.ErrNotFound) {
			break
		}
		m.println("ID already exists. Please enter a unique ID.")
	}

	for {
		answer, err := m.prompt("Would you like to add a medication? (yes/no): ")
		if err != nil {
			return err
		}
		if strings.ToLower(answer) != "yes" {
			break
		}
		med, err := m.readMedication()
		if err != nil {
			return err
		}
		p.Medications = append(p.Medications, med)
	}

	m.println("\nEmergency Contact Information:")
	if p.EmergencyContact.Name, err = m.prompt("Enter emergency contact name: "); err != nil {
		return err
	}
	if p.EmergencyContact.Phone, err = m.prompt("Enter emergency contact phone: "); err != nil {
		return err
	}
	if p.Doctor.Name, err = m.prompt("Enter doctor's name: "); err != nil {
		return err
	}
	if p.Doctor.Email, err = m.prompt("Enter doctor's email (optional): "); err != nil {
		return err
	}

	if err := m.dir.Register(ctx, p); err != nil {
		m.printError(err)
		return nil
	}
	m.println("\nPatient added successfully!")
	return nil
}

func (m *Menu) readMedication() (models.Medication, error) {
	name, err := m.prompt("Enter medication name: ")
	if err != nil {
		return models.Medication{}, err
	}
	amount, err := m.prompt("Enter dosage amount per dose: ")
	if err != nil {
		return models.Medication{}, err
	}
	dosageTime, err := m.prompt("Enter dosage time (e.g., '8:00 AM, 8:00 PM'): ")
	if err != nil {
		return models.Medication{}, err
	}
	total, err := m.promptInt("Enter total number of doses in prescription: ")
	if err != nil {
		return models.Medication{}, err
	}
	return models.NewMedication(name, amount, dosageTime, total), nil
}

func (m *Menu) displayPatient() error {
	id, err := m.prompt("Enter patient ID to display: ")
	if err != nil {
		return err
	}
	m.showPatient(id)
	return nil
}

func (m *Menu) showPatient(id string) bool {
	p, err := m.dir.Get(id)
	if err != nil {
		m.println("Patient not found!")
		return false
	}

	m.println("\nPatient Information:")
	m.println("Name:", p.Name)
	m.println("ID:", p.ID)
	m.println("Email:", p.Email)
	m.println("\nMedications:")
	if len(p.Medications) == 0 {
		m.println("No medications listed")
	}
	for i, med := range p.Medications {
		fmt.Fprintf(m.out, "%d. %s\n", i+1, med.Name)
		fmt.Fprintf(m.out, "   Dosage: %s\n", med.DosageAmount)
		fmt.Fprintf(m.out, "   Time: %s\n", med.DosageTime)
		fmt.Fprintf(m.out, "   Doses Remaining: %d of %d\n", med.Remaining, med.Total)
	}
	m.println("\nEmergency Contact:", p.EmergencyContact.Name)
	m.println("Emergency Phone:", p.EmergencyContact.Phone)
	m.println("Doctor:", p.Doctor.Name)
	m.println("Doctor Email:", p.Doctor.Email)
	return true
}

func (m *Menu) recordDose(ctx context.Context) error {
	id, err := m.prompt("Enter patient ID: ")
	if err != nil {
		return err
	}
	if !m.showPatient(id) {
		return nil
	}
	number, err := m.promptInt("Enter medication number to record: ")
	if err != nil {
		return err
	}

	outcome, err := m.dir.RecordDose(ctx, id, number-1)
	switch {
	case errors.Is(err, apperrors.ErrSupplyExhausted):
		m.println("No doses remaining! Please refill prescription.")
		return nil
	case errors.Is(err, apperrors.ErrNotFound):
		m.println("Invalid medication number!")
		return nil
	case err != nil:
		m.printError(err)
		return nil
	}

	fmt.Fprintf(m.out, "Recorded dose taken. %d doses remaining.\n", outcome.Remaining)
	for _, d := range outcome.FailedDeliveries() {
		fmt.Fprintf(m.out, "WARNING: Failed to send %s alert to %s (%s) after %d attempts!\n",
			strings.ReplaceAll(string(d.Category), "_", " "), d.Recipient, d.Role, d.Attempts)
	}
	if outcome.PersistenceErr != nil {
		m.println("WARNING: Dose recorded but could not be saved to the log:", outcome.PersistenceErr)
	}
	return nil
}

func (m *Menu) report(ctx context.Context) error {
	id, err := m.prompt("Enter patient ID: ")
	if err != nil {
		return err
	}
	days, err := m.promptInt("Enter number of days for report period: ")
	if err != nil {
		return err
	}

	end := m.now()
	start := end.AddDate(0, 0, -days)
	report, err := m.reporter.GenerateReport(ctx, id, start, end)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			m.println("Patient not found!")
			return nil
		}
		m.printError(err)
		return nil
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	m.println("\nAdherence Report:")
	m.println(string(out))
	return nil
}

func (m *Menu) printError(err error) {
	var se *apperrors.StandardError
	if errors.As(err, &se) {
		if se.Details != "" {
			fmt.Fprintf(m.out, "Error: %s (%s)\n", se.Message, se.Details)
			return
		}
		fmt.Fprintf(m.out, "Error: %s\n", se.Message)
		return
	}
	fmt.Fprintf(m.out, "Error: %v\n", err)
}
