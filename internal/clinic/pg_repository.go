package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository implements Repository on Postgres, for deployments where
// several clinic instances share one calendar. A row in doctor_slots means
// the slot is free: reserving deletes it, releasing re-inserts it, which
// keeps the calendar's set semantics without a status column.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Migrate creates the clinic tables if they do not exist yet.
func (r *PgRepository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS patients (
			id         text PRIMARY KEY,
			name       text NOT NULL,
			age        int  NOT NULL,
			gender     text NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS doctors (
			id         text PRIMARY KEY,
			name       text NOT NULL,
			age        int  NOT NULL,
			gender     text NOT NULL,
			specialty  text NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS doctor_slots (
			doctor_id text NOT NULL REFERENCES doctors(id),
			slot_date text NOT NULL,
			slot_time text NOT NULL,
			PRIMARY KEY (doctor_id, slot_date, slot_time)
		);
		CREATE TABLE IF NOT EXISTS appointments (
			id              text PRIMARY KEY,
			patient_id      text NOT NULL REFERENCES patients(id),
			doctor_id       text NOT NULL REFERENCES doctors(id),
			slot_date       text NOT NULL,
			slot_time       text NOT NULL,
			status          text NOT NULL,
			consultation_fee numeric,
			bill_items      jsonb,
			bill_total      numeric,
			bill_currency   text,
			bill_issued_at  timestamptz,
			created_at      timestamptz NOT NULL,
			updated_at      timestamptz NOT NULL
		);
		CREATE INDEX IF NOT EXISTS appointments_patient_idx
			ON appointments (patient_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate clinic schema: %w", err)
	}
	return nil
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a         Appointment
		fee       *float64
		itemsJSON []byte
		total     *float64
		currency  *string
		issuedAt  *time.Time
	)

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.Time,
		&a.Status,
		&fee,
		&itemsJSON,
		&total,
		&currency,
		&issuedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if total != nil {
		bill := Bill{
			AppointmentID: a.ID,
			Total:         *total,
		}
		if fee != nil {
			bill.ConsultationFee = *fee
		}
		if currency != nil {
			bill.Currency = *currency
		}
		if issuedAt != nil {
			bill.IssuedAt = *issuedAt
		}
		if len(itemsJSON) > 0 {
			if err := json.Unmarshal(itemsJSON, &bill.Items); err != nil {
				return nil, fmt.Errorf("decode bill items for %s: %w", a.ID, err)
			}
		}
		a.Bill = &bill
	}

	return &a, nil
}

const appointmentColumns = `
	id, patient_id, doctor_id, slot_date, slot_time, status,
	consultation_fee, bill_items, bill_total, bill_currency, bill_issued_at,
	created_at, updated_at`

func (r *PgRepository) GetPatientByID(ctx context.Context, id string) (*Patient, error) {
	var p Patient
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, age, gender, created_at
		FROM patients
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Age, &p.Gender, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("patient %q: %w", id, ErrPatientNotFound)
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id FROM appointments
		WHERE patient_id = $1
		ORDER BY created_at, id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var apptID string
		if err := rows.Scan(&apptID); err != nil {
			return nil, err
		}
		p.AppointmentIDs = append(p.AppointmentIDs, apptID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id string) (*Doctor, error) {
	var d Doctor
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, age, gender, specialty, created_at
		FROM doctors
		WHERE id = $1
	`, id).Scan(&d.ID, &d.Name, &d.Age, &d.Gender, &d.Specialty, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("doctor %q: %w", id, ErrDoctorNotFound)
		}
		return nil, err
	}

	schedule, err := r.DoctorSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Schedule = schedule

	return &d, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id string) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("appointment %q: %w", id, ErrAppointmentNotFound)
		}
		return nil, err
	}
	return a, nil
}

func (r *PgRepository) InsertPatient(ctx context.Context, p *Patient) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (id, name, age, gender, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.Name, p.Age, p.Gender, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert patient %s: %w", p.ID, err)
	}
	return nil
}

func (r *PgRepository) InsertDoctor(ctx context.Context, d *Doctor) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert doctor: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO doctors (id, name, age, gender, specialty, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.ID, d.Name, d.Age, d.Gender, d.Specialty, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert doctor %s: %w", d.ID, err)
	}

	for date, times := range d.Schedule {
		for _, t := range times {
			_, err = tx.Exec(ctx, `
				INSERT INTO doctor_slots (doctor_id, slot_date, slot_time)
				VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING
			`, d.ID, date, t)
			if err != nil {
				return fmt.Errorf("insert slot %s %s/%s: %w", d.ID, date, t, err)
			}
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) ListPatients(ctx context.Context) ([]Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, age, gender, created_at
		FROM patients
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.Age, &p.Gender, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, age, gender, specialty, created_at
		FROM doctors
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Age, &d.Gender, &d.Specialty, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PgRepository) listAppointments(ctx context.Context, where string, args ...any) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		`+where+`
		ORDER BY created_at, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *PgRepository) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return r.listAppointments(ctx, "")
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	if _, err := r.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}
	return r.listAppointments(ctx, "WHERE patient_id = $1", patientID)
}

func (r *PgRepository) DoctorSchedule(ctx context.Context, doctorID string) (Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slot_date, slot_time
		FROM doctor_slots
		WHERE doctor_id = $1
		ORDER BY slot_date, slot_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedule := NewSchedule()
	for rows.Next() {
		var date, t string
		if err := rows.Scan(&date, &t); err != nil {
			return nil, err
		}
		schedule.Add(date, t)
	}
	return schedule, rows.Err()
}

func (r *PgRepository) AddAvailability(ctx context.Context, doctorID, date string, times []string) error {
	if _, err := r.GetDoctorByID(ctx, doctorID); err != nil {
		return err
	}
	for _, t := range times {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO doctor_slots (doctor_id, slot_date, slot_time)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, doctorID, date, t)
		if err != nil {
			return fmt.Errorf("add availability %s %s/%s: %w", doctorID, date, t, err)
		}
	}
	return nil
}

func (r *PgRepository) SlotAvailable(ctx context.Context, doctorID, date, timeTok string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM doctor_slots
			WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3
		)
	`, doctorID, date, timeTok).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) CommitBooking(ctx context.Context, appt *Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin booking: %w", err)
	}
	defer tx.Rollback(ctx)

	// Deleting the slot row is the reservation: zero rows means someone else
	// took it since the availability check.
	tag, err := tx.Exec(ctx, `
		DELETE FROM doctor_slots
		WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3
	`, appt.DoctorID, appt.Date, appt.Time)
	if err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("doctor %s has no open slot on %s at %s: %w",
			appt.DoctorID, appt.Date, appt.Time, ErrSlotUnavailable)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, slot_date, slot_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, appt.ID, appt.PatientID, appt.DoctorID, appt.Date, appt.Time, appt.Status, appt.CreatedAt, appt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) CancelScheduled(ctx context.Context, id string) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancel: %w", err)
	}
	defer tx.Rollback(ctx)

	a, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, StatusCancelled, StatusScheduled))
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, r.transitionFailure(ctx, id)
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO doctor_slots (doctor_id, slot_date, slot_time)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, a.DoctorID, a.Date, a.Time)
	if err != nil {
		return nil, fmt.Errorf("release slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *PgRepository) CompleteScheduled(ctx context.Context, id string, bill Bill) (*Appointment, error) {
	items, err := json.Marshal(bill.Items)
	if err != nil {
		return nil, fmt.Errorf("encode bill items: %w", err)
	}

	a, err := scanAppointment(r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    consultation_fee = $3,
		    bill_items = $4,
		    bill_total = $5,
		    bill_currency = $6,
		    bill_issued_at = $7,
		    updated_at = now()
		WHERE id = $1 AND status = $8
		RETURNING `+appointmentColumns+`
	`, id, StatusCompleted, bill.ConsultationFee, items, bill.Total, bill.Currency, bill.IssuedAt, StatusScheduled))
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, r.transitionFailure(ctx, id)
		}
		return nil, err
	}
	return a, nil
}

// transitionFailure distinguishes a missing appointment from one already in
// a terminal state after a compare-and-swap update matched no rows.
func (r *PgRepository) transitionFailure(ctx context.Context, id string) error {
	existing, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("appointment %q is %s: %w", id, existing.Status, ErrInvalidStatusTransition)
}

func (r *PgRepository) IdentifierSeeds(ctx context.Context) (IdentifierSeeds, error) {
	var seeds IdentifierSeeds
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT MAX(substring(id FROM 2)::int) FROM patients), 0),
			COALESCE((SELECT MAX(substring(id FROM 2)::int) FROM doctors), 0),
			COALESCE((SELECT MAX(substring(id FROM 2)::int) FROM appointments), 0)
	`).Scan(&seeds.Patients, &seeds.Doctors, &seeds.Appointments)
	if err != nil {
		return IdentifierSeeds{}, fmt.Errorf("load identifier seeds: %w", err)
	}
	return seeds, nil
}
