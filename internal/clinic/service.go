package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rrattigan/Belleview-Hospital/internal/lock"
)

// Service is the clinic core: registration, the appointment lifecycle and
// billing. All mutations go through the repository's atomic commit methods,
// so a failed operation never leaves partial state behind.
type Service struct {
	repo   Repository
	locker lock.Locker
	ids    *IDGenerator
	fee    float64
	log    zerolog.Logger
}

func NewService(repo Repository, locker lock.Locker, ids *IDGenerator, consultationFee float64, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		ids:    ids,
		fee:    consultationFee,
		log:    logger,
	}
}

// SyncIdentifiers advances the ID generator past everything already stored.
// Call once at startup when the repository may hold prior data.
func (s *Service) SyncIdentifiers(ctx context.Context) error {
	seeds, err := s.repo.IdentifierSeeds(ctx)
	if err != nil {
		return fmt.Errorf("load identifier seeds: %w", err)
	}
	s.ids.Advance(KindPatient, seeds.Patients)
	s.ids.Advance(KindDoctor, seeds.Doctors)
	s.ids.Advance(KindAppointment, seeds.Appointments)
	return nil
}

type RegisterPatientInput struct {
	Name   string
	Age    int
	Gender string
}

type RegisterDoctorInput struct {
	Name      string
	Age       int
	Gender    string
	Specialty string
	// Availability is the doctor's initial calendar, date -> times.
	Availability map[string][]string
}

// RegisterPatient stores a new patient and returns it with its issued ID.
// Attribute validation (non-empty name, positive age) belongs to the caller.
func (s *Service) RegisterPatient(ctx context.Context, in RegisterPatientInput) (*Patient, error) {
	p := &Patient{
		ID:            s.ids.NextPatientID(),
		PersonDetails: PersonDetails{Name: in.Name, Age: in.Age, Gender: in.Gender},
		CreatedAt:     time.Now(),
	}
	if err := s.repo.InsertPatient(ctx, p); err != nil {
		return nil, fmt.Errorf("register patient: %w", err)
	}
	s.log.Info().Str("patient_id", p.ID).Msg("patient registered")
	return p, nil
}

func (s *Service) RegisterDoctor(ctx context.Context, in RegisterDoctorInput) (*Doctor, error) {
	schedule := NewSchedule()
	for date, times := range in.Availability {
		schedule.Add(date, times...)
	}

	d := &Doctor{
		ID:            s.ids.NextDoctorID(),
		PersonDetails: PersonDetails{Name: in.Name, Age: in.Age, Gender: in.Gender},
		Specialty:     in.Specialty,
		Schedule:      schedule,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.InsertDoctor(ctx, d); err != nil {
		return nil, fmt.Errorf("register doctor: %w", err)
	}
	s.log.Info().Str("doctor_id", d.ID).Str("specialty", d.Specialty).Msg("doctor registered")
	return d, nil
}

// AddAvailability opens slots on a doctor's calendar. Duplicate times are
// ignored.
func (s *Service) AddAvailability(ctx context.Context, doctorID, date string, times []string) error {
	if err := s.repo.AddAvailability(ctx, doctorID, date, times); err != nil {
		return fmt.Errorf("add availability: %w", err)
	}
	return nil
}

// BookAppointment validates the patient, doctor and slot, then commits the
// reservation. The critical section runs under a per-doctor lock so that two
// concurrent bookings cannot both see the same slot as free. No appointment
// identifier is consumed on any failure path.
func (s *Service) BookAppointment(ctx context.Context, patientID, doctorID, date, timeTok string) (*Appointment, error) {
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	var created *Appointment

	err := s.locker.WithDoctorLock(ctx, doctorID, func(lockCtx context.Context) error {
		available, err := s.repo.SlotAvailable(lockCtx, doctorID, date, timeTok)
		if err != nil {
			return fmt.Errorf("check availability: %w", err)
		}
		if !available {
			return fmt.Errorf("doctor %s has no open slot on %s at %s: %w", doctorID, date, timeTok, ErrSlotUnavailable)
		}

		now := time.Now()
		appt := &Appointment{
			ID:        s.ids.NextAppointmentID(),
			PatientID: patientID,
			DoctorID:  doctorID,
			Date:      date,
			Time:      timeTok,
			Status:    StatusScheduled,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CommitBooking(lockCtx, appt); err != nil {
			return fmt.Errorf("commit booking: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, lock.ErrLockNotAcquired) {
			return nil, fmt.Errorf("doctor %s: %w", doctorID, ErrDoctorBusy)
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID).
		Str("patient_id", patientID).
		Str("doctor_id", doctorID).
		Str("date", date).
		Str("time", timeTok).
		Msg("appointment booked")

	return created, nil
}

// CancelAppointment terminates a Scheduled appointment and releases its slot
// back to the doctor's calendar. The patient's appointment index keeps the
// cancelled entry for history.
func (s *Service) CancelAppointment(ctx context.Context, appointmentID string) (*Appointment, error) {
	appt, err := s.repo.CancelScheduled(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.log.Info().
		Str("appointment_id", appt.ID).
		Str("doctor_id", appt.DoctorID).
		Str("date", appt.Date).
		Str("time", appt.Time).
		Msg("appointment cancelled, slot released")

	return appt, nil
}

// GenerateBill computes the bill for a Scheduled appointment, attaches it and
// closes the appointment as Completed. Charges must be non-negative.
func (s *Service) GenerateBill(ctx context.Context, appointmentID string, charges []ChargeItem) (*Bill, error) {
	total := s.fee
	for _, c := range charges {
		if c.Cost < 0 {
			return nil, fmt.Errorf("service %q: %w", c.Service, ErrNegativeCharge)
		}
		total += c.Cost
	}

	bill := Bill{
		AppointmentID:   appointmentID,
		ConsultationFee: s.fee,
		Items:           append([]ChargeItem(nil), charges...),
		Total:           total,
		Currency:        "JMD",
		IssuedAt:        time.Now(),
	}

	appt, err := s.repo.CompleteScheduled(ctx, appointmentID, bill)
	if err != nil {
		return nil, fmt.Errorf("generate bill: %w", err)
	}

	s.log.Info().
		Str("appointment_id", appt.ID).
		Float64("total", appt.Bill.Total).
		Msg("bill generated, appointment completed")

	return appt.Bill, nil
}

// Read accessors for the presentation layer.

func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	return s.repo.GetPatientByID(ctx, id)
}

func (s *Service) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	return s.repo.GetDoctorByID(ctx, id)
}

func (s *Service) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context) ([]Patient, error) {
	return s.repo.ListPatients(ctx)
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return s.repo.ListDoctors(ctx)
}

func (s *Service) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return s.repo.ListAppointments(ctx)
}

func (s *Service) PatientAppointments(ctx context.Context, patientID string) ([]Appointment, error) {
	return s.repo.ListAppointmentsByPatient(ctx, patientID)
}

// DoctorSchedule returns a snapshot of the doctor's free slots.
func (s *Service) DoctorSchedule(ctx context.Context, doctorID string) (Schedule, error) {
	return s.repo.DoctorSchedule(ctx, doctorID)
}
