package clinic

import "context"

// IdentifierSeeds carries the highest numeric identifier stored per entity
// kind, so a restarted process never reissues an ID.
type IdentifierSeeds struct {
	Patients     int
	Doctors      int
	Appointments int
}

// Repository contains all storage interactions needed by the service.
// Implementations must make the Commit*/Cancel*/Complete* methods atomic:
// either every side effect of the call lands, or none does.
type Repository interface {
	GetPatientByID(ctx context.Context, id string) (*Patient, error)
	GetDoctorByID(ctx context.Context, id string) (*Doctor, error)
	GetAppointmentByID(ctx context.Context, id string) (*Appointment, error)

	InsertPatient(ctx context.Context, p *Patient) error
	InsertDoctor(ctx context.Context, d *Doctor) error

	ListPatients(ctx context.Context) ([]Patient, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	ListAppointments(ctx context.Context) ([]Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID string) ([]Appointment, error)

	DoctorSchedule(ctx context.Context, doctorID string) (Schedule, error)
	AddAvailability(ctx context.Context, doctorID, date string, times []string) error
	SlotAvailable(ctx context.Context, doctorID, date, timeTok string) (bool, error)

	// CommitBooking reserves the appointment's slot, inserts the Scheduled
	// appointment into the ledger and appends its ID to the patient's index,
	// all in one step. Fails with ErrSlotUnavailable if the slot is gone.
	CommitBooking(ctx context.Context, appt *Appointment) error

	// CancelScheduled moves Scheduled -> Cancelled and releases the held
	// slot. Fails with ErrInvalidStatusTransition unless the appointment is
	// currently Scheduled.
	CancelScheduled(ctx context.Context, id string) (*Appointment, error)

	// CompleteScheduled moves Scheduled -> Completed and attaches the bill.
	// Fails with ErrInvalidStatusTransition unless currently Scheduled.
	CompleteScheduled(ctx context.Context, id string, bill Bill) (*Appointment, error)

	IdentifierSeeds(ctx context.Context) (IdentifierSeeds, error)
}
