package clinic

import "time"

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "Scheduled"
	StatusCancelled AppointmentStatus = "Cancelled"
	StatusCompleted AppointmentStatus = "Completed"
)

// Terminal reports whether no further status transition is permitted.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// PersonDetails is the attribute bundle shared by patients and doctors.
type PersonDetails struct {
	Name   string
	Age    int
	Gender string
}

type Patient struct {
	ID string
	PersonDetails
	// AppointmentIDs is the patient's own view of bookings, in insertion
	// order. The ledger owns the appointments themselves.
	AppointmentIDs []string
	CreatedAt      time.Time
}

type Doctor struct {
	ID string
	PersonDetails
	Specialty string
	Schedule  Schedule
	CreatedAt time.Time
}

type Appointment struct {
	ID        string
	PatientID string
	DoctorID  string
	Date      string
	Time      string
	Status    AppointmentStatus
	Bill      *Bill // set once, on the transition to Completed
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ChargeItem struct {
	Service string
	Cost    float64
}

// Bill is immutable once attached to an appointment.
type Bill struct {
	AppointmentID   string
	ConsultationFee float64
	Items           []ChargeItem
	Total           float64
	Currency        string
	IssuedAt        time.Time
}
