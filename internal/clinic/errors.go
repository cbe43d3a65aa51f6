package clinic

import "errors"

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	ErrSlotUnavailable         = errors.New("slot is not available")
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrDoctorBusy means another booking for the same doctor holds the
	// critical section, so the caller should retry.
	ErrDoctorBusy = errors.New("doctor is currently being booked, please retry")

	ErrNegativeCharge = errors.New("charge cost must not be negative")
	ErrDuplicateID    = errors.New("identifier already registered")
)
