package clinic

import (
	"fmt"
	"sync"
)

// Entity kinds issued by the generator.
const (
	KindPatient     = "Patient"
	KindDoctor      = "Doctor"
	KindAppointment = "Appointment"
)

// Counter bases carried over from the original hospital system, so the first
// issued IDs are P101, D201 and A301.
const (
	patientIDBase     = 100
	doctorIDBase      = 200
	appointmentIDBase = 300
)

// IDGenerator issues unique, monotonically increasing string identifiers per
// entity kind. Identifiers are never reused for the lifetime of the process,
// even after a cancellation.
type IDGenerator struct {
	mu           sync.Mutex
	patients     int
	doctors      int
	appointments int
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		patients:     patientIDBase,
		doctors:      doctorIDBase,
		appointments: appointmentIDBase,
	}
}

// Advance moves a kind's counter forward so it is past every identifier
// already stored, used when starting against a populated repository.
func (g *IDGenerator) Advance(kind string, last int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch kind {
	case KindPatient:
		if last > g.patients {
			g.patients = last
		}
	case KindDoctor:
		if last > g.doctors {
			g.doctors = last
		}
	case KindAppointment:
		if last > g.appointments {
			g.appointments = last
		}
	}
}

func (g *IDGenerator) NextPatientID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.patients++
	return fmt.Sprintf("P%d", g.patients)
}

func (g *IDGenerator) NextDoctorID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.doctors++
	return fmt.Sprintf("D%d", g.doctors)
}

func (g *IDGenerator) NextAppointmentID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.appointments++
	return fmt.Sprintf("A%d", g.appointments)
}
