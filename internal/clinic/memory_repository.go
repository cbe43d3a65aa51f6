package clinic

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepository is the in-memory storage backing a single-node clinic.
// Every mutating method runs under one write lock, which is what makes the
// multi-step commits atomic.
type MemoryRepository struct {
	mu           sync.RWMutex
	patients     map[string]*Patient
	doctors      map[string]*Doctor
	appointments map[string]*Appointment

	// registration / booking order, for stable listings
	patientOrder     []string
	doctorOrder      []string
	appointmentOrder []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:     make(map[string]*Patient),
		doctors:      make(map[string]*Doctor),
		appointments: make(map[string]*Appointment),
	}
}

func clonePatient(p *Patient) *Patient {
	out := *p
	out.AppointmentIDs = append([]string(nil), p.AppointmentIDs...)
	return &out
}

func cloneDoctor(d *Doctor) *Doctor {
	out := *d
	out.Schedule = d.Schedule.Clone()
	return &out
}

func cloneAppointment(a *Appointment) *Appointment {
	out := *a
	if a.Bill != nil {
		bill := *a.Bill
		bill.Items = append([]ChargeItem(nil), a.Bill.Items...)
		out.Bill = &bill
	}
	return &out
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient %q: %w", id, ErrPatientNotFound)
	}
	return clonePatient(p), nil
}

func (r *MemoryRepository) GetDoctorByID(_ context.Context, id string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, fmt.Errorf("doctor %q: %w", id, ErrDoctorNotFound)
	}
	return cloneDoctor(d), nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment %q: %w", id, ErrAppointmentNotFound)
	}
	return cloneAppointment(a), nil
}

func (r *MemoryRepository) InsertPatient(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[p.ID]; ok {
		return fmt.Errorf("patient %q: %w", p.ID, ErrDuplicateID)
	}
	r.patients[p.ID] = clonePatient(p)
	r.patientOrder = append(r.patientOrder, p.ID)
	return nil
}

func (r *MemoryRepository) InsertDoctor(_ context.Context, d *Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doctors[d.ID]; ok {
		return fmt.Errorf("doctor %q: %w", d.ID, ErrDuplicateID)
	}
	stored := cloneDoctor(d)
	if stored.Schedule == nil {
		stored.Schedule = NewSchedule()
	}
	r.doctors[d.ID] = stored
	r.doctorOrder = append(r.doctorOrder, d.ID)
	return nil
}

func (r *MemoryRepository) ListPatients(_ context.Context) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Patient, 0, len(r.patientOrder))
	for _, id := range r.patientOrder {
		out = append(out, *clonePatient(r.patients[id]))
	}
	return out, nil
}

func (r *MemoryRepository) ListDoctors(_ context.Context) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Doctor, 0, len(r.doctorOrder))
	for _, id := range r.doctorOrder {
		out = append(out, *cloneDoctor(r.doctors[id]))
	}
	return out, nil
}

func (r *MemoryRepository) ListAppointments(_ context.Context) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Appointment, 0, len(r.appointmentOrder))
	for _, id := range r.appointmentOrder {
		out = append(out, *cloneAppointment(r.appointments[id]))
	}
	return out, nil
}

func (r *MemoryRepository) ListAppointmentsByPatient(_ context.Context, patientID string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[patientID]
	if !ok {
		return nil, fmt.Errorf("patient %q: %w", patientID, ErrPatientNotFound)
	}

	out := make([]Appointment, 0, len(p.AppointmentIDs))
	for _, id := range p.AppointmentIDs {
		if a, ok := r.appointments[id]; ok {
			out = append(out, *cloneAppointment(a))
		}
	}
	return out, nil
}

func (r *MemoryRepository) DoctorSchedule(_ context.Context, doctorID string) (Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[doctorID]
	if !ok {
		return nil, fmt.Errorf("doctor %q: %w", doctorID, ErrDoctorNotFound)
	}
	return d.Schedule.Clone(), nil
}

func (r *MemoryRepository) AddAvailability(_ context.Context, doctorID, date string, times []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.doctors[doctorID]
	if !ok {
		return fmt.Errorf("doctor %q: %w", doctorID, ErrDoctorNotFound)
	}
	d.Schedule.Add(date, times...)
	return nil
}

func (r *MemoryRepository) SlotAvailable(_ context.Context, doctorID, date, timeTok string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[doctorID]
	if !ok {
		return false, fmt.Errorf("doctor %q: %w", doctorID, ErrDoctorNotFound)
	}
	return d.Schedule.IsAvailable(date, timeTok), nil
}

func (r *MemoryRepository) CommitBooking(_ context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[appt.PatientID]
	if !ok {
		return fmt.Errorf("patient %q: %w", appt.PatientID, ErrPatientNotFound)
	}
	d, ok := r.doctors[appt.DoctorID]
	if !ok {
		return fmt.Errorf("doctor %q: %w", appt.DoctorID, ErrDoctorNotFound)
	}
	if _, ok := r.appointments[appt.ID]; ok {
		return fmt.Errorf("appointment %q: %w", appt.ID, ErrDuplicateID)
	}

	// Reserve first: it is the only step that can fail, so nothing needs
	// unwinding afterwards.
	if err := d.Schedule.Reserve(appt.Date, appt.Time); err != nil {
		return fmt.Errorf("doctor %q: %w", appt.DoctorID, err)
	}

	r.appointments[appt.ID] = cloneAppointment(appt)
	r.appointmentOrder = append(r.appointmentOrder, appt.ID)
	p.AppointmentIDs = append(p.AppointmentIDs, appt.ID)
	return nil
}

func (r *MemoryRepository) CancelScheduled(_ context.Context, id string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment %q: %w", id, ErrAppointmentNotFound)
	}
	if a.Status != StatusScheduled {
		return nil, fmt.Errorf("appointment %q is %s: %w", id, a.Status, ErrInvalidStatusTransition)
	}

	a.Status = StatusCancelled
	a.UpdatedAt = time.Now()
	if d, ok := r.doctors[a.DoctorID]; ok {
		d.Schedule.Release(a.Date, a.Time)
	}
	return cloneAppointment(a), nil
}

func (r *MemoryRepository) CompleteScheduled(_ context.Context, id string, bill Bill) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment %q: %w", id, ErrAppointmentNotFound)
	}
	if a.Status != StatusScheduled {
		return nil, fmt.Errorf("appointment %q is %s: %w", id, a.Status, ErrInvalidStatusTransition)
	}

	attached := bill
	attached.Items = append([]ChargeItem(nil), bill.Items...)
	a.Bill = &attached
	a.Status = StatusCompleted
	a.UpdatedAt = time.Now()
	return cloneAppointment(a), nil
}

func (r *MemoryRepository) IdentifierSeeds(_ context.Context) (IdentifierSeeds, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var seeds IdentifierSeeds
	for id := range r.patients {
		seeds.Patients = maxNumericSuffix(seeds.Patients, id)
	}
	for id := range r.doctors {
		seeds.Doctors = maxNumericSuffix(seeds.Doctors, id)
	}
	for id := range r.appointments {
		seeds.Appointments = maxNumericSuffix(seeds.Appointments, id)
	}
	return seeds, nil
}

func maxNumericSuffix(current int, id string) int {
	if len(id) < 2 {
		return current
	}
	n := 0
	for _, c := range id[1:] {
		if c < '0' || c > '9' {
			return current
		}
		n = n*10 + int(c-'0')
	}
	if n > current {
		return n
	}
	return current
}
