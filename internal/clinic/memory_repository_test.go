package clinic

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedRepo(t *testing.T) *MemoryRepository {
	t.Helper()
	repo := NewMemoryRepository()
	ctx := context.Background()

	schedule := NewSchedule()
	schedule.Add("2025-06-10", "09:00", "09:30")

	if err := repo.InsertPatient(ctx, &Patient{ID: "P101", PersonDetails: PersonDetails{Name: "Paula", Age: 30, Gender: "female"}}); err != nil {
		t.Fatalf("insert patient: %v", err)
	}
	if err := repo.InsertDoctor(ctx, &Doctor{ID: "D201", PersonDetails: PersonDetails{Name: "Grey", Age: 50, Gender: "female"}, Specialty: "Cardiology", Schedule: schedule}); err != nil {
		t.Fatalf("insert doctor: %v", err)
	}
	return repo
}

func scheduledAppointment(id string) *Appointment {
	now := time.Now()
	return &Appointment{
		ID:        id,
		PatientID: "P101",
		DoctorID:  "D201",
		Date:      "2025-06-10",
		Time:      "09:00",
		Status:    StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCommitBookingAtomicity(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	if err := repo.CommitBooking(ctx, scheduledAppointment("A301")); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Slot reserved, ledger entry present, patient index appended.
	avail, _ := repo.SlotAvailable(ctx, "D201", "2025-06-10", "09:00")
	if avail {
		t.Fatal("slot still available after booking")
	}
	if _, err := repo.GetAppointmentByID(ctx, "A301"); err != nil {
		t.Fatalf("ledger lookup: %v", err)
	}
	p, _ := repo.GetPatientByID(ctx, "P101")
	if len(p.AppointmentIDs) != 1 || p.AppointmentIDs[0] != "A301" {
		t.Fatalf("patient index = %v", p.AppointmentIDs)
	}

	// Same slot again: nothing must change.
	err := repo.CommitBooking(ctx, scheduledAppointment("A302"))
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("got %v, want ErrSlotUnavailable", err)
	}
	if _, err := repo.GetAppointmentByID(ctx, "A302"); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatal("failed booking must not reach the ledger")
	}
	p, _ = repo.GetPatientByID(ctx, "P101")
	if len(p.AppointmentIDs) != 1 {
		t.Fatalf("patient index grew on failed booking: %v", p.AppointmentIDs)
	}
}

func TestCancelScheduledCAS(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	if err := repo.CommitBooking(ctx, scheduledAppointment("A301")); err != nil {
		t.Fatalf("commit: %v", err)
	}

	a, err := repo.CancelScheduled(ctx, "A301")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if a.Status != StatusCancelled {
		t.Fatalf("status = %s", a.Status)
	}
	avail, _ := repo.SlotAvailable(ctx, "D201", "2025-06-10", "09:00")
	if !avail {
		t.Fatal("slot not released")
	}

	if _, err := repo.CancelScheduled(ctx, "A301"); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("got %v, want ErrInvalidStatusTransition", err)
	}
	if _, err := repo.CancelScheduled(ctx, "A999"); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("got %v, want ErrAppointmentNotFound", err)
	}
}

func TestCompleteScheduledAttachesBillOnce(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	if err := repo.CommitBooking(ctx, scheduledAppointment("A301")); err != nil {
		t.Fatalf("commit: %v", err)
	}

	bill := Bill{
		AppointmentID:   "A301",
		ConsultationFee: 3000,
		Items:           []ChargeItem{{Service: "X-Ray", Cost: 1500}},
		Total:           4500,
		Currency:        "JMD",
		IssuedAt:        time.Now(),
	}

	a, err := repo.CompleteScheduled(ctx, "A301", bill)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if a.Status != StatusCompleted || a.Bill == nil {
		t.Fatalf("appointment = %+v", a)
	}

	if _, err := repo.CompleteScheduled(ctx, "A301", bill); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("second bill: got %v, want ErrInvalidStatusTransition", err)
	}
}

func TestReturnedValuesAreCopies(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	d, _ := repo.GetDoctorByID(ctx, "D201")
	if err := d.Schedule.Reserve("2025-06-10", "09:00"); err != nil {
		t.Fatalf("reserve on snapshot: %v", err)
	}

	// Mutating the snapshot must not touch stored state.
	avail, _ := repo.SlotAvailable(ctx, "D201", "2025-06-10", "09:00")
	if !avail {
		t.Fatal("stored schedule mutated through a snapshot")
	}

	p, _ := repo.GetPatientByID(ctx, "P101")
	p.AppointmentIDs = append(p.AppointmentIDs, "A999")
	stored, _ := repo.GetPatientByID(ctx, "P101")
	if len(stored.AppointmentIDs) != 0 {
		t.Fatalf("stored patient index mutated: %v", stored.AppointmentIDs)
	}
}

func TestDuplicateInsertRejected(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	err := repo.InsertPatient(ctx, &Patient{ID: "P101"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("got %v, want ErrDuplicateID", err)
	}
}

func TestIdentifierSeeds(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	if err := repo.CommitBooking(ctx, scheduledAppointment("A305")); err != nil {
		t.Fatalf("commit: %v", err)
	}

	seeds, err := repo.IdentifierSeeds(ctx)
	if err != nil {
		t.Fatalf("seeds: %v", err)
	}
	if seeds.Patients != 101 || seeds.Doctors != 201 || seeds.Appointments != 305 {
		t.Fatalf("seeds = %+v", seeds)
	}
}
