package clinic

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rrattigan/Belleview-Hospital/internal/lock"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryRepository(), lock.NewLocalDoctorLocker(), NewIDGenerator(), 3000.00, zerolog.Nop())
}

func registerTestPatient(t *testing.T, svc *Service, name string) *Patient {
	t.Helper()
	p, err := svc.RegisterPatient(context.Background(), RegisterPatientInput{Name: name, Age: 34, Gender: "female"})
	if err != nil {
		t.Fatalf("register patient: %v", err)
	}
	return p
}

func registerTestDoctor(t *testing.T, svc *Service, availability map[string][]string) *Doctor {
	t.Helper()
	d, err := svc.RegisterDoctor(context.Background(), RegisterDoctorInput{
		Name:         "Grey",
		Age:          52,
		Gender:       "female",
		Specialty:    "Cardiology",
		Availability: availability,
	})
	if err != nil {
		t.Fatalf("register doctor: %v", err)
	}
	return d
}

func TestBookCancelRebook(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := registerTestPatient(t, svc, "Paula")
	q := registerTestPatient(t, svc, "Quentin")
	d := registerTestDoctor(t, svc, map[string][]string{"2025-06-10": {"09:00"}})

	appt, err := svc.BookAppointment(ctx, p.ID, d.ID, "2025-06-10", "09:00")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if appt.Status != StatusScheduled {
		t.Fatalf("status = %s, want Scheduled", appt.Status)
	}

	schedule, err := svc.DoctorSchedule(ctx, d.ID)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if schedule.IsAvailable("2025-06-10", "09:00") {
		t.Fatal("slot should be reserved after booking")
	}

	// Second booking for the same slot must fail.
	if _, err := svc.BookAppointment(ctx, q.ID, d.ID, "2025-06-10", "09:00"); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("got %v, want ErrSlotUnavailable", err)
	}

	// Cancelling releases exactly the held slot.
	if _, err := svc.CancelAppointment(ctx, appt.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	schedule, _ = svc.DoctorSchedule(ctx, d.ID)
	if !schedule.IsAvailable("2025-06-10", "09:00") {
		t.Fatal("slot should be free again after cancellation")
	}

	// And the other patient can now take it.
	if _, err := svc.BookAppointment(ctx, q.ID, d.ID, "2025-06-10", "09:00"); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
}

func TestGenerateBillCompletesAppointment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := registerTestPatient(t, svc, "Paula")
	d := registerTestDoctor(t, svc, map[string][]string{"2025-06-10": {"09:00"}})

	appt, err := svc.BookAppointment(ctx, p.ID, d.ID, "2025-06-10", "09:00")
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	bill, err := svc.GenerateBill(ctx, appt.ID, []ChargeItem{{Service: "X-Ray", Cost: 1500.00}})
	if err != nil {
		t.Fatalf("bill: %v", err)
	}
	if bill.Total != 4500.00 {
		t.Fatalf("total = %.2f, want 4500.00", bill.Total)
	}
	if bill.ConsultationFee != 3000.00 {
		t.Fatalf("fee = %.2f, want 3000.00", bill.ConsultationFee)
	}
	if bill.Currency != "JMD" {
		t.Fatalf("currency = %q, want JMD", bill.Currency)
	}

	got, err := svc.GetAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %s, want Completed", got.Status)
	}
	if got.Bill == nil || got.Bill.Total != 4500.00 {
		t.Fatalf("attached bill = %+v", got.Bill)
	}

	// Completed is terminal: neither cancellation nor a second bill.
	if _, err := svc.CancelAppointment(ctx, appt.ID); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("cancel completed: got %v, want ErrInvalidStatusTransition", err)
	}
	if _, err := svc.GenerateBill(ctx, appt.ID, nil); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("rebill: got %v, want ErrInvalidStatusTransition", err)
	}
}

func TestCancelledIsTerminal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := registerTestPatient(t, svc, "Paula")
	d := registerTestDoctor(t, svc, map[string][]string{"2025-06-10": {"09:00"}})

	appt, err := svc.BookAppointment(ctx, p.ID, d.ID, "2025-06-10", "09:00")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := svc.CancelAppointment(ctx, appt.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.CancelAppointment(ctx, appt.ID); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("double cancel: got %v, want ErrInvalidStatusTransition", err)
	}
	if _, err := svc.GenerateBill(ctx, appt.ID, nil); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("bill cancelled: got %v, want ErrInvalidStatusTransition", err)
	}

	// A failed double cancel must not release the slot twice.
	schedule, _ := svc.DoctorSchedule(ctx, d.ID)
	if got := schedule["2025-06-10"]; len(got) != 1 {
		t.Fatalf("slot released more than once: %v", got)
	}
}

func TestBookingUnknownReferences(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := registerTestPatient(t, svc, "Paula")
	d := registerTestDoctor(t, svc, map[string][]string{"2025-06-10": {"09:00"}})

	if _, err := svc.BookAppointment(ctx, p.ID, "D999", "2025-06-10", "09:00"); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("got %v, want ErrDoctorNotFound", err)
	}
	if _, err := svc.BookAppointment(ctx, "P999", d.ID, "2025-06-10", "09:00"); !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("got %v, want ErrPatientNotFound", err)
	}

	// No appointment was created and no ledger identifier consumed.
	appts, err := svc.ListAppointments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(appts) != 0 {
		t.Fatalf("expected empty ledger, got %d appointments", len(appts))
	}

	appt, err := svc.BookAppointment(ctx, p.ID, d.ID, "2025-06-10", "09:00")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if appt.ID != "A301" {
		t.Fatalf("first successful booking got ID %s, want A301", appt.ID)
	}
}

func TestFailedBookingLeavesStateUntouched(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := registerTestPatient(t, svc, "Paula")
	d := registerTestDoctor(t, svc, map[string][]string{"2025-06-10": {"09:00"}})

	if _, err := svc.BookAppointment(ctx, p.ID, d.ID, "2025-06-10", "10:00"); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("got %v, want ErrSlotUnavailable", err)
	}

	schedule, _ := svc.DoctorSchedule(ctx, d.ID)
	if !schedule.IsAvailable("2025-06-10", "09:00") {
		t.Fatal("existing availability must survive a failed booking")
	}

	patient, _ := svc.GetPatient(ctx, p.ID)
	if len(patient.AppointmentIDs) != 0 {
		t.Fatalf("patient index grew on failed booking: %v", patient.AppointmentIDs)
	}
}

func TestNegativeChargeRejectedBeforeTransition(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := registerTestPatient(t, svc, "Paula")
	d := registerTestDoctor(t, svc, map[string][]string{"2025-06-10": {"09:00"}})

	appt, err := svc.BookAppointment(ctx, p.ID, d.ID, "2025-06-10", "09:00")
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	if _, err := svc.GenerateBill(ctx, appt.ID, []ChargeItem{{Service: "Refund", Cost: -10}}); !errors.Is(err, ErrNegativeCharge) {
		t.Fatalf("got %v, want ErrNegativeCharge", err)
	}

	got, _ := svc.GetAppointment(ctx, appt.ID)
	if got.Status != StatusScheduled || got.Bill != nil {
		t.Fatalf("rejected bill mutated the appointment: %+v", got)
	}
}

func TestPatientIndexKeepsHistory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := registerTestPatient(t, svc, "Paula")
	d := registerTestDoctor(t, svc, map[string][]string{"2025-06-10": {"09:00", "09:30"}})

	first, err := svc.BookAppointment(ctx, p.ID, d.ID, "2025-06-10", "09:00")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	second, err := svc.BookAppointment(ctx, p.ID, d.ID, "2025-06-10", "09:30")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := svc.CancelAppointment(ctx, first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	patient, err := svc.GetPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("get patient: %v", err)
	}
	if len(patient.AppointmentIDs) != 2 {
		t.Fatalf("index = %v, want both appointments kept", patient.AppointmentIDs)
	}
	if patient.AppointmentIDs[0] != first.ID || patient.AppointmentIDs[1] != second.ID {
		t.Fatalf("index order = %v, want [%s %s]", patient.AppointmentIDs, first.ID, second.ID)
	}

	appts, err := svc.PatientAppointments(ctx, p.ID)
	if err != nil {
		t.Fatalf("patient appointments: %v", err)
	}
	if appts[0].Status != StatusCancelled || appts[1].Status != StatusScheduled {
		t.Fatalf("statuses = %s/%s", appts[0].Status, appts[1].Status)
	}
}

func TestConcurrentBookingSingleWinner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	d := registerTestDoctor(t, svc, map[string][]string{"2025-06-10": {"09:00"}})

	const racers = 16
	patients := make([]*Patient, racers)
	for i := range patients {
		patients[i] = registerTestPatient(t, svc, "Racer")
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(p *Patient) {
			defer wg.Done()
			_, err := svc.BookAppointment(ctx, p.ID, d.ID, "2025-06-10", "09:00")
			switch {
			case err == nil:
				mu.Lock()
				winners++
				mu.Unlock()
			case errors.Is(err, ErrSlotUnavailable) || errors.Is(err, ErrDoctorBusy):
				// expected for the losers
			default:
				t.Errorf("unexpected booking error: %v", err)
			}
		}(patients[i])
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}

	appts, _ := svc.ListAppointments(ctx)
	if len(appts) != 1 {
		t.Fatalf("ledger has %d appointments, want 1", len(appts))
	}
}

func TestRegistrationIssuesSequentialIDs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first := registerTestPatient(t, svc, "One")
	second := registerTestPatient(t, svc, "Two")
	if first.ID == second.ID {
		t.Fatalf("duplicate patient ID %s", first.ID)
	}

	d := registerTestDoctor(t, svc, nil)
	if d.ID != "D201" {
		t.Fatalf("doctor ID = %s, want D201", d.ID)
	}

	got, err := svc.GetDoctor(ctx, d.ID)
	if err != nil {
		t.Fatalf("get doctor: %v", err)
	}
	if got.Specialty != "Cardiology" {
		t.Fatalf("specialty = %q", got.Specialty)
	}
}
