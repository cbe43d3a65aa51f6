package clinic

import (
	"sync"
	"testing"
)

func TestIDGeneratorPrefixesAndBases(t *testing.T) {
	g := NewIDGenerator()

	if got := g.NextPatientID(); got != "P101" {
		t.Fatalf("first patient ID = %s, want P101", got)
	}
	if got := g.NextDoctorID(); got != "D201" {
		t.Fatalf("first doctor ID = %s, want D201", got)
	}
	if got := g.NextAppointmentID(); got != "A301" {
		t.Fatalf("first appointment ID = %s, want A301", got)
	}
	if got := g.NextPatientID(); got != "P102" {
		t.Fatalf("second patient ID = %s, want P102", got)
	}
}

func TestIDGeneratorUniqueness(t *testing.T) {
	g := NewIDGenerator()

	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := []string{g.NextPatientID(), g.NextDoctorID(), g.NextAppointmentID()}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				if seen[id] {
					t.Errorf("duplicate identifier %s", id)
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	if len(seen) != 150 {
		t.Fatalf("expected 150 unique identifiers, got %d", len(seen))
	}
}

func TestIDGeneratorAdvance(t *testing.T) {
	g := NewIDGenerator()

	g.Advance(KindPatient, 500)
	if got := g.NextPatientID(); got != "P501" {
		t.Fatalf("after advance, patient ID = %s, want P501", got)
	}

	// Advancing backwards is a no-op.
	g.Advance(KindPatient, 10)
	if got := g.NextPatientID(); got != "P502" {
		t.Fatalf("after backwards advance, patient ID = %s, want P502", got)
	}
}
