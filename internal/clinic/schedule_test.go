package clinic

import (
	"errors"
	"reflect"
	"testing"
)

func TestScheduleReserveAndRelease(t *testing.T) {
	s := NewSchedule()
	s.Add("2025-06-10", "09:00", "09:30")

	if !s.IsAvailable("2025-06-10", "09:00") {
		t.Fatal("expected 09:00 to be available")
	}

	if err := s.Reserve("2025-06-10", "09:00"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if s.IsAvailable("2025-06-10", "09:00") {
		t.Fatal("expected 09:00 to be reserved")
	}
	if !s.IsAvailable("2025-06-10", "09:30") {
		t.Fatal("expected 09:30 to remain available")
	}

	s.Release("2025-06-10", "09:00")
	if !s.IsAvailable("2025-06-10", "09:00") {
		t.Fatal("expected 09:00 to be available after release")
	}
}

func TestScheduleReserveUnavailable(t *testing.T) {
	s := NewSchedule()
	s.Add("2025-06-10", "09:00")

	cases := []struct {
		name string
		date string
		time string
	}{
		{"unknown date", "2025-06-11", "09:00"},
		{"unknown time", "2025-06-10", "10:00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Reserve(tc.date, tc.time)
			if !errors.Is(err, ErrSlotUnavailable) {
				t.Fatalf("got %v, want ErrSlotUnavailable", err)
			}
		})
	}
}

func TestScheduleEmptyDateRemoved(t *testing.T) {
	s := NewSchedule()
	s.Add("2025-06-10", "09:00")

	if err := s.Reserve("2025-06-10", "09:00"); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if _, ok := s["2025-06-10"]; ok {
		t.Fatal("expected date entry to be removed once empty")
	}
	if len(s.Dates()) != 0 {
		t.Fatalf("expected no dates, got %v", s.Dates())
	}
}

func TestScheduleReleaseIdempotent(t *testing.T) {
	s := NewSchedule()
	s.Release("2025-06-10", "09:00")
	s.Release("2025-06-10", "09:00")

	if got := s["2025-06-10"]; len(got) != 1 {
		t.Fatalf("expected single 09:00 entry, got %v", got)
	}
}

func TestScheduleAddIgnoresDuplicates(t *testing.T) {
	s := NewSchedule()
	s.Add("2025-06-10", "09:00", "09:00", "09:30")

	if got := s.TimesFor("2025-06-10"); !reflect.DeepEqual(got, []string{"09:00", "09:30"}) {
		t.Fatalf("got %v", got)
	}
}

func TestScheduleDatesSorted(t *testing.T) {
	s := NewSchedule()
	s.Add("2025-06-12", "09:00")
	s.Add("2025-06-10", "09:00")
	s.Add("2025-06-11", "09:00")

	want := []string{"2025-06-10", "2025-06-11", "2025-06-12"}
	if got := s.Dates(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestScheduleCloneIsIndependent(t *testing.T) {
	s := NewSchedule()
	s.Add("2025-06-10", "09:00")

	clone := s.Clone()
	if err := clone.Reserve("2025-06-10", "09:00"); err != nil {
		t.Fatalf("reserve on clone: %v", err)
	}

	if !s.IsAvailable("2025-06-10", "09:00") {
		t.Fatal("reserving on clone must not affect the original")
	}
}
