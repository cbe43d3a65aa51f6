package clinic

import (
	"fmt"
	"sort"
)

// Schedule is a doctor's availability calendar: date-token -> free
// time-tokens. A time appears under a date if and only if that slot is
// currently open for booking; reserving removes it, cancellation puts it
// back. Tokens are opaque here, format validation belongs to the caller.
//
// Times keep insertion order and set semantics: no duplicates, and a date
// whose last time is reserved is dropped entirely.
type Schedule map[string][]string

func NewSchedule() Schedule {
	return make(Schedule)
}

// IsAvailable reports whether time is a member of the set under date.
func (s Schedule) IsAvailable(date, timeTok string) bool {
	for _, t := range s[date] {
		if t == timeTok {
			return true
		}
	}
	return false
}

// Reserve removes time from the set under date. The date entry is removed
// when its last time goes.
func (s Schedule) Reserve(date, timeTok string) error {
	times := s[date]
	for i, t := range times {
		if t != timeTok {
			continue
		}
		times = append(times[:i], times[i+1:]...)
		if len(times) == 0 {
			delete(s, date)
		} else {
			s[date] = times
		}
		return nil
	}
	return fmt.Errorf("no open slot on %s at %s: %w", date, timeTok, ErrSlotUnavailable)
}

// Release adds time back under date, creating the date entry if needed.
// A set union: releasing an already-free slot is a no-op, so double release
// is safe.
func (s Schedule) Release(date, timeTok string) {
	if s.IsAvailable(date, timeTok) {
		return
	}
	s[date] = append(s[date], timeTok)
}

// Add records availability for a date, ignoring duplicates.
func (s Schedule) Add(date string, times ...string) {
	for _, t := range times {
		s.Release(date, t)
	}
}

// Dates returns the dates with at least one free slot, sorted
// lexicographically (chronological for ISO-style tokens).
func (s Schedule) Dates() []string {
	dates := make([]string, 0, len(s))
	for d := range s {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// TimesFor returns the free times under date, sorted for display.
func (s Schedule) TimesFor(date string) []string {
	times := append([]string(nil), s[date]...)
	sort.Strings(times)
	return times
}

// Clone returns an independent copy for snapshots.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	for d, times := range s {
		out[d] = append([]string(nil), times...)
	}
	return out
}
