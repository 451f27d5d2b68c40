package model

import (
	"fmt"
	"time"

	"evsched/internal/clock"
)

// Event is a single scheduled item. The store keys events by Start; ID is
// chosen by the caller and is not required to be unique.
type Event struct {
	ID   int
	Name string

	Start clock.Stamp
	// Duration in minutes. Negative values are accepted but make little sense.
	Duration int
}

// End returns the start moved forward by Duration using the non-day-rolling
// clock arithmetic.
func (e Event) End() clock.Stamp {
	return e.Start.AddMinutes(e.Duration)
}

// Span returns the absolute interval [start, start+duration).
func (e Event) Span() (time.Time, time.Time) {
	start := e.Start.Time()
	return start, start.Add(time.Duration(e.Duration) * time.Minute)
}

func (e Event) String() string {
	return fmt.Sprintf("Event ID: %d, Name: %s, Start: %s, Duration: %d minutes",
		e.ID, e.Name, e.Start, e.Duration)
}

// Slot is a free interval within one day. Start and End are minutes from
// midnight; End may be 1440 for "24:00".
type Slot struct {
	Day   string
	Start int
	End   int
}

// Label renders the slot as "HH:MM - HH:MM".
func (s Slot) Label() string {
	return clock.FormatMinute(s.Start) + " - " + clock.FormatMinute(s.End)
}
