package ics

import (
	"errors"
	"time"

	"evsched/internal/clock"
	appLog "evsched/internal/log"
	"evsched/internal/model"
	"evsched/internal/recur"
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// Horizon is how far past its first occurrence a recurring event is
	// expanded. Zero means 30 days.
	Horizon time.Duration

	// MaxOccurrencesPerEvent is a safety cap to avoid extremely large
	// expansions. Zero means recur.DefaultMax.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded events. IDs of events without an
// X-EVSCHED-ID are left at zero for the caller to assign.
type ExpandResult struct {
	Events []Occurrence
	// TruncatedEvents records UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedEvents []string
}

// Occurrence is one concrete event produced by an import.
type Occurrence struct {
	UID   string
	Event model.Event
	// HasID is set when the calendar carried the scheduler's own ID.
	HasID bool
}

// ExpandOccurrences turns parsed VEVENTs into concrete events. It handles
// single events, RRULE recurrences with EXDATE, RECURRENCE-ID overrides and
// all-day events (00:00 for 1440 minutes). Wall-clock times are kept as
// written; no timezone conversion happens.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) ExpandResult {
	var result ExpandResult

	if cfg.Horizon <= 0 {
		cfg.Horizon = 30 * 24 * time.Hour
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = recur.DefaultMax
	}

	// Group base events and overrides by UID, keeping input order.
	var order []string
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)

	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	for _, uid := range order {
		ov := overridesByUID[uid]
		for _, ev := range baseByUID[uid] {
			if ev.RawRRule == "" {
				result.Events = append(result.Events, expandSingle(ev, ov))
				continue
			}

			occ, truncated := expandRecurring(ev, ov, cfg)
			result.Events = append(result.Events, occ...)
			if truncated {
				result.TruncatedEvents = append(result.TruncatedEvents, uid)
				appLog.Error("expand: truncated occurrences for UID due to cap",
					errors.New("max occurrences reached"),
					"uid", uid,
					"cap", cfg.MaxOccurrencesPerEvent,
				)
			}
		}
	}

	return result
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent) Occurrence {
	if o, ok := findOverrideForStart(overrides, ev.Start); ok {
		return makeOccurrence(o, o.Start, o.End)
	}
	return makeOccurrence(ev, ev.Start, ev.End)
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	res, err := recur.RRule(ev.RawRRule, ev.Start, ev.ExDates, recur.Window{
		From:  ev.Start,
		Until: ev.Start.Add(cfg.Horizon),
		Max:   cfg.MaxOccurrencesPerEvent,
	})
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0, len(res.Starts))
	for _, occStart := range res.Starts {
		if o, ok := findOverrideForStart(overrides, occStart); ok {
			out = append(out, makeOccurrence(o, o.Start, o.End))
			continue
		}
		out = append(out, makeOccurrence(ev, occStart, occStart.Add(dur)))
	}
	return out, res.Truncated
}

// findOverrideForStart finds an override whose RECURRENCE-ID equals start.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.In(start.Location()).Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func makeOccurrence(ev ParsedEvent, start, end time.Time) Occurrence {
	e := model.Event{
		Name:     ev.Summary,
		Start:    clock.FromTime(start),
		Duration: int(end.Sub(start) / time.Minute),
	}
	if ev.AllDay {
		e.Start = clock.FromTime(time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()))
		e.Duration = clock.MinutesPerDay
	}
	if e.Duration < 0 {
		e.Duration = 0
	}

	occ := Occurrence{UID: ev.UID, Event: e}
	if id, ok := ev.LocalID.Get(); ok {
		occ.Event.ID = id
		occ.HasID = true
	}
	return occ
}
