package schedule

import (
	"evsched/internal/clock"
	"evsched/internal/model"
)

// Overlapping returns, in start order, every event whose interval
// [Start, End()) intersects the half-open window [start, end). End is the
// wrapped clock end, so an event running past midnight ends early on its
// own start day. Overlap is not monotonic in the start key, so the whole
// tree is visited.
func (s *Store) Overlapping(start, end clock.Stamp) []model.Event {
	var out []model.Event
	for ev := range s.All() {
		// Disjoint iff the window ends before the event starts or begins
		// after it ends.
		if end.Compare(ev.Start) <= 0 || start.Compare(ev.End()) >= 0 {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// FreeSlots returns the gaps on day between the day boundaries and the
// events that start on it. Events on other days are skipped. A day without
// events yields no slots.
func (s *Store) FreeSlots(day string) []model.Slot {
	var (
		out     []model.Slot
		first   = true
		lastEnd int
	)

	for ev := range s.All() {
		if ev.Start.Day() != day {
			continue
		}

		start := ev.Start.Minute()
		if first && start != 0 {
			out = append(out, model.Slot{Day: day, Start: 0, End: start})
		}
		if !first && lastEnd < start {
			out = append(out, model.Slot{Day: day, Start: lastEnd, End: start})
		}

		// Wrapped clock end; an event past midnight ends before it starts.
		end := ev.End().Minute()
		if first || end > lastEnd {
			lastEnd = end
		}
		first = false
	}

	if !first && lastEnd != clock.MinutesPerDay {
		out = append(out, model.Slot{Day: day, Start: lastEnd, End: clock.MinutesPerDay})
	}
	return out
}
