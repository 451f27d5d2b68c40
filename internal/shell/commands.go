package shell

import (
	"context"
	"strconv"
	"time"

	"evsched/internal/clock"
	"evsched/internal/ics"
	appLog "evsched/internal/log"
	"evsched/internal/metrics"
	"evsched/internal/model"
	"evsched/internal/recur"
)

func (s *Shell) addEvent(ctx context.Context) error {
	idText, err := s.ask(ctx, "\nEnter Event ID: ")
	if err != nil {
		return err
	}
	id, convErr := strconv.Atoi(idText)
	if convErr != nil {
		s.printf("Invalid event ID %q.\n", idText)
		return nil
	}

	name, err := s.ask(ctx, "Enter Event Name: ")
	if err != nil {
		return err
	}

	startText, err := s.ask(ctx, "Enter Start Date and Time (YYYY-MM-DD HH:MM): ")
	if err != nil {
		return err
	}
	start, parseErr := clock.Parse(startText)
	if parseErr != nil {
		s.printf("Invalid start time %q, expected YYYY-MM-DD HH:MM.\n", startText)
		return nil
	}

	durText, err := s.ask(ctx, "Enter Duration (in minutes): ")
	if err != nil {
		return err
	}
	duration, convErr := strconv.Atoi(durText)
	if convErr != nil || duration < 0 {
		s.printf("Invalid duration %q.\n", durText)
		return nil
	}

	rule, err := s.ask(ctx, "Repeat rule (RRULE or cron, blank for none): ")
	if err != nil {
		return err
	}

	ev := model.Event{ID: id, Name: name, Start: start, Duration: duration}
	if rule == "" {
		if s.Insert(ev) {
			s.printf("Event added.\n")
		}
		return nil
	}

	s.addRepeating(ev, rule)
	return nil
}

// addRepeating inserts one event per occurrence of rule, numbering IDs
// upward from ev.ID.
func (s *Shell) addRepeating(ev model.Event, rule string) {
	from := ev.Start.Time()
	horizon := s.expand.Horizon
	if horizon <= 0 {
		horizon = 30 * 24 * time.Hour
	}

	res, err := recur.Expand(rule, from, recur.Window{
		From:  from,
		Until: from.Add(horizon),
		Max:   s.expand.MaxOccurrencesPerEvent,
	})
	if err != nil {
		s.printf("Invalid repeat rule: %v\n", err)
		return
	}
	if len(res.Starts) == 0 {
		s.printf("Repeat rule produced no occurrences.\n")
		return
	}

	added := 0
	for i, t := range res.Starts {
		occ := ev
		occ.ID = ev.ID + i
		occ.Start = clock.FromTime(t)
		if s.Insert(occ) {
			added++
		}
	}
	s.printf("%d of %d occurrences added.\n", added, len(res.Starts))
	if res.Truncated {
		s.printf("Repeat rule was cut off after %d occurrences.\n", len(res.Starts))
	}
}

func (s *Shell) deleteEvent(ctx context.Context) error {
	idText, err := s.ask(ctx, "\nEnter Event ID to delete: ")
	if err != nil {
		return err
	}
	id, convErr := strconv.Atoi(idText)
	if convErr != nil {
		s.printf("Invalid event ID %q.\n", idText)
		return nil
	}

	ev, ok := s.store.Delete(id)
	if !ok {
		s.metrics.Observe(metrics.OpDelete, metrics.ResultMiss)
		s.printf("No event with ID %d.\n", id)
		return nil
	}
	s.metrics.Observe(metrics.OpDelete, metrics.ResultOK)
	s.metrics.SetEvents(s.store.Len())
	appLog.Debug("event deleted", "id", ev.ID, "start", ev.Start.String())
	s.printf("Deleted %s\n", ev)
	return nil
}

func (s *Shell) findOverlapping(ctx context.Context) error {
	start, ok, err := s.askStamp(ctx, "\nEnter Start Time (YYYY-MM-DD HH:MM): ")
	if err != nil || !ok {
		return err
	}
	end, ok, err := s.askStamp(ctx, "Enter End Time (YYYY-MM-DD HH:MM): ")
	if err != nil || !ok {
		return err
	}

	found := s.store.Overlapping(start, end)
	s.metrics.Observe(metrics.OpOverlap, metrics.ResultOK)
	if len(found) == 0 {
		s.printf("\nNo overlapping events found.\n")
		return nil
	}
	for _, ev := range found {
		s.printf("\nOverlap Found: Event ID: %d, Name: %s \n", ev.ID, ev.Name)
	}
	return nil
}

func (s *Shell) freeTimeSlots(ctx context.Context) error {
	dayText, err := s.ask(ctx, "\nEnter Date (YYYY-MM-DD): ")
	if err != nil {
		return err
	}
	day, parseErr := clock.ParseDay(dayText)
	if parseErr != nil {
		s.printf("Invalid date %q, expected YYYY-MM-DD.\n", dayText)
		return nil
	}

	s.metrics.Observe(metrics.OpFree, metrics.ResultOK)
	if len(s.store.Day(day)) == 0 {
		s.printf("\nNo events on %s.\n", day)
		return nil
	}
	for _, slot := range s.store.FreeSlots(day) {
		s.printf("\nFree Time Slot: %s\n", slot.Label())
	}
	return nil
}

func (s *Shell) printSchedule() {
	s.metrics.Observe(metrics.OpList, metrics.ResultOK)
	s.printf("\nFull Event Schedule:\n")
	for ev := range s.store.All() {
		s.printf("\n%s\n", ev)
	}
}

func (s *Shell) importCalendar(ctx context.Context) error {
	path, err := s.ask(ctx, "\nEnter ICS file path or URL: ")
	if err != nil {
		return err
	}
	if path == "" {
		s.printf("Nothing to import.\n")
		return nil
	}

	added, impErr := s.Import(ctx, ics.Source{ID: path, Path: path})
	if impErr != nil {
		appLog.Error("import failed", impErr, "path", path)
		s.printf("Error: import failed: %v\n", impErr)
		return nil
	}
	s.printf("Imported %d events.\n", added)
	return nil
}

func (s *Shell) exportCalendar() error {
	if err := ics.Encode(s.out, s.store.Events(), s.now()); err != nil {
		s.metrics.Observe(metrics.OpExport, metrics.ResultError)
		return err
	}
	s.metrics.Observe(metrics.OpExport, metrics.ResultOK)
	return nil
}

// askStamp prompts for a fixed-width date and time. ok is false when the
// answer was rejected and reported.
func (s *Shell) askStamp(ctx context.Context, label string) (clock.Stamp, bool, error) {
	text, err := s.ask(ctx, label)
	if err != nil {
		return clock.Stamp{}, false, err
	}
	st, parseErr := clock.Parse(text)
	if parseErr != nil {
		s.printf("Invalid time %q, expected YYYY-MM-DD HH:MM.\n", text)
		return clock.Stamp{}, false, nil
	}
	return st, true, nil
}
