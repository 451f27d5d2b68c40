// Package shell is the interactive menu in front of the schedule store. It
// owns all terminal I/O; the store itself never prints.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"evsched/internal/ics"
	appLog "evsched/internal/log"
	"evsched/internal/metrics"
	"evsched/internal/model"
	"evsched/internal/schedule"
)

const menu = `
Event Scheduling System Menu:
1. Add Event
2. Delete Event
3. Find Overlapping Events
4. Calculate Free Time Slots
5. Print Full Schedule
6. Import Calendar (ICS file or URL)
7. Export Calendar (ICS)
8. Show Stats
9. Exit
Enter your choice: `

// errQuit ends the loop without being reported.
var errQuit = errors.New("quit")

// Options configures a Shell. Zero values are usable.
type Options struct {
	Fetcher *ics.Fetcher
	Expand  ics.ExpandConfig
	// Metrics may be nil to disable recording.
	Metrics *metrics.Recorder
	// Now is used for ICS DTSTAMP values. Defaults to time.Now.
	Now func() time.Time
}

// Shell runs the menu loop against a store.
type Shell struct {
	store *schedule.Store
	out   io.Writer
	lines <-chan string
	// stop releases the reader goroutine once Run returns.
	stop  func()

	fetcher *ics.Fetcher
	expand  ics.ExpandConfig
	metrics *metrics.Recorder
	now     func() time.Time

	maxID int
}

// New creates a Shell reading commands from in and writing to out.
func New(store *schedule.Store, in io.Reader, out io.Writer, opts Options) *Shell {
	if opts.Fetcher == nil {
		opts.Fetcher = ics.NewFetcher(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	done := make(chan struct{})
	s := &Shell{
		store:   store,
		out:     out,
		lines:   readLines(in, done),
		stop:    sync.OnceFunc(func() { close(done) }),
		fetcher: opts.Fetcher,
		expand:  opts.Expand,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	for ev := range store.All() {
		s.maxID = max(s.maxID, ev.ID)
	}
	s.metrics.SetEvents(store.Len())
	return s
}

// readLines feeds input lines to a channel so the loop can also watch for
// cancellation. The channel is closed on EOF or once done is closed.
func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case <-done:
				return
			default:
			}
			select {
			case ch <- sc.Text():
			case <-done:
				return
			}
		}
		if err := sc.Err(); err != nil {
			appLog.Error("shell: input read failed", err)
		}
	}()
	return ch
}

// Run shows the menu until the user exits, input ends or ctx is canceled.
func (s *Shell) Run(ctx context.Context) error {
	defer s.stop()
	for {
		s.printf("%s", menu)

		line, err := s.readLine(ctx)
		if err != nil {
			return s.finish(err)
		}

		choice, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr != nil {
			s.printf("Invalid choice. Please try again.\n")
			continue
		}

		switch choice {
		case 1:
			err = s.addEvent(ctx)
		case 2:
			err = s.deleteEvent(ctx)
		case 3:
			err = s.findOverlapping(ctx)
		case 4:
			err = s.freeTimeSlots(ctx)
		case 5:
			s.printSchedule()
		case 6:
			err = s.importCalendar(ctx)
		case 7:
			err = s.exportCalendar()
		case 8:
			err = s.metrics.WriteSummary(s.out)
		case 9:
			err = errQuit
		default:
			s.printf("Invalid choice. Please try again.\n")
		}
		if err != nil {
			return s.finish(err)
		}
	}
}

func (s *Shell) finish(err error) error {
	switch {
	case errors.Is(err, errQuit), errors.Is(err, io.EOF):
		s.printf("Exiting...\n")
		return nil
	case errors.Is(err, context.Canceled):
		return nil
	}
	return err
}

func (s *Shell) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// ask prints label and returns the trimmed answer.
func (s *Shell) ask(ctx context.Context, label string) (string, error) {
	s.printf("%s", label)
	line, err := s.readLine(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// Insert adds ev to the store and reports a start collision to the user.
// It returns false if the event was rejected.
func (s *Shell) Insert(ev model.Event) bool {
	err := s.store.Insert(ev)
	if err != nil {
		if errors.Is(err, schedule.ErrDuplicateStart) {
			s.metrics.Observe(metrics.OpInsert, metrics.ResultRejected)
			holder, _ := s.store.Get(ev.Start)
			s.printf("Error: Event overlap detected! %s is already taken by event %d.\n", ev.Start, holder.ID)
		} else {
			s.metrics.Observe(metrics.OpInsert, metrics.ResultError)
			s.printf("Error: %v\n", err)
		}
		appLog.Debug("insert rejected", "id", ev.ID, "start", ev.Start.String(), "reason", err.Error())
		return false
	}

	s.maxID = max(s.maxID, ev.ID)
	s.metrics.Observe(metrics.OpInsert, metrics.ResultOK)
	s.metrics.SetEvents(s.store.Len())
	appLog.Debug("event inserted", "id", ev.ID, "start", ev.Start.String(), "duration", ev.Duration)
	return true
}

// Import loads a calendar and inserts every expanded occurrence. Events
// without an evsched ID get fresh ones after the largest ID in use.
func (s *Shell) Import(ctx context.Context, src ics.Source) (int, error) {
	res, err := s.fetcher.FetchOne(ctx, src)
	if err != nil {
		s.metrics.Observe(metrics.OpImport, metrics.ResultError)
		return 0, err
	}
	parsed, err := ics.ParseICS(src, res.Body)
	if err != nil {
		s.metrics.Observe(metrics.OpImport, metrics.ResultError)
		return 0, fmt.Errorf("ics: parse %s: %w", src.ID, err)
	}

	expanded := ics.ExpandOccurrences(parsed, s.expand)
	added := 0
	for _, occ := range expanded.Events {
		ev := occ.Event
		if !occ.HasID {
			ev.ID = s.maxID + 1
		}
		if s.Insert(ev) {
			added++
		}
	}

	s.metrics.Observe(metrics.OpImport, metrics.ResultOK)
	appLog.Info("calendar imported", "id", src.ID, "events", len(expanded.Events), "added", added)
	return added, nil
}
