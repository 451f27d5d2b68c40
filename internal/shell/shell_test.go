package shell

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evsched/internal/clock"
	"evsched/internal/ics"
	"evsched/internal/metrics"
	"evsched/internal/model"
	"evsched/internal/schedule"
)

func script(lines ...string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func run(t *testing.T, store *schedule.Store, opts Options, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	sh := New(store, script(lines...), &out, opts)
	require.NoError(t, sh.Run(context.Background()))
	return out.String()
}

func TestShell_AddListFreeOverlapDelete(t *testing.T) {
	store := schedule.New()
	out := run(t, store, Options{},
		"1", "1", "Standup", "2024-05-01 09:00", "60", "",
		"1", "2", "Review", "2024-05-01 11:00", "30", "",
		"5",
		"4", "2024-05-01",
		"3", "2024-05-01 09:30", "2024-05-01 11:10",
		"2", "1",
		"5",
		"9",
	)

	assert.Contains(t, out, "Full Event Schedule:")
	assert.Contains(t, out, "Event ID: 1, Name: Standup, Start: 2024-05-01 09:00, Duration: 60 minutes")
	assert.Contains(t, out, "Event ID: 2, Name: Review, Start: 2024-05-01 11:00, Duration: 30 minutes")

	assert.Contains(t, out, "Free Time Slot: 00:00 - 09:00")
	assert.Contains(t, out, "Free Time Slot: 10:00 - 11:00")
	assert.Contains(t, out, "Free Time Slot: 11:30 - 24:00")

	assert.Contains(t, out, "Overlap Found: Event ID: 1, Name: Standup")
	assert.Contains(t, out, "Overlap Found: Event ID: 2, Name: Review")

	assert.Contains(t, out, "Deleted Event ID: 1")
	assert.True(t, strings.HasSuffix(out, "Exiting...\n"))

	require.Equal(t, 1, store.Len())
	assert.Equal(t, 2, store.Events()[0].ID)
}

func TestShell_DuplicateStartReported(t *testing.T) {
	store := schedule.New()
	out := run(t, store, Options{},
		"1", "1", "A", "2024-05-01 09:00", "30", "",
		"1", "2", "B", "2024-05-01 09:00", "45", "",
		"9",
	)
	assert.Contains(t, out, "Error: Event overlap detected! 2024-05-01 09:00 is already taken by event 1.")
	assert.Equal(t, 1, store.Len())
}

func TestShell_InvalidInput(t *testing.T) {
	store := schedule.New()
	out := run(t, store, Options{},
		"x",
		"42",
		"1", "abc",
		"1", "1", "A", "2024-05-01 9:00",
		"1", "1", "A", "2024-05-01 09:00", "-5",
		"3", "tomorrow",
		"4", "01/05/2024",
		"2", "one",
		"2", "7",
		"3", "2024-05-01 00:00", "2024-05-02 00:00",
		"4", "2024-05-01",
		"9",
	)

	assert.Equal(t, 2, strings.Count(out, "Invalid choice. Please try again."))
	assert.Contains(t, out, `Invalid event ID "abc".`)
	assert.Contains(t, out, `Invalid start time "2024-05-01 9:00"`)
	assert.Contains(t, out, `Invalid duration "-5".`)
	assert.Contains(t, out, `Invalid time "tomorrow"`)
	assert.Contains(t, out, `Invalid date "01/05/2024"`)
	assert.Contains(t, out, `Invalid event ID "one".`)
	assert.Contains(t, out, "No event with ID 7.")
	assert.Contains(t, out, "No overlapping events found.")
	assert.Contains(t, out, "No events on 2024-05-01.")
	assert.Zero(t, store.Len())
}

func TestShell_LateEventSlotsAndOverlap(t *testing.T) {
	store := schedule.New()
	require.NoError(t, store.Insert(model.Event{ID: 1, Name: "Late", Start: clock.MustParse("2024-05-01 23:30"), Duration: 60}))

	out := run(t, store, Options{},
		"4", "2024-05-01",
		"3", "2024-05-02 00:00", "2024-05-02 00:10",
		"9",
	)
	assert.Contains(t, out, "Free Time Slot: 00:00 - 23:30")
	assert.Contains(t, out, "Free Time Slot: 00:30 - 24:00")
	assert.Contains(t, out, "No overlapping events found.")
}

func TestShell_RepeatRules(t *testing.T) {
	store := schedule.New()
	out := run(t, store, Options{Expand: ics.ExpandConfig{Horizon: 7 * 24 * time.Hour}},
		"1", "10", "Gym", "2024-05-01 07:00", "45", "FREQ=DAILY;COUNT=3",
		"1", "20", "Sync", "2024-05-06 10:00", "15", "0 10 * * 1,3",
		"1", "30", "Bad", "2024-05-01 07:00", "45", "whenever",
		"9",
	)

	// 2024-05-06 is a Monday; the 7 day window covers Mon, Wed, Mon.
	assert.Equal(t, 2, strings.Count(out, "3 of 3 occurrences added."))
	assert.Contains(t, out, "Invalid repeat rule")

	var got []string
	for _, ev := range store.Events() {
		got = append(got, ev.String())
	}
	assert.Equal(t, []string{
		"Event ID: 10, Name: Gym, Start: 2024-05-01 07:00, Duration: 45 minutes",
		"Event ID: 11, Name: Gym, Start: 2024-05-02 07:00, Duration: 45 minutes",
		"Event ID: 12, Name: Gym, Start: 2024-05-03 07:00, Duration: 45 minutes",
		"Event ID: 20, Name: Sync, Start: 2024-05-06 10:00, Duration: 15 minutes",
		"Event ID: 21, Name: Sync, Start: 2024-05-08 10:00, Duration: 15 minutes",
		"Event ID: 22, Name: Sync, Start: 2024-05-13 10:00, Duration: 15 minutes",
	}, got)
}

func TestShell_ImportExport(t *testing.T) {
	src := schedule.New()
	require.NoError(t, src.Insert(model.Event{ID: 3, Name: "Planning", Start: clock.MustParse("2024-05-01 09:00"), Duration: 60}))
	require.NoError(t, src.Insert(model.Event{ID: 8, Name: "Retro", Start: clock.MustParse("2024-05-03 15:00"), Duration: 45}))

	fixed := func() time.Time { return time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC) }
	exported := run(t, src, Options{Now: fixed}, "7", "9")
	assert.Contains(t, exported, "BEGIN:VCALENDAR")
	assert.Contains(t, exported, ics.EventUID(src.Events()[0]))

	start := strings.Index(exported, "BEGIN:VCALENDAR")
	end := strings.Index(exported, "END:VCALENDAR") + len("END:VCALENDAR")
	path := filepath.Join(t.TempDir(), "export.ics")
	require.NoError(t, os.WriteFile(path, []byte(exported[start:end]+"\r\n"), 0o600))

	dst := schedule.New()
	require.NoError(t, dst.Insert(model.Event{ID: 1, Name: "Existing", Start: clock.MustParse("2024-05-01 09:00"), Duration: 30}))
	out := run(t, dst, Options{}, "6", path, "6", "", "6", path+".missing", "9")

	// 09:00 on May 1st is already taken, so only the retro lands.
	assert.Contains(t, out, "Error: Event overlap detected! 2024-05-01 09:00 is already taken by event 1.")
	assert.Contains(t, out, "Imported 1 events.")
	assert.Contains(t, out, "Nothing to import.")
	assert.Contains(t, out, "Error: import failed")

	require.Equal(t, 2, dst.Len())
	got, ok := dst.Get(clock.MustParse("2024-05-03 15:00"))
	require.True(t, ok)
	assert.Equal(t, model.Event{ID: 8, Name: "Retro", Start: clock.MustParse("2024-05-03 15:00"), Duration: 45}, got)
}

func TestShell_ImportAssignsIDs(t *testing.T) {
	body := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:a@test\r\nDTSTAMP:20240401T000000Z\r\nDTSTART:20240501T090000Z\r\nDTEND:20240501T093000Z\r\nSUMMARY:A\r\nEND:VEVENT\r\n" +
		"BEGIN:VEVENT\r\nUID:b@test\r\nDTSTAMP:20240401T000000Z\r\nDTSTART:20240501T100000Z\r\nDTEND:20240501T103000Z\r\nSUMMARY:B\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	path := filepath.Join(t.TempDir(), "cal.ics")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	store := schedule.New()
	require.NoError(t, store.Insert(model.Event{ID: 41, Name: "Existing", Start: clock.MustParse("2024-04-30 09:00"), Duration: 30}))

	sh := New(store, strings.NewReader(""), io.Discard, Options{})
	added, err := sh.Import(context.Background(), ics.Source{ID: "cal", Path: path})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	var gotIDs []int
	for _, ev := range store.Events() {
		gotIDs = append(gotIDs, ev.ID)
	}
	assert.Equal(t, []int{41, 42, 43}, gotIDs)
}

func TestShell_Stats(t *testing.T) {
	rec := metrics.New()
	store := schedule.New()
	out := run(t, store, Options{Metrics: rec},
		"1", "1", "A", "2024-05-01 09:00", "30", "",
		"1", "2", "B", "2024-05-01 09:00", "30", "",
		"2", "5",
		"8",
		"9",
	)

	assert.Contains(t, out, `evsched_operations_total{op="insert",result="ok"} 1`)
	assert.Contains(t, out, `evsched_operations_total{op="insert",result="rejected"} 1`)
	assert.Contains(t, out, `evsched_operations_total{op="delete",result="miss"} 1`)
	assert.Contains(t, out, "evsched_events 1")
}

func TestShell_EOFExits(t *testing.T) {
	out := run(t, schedule.New(), Options{}, "1", "1", "Half")
	assert.True(t, strings.HasSuffix(out, "Exiting...\n"))
}

func TestShell_CanceledContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sh := New(schedule.New(), pr, io.Discard, Options{})
	assert.NoError(t, sh.Run(ctx))
}

func TestShell_ReaderStopsAfterRun(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sh := New(schedule.New(), pr, io.Discard, Options{})
	require.NoError(t, sh.Run(ctx))

	// The reader picks up the late line, sees the shell is gone and exits.
	_, err := pw.Write([]byte("5\n"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-sh.lines:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
