package clock

import (
	"errors"
	"fmt"
	"time"
)

// Layouts for the fixed-width values accepted by the scheduler.
const (
	StampLayout = "2006-01-02 15:04"
	DayLayout   = "2006-01-02"

	MinutesPerDay = 24 * 60
)

// ErrFormat is returned when a value is not in the fixed-width layout.
var ErrFormat = errors.New("clock: invalid format")

// Stamp is a wall-clock date and minute of day, printed as
// "YYYY-MM-DD HH:MM". There is no timezone attached.
//
// The zero value is not a valid stamp; use Parse or FromTime.
type Stamp struct {
	day    string // YYYY-MM-DD
	minute int    // 0..1439
}

// Parse validates s against StampLayout.
func Parse(s string) (Stamp, error) {
	if len(s) != len(StampLayout) {
		return Stamp{}, fmt.Errorf("%w: %q (want %s)", ErrFormat, s, "YYYY-MM-DD HH:MM")
	}
	t, err := time.Parse(StampLayout, s)
	if err != nil {
		return Stamp{}, fmt.Errorf("%w: %q: %v", ErrFormat, s, err)
	}
	return FromTime(t), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// constants.
func MustParse(s string) Stamp {
	st, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return st
}

// ParseDay validates a "YYYY-MM-DD" string and returns it unchanged.
func ParseDay(s string) (string, error) {
	if len(s) != len(DayLayout) {
		return "", fmt.Errorf("%w: %q (want %s)", ErrFormat, s, "YYYY-MM-DD")
	}
	if _, err := time.Parse(DayLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrFormat, s, err)
	}
	return s, nil
}

// FromTime takes the wall-clock fields of t, truncated to the minute.
// The location of t is ignored.
func FromTime(t time.Time) Stamp {
	return Stamp{
		day:    t.Format(DayLayout),
		minute: t.Hour()*60 + t.Minute(),
	}
}

// Day returns the "YYYY-MM-DD" prefix.
func (s Stamp) Day() string { return s.day }

// Minute returns the minute of day in [0, 1440).
func (s Stamp) Minute() int { return s.minute }

// Clock returns the "HH:MM" suffix.
func (s Stamp) Clock() string { return FormatMinute(s.minute) }

func (s Stamp) String() string { return s.day + " " + s.Clock() }

// IsZero reports whether s was never set.
func (s Stamp) IsZero() bool { return s.day == "" }

// Compare orders stamps the same way their string forms sort.
func (s Stamp) Compare(o Stamp) int {
	switch {
	case s.day < o.day:
		return -1
	case s.day > o.day:
		return 1
	case s.minute < o.minute:
		return -1
	case s.minute > o.minute:
		return 1
	}
	return 0
}

// AddMinutes moves the clock part forward by n minutes. The date never
// changes: an overflow past midnight wraps the hour modulo 24, so
// "2024-05-01 23:50" + 20 is "2024-05-01 00:10".
func (s Stamp) AddMinutes(n int) Stamp {
	m := (s.minute + n) % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return Stamp{day: s.day, minute: m}
}

// Time returns s as a UTC time.Time, useful for absolute arithmetic.
func (s Stamp) Time() time.Time {
	d, err := time.Parse(DayLayout, s.day)
	if err != nil {
		return time.Time{}
	}
	return d.Add(time.Duration(s.minute) * time.Minute)
}

// FormatMinute renders a minute of day as "HH:MM". 1440 renders as "24:00".
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
