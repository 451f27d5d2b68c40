// Package recur expands repeat rules into concrete start times. Two rule
// syntaxes are understood: iCalendar RRULE values ("FREQ=DAILY;COUNT=5")
// and standard five-field cron specs ("0 9 * * 1-5").
package recur

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/teambition/rrule-go"
)

// DefaultMax caps expansion when Window.Max is zero.
const DefaultMax = 500

// Window bounds an expansion. Occurrences are taken from [From, Until].
type Window struct {
	From  time.Time
	Until time.Time
	// Max is a safety cap for open-ended rules.
	Max int
}

// Result holds expanded start times in ascending order.
type Result struct {
	Starts []time.Time
	// Truncated is set when Max cut the expansion short.
	Truncated bool
}

func (w Window) check() (Window, error) {
	if w.Until.Before(w.From) {
		return w, errors.New("recur: window ends before it starts")
	}
	if w.Max <= 0 {
		w.Max = DefaultMax
	}
	return w, nil
}

// RRule expands an RRULE value anchored at dtstart. exdates are removed
// from the result.
func RRule(rule string, dtstart time.Time, exdates []time.Time, w Window) (Result, error) {
	w, err := w.check()
	if err != nil {
		return Result{}, err
	}

	r, err := rrule.StrToRRule(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(rule)), "RRULE:"))
	if err != nil {
		return Result{}, fmt.Errorf("recur: parse rrule %q: %w", rule, err)
	}
	r.DTStart(dtstart)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exdates {
		set.ExDate(ex.In(dtstart.Location()))
	}

	starts := set.Between(w.From.In(dtstart.Location()), w.Until.In(dtstart.Location()), true)
	return limit(starts, w.Max), nil
}

// Cron expands a standard cron spec. Times are produced in from's location.
func Cron(spec string, w Window) (Result, error) {
	w, err := w.check()
	if err != nil {
		return Result{}, err
	}

	sched, err := cron.ParseStandard(strings.TrimSpace(spec))
	if err != nil {
		return Result{}, fmt.Errorf("recur: parse cron %q: %w", spec, err)
	}

	var res Result
	// Next is strictly after its argument; step back so From itself counts.
	t := sched.Next(w.From.Add(-time.Second))
	for !t.IsZero() && !t.After(w.Until) {
		if len(res.Starts) == w.Max {
			res.Truncated = true
			break
		}
		res.Starts = append(res.Starts, t)
		t = sched.Next(t)
	}
	return res, nil
}

// Expand dispatches on the rule syntax: anything containing "FREQ=" is an
// RRULE, everything else is treated as a cron spec.
func Expand(rule string, dtstart time.Time, w Window) (Result, error) {
	if strings.Contains(strings.ToUpper(rule), "FREQ=") {
		return RRule(rule, dtstart, nil, w)
	}
	return Cron(rule, w)
}

func limit(starts []time.Time, n int) Result {
	if len(starts) > n {
		return Result{Starts: starts[:n], Truncated: true}
	}
	return Result{Starts: starts}
}
