package ics

import (
	"fmt"
	"io"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"evsched/internal/model"
)

const productID = "-//evsched//schedule export//EN"

// uidNamespace seeds the name-based UIDs of exported events so that the
// same event always exports with the same UID.
var uidNamespace = uuid.MustParse("8d3c6a52-1f0e-4b7a-9c2d-5e4f3a2b1c0d")

// EventUID returns the stable UID used when exporting ev.
func EventUID(ev model.Event) string {
	name := fmt.Sprintf("%d/%s", ev.ID, ev.Start)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String()
}

// Encode writes events as a VCALENDAR. Stamps carry no timezone and are
// written as UTC. dtstamp is used for every DTSTAMP.
func Encode(w io.Writer, events []model.Event, dtstamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		start, end := ev.Span()

		ve := cal.AddEvent(EventUID(ev))
		ve.SetDtStampTime(dtstamp)
		ve.SetStartAt(start)
		ve.SetEndAt(end)
		ve.SetSummary(ev.Name)
		ve.SetProperty(propLocalID, strconv.Itoa(ev.ID))
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}
