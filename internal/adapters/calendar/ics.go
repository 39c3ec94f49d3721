package calendar

import (
	"fmt"
	"strings"
	"time"

	"crewcall/internal/domain"

	ical "github.com/arran4/golang-ical"
)

const productID = "-//crewcall//member calendar//EN"

type icsFeed struct {
	name   string
	domain string
	now    func() time.Time
}

// NewICSFeed returns a CalendarFeed. uidDomain qualifies event UIDs so that calendar clients
// keep them distinct from other feeds.
func NewICSFeed(name, uidDomain string) domain.CalendarFeed {
	return &icsFeed{name: name, domain: uidDomain, now: time.Now}
}

// Render writes one VEVENT per event. Dates are emitted in UTC.
func (f *icsFeed) Render(userID string, events []*domain.EventObject) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(f.name)

	stamp := f.now().UTC()
	for _, obj := range events {
		e := obj.Event
		ve := cal.AddEvent(fmt.Sprintf("%s@%s", e.ID, f.domain))
		ve.SetDtStampTime(stamp)
		ve.SetCreatedTime(e.CreatedAt.UTC())
		ve.SetModifiedAt(e.UpdatedAt.UTC())
		ve.SetStartAt(e.StartDate.UTC())
		ve.SetEndAt(e.EndDate.UTC())
		ve.SetSummary(e.Name)
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if desc := describe(userID, obj); desc != "" {
			ve.SetDescription(desc)
		}
		switch {
		case e.IsCancelled:
			ve.SetStatus(ical.ObjectStatusCancelled)
		case e.IsTentative:
			ve.SetStatus(ical.ObjectStatusTentative)
		default:
			ve.SetStatus(ical.ObjectStatusConfirmed)
		}
		if e.IsPrivate {
			ve.SetProperty(ical.ComponentPropertyClass, "PRIVATE")
		}
	}
	return cal.Serialize()
}

// describe lists the member's own crew slots ahead of the event description.
func describe(userID string, obj *domain.EventObject) string {
	var lines []string
	for _, sheet := range obj.SignupSheets {
		for _, c := range sheet.Crews {
			if !c.HeldBy(userID) {
				continue
			}
			role := c.PositionName
			if role == "" {
				role = "crew"
			}
			lines = append(lines, fmt.Sprintf("%s: %s (arrive %s)", sheet.Title, role, sheet.ArrivalTime.UTC().Format("15:04 MST")))
		}
	}
	if obj.Event.Description != "" {
		lines = append(lines, obj.Event.Description)
	}
	return strings.Join(lines, "\n")
}
