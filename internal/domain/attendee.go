package domain

import "context"

// AttendStatus is a member's response to a meeting or social.
type AttendStatus string

const (
	AttendStatusAttending    AttendStatus = "attending"
	AttendStatusNotAttending AttendStatus = "not_attending"
	AttendStatusTentative    AttendStatus = "tentative"
	// AttendStatusUnknown is never stored; writing it removes the record.
	AttendStatusUnknown AttendStatus = "unknown"
)

// Valid reports whether s is a known status.
func (s AttendStatus) Valid() bool {
	switch s {
	case AttendStatusAttending, AttendStatusNotAttending, AttendStatusTentative, AttendStatusUnknown:
		return true
	}
	return false
}

// Attendee records a member's attendance of an event.
// swagger:model Attendee
type Attendee struct {
	EventID string       `json:"event_id"`
	UserID  string       `json:"user_id"`
	Status  AttendStatus `json:"attend_status"`
}

// AttendeeRepository defines storage for per-event attendance records.
type AttendeeRepository interface {
	// Upsert writes the status; AttendStatusUnknown deletes the record instead.
	Upsert(ctx context.Context, eventID, userID string, status AttendStatus) error
	ListByEventID(ctx context.Context, eventID string) ([]*Attendee, error)
	ListByUserID(ctx context.Context, userID string) ([]*Attendee, error)
}

// MergeAttendees overlays event-level records on series-level defaults.
// Defaults are re-keyed to eventID; a user with an event-level record keeps only that record.
func MergeAttendees(eventID string, defaults []*RecurringAttendee, overrides []*Attendee) []*Attendee {
	out := make([]*Attendee, 0, len(defaults)+len(overrides))
	seen := make(map[string]struct{}, len(overrides))
	for _, a := range overrides {
		seen[a.UserID] = struct{}{}
		out = append(out, a)
	}
	for _, d := range defaults {
		if _, ok := seen[d.UserID]; ok {
			continue
		}
		out = append(out, &Attendee{EventID: eventID, UserID: d.UserID, Status: d.Status})
	}
	return out
}
