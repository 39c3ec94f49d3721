package domain

import (
	"context"
	"time"
)

// RecurringAttendee is a series-wide attendance default applied to every member event
// that has no record of its own for the user.
// swagger:model RecurringAttendee
type RecurringAttendee struct {
	SeriesID string       `json:"recurring_series_id"`
	UserID   string       `json:"user_id"`
	Status   AttendStatus `json:"attend_status"`
}

// RecurringSeriesRepository defines storage for series identities and their attendance defaults.
type RecurringSeriesRepository interface {
	Create(ctx context.Context) (seriesID string, err error)
	Exists(ctx context.Context, seriesID string) (bool, error)
	UpsertAttendee(ctx context.Context, seriesID, userID string, status AttendStatus) error
	ListAttendees(ctx context.Context, seriesID string) ([]*RecurringAttendee, error)
}

// RecurringEventService generates and maintains recurring series.
type RecurringEventService interface {
	// CreateRecurringEvent creates one event per target date plus one for the template's own dates,
	// all in a new series, and returns the template occurrence.
	CreateRecurringEvent(ctx context.Context, template *Event, creatorID string, dates []time.Time) (*Event, error)
	DeleteRecurringSeries(ctx context.Context, seriesID, actorID string) error
	SetRecurringAttendeeStatus(ctx context.Context, seriesID, userID string, status AttendStatus) error
}
