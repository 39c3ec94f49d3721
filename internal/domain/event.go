package domain

import (
	"context"
	"time"
)

// EventType is the kind of calendar event.
type EventType string

const (
	EventTypeShow    EventType = "show"
	EventTypeMeeting EventType = "meeting"
	EventTypeSocial  EventType = "social"
	EventTypeOther   EventType = "other"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeShow, EventTypeMeeting, EventTypeSocial, EventTypeOther:
		return true
	}
	return false
}

// UsesSignupSheets reports whether events of this type are crewed through sign-up sheets
// rather than tracked by attendance.
func (t EventType) UsesSignupSheets() bool {
	return t == EventTypeShow
}

// Event is a scheduled show, meeting or social.
// swagger:model Event
type Event struct {
	ID                string     `json:"event_id"`
	Type              EventType  `json:"event_type"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Location          string     `json:"location"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           time.Time  `json:"end_date"`
	IsPrivate         bool       `json:"is_private"`
	IsTentative       bool       `json:"is_tentative"`
	IsCancelled       bool       `json:"is_cancelled"`
	Host              string     `json:"host"`
	ExternalProjectID *string    `json:"external_project_id"`
	RecurringSeriesID *string    `json:"recurring_series_id"`
	CreatedBy         string     `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedBy         string     `json:"updated_by"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedBy         *string    `json:"deleted_by,omitempty"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
}

// EventUpdate carries the fields of a partial event update. Nil fields are left unchanged.
type EventUpdate struct {
	Type              *EventType
	Name              *string
	Description       *string
	Location          *string
	StartDate         *time.Time
	EndDate           *time.Time
	IsPrivate         *bool
	IsTentative       *bool
	Host              *string
	ExternalProjectID *string
}

// ChangesDates reports whether applying u to e would move the event's start or end.
func (u EventUpdate) ChangesDates(e *Event) bool {
	if u.StartDate != nil && !u.StartDate.Equal(e.StartDate) {
		return true
	}
	return u.EndDate != nil && !u.EndDate.Equal(e.EndDate)
}

// ProjectAfter returns the external project link e carries once u is applied, or nil when unlinked.
func (u EventUpdate) ProjectAfter(e *Event) *string {
	if u.ExternalProjectID == nil {
		return e.ExternalProjectID
	}
	if *u.ExternalProjectID == "" {
		return nil
	}
	return u.ExternalProjectID
}

// EventObject is the event aggregate: the event with its attendees and sign-up sheets.
// swagger:model EventObject
type EventObject struct {
	Event        *Event         `json:"event"`
	Attendees    []*Attendee    `json:"attendees"`
	SignupSheets []*SignupSheet `json:"signup_sheets"`
}

// EventFilter restricts an event listing. Zero values mean no bound.
type EventFilter struct {
	StartFrom time.Time
	StartTo   time.Time
}

// EventRepository defines storage for events. All reads exclude soft-deleted rows.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// GetByIDForUpdate reads the event and holds a row lock until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filter EventFilter) ([]*Event, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Event, error)
	ListBySeriesID(ctx context.Context, seriesID string) ([]*Event, error)
	// ListForUser returns events the user attends or holds at least one crew slot on.
	ListForUser(ctx context.Context, userID string) ([]*Event, error)
	Update(ctx context.Context, id string, upd EventUpdate, actorID string) (*Event, error)
	SetCancelled(ctx context.Context, id string, cancelled bool, actorID string) error
	SoftDelete(ctx context.Context, id, actorID string, at time.Time) error
}

// EventService is the event store.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event, creatorID string) error
	GetEvent(ctx context.Context, eventID string) (*EventObject, error)
	ListEvents(ctx context.Context, year int, month time.Month) ([]*Event, error)
	UpdateEvent(ctx context.Context, eventID string, upd EventUpdate, actorID string) (*Event, error)
	CancelEvent(ctx context.Context, eventID, actorID string) error
	ReinstateEvent(ctx context.Context, eventID, actorID string) error
	DeleteEvent(ctx context.Context, eventID, actorID string) error
	GetAllEventsForUser(ctx context.Context, userID string) ([]*EventObject, error)
	SetAttendeeStatus(ctx context.Context, eventID, userID string, status AttendStatus) error
}

// Transactor runs fn inside a single storage transaction. Repositories called with the
// context passed to fn participate in that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
