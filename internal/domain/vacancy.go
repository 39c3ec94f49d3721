package domain

import (
	"context"
	"time"
)

// VacancyQuery selects events with open crew slots.
type VacancyQuery struct {
	// PositionID restricts matching slots to one role; nil matches any role.
	PositionID *string
	// StartFrom and StartTo bound the event start date; a zero StartTo means no upper bound.
	StartFrom time.Time
	StartTo   time.Time
	// Now is the instant against which sheet unlock dates are compared.
	Now time.Time
	// IncludeAttendeeEvents also returns meetings, socials and other events that have no crew sheets.
	IncludeAttendeeEvents bool
}

// VacancyResult holds matching events, each carrying only its matching sheets and slots.
// swagger:model VacancyResult
type VacancyResult struct {
	Events          []*EventObject `json:"events"`
	VacantSlotCount int            `json:"vacantSlotCount"`
}

// VacancyRepository runs the read-only vacancy query.
type VacancyRepository interface {
	// ListVacantSheets returns sheets with only their vacant slots attached, for events that are
	// neither deleted nor cancelled and start within the query window.
	ListVacantSheets(ctx context.Context, q VacancyQuery) ([]*SignupSheet, error)
	// ListAttendeeEvents returns non-crewed events in the query window that are neither deleted nor cancelled.
	ListAttendeeEvents(ctx context.Context, q VacancyQuery) ([]*Event, error)
}

// VacancyService finds events that still need crew.
type VacancyService interface {
	// ListVacantEvents applies the optional role filter and month window (month 0 means from now onward).
	ListVacantEvents(ctx context.Context, positionID *string, year int, month time.Month, includeAttendeeEvents bool) (*VacancyResult, error)
}
