package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crewcall/internal/domain"
)

type recurringEventService struct {
	eventRepo      domain.EventRepository
	seriesRepo     domain.RecurringSeriesRepository
	caps           domain.Capabilities
	txr            domain.Transactor
	homeTZ         *time.Location
	contextTimeout time.Duration
	now            func() time.Time
}

func NewRecurringEventService(eventRepo domain.EventRepository,
	seriesRepo domain.RecurringSeriesRepository,
	caps domain.Capabilities,
	txr domain.Transactor,
	homeTZ *time.Location,
	timeout time.Duration,
) domain.RecurringEventService {
	return &recurringEventService{
		eventRepo:      eventRepo,
		seriesRepo:     seriesRepo,
		caps:           caps,
		txr:            txr,
		homeTZ:         homeTZ,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *recurringEventService) CreateRecurringEvent(ctx context.Context, template *domain.Event, creatorID string, dates []time.Time) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateEvent(template); err != nil {
		return nil, err
	}
	ok, err := s.caps.CanCreate(ctx, template.Type, creatorID)
	if err != nil {
		return nil, fmt.Errorf("check create permission: %w", err)
	}
	if !ok {
		return nil, domain.ErrForbidden
	}

	var created *domain.Event
	err = s.txr.WithinTx(ctx, func(ctx context.Context) error {
		seriesID, err := s.seriesRepo.Create(ctx)
		if err != nil {
			return fmt.Errorf("create series: %w", err)
		}
		now := s.now()
		for _, date := range dates {
			start, end := shiftToDate(template.StartDate, template.EndDate, date, s.homeTZ)
			if err := s.eventRepo.Create(ctx, s.occurrence(template, seriesID, creatorID, start, end, now)); err != nil {
				return fmt.Errorf("create occurrence on %s: %w", date.In(s.homeTZ).Format(time.DateOnly), err)
			}
		}
		created = s.occurrence(template, seriesID, creatorID, template.StartDate, template.EndDate, now)
		if err := s.eventRepo.Create(ctx, created); err != nil {
			return fmt.Errorf("create template occurrence: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *recurringEventService) occurrence(template *domain.Event, seriesID, creatorID string, start, end, now time.Time) *domain.Event {
	e := *template
	e.ID = ""
	e.StartDate = start
	e.EndDate = end
	e.RecurringSeriesID = &seriesID
	e.CreatedBy = creatorID
	e.UpdatedBy = creatorID
	if e.Host == "" {
		e.Host = creatorID
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	e.DeletedAt = nil
	e.DeletedBy = nil
	return &e
}

// shiftToDate moves the start/end pair so that start falls on target's calendar date in loc,
// keeping both wall-clock times in loc. The day delta is measured between civil dates, so
// a DST change between the template and the target does not shift the local hour.
func shiftToDate(start, end, target time.Time, loc *time.Location) (time.Time, time.Time) {
	ls, le := start.In(loc), end.In(loc)
	ty, tm, td := target.In(loc).Date()
	sy, sm, sd := ls.Date()
	days := int(time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).Sub(time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)).Hours() / 24)

	newStart := time.Date(sy, sm, sd+days, ls.Hour(), ls.Minute(), ls.Second(), ls.Nanosecond(), loc)
	ey, em, ed := le.Date()
	newEnd := time.Date(ey, em, ed+days, le.Hour(), le.Minute(), le.Second(), le.Nanosecond(), loc)
	return newStart, newEnd
}

func (s *recurringEventService) DeleteRecurringSeries(ctx context.Context, seriesID, actorID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	exists, err := s.seriesRepo.Exists(ctx, seriesID)
	if err != nil {
		return fmt.Errorf("get series: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	return s.txr.WithinTx(ctx, func(ctx context.Context) error {
		events, err := s.eventRepo.ListBySeriesID(ctx, seriesID)
		if err != nil {
			return fmt.Errorf("list series events: %w", err)
		}
		for _, e := range events {
			ok, err := s.caps.CanManage(ctx, e, actorID)
			if err != nil {
				return fmt.Errorf("check manage permission: %w", err)
			}
			if !ok {
				return domain.ErrForbidden
			}
		}
		now := s.now()
		for _, e := range events {
			if err := s.eventRepo.SoftDelete(ctx, e.ID, actorID, now); err != nil {
				return fmt.Errorf("delete event %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

func (s *recurringEventService) SetRecurringAttendeeStatus(ctx context.Context, seriesID, userID string, status domain.AttendStatus) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !status.Valid() {
		return fmt.Errorf("%w: unknown attend status %q", domain.ErrInvalidInput, status)
	}
	events, err := s.eventRepo.ListBySeriesID(ctx, seriesID)
	if err != nil {
		return fmt.Errorf("list series events: %w", err)
	}
	if len(events) == 0 {
		return domain.ErrNotFound
	}
	if events[0].Type.UsesSignupSheets() {
		return fmt.Errorf("%w: %s events are crewed through sign-up sheets", domain.ErrInvalidInput, events[0].Type)
	}
	if err := s.seriesRepo.UpsertAttendee(ctx, seriesID, userID, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("set series attendee status: %w", err)
	}
	return nil
}
