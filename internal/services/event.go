package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crewcall/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	attendeeRepo   domain.AttendeeRepository
	seriesRepo     domain.RecurringSeriesRepository
	sheetRepo      domain.SignupSheetRepository
	caps           domain.Capabilities
	gateway        domain.ConflictGateway
	txr            domain.Transactor
	homeTZ         *time.Location
	contextTimeout time.Duration
	now            func() time.Time
}

func NewEventService(eventRepo domain.EventRepository,
	attendeeRepo domain.AttendeeRepository,
	seriesRepo domain.RecurringSeriesRepository,
	sheetRepo domain.SignupSheetRepository,
	caps domain.Capabilities,
	gateway domain.ConflictGateway,
	txr domain.Transactor,
	homeTZ *time.Location,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		attendeeRepo:   attendeeRepo,
		seriesRepo:     seriesRepo,
		sheetRepo:      sheetRepo,
		caps:           caps,
		gateway:        gateway,
		txr:            txr,
		homeTZ:         homeTZ,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

// validateEvent checks the fields every stored event must satisfy.
func validateEvent(e *domain.Event) error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidInput, e.Type)
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if !e.StartDate.Before(e.EndDate) {
		return fmt.Errorf("%w: start_date must be before end_date", domain.ErrInvalidInput)
	}
	return nil
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event, creatorID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateEvent(event); err != nil {
		return err
	}
	ok, err := s.caps.CanCreate(ctx, event.Type, creatorID)
	if err != nil {
		return fmt.Errorf("check create permission: %w", err)
	}
	if !ok {
		return domain.ErrForbidden
	}

	now := s.now()
	event.CreatedBy = creatorID
	event.UpdatedBy = creatorID
	if event.Host == "" {
		event.Host = creatorID
	}
	event.CreatedAt = now
	event.UpdatedAt = now
	event.DeletedAt = nil
	event.DeletedBy = nil

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.EventObject, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	attendees, err := s.attendeeRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	if event.RecurringSeriesID != nil {
		defaults, err := s.seriesRepo.ListAttendees(ctx, *event.RecurringSeriesID)
		if err != nil {
			return nil, fmt.Errorf("list series attendees: %w", err)
		}
		attendees = domain.MergeAttendees(event.ID, defaults, attendees)
	}
	sheets, err := s.sheetRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list signup sheets: %w", err)
	}
	return &domain.EventObject{Event: event, Attendees: attendees, SignupSheets: sheets}, nil
}

func (s *eventService) ListEvents(ctx context.Context, year int, month time.Month) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", domain.ErrInvalidInput)
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, s.homeTZ)
	events, err := s.eventRepo.List(ctx, domain.EventFilter{StartFrom: from, StartTo: from.AddDate(0, 1, 0)})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// getManaged loads a live event and checks that actorID may manage it.
func (s *eventService) getManaged(ctx context.Context, eventID, actorID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	ok, err := s.caps.CanManage(ctx, event, actorID)
	if err != nil {
		return nil, fmt.Errorf("check manage permission: %w", err)
	}
	if !ok {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, eventID string, upd domain.EventUpdate, actorID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if upd.Type != nil && !upd.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidInput, *upd.Type)
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidInput)
	}

	current, err := s.getManaged(ctx, eventID, actorID)
	if err != nil {
		return nil, err
	}
	start, end := mergedDates(current, upd)
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start_date must be before end_date", domain.ErrInvalidInput)
	}

	if !upd.ChangesDates(current) || upd.ProjectAfter(current) == nil {
		updated, err := s.eventRepo.Update(ctx, eventID, upd, actorID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("update event: %w", err)
		}
		return updated, nil
	}

	var updated *domain.Event
	err = s.txr.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.updateWithClashCheck(ctx, eventID, upd, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// updateWithClashCheck holds the event's row lock across the external reservation round trip.
// The local write happens only after the reservation succeeds, and the commit call happens only
// after the local write, so a rejection or failure leaves the stored dates untouched.
func (s *eventService) updateWithClashCheck(ctx context.Context, eventID string, upd domain.EventUpdate, actorID string) (*domain.Event, error) {
	locked, err := s.eventRepo.GetByIDForUpdate(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}
	project := upd.ProjectAfter(locked)
	if project == nil || !upd.ChangesDates(locked) {
		return s.eventRepo.Update(ctx, eventID, upd, actorID)
	}

	projectID := *project
	start, end := mergedDates(locked, upd)
	res, err := s.gateway.CheckAndReserve(ctx, projectID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: reserve: %v", domain.ErrExternalUnavailable, err)
	}
	if !res.Changed {
		return nil, domain.ErrKitClash
	}

	updated, err := s.eventRepo.Update(ctx, eventID, upd, actorID)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if err := s.gateway.Commit(ctx, projectID, start, end); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", domain.ErrExternalUnavailable, err)
	}
	return updated, nil
}

func mergedDates(e *domain.Event, upd domain.EventUpdate) (time.Time, time.Time) {
	start, end := e.StartDate, e.EndDate
	if upd.StartDate != nil {
		start = *upd.StartDate
	}
	if upd.EndDate != nil {
		end = *upd.EndDate
	}
	return start, end
}

func (s *eventService) CancelEvent(ctx context.Context, eventID, actorID string) error {
	return s.setCancelled(ctx, eventID, true, actorID)
}

func (s *eventService) ReinstateEvent(ctx context.Context, eventID, actorID string) error {
	return s.setCancelled(ctx, eventID, false, actorID)
}

func (s *eventService) setCancelled(ctx context.Context, eventID string, cancelled bool, actorID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.getManaged(ctx, eventID, actorID); err != nil {
		return err
	}
	if err := s.eventRepo.SetCancelled(ctx, eventID, cancelled, actorID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("set cancelled: %w", err)
	}
	return nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID, actorID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.getManaged(ctx, eventID, actorID); err != nil {
		return err
	}
	if err := s.eventRepo.SoftDelete(ctx, eventID, actorID, s.now()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (s *eventService) GetAllEventsForUser(ctx context.Context, userID string) ([]*domain.EventObject, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list events for user: %w", err)
	}
	sheets, err := s.sheetRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list signup sheets for user: %w", err)
	}
	attendees, err := s.attendeeRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list attendance for user: %w", err)
	}

	objects := make([]*domain.EventObject, 0, len(events))
	byID := make(map[string]*domain.EventObject, len(events))
	for _, e := range events {
		obj := &domain.EventObject{Event: e, Attendees: []*domain.Attendee{}, SignupSheets: []*domain.SignupSheet{}}
		objects = append(objects, obj)
		byID[e.ID] = obj
	}
	for _, sheet := range sheets {
		if obj, ok := byID[sheet.EventID]; ok {
			obj.SignupSheets = append(obj.SignupSheets, sheet)
		}
	}
	for _, a := range attendees {
		if obj, ok := byID[a.EventID]; ok {
			obj.Attendees = append(obj.Attendees, a)
		}
	}

	defaults := make(map[string][]*domain.RecurringAttendee)
	for _, obj := range objects {
		seriesID := obj.Event.RecurringSeriesID
		if seriesID == nil {
			continue
		}
		own, ok := defaults[*seriesID]
		if !ok {
			list, err := s.seriesRepo.ListAttendees(ctx, *seriesID)
			if err != nil {
				return nil, fmt.Errorf("list series attendees: %w", err)
			}
			for _, d := range list {
				if d.UserID == userID {
					own = append(own, d)
				}
			}
			defaults[*seriesID] = own
		}
		obj.Attendees = domain.MergeAttendees(obj.Event.ID, own, obj.Attendees)
	}
	return objects, nil
}

func (s *eventService) SetAttendeeStatus(ctx context.Context, eventID, userID string, status domain.AttendStatus) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !status.Valid() {
		return fmt.Errorf("%w: unknown attend status %q", domain.ErrInvalidInput, status)
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if event.Type.UsesSignupSheets() {
		return fmt.Errorf("%w: %s events are crewed through sign-up sheets", domain.ErrInvalidInput, event.Type)
	}
	if err := s.attendeeRepo.Upsert(ctx, eventID, userID, status); err != nil {
		return fmt.Errorf("set attendee status: %w", err)
	}
	return nil
}
