package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"crewcall/internal/domain"
)

type vacancyService struct {
	vacancyRepo    domain.VacancyRepository
	eventRepo      domain.EventRepository
	homeTZ         *time.Location
	contextTimeout time.Duration
	now            func() time.Time
}

func NewVacancyService(vacancyRepo domain.VacancyRepository,
	eventRepo domain.EventRepository,
	homeTZ *time.Location,
	timeout time.Duration,
) domain.VacancyService {
	return &vacancyService{
		vacancyRepo:    vacancyRepo,
		eventRepo:      eventRepo,
		homeTZ:         homeTZ,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *vacancyService) ListVacantEvents(ctx context.Context, positionID *string, year int, month time.Month, includeAttendeeEvents bool) (*domain.VacancyResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	q := domain.VacancyQuery{
		PositionID:            positionID,
		StartFrom:             now,
		Now:                   now,
		IncludeAttendeeEvents: includeAttendeeEvents,
	}
	if month != 0 {
		if month < time.January || month > time.December {
			return nil, fmt.Errorf("%w: month must be between 1 and 12", domain.ErrInvalidInput)
		}
		q.StartFrom = time.Date(year, month, 1, 0, 0, 0, 0, s.homeTZ)
		q.StartTo = q.StartFrom.AddDate(0, 1, 0)
	}

	sheets, err := s.vacancyRepo.ListVacantSheets(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list vacant sheets: %w", err)
	}

	sheetsByEvent := make(map[string][]*domain.SignupSheet)
	eventIDs := make([]string, 0)
	count := 0
	for _, sheet := range sheets {
		if _, ok := sheetsByEvent[sheet.EventID]; !ok {
			eventIDs = append(eventIDs, sheet.EventID)
		}
		sheetsByEvent[sheet.EventID] = append(sheetsByEvent[sheet.EventID], sheet)
	}

	events, err := s.eventRepo.ListByIDs(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("list vacant events: %w", err)
	}
	result := &domain.VacancyResult{Events: make([]*domain.EventObject, 0, len(events))}
	listed := make(map[string]bool, len(events))
	for _, e := range events {
		listed[e.ID] = true
		evSheets := sheetsByEvent[e.ID]
		for _, sheet := range evSheets {
			count += len(sheet.Crews)
		}
		result.Events = append(result.Events, &domain.EventObject{
			Event:        e,
			Attendees:    []*domain.Attendee{},
			SignupSheets: evSheets,
		})
	}

	if includeAttendeeEvents {
		others, err := s.vacancyRepo.ListAttendeeEvents(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("list attendee events: %w", err)
		}
		for _, e := range others {
			// An event that changed type away from show can still carry vacant sheets.
			if listed[e.ID] {
				continue
			}
			result.Events = append(result.Events, &domain.EventObject{
				Event:        e,
				Attendees:    []*domain.Attendee{},
				SignupSheets: []*domain.SignupSheet{},
			})
		}
		sort.SliceStable(result.Events, func(i, j int) bool {
			return result.Events[i].Event.StartDate.Before(result.Events[j].Event.StartDate)
		})
	}

	result.VacantSlotCount = count
	return result, nil
}
