package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"crewcall/internal/domain"
)

type signupSheetService struct {
	eventRepo      domain.EventRepository
	sheetRepo      domain.SignupSheetRepository
	caps           domain.Capabilities
	txr            domain.Transactor
	contextTimeout time.Duration
}

func NewSignupSheetService(eventRepo domain.EventRepository,
	sheetRepo domain.SignupSheetRepository,
	caps domain.Capabilities,
	txr domain.Transactor,
	timeout time.Duration,
) domain.SignupSheetService {
	return &signupSheetService{
		eventRepo:      eventRepo,
		sheetRepo:      sheetRepo,
		caps:           caps,
		txr:            txr,
		contextTimeout: timeout,
	}
}

func validateSheetInput(in domain.SignupSheetInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if !in.StartTime.Before(in.EndTime) {
		return fmt.Errorf("%w: start_time must be before end_time", domain.ErrInvalidInput)
	}
	if in.ArrivalTime.After(in.StartTime) {
		return fmt.Errorf("%w: arrival_time must not be after start_time", domain.ErrInvalidInput)
	}
	for i, c := range in.Crews {
		if c.UserID != nil && c.CustomCrewMemberName != nil {
			return fmt.Errorf("%w: crew %d has both a member and a custom name", domain.ErrInvalidInput, i)
		}
	}
	return nil
}

// orderedCrews sorts slots by their requested ordering, keeping payload order for ties,
// and renumbers them 0..n-1.
func orderedCrews(in []domain.CrewSlotInput) []domain.CrewSlotInput {
	out := make([]domain.CrewSlotInput, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ordering < out[j].Ordering })
	for i := range out {
		out[i].Ordering = i
	}
	return out
}

func crewFromInput(sheetID string, in domain.CrewSlotInput) *domain.CrewSlot {
	return &domain.CrewSlot{
		ID:                   in.ID,
		SignupID:             sheetID,
		PositionID:           in.PositionID,
		Locked:               in.Locked,
		UserID:               in.UserID,
		CustomCrewMemberName: in.CustomCrewMemberName,
		Ordering:             in.Ordering,
	}
}

// authorize checks that actorID may manage sheet, which belongs to a live event.
func (s *signupSheetService) authorize(ctx context.Context, eventID string, sheet *domain.SignupSheet, actorID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	ok, err := s.caps.CanManageSignUpSheet(ctx, event, sheet, actorID)
	if err != nil {
		return nil, fmt.Errorf("check sheet permission: %w", err)
	}
	if !ok {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

func (s *signupSheetService) loadSheet(ctx context.Context, sheetID string) (*domain.SignupSheet, error) {
	sheet, err := s.sheetRepo.GetSheet(ctx, sheetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get signup sheet: %w", err)
	}
	return sheet, nil
}

func (s *signupSheetService) CreateSignUpSheet(ctx context.Context, eventID string, in domain.SignupSheetInput, actorID string) (*domain.SignupSheet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateSheetInput(in); err != nil {
		return nil, err
	}
	sheet := &domain.SignupSheet{
		EventID:     eventID,
		Title:       in.Title,
		Description: in.Description,
		ArrivalTime: in.ArrivalTime,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		UnlockDate:  in.UnlockDate,
		Crews:       []*domain.CrewSlot{},
	}
	event, err := s.authorize(ctx, eventID, sheet, actorID)
	if err != nil {
		return nil, err
	}
	if !event.Type.UsesSignupSheets() {
		return nil, fmt.Errorf("%w: %s events track attendance, not crew", domain.ErrInvalidInput, event.Type)
	}

	err = s.txr.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.sheetRepo.CreateSheet(ctx, sheet); err != nil {
			return fmt.Errorf("create signup sheet: %w", err)
		}
		for _, c := range orderedCrews(in.Crews) {
			c.ID = ""
			crew := crewFromInput(sheet.ID, c)
			if err := s.sheetRepo.CreateCrew(ctx, crew); err != nil {
				return fmt.Errorf("create crew: %w", err)
			}
			sheet.Crews = append(sheet.Crews, crew)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sheet, nil
}

func (s *signupSheetService) EditSignUpSheet(ctx context.Context, sheetID string, in domain.SignupSheetInput, actorID string) (*domain.SignupSheet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateSheetInput(in); err != nil {
		return nil, err
	}
	sheet, err := s.loadSheet(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, sheet.EventID, sheet, actorID); err != nil {
		return nil, err
	}

	crews := orderedCrews(in.Crews)
	keep := make([]string, 0, len(crews))
	for _, c := range crews {
		if c.ID == "" {
			continue
		}
		if sheet.Crew(c.ID) == nil {
			return nil, fmt.Errorf("%w: crew %s does not belong to sheet", domain.ErrInvalidInput, c.ID)
		}
		keep = append(keep, c.ID)
	}

	sheet.Title = in.Title
	sheet.Description = in.Description
	sheet.ArrivalTime = in.ArrivalTime
	sheet.StartTime = in.StartTime
	sheet.EndTime = in.EndTime
	sheet.UnlockDate = in.UnlockDate

	var edited *domain.SignupSheet
	err = s.txr.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if err = s.sheetRepo.UpdateSheet(ctx, sheet); err != nil {
			return fmt.Errorf("update signup sheet: %w", err)
		}
		if err = s.sheetRepo.DeleteCrewsExcept(ctx, sheetID, keep); err != nil {
			return fmt.Errorf("delete removed crews: %w", err)
		}
		for _, c := range crews {
			crew := crewFromInput(sheetID, c)
			if c.ID == "" {
				err = s.sheetRepo.CreateCrew(ctx, crew)
			} else {
				err = s.sheetRepo.UpdateCrew(ctx, crew)
			}
			if err != nil {
				return fmt.Errorf("save crew: %w", err)
			}
		}
		edited, err = s.sheetRepo.GetSheet(ctx, sheetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

func (s *signupSheetService) DeleteSignUpSheet(ctx context.Context, sheetID, actorID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	sheet, err := s.loadSheet(ctx, sheetID)
	if err != nil {
		return err
	}
	if _, err := s.authorize(ctx, sheet.EventID, sheet, actorID); err != nil {
		return err
	}
	if err := s.sheetRepo.DeleteSheet(ctx, sheetID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete signup sheet: %w", err)
	}
	return nil
}

// UpdateCrewSlot is the manager's direct edit. It ignores the unlock date and the slot's
// current occupant.
func (s *signupSheetService) UpdateCrewSlot(ctx context.Context, sheetID, crewID string, upd domain.CrewSlotUpdate, actorID string) (*domain.CrewSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if upd.UserID != nil && *upd.UserID != "" && upd.CustomCrewMemberName != nil && *upd.CustomCrewMemberName != "" {
		return nil, fmt.Errorf("%w: a slot holds either a member or a custom name", domain.ErrInvalidInput)
	}
	sheet, err := s.loadSheet(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	crew := sheet.Crew(crewID)
	if crew == nil {
		return nil, domain.ErrNotFound
	}
	if _, err := s.authorize(ctx, sheet.EventID, sheet, actorID); err != nil {
		return nil, err
	}

	if upd.ClearAssignment {
		crew.UserID = nil
		crew.CustomCrewMemberName = nil
	}
	if upd.UserID != nil {
		crew.UserID = nonEmpty(*upd.UserID)
		if crew.UserID != nil {
			crew.CustomCrewMemberName = nil
		}
	}
	if upd.CustomCrewMemberName != nil {
		crew.CustomCrewMemberName = nonEmpty(*upd.CustomCrewMemberName)
		if crew.CustomCrewMemberName != nil {
			crew.UserID = nil
		}
	}
	if upd.Locked != nil {
		crew.Locked = *upd.Locked
	}
	if upd.PositionID != nil {
		crew.PositionID = nonEmpty(*upd.PositionID)
	}

	if err := s.sheetRepo.UpdateCrew(ctx, crew); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update crew: %w", err)
	}
	return crew, nil
}

func nonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
