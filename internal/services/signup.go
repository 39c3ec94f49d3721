package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crewcall/internal/domain"
)

const notifyTimeout = 10 * time.Second

type signupService struct {
	sheetRepo      domain.SignupSheetRepository
	notifier       domain.Notifier
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewSignupService returns the member-facing claim/release coordinator.
// Assignment is decided by a single conditional write in the repository; the reads before it
// only pick the right error for the caller.
func NewSignupService(sheetRepo domain.SignupSheetRepository,
	notifier domain.Notifier,
	logger *slog.Logger,
	timeout time.Duration,
) domain.SignupService {
	return &signupService{
		sheetRepo:      sheetRepo,
		notifier:       notifier,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

// locate runs the shared sheet, lock and slot lookup.
func (s *signupService) locate(ctx context.Context, sheetID, crewID string) (*domain.SignupSheet, *domain.CrewSlot, error) {
	sheet, err := s.sheetRepo.GetSheet(ctx, sheetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get signup sheet: %w", err)
	}
	if sheet.IsLockedAt(s.now()) {
		return nil, nil, domain.ErrLocked
	}
	crew := sheet.Crew(crewID)
	if crew == nil {
		return nil, nil, domain.ErrNotFound
	}
	return sheet, crew, nil
}

func (s *signupService) SignUpToRole(ctx context.Context, sheetID, crewID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	sheet, crew, err := s.locate(ctx, sheetID, crewID)
	if err != nil {
		return err
	}
	if crew.IsAssigned() {
		return domain.ErrAlreadyFilled
	}
	if crew.Locked {
		return domain.ErrForbidden
	}

	claimed, err := s.sheetRepo.ClaimCrew(ctx, sheetID, crewID, userID)
	if err != nil {
		return fmt.Errorf("claim crew: %w", err)
	}
	if !claimed {
		return s.claimFailure(ctx, sheetID, crewID)
	}

	s.notifyAsync(ctx, userID, claimMessage(sheet, crew))
	return nil
}

// claimFailure re-reads the slot after a conditional write that changed nothing.
func (s *signupService) claimFailure(ctx context.Context, sheetID, crewID string) error {
	sheet, err := s.sheetRepo.GetSheet(ctx, sheetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get signup sheet: %w", err)
	}
	crew := sheet.Crew(crewID)
	if crew == nil {
		return domain.ErrNotFound
	}
	if crew.Locked && !crew.IsAssigned() {
		return domain.ErrForbidden
	}
	return domain.ErrAlreadyFilled
}

func (s *signupService) RemoveSelfFromRole(ctx context.Context, sheetID, crewID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	_, crew, err := s.locate(ctx, sheetID, crewID)
	if err != nil {
		return err
	}
	if !crew.HeldBy(userID) {
		return domain.ErrNotOwner
	}
	released, err := s.sheetRepo.ReleaseCrew(ctx, sheetID, crewID, userID)
	if err != nil {
		return fmt.Errorf("release crew: %w", err)
	}
	if !released {
		return domain.ErrNotOwner
	}
	return nil
}

func claimMessage(sheet *domain.SignupSheet, crew *domain.CrewSlot) string {
	role := crew.PositionName
	if role == "" {
		role = "crew"
	}
	return fmt.Sprintf("You are signed up as %s for %s (arrive %s).",
		role, sheet.Title, sheet.ArrivalTime.Format("Mon 2 Jan 15:04"))
}

// notifyAsync never blocks or fails the caller; delivery errors are only logged.
func (s *signupService) notifyAsync(ctx context.Context, userID, message string) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, userID, message); err != nil {
			s.logger.Warn("notify crew member failed", "user_id", userID, "err", err)
		}
	}()
}
