package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"crewcall/internal/domain"
)

type notificationService struct {
	userRepo domain.UserRepository
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewNotificationService returns a NotificationService that mails members through the given Mailer.
func NewNotificationService(userRepo domain.UserRepository, mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.NotificationService {
	return &notificationService{userRepo: userRepo, mailer: mailer, renderer: renderer, logger: logger}
}

// Notify sends message to the member using the "notification" template.
func (s *notificationService) Notify(ctx context.Context, userID, message string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}
	if user.Email == "" {
		return fmt.Errorf("%w: user %s has no email address", domain.ErrInvalidInput, userID)
	}
	data := &domain.NotificationEmailData{Email: user.Email, Name: user.DisplayName(), Message: message}
	subject, htmlBody, textBody, err := s.renderer.Render("notification", data)
	if err != nil {
		return fmt.Errorf("failed to render notification template: %w", err)
	}
	if err := s.mailer.Send(user.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	s.logger.Info("notification sent", "user_id", userID)
	return nil
}

// SendVacancyDigest mails the "vacancy_digest" template to a single recipient.
func (s *notificationService) SendVacancyDigest(ctx context.Context, to string, result *domain.VacancyResult) error {
	if result == nil {
		return fmt.Errorf("vacancy result is nil")
	}
	data := &domain.VacancyDigestEmailData{Events: result.Events, VacantSlotCount: result.VacantSlotCount}
	subject, htmlBody, textBody, err := s.renderer.Render("vacancy_digest", data)
	if err != nil {
		return fmt.Errorf("failed to render vacancy_digest template: %w", err)
	}
	if err := s.mailer.Send(to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send vacancy digest: %w", err)
	}
	s.logger.Info("vacancy digest sent", "to", to, "events", len(result.Events), "vacant_slots", result.VacantSlotCount)
	return nil
}
