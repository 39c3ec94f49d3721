package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// NotificationEmailData holds data for the "notification" template.
type NotificationEmailData struct {
	Email   string
	Name    string
	Message string
}

// VacancyDigestEmailData holds data for the "vacancy_digest" template.
type VacancyDigestEmailData struct {
	Events          []*EventObject
	VacantSlotCount int
}

// NotificationService delivers member notifications and the vacancy digest by email.
type NotificationService interface {
	Notifier
	SendVacancyDigest(ctx context.Context, to string, result *VacancyResult) error
}
