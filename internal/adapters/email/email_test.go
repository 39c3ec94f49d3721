package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"crewcall/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewMailer(t *testing.T) {
	tests := []struct {
		name     string
		config   MailerConfig
		wantNoop bool
		wantErr  bool
	}{
		{name: "noop", config: MailerConfig{Provider: "noop"}, wantNoop: true},
		{name: "empty provider", config: MailerConfig{}, wantNoop: true},
		{name: "unknown provider", config: MailerConfig{Provider: "carrier-pigeon"}, wantNoop: true},
		{name: "ses", config: MailerConfig{Provider: "ses", FromAddress: "crew@example.org", SES: SESConfig{Region: "eu-west-2"}}},
		{name: "ses without region", config: MailerConfig{Provider: "ses", FromAddress: "crew@example.org"}, wantErr: true},
		{name: "ses without sender", config: MailerConfig{Provider: "ses", SES: SESConfig{Region: "eu-west-2"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMailer(tt.config, testLogger)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			_, isNoop := m.(*noopMailer)
			assert.Equal(t, tt.wantNoop, isNoop)
		})
	}
}

func TestSESMailer_Send(t *testing.T) {
	client := &fakeSES{}
	m := &sesMailer{client: client, fromAddress: "crew@example.org", fromName: "Crew Calendar", logger: testLogger}

	require.NoError(t, m.Send("ada@example.org", "Hello", "<p>hi</p>", ""))
	require.NotNil(t, client.input)
	assert.Equal(t, "Crew Calendar <crew@example.org>", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"ada@example.org"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Hello", aws.ToString(client.input.Message.Subject.Data))
	require.NotNil(t, client.input.Message.Body.Html)
	assert.Nil(t, client.input.Message.Body.Text)

	client.err = errors.New("throttled")
	err := m.Send("ada@example.org", "Hello", "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestTemplateRenderer_Notification(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)

	subject, html, text, err := r.Render("notification", &domain.NotificationEmailData{
		Email: "ada@example.org", Name: "Ada <Lovelace>", Message: "You are on camera",
	})
	require.NoError(t, err)
	assert.Equal(t, "Crew call update", subject)
	assert.Contains(t, html, "Ada &lt;Lovelace&gt;")
	assert.Contains(t, text, "Hi Ada <Lovelace>,")
	assert.Contains(t, text, "You are on camera")
}

func TestTemplateRenderer_VacancyDigest(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)

	start := time.Date(2025, 3, 14, 19, 0, 0, 0, time.UTC)
	data := &domain.VacancyDigestEmailData{
		VacantSlotCount: 2,
		Events: []*domain.EventObject{{
			Event: &domain.Event{Name: "Varsity", StartDate: start},
			SignupSheets: []*domain.SignupSheet{{
				Title: "Main crew",
				Crews: []*domain.CrewSlot{{PositionName: "Camera"}, {}},
			}},
		}},
	}
	subject, html, text, err := r.Render("vacancy_digest", data)
	require.NoError(t, err)
	assert.Equal(t, "2 crew slots need filling", subject)
	assert.Contains(t, text, "* Varsity (Fri 14 Mar 19:00)")
	assert.Contains(t, text, "Main crew: Camera; crew;")
	assert.Contains(t, html, "<strong>Varsity</strong>")

	data.VacantSlotCount = 1
	subject, _, _, err = r.Render("vacancy_digest", data)
	require.NoError(t, err)
	assert.Equal(t, "1 crew slot needs filling", subject)
}

func TestTemplateRenderer_UnknownTemplate(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)
	_, _, _, err = r.Render("welcome", nil)
	require.Error(t, err)
}
