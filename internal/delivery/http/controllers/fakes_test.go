package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"crewcall/internal/delivery/http/helpers"
	"crewcall/internal/delivery/http/middleware"
	"crewcall/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testUserID  = "5b0f8a52-3c2e-4a55-9a4c-2f18e6b7c901"
	testEventID = "0d5c6a1e-8f43-4b7a-9f3e-6a2d1c4b8e70"
	testSheetID = "3a9e2f6b-1d4c-4e8a-b7f5-9c0d2e1a6b34"
	testCrewID  = "7c1b4e9d-2a6f-4d3b-8e5a-1f0c9b2d7e46"
	testSeries  = "e2d4f6a8-0b1c-4d3e-9f5a-7b6c8d0e2f13"
	testPos     = "9f8e7d6c-5b4a-4392-8170-6f5e4d3c2b1a"
)

var london = mustLoad("Europe/London")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// newRequest builds a request with path values and, unless userID is empty, an authenticated caller.
func newRequest(method, target, body, userID string, pathValues map[string]string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, "http://test"+target, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	if userID != "" {
		req = req.WithContext(middleware.SetUserID(req.Context(), userID))
	}
	return req
}

// decodeEnvelope decodes the response envelope and, if out is non-nil, its data.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, out any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
	if out != nil {
		require.Nil(t, envelope.Error, "success response must have error nil")
		b, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, out))
	}
	return envelope
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	err error

	lastEvent     *domain.Event
	lastCreatorID string
	lastEventID   string
	lastActorID   string
	lastUpdate    domain.EventUpdate
	lastYear      int
	lastMonth     time.Month
	lastStatus    domain.AttendStatus
	lastAction    string
	listResult    []*domain.Event
	getResult     *domain.EventObject
	updateResult  *domain.Event
	forUserResult []*domain.EventObject
	lastForUserID string
}

func (f *fakeEventService) CreateEvent(ctx context.Context, event *domain.Event, creatorID string) error {
	f.lastEvent, f.lastCreatorID = event, creatorID
	if f.err != nil {
		return f.err
	}
	event.ID = testEventID
	event.CreatedBy = creatorID
	if event.Host == "" {
		event.Host = creatorID
	}
	return nil
}

func (f *fakeEventService) GetEvent(ctx context.Context, eventID string) (*domain.EventObject, error) {
	f.lastEventID = eventID
	return f.getResult, f.err
}

func (f *fakeEventService) ListEvents(ctx context.Context, year int, month time.Month) ([]*domain.Event, error) {
	f.lastYear, f.lastMonth = year, month
	return f.listResult, f.err
}

func (f *fakeEventService) UpdateEvent(ctx context.Context, eventID string, upd domain.EventUpdate, actorID string) (*domain.Event, error) {
	f.lastEventID, f.lastUpdate, f.lastActorID = eventID, upd, actorID
	return f.updateResult, f.err
}

func (f *fakeEventService) CancelEvent(ctx context.Context, eventID, actorID string) error {
	return f.action("cancel", eventID, actorID)
}

func (f *fakeEventService) ReinstateEvent(ctx context.Context, eventID, actorID string) error {
	return f.action("reinstate", eventID, actorID)
}

func (f *fakeEventService) DeleteEvent(ctx context.Context, eventID, actorID string) error {
	return f.action("delete", eventID, actorID)
}

func (f *fakeEventService) action(name, eventID, actorID string) error {
	f.lastAction, f.lastEventID, f.lastActorID = name, eventID, actorID
	return f.err
}

func (f *fakeEventService) GetAllEventsForUser(ctx context.Context, userID string) ([]*domain.EventObject, error) {
	f.lastForUserID = userID
	return f.forUserResult, f.err
}

func (f *fakeEventService) SetAttendeeStatus(ctx context.Context, eventID, userID string, status domain.AttendStatus) error {
	f.lastEventID, f.lastActorID, f.lastStatus = eventID, userID, status
	return f.err
}

// fakeRecurringService implements domain.RecurringEventService for handler tests.
type fakeRecurringService struct {
	err          error
	lastTemplate *domain.Event
	lastDates    []time.Time
	lastSeriesID string
	lastUserID   string
	lastStatus   domain.AttendStatus
}

func (f *fakeRecurringService) CreateRecurringEvent(ctx context.Context, template *domain.Event, creatorID string, dates []time.Time) (*domain.Event, error) {
	f.lastTemplate, f.lastUserID, f.lastDates = template, creatorID, dates
	if f.err != nil {
		return nil, f.err
	}
	series := testSeries
	template.ID = testEventID
	template.RecurringSeriesID = &series
	return template, nil
}

func (f *fakeRecurringService) DeleteRecurringSeries(ctx context.Context, seriesID, actorID string) error {
	f.lastSeriesID, f.lastUserID = seriesID, actorID
	return f.err
}

func (f *fakeRecurringService) SetRecurringAttendeeStatus(ctx context.Context, seriesID, userID string, status domain.AttendStatus) error {
	f.lastSeriesID, f.lastUserID, f.lastStatus = seriesID, userID, status
	return f.err
}

// fakeSheetService implements domain.SignupSheetService for handler tests.
type fakeSheetService struct {
	err         error
	lastEventID string
	lastSheetID string
	lastCrewID  string
	lastActorID string
	lastInput   domain.SignupSheetInput
	lastUpdate  domain.CrewSlotUpdate
}

func (f *fakeSheetService) CreateSignUpSheet(ctx context.Context, eventID string, in domain.SignupSheetInput, actorID string) (*domain.SignupSheet, error) {
	f.lastEventID, f.lastInput, f.lastActorID = eventID, in, actorID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SignupSheet{ID: testSheetID, EventID: eventID, Title: in.Title}, nil
}

func (f *fakeSheetService) EditSignUpSheet(ctx context.Context, sheetID string, in domain.SignupSheetInput, actorID string) (*domain.SignupSheet, error) {
	f.lastSheetID, f.lastInput, f.lastActorID = sheetID, in, actorID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SignupSheet{ID: sheetID, EventID: testEventID, Title: in.Title}, nil
}

func (f *fakeSheetService) DeleteSignUpSheet(ctx context.Context, sheetID, actorID string) error {
	f.lastSheetID, f.lastActorID = sheetID, actorID
	return f.err
}

func (f *fakeSheetService) UpdateCrewSlot(ctx context.Context, sheetID, crewID string, upd domain.CrewSlotUpdate, actorID string) (*domain.CrewSlot, error) {
	f.lastSheetID, f.lastCrewID, f.lastUpdate, f.lastActorID = sheetID, crewID, upd, actorID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CrewSlot{ID: crewID, SignupID: sheetID, UserID: upd.UserID, CustomCrewMemberName: upd.CustomCrewMemberName}, nil
}

// fakeSignupService implements domain.SignupService for handler tests.
type fakeSignupService struct {
	err         error
	lastCall    string
	lastSheetID string
	lastCrewID  string
	lastUserID  string
}

func (f *fakeSignupService) SignUpToRole(ctx context.Context, sheetID, crewID, userID string) error {
	f.lastCall, f.lastSheetID, f.lastCrewID, f.lastUserID = "signup", sheetID, crewID, userID
	return f.err
}

func (f *fakeSignupService) RemoveSelfFromRole(ctx context.Context, sheetID, crewID, userID string) error {
	f.lastCall, f.lastSheetID, f.lastCrewID, f.lastUserID = "remove", sheetID, crewID, userID
	return f.err
}

// fakeVacancyService implements domain.VacancyService for handler tests.
type fakeVacancyService struct {
	err          error
	result       *domain.VacancyResult
	lastPosition *string
	lastYear     int
	lastMonth    time.Month
	lastInclude  bool
	called       bool
}

func (f *fakeVacancyService) ListVacantEvents(ctx context.Context, positionID *string, year int, month time.Month, include bool) (*domain.VacancyResult, error) {
	f.called = true
	f.lastPosition, f.lastYear, f.lastMonth, f.lastInclude = positionID, year, month, include
	return f.result, f.err
}

// fakeFeed implements domain.CalendarFeed for handler tests.
type fakeFeed struct {
	lastUserID string
	lastCount  int
}

func (f *fakeFeed) Render(userID string, events []*domain.EventObject) string {
	f.lastUserID, f.lastCount = userID, len(events)
	return "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"
}
