package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"crewcall/internal/delivery/http/helpers"
	"crewcall/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	EventType         string    `json:"event_type"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Location          string    `json:"location"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	IsPrivate         bool      `json:"is_private"`
	IsTentative       bool      `json:"is_tentative"`
	Host              string    `json:"host"`
	ExternalProjectID *string   `json:"external_project_id"`
}

// Validate implements Validator. Returns error messages for required and format rules.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if !domain.EventType(c.EventType).Valid() {
		errs = append(errs, "event_type must be one of show, meeting, social, other")
	}
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.StartDate.IsZero() {
		errs = append(errs, "start_date is required")
	}
	if c.EndDate.IsZero() {
		errs = append(errs, "end_date is required")
	}
	if c.Host != "" && !helpers.IsUUID(c.Host) {
		errs = append(errs, "host must be a UUID")
	}
	return errs
}

func (c CreateEventRequest) toEvent() *domain.Event {
	return &domain.Event{
		Type:              domain.EventType(c.EventType),
		Name:              strings.TrimSpace(c.Name),
		Description:       c.Description,
		Location:          c.Location,
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
		IsPrivate:         c.IsPrivate,
		IsTentative:       c.IsTentative,
		Host:              c.Host,
		ExternalProjectID: c.ExternalProjectID,
	}
}

// EventSuccessResponse is the success response envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsSuccessResponse is the success response envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventObjectSuccessResponse is the success response envelope for GET /events/{eventID} (200).
type EventObjectSuccessResponse struct {
	Data  *domain.EventObject `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
	HomeTZ  *time.Location
	now     func() time.Time
}

func NewEventController(logger *slog.Logger, svc domain.EventService, homeTZ *time.Location) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
		HomeTZ:  homeTZ,
		now:     time.Now,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Create a show, meeting, social or other event. The caller needs the creator capability for the event type and becomes the host unless one is given.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	event := req.toEvent()
	if err := c.Service.CreateEvent(r.Context(), event, userID); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List events
// @Description Lists events ordered by start date. With month (and optionally year) only events starting in that calendar month of the home time zone are returned.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param year query int false "Year, defaults to the current year"
// @Param month query int false "Month 1-12"
// @Success 200 {object} controllers.ListEventsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	year, month, err := helpers.ParseYearMonth(r, c.HomeTZ, c.now())
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	events, err := c.Service.ListEvents(r.Context(), year, month)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get an event
// @Description Returns the event with its effective attendees and its sign-up sheets.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventObjectSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	if _, ok := currentUser(w, r); !ok {
		return
	}
	obj, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, obj)
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. All fields optional; omitted fields are unchanged.
type UpdateEventRequest struct {
	EventType         *string    `json:"event_type"`
	Name              *string    `json:"name"`
	Description       *string    `json:"description"`
	Location          *string    `json:"location"`
	StartDate         *time.Time `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
	IsPrivate         *bool      `json:"is_private"`
	IsTentative       *bool      `json:"is_tentative"`
	Host              *string    `json:"host"`
	ExternalProjectID *string    `json:"external_project_id"`
}

// Validate implements Validator.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.EventType != nil && !domain.EventType(*u.EventType).Valid() {
		errs = append(errs, "event_type must be one of show, meeting, social, other")
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	return validUUIDPtr(errs, "host", u.Host)
}

func (u UpdateEventRequest) toUpdate() domain.EventUpdate {
	upd := domain.EventUpdate{
		Name:              u.Name,
		Description:       u.Description,
		Location:          u.Location,
		StartDate:         u.StartDate,
		EndDate:           u.EndDate,
		IsPrivate:         u.IsPrivate,
		IsTentative:       u.IsTentative,
		Host:              u.Host,
		ExternalProjectID: u.ExternalProjectID,
	}
	if u.EventType != nil {
		t := domain.EventType(*u.EventType)
		upd.Type = &t
	}
	return upd
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Partially updates an event. Moving a show linked to the resource-booking system is checked for kit clashes first; on a clash nothing changes.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: kit_clash"
// @Failure 502 {object} helpers.APIResponse "error.code: external_unavailable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), eventID, req.toUpdate(), userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CancelEvent godoc
// @Summary Cancel an event
// @Description Marks the event as cancelled. Cancelled events stay visible but are excluded from vacancy search.
// @Tags events
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/cancel [post]
func (c *EventController) CancelEvent(w http.ResponseWriter, r *http.Request) {
	c.eventAction(w, r, c.Service.CancelEvent)
}

// ReinstateEvent godoc
// @Summary Reinstate a cancelled event
// @Tags events
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/reinstate [post]
func (c *EventController) ReinstateEvent(w http.ResponseWriter, r *http.Request) {
	c.eventAction(w, r, c.Service.ReinstateEvent)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Soft-deletes the event. It disappears from every read.
// @Tags events
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	c.eventAction(w, r, c.Service.DeleteEvent)
}

func (c *EventController) eventAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, eventID, actorID string) error) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := action(r.Context(), eventID, userID); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetAttendanceRequest is the request body for PUT /events/{eventID}/attendance and PUT /recurring/{seriesID}/attendance.
type SetAttendanceRequest struct {
	AttendStatus string `json:"attend_status"`
}

// Validate implements Validator.
func (s SetAttendanceRequest) Validate() []string {
	if !domain.AttendStatus(s.AttendStatus).Valid() {
		return []string{"attend_status must be one of attending, not_attending, tentative, unknown"}
	}
	return nil
}

// SetAttendance godoc
// @Summary Set the caller's attendance
// @Description Records the caller's attendance of a meeting, social or other event. Status unknown removes the record. Shows are crewed through sign-up sheets and reject attendance.
// @Tags attendance
// @Accept json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body SetAttendanceRequest true "Attendance status"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/attendance [put]
func (c *EventController) SetAttendance(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req SetAttendanceRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := c.Service.SetAttendeeStatus(r.Context(), eventID, userID, domain.AttendStatus(req.AttendStatus)); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
