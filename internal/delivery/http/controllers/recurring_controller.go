package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"crewcall/internal/delivery/http/helpers"
	"crewcall/internal/domain"
)

const maxRecurringDates = 366

// CreateRecurringEventRequest is the request body for POST /events/recurring.
// The embedded event is the template occurrence; dates are YYYY-MM-DD days in the home time zone.
type CreateRecurringEventRequest struct {
	CreateEventRequest
	Dates []string `json:"dates"`
}

// Validate implements Validator.
func (c CreateRecurringEventRequest) Validate() []string {
	errs := c.CreateEventRequest.Validate()
	if len(c.Dates) == 0 {
		errs = append(errs, "dates is required")
	}
	if len(c.Dates) > maxRecurringDates {
		errs = append(errs, "dates must not contain more than 366 entries")
	}
	return errs
}

type RecurringController struct {
	Logger  *slog.Logger
	Service domain.RecurringEventService
	HomeTZ  *time.Location
}

func NewRecurringController(logger *slog.Logger, svc domain.RecurringEventService, homeTZ *time.Location) *RecurringController {
	return &RecurringController{
		Logger:  logger,
		Service: svc,
		HomeTZ:  homeTZ,
	}
}

// CreateRecurringEvent godoc
// @Summary Create a recurring series
// @Description Creates the template event plus one copy per target date, all in a new series. Each copy keeps the template's wall-clock start and duration in the home time zone.
// @Tags recurring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateRecurringEventRequest true "Template event and target dates"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the template occurrence"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/recurring [post]
func (c *RecurringController) CreateRecurringEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateRecurringEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	dates := make([]time.Time, 0, len(req.Dates))
	for _, d := range req.Dates {
		t, err := helpers.ParseDate(d, c.HomeTZ)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		dates = append(dates, t)
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	event, err := c.Service.CreateRecurringEvent(r.Context(), req.toEvent(), userID, dates)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// DeleteRecurringSeries godoc
// @Summary Delete a recurring series
// @Description Soft-deletes every event in the series. The caller must be able to manage each one; otherwise nothing is deleted.
// @Tags recurring
// @Security BearerAuth
// @Param seriesID path string true "Series ID (UUID)"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /recurring/{seriesID} [delete]
func (c *RecurringController) DeleteRecurringSeries(w http.ResponseWriter, r *http.Request) {
	seriesID, ok := helpers.PathUUID(w, r, "seriesID")
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteRecurringSeries(r.Context(), seriesID, userID); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetRecurringAttendance godoc
// @Summary Set the caller's default attendance for a series
// @Description Applies to every event of the series that has no event-level record for the caller.
// @Tags attendance
// @Accept json
// @Security BearerAuth
// @Param seriesID path string true "Series ID (UUID)"
// @Param body body SetAttendanceRequest true "Attendance status"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /recurring/{seriesID}/attendance [put]
func (c *RecurringController) SetRecurringAttendance(w http.ResponseWriter, r *http.Request) {
	seriesID, ok := helpers.PathUUID(w, r, "seriesID")
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
	if err := c.Service.SetRecurringAttendeeStatus(r.Context(), seriesID, userID, domain.AttendStatus(req.AttendStatus)); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
