package controllers

import (
	"io"
	"log/slog"
	"net/http"

	"crewcall/internal/delivery/http/helpers"
	"crewcall/internal/domain"
)

// MyEventsSuccessResponse is the success response envelope for GET /me/events (200).
type MyEventsSuccessResponse struct {
	Data  []*domain.EventObject `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// MeController serves the caller's own schedule.
type MeController struct {
	Logger  *slog.Logger
	Service domain.EventService
	Feed    domain.CalendarFeed
}

func NewMeController(logger *slog.Logger, svc domain.EventService, feed domain.CalendarFeed) *MeController {
	return &MeController{
		Logger:  logger,
		Service: svc,
		Feed:    feed,
	}
}

// ListMyEvents godoc
// @Summary List my events
// @Description Returns events the caller attends or holds a crew slot on, each with only the caller's slots attached, ordered by start date.
// @Tags me
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.MyEventsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/events [get]
func (c *MeController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	events, err := c.Service.GetAllEventsForUser(r.Context(), userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.EventObject{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// MyCalendar godoc
// @Summary My calendar feed
// @Description The caller's events as an iCalendar document for calendar subscriptions.
// @Tags me
// @Produce text/calendar
// @Security BearerAuth
// @Success 200 {string} string "iCalendar document"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/calendar.ics [get]
func (c *MeController) MyCalendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	events, err := c.Service.GetAllEventsForUser(r.Context(), userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="crewcall.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, c.Feed.Render(userID, events))
}
