package controllers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"crewcall/internal/delivery/http/helpers"
	"crewcall/internal/domain"
)

// VacancySuccessResponse is the success response envelope for GET /vacancies (200).
type VacancySuccessResponse struct {
	Data  *domain.VacancyResult `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

type VacancyController struct {
	Logger  *slog.Logger
	Service domain.VacancyService
	HomeTZ  *time.Location
	now     func() time.Time
}

func NewVacancyController(logger *slog.Logger, svc domain.VacancyService, homeTZ *time.Location) *VacancyController {
	return &VacancyController{
		Logger:  logger,
		Service: svc,
		HomeTZ:  homeTZ,
		now:     time.Now,
	}
}

// ListVacancies godoc
// @Summary Find events that still need crew
// @Description Returns upcoming events with vacant, unlocked crew slots on open sign-up sheets. Each event carries only its matching sheets and slots.
// @Tags vacancies
// @Produce json
// @Security BearerAuth
// @Param position query string false "Position ID (UUID) to match"
// @Param year query int false "Year, defaults to the current year"
// @Param month query int false "Month 1-12; omitted means every event from now on"
// @Param include_attendee_events query bool false "Also return meetings, socials and other events"
// @Success 200 {object} controllers.VacancySuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /vacancies [get]
func (c *VacancyController) ListVacancies(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	q := r.URL.Query()
	var positionID *string
	if p := q.Get("position"); p != "" {
		if !helpers.IsUUID(p) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "position must be a UUID")
			return
		}
		positionID = &p
	}
	year, month, err := helpers.ParseYearMonth(r, c.HomeTZ, c.now())
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	include := false
	if s := q.Get("include_attendee_events"); s != "" {
		include, err = strconv.ParseBool(s)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "include_attendee_events must be a boolean")
			return
		}
	}
	result, err := c.Service.ListVacantEvents(r.Context(), positionID, year, month, include)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}
