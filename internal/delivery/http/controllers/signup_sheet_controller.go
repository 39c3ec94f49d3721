package controllers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"crewcall/internal/delivery/http/helpers"
	"crewcall/internal/domain"
)

// CrewSlotRequest is one crew slot in a sign-up sheet payload. An empty crew_id creates a new slot.
type CrewSlotRequest struct {
	CrewID               string  `json:"crew_id"`
	PositionID           *string `json:"position_id"`
	Locked               bool    `json:"locked"`
	UserID               *string `json:"user_id"`
	CustomCrewMemberName *string `json:"custom_crew_member_name"`
	Ordering             int     `json:"ordering"`
}

// SignupSheetRequest is the request body for POST /events/{eventID}/signup-sheets and PUT /signup-sheets/{sheetID}.
type SignupSheetRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ArrivalTime time.Time         `json:"arrival_time"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time"`
	UnlockDate  *time.Time        `json:"unlock_date"`
	Crews       []CrewSlotRequest `json:"crews"`
}

// Validate implements Validator. Ordering and time rules are checked by the service.
func (s SignupSheetRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(s.Title) == "" {
		errs = append(errs, "title is required")
	}
	if s.StartTime.IsZero() || s.EndTime.IsZero() || s.ArrivalTime.IsZero() {
		errs = append(errs, "arrival_time, start_time and end_time are required")
	}
	for i, c := range s.Crews {
		prefix := fmt.Sprintf("crews[%d].", i)
		if c.CrewID != "" && !helpers.IsUUID(c.CrewID) {
			errs = append(errs, prefix+"crew_id must be a UUID")
		}
		errs = validUUIDPtr(errs, prefix+"position_id", c.PositionID)
		errs = validUUIDPtr(errs, prefix+"user_id", c.UserID)
	}
	return errs
}

func (s SignupSheetRequest) toInput() domain.SignupSheetInput {
	in := domain.SignupSheetInput{
		Title:       strings.TrimSpace(s.Title),
		Description: s.Description,
		ArrivalTime: s.ArrivalTime,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		UnlockDate:  s.UnlockDate,
		Crews:       make([]domain.CrewSlotInput, 0, len(s.Crews)),
	}
	for _, c := range s.Crews {
		in.Crews = append(in.Crews, domain.CrewSlotInput{
			ID:                   c.CrewID,
			PositionID:           c.PositionID,
			Locked:               c.Locked,
			UserID:               c.UserID,
			CustomCrewMemberName: c.CustomCrewMemberName,
			Ordering:             c.Ordering,
		})
	}
	return in
}

// UpdateCrewSlotRequest is the request body for PATCH /signup-sheets/{sheetID}/crews/{crewID}.
type UpdateCrewSlotRequest struct {
	PositionID           *string `json:"position_id"`
	Locked               *bool   `json:"locked"`
	UserID               *string `json:"user_id"`
	CustomCrewMemberName *string `json:"custom_crew_member_name"`
	ClearAssignment      bool    `json:"clear_assignment"`
}

// Validate implements Validator.
func (u UpdateCrewSlotRequest) Validate() []string {
	var errs []string
	errs = validUUIDPtr(errs, "position_id", u.PositionID)
	errs = validUUIDPtr(errs, "user_id", u.UserID)
	if u.UserID != nil && u.CustomCrewMemberName != nil {
		errs = append(errs, "user_id and custom_crew_member_name are mutually exclusive")
	}
	return errs
}

// SignupSheetSuccessResponse is the success response envelope for endpoints returning one sheet.
type SignupSheetSuccessResponse struct {
	Data  *domain.SignupSheet `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// CrewSlotSuccessResponse is the success response envelope for PATCH /signup-sheets/{sheetID}/crews/{crewID} (200).
type CrewSlotSuccessResponse struct {
	Data  *domain.CrewSlot  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// SignupSheetController serves sheet management for event managers and the member claim/release endpoints.
type SignupSheetController struct {
	Logger  *slog.Logger
	Sheets  domain.SignupSheetService
	Signups domain.SignupService
}

func NewSignupSheetController(logger *slog.Logger, sheets domain.SignupSheetService, signups domain.SignupService) *SignupSheetController {
	return &SignupSheetController{
		Logger:  logger,
		Sheets:  sheets,
		Signups: signups,
	}
}

// CreateSignUpSheet godoc
// @Summary Create a sign-up sheet
// @Description Adds a crew call to a show. Crews are stored in the order given by their ordering value.
// @Tags signup-sheets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body SignupSheetRequest true "Sheet and crew slots"
// @Success 201 {object} controllers.SignupSheetSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/signup-sheets [post]
func (c *SignupSheetController) CreateSignUpSheet(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req SignupSheetRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	sheet, err := c.Sheets.CreateSignUpSheet(r.Context(), eventID, req.toInput(), userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, sheet)
}

// EditSignUpSheet godoc
// @Summary Replace a sign-up sheet
// @Description Replaces the sheet fields and reconciles its crews: listed crews with an id are updated, crews without an id are added, and unlisted crews are removed.
// @Tags signup-sheets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sheetID path string true "Sheet ID (UUID)"
// @Param body body SignupSheetRequest true "Sheet and crew slots"
// @Success 200 {object} controllers.SignupSheetSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /signup-sheets/{sheetID} [put]
func (c *SignupSheetController) EditSignUpSheet(w http.ResponseWriter, r *http.Request) {
	sheetID, ok := helpers.PathUUID(w, r, "sheetID")
	if !ok {
		return
	}
	var req SignupSheetRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	sheet, err := c.Sheets.EditSignUpSheet(r.Context(), sheetID, req.toInput(), userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, sheet)
}

// DeleteSignUpSheet godoc
// @Summary Delete a sign-up sheet
// @Tags signup-sheets
// @Security BearerAuth
// @Param sheetID path string true "Sheet ID (UUID)"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /signup-sheets/{sheetID} [delete]
func (c *SignupSheetController) DeleteSignUpSheet(w http.ResponseWriter, r *http.Request) {
	sheetID, ok := helpers.PathUUID(w, r, "sheetID")
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := c.Sheets.DeleteSignUpSheet(r.Context(), sheetID, userID); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateCrewSlot godoc
// @Summary Edit one crew slot
// @Description Manager edit of a single slot. Ignores the sheet unlock date and the slot's current occupant.
// @Tags signup-sheets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sheetID path string true "Sheet ID (UUID)"
// @Param crewID path string true "Crew slot ID (UUID)"
// @Param body body UpdateCrewSlotRequest true "Fields to change"
// @Success 200 {object} controllers.CrewSlotSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /signup-sheets/{sheetID}/crews/{crewID} [patch]
func (c *SignupSheetController) UpdateCrewSlot(w http.ResponseWriter, r *http.Request) {
	sheetID, crewID, ok := sheetAndCrew(w, r)
	if !ok {
		return
	}
	var req UpdateCrewSlotRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	upd := domain.CrewSlotUpdate{
		PositionID:           req.PositionID,
		Locked:               req.Locked,
		UserID:               req.UserID,
		CustomCrewMemberName: req.CustomCrewMemberName,
		ClearAssignment:      req.ClearAssignment,
	}
	crew, err := c.Sheets.UpdateCrewSlot(r.Context(), sheetID, crewID, upd, userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, crew)
}

// SignUpToRole godoc
// @Summary Sign up to a crew slot
// @Description Claims a vacant crew slot for the caller. Exactly one of several concurrent callers wins; the rest get already_filled.
// @Tags signups
// @Security BearerAuth
// @Param sheetID path string true "Sheet ID (UUID)"
// @Param crewID path string true "Crew slot ID (UUID)"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_filled"
// @Failure 423 {object} helpers.APIResponse "error.code: locked"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /signup-sheets/{sheetID}/crews/{crewID}/signup [post]
func (c *SignupSheetController) SignUpToRole(w http.ResponseWriter, r *http.Request) {
	sheetID, crewID, ok := sheetAndCrew(w, r)
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := c.Signups.SignUpToRole(r.Context(), sheetID, crewID, userID); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveSelfFromRole godoc
// @Summary Leave a crew slot
// @Description Releases the slot if the caller still holds it.
// @Tags signups
// @Security BearerAuth
// @Param sheetID path string true "Sheet ID (UUID)"
// @Param crewID path string true "Crew slot ID (UUID)"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: not_owner"
// @Failure 423 {object} helpers.APIResponse "error.code: locked"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /signup-sheets/{sheetID}/crews/{crewID}/signup [delete]
func (c *SignupSheetController) RemoveSelfFromRole(w http.ResponseWriter, r *http.Request) {
	sheetID, crewID, ok := sheetAndCrew(w, r)
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := c.Signups.RemoveSelfFromRole(r.Context(), sheetID, crewID, userID); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sheetAndCrew(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	sheetID, ok := helpers.PathUUID(w, r, "sheetID")
	if !ok {
		return "", "", false
	}
	crewID, ok := helpers.PathUUID(w, r, "crewID")
	if !ok {
		return "", "", false
	}
	return sheetID, crewID, true
}
