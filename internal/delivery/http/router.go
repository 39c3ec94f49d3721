package http

import (
	"log/slog"
	"net/http"

	"crewcall/internal/delivery/http/controllers"
	"crewcall/internal/delivery/http/middleware"
	"crewcall/internal/domain"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Events    *controllers.EventController
	Recurring *controllers.RecurringController
	Sheets    *controllers.SignupSheetController
	Vacancies *controllers.VacancyController
	Me        *controllers.MeController
}

// NewRouter initializes the HTTP router with all application routes. Every API route requires a bearer token.
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Events
	mux.HandleFunc("POST /events", auth(c.Events.CreateEvent))
	mux.HandleFunc("GET /events", auth(c.Events.ListEvents))
	mux.HandleFunc("GET /events/{eventID}", auth(c.Events.GetEvent))
	mux.HandleFunc("PATCH /events/{eventID}", auth(c.Events.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(c.Events.DeleteEvent))
	mux.HandleFunc("POST /events/{eventID}/cancel", auth(c.Events.CancelEvent))
	mux.HandleFunc("POST /events/{eventID}/reinstate", auth(c.Events.ReinstateEvent))
	mux.HandleFunc("PUT /events/{eventID}/attendance", auth(c.Events.SetAttendance))

	// Recurring series
	mux.HandleFunc("POST /events/recurring", auth(c.Recurring.CreateRecurringEvent))
	mux.HandleFunc("DELETE /recurring/{seriesID}", auth(c.Recurring.DeleteRecurringSeries))
	mux.HandleFunc("PUT /recurring/{seriesID}/attendance", auth(c.Recurring.SetRecurringAttendance))

	// Sign-up sheets
	mux.HandleFunc("POST /events/{eventID}/signup-sheets", auth(c.Sheets.CreateSignUpSheet))
	mux.HandleFunc("PUT /signup-sheets/{sheetID}", auth(c.Sheets.EditSignUpSheet))
	mux.HandleFunc("DELETE /signup-sheets/{sheetID}", auth(c.Sheets.DeleteSignUpSheet))
	mux.HandleFunc("PATCH /signup-sheets/{sheetID}/crews/{crewID}", auth(c.Sheets.UpdateCrewSlot))
	mux.HandleFunc("POST /signup-sheets/{sheetID}/crews/{crewID}/signup", auth(c.Sheets.SignUpToRole))
	mux.HandleFunc("DELETE /signup-sheets/{sheetID}/crews/{crewID}/signup", auth(c.Sheets.RemoveSelfFromRole))

	// Vacancies
	mux.HandleFunc("GET /vacancies", auth(c.Vacancies.ListVacancies))

	// Me
	mux.HandleFunc("GET /me/events", auth(c.Me.ListMyEvents))
	mux.HandleFunc("GET /me/calendar.ics", auth(c.Me.MyCalendar))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
