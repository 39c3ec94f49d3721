package controllers

import (
	"net/http"

	"crewcall/internal/delivery/http/helpers"
	"crewcall/internal/delivery/http/middleware"
)

// currentUser returns the authenticated caller or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

func validUUIDPtr(errs []string, field string, v *string) []string {
	if v != nil && !helpers.IsUUID(*v) {
		errs = append(errs, field+" must be a UUID")
	}
	return errs
}
