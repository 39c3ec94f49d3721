package domain

import "errors"

// Sentinel errors shared by repositories, services and the HTTP layer.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")

	// ErrLocked is returned when a sign-up sheet has not reached its unlock date.
	ErrLocked = errors.New("sign-up sheet is locked")
	// ErrAlreadyFilled is returned when a crew slot already has an occupant.
	ErrAlreadyFilled = errors.New("crew position already filled")
	// ErrNotOwner is returned when a member tries to leave a slot they do not hold.
	ErrNotOwner = errors.New("not signed up to this crew position")

	// ErrKitClash is returned when the resource-booking system rejects a date move.
	ErrKitClash = errors.New("kit clash")
	// ErrExternalUnavailable is returned when the resource-booking system cannot be reached.
	ErrExternalUnavailable = errors.New("resource-booking system unavailable")
)

// ErrorKind maps an error to a stable reason code used in API responses and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidInput):
		return "bad_request"
	case errors.Is(err, ErrLocked):
		return "locked"
	case errors.Is(err, ErrAlreadyFilled):
		return "already_filled"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrKitClash):
		return "kit_clash"
	case errors.Is(err, ErrExternalUnavailable):
		return "external_unavailable"
	default:
		return "internal_error"
	}
}
