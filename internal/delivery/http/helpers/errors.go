package helpers

import (
	"log/slog"
	"net/http"

	"crewcall/internal/domain"
)

var statusByKind = map[string]int{
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeLocked:              http.StatusLocked,
	ErrCodeAlreadyFilled:       http.StatusConflict,
	ErrCodeNotOwner:            http.StatusConflict,
	ErrCodeKitClash:            http.StatusConflict,
	ErrCodeExternalUnavailable: http.StatusBadGateway,
}

var messageByKind = map[string]string{
	ErrCodeNotFound:            "not found",
	ErrCodeForbidden:           "forbidden",
	ErrCodeUnauthorized:        "unauthorized",
	ErrCodeLocked:              "sign-up sheet is not open yet",
	ErrCodeAlreadyFilled:       "crew position already filled",
	ErrCodeNotOwner:            "you are not signed up to this crew position",
	ErrCodeKitClash:            "kit clash: the new dates overlap another booking",
	ErrCodeExternalUnavailable: "resource-booking system unavailable, nothing was changed",
}

// StatusFor returns the HTTP status and reason code for err.
func StatusFor(err error) (int, string) {
	kind := domain.ErrorKind(err)
	if status, ok := statusByKind[kind]; ok {
		return status, kind
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// WriteDomainError writes the envelope for a service error. Validation errors keep their message;
// other known kinds get a fixed message. Unknown errors are logged and answered with 500.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, kind := StatusFor(err)
	switch {
	case status == http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, status, kind, "internal error")
	case kind == ErrCodeBadRequest:
		WriteJSONError(w, status, kind, err.Error())
	default:
		if status == http.StatusBadGateway {
			logger.WarnContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "kind", kind, "err", err)
		}
		WriteJSONError(w, status, kind, messageByKind[kind])
	}
}
