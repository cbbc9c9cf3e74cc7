package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/taskboard/internal/shared"
)

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as an error document. Failures keep their details;
// anything else is reported without leaking the cause.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if f, ok := shared.AsFailure(err); ok && status != http.StatusInternalServerError {
		if f.Challenge != "" {
			w.Header().Set("WWW-Authenticate", f.Challenge)
		}
		Errors(w, status, f.Details...)
		return
	}
	switch status {
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", "Bearer")
		Errors(w, status, shared.Detail{Title: "Unauthenticated", Description: "Could not validate credentials"})
	case http.StatusForbidden:
		Errors(w, status, shared.Detail{Title: "Forbidden", Description: "Not enough permissions"})
	case http.StatusInternalServerError:
		Errors(w, status, shared.Detail{Title: "InternalError", Description: "Something went wrong"})
	default:
		Errors(w, status, shared.Detail{Title: http.StatusText(status), Description: err.Error()})
	}
}
