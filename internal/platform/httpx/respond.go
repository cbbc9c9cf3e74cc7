// Package httpx provides JSON request and response helpers.
package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/taskboard/internal/shared"
)

// InvalidRequest is the failure title for undecodable or structurally invalid bodies.
const InvalidRequest = "InvalidRequest"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrorDocument is the body written for every failed request.
type ErrorDocument struct {
	Errors []shared.Detail `json:"errors"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Errors sends an error document.
func Errors(w http.ResponseWriter, status int, details ...shared.Detail) {
	if details == nil {
		details = []shared.Detail{}
	}
	JSON(w, status, ErrorDocument{Errors: details})
}

// DecodeJSON decodes the request body into target and runs its validate tags.
// Failures come back as validation *shared.Failure values.
func DecodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return shared.NewFailure(shared.ErrValidation, shared.Detail{
			Title:       InvalidRequest,
			Description: "Request body must be a single JSON object",
		})
	}
	if err := validate.Struct(target); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("httpx: validate: %w", err)
		}
		details := make([]shared.Detail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, shared.Detail{
				Title:       InvalidRequest,
				Description: describeField(fe),
			})
		}
		return shared.NewFailure(shared.ErrValidation, details...)
	}
	return nil
}

func describeField(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
