package validation

import (
	"regexp"

	"github.com/odyssey-erp/taskboard/internal/shared"
)

// InvalidUsername is the failure title for malformed and already taken usernames.
const InvalidUsername = "InvalidUsername"

const (
	UsernameMinLength = 6
	UsernameMaxLength = 30
)

// Alphanumeric runs joined by single separators, so a separator can never lead,
// trail or repeat.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]+(?:[._][A-Za-z0-9]+)*$`)

// ValidateUsername checks the username format.
func ValidateUsername(name string) error {
	if len(name) < UsernameMinLength || len(name) > UsernameMaxLength || !usernamePattern.MatchString(name) {
		return shared.NewFailure(shared.ErrValidation, shared.Detail{
			Title:       InvalidUsername,
			Description: "Username contains special characters or its length isn't between 6 and 30 characters inclusive",
		})
	}
	return nil
}
