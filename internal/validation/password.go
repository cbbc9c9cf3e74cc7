// Package validation holds the credential format rules applied before anything is stored.
package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/odyssey-erp/taskboard/internal/shared"
)

// Password rule identifiers, reported as failure titles.
const (
	PasswordTooShort                 = "PasswordTooShort"
	PasswordTooLong                  = "PasswordTooLong"
	PasswordRequiresDigits           = "PasswordRequiresDigits"
	PasswordRequiresUppercaseLiteral = "PasswordRequiresUppercaseLiteral"
	PasswordRequiresLowercaseLiteral = "PasswordRequiresLowercaseLiteral"
	PasswordRequiresSpecificLiterals = "PasswordRequiresSpecificLiterals"
)

const (
	PasswordMinLength = 6
	PasswordMaxLength = 255
)

// PasswordSymbols is the fixed set of accepted symbols.
const PasswordSymbols = "$@#%"

// PasswordOptions relaxes parts of the policy.
type PasswordOptions struct {
	// AllowMissingSymbol skips the PasswordRequiresSpecificLiterals rule.
	AllowMissingSymbol bool
}

// ValidatePassword checks every composition rule and returns a validation
// failure listing all violated rules in order, or nil.
func ValidatePassword(password string, opts PasswordOptions) error {
	var details []shared.Detail

	length := utf8.RuneCountInString(password)
	if length < PasswordMinLength {
		details = append(details, shared.Detail{Title: PasswordTooShort, Description: "Length should be at least 6"})
	}
	if length > PasswordMaxLength {
		details = append(details, shared.Detail{Title: PasswordTooLong, Description: "Length should be not be greater than 255"})
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		details = append(details, shared.Detail{Title: PasswordRequiresDigits, Description: "Password should have at least one numeral"})
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		details = append(details, shared.Detail{Title: PasswordRequiresUppercaseLiteral, Description: "Password should have at least one uppercase letter"})
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		details = append(details, shared.Detail{Title: PasswordRequiresLowercaseLiteral, Description: "Password should have at least one lowercase letter"})
	}
	if !opts.AllowMissingSymbol && !strings.ContainsAny(password, PasswordSymbols) {
		details = append(details, shared.Detail{Title: PasswordRequiresSpecificLiterals, Description: "Password should have at least one of the symbols $, @, #, %"})
	}

	if len(details) == 0 {
		return nil
	}
	return shared.NewFailure(shared.ErrValidation, details...)
}
