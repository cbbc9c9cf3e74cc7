package shared

import (
	"errors"
	"strings"
)

var (
	// ErrValidation marks input that broke a format or policy rule.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a write rejected because the record already exists.
	ErrConflict = errors.New("conflict")
	// ErrUnauthenticated indicates missing, invalid or expired credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the caller lacks a required role.
	ErrForbidden = errors.New("forbidden")
)

// Detail is one user-facing failure entry.
type Detail struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Failure is a typed domain rejection. Kind is one of the sentinels above and
// is matched by errors.Is.
type Failure struct {
	Kind      error
	Details   []Detail
	Challenge string
}

// NewFailure builds a Failure of the given kind.
func NewFailure(kind error, details ...Detail) *Failure {
	return &Failure{Kind: kind, Details: details}
}

// Error joins the detail titles.
func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	titles := make([]string, 0, len(f.Details))
	for _, d := range f.Details {
		titles = append(titles, d.Title)
	}
	kind := "failure"
	if f.Kind != nil {
		kind = f.Kind.Error()
	}
	if len(titles) == 0 {
		return kind
	}
	return kind + ": " + strings.Join(titles, ", ")
}

// Unwrap exposes the kind so callers can use errors.Is(err, shared.ErrConflict).
func (f *Failure) Unwrap() error {
	return f.Kind
}

// Titles lists detail titles in order.
func (f *Failure) Titles() []string {
	titles := make([]string, len(f.Details))
	for i, d := range f.Details {
		titles[i] = d.Title
	}
	return titles
}

// Merge appends the details of other failures of any kind. The receiver keeps its kind.
func (f *Failure) Merge(others ...*Failure) *Failure {
	for _, o := range others {
		if o == nil {
			continue
		}
		f.Details = append(f.Details, o.Details...)
	}
	return f
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
