package proposal

import (
	"fmt"
	"strings"
)

// Category classifies what kind of rule a proposal violated.
type Category string

const (
	CategoryField Category = "field"
	CategoryEnum  Category = "enum"
	CategoryOps   Category = "ops"
	CategoryPath  Category = "path"
)

// Error is a single validation failure. Unlike the ambient validation
// framework's graded severities, every proposal validation failure is
// fatal to the Apply Pipeline's Validate gate — there is no warning tier
// here, so Error carries a Reason string instead of a Severity.
type Error struct {
	Category Category
	Reason   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Category, e.Reason)
}

// Result collects every violation found during validation rather than
// stopping at the first.
type Result struct {
	Errors []*Error
}

func (r *Result) add(cat Category, reason string) {
	r.Errors = append(r.Errors, &Error{Category: cat, Reason: reason})
}

// HasErrors reports whether any violation was recorded.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// IsValid is the inverse of HasErrors.
func (r *Result) IsValid() bool { return !r.HasErrors() }

// Error implements the error interface so a *Result can be returned
// directly as an error from Validate.
func (r *Result) Error() string {
	reasons := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		reasons[i] = e.Error()
	}
	return strings.Join(reasons, "; ")
}

// Merge appends another Result's errors onto r.
func (r *Result) Merge(other *Result) {
	r.Errors = append(r.Errors, other.Errors...)
}
