package field

import (
	"strings"

	"github.com/mbolis/quick-form/model"
)

// ValidationError is an inline, per-field validation failure.
type ValidationError struct {
	FieldID string
	Msg     string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validate checks a candidate value against the field definition and
// returns the first failing rule as a *ValidationError, or nil. Blank values
// only fail the required rule; unknown field types always pass.
func Validate(f *model.Field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		if f.Required {
			return &ValidationError{f.ID, f.Label + " is required"}
		}
		return nil
	}

	k, ok := Lookup(f.Type)
	if !ok {
		return nil
	}
	if msg := k.Validate(f, raw); msg != "" {
		return &ValidationError{f.ID, msg}
	}
	return nil
}
