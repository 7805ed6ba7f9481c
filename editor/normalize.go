package editor

import (
	"strings"

	"github.com/mbolis/quick-form/field"
	"github.com/mbolis/quick-form/model"
)

// FieldInput is a field as entered in the admin editor. Bounds are the raw
// "min:max" strings of the two inputs.
type FieldInput struct {
	Label        string          `json:"label"`
	Description  string          `json:"description"`
	Type         model.FieldType `json:"field_type"`
	Required     bool            `json:"required"`
	Options      []string        `json:"options"`
	TextBounds   string          `json:"text_bounds"`
	NumberBounds string          `json:"number_bounds"`
}

// InputError is shown to the admin as is.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string {
	return e.Msg
}

// NormalizeField checks an editor input and converts it to the definition
// sent to the backend. Bounds that do not apply to the type are dropped.
func NormalizeField(in FieldInput) (f model.Field, err error) {
	f = model.Field{
		Label:       strings.TrimSpace(in.Label),
		Description: strings.TrimSpace(in.Description),
		Type:        in.Type,
		Required:    in.Required,
	}
	if f.Label == "" {
		return f, &InputError{"Please provide a label for this field."}
	}
	if _, ok := field.Lookup(in.Type); !ok {
		return f, &InputError{"Please select a valid field type."}
	}

	if in.Type.IsChoice() {
		opts := field.JoinOptions(in.Options)
		if opts == "" {
			return f, &InputError{"Please add at least one option for this field type."}
		}
		f.PossibleAnswers = &opts
	}

	switch in.Type {
	case model.PlainText, model.LongText:
		f.TextBounds, err = normalizeBounds(in.TextBounds, "text length", true)
	case model.Numerical, model.Currency:
		f.NumberBounds, err = normalizeBounds(in.NumberBounds, "number range", false)
	}
	return
}

func normalizeBounds(raw, what string, whole bool) (*string, error) {
	lo, hi, _ := strings.Cut(raw, ":")
	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)
	if lo == "" && hi == "" {
		return nil, nil
	}
	if lo == "" || hi == "" {
		return nil, &InputError{"Please provide both minimum and maximum values for " + what + " or leave both empty."}
	}

	lower, okLower := field.ParseNumber(lo)
	upper, okUpper := field.ParseNumber(hi)
	if !okLower || !okUpper {
		return nil, &InputError{"Minimum and maximum values for " + what + " must be numbers."}
	}
	if whole && (lower < 0 || lower != float64(int64(lower)) || upper != float64(int64(upper))) {
		return nil, &InputError{"Minimum and maximum values for " + what + " must be whole numbers."}
	}
	if lower > upper {
		return nil, &InputError{"Minimum value for " + what + " cannot be greater than the maximum."}
	}

	s := field.Bounds{Min: &lower, Max: &upper}.String()
	return &s, nil
}
