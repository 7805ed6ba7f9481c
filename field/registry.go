package field

import (
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/model"
)

// Control describes how a field is rendered by the page.
type Control struct {
	Input       string   `json:"input"`
	Placeholder string   `json:"placeholder,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Step        string   `json:"step,omitempty"`
	MaxLength   int      `json:"max_length,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// Kind is the per-type strategy: validation, input sanitizing and rendering.
// Validate is only called with non-blank values and returns "" when valid.
type Kind interface {
	Validate(f *model.Field, value string) string
	Sanitize(value string) string
	Control(f *model.Field) Control
}

var kinds = map[model.FieldType]Kind{
	model.PlainText:        textKind{input: "text"},
	model.LongText:         textKind{input: "textarea"},
	model.AlphabeticText:   textKind{input: "text", allowed: isAlpha, charsetMsg: "must contain only letters and spaces"},
	model.AlphanumericText: textKind{input: "text", allowed: isAlphanum, charsetMsg: "must contain only letters, numbers, and spaces"},
	model.Numerical:        numberKind{},
	model.Currency:         numberKind{currency: true},
	model.Boolean:          boolKind{},
	model.SingleChoice:     choiceKind{},
	model.MultiChoice:      choiceKind{multi: true},
	model.Email:            emailKind{},
	model.Phone:            phoneKind{},
	model.URL:              urlKind{},
	model.Date:             dateKind{},
}

var warned sync.Map

// Lookup returns the strategy for a field type. Unknown types are logged
// once and report ok=false.
func Lookup(t model.FieldType) (k Kind, ok bool) {
	k, ok = kinds[t]
	if !ok {
		if _, seen := warned.LoadOrStore(t, true); !seen {
			log.Warnf("field.lookup: unknown field type %q", t)
		}
	}
	return
}

// Render returns the control for f, or nil for unknown types.
func Render(f *model.Field) *Control {
	k, ok := Lookup(f.Type)
	if !ok {
		return nil
	}
	c := k.Control(f)
	return &c
}

// Sanitize strips characters the field type never accepts.
func Sanitize(f *model.Field, value string) string {
	k, ok := Lookup(f.Type)
	if !ok {
		return value
	}
	return k.Sanitize(value)
}

func placeholder(f *model.Field) string {
	return "Enter " + strings.ToLower(f.Label) + "..."
}

type textKind struct {
	input      string
	allowed    func(rune) bool
	charsetMsg string
}

func (k textKind) Validate(f *model.Field, value string) string {
	if b, ok := ParseBounds(f.TextBounds); ok {
		n := float64(utf8.RuneCountInString(value))
		if b.Below(n) {
			return f.Label + " must be at least " + FormatNumber(*b.Min) + " characters"
		}
		if b.Above(n) {
			return f.Label + " must be no more than " + FormatNumber(*b.Max) + " characters"
		}
	}
	if k.allowed != nil {
		for _, r := range value {
			if !k.allowed(r) {
				return f.Label + " " + k.charsetMsg
			}
		}
	}
	return ""
}

func (k textKind) Sanitize(value string) string {
	if k.allowed == nil {
		return value
	}
	return keepOnly(value, k.allowed)
}

func (k textKind) Control(f *model.Field) Control {
	c := Control{Input: k.input, Placeholder: placeholder(f)}
	if b, ok := ParseBounds(f.TextBounds); ok && b.Max != nil && *b.Max > 0 {
		c.MaxLength = int(*b.Max)
	}
	return c
}

type numberKind struct {
	currency bool
}

func (k numberKind) Validate(f *model.Field, value string) string {
	n, ok := ParseNumber(value)
	if !ok {
		return f.Label + " must be a valid number"
	}
	if k.currency && n < 0 {
		return f.Label + " must be a positive value"
	}
	if b, ok := ParseBounds(f.NumberBounds); ok {
		if b.Below(n) {
			return f.Label + " must be at least " + FormatNumber(*b.Min)
		}
		if b.Above(n) {
			return f.Label + " must be no more than " + FormatNumber(*b.Max)
		}
	}
	return ""
}

func (k numberKind) Sanitize(value string) string {
	return sanitizeNumber(value, !k.currency)
}

func (k numberKind) Control(f *model.Field) Control {
	c := Control{Input: "number", Placeholder: placeholder(f), Step: "any"}
	if k.currency {
		zero := 0.0
		c.Min, c.Step, c.Placeholder = &zero, "0.01", "e.g. 199.99"
	}
	if b, ok := ParseBounds(f.NumberBounds); ok {
		if b.Min != nil {
			c.Min = b.Min
		}
		c.Max = b.Max
	}
	return c
}

type boolKind struct{}

func (boolKind) Validate(f *model.Field, value string) string {
	if _, answered := DecodeBool(value); !answered {
		return "Please select an option for " + f.Label
	}
	return ""
}

func (boolKind) Sanitize(value string) string { return strings.TrimSpace(value) }

func (boolKind) Control(*model.Field) Control {
	return Control{Input: "radio", Options: []string{"Yes", "No"}}
}

type choiceKind struct {
	multi bool
}

func (k choiceKind) Validate(f *model.Field, value string) string {
	opts := SplitOptions(f.PossibleAnswers)
	if !k.multi {
		if len(opts) > 0 && !contains(opts, strings.TrimSpace(value)) {
			return "Please select a valid option for " + f.Label
		}
		return ""
	}
	selected := DecodeMulti(value)
	if len(selected) == 0 {
		if f.Required {
			return "Please select at least one option for " + f.Label
		}
		return ""
	}
	if len(opts) > 0 {
		for _, s := range selected {
			if !contains(opts, s) {
				return f.Label + " contains an invalid option"
			}
		}
	}
	return ""
}

// Sanitize reduces a choice value to the exact option text.
func (k choiceKind) Sanitize(value string) string {
	if k.multi {
		return EncodeMulti(DecodeMulti(value))
	}
	return strings.TrimSpace(value)
}

func (k choiceKind) Control(f *model.Field) Control {
	c := Control{Input: "select", Options: SplitOptions(f.PossibleAnswers)}
	if k.multi {
		c.Input = "checkbox"
	} else {
		c.Placeholder = "Select " + strings.ToLower(f.Label) + "..."
	}
	return c
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var reEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type emailKind struct{}

func (emailKind) Validate(f *model.Field, value string) string {
	if !reEmail.MatchString(value) {
		return f.Label + " must be a valid email address"
	}
	return ""
}

func (emailKind) Sanitize(value string) string { return strings.TrimSpace(value) }

func (emailKind) Control(f *model.Field) Control {
	return Control{Input: "email", Placeholder: placeholder(f)}
}

type phoneKind struct{}

func (phoneKind) Validate(f *model.Field, value string) string {
	if !strings.HasPrefix(value, "+") {
		return f.Label + " must be a valid international phone number"
	}
	digits := len(keepOnly(value, isASCIIDigit))
	if digits < 10 || digits > 15 {
		return f.Label + " must be a valid phone number"
	}
	return ""
}

func (phoneKind) Sanitize(value string) string { return sanitizePhone(value) }

func (phoneKind) Control(f *model.Field) Control {
	return Control{Input: "tel", Placeholder: placeholder(f)}
}

type urlKind struct{}

func (urlKind) Validate(f *model.Field, value string) string {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil || u.Scheme == "" || (u.Host == "" && u.Opaque == "") {
		return f.Label + " must be a valid URL"
	}
	return ""
}

func (urlKind) Sanitize(value string) string { return value }

func (urlKind) Control(*model.Field) Control {
	return Control{Input: "url", Placeholder: "https://example.com"}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

type dateKind struct{}

func (dateKind) Validate(f *model.Field, value string) string {
	if _, ok := ParseDate(value); !ok {
		return f.Label + " must be a valid date"
	}
	return ""
}

func (dateKind) Sanitize(value string) string { return strings.TrimSpace(value) }

func (dateKind) Control(*model.Field) Control {
	return Control{Input: "date"}
}

func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
