package fill

import (
	"github.com/mbolis/quick-form/field"
	"github.com/mbolis/quick-form/model"
)

type View struct {
	Form        model.Form      `json:"form"`
	Fields      []FieldView     `json:"fields"`
	State       string          `json:"state"`
	Banner      string          `json:"banner,omitempty"`
	Translation TranslationView `json:"translation"`
}

type FieldView struct {
	model.Field
	Control   field.Control `json:"control"`
	Value     string        `json:"value"`
	Error     string        `json:"error,omitempty"`
	SaveError string        `json:"save_error,omitempty"`
	Dirty     bool          `json:"dirty"`
}

type TranslationView struct {
	Mode     string         `json:"mode"`
	Language model.Language `json:"language,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// View renders the form as the filler currently sees it. Fields of unknown
// type are left out.
func (s *Session) View() View {
	s.touch()

	values := s.draft.Values()
	errs := s.draft.Errors()
	saveErrs := s.draft.SaveErrors()

	v := View{
		Form:   s.overlay.Form(),
		Fields: make([]FieldView, 0, len(s.fields)),
		State:  s.draft.State(),
		Banner: s.draft.Banner(),
		Translation: TranslationView{
			Mode: s.overlay.Mode().String(),
		},
	}
	if v.Translation.Mode != "off" {
		v.Translation.Language = s.overlay.Language()
	}
	if err := s.overlay.Err(); err != nil {
		v.Translation.Error = "Failed to translate form. Showing the original text."
	}

	for i := range s.fields {
		canonical := &s.fields[i]
		display := s.overlay.Field(*canonical)
		control := field.Render(&display)
		if control == nil {
			continue
		}
		v.Fields = append(v.Fields, FieldView{
			Field:     display,
			Control:   *control,
			Value:     s.overlay.Forward(canonical, values[canonical.ID]),
			Error:     errs[canonical.ID],
			SaveError: saveErrs[canonical.ID],
			Dirty:     s.draft.IsDirty(canonical.ID),
		})
	}
	return v
}
