package translate

import (
	"github.com/mbolis/quick-form/field"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/model"
)

// OptionPair ties a canonical option to the text displayed for it.
type OptionPair struct {
	Canonical  string
	Translated string
}

// Snapshot is an immutable full-form translation. Choice options are kept
// as explicit pairs, so mapping values never depends on re-splitting
// strings at lookup time.
type Snapshot struct {
	Language model.Language

	form   model.Form
	fields map[string]model.Field
	pairs  map[string][]OptionPair
}

// NewSnapshot merges a backend translation onto the canonical definitions.
// Translated fields are matched by ID, falling back to position when the
// backend omits IDs. Anything missing stays untranslated.
func NewSnapshot(lang model.Language, form model.Form, canonical []model.Field, tr model.FormTranslation) *Snapshot {
	s := &Snapshot{
		Language: lang,
		form:     form,
		fields:   make(map[string]model.Field, len(canonical)),
		pairs:    map[string][]OptionPair{},
	}
	if tr.Form.Label != "" {
		s.form.Label = tr.Form.Label
	}
	if tr.Form.Description != nil && *tr.Form.Description != "" {
		s.form.Description = tr.Form.Description
	}

	byID := make(map[string]model.Field, len(tr.Fields))
	for _, f := range tr.Fields {
		if f.ID != "" {
			byID[f.ID] = f
		}
	}

	for i, cf := range canonical {
		tf, ok := byID[cf.ID]
		if !ok && i < len(tr.Fields) && tr.Fields[i].ID == "" {
			tf, ok = tr.Fields[i], true
		}

		display := cf
		if ok {
			if tf.Label != "" {
				display.Label = tf.Label
			}
			if tf.Description != "" {
				display.Description = tf.Description
			}
		}
		if cf.Type.IsChoice() {
			var translated []string
			if ok {
				translated = field.SplitOptions(tf.PossibleAnswers)
			}
			pairs := pairOptions(cf.ID, field.SplitOptions(cf.PossibleAnswers), translated)
			s.pairs[cf.ID] = pairs
			shown := make([]string, len(pairs))
			for j, p := range pairs {
				shown[j] = p.Translated
			}
			display.PossibleAnswers = model.Str(field.JoinOptions(shown))
		}
		s.fields[cf.ID] = display
	}
	return s
}

// pairOptions pairs options by index. When the counts differ the
// correspondence cannot be trusted and every option maps to itself.
func pairOptions(fieldID string, canonical, translated []string) []OptionPair {
	pairs := make([]OptionPair, len(canonical))
	trusted := len(canonical) == len(translated)
	if !trusted && len(translated) > 0 {
		log.WithFields(log.Fields{"field": fieldID}).
			Warnf("translate.snapshot: %d canonical options, %d translated; keeping originals", len(canonical), len(translated))
	}
	for i, c := range canonical {
		pairs[i] = OptionPair{Canonical: c, Translated: c}
		if trusted {
			pairs[i].Translated = translated[i]
		}
	}
	return pairs
}

func (s *Snapshot) Form() model.Form {
	return s.form
}

func (s *Snapshot) Field(id string) (model.Field, bool) {
	f, ok := s.fields[id]
	return f, ok
}

func (s *Snapshot) Options(fieldID string) []OptionPair {
	return s.pairs[fieldID]
}

// Forward maps a canonical option to its displayed text, passing unknown
// values through.
func (s *Snapshot) Forward(fieldID, canonical string) string {
	for _, p := range s.pairs[fieldID] {
		if p.Canonical == canonical {
			return p.Translated
		}
	}
	return canonical
}

// Backward maps displayed option text to the canonical option, passing
// unknown values through.
func (s *Snapshot) Backward(fieldID, translated string) string {
	for _, p := range s.pairs[fieldID] {
		if p.Translated == translated {
			return p.Canonical
		}
	}
	return translated
}
