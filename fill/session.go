package fill

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/mbolis/quick-form/backend"
	"github.com/mbolis/quick-form/draft"
	"github.com/mbolis/quick-form/field"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/model"
	"github.com/mbolis/quick-form/translate"
)

var (
	ErrUnknownField = errors.New("fill: unknown field")
	ErrFormClosed   = errors.New("fill: form is closed")
)

// Backend is every collaborator call a fill session makes.
type Backend interface {
	draft.Pusher
	translate.Translator
	GetForm(ctx context.Context, formID string) (model.Form, error)
	GetFormFields(ctx context.Context, formID string) ([]model.Field, error)
	GetCurrentSession(ctx context.Context) (model.AnswerSession, error)
}

type Options struct {
	AutosaveInterval time.Duration
	Translation      translate.Options
}

// Session is one filler working on one form: the loaded definitions, the
// draft with its autosave task and the translation overlay.
type Session struct {
	api      Backend
	form     model.Form
	fields   []model.Field
	byID     map[string]*model.Field
	draft    *draft.Draft
	autosave *draft.Autosaver
	overlay  *translate.Overlay
	lastUsed atomic.Int64
}

// Open loads the form, hydrates the draft from the backend session if it
// belongs to this form, and starts autosaving.
func Open(ctx context.Context, api Backend, formID string, opts Options) (*Session, error) {
	form, err := api.GetForm(ctx, formID)
	if err != nil {
		return nil, errors.Wrap(err, "fill: load form")
	}
	if !Accepting(form, time.Now()) {
		return nil, ErrFormClosed
	}
	fields, err := api.GetFormFields(ctx, formID)
	if err != nil {
		return nil, errors.Wrap(err, "fill: load fields")
	}
	SortFields(fields)

	s := &Session{
		api:    api,
		form:   form,
		fields: fields,
		byID:   make(map[string]*model.Field, len(fields)),
	}
	ids := make([]string, len(fields))
	for i := range fields {
		s.byID[fields[i].ID] = &fields[i]
		ids[i] = fields[i].ID
	}
	s.overlay = translate.NewOverlay(api, form, fields, opts.Translation)
	s.draft = draft.New(formID, ids, api, s.validate)

	saved, err := api.GetCurrentSession(ctx)
	switch {
	case errors.Is(err, backend.ErrNotFound):
	case err != nil:
		log.Warnf("fill.open.session: %s", err)
	case saved.FormID == formID:
		answers := make(map[string]string, len(saved.Answers))
		for _, a := range saved.Answers {
			if _, ok := s.byID[a.FieldID]; ok && a.Value != nil {
				answers[a.FieldID] = *a.Value
			}
		}
		s.draft.Hydrate(answers, saved.Submitted)
	}

	s.autosave = draft.NewAutosaver(s.draft, opts.AutosaveInterval)
	s.autosave.Start(context.Background())
	s.touch()
	return s, nil
}

// Accepting reports whether the form takes new responses at now.
func Accepting(form model.Form, now time.Time) bool {
	if !form.Open {
		return false
	}
	if form.Deadline != nil && now.After(*form.Deadline) {
		return false
	}
	if form.SubmissionsLimit != nil && form.Submissions >= *form.SubmissionsLimit {
		return false
	}
	return true
}

// SortFields orders fields by position; fields without one keep their
// relative order at the end.
func SortFields(fields []model.Field) {
	sort.SliceStable(fields, func(i, j int) bool {
		pi, pj := fields[i].Position, fields[j].Position
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		}
		return *pi < *pj
	})
}

// validate checks the canonical constraints but reports with the label the
// filler is currently reading.
func (s *Session) validate(fieldID, value string) error {
	f, ok := s.byID[fieldID]
	if !ok {
		return nil
	}
	check := *f
	check.Label = s.overlay.Field(*f).Label
	return field.Validate(&check, value)
}

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) FormID() string {
	return s.form.ID
}

// Cookies returns what the backend has set for this filler so far, when the
// backend client keeps a cookie jar.
func (s *Session) Cookies() []*http.Cookie {
	if jar, ok := s.api.(interface{ Cookies() []*http.Cookie }); ok {
		return jar.Cookies()
	}
	return nil
}

func (s *Session) Draft() *draft.Draft {
	return s.draft
}

func (s *Session) Overlay() *translate.Overlay {
	return s.overlay
}

// Edit takes the value as the filler sees it, sanitizes it and maps it back
// to canonical before it reaches the draft.
func (s *Session) Edit(fieldID, value string) error {
	f, ok := s.byID[fieldID]
	if !ok {
		return ErrUnknownField
	}
	s.touch()
	value = field.Sanitize(f, value)
	value = s.overlay.Backward(f, value)
	return s.draft.Edit(fieldID, value)
}

// Toggle selects or deselects one displayed option of a multichoice field.
func (s *Session) Toggle(fieldID, option string, selected bool) error {
	f, ok := s.byID[fieldID]
	if !ok || f.Type != model.MultiChoice {
		return ErrUnknownField
	}
	s.touch()
	canonical := s.overlay.Backward(&model.Field{ID: f.ID, Type: model.SingleChoice}, option)
	return s.draft.Update(fieldID, func(old string) string {
		return field.Toggle(old, canonical, selected)
	})
}

func (s *Session) Save(ctx context.Context) error {
	s.touch()
	return s.draft.Save(ctx)
}

// Submit finalizes the response. Autosave stops once the session is
// submitted.
func (s *Session) Submit(ctx context.Context) error {
	s.touch()
	if err := s.draft.Submit(ctx); err != nil {
		return err
	}
	s.autosave.Stop()
	return nil
}

func (s *Session) TranslateAll(ctx context.Context, lang model.Language) error {
	s.touch()
	return s.overlay.TranslateAll(ctx, lang)
}

func (s *Session) ShowOriginal() {
	s.touch()
	s.overlay.ShowOriginal()
}

func (s *Session) SetHover(enabled bool, lang model.Language) error {
	s.touch()
	return s.overlay.SetHover(enabled, lang)
}

func (s *Session) Hover(text string, touch bool) {
	s.touch()
	s.overlay.Hover(text, touch)
}

func (s *Session) Leave(text string) {
	s.overlay.Leave(text)
}

func (s *Session) Visible(text string) (string, bool) {
	return s.overlay.Visible(text)
}

// Fragment translates a piece of text right away, bypassing the hover
// debounce. Outside hover mode the text comes back unchanged.
func (s *Session) Fragment(ctx context.Context, text string) string {
	s.touch()
	return s.overlay.TranslateFragment(ctx, text)
}

// Close stops autosave and hover timers. The session must not be used
// afterwards.
func (s *Session) Close() {
	s.autosave.Stop()
	s.overlay.Close()
}
