package translate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mbolis/quick-form/field"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/model"
)

var ErrUnsupportedLanguage = errors.New("translate: unsupported language")

// Translator is the part of the backend the overlay reads from.
type Translator interface {
	TranslateForm(ctx context.Context, formID string, lang model.Language) (model.FormTranslation, error)
	TranslateFragment(ctx context.Context, text string, lang model.Language) (string, error)
}

type Mode int

const (
	ModeOff Mode = iota
	ModeHover
	ModeFull
)

func (m Mode) String() string {
	switch m {
	case ModeHover:
		return "hover"
	case ModeFull:
		return "full"
	}
	return "off"
}

type Options struct {
	HoverDelay  time.Duration
	TouchDelay  time.Duration
	TouchLinger time.Duration
}

var DefaultOptions = Options{
	HoverDelay:  300 * time.Millisecond,
	TouchDelay:  100 * time.Millisecond,
	TouchLinger: 3 * time.Second,
}

const fragmentTimeout = 30 * time.Second

// Overlay switches a form between its original text, a full translation
// snapshot and on-demand hover translations. Hover and full mode are
// mutually exclusive; every switch bumps gen so late results from the
// previous mode are dropped.
type Overlay struct {
	api       Translator
	form      model.Form
	canonical []model.Field
	opts      Options
	cache     *Cache

	mu       sync.Mutex
	mode     Mode
	lang     model.Language
	snapshot *Snapshot
	err      error
	gen      int
	hover    map[string]*hoverState
}

func NewOverlay(api Translator, form model.Form, fields []model.Field, opts Options) *Overlay {
	if opts.HoverDelay <= 0 {
		opts.HoverDelay = DefaultOptions.HoverDelay
	}
	if opts.TouchDelay <= 0 {
		opts.TouchDelay = DefaultOptions.TouchDelay
	}
	if opts.TouchLinger <= 0 {
		opts.TouchLinger = DefaultOptions.TouchLinger
	}
	return &Overlay{
		api:       api,
		form:      form,
		canonical: fields,
		opts:      opts,
		cache:     NewCache(),
		hover:     map[string]*hoverState{},
	}
}

// TranslateAll replaces any hover state with a full snapshot in lang. On
// failure the original text stays on display and the error is kept until
// dismissed.
func (o *Overlay) TranslateAll(ctx context.Context, lang model.Language) error {
	if !lang.Supported() {
		return ErrUnsupportedLanguage
	}

	o.mu.Lock()
	o.resetHover()
	o.cache.Clear()
	if o.mode == ModeHover {
		o.mode = ModeOff
	}
	o.gen++
	gen := o.gen
	o.mu.Unlock()

	tr, err := o.api.TranslateForm(ctx, o.form.ID, lang)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		log.Debugf("translate.full: form %s: discarding superseded translation", o.form.ID)
		return nil
	}
	if err != nil {
		o.err = errors.Wrapf(err, "translate: form %s to %s", o.form.ID, lang)
		log.Warnf("translate.full: %s", o.err)
		return o.err
	}
	o.snapshot = NewSnapshot(lang, o.form, o.canonical, tr)
	o.mode = ModeFull
	o.lang = lang
	o.err = nil
	return nil
}

// ShowOriginal drops the full snapshot.
func (o *Overlay) ShowOriginal() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshot = nil
	if o.mode == ModeFull {
		o.mode = ModeOff
	}
	o.gen++
}

// SetHover toggles hover mode. Enabling it discards any full snapshot;
// disabling it clears the cache and whatever is on display.
func (o *Overlay) SetHover(enabled bool, lang model.Language) error {
	if enabled && !lang.Supported() {
		return ErrUnsupportedLanguage
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	if enabled {
		o.snapshot = nil
		o.mode = ModeHover
		o.lang = lang
		o.resetHover()
		return nil
	}
	if o.mode == ModeHover {
		o.mode = ModeOff
	}
	o.resetHover()
	o.cache.Clear()
	return nil
}

// TranslateFragment translates one piece of text in hover mode. Failures
// fall back silently to the original text.
func (o *Overlay) TranslateFragment(ctx context.Context, text string) string {
	o.mu.Lock()
	gen := o.gen
	o.mu.Unlock()
	return o.fragment(ctx, text, gen)
}

// fragment translates text only while the overlay is still at gen. A result
// arriving after a mode switch is dropped instead of cached.
func (o *Overlay) fragment(ctx context.Context, text string, gen int) string {
	o.mu.Lock()
	mode, lang, current := o.mode, o.lang, o.gen == gen
	o.mu.Unlock()

	key := strings.TrimSpace(text)
	if !current || mode != ModeHover || key == "" {
		return text
	}
	if cached, ok := o.cache.Get(key, lang); ok {
		return cached
	}

	translated, err := o.api.TranslateFragment(ctx, key, lang)
	if err != nil {
		log.Debugf("translate.fragment: %s", err)
		return text
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		log.Debugf("translate.fragment: discarding stale translation of %q", key)
		return text
	}
	o.cache.Put(key, lang, translated)
	return translated
}

func (o *Overlay) Mode() Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

func (o *Overlay) Language() model.Language {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lang
}

// Err returns the last full-translation failure, if not dismissed.
func (o *Overlay) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

func (o *Overlay) DismissError() {
	o.mu.Lock()
	o.err = nil
	o.mu.Unlock()
}

func (o *Overlay) Cache() *Cache {
	return o.cache
}

func (o *Overlay) current() *Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot
}

// Form returns the form as displayed.
func (o *Overlay) Form() model.Form {
	if s := o.current(); s != nil {
		return s.Form()
	}
	return o.form
}

// Field returns the field definition as displayed.
func (o *Overlay) Field(f model.Field) model.Field {
	if s := o.current(); s != nil {
		if display, ok := s.Field(f.ID); ok {
			return display
		}
	}
	return f
}

// Forward maps a stored canonical value to the text displayed for it.
func (o *Overlay) Forward(f *model.Field, value string) string {
	s := o.current()
	if s == nil || value == "" {
		return value
	}
	return mapValue(f, value, s.Forward)
}

// Backward maps a value chosen among displayed options back to canonical.
func (o *Overlay) Backward(f *model.Field, value string) string {
	s := o.current()
	if s == nil || value == "" {
		return value
	}
	return mapValue(f, value, s.Backward)
}

func mapValue(f *model.Field, value string, fn func(fieldID, v string) string) string {
	switch f.Type {
	case model.SingleChoice:
		return fn(f.ID, strings.TrimSpace(value))
	case model.MultiChoice:
		parts := field.DecodeMulti(value)
		for i, p := range parts {
			parts[i] = fn(f.ID, p)
		}
		return field.EncodeMulti(parts)
	}
	return value
}

// Close stops every pending hover timer.
func (o *Overlay) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	o.resetHover()
}
