package draft

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/looplab/fsm"
	"github.com/pkg/errors"

	"github.com/mbolis/quick-form/log"
)

const (
	StateEmpty      = "empty"
	StateEditing    = "editing"
	StateSaving     = "saving"
	StateSubmitting = "submitting"
	StateSubmitted  = "submitted"
)

const (
	eventEdit         = "edit"
	eventSave         = "save"
	eventSaved        = "saved"
	eventSubmit       = "submit"
	eventSubmitFailed = "submit_failed"
	eventSubmitted    = "submitted"
)

const (
	SaveErrorMsg    = "Failed to save this answer. It will be retried automatically."
	SaveBannerMsg   = "Failed to save some of your responses. Please try again."
	SubmitBannerMsg = "Failed to submit form. Please check your responses and try again."
)

var (
	ErrSubmitted  = errors.New("draft: already submitted")
	ErrSubmitting = errors.New("draft: submit in progress")
	ErrInvalid    = errors.New("draft: validation failed")
)

// Pusher is the part of the backend the draft writes to.
type Pusher interface {
	SubmitFieldResponse(ctx context.Context, fieldID, value string) error
	FinalizeSession(ctx context.Context, formID string) error
}

// Validator returns the inline error for a candidate value, or nil.
type Validator func(fieldID, value string) error

// Draft is the in-memory response of one filler to one form. The maps are
// never mutated in place: every change swaps in a new map, so snapshots
// handed out under the lock stay consistent.
type Draft struct {
	formID   string
	fieldIDs []string
	api      Pusher
	validate Validator

	mu         sync.Mutex
	machine    *fsm.FSM
	values     map[string]string
	dirty      map[string]bool
	errors     map[string]string
	saveErrors map[string]string
	banner     string
	saving     int
}

func New(formID string, fieldIDs []string, api Pusher, validate Validator) *Draft {
	d := &Draft{
		formID:     formID,
		fieldIDs:   fieldIDs,
		api:        api,
		validate:   validate,
		values:     map[string]string{},
		dirty:      map[string]bool{},
		errors:     map[string]string{},
		saveErrors: map[string]string{},
	}
	d.machine = fsm.NewFSM(
		StateEmpty,
		fsm.Events{
			{Name: eventEdit, Src: []string{StateEmpty}, Dst: StateEditing},
			{Name: eventSave, Src: []string{StateEditing}, Dst: StateSaving},
			{Name: eventSaved, Src: []string{StateSaving}, Dst: StateEditing},
			{Name: eventSubmit, Src: []string{StateEmpty, StateEditing, StateSaving}, Dst: StateSubmitting},
			{Name: eventSubmitFailed, Src: []string{StateSubmitting}, Dst: StateEditing},
			{Name: eventSubmitted, Src: []string{StateSubmitting}, Dst: StateSubmitted},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debugf("draft.state: form %s: %s -> %s", formID, e.Src, e.Dst)
			},
		},
	)
	return d
}

// Hydrate loads answers saved in an earlier visit. It only applies to an
// empty draft.
func (d *Draft) Hydrate(answers map[string]string, submitted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.machine.Is(StateEmpty) {
		return
	}
	values := make(map[string]string, len(answers))
	for id, v := range answers {
		if !blank(v) {
			values[id] = v
		}
	}
	d.values = values

	switch {
	case submitted:
		d.machine.SetState(StateSubmitted)
	case len(values) > 0:
		d.fire(eventEdit)
	}
}

// Edit records a new value for a field. Prior inline and save errors for the
// field are cleared; the value is then validated, and only a valid non-blank
// value is marked dirty for autosave.
func (d *Draft) Edit(fieldID, value string) error {
	return d.Update(fieldID, func(string) string { return value })
}

// Update is Edit with the new value computed from the current one, all
// under one lock hold.
func (d *Draft) Update(fieldID string, fn func(old string) string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.machine.Is(StateSubmitted) {
		return ErrSubmitted
	}
	value := fn(d.values[fieldID])
	d.fire(eventEdit)

	values := clone(d.values)
	if value == "" {
		delete(values, fieldID)
	} else {
		values[fieldID] = value
	}
	errs := without(d.errors, fieldID)
	dirty := without(d.dirty, fieldID)

	var verr error
	if d.validate != nil {
		verr = d.validate(fieldID, value)
	}
	if verr != nil {
		errs[fieldID] = verr.Error()
	} else if !blank(value) {
		dirty[fieldID] = true
	}

	d.values = values
	d.errors = errs
	d.dirty = dirty
	d.saveErrors = without(d.saveErrors, fieldID)
	return nil
}

type pending struct {
	fieldID string
	value   string
}

// Autosave pushes every dirty field once. A failure is attached to its field
// and does not stop the others.
func (d *Draft) Autosave(ctx context.Context) {
	batch := d.beginSave()
	if len(batch) == 0 {
		return
	}
	defer d.endSave()

	for _, p := range batch {
		if err := d.push(ctx, p); err != nil {
			log.WithFields(log.Fields{"form": d.formID, "field": p.fieldID}).
				Warnf("draft.autosave.push: %s", err)
			d.mu.Lock()
			saveErrors := clone(d.saveErrors)
			saveErrors[p.fieldID] = SaveErrorMsg
			d.saveErrors = saveErrors
			d.mu.Unlock()
		}
	}
}

// Save pushes every dirty field on demand. Failures are reported together
// through the banner instead of per field.
func (d *Draft) Save(ctx context.Context) error {
	batch := d.beginSave()
	if len(batch) == 0 {
		return nil
	}
	defer d.endSave()

	var result *multierror.Error
	for _, p := range batch {
		if err := d.push(ctx, p); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "field %s", p.fieldID))
		}
	}

	d.mu.Lock()
	if result != nil {
		d.banner = SaveBannerMsg
	} else {
		d.banner = ""
	}
	d.mu.Unlock()
	return result.ErrorOrNil()
}

// Submit validates every field, re-sends all non-blank values one after the
// other and finalizes the session. Any failure leaves the draft editable.
func (d *Draft) Submit(ctx context.Context) error {
	d.mu.Lock()
	switch {
	case d.machine.Is(StateSubmitted):
		d.mu.Unlock()
		return ErrSubmitted
	case d.machine.Is(StateSubmitting):
		d.mu.Unlock()
		return ErrSubmitting
	}

	errs := map[string]string{}
	if d.validate != nil {
		for _, id := range d.fieldIDs {
			if err := d.validate(id, d.values[id]); err != nil {
				errs[id] = err.Error()
			}
		}
	}
	d.errors = errs
	if len(errs) > 0 {
		d.mu.Unlock()
		return ErrInvalid
	}
	d.fire(eventSubmit)
	d.banner = ""
	d.mu.Unlock()

	err := d.flush(ctx)
	if err == nil {
		err = d.api.FinalizeSession(ctx, d.formID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		log.WithFields(log.Fields{"form": d.formID}).Warnf("draft.submit: %s", err)
		d.fire(eventSubmitFailed)
		if d.saving > 0 {
			d.fire(eventSave)
		}
		d.banner = SubmitBannerMsg
		return errors.Wrap(err, "draft: submit")
	}
	d.fire(eventSubmitted)
	d.dirty = map[string]bool{}
	d.saveErrors = map[string]string{}
	return nil
}

func (d *Draft) flush(ctx context.Context) error {
	for _, id := range d.fieldIDs {
		d.mu.Lock()
		value := d.values[id]
		d.mu.Unlock()
		if blank(value) {
			continue
		}
		if err := d.push(ctx, pending{id, value}); err != nil {
			return errors.Wrapf(err, "field %s", id)
		}
	}
	return nil
}

func (d *Draft) beginSave() []pending {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.machine.Is(StateSubmitted) {
		return nil
	}
	ids := make([]string, 0, len(d.dirty))
	for id := range d.dirty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return d.order(ids[i]) < d.order(ids[j]) })

	batch := make([]pending, 0, len(ids))
	for _, id := range ids {
		if v := d.values[id]; !blank(v) {
			batch = append(batch, pending{id, v})
		}
	}
	if len(batch) > 0 {
		d.saving++
		d.fire(eventSave)
	}
	return batch
}

func (d *Draft) endSave() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.saving--
	if d.saving == 0 {
		d.fire(eventSaved)
	}
}

// push sends the value captured in p. The field is only marked clean when it
// still holds that value, so an edit made while the request was in flight
// stays dirty.
func (d *Draft) push(ctx context.Context, p pending) error {
	if err := d.api.SubmitFieldResponse(ctx, p.fieldID, p.value); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.values[p.fieldID] == p.value {
		d.dirty = without(d.dirty, p.fieldID)
	}
	d.saveErrors = without(d.saveErrors, p.fieldID)
	return nil
}

func (d *Draft) order(fieldID string) int {
	for i, id := range d.fieldIDs {
		if id == fieldID {
			return i
		}
	}
	return len(d.fieldIDs)
}

// fire triggers event if the current state allows it. Must hold d.mu.
func (d *Draft) fire(event string) {
	if !d.machine.Can(event) {
		return
	}
	if err := d.machine.Event(context.Background(), event); err != nil {
		log.Warnf("draft.fsm: %s: %s", event, err)
	}
}

func (d *Draft) State() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.machine.Current()
}

func (d *Draft) Value(fieldID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values[fieldID]
}

func (d *Draft) Values() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return clone(d.values)
}

func (d *Draft) Errors() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return clone(d.errors)
}

func (d *Draft) SaveErrors() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return clone(d.saveErrors)
}

func (d *Draft) Banner() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.banner
}

func (d *Draft) IsDirty(fieldID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty[fieldID]
}

func (d *Draft) DismissBanner() {
	d.mu.Lock()
	d.banner = ""
	d.mu.Unlock()
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func clone[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func without[V any](m map[string]V, key string) map[string]V {
	out := clone(m)
	delete(out, key)
	return out
}
