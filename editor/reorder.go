package editor

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/mbolis/quick-form/fill"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/model"
)

var ErrOutOfRange = errors.New("editor: position out of range")

// Backend is the part of the backend the editor writes to.
type Backend interface {
	GetFormFields(ctx context.Context, formID string) ([]model.Field, error)
	CreateField(ctx context.Context, formID string, f model.Field) (model.Field, error)
	UpdateField(ctx context.Context, f model.Field) (model.Field, error)
}

// Cache keeps the ordered field list of each form being edited.
type Cache struct {
	mu    sync.Mutex
	forms map[string][]model.Field
}

func NewCache() *Cache {
	return &Cache{forms: map[string][]model.Field{}}
}

// Load returns the cached fields of a form, fetching them on first use.
func (c *Cache) Load(ctx context.Context, api Backend, formID string) ([]model.Field, error) {
	if fields, ok := c.Fields(formID); ok {
		return fields, nil
	}
	fields, err := api.GetFormFields(ctx, formID)
	if err != nil {
		return nil, errors.Wrap(err, "editor: load fields")
	}
	fill.SortFields(fields)
	c.Set(formID, fields)
	return c.copyOf(fields), nil
}

func (c *Cache) Fields(formID string) ([]model.Field, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fields, ok := c.forms[formID]
	return c.copyOf(fields), ok
}

func (c *Cache) Set(formID string, fields []model.Field) {
	c.mu.Lock()
	c.forms[formID] = c.copyOf(fields)
	c.mu.Unlock()
}

func (c *Cache) Forget(formID string) {
	c.mu.Lock()
	delete(c.forms, formID)
	c.mu.Unlock()
}

func (*Cache) copyOf(fields []model.Field) []model.Field {
	if fields == nil {
		return nil
	}
	return append([]model.Field(nil), fields...)
}

// Create validates the input and appends the new field at the end of the
// form.
func Create(ctx context.Context, cache *Cache, api Backend, formID string, in FieldInput) (created model.Field, err error) {
	f, err := NormalizeField(in)
	if err != nil {
		return
	}
	fields, err := cache.Load(ctx, api, formID)
	if err != nil {
		return
	}
	position := len(fields)
	f.FormID = formID
	f.Position = &position

	created, err = api.CreateField(ctx, formID, f)
	if err != nil {
		err = errors.Wrap(err, "editor: create field")
		return
	}
	cache.Set(formID, append(fields, created))
	return
}

// Reorder moves the field at index from to index to. The new order shows
// at once; if persisting any position fails the previous order is put back.
func Reorder(ctx context.Context, cache *Cache, api Backend, formID string, from, to int) error {
	snapshot, err := cache.Load(ctx, api, formID)
	if err != nil {
		return err
	}
	if from < 0 || from >= len(snapshot) || to < 0 || to >= len(snapshot) {
		return ErrOutOfRange
	}
	if from == to {
		return nil
	}

	moved := move(snapshot, from, to)
	cache.Set(formID, moved)

	for i := range moved {
		if samePosition(moved[i].Position, snapshot, moved[i].ID) {
			continue
		}
		if _, err := api.UpdateField(ctx, moved[i]); err != nil {
			log.WithFields(log.Fields{"form": formID, "field": moved[i].ID}).
				Warnf("editor.reorder.update: %s", err)
			cache.Set(formID, snapshot)
			return errors.Wrap(err, "editor: reorder")
		}
	}
	return nil
}

// move returns a copy of fields with one entry moved and every position
// renumbered from zero.
func move(fields []model.Field, from, to int) []model.Field {
	out := make([]model.Field, 0, len(fields))
	out = append(out, fields[:from]...)
	out = append(out, fields[from+1:]...)
	out = append(out[:to], append([]model.Field{fields[from]}, out[to:]...)...)
	for i := range out {
		p := i
		out[i].Position = &p
	}
	return out
}

func samePosition(p *int, before []model.Field, id string) bool {
	for _, f := range before {
		if f.ID == id {
			return f.Position != nil && p != nil && *f.Position == *p
		}
	}
	return false
}
