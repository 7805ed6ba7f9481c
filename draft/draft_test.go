package draft

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/quick-form/field"
	"github.com/mbolis/quick-form/model"
)

type fakeBackend struct {
	mu          sync.Mutex
	pushes      []string
	committed   map[string]string
	failFields  map[string]bool
	finalizeErr error
	finalized   int
	onPush      func(fieldID string)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{committed: map[string]string{}, failFields: map[string]bool{}}
}

func (b *fakeBackend) SubmitFieldResponse(_ context.Context, fieldID, value string) error {
	if b.onPush != nil {
		b.onPush(fieldID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pushes = append(b.pushes, fieldID)
	if b.failFields[fieldID] {
		return errors.New("backend unavailable")
	}
	b.committed[fieldID] = value
	return nil
}

func (b *fakeBackend) FinalizeSession(_ context.Context, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalizeErr != nil {
		return b.finalizeErr
	}
	b.finalized++
	return nil
}

func (b *fakeBackend) setFail(fieldID string, fail bool) {
	b.mu.Lock()
	b.failFields[fieldID] = fail
	b.mu.Unlock()
}

func (b *fakeBackend) pushed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.pushes...)
}

func (b *fakeBackend) snapshot() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := map[string]string{}
	for k, v := range b.committed {
		out[k] = v
	}
	return out
}

var testFields = []model.Field{
	{ID: "name", Label: "Name", Type: model.PlainText, Required: true},
	{ID: "email", Label: "Email", Type: model.Email},
	{ID: "age", Label: "Age", Type: model.Numerical, NumberBounds: model.Str("18:99")},
}

func newDraft(api Pusher) *Draft {
	byID := map[string]*model.Field{}
	ids := make([]string, len(testFields))
	for i := range testFields {
		byID[testFields[i].ID] = &testFields[i]
		ids[i] = testFields[i].ID
	}
	return New("form1", ids, api, func(fieldID, value string) error {
		return field.Validate(byID[fieldID], value)
	})
}

func TestEditMarksDirty(t *testing.T) {
	d := newDraft(newFakeBackend())
	assert.Equal(t, StateEmpty, d.State())

	require.NoError(t, d.Edit("name", "Ada"))
	assert.Equal(t, StateEditing, d.State())
	assert.True(t, d.IsDirty("name"))
	assert.Equal(t, "Ada", d.Value("name"))

	require.NoError(t, d.Edit("name", ""))
	assert.False(t, d.IsDirty("name"))
	_, present := d.Values()["name"]
	assert.False(t, present)
}

func TestEditInvalidValueIsNotDirty(t *testing.T) {
	d := newDraft(newFakeBackend())

	require.NoError(t, d.Edit("email", "not-an-email"))
	assert.False(t, d.IsDirty("email"))
	assert.Equal(t, "Email must be a valid email address", d.Errors()["email"])

	require.NoError(t, d.Edit("email", "a@b.com"))
	assert.True(t, d.IsDirty("email"))
	assert.NotContains(t, d.Errors(), "email")
}

func TestUpdateIsAtomic(t *testing.T) {
	d := newDraft(newFakeBackend())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Update("name", func(old string) string { return old + "x" }))
		}()
	}
	wg.Wait()
	assert.Equal(t, strings.Repeat("x", 20), d.Value("name"))
	assert.True(t, d.IsDirty("name"))
}

func TestUpdateAfterSubmit(t *testing.T) {
	d := newDraft(newFakeBackend())
	d.Hydrate(map[string]string{"name": "Ada"}, true)

	called := false
	err := d.Update("name", func(old string) string { called = true; return old })
	assert.ErrorIs(t, err, ErrSubmitted)
	assert.False(t, called)
}

func TestAutosaveIsolatesFailures(t *testing.T) {
	api := newFakeBackend()
	api.setFail("email", true)
	d := newDraft(api)

	require.NoError(t, d.Edit("name", "Ada"))
	require.NoError(t, d.Edit("email", "ada@example.com"))

	d.Autosave(context.Background())

	assert.Equal(t, []string{"name", "email"}, api.pushed())
	assert.False(t, d.IsDirty("name"))
	assert.True(t, d.IsDirty("email"))
	assert.Equal(t, SaveErrorMsg, d.SaveErrors()["email"])
	assert.NotContains(t, d.SaveErrors(), "name")
	assert.Equal(t, StateEditing, d.State())

	api.setFail("email", false)
	d.Autosave(context.Background())
	assert.False(t, d.IsDirty("email"))
	assert.Empty(t, d.SaveErrors())
	assert.Equal(t, "ada@example.com", api.snapshot()["email"])
}

func TestEditClearsSaveError(t *testing.T) {
	api := newFakeBackend()
	api.setFail("name", true)
	d := newDraft(api)

	require.NoError(t, d.Edit("name", "Ada"))
	d.Autosave(context.Background())
	require.Contains(t, d.SaveErrors(), "name")

	require.NoError(t, d.Edit("name", "Ada L."))
	assert.NotContains(t, d.SaveErrors(), "name")
}

func TestEditDuringPushStaysDirty(t *testing.T) {
	api := newFakeBackend()
	d := newDraft(api)
	require.NoError(t, d.Edit("name", "Ada"))

	api.onPush = func(fieldID string) {
		api.onPush = nil
		require.NoError(t, d.Edit(fieldID, "Ada Lovelace"))
	}
	d.Autosave(context.Background())

	assert.Equal(t, "Ada", api.snapshot()["name"])
	assert.True(t, d.IsDirty("name"))

	d.Autosave(context.Background())
	assert.Equal(t, "Ada Lovelace", api.snapshot()["name"])
	assert.False(t, d.IsDirty("name"))
}

func TestAutosaverTicks(t *testing.T) {
	api := newFakeBackend()
	api.setFail("name", true)
	d := newDraft(api)

	a := NewAutosaver(d, 10*time.Millisecond)
	a.Start(context.Background())
	defer a.Stop()

	require.NoError(t, d.Edit("name", "Ada"))
	require.Eventually(t, func() bool {
		return d.SaveErrors()["name"] == SaveErrorMsg
	}, time.Second, 5*time.Millisecond)

	for _, id := range api.pushed() {
		assert.Equal(t, "name", id, "untouched fields must not be autosaved")
	}
	require.NoError(t, d.Edit("name", "Ada L."), "field stays editable")
}

func TestAutosaverStop(t *testing.T) {
	api := newFakeBackend()
	d := newDraft(api)
	a := NewAutosaver(d, 5*time.Millisecond)
	a.Start(context.Background())
	a.Stop()
	a.Stop()

	require.NoError(t, d.Edit("name", "Ada"))
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, api.pushed())
}

func TestSaveReportsBanner(t *testing.T) {
	api := newFakeBackend()
	api.setFail("age", true)
	d := newDraft(api)

	require.NoError(t, d.Edit("name", "Ada"))
	require.NoError(t, d.Edit("age", "30"))

	err := d.Save(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field age")
	assert.Equal(t, SaveBannerMsg, d.Banner())
	assert.Empty(t, d.SaveErrors())
	assert.True(t, d.IsDirty("age"))

	api.setFail("age", false)
	require.NoError(t, d.Save(context.Background()))
	assert.Empty(t, d.Banner())
}

func TestSubmitValidationBlocks(t *testing.T) {
	api := newFakeBackend()
	d := newDraft(api)
	require.NoError(t, d.Edit("age", "12"))

	err := d.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, map[string]string{
		"name": "Name is required",
		"age":  "Age must be at least 18",
	}, d.Errors())
	assert.Empty(t, api.pushed())
	assert.NotEqual(t, StateSubmitted, d.State())
}

func TestSubmitFlushesInFieldOrder(t *testing.T) {
	api := newFakeBackend()
	d := newDraft(api)
	require.NoError(t, d.Edit("age", "30"))
	require.NoError(t, d.Edit("name", "Ada"))
	d.Autosave(context.Background())

	require.NoError(t, d.Submit(context.Background()))
	assert.Equal(t, StateSubmitted, d.State())
	assert.Equal(t, []string{"name", "age", "name", "age"}, api.pushed())
	assert.Equal(t, 1, api.finalized)
	assert.ErrorIs(t, d.Edit("name", "Bob"), ErrSubmitted)
	assert.ErrorIs(t, d.Submit(context.Background()), ErrSubmitted)
}

func TestSubmitRetryIsIdempotent(t *testing.T) {
	api := newFakeBackend()
	api.finalizeErr = errors.New("gateway timeout")
	d := newDraft(api)
	require.NoError(t, d.Edit("name", "Ada"))
	require.NoError(t, d.Edit("email", "ada@example.com"))

	require.Error(t, d.Submit(context.Background()))
	assert.Equal(t, StateEditing, d.State())
	assert.Equal(t, SubmitBannerMsg, d.Banner())
	first := api.snapshot()

	api.mu.Lock()
	api.finalizeErr = nil
	api.mu.Unlock()
	require.NoError(t, d.Submit(context.Background()))

	assert.Equal(t, first, api.snapshot())
	assert.Equal(t, map[string]string{"name": "Ada", "email": "ada@example.com"}, api.snapshot())
	assert.Equal(t, StateSubmitted, d.State())
	assert.Empty(t, d.Banner())
}

func TestSubmitPushFailureKeepsDraftEditable(t *testing.T) {
	api := newFakeBackend()
	api.setFail("name", true)
	d := newDraft(api)
	require.NoError(t, d.Edit("name", "Ada"))

	err := d.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, api.finalized)
	assert.Equal(t, StateEditing, d.State())
	require.NoError(t, d.Edit("name", "Ada"))
}

func TestHydrate(t *testing.T) {
	d := newDraft(newFakeBackend())
	d.Hydrate(map[string]string{"name": "Ada", "email": ""}, false)
	assert.Equal(t, StateEditing, d.State())
	assert.Equal(t, map[string]string{"name": "Ada"}, d.Values())
	assert.False(t, d.IsDirty("name"))

	submitted := newDraft(newFakeBackend())
	submitted.Hydrate(map[string]string{"name": "Ada"}, true)
	assert.Equal(t, StateSubmitted, submitted.State())
	assert.ErrorIs(t, submitted.Edit("name", "Bob"), ErrSubmitted)
}
