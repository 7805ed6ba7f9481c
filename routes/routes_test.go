package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/backend"
	"github.com/mbolis/quick-form/config"
)

const backendURL = "http://forms.test"

func newApp(t *testing.T) app.App {
	t.Helper()
	t.Cleanup(gock.Off)

	api, err := backend.New(backendURL, "tok")
	require.NoError(t, err)
	a := app.New(config.Config{
		TokenSecret: "secret",
		Autosave:    time.Hour,
		SessionTTL:  time.Hour,
	}, api)
	t.Cleanup(a.Sessions.CloseAll)
	return a
}

func call(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("content-type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) (out map[string]any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return
}

func mockForm() {
	gock.New(backendURL).
		Get("/api/v1/forms/f1$").
		Reply(200).
		JSON(map[string]any{"id": "f1", "label": "Contact", "open": true})
	gock.New(backendURL).
		Get("/api/v1/forms/f1/fields").
		Reply(200).
		JSON([]map[string]any{
			{"id": "email", "label": "Email", "field_type": "Email", "required": true, "position": 0},
			{"id": "color", "label": "Color", "field_type": "Select", "possible_answers": `Red\Blue`, "position": 1},
		})
	gock.New(backendURL).
		Get("/api/v1/forms/sessions").
		Reply(404)
}

func openFill(t *testing.T, h http.Handler) string {
	t.Helper()
	mockForm()
	rec := call(t, h, http.MethodPost, "/api/forms/f1/fill", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["id"].(string)
}

func fieldError(t *testing.T, view map[string]any, id string) string {
	t.Helper()
	for _, f := range view["fields"].([]any) {
		f := f.(map[string]any)
		if f["id"] == id {
			msg, _ := f["error"].(string)
			return msg
		}
	}
	t.Fatalf("field %s not in view", id)
	return ""
}

func TestFillAndSubmit(t *testing.T) {
	h := Wire(newApp(t))
	id := openFill(t, h)
	base := "/api/fill/" + id

	rec := call(t, h, http.MethodPut, base+"/fields/email", `{"value":"not-an-email"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email must be a valid email address", fieldError(t, decode(t, rec), "email"))

	rec = call(t, h, http.MethodPost, base+"/submit", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, map[string]any{"email": "Email must be a valid email address"}, decode(t, rec)["errors"])

	rec = call(t, h, http.MethodPut, base+"/fields/email", `{"value":"a@b.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, fieldError(t, decode(t, rec), "email"))

	gock.New(backendURL).
		Post("/api/v1/forms/responses").
		MatchType("json").
		JSON(map[string]any{"field_id": "email", "value": "a@b.com"}).
		Reply(201)
	gock.New(backendURL).
		Post("/api/v1/forms/f1/sessions/submit").
		Reply(200)

	rec = call(t, h, http.MethodPost, base+"/submit", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "submitted", decode(t, rec)["state"])
	assert.True(t, gock.IsDone())

	rec = call(t, h, http.MethodPut, base+"/fields/email", `{"value":"c@d.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitFailureKeepsEditing(t *testing.T) {
	h := Wire(newApp(t))
	id := openFill(t, h)
	base := "/api/fill/" + id

	call(t, h, http.MethodPut, base+"/fields/email", `{"value":"a@b.com"}`)
	gock.New(backendURL).
		Post("/api/v1/forms/responses").
		Reply(503)

	rec := call(t, h, http.MethodPost, base+"/submit", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	view := decode(t, rec)
	assert.Equal(t, "editing", view["state"])
	assert.Equal(t, "Failed to submit form. Please check your responses and try again.", view["banner"])
}

func TestTranslationRoutes(t *testing.T) {
	h := Wire(newApp(t))
	id := openFill(t, h)
	base := "/api/fill/" + id

	rec := call(t, h, http.MethodPost, base+"/translation", `{"language":"Klingon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	gock.New(backendURL).
		Post("/api/v1/forms/f1/translate").
		MatchParam("language", "French").
		Reply(500)
	rec = call(t, h, http.MethodPost, base+"/translation", `{"language":"French"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	view := decode(t, rec)
	assert.Equal(t, "Contact", view["form"].(map[string]any)["label"])
	assert.NotEmpty(t, view["translation"].(map[string]any)["error"])

	gock.New(backendURL).
		Post("/api/v1/forms/f1/translate").
		MatchParam("language", "French").
		Reply(200).
		JSON(map[string]any{
			"form": map[string]any{"id": "f1", "label": "Contact FR"},
			"fields": []map[string]any{
				{"id": "color", "label": "Couleur", "possible_answers": `Rouge\Bleu`},
			},
		})
	rec = call(t, h, http.MethodPost, base+"/translation", `{"language":"French"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view = decode(t, rec)
	assert.Equal(t, "Contact FR", view["form"].(map[string]any)["label"])
	assert.Equal(t, "full", view["translation"].(map[string]any)["mode"])

	rec = call(t, h, http.MethodPut, base+"/fields/color", `{"value":"Bleu"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, f := range decode(t, rec)["fields"].([]any) {
		if f := f.(map[string]any); f["id"] == "color" {
			assert.Equal(t, "Bleu", f["value"])
		}
	}

	rec = call(t, h, http.MethodDelete, base+"/translation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode(t, rec)
	assert.Equal(t, "off", view["translation"].(map[string]any)["mode"])
	for _, f := range view["fields"].([]any) {
		if f := f.(map[string]any); f["id"] == "color" {
			assert.Equal(t, "Blue", f["value"])
		}
	}
}

func TestHoverFragment(t *testing.T) {
	h := Wire(newApp(t))
	id := openFill(t, h)
	base := "/api/fill/" + id

	rec := call(t, h, http.MethodPut, base+"/hover", `{"enabled":true,"language":"Spanish"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	gock.New(backendURL).
		Post("/api/v1/miscellaneous/translate").
		MatchType("json").
		JSON(map[string]any{"input": "Color", "language": "Spanish"}).
		Reply(200).
		JSON("Color ES")
	rec = call(t, h, http.MethodPost, base+"/hover/fragments", `{"text":"Color"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Color ES", decode(t, rec)["text"])

	rec = call(t, h, http.MethodPost, base+"/hover/enter", `{"text":"Color"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = call(t, h, http.MethodGet, base+"/hover/visible?text=Color", "")
	assert.Equal(t, map[string]any{"text": "Color ES", "visible": true}, decode(t, rec))

	rec = call(t, h, http.MethodPost, base+"/hover/leave", `{"text":"Color"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(t, h, http.MethodGet, base+"/hover/visible?text=Color", "")
	assert.Equal(t, false, decode(t, rec)["visible"])
}

func TestFillSessionLookup(t *testing.T) {
	a := newApp(t)
	h := Wire(a)

	rec := call(t, h, http.MethodGet, "/api/fill/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h, http.MethodGet, "/api/fill/6ba7b810-9dad-11d1-80b4-00c04fd430c8", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id := openFill(t, h)
	rec = call(t, h, http.MethodGet, "/api/fill/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, h, http.MethodDelete, "/api/fill/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, a.Sessions.Len())

	rec = call(t, h, http.MethodGet, "/api/fill/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func fieldValue(t *testing.T, view map[string]any, id string) string {
	t.Helper()
	for _, f := range view["fields"].([]any) {
		f := f.(map[string]any)
		if f["id"] == id {
			return f["value"].(string)
		}
	}
	t.Fatalf("no field %q in view", id)
	return ""
}

func TestReturnVisitResumesAnswers(t *testing.T) {
	h := Wire(newApp(t))

	gock.New(backendURL).
		Get("/api/v1/forms/f1$").
		Reply(200).
		JSON(map[string]any{"id": "f1", "label": "Contact", "open": true})
	gock.New(backendURL).
		Get("/api/v1/forms/f1/fields").
		Reply(200).
		JSON([]map[string]any{
			{"id": "email", "label": "Email", "field_type": "Email", "required": true, "position": 0},
		})
	gock.New(backendURL).
		Get("/api/v1/forms/sessions").
		MatchHeader("Authorization", "^Bearer filler$").
		Reply(404).
		SetHeader("Set-Cookie", "backend_session=abc; Path=/")

	rec := call(t, h, http.MethodPost, "/api/forms/f1/fill", "", "Authorization", "Bearer filler")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "backend_session", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.True(t, gock.IsDone())

	gock.New(backendURL).
		Get("/api/v1/forms/f1$").
		Reply(200).
		JSON(map[string]any{"id": "f1", "label": "Contact", "open": true})
	gock.New(backendURL).
		Get("/api/v1/forms/f1/fields").
		Reply(200).
		JSON([]map[string]any{
			{"id": "email", "label": "Email", "field_type": "Email", "required": true, "position": 0},
		})
	gock.New(backendURL).
		Get("/api/v1/forms/sessions").
		MatchHeader("Cookie", "backend_session=abc").
		MatchHeader("Authorization", "^Bearer filler$").
		Reply(200).
		JSON(map[string]any{
			"form_id": "f1",
			"answers": []map[string]any{{"field_id": "email", "value": "a@b.com"}},
		})

	rec = call(t, h, http.MethodPost, "/api/forms/f1/fill", "",
		"Authorization", "Bearer filler",
		"Cookie", "backend_session=abc")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, gock.IsDone())

	view := decode(t, rec)["view"].(map[string]any)
	assert.Equal(t, "a@b.com", fieldValue(t, view, "email"))
	assert.Equal(t, "editing", view["state"])
}

func TestOpenMissingForm(t *testing.T) {
	h := Wire(newApp(t))
	gock.New(backendURL).
		Get("/api/v1/forms/nope").
		Reply(404)

	rec := call(t, h, http.MethodPost, "/api/forms/nope/fill", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func bearer(t *testing.T, a app.App, roles any) string {
	t.Helper()
	_, token, err := a.Auth.Encode(map[string]interface{}{"roles": roles})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAdminRequiresRole(t *testing.T) {
	a := newApp(t)
	h := Wire(a)

	rec := call(t, h, http.MethodGet, "/api/admin/forms/f1/fields", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, h, http.MethodGet, "/api/admin/forms/f1/fields", "", "Authorization", bearer(t, a, "editor"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminFieldEditing(t *testing.T) {
	a := newApp(t)
	h := Wire(a)
	auth := bearer(t, a, []string{"viewer", "admin"})
	gock.New(backendURL).
		Get("/api/v1/forms/f1/fields$").
		Reply(200).
		JSON([]map[string]any{
			{"id": "email", "label": "Email", "field_type": "Email", "required": true, "position": 0},
			{"id": "color", "label": "Color", "field_type": "Select", "possible_answers": `Red\Blue`, "position": 1},
		})

	rec := call(t, h, http.MethodPost, "/api/admin/forms/f1/fields",
		`{"label":"Age","field_type":"Numerical","number_bounds":"18:"}`, "Authorization", auth)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please provide both minimum and maximum values for number range or leave both empty.")

	gock.New(backendURL).
		Put("/api/v1/forms/fields/color").
		Reply(200).
		JSON(map[string]any{"id": "color"})
	gock.New(backendURL).
		Put("/api/v1/forms/fields/email").
		Reply(200).
		JSON(map[string]any{"id": "email"})

	rec = call(t, h, http.MethodPut, "/api/admin/forms/f1/fields/order", `{"from":1,"to":0}`, "Authorization", auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var fields []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
	require.Len(t, fields, 2)
	assert.Equal(t, "color", fields[0]["id"])
	assert.Equal(t, "email", fields[1]["id"])

	rec = call(t, h, http.MethodPut, "/api/admin/forms/f1/fields/order", `{"from":0,"to":5}`, "Authorization", auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
