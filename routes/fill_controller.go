package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/backend"
	"github.com/mbolis/quick-form/draft"
	"github.com/mbolis/quick-form/fill"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/model"
	"github.com/mbolis/quick-form/routes/middlewares"
	"github.com/mbolis/quick-form/translate"
)

func OpenFill(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "formId")

		session, err := fill.Open(r.Context(), app.Client.ForkFor(r), formId, app.FillOptions())
		switch {
		case errors.Is(err, backend.ErrNotFound):
			httpx.LogNotFound(w, "fill.open", formId)
			return
		case errors.Is(err, fill.ErrFormClosed):
			httpx.LogStatusMsg(w, http.StatusForbidden, log.DebugLevel, "fill.open.closed", "This form is not accepting responses.")
			return
		case err != nil:
			httpx.LogStatusMsg(w, http.StatusBadGateway, log.WarnLevel, "fill.open", "Failed to load form: %s", err)
			return
		}

		id, err := app.Sessions.Add(session)
		if err != nil {
			session.Close()
			httpx.LogInternalError(w, "fill.open.session_id", err)
			return
		}

		relayCookies(w, session)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id":   id,
			"view": session.View(),
		})
	}
}

// relayCookies hands the backend's cookies to the filler so the next visit
// resumes the same answer session.
func relayCookies(w http.ResponseWriter, session *fill.Session) {
	for _, c := range session.Cookies() {
		http.SetCookie(w, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func GetFill(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, session := middlewares.GetFillSession(r)
		render.JSON(w, r, session.View())
	}
}

func CloseFill(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middlewares.GetFillSession(r)
		app.Sessions.Remove(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

type editRequest struct {
	Value    string `json:"value"`
	Option   string `json:"option"`
	Selected bool   `json:"selected"`
}

func EditField(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, session := middlewares.GetFillSession(r)

		var req editRequest
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = session.Edit(chi.URLParam(r, "fieldId"), req.Value)
		if !writeEditError(w, err) {
			render.JSON(w, r, session.View())
		}
	}
}

func ToggleOption(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, session := middlewares.GetFillSession(r)

		var req editRequest
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = session.Toggle(chi.URLParam(r, "fieldId"), req.Option, req.Selected)
		if !writeEditError(w, err) {
			render.JSON(w, r, session.View())
		}
	}
}

func writeEditError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, fill.ErrUnknownField):
		httpx.LogStatus(w, http.StatusNotFound, log.DebugLevel, "fill.edit.field")
	case errors.Is(err, draft.ErrSubmitted):
		httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "fill.edit.submitted", "This response was already submitted.")
	default:
		httpx.LogInternalError(w, "fill.edit", err)
	}
	return true
}

func SaveFill(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, session := middlewares.GetFillSession(r)

		err := session.Save(r.Context())
		relayCookies(w, session)
		if err != nil {
			httpx.LogStatusJSON(w, r, http.StatusBadGateway, log.WarnLevel, "fill.save", err, session.View())
			return
		}
		render.JSON(w, r, session.View())
	}
}

func SubmitFill(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, session := middlewares.GetFillSession(r)

		err := session.Submit(r.Context())
		relayCookies(w, session)
		switch {
		case errors.Is(err, draft.ErrInvalid):
			httpx.LogStatusJSON(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "fill.submit.validate", err, map[string]any{
				"errors": session.Draft().Errors(),
			})
		case errors.Is(err, draft.ErrSubmitted), errors.Is(err, draft.ErrSubmitting):
			httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "fill.submit.state", "%s", err)
		case err != nil:
			httpx.LogStatusJSON(w, r, http.StatusBadGateway, log.WarnLevel, "fill.submit", err, session.View())
		default:
			render.JSON(w, r, session.View())
		}
	}
}

type translationRequest struct {
	Enabled  bool           `json:"enabled"`
	Language model.Language `json:"language"`
}

func TranslateFill(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, session := middlewares.GetFillSession(r)

		var req translationRequest
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = session.TranslateAll(r.Context(), req.Language)
		switch {
		case errors.Is(err, translate.ErrUnsupportedLanguage):
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "fill.translate.language", "Unsupported language %q", req.Language)
		case err != nil:
			httpx.LogStatusJSON(w, r, http.StatusBadGateway, log.WarnLevel, "fill.translate", err, session.View())
		default:
			render.JSON(w, r, session.View())
		}
	}
}

func ShowOriginal(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, session := middlewares.GetFillSession(r)
		session.ShowOriginal()
		session.Overlay().DismissError()
		render.JSON(w, r, session.View())
	}
}

func SetHover(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, session := middlewares.GetFillSession(r)

		var req translationRequest
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = session.SetHover(req.Enabled, req.Language)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "fill.hover.language", "Unsupported language %q", req.Language)
			return
		}
		render.JSON(w, r, session.View())
	}
}

type hoverRequest struct {
	Text  string `json:"text"`
	Touch bool   `json:"touch"`
}

func decodeHover(w http.ResponseWriter, r *http.Request) (req hoverRequest, ok bool) {
	err := render.DecodeJSON(r.Body, &req)
	if err != nil || strings.TrimSpace(req.Text) == "" {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
		return
	}
	ok = true
	return
}

func HoverEnter(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, session := middlewares.GetFillSession(r)
		if req, ok := decodeHover(w, r); ok {
			session.Hover(req.Text, req.Touch)
			w.WriteHeader(http.StatusAccepted)
		}
	}
}

func HoverLeave(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, session := middlewares.GetFillSession(r)
		if req, ok := decodeHover(w, r); ok {
			session.Leave(req.Text)
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func HoverVisible(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, session := middlewares.GetFillSession(r)
		text, visible := session.Visible(r.URL.Query().Get("text"))
		render.JSON(w, r, map[string]any{
			"text":    text,
			"visible": visible,
		})
	}
}

func TranslateFragment(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, session := middlewares.GetFillSession(r)
		if req, ok := decodeHover(w, r); ok {
			render.JSON(w, r, map[string]any{
				"text": session.Fragment(r.Context(), req.Text),
			})
		}
	}
}
