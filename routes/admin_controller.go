package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/backend"
	"github.com/mbolis/quick-form/editor"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/log"
)

func ListFields(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "formId")

		fields, err := app.Fields.Load(r.Context(), app.Client, formId)
		if err != nil {
			writeBackendError(w, "admin.list_fields", formId, err)
			return
		}
		render.JSON(w, r, fields)
	}
}

func CreateField(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "formId")

		input := editor.FieldInput{}
		err := render.DecodeJSON(r.Body, &input)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		created, err := editor.Create(r.Context(), app.Fields, app.Client, formId, input)
		var inputErr *editor.InputError
		if errors.As(err, &inputErr) {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "admin.create_field.input", "%s", inputErr.Msg)
			return
		}
		if err != nil {
			writeBackendError(w, "admin.create_field", formId, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, created)
	}
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func ReorderFields(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "formId")

		req := reorderRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = editor.Reorder(r.Context(), app.Fields, app.Client, formId, req.From, req.To)
		if errors.Is(err, editor.ErrOutOfRange) {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "admin.reorder.range")
			return
		}
		if err != nil {
			writeBackendError(w, "admin.reorder", formId, err)
			return
		}

		fields, _ := app.Fields.Fields(formId)
		render.JSON(w, r, fields)
	}
}

func writeBackendError(w http.ResponseWriter, code, formId string, err error) {
	if errors.Is(err, backend.ErrNotFound) {
		httpx.LogNotFound(w, code, formId)
		return
	}
	httpx.LogStatusMsg(w, http.StatusBadGateway, log.WarnLevel, code, "%s", err)
}
