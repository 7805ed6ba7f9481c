package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/forms/{formId}/fill", OpenFill(app))

	api.Route("/fill/{sessionId}", func(r chi.Router) {
		r.Use(middlewares.FillSession(app.Sessions))

		r.Get("/", GetFill(app))
		r.Delete("/", CloseFill(app))

		r.Put("/fields/{fieldId}", EditField(app))
		r.Put("/fields/{fieldId}/options", ToggleOption(app))
		r.Post("/save", SaveFill(app))
		r.Post("/submit", SubmitFill(app))

		r.Post("/translation", TranslateFill(app))
		r.Delete("/translation", ShowOriginal(app))
		r.Put("/hover", SetHover(app))
		r.Post("/hover/enter", HoverEnter(app))
		r.Post("/hover/leave", HoverLeave(app))
		r.Get("/hover/visible", HoverVisible(app))
		r.Post("/hover/fragments", TranslateFragment(app))
	})

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.Auth))

		r.Get("/forms/{formId}/fields", ListFields(app))
		r.Post("/forms/{formId}/fields", CreateField(app))
		r.Put("/forms/{formId}/fields/order", ReorderFields(app))
	})

	return api
}
