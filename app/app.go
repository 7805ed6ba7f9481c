package app

import (
	"github.com/go-chi/jwtauth"

	"github.com/mbolis/quick-form/backend"
	"github.com/mbolis/quick-form/config"
	"github.com/mbolis/quick-form/editor"
	"github.com/mbolis/quick-form/fill"
	"github.com/mbolis/quick-form/translate"
)

type App struct {
	*backend.Client
	Sessions *fill.Registry
	Fields   *editor.Cache
	Auth     *jwtauth.JWTAuth
	config.Config
}

func New(cfg config.Config, api *backend.Client) App {
	return App{
		Client:   api,
		Sessions: fill.NewRegistry(cfg.SessionTTL),
		Fields:   editor.NewCache(),
		Auth:     jwtauth.New("HS256", []byte(cfg.TokenSecret), nil),
		Config:   cfg,
	}
}

// FillOptions are the per-session timings taken from the configuration.
func (app App) FillOptions() fill.Options {
	return fill.Options{
		AutosaveInterval: app.Autosave,
		Translation: translate.Options{
			HoverDelay:  app.HoverDelay,
			TouchDelay:  app.TouchDelay,
			TouchLinger: app.TouchLinger,
		},
	}
}
