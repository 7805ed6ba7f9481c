package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/backend"
	"github.com/mbolis/quick-form/config"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/routes"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	api, err := backend.New(cfg.APIUrl, cfg.APIToken)
	if err != nil {
		log.Fatal("main.backend:", err)
	}

	app := app.New(cfg, api)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reaped := make(chan struct{})
	go func() {
		defer close(reaped)
		app.Sessions.Run(ctx)
	}()

	handler := routes.Wire(app)

	err = runServer(ctx, cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
	stop()
	<-reaped
}

func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("main.server.shutdown:", err)
		}
	}()

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
