package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roombroker/internal/config"
	"github.com/vovakirdan/roombroker/internal/core"
	"github.com/vovakirdan/roombroker/internal/metrics"
	"github.com/vovakirdan/roombroker/internal/store"
	"github.com/vovakirdan/roombroker/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/roombroker/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
// The session journal is opened only when cfg.DatabasePath is set.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}

	m := metrics.New()
	opts := core.HubOptions{
		Logger:       logger,
		Metrics:      m,
		SendTimeout:  cfg.SendTimeout,
		WelcomeText:  cfg.WelcomeText,
		EvictionText: cfg.EvictionText,
	}

	var journal store.JournalStore
	if cfg.DatabasePath != "" {
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("session journal initialized")
		a.store = st
		journal = st
		opts.Store = st
	} else {
		logger.Info().Msg("session journal disabled")
	}

	a.hub = core.NewHub(opts)
	a.server = transporthttp.NewServer(a.hub, journal, m, cfg, logger)
	return a, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		// hijacked websocket connections are not tracked by Shutdown
		a.hub.CloseAll(core.CloseGoingAway, "server shutting down")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
