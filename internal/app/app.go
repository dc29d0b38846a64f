package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"chatsync/internal/maintenance"
	"chatsync/pkg/config"
	"chatsync/pkg/engine"
	"chatsync/pkg/logger"
	"chatsync/pkg/store"
	"chatsync/pkg/transport"
	"chatsync/pkg/typing"
)

// App encapsulates the engine components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	rest   *transport.REST
	push   *transport.Push
	typing *typing.Tracker
	engine *engine.Engine

	srv *http.Server
}

// New initializes resources that do not require a running context (cache,
// transports, engine). It does not start the push stream or the HTTP
// server; call Run to start those and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := config.Validate(eff); err != nil {
		return nil, err
	}

	logger.InitWithLevel(eff.Config.Logging.Level)

	store.SetHistoryCap(eff.Config.Sync.HistoryCap)
	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	a := &App{eff: eff, version: version, commit: commit, buildDate: buildDate}
	a.rest = transport.NewREST(eff.Config.Backend)
	a.typing = typing.NewTracker(eff.Config.Sync.TypingTTL.Duration(), eff.Config.Sync.TypingSweep.Duration())
	a.push = transport.NewPush(eff.Config.Push, eff.Config.Backend.APIKey, a.typing)
	a.engine = engine.New(eff.Config, a.rest, a.push, a.typing)
	return a, nil
}

// Run starts the push stream, the maintenance sweep and the HTTP server,
// and blocks until ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.push.Run()

	stopSweep, err := maintenance.Start(ctx, a.eff.Config.Maintenance)
	if err != nil {
		return err
	}
	defer stopSweep()

	a.printBanner()

	errCh := a.startHTTP()

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

// shutdown stops components in dependency order: no new HTTP work, then
// sessions (flushing the cache), then transports and the store.
func (a *App) shutdown() {
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.srv.Shutdown(ctx)
		cancel()
	}
	a.engine.Close()
	a.push.Close()
	a.typing.Close()
	if err := store.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
	logger.Sync()
}
