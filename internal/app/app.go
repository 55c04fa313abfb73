// Package app wires the seed server together and owns its lifecycle: load
// the seed, serve HTTP and websocket traffic, autosave, and drain on
// shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bhandras/zenith/internal/api"
	"github.com/bhandras/zenith/internal/autosave"
	"github.com/bhandras/zenith/internal/config"
	"github.com/bhandras/zenith/internal/database"
	"github.com/bhandras/zenith/internal/logger"
	"github.com/bhandras/zenith/internal/seed"
	"github.com/bhandras/zenith/internal/store"
	"github.com/bhandras/zenith/internal/websocket"
	"github.com/bhandras/zenith/internal/websocket/handlers"
	"github.com/bhandras/zenith/internal/wire"
	"golang.org/x/sync/errgroup"
)

// App is a fully wired seed server.
type App struct {
	cfg        *config.Config
	db         *database.DB
	hub        *websocket.Hub
	dispatcher *websocket.Dispatcher
	scheduler  *autosave.Scheduler
	http       *http.Server
}

// New loads the seed and builds every component. A seed that cannot be
// loaded is fatal: the returned error wraps *store.LoadError.
func New(cfg *config.Config) (*App, error) {
	var (
		st store.Store = store.NewFileStore(cfg.SeedPath)
		db *database.DB
	)
	if cfg.JournalPath != "" {
		var err error
		db, err = database.Open(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		st = store.NewJournaled(st, database.NewJournal(db), cfg.JournalKeep)
		logger.Infof("[Journal] Recording saves to %s (keep %d)", cfg.JournalPath, cfg.JournalKeep)
	}

	doc, err := st.Load()
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("cannot start without %s: %w", cfg.SeedPath, err)
	}
	logBoot(cfg, doc)

	hub := websocket.NewHub()
	dispatcher := websocket.NewDispatcher(doc, handlers.NewDeps(st, time.Now), hub)
	sockets := websocket.NewServer(hub, dispatcher)

	router := api.NewRouter(api.Options{
		Seeds:     dispatcher,
		Sockets:   sockets,
		IsUpgrade: websocket.IsUpgrade,
		Port:      cfg.Port,
		Started:   time.Now(),
	})

	return &App{
		cfg:        cfg,
		db:         db,
		hub:        hub,
		dispatcher: dispatcher,
		scheduler:  autosave.New(cfg.AutosaveInterval, dispatcher, hub),
		http: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler returns the HTTP handler serving health checks and websockets.
func (a *App) Handler() http.Handler { return a.http.Handler }

// Snapshot returns a copy of the current seed.
func (a *App) Snapshot() seed.Record { return a.dispatcher.Snapshot() }

// Run listens on the configured port until ctx is cancelled, then drains.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the server on ln until ctx is cancelled or serving fails, then
// performs the shutdown drain.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	autosaveCtx, stopAutosave := context.WithCancel(gctx)
	defer stopAutosave()

	logger.Infof("[Zenith] HTTP + WS listening on %s", ln.Addr())

	g.Go(func() error {
		return a.scheduler.Run(autosaveCtx)
	})

	g.Go(func() error {
		if err := a.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		stopAutosave()
		a.drain()
		return nil
	})

	return g.Wait()
}

// drain saves the seed one last time, tells every client the server is going
// away, closes them, and stops the HTTP server. The client notices and the
// HTTP shutdown share one ShutdownTimeout budget; clients still stuck when it
// runs out are dropped.
func (a *App) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	logger.Infof("[Zenith] Shutting down, saving seed")

	if _, _, err := a.dispatcher.Persist(); err != nil {
		logger.Errorf("[Zenith] Final save failed: %v", err)
	}

	n := a.hub.CloseAll(ctx, wire.NewMessage(wire.CmdShutdown, time.Now()))
	logger.Infof("[Zenith] Closed %d clients", n)

	if err := a.http.Shutdown(ctx); err != nil {
		logger.Warnf("[Zenith] Graceful shutdown timed out: %v", err)
		_ = a.http.Close()
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warnf("[Journal] Close: %v", err)
		}
	}
	logger.Infof("[Zenith] Server closed. Goodbye.")
}

func logBoot(cfg *config.Config, doc seed.Record) {
	logger.Infof("[Zenith] Seed loaded from %s", cfg.SeedPath)
	logger.Infof("[Zenith] Identity %s v%s, %s runs, vault %s",
		doc.String("", seed.SectionIdentity, "name"),
		doc.String("", seed.SectionIdentity, "version"),
		doc.TotalRuns(),
		doc.VaultStatus(),
	)
	logger.Debugf("[Zenith] Commands: %v", handlers.Commands())
}
