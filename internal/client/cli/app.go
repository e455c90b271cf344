// Package cli is the interactive terminal frontend of the lanferry client.
// It wires the session store, coordinator client, services and realtime
// engine together and drives them from a small REPL.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/avolkov/lanferry/internal/client/api"
	"github.com/avolkov/lanferry/internal/client/config"
	"github.com/avolkov/lanferry/internal/client/realtime"
	"github.com/avolkov/lanferry/internal/client/services"
	"github.com/avolkov/lanferry/internal/client/session"
	"github.com/avolkov/lanferry/internal/client/state"
	"github.com/avolkov/lanferry/internal/filex"
	"github.com/avolkov/lanferry/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config *config.Config
	log    logging.Logger

	db    *sql.DB
	store *session.Store
	state *state.Store

	coord     *api.Client
	sessions  *services.SessionService
	catalog   *services.CatalogService
	transfers *services.TransferService
	uploads   *services.UploadService

	socket    *realtime.Socket
	poller    *realtime.Poller
	recoverer *realtime.Recoverer

	reader *bufio.Reader
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	dataDir, err := filex.EnsureSubDir("data")
	if err != nil {
		return nil, err
	}
	db, err := session.InitDatabase(ctx, filepath.Join(dataDir, cfg.StateDBPath))
	if err != nil {
		return nil, err
	}

	store := session.NewStore(db)
	if err := store.Load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	discoveryEndpoint := cfg.DiscoveryEndpoint
	if discoveryEndpoint == "" {
		discoveryEndpoint = cfg.DefaultCoordinatorURL + "/api/v1/discovery"
	}

	coord := api.New(store, cfg.DefaultCoordinatorURL, discoveryEndpoint, log)
	st := state.NewStore()
	files := services.NewLocalFiles()

	sessions := services.NewSessionService(coord, store, st, log, cfg.DisplayName, cfg.DeviceName)
	catalog := services.NewCatalogService(coord, st, log)
	transfers := services.NewTransferService(coord, st, files, log, sessions.PrincipalID)
	uploads := services.NewUploadService(coord, st, files, log)
	transfers.SetUploadOpener(uploads)

	recoverer := realtime.NewRecoverer(store, sessions, coord, log)
	escalate := func(ctx context.Context) {
		if err := recoverer.RequestRecovery(ctx, false); err != nil {
			log.Warn(ctx, "recovery failed", "err", err)
		}
	}
	socket := realtime.NewSocket(store, coord, transfers.RefreshTransfers, escalate, log)
	poller := realtime.NewPoller(
		catalog.RefreshDevicesAndShares,
		transfers.RefreshTransfers,
		store.ClearToken,
		escalate,
		log,
		cfg.PollForeground,
		cfg.PollBackground,
	)

	coord.SetAuthLostHook(socket.ForceClose)
	recoverer.SetOnRecovered(func(ctx context.Context) {
		if err := socket.Connect(ctx); err != nil {
			log.Warn(ctx, "socket reconnect after recovery failed", "err", err)
		}
		if err := catalog.RefreshDevicesAndShares(ctx, true); err != nil {
			log.Warn(ctx, "catalog refresh after recovery failed", "err", err)
		}
		if err := transfers.RefreshTransfers(ctx); err != nil {
			log.Warn(ctx, "transfer refresh after recovery failed", "err", err)
		}
	})

	return &App{
		config:    cfg,
		log:       log,
		db:        db,
		store:     store,
		state:     st,
		coord:     coord,
		sessions:  sessions,
		catalog:   catalog,
		transfers: transfers,
		uploads:   uploads,
		socket:    socket,
		poller:    poller,
		recoverer: recoverer,
		reader:    bufio.NewReader(os.Stdin),
	}, nil
}

// Run connects with the saved identity if one exists, starts the realtime
// engine and hands control to the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if a.store.Session().CanConnect() {
		if err := a.sessions.Connect(ctx); err != nil {
			a.log.Warn(ctx, "saved identity did not connect", "err", err)
		}
	}

	a.poller.Start()
	if a.store.Token() != "" {
		if err := a.socket.Connect(ctx); err != nil {
			a.log.Warn(ctx, "events socket did not open", "err", err)
		}
		if err := a.catalog.RefreshDevicesAndShares(ctx, true); err != nil {
			a.log.Warn(ctx, "initial catalog refresh failed", "err", err)
		}
		if err := a.transfers.RefreshTransfers(ctx); err != nil {
			a.log.Warn(ctx, "initial transfer refresh failed", "err", err)
		}
	}

	runREPL(ctx, a, bufio.NewScanner(os.Stdin))
}

// Close tears the realtime engine and database down.
func (a *App) Close() {
	a.poller.Stop()
	a.socket.Close()
	_ = a.db.Close()
}
