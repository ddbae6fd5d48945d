// Package app wires the scoring services of a workspace together.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"scorekeeper/internal/challenge"
	"scorekeeper/internal/config"
	"scorekeeper/internal/db"
	"scorekeeper/internal/migrate"
	"scorekeeper/internal/receipt"
	"scorekeeper/internal/repo"
	"scorekeeper/internal/scores"
	"scorekeeper/internal/scoresheet"
	"scorekeeper/internal/stages"
	"scorekeeper/internal/storage"
	"scorekeeper/internal/teams"
)

type Options struct {
	Workspace string
	// Config overrides settings.yml when set.
	Config    *config.Config
	Logger    *slog.Logger
}

// Services is everything a command or the HTTP server needs.
type Services struct {
	Workspace  string
	Config     *config.Config
	Logger     *slog.Logger
	Store      storage.Store
	Repo       *repo.Repo
	Challenges challenge.Loader
	Signer     receipt.Signer
	Stages     *stages.Catalog
	Ledger     *scores.Ledger
	Teams      *teams.Roster
	Sheet      *scoresheet.Sheet

	db *sql.DB
}

// ResolveConfig loads settings.yml. A missing or unreadable file is logged
// and replaced by the defaults.
func ResolveConfig(workspace string, logger *slog.Logger) *config.Config {
	cfg, err := config.LoadOptional(workspace)
	if err != nil || cfg == nil {
		if err == nil {
			err = os.ErrNotExist
		}
		logger.Warn("unable to load settings", "path", config.Path(workspace), "error", err)
		return config.Default("")
	}
	return cfg
}

// OpenStore opens the document backend selected by cfg. The returned
// database is nil for the fs backend.
func OpenStore(ctx context.Context, workspace string, cfg *config.Config) (storage.Store, *sql.DB, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		conn, err := db.Open(db.Config{Workspace: workspace})
		if err != nil {
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		if err := migrate.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return repo.New(conn), conn, nil
	case config.BackendFS, "":
		dir := cfg.DataPath(workspace)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		return storage.Dir{Root: dir}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// Init resolves settings, opens storage and loads the stage catalog, the
// score ledger and the team roster concurrently before building the sheet.
func Init(ctx context.Context, opts Options) (*Services, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = ResolveConfig(opts.Workspace, logger)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, conn, err := OpenStore(ctx, opts.Workspace, cfg)
	if err != nil {
		return nil, err
	}
	svc := &Services{
		Workspace:  opts.Workspace,
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Challenges: challenge.Loader{Dir: opts.Workspace},
		Signer:     receipt.Signer{Secret: cfg.Receipts.Secret, Issuer: cfg.Receipts.Issuer},
		Stages:     stages.New(store, logger),
		Ledger:     scores.New(store, logger),
		db:         conn,
	}
	if r, ok := store.(repo.Repo); ok {
		svc.Repo = &r
	}
	svc.Ledger.Signer = svc.Signer

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Stages.Load(gctx) })
	g.Go(func() error { return svc.Ledger.Load(gctx) })
	g.Go(func() error {
		roster, err := teams.Load(gctx, store, logger)
		svc.Teams = roster
		return err
	})
	if err := g.Wait(); err != nil {
		svc.Close()
		return nil, err
	}

	svc.Sheet = scoresheet.New(ctx, scoresheet.Options{
		Store:     store,
		Provider:  svc.Challenges,
		Challenge: cfg.Challenge,
		Table:     cfg.Tournament.Table,
		Ledger:    svc.Ledger,
		Stages:    svc.Stages,
		Teams:     svc.Teams,
		Logger:    logger,
	})
	return svc, nil
}

// Close releases the sheet and the database.
func (s *Services) Close() error {
	if s.Sheet != nil {
		s.Sheet.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

