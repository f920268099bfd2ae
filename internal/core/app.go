package core

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/vrsandeep/techmail/internal/assets"
	"github.com/vrsandeep/techmail/internal/config"
	"github.com/vrsandeep/techmail/internal/db"
	"github.com/vrsandeep/techmail/internal/hooks"
	"github.com/vrsandeep/techmail/internal/jobs"
	"github.com/vrsandeep/techmail/internal/logger"
	"github.com/vrsandeep/techmail/internal/notify"
	"github.com/vrsandeep/techmail/internal/recipient"
	"github.com/vrsandeep/techmail/internal/release"
	"github.com/vrsandeep/techmail/internal/store"
	"github.com/vrsandeep/techmail/internal/updates"
	"github.com/vrsandeep/techmail/internal/wpconfig"
)

// ReleaseCacheKey is the transient key of the cached release descriptor.
const ReleaseCacheKey = "technical_email_release"

// updateID is the id carried by update advertisements.
const updateID = "tio.studio/technical-email"

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	config     *config.Config
	db         *sql.DB
	log        *logrus.Logger
	fs         afero.Fs
	Version    string
	store      *store.Store
	patcher    *wpconfig.Patcher
	resolver   *recipient.Resolver
	cache      *release.Cache
	reconciler *updates.Reconciler
	hooks      *hooks.Registry
	jobManager *jobs.JobManager
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, and running migrations.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewFromConfig(cfg)
}

// NewFromConfig is New with an already loaded configuration.
func NewFromConfig(cfg *config.Config) (*App, error) {
	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.RunMigrations(database, assets.MigrationsFS, log); err != nil {
		// We can't proceed without a valid database schema.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	app, err := NewWithDeps(cfg, database, afero.NewOsFs(), log)
	if err != nil {
		database.Close()
		return nil, err
	}
	log.Debug("Core application setup complete.")
	return app, nil
}

// NewWithDeps wires the components on top of already opened resources.
// Tests use it with an in-memory database and filesystem.
func NewWithDeps(cfg *config.Config, database *sql.DB, fs afero.Fs, log *logrus.Logger) (*App, error) {
	if log == nil {
		log = logger.Discard()
	}

	src, err := release.NewSource(cfg.Update.Source, cfg.Update.URL, cfg.FetchTimeout())
	if err != nil {
		return nil, fmt.Errorf("failed to create release source: %w", err)
	}

	st := store.New(database)
	patcher := wpconfig.NewPatcher(fs, cfg.Host.Root, log)
	resolver := recipient.NewResolver(st, patcher, cfg.Recipient.Default, log)
	cache := release.NewCache(src, store.NewTransientSlot(st), ReleaseCacheKey, cfg.CacheTTL(), log)
	reconciler := updates.NewReconciler(cache, updates.Identity{
		Plugin:           cfg.Plugin.Basename,
		Slug:             cfg.Plugin.Slug,
		ID:               updateID,
		Homepage:         cfg.Plugin.Homepage,
		Author:           cfg.Plugin.Author,
		InstalledVersion: cfg.Plugin.Version,
		Icons: map[string]string{
			"1x": cfg.Plugin.Homepage + "/pluginservis/icon-128x128.png",
			"2x": cfg.Plugin.Homepage + "/pluginservis/icon-256x256.png",
		},
	}, log)

	reg := hooks.NewRegistry()
	notify.NewBindings(resolver, reconciler, cfg.Host.AdminURL).Register(reg)

	app := &App{
		config:     cfg,
		db:         database,
		log:        log,
		fs:         fs,
		Version:    cfg.Plugin.Version,
		store:      st,
		patcher:    patcher,
		resolver:   resolver,
		cache:      cache,
		reconciler: reconciler,
		hooks:      reg,
	}
	app.jobManager = jobs.NewManager(app)
	jobs.RegisterDefaultJobs(app.jobManager)
	return app, nil
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) DB() *sql.DB {
	return a.db
}

func (a *App) Logger() *logrus.Logger {
	return a.log
}

func (a *App) Fs() afero.Fs {
	return a.fs
}

func (a *App) Store() *store.Store {
	return a.store
}

func (a *App) Patcher() *wpconfig.Patcher {
	return a.patcher
}

func (a *App) Resolver() *recipient.Resolver {
	return a.resolver
}

func (a *App) ReleaseCache() *release.Cache {
	return a.cache
}

func (a *App) Reconciler() *updates.Reconciler {
	return a.reconciler
}

func (a *App) Hooks() *hooks.Registry {
	return a.hooks
}

func (a *App) JobManager() *jobs.JobManager {
	return a.jobManager
}

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
