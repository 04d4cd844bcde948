package cmd

import (
	"fmt"

	"incus-sync/core/config"
	"incus-sync/core/database"
	"incus-sync/core/logger"
	"incus-sync/core/monitoring"
	"incus-sync/core/storage"
	"incus-sync/feature/hosts"
	"incus-sync/feature/instancesync"
	"incus-sync/feature/integrity"
	"incus-sync/feature/inventory"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// application holds the wired services shared by the commands.
type application struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *gorm.DB
	registry  *monitoring.Registry
	storage   storage.Client
	hosts     *hosts.Service
	sync      *instancesync.Service
	integrity *integrity.Service
}

// bootstrap loads the configuration and wires every service. The
// inventory database is required; object storage only when reports are
// archived.
func bootstrap() (*application, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection required: %w", err)
	}

	app := &application{
		cfg:      cfg,
		logger:   logg,
		db:       db,
		registry: monitoring.NewRegistry(),
	}

	var archive *instancesync.ReportArchive
	if cfg.Sync.ArchiveReports {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		app.storage = client
		archive = instancesync.NewReportArchive(client, cfg.Storage.Bucket, logg)
	}

	app.hosts = hosts.NewService(db, logg).WithDialer(hosts.DefaultDial, cfg.Sync.Timeout())
	orchestrator := instancesync.NewOrchestrator(
		app.hosts,
		app.hosts.Connect,
		inventory.NewGormStore(db),
		cfg.Sync,
		monitoring.NewSyncMonitor(app.registry),
		logg,
	)
	app.sync = instancesync.NewService(orchestrator, archive, cfg.Sync, logg)
	app.integrity = integrity.NewService(app.storage, cfg.Storage, logg, db, app.hosts)

	return app, nil
}

// close releases the database connection and flushes the logger.
func (a *application) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}
