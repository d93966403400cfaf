package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/textileplan/backend/internal/application/costing"
	"github.com/textileplan/backend/internal/application/csvio"
	"github.com/textileplan/backend/internal/infrastructure/config"
	"github.com/textileplan/backend/internal/infrastructure/logger"
	"github.com/textileplan/backend/internal/infrastructure/persistence"
	"github.com/textileplan/backend/internal/infrastructure/storage"
	"github.com/textileplan/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Runtime holds the services one command invocation works with
type Runtime struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *persistence.Database
	Storage  storage.ObjectStorage
	Importer *csvio.ProviderImportService
	Exporter *csvio.ProviderExportService
	Engine   *costing.Engine
	Triggers *costing.Triggers
	Costing  *costing.Service
}

// NewRuntime wires the application services over an open database.
// objects may be nil when no object storage is configured.
func NewRuntime(cfg *config.Config, log *zap.Logger, db *persistence.Database, objects storage.ObjectStorage) *Runtime {
	providers := persistence.NewGormProviderRepository(db.DB)
	history := persistence.NewGormImportHistoryRepository(db.DB)
	tx := db.TxManager()

	var exportOpts []csvio.ExportOption
	if objects != nil {
		exportOpts = append(exportOpts, csvio.WithObjectStorage(objects))
	}

	engine := costing.NewEngine(costing.Repositories{
		Prices:          persistence.NewGormInputProviderRepository(db.DB),
		Templates:       persistence.NewGormBOMTemplateRepository(db.DB),
		Items:           persistence.NewGormBOMItemRepository(db.DB),
		Products:        persistence.NewGormEndProductRepository(db.DB),
		AdditionalCosts: persistence.NewGormAdditionalCostRepository(db.DB),
		Budgets:         persistence.NewGormBudgetRepository(db.DB),
		BudgetItems:     persistence.NewGormBudgetItemRepository(db.DB),
	}, tx)

	return &Runtime{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Storage:  objects,
		Importer: csvio.NewProviderImportService(providers, history, tx),
		Exporter: csvio.NewProviderExportService(providers, exportOpts...),
		Engine:   engine,
		Triggers: costing.NewTriggers(engine),
		Costing:  costing.NewService(engine),
	}
}

// Bootstrap builds the runtime of a command. The returned function
// releases everything the runtime opened.
type Bootstrap func(ctx context.Context) (*Runtime, func(), error)

// DefaultBootstrap loads the configuration and opens the configured
// database, telemetry providers and object storage
func DefaultBootstrap(ctx context.Context) (*Runtime, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return Open(ctx, cfg)
}

// Open builds a runtime from cfg
func Open(ctx context.Context, cfg *config.Config) (*Runtime, func(), error) {
	log, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		_ = log.Sync()
	}

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.FromAppConfig(cfg.Telemetry), log)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	closers = append(closers, func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("Failed to shut down tracer provider", zap.Error(err))
		}
	})

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsFromAppConfig(cfg.Telemetry), log)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	closers = append(closers, func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			log.Warn("Failed to shut down meter provider", zap.Error(err))
		}
	})

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsFromAppConfig(cfg.Telemetry), log)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize log export: %w", err)
	}
	base := log
	closers = append(closers, func() {
		_ = log.Sync()
		if err := lp.Shutdown(context.Background()); err != nil {
			base.Warn("Failed to shut down logger provider", zap.Error(err))
		}
	})
	log = lp.Bridge(log)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Database.SlowThreshold)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, func() { _ = db.Close() })

	dbSystem := "postgresql"
	if cfg.Database.Driver == config.DriverSQLite {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:  cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBSystem: dbSystem,
	}, log); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to register database tracing: %w", err)
	}

	var objects storage.ObjectStorage
	if cfg.Storage.Bucket != "" {
		s3, err := storage.NewS3ObjectStorage(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		objects = s3
	}

	return NewRuntime(cfg, log, db, objects), cleanup, nil
}

// errNoStorage is returned for s3:// outputs when no bucket is configured
var errNoStorage = errors.New("object storage is not configured (set storage.bucket)")
