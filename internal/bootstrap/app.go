package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"backoffice/internal/cfdi"
	"backoffice/internal/queue"
	"backoffice/internal/quotes"
	"backoffice/internal/services/health"
	"backoffice/internal/shared/config"
	"backoffice/internal/shared/ratelimit"
	"backoffice/internal/shared/server"
	"backoffice/internal/shared/storage/db"
	"backoffice/internal/shared/storage/object"
	localstore "backoffice/internal/shared/storage/object/local"
	miniostore "backoffice/internal/shared/storage/object/minio"
	s3store "backoffice/internal/shared/storage/object/s3"
	"backoffice/internal/shared/telemetry"
)

const ServiceName = "backoffice"

// Version is stamped at build time with -ldflags "-X backoffice/internal/bootstrap.Version=...".
var Version = "dev"

// App holds shared dependencies.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	DB            *sql.DB
	Store         object.ObjectStore
	Queue         queue.Queue
	Limiter       *ratelimit.SlidingWindow
	QuotesRepo    quotes.Repo
	JobsRepo      cfdi.JobRepo
	DocumentsRepo cfdi.DocumentRepo
	QuotesService *quotes.Service
	TokenGuard    *quotes.TokenGuard
	CFDIService   *cfdi.Service
	Health        *health.Service
	QuotesHandler *quotes.Handler
	CFDIHandler   *cfdi.Handler
}

// Build prepares the API dependency graph with server pool sizing.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	return build(ctx, cfg, db.DefaultServerOptions(), false)
}

// BuildWorker prepares the same graph with worker pool sizing. A worker
// sharing the database with the API over a process-local queue rescans
// pending jobs whenever its queue runs empty.
func BuildWorker(ctx context.Context, cfg config.Config) (*App, error) {
	return build(ctx, cfg, db.DefaultWorkerOptions(), true)
}

func build(ctx context.Context, cfg config.Config, poolDefaults db.Options, drainer bool) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg, poolDefaults)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	q, err := buildQueue(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Store:   store,
		Queue:   q,
		Limiter: ratelimit.NewSlidingWindow(nil),
	}
	buildServices(app)
	app.CFDIService.RescanLocalQueue = drainer && sharesJobsOverLocalQueue(q, sqlDB)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:  app.Config,
		Limiter: app.Limiter,
		Health:  app.Health,
		Quotes:  app.QuotesHandler,
		CFDI:    app.CFDIHandler,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"db":           sqlDB != nil,
		"object_store": cfg.ObjectStoreType,
		"queue":        q.Name(),
		"version":      Version,
	})
	return app, nil
}

// Close releases the database pool and broker connections.
func (a *App) Close() error {
	var errs []error
	if c, ok := a.Queue.(queue.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config, poolDefaults db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db_memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(poolDefaults))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db_memory", map[string]any{"reason": "connect failed", "err": err})
			return nil, nil
		}
		return nil, err
	}

	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Endpoint, 0)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			URLExpiry: cfg.MinioURLExpiry,
		})
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL), nil
	}
}

// buildQueue selects the broker; dev falls back to memory when it is unreachable.
func buildQueue(ctx context.Context, cfg config.Config) (queue.Queue, error) {
	var (
		q   queue.Queue
		err error
	)
	switch cfg.QueueBackend {
	case "sqs":
		q, err = queue.NewSQS(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
	case "rabbitmq":
		q, err = queue.NewRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQQueue)
	default:
		return queue.NewMemory(), nil
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.queue_memory", map[string]any{"backend": cfg.QueueBackend, "err": err})
			return queue.NewMemory(), nil
		}
		return nil, fmt.Errorf("queue %s: %w", cfg.QueueBackend, err)
	}
	return q, nil
}

// sharesJobsOverLocalQueue reports whether jobs are visible to other
// processes while their references are not.
func sharesJobsOverLocalQueue(q queue.Queue, sqlDB *sql.DB) bool {
	_, local := q.(queue.Local)
	return local && sqlDB != nil
}

func buildServices(app *App) {
	if app.DB != nil {
		app.QuotesRepo = &quotes.PGRepo{DB: app.DB}
		app.JobsRepo = &cfdi.PGJobRepo{DB: app.DB}
		app.DocumentsRepo = &cfdi.PGDocumentRepo{DB: app.DB}
	} else {
		app.QuotesRepo = quotes.NewMemoryRepo()
		app.JobsRepo = cfdi.NewMemoryJobRepo()
		app.DocumentsRepo = cfdi.NewMemoryDocumentRepo()
	}

	app.CFDIService = &cfdi.Service{
		Jobs:           app.JobsRepo,
		Docs:           app.DocumentsRepo,
		Queue:          app.Queue,
		Generator:      cfdi.BasicGenerator{},
		Storage:        cfdi.ObjectStorage{Objects: app.Store},
		MaxAttempts:    app.Config.CFDIMaxAttempts,
		AttemptTimeout: app.Config.CFDIAttemptTimeout,
		BackoffCap:     app.Config.CFDIBackoffCap,
	}
	app.QuotesService = &quotes.Service{
		Repo:      app.QuotesRepo,
		OnApprove: app.CFDIService,
		TokenTTL:  app.Config.QuoteTokenTTL,
	}
	app.TokenGuard = &quotes.TokenGuard{
		Repo:    app.QuotesRepo,
		Service: app.QuotesService,
		Limiter: app.Limiter,
	}
	app.Health = health.NewService(ServiceName, Version, app.DB, app.Queue)
	app.QuotesHandler = quotes.NewHandler(app.QuotesService, app.TokenGuard)
	app.CFDIHandler = cfdi.NewHandler(app.CFDIService)
}
