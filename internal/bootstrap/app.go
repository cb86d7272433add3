package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"

	"esg-gap-backend/internal/csvsource"
	"esg-gap-backend/internal/documents"
	"esg-gap-backend/internal/gapanalysis"
	"esg-gap-backend/internal/queue"
	"esg-gap-backend/internal/reports"
	"esg-gap-backend/internal/shared/config"
	"esg-gap-backend/internal/shared/server"
	"esg-gap-backend/internal/shared/storage/db"
	"esg-gap-backend/internal/shared/storage/object"
	localstore "esg-gap-backend/internal/shared/storage/object/local"
	s3store "esg-gap-backend/internal/shared/storage/object/s3"
	"esg-gap-backend/internal/shared/telemetry"
)

// App holds shared dependencies and the HTTP router.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Fetcher          *csvsource.Fetcher
	Pipeline         *gapanalysis.Pipeline
	ProcessingQueue  queue.Client
	GapQueue         queue.Client
	DocumentsRepo    documents.DocumentsRepo
	ReportsRepo      reports.Repo
	DocumentsService *documents.Service
	ReportsService   *reports.Service
	DocumentsHandler *documents.Handler
	ReportsHandler   *reports.Handler
	GapHandler       *gapanalysis.Handler
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, s3Client, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pipeline, fetcher, err := buildPipeline(cfg, s3Client, store)
	if err != nil {
		return nil, err
	}

	processingQueue, err := buildQueue(ctx, cfg.AWSRegion, cfg.ProcessingQueueURL)
	if err != nil {
		return nil, fmt.Errorf("processing queue: %w", err)
	}
	gapQueue, err := buildQueue(ctx, cfg.AWSRegion, cfg.GapQueueURL)
	if err != nil {
		return nil, fmt.Errorf("gap queue: %w", err)
	}

	app := &App{
		Config:          cfg,
		DB:              sqlDB,
		Store:           store,
		Fetcher:         fetcher,
		Pipeline:        pipeline,
		ProcessingQueue: processingQueue,
		GapQueue:        gapQueue,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		DocumentHandler: app.DocumentsHandler,
		ReportHandler:   app.ReportsHandler,
		GapHandler:      app.GapHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

// buildStore returns the object store and, for s3, the raw client the CSV
// fetcher uses for s3:// URLs.
func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, *s3.Client, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		client, err := s3store.NewClient(ctx, cfg.AWSRegion, cfg.S3Endpoint)
		if err != nil {
			return nil, nil, err
		}
		store := s3store.NewWithClient(client, s3store.Options{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
			Endpoint: cfg.S3Endpoint,
		})
		return store, client, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil, nil
	}
}

func buildPipeline(cfg config.Config, s3Client *s3.Client, store object.ObjectStore) (*gapanalysis.Pipeline, *csvsource.Fetcher, error) {
	var s3API csvsource.S3API
	if s3Client != nil {
		s3API = s3Client
	}
	fetcher := csvsource.New(csvsource.Config{
		MaxBytes:     cfg.CSVMaxBytes,
		Timeout:      cfg.CSVFetchTimeout,
		HostRewrites: csvsource.ParseHostRewrites(cfg.CSVHostRewrites),
		TokenURL:     cfg.ProcessingTokenURL,
		ClientID:     cfg.ProcessingClientID,
		ClientSecret: cfg.ProcessingClientSecret,
		Scopes:       cfg.ProcessingScopes,
	}, s3API, store)

	pipeline := gapanalysis.NewPipeline(fetcher, telemetry.Std())
	pipeline.Options.MaxRowErrors = cfg.CSVMaxRowErrors
	if path := strings.TrimSpace(cfg.TaxonomyFile); path != "" {
		tax, err := gapanalysis.LoadTaxonomyFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load taxonomy: %w", err)
		}
		pipeline.Taxonomy = tax
	}
	return pipeline, fetcher, nil
}

func buildQueue(ctx context.Context, region, queueURL string) (queue.Client, error) {
	if strings.TrimSpace(queueURL) == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx, region, queueURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var docRepo documents.DocumentsRepo
	var reportRepo reports.Repo

	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		reportRepo = &reports.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		reportRepo = reports.NewMemoryRepo()
	}

	docSvc := &documents.Service{
		Store:           app.Store,
		Repo:            docRepo,
		StorageProvider: app.Config.ObjectStoreType,
		Logger:          telemetry.Std(),
	}

	reportSvc := &reports.Service{
		Repo:      reportRepo,
		Documents: docSvc,
		Pipeline:  app.Pipeline,
		Store:     app.Store,
		Logger:    telemetry.Std(),

		ProcessingQueue: app.ProcessingQueue,
		GapQueue:        app.GapQueue,
	}

	app.DocumentsRepo = docRepo
	app.ReportsRepo = reportRepo
	app.DocumentsService = docSvc
	app.ReportsService = reportSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.ReportsHandler = reports.NewHandler(reportSvc)
	app.GapHandler = gapanalysis.NewHandler(app.Pipeline)

	if app.DocumentsHandler == nil || app.ReportsHandler == nil || app.GapHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}
