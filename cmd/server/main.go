package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"housinghistory/server/config"
	"housinghistory/server/internal/api"
	"housinghistory/server/internal/database"
	"housinghistory/server/internal/processor"
	"housinghistory/server/internal/queue"
	"housinghistory/server/internal/reports"
	"housinghistory/server/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	logger.WithField("driver", cfg.Database.Driver).Info("Connecting to database")
	db, err := database.Open(ctx, database.Config{
		Driver:       cfg.Database.Driver,
		Path:         cfg.Database.Path,
		URL:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.RunMigrations(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	if cfg.Database.SeedFile != "" {
		seedReferenceData(ctx, db, cfg.Database.SeedFile, logger)
	}

	// Import pipeline
	importQueue := queue.NewImportQueue(cfg.BatchProcessing.QueueSize, logger)
	importer := processor.NewBatchProcessor(db, importQueue, cfg, logger)
	importer.Start()

	reportService := reports.NewService(db, logger,
		reports.WithPriceExtremesLimit(cfg.Reports.PriceExtremesLimit),
		reports.WithTimeout(cfg.Reports.Timeout),
	)

	snapshots := scheduler.NewScheduler(reportService, cfg.Reports.RefreshInterval, logger)
	snapshots.Start()

	gin.SetMode(cfg.Server.GinMode)
	handler := api.NewHandler(db, reportService, importer, snapshots, logger)
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Warn("Received shutdown signal")
	case err := <-serverErrors:
		logger.WithError(err).Error("Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down server gracefully")
	}
	snapshots.Stop()
	importer.Stop()
	logger.Info("Server stopped")
}

func seedReferenceData(ctx context.Context, db *database.Database, path string, logger *logrus.Logger) {
	data, err := config.LoadReferenceData(path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load reference data")
	}
	created, err := db.SeedReferenceData(ctx, data.Neighborhoods, data.PropertyTypes)
	if err != nil {
		logger.WithError(err).Fatal("Failed to seed reference data")
	}
	logger.WithFields(logrus.Fields{
		"file":    path,
		"created": created,
	}).Info("Seeded reference data")
}

func configureLogger(logger *logrus.Logger, cfg *config.Config) {
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.WithField("level", cfg.Logging.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}
