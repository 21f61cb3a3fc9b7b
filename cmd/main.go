package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/opencotacao/award-engine/internal/audit"
	"github.com/opencotacao/award-engine/internal/db"
	"github.com/opencotacao/award-engine/internal/handlers"
	"github.com/opencotacao/award-engine/internal/locker"
	"github.com/opencotacao/award-engine/internal/logging"
	"github.com/opencotacao/award-engine/internal/reports"
	"github.com/opencotacao/award-engine/internal/repository"
	"github.com/opencotacao/award-engine/internal/router"
	"github.com/opencotacao/award-engine/internal/router/config"
	"github.com/opencotacao/award-engine/internal/services"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	runDBMigration(cfg.MigrationURL, cfg.PostgresConn)

	dbPool, err := db.InitDb(cfg)
	if err != nil {
		log.Fatalf("error initializing database: %v", err)
	}
	defer dbPool.Close()

	logger := logging.NewLogger(cfg.LogLevel)

	selectionLocker, err := locker.New(context.Background(), cfg.RedisAddress, 5*time.Second)
	if err != nil {
		log.Fatalf("error connecting to redis: %v", err)
	}
	if selectionLocker == nil {
		logger.Info("redis not configured, bid submissions rely on the database row lock only")
	}

	sink := audit.NewLogSink(logger)
	notifier := audit.NewLogNotifier(logger)

	quotationRepo := repository.NewPostgresQuotationRepository(dbPool)
	responseRepo := repository.NewPostgresResponseRepository(dbPool)
	selectionRepo := repository.NewPostgresSelectionRepository(dbPool)

	quotationService := services.NewQuotationService(quotationRepo, responseRepo, sink)
	responseService := services.NewResponseService(responseRepo, quotationRepo, sink)
	selectionService := services.NewSelectionService(selectionRepo, quotationRepo, responseRepo, sink, notifier)
	bidService := services.NewBidService(selectionRepo, selectionLocker, sink)

	quotationHandler := handlers.NewQuotationHandler(quotationService, logger, 5*time.Second)
	responseHandler := handlers.NewResponseHandler(responseService, logger, 5*time.Second)
	selectionHandler := handlers.NewSelectionHandler(selectionService, reports.NewAwardWriter(), logger, 5*time.Second)
	bidHandler := handlers.NewBidHandler(bidService, logger, 5*time.Second)

	routes := router.InitRoutes(quotationHandler, responseHandler, selectionHandler, bidHandler)

	log.Printf("server is listening on %s...", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, routes); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func runDBMigration(migrationURL string, dbSource string) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		log.Fatal("cannot create a new migrate instance", err)
	}

	if err = migration.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatal("failed to run migrate up:", err)
	}
	log.Println("db migrated successfully")
}
