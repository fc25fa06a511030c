package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"

	"evidapi/internal/anchor"
	"evidapi/internal/auth"
	"evidapi/internal/config"
	"evidapi/internal/database"
	"evidapi/internal/database/migration"
	handlers "evidapi/internal/http/handler"
	"evidapi/internal/http/middleware"
	"evidapi/internal/otel"
	"evidapi/internal/repository/postgres"
	"evidapi/internal/service"
	"evidapi/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if cfg.Auth.SeedPassword == "" {
		log.Fatal("SEED_PASSWORD is required")
	}

	ctx := context.Background()

	// Initialize OpenTelemetry tracing (no-op when disabled via env)
	shutdownTracing, err := otel.Init(ctx, time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Actor directory with the stock role accounts
	directory, err := auth.SeedDirectory(cfg.Auth.SeedPassword)
	if err != nil {
		log.Fatalf("failed to seed actor directory: %v", err)
	}

	// Wire the custody ledger: repository + content store + anchoring
	evidenceRepo := postgres.NewEvidencePostgres(db)
	var anc anchor.Anchor
	if cfg.Anchor.Enabled {
		anc = anchor.NewSimulated()
	}
	evidenceSvc := service.NewEvidenceService(objStore, evidenceRepo, anc, cfg.Anchor.Timeout)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())

	promMW, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register prometheus metrics: %v", err)
	}
	app.Use(promMW.Handler())

	// Register HTTP routes with injected dependencies
	handlers.RegisterRoutes(app, db, directory, cfg.Auth, evidenceSvc)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
