package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/sightline-ai/sightline-engine/pkg/adapters/datasource"
	"github.com/sightline-ai/sightline-engine/pkg/adapters/datasource/mssql"
	"github.com/sightline-ai/sightline-engine/pkg/adapters/datasource/postgres"
	"github.com/sightline-ai/sightline-engine/pkg/config"
	"github.com/sightline-ai/sightline-engine/pkg/handlers"
	"github.com/sightline-ai/sightline-engine/pkg/memtable"
	"github.com/sightline-ai/sightline-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Log startup configuration
	log.Printf("Configuration loaded:")
	log.Printf("  Environment: %s", cfg.Env)
	log.Printf("  Datasource: %s", cfg.Datasource.Type)
	log.Printf("  Row limit: %d", cfg.Engine.RowLimit)

	executor, err := newExecutor(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to connect datasource: %v", err)
	}
	if executor != nil {
		defer func() { _ = executor.Close() }()
	}

	registry := memtable.NewRegistry()
	queryService := services.NewQueryService(executor, registry, cfg.Engine.RowLimit, logger)

	mux := http.NewServeMux()

	// Register handlers
	healthHandler := handlers.NewHealthHandler(cfg, registry, logger)
	healthHandler.RegisterRoutes(mux)

	queryHandler := handlers.NewQueryHandler(queryService, logger)
	queryHandler.RegisterRoutes(mux)

	tablesHandler := handlers.NewTablesHandler(registry, logger)
	tablesHandler.RegisterRoutes(mux)

	log.Printf("Starting sightline-engine on port %s (version: %s)", cfg.Port, cfg.Version)
	if err := http.ListenAndServe(cfg.BindAddr+":"+cfg.Port, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newExecutor builds the configured external datasource executor. Returns
// nil when the datasource type is "none"; queries then run in memory.
func newExecutor(ctx context.Context, cfg *config.Config) (datasource.QueryExecutor, error) {
	switch cfg.Datasource.Type {
	case "postgres":
		return postgres.NewQueryExecutor(ctx, &postgres.Config{
			Host:     cfg.Datasource.Host,
			Port:     cfg.Datasource.Port,
			User:     cfg.Datasource.User,
			Password: cfg.Datasource.Password,
			Database: cfg.Datasource.Database,
			SSLMode:  cfg.Datasource.SSLMode,
		})
	case "mssql":
		return mssql.NewQueryExecutor(ctx, &mssql.Config{
			Host:     cfg.Datasource.Host,
			Port:     cfg.Datasource.Port,
			User:     cfg.Datasource.User,
			Password: cfg.Datasource.Password,
			Database: cfg.Datasource.Database,
			Encrypt:  cfg.Datasource.Encrypt,
		})
	default:
		return nil, nil
	}
}
