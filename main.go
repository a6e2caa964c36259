package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/adapters/datasource"
	_ "github.com/lkn2993/geode/pkg/adapters/datasource/mssql"
	_ "github.com/lkn2993/geode/pkg/adapters/datasource/postgres"
	_ "github.com/lkn2993/geode/pkg/adapters/datasource/sqlite"
	"github.com/lkn2993/geode/pkg/config"
	"github.com/lkn2993/geode/pkg/database"
	"github.com/lkn2993/geode/pkg/handlers"
	"github.com/lkn2993/geode/pkg/middleware"
	"github.com/lkn2993/geode/pkg/pdx"
	"github.com/lkn2993/geode/pkg/reconcile"
	"github.com/lkn2993/geode/pkg/repositories"
	"github.com/lkn2993/geode/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync failure is harmless

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.String("host", cfg.Database.Host),
	)

	// Engine store: pool for the repositories, database/sql handle for
	// the migration runner.
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	sqlDB, err := database.OpenSQL(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		_ = sqlDB.Close()
		return err
	}
	_ = sqlDB.Close()

	// Data source plumbing: pooled external connections and the resolver
	// that turns persisted descriptors into live handles.
	connMgr := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{
		TTLMinutes: cfg.Datasource.ConnectionTTLMinutes,
	}, logger)
	defer connMgr.Close() //nolint:errcheck // shutting down anyway

	dsRepo := repositories.NewDataSourceRepository(db.Pool)
	mappingRepo := repositories.NewRegionMappingRepository(db.Pool)
	registry := repositories.NewPdxTypeRepository(db.Pool)

	resolver := datasource.NewManagedResolver(dsRepo, connMgr, logger)
	probe := reconcile.NewSerializerProbe(pdx.NewSerializer(registry), logger)
	reconciler := reconcile.NewSchemaReconciler(resolver, registry, probe, logger)

	mappingService := services.NewMappingService(mappingRepo, reconciler, logger)
	dsService := services.NewDataSourceService(dsRepo, mappingRepo, connMgr, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, connMgr, logger).RegisterRoutes(mux)
	handlers.NewMappingHandler(mappingService, logger).RegisterRoutes(mux)
	handlers.NewDataSourceHandler(dsService, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting mapping engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
