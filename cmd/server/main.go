package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arl/statsviz"
	"github.com/exaring/otelpgx"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	otelapi "go.opentelemetry.io/otel"
	_ "go.uber.org/automaxprocs"

	crashtestApp "github.com/crashlab/crashlab/internal/application/crashtest"
	httpServer "github.com/crashlab/crashlab/internal/infra/adapters/http"
	handler "github.com/crashlab/crashlab/internal/infra/adapters/http/handler"
	"github.com/crashlab/crashlab/internal/infra/metrics"
	crashtestStore "github.com/crashlab/crashlab/internal/infra/storage/crashtest/postgres"
	relationStore "github.com/crashlab/crashlab/internal/infra/storage/relation/postgres"
	tenantStore "github.com/crashlab/crashlab/internal/infra/storage/tenant/postgres"
	"github.com/crashlab/crashlab/pkg/common/logger"
	"github.com/crashlab/crashlab/pkg/common/otel"
)

const serviceName = "crashlab"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logg := logger.New(os.Stdout, logger.LevelInfo, serviceName, otel.TraceID)
	logg.Info(ctx, "starting crash test service")

	tp, otelCleanup, err := otel.InitTelemetry(logg, otel.Config{
		ServiceName:      serviceName,
		ExporterEndpoint: envOr("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
		Probability:      1.0,
	})
	if err != nil {
		log.Fatalf("failed to init telemetry: %v", err)
	}
	defer otelCleanup(ctx)
	tracer := tp.Tracer(serviceName)

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := envOr("POSTGRES_USER", "postgres")
		password := envOr("POSTGRES_PASSWORD", "postgres")
		host := envOr("POSTGRES_HOST", "postgres")
		dbname := envOr("POSTGRES_DB", "crashlab")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:5432/%s?sslmode=disable", user, password, host, dbname)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Fatalf("failed to parse db config: %v", err)
	}
	poolCfg.MinConns = 5
	poolCfg.MaxConns = 20
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer pool.Close()

	if err := runMigrations(pool); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	registry, err := metrics.NewRegistry(otelapi.GetMeterProvider())
	if err != nil {
		log.Fatalf("failed to init metrics: %v", err)
	}

	tests := crashtestStore.NewTestStore(pool, tracer)
	tenants := tenantStore.NewDirectoryStore(pool, tracer)
	relations := relationStore.NewRelationStore(pool, tracer)

	testService := crashtestApp.NewService(
		tests, tests, tenants, relations,
		registry.CrashTest, logg, tracer,
	)

	server := &http.Server{
		Addr: envOr("HTTP_ADDR", ":8080"),
		Handler: httpServer.NewHTTPServer(httpServer.Config{
			Log:     logg,
			Metrics: registry.API,
			Tests:   handler.NewTestHandler(testService),
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logg.Info(ctx, "http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// Runtime diagnostics on a separate port, not exposed publicly.
	go func() {
		debugMux := http.NewServeMux()
		if err := statsviz.Register(debugMux); err != nil {
			logg.Error(ctx, "failed to register statsviz", "error", err)
			return
		}
		logg.Info(ctx, "debug server listening", "addr", ":6060")
		if err := http.ListenAndServe(":6060", debugMux); err != nil {
			logg.Error(ctx, "debug server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logg.Info(ctx, "shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	logg.Info(ctx, "server exited gracefully")
}

// runMigrations applies all up migrations from db/migrations over a
// connection borrowed from the pool.
func runMigrations(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)

	driver, err := pgx.WithInstance(db, &pgx.Config{})
	if err != nil {
		return fmt.Errorf("could not create pgx driver: %w", err)
	}

	migrationsPath := envOr("MIGRATIONS_PATH", "file://db/migrations")
	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
