/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the maternity leave calculation server.
  Handles configuration, dependency injection, seeding and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Seed policies and special dates into an empty store
  4. Create API handler with dependencies
  5. Start the special-date coverage monitor
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -db         SQLite database path (default: maternity.db)
              Use ":memory:" for in-memory database
  -policies   YAML policy seed file (default: built-in presets)
  -calendar   YAML special-date file (default: built-in CN schedule)
  -log-level  debug, info, warn or error (default: info)
  -origins    Comma-separated CORS origins
  -coverage-interval
              How often to check special-date coverage (default: 6h, 0 disables)

SEEDING:
  Policies are seeded only when the store holds none, so saved versions
  survive restarts. Special dates are upserted on every start.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the coverage monitor
  4. Close database connection
  5. Exit

EXAMPLES:
  ./server -db="./data/maternity.db"
  ./server -db=":memory:" -policies=./policies.yaml -coverage-interval=1h
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/warp/maternity-engine/api"
	"github.com/warp/maternity-engine/factory"
	"github.com/warp/maternity-engine/maternity"
	"github.com/warp/maternity-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "maternity.db", "SQLite database path")
	policiesPath := flag.String("policies", "", "YAML policy seed file")
	calendarPath := flag.String("calendar", "", "YAML special-date file")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	origins := flag.String("origins", "", "comma-separated CORS origins")
	coverageInterval := flag.Duration("coverage-interval", 6*time.Hour, "special-date coverage check interval (0 disables)")
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	cel, err := maternity.NewCELConditions()
	if err != nil {
		logger.Error("failed to initialize condition evaluator", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := seed(ctx, store, &factory.PolicyFactory{CEL: cel}, *policiesPath, *calendarPath, logger); err != nil {
		logger.Error("failed to seed store", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(store, cel, logger)

	var allowed []string
	if *origins != "" {
		allowed = strings.Split(*origins, ",")
	}
	router := api.NewRouter(handler, allowed)

	if *coverageInterval > 0 {
		monitor := api.NewCoverageMonitor(store, logger)
		monitor.CheckInterval = *coverageInterval
		monitor.Start()
		defer monitor.Stop()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "addr", server.Addr, "api", fmt.Sprintf("http://localhost:%d/api", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func seed(ctx context.Context, store *sqlite.Store, f *factory.PolicyFactory, policiesPath, calendarPath string, logger *slog.Logger) error {
	n, err := store.CountPolicies(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		policies := maternity.Presets()
		if policiesPath != "" {
			if policies, err = f.LoadPoliciesFile(policiesPath); err != nil {
				return err
			}
		}
		for _, p := range policies {
			if err := store.SavePolicy(ctx, p); err != nil {
				return fmt.Errorf("seed %s: %w", p.Region, err)
			}
		}
		logger.Info("seeded policies", "count", len(policies))
	}

	dates, err := factory.DefaultSpecialDates()
	if calendarPath != "" {
		dates, err = factory.LoadSpecialDatesFile(calendarPath)
	}
	if err != nil {
		return err
	}
	if err := store.SaveSpecialDates(ctx, dates); err != nil {
		return err
	}
	logger.Info("loaded special dates", "count", len(dates))
	return nil
}
