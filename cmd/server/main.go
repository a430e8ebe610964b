/*
main.go - Application entry point

PURPOSE:
  Starts the ledger engine server: opens the SQLite repository, loads
  accounts and categories, opens the ledger store (which replays entries
  into balances and aggregates), and serves the HTTP API with graceful
  shutdown.

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080)
  -db        SQLite database path (default: ledger.db, ":memory:" works)
  -cache     Query cache capacity (default: 1000)
  -recency   Daily aggregate window in days (default: 90)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - ledger/store.go: The core being served
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/ledger-engine/api"
	"github.com/warp/ledger-engine/factory"
	"github.com/warp/ledger-engine/fx"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/repo/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "ledger.db", "SQLite database path")
	cacheCap := flag.Int("cache", ledger.DefaultCacheCapacity, "query cache capacity")
	recency := flag.Int("recency", ledger.DefaultRecencyDays, "daily aggregate window in days")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	accounts, err := db.LoadAccounts(ctx)
	if err != nil {
		log.Fatal("failed to load accounts", zap.Error(err))
	}
	categories, err := db.LoadCategories(ctx)
	if err != nil {
		log.Fatal("failed to load categories", zap.Error(err))
	}

	converter := fx.Identity{}
	store, err := ledger.Open(ctx, db, accounts, categories, ledger.Config{
		CacheCapacity: *cacheCap,
		RecencyDays:   *recency,
		Converter:     converter,
		Logger:        log,
	})
	if err != nil {
		log.Fatal("failed to open ledger store", zap.Error(err))
	}

	handler := api.NewHandler(store, factory.New(converter), db, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.Int("port", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
