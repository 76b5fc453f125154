/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the envelope reconciliation server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Load ledger configuration
  3. Initialize SQLite store
  4. Run the first reconciliation
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080, or PORT from the environment)
  -db      SQLite database path (default: ledger.db, or LEDGER_DB)
           Use ":memory:" for an in-memory database
  -config  Ledger config JSON path (default: built-in configuration,
           or LEDGER_CONFIG)

GRACEFUL SHUTDOWN:
  SIGINT/SIGTERM stops accepting connections, drains in-flight requests
  (30s limit), stops the refresher, and closes the database.

EXAMPLES:
  # Run with file database
  ./server -db="./data/ledger.db"

  # Run with a custom ledger configuration
  ./server -config="./ledger.json"

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Ledger configuration schema
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/triage/envelope-engine/api"
	"github.com/triage/envelope-engine/config"
	"github.com/triage/envelope-engine/store/sqlite"
)

func main() {
	// .env is optional; flags override the environment.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("LEDGER_DB", "ledger.db"), "SQLite database path")
	configPath := flag.String("config", envStr("LEDGER_CONFIG", ""), "Ledger config JSON path")
	flag.Parse()

	// Ledger configuration
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load ledger config: %v", err)
		}
		cfg = loaded
		log.Printf("Loaded ledger config from %s", *configPath)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler and run the first reconciliation
	handler := api.NewHandler(store, cfg)
	if err := handler.Reconcile(context.Background()); err != nil {
		log.Printf("Warning: initial reconciliation failed: %v", err)
	}

	// Keep current-month classification fresh as days pass
	refresher := api.NewRefresher(handler)
	refresher.Start()
	defer refresher.Stop()

	// Create router
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
