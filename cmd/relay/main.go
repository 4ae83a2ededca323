package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/rylie-seo/vendor-relay/internal/audit"
	"github.com/rylie-seo/vendor-relay/internal/config"
	"github.com/rylie-seo/vendor-relay/internal/guard"
	"github.com/rylie-seo/vendor-relay/internal/handlers"
	"github.com/rylie-seo/vendor-relay/internal/idempotency"
	"github.com/rylie-seo/vendor-relay/internal/logging"
	"github.com/rylie-seo/vendor-relay/internal/notifier"
	"github.com/rylie-seo/vendor-relay/internal/redact"
	"github.com/rylie-seo/vendor-relay/internal/relay"
	"github.com/rylie-seo/vendor-relay/internal/server"
	"github.com/rylie-seo/vendor-relay/internal/tokens"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	log.Printf("Starting vendor relay on port %d", cfg.Server.Port)
	if *configPath != "" {
		log.Printf("Loaded config from: %s", *configPath)
	}

	// Network provenance allowlist is process-wide and immutable
	allowlist, err := guard.NewAllowlist(cfg.Security.AllowedIPList())
	if err != nil {
		log.Fatalf("Failed to build IP allowlist: %v", err)
	}

	// Initialize audit repository
	var repo audit.Repository
	switch cfg.Database.Type {
	case "postgres":
		connString := cfg.Database.Postgres.ConnString()

		log.Println("Running database migrations...")
		m, err := migrate.New("file://migrations", connString)
		if err != nil {
			log.Fatalf("Failed to initialize migrations: %v", err)
		}
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Database migrations completed")

		repo, err = audit.NewPostgresRepository(context.Background(), connString)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
	default:
		log.Println("Using in-memory audit repository (development only)")
		repo = audit.NewInMemoryRepository()
	}
	defer repo.Close()

	// Downstream hand-off
	var downstream notifier.Notifier = notifier.Noop{}
	if cfg.NATS.Enabled {
		n, err := notifier.NewNATSNotifier(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		downstream = n
	}
	defer downstream.Close()

	// Duplicate-delivery suppression
	var seen idempotency.Store = idempotency.Disabled{}
	if cfg.Redis.Enabled {
		seen = idempotency.NewRedisStore(cfg.Redis.Addr, cfg.Security.FreshnessWindow)
	}
	defer seen.Close()

	signer := guard.NewSigner(cfg.Vendor.HMACSecret)

	handler := handlers.NewRelayHandler(handlers.Options{
		Signer:          signer,
		Allowlist:       allowlist,
		FreshnessWindow: cfg.Security.FreshnessWindow,
		Verifier:        tokens.NewVerifier(cfg.Auth.JWTSecret),
		Redactor:        redact.Default(),
		Vendor:          relay.NewClient(cfg.Vendor.APIURL, cfg.Vendor.APIKey, signer, cfg.Vendor.Timeout),
		Repo:            repo,
		Notifier:        downstream,
		Seen:            seen,
		Logger:          logger,
	})

	// Create server with config values
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Vendor relay listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
