package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.opentelemetry.io/otel/attribute"

	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/webhook"
	"storefront/pkg/logging"
	"storefront/pkg/telemetry"
)

var configFile = flag.String("config", "configs/shopper.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if env := os.Getenv("STOREFRONT_API_URL"); env != "" {
		cfg.API.BaseURL = env
	}

	logger, err := logging.NewZapLogger(cfg.GetLogLevel())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Starting shopper console", "api", cfg.API.BaseURL, "cart_store", cfg.App.CartStore)

	tel, err := telemetry.Setup("shopper", attribute.String("cart.store", cfg.App.CartStore))
	if err != nil {
		logger.Warn("Telemetry setup failed", "error", err)
	}

	session := auth.NewSession(cfg.App.StateDir, logger)
	client := api.New(cfg.API.BaseURL, cfg.API.Timeout(), session, logger)
	session.UseClient(client)

	var store cart.Store
	if cfg.App.CartStore == "sqlite" {
		sqliteStore, err := cart.NewSQLiteStore(filepath.Join(cfg.App.StateDir, "cart.db"))
		if err != nil {
			logger.Fatal("Failed to open cart database", "error", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	} else {
		store = cart.NewFileStore(filepath.Join(cfg.App.StateDir, "cart.json"))
	}

	notifier := webhook.NewNotifier(cfg.Webhook.BaseURL, cfg.Webhook.APIKey, logger)
	defer notifier.Close()

	console := &Console{
		logger:   logger,
		api:      client,
		session:  session,
		cart:     cart.New(store, logger),
		notifier: notifier,
		out:      os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := console.Run(ctx, os.Stdin); err != nil {
		logger.Error("Console terminated", "error", err)
	}

	if tel != nil {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}
	logger.Info("Shopper console stopped")
}
