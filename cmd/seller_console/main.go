package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/infrastructure/metrics"
	"storefront/internal/orders"
	"storefront/internal/webhook"
	"storefront/pkg/logging"
	"storefront/pkg/telemetry"
)

var (
	configFile = flag.String("config", "configs/seller_console.yaml", "Path to configuration file")
	shopFlag   = flag.String("shop", "", "Shop ID (overrides config)")
	liveFlag   = flag.Bool("live", true, "Enable the live update channel")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *shopFlag != "" {
		cfg.Shop.ID = *shopFlag
	}
	if env := os.Getenv("STOREFRONT_API_URL"); env != "" {
		cfg.API.BaseURL = env
	}
	if env := os.Getenv("STOREFRONT_SHOP_ID"); env != "" {
		cfg.Shop.ID = env
	}

	logger, err := logging.NewZapLogger(cfg.GetLogLevel())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Starting seller console",
		"api", cfg.API.BaseURL,
		"live", cfg.Live.URL,
		"shop", cfg.Shop.ID)

	tel, err := telemetry.Setup("seller_console", attribute.String("shop.id", cfg.Shop.ID))
	if err != nil {
		logger.Warn("Telemetry setup failed", "error", err)
	}

	var metricsSrv *metrics.Server
	if cfg.Telemetry.EnableMetrics {
		metricsSrv = metrics.NewServer(cfg.Telemetry.MetricsPort, logger)
		metricsSrv.Start()
	}

	session := auth.NewSession(cfg.App.StateDir, logger)
	client := api.New(cfg.API.BaseURL, cfg.API.Timeout(), session, logger)
	session.UseClient(client)

	notifier := webhook.NewNotifier(cfg.Webhook.BaseURL, cfg.Webhook.APIKey, logger)
	defer notifier.Close()

	console := &Console{
		cfg:      cfg,
		logger:   logger,
		api:      client,
		session:  session,
		mirror:   orders.NewMirror(logger),
		notifier: notifier,
		live:     *liveFlag,
		out:      os.Stdout,
	}
	defer console.closeView()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return console.Run(ctx, os.Stdin)
	})
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("Console terminated", "error", err)
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Stop(shutdownCtx); err != nil {
			logger.Error("Error during metrics server shutdown", "error", err)
		}
	}
	if tel != nil {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}
	logger.Info("Seller console stopped")
}
