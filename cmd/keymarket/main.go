package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bullmarketlab/keymarket/internal/account"
	"github.com/bullmarketlab/keymarket/internal/config"
	"github.com/bullmarketlab/keymarket/internal/domain"
	"github.com/bullmarketlab/keymarket/internal/handler"
	"github.com/bullmarketlab/keymarket/internal/market"
	"github.com/bullmarketlab/keymarket/internal/qa"
	"github.com/bullmarketlab/keymarket/internal/service"
	"github.com/bullmarketlab/keymarket/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	genesis, err := config.LoadMarket(cfg.MarketConfigPath)
	if err != nil {
		slog.Error("failed to load market config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Stores: SQLite when DB_PATH is set, memory otherwise.
	var (
		ledger    store.Ledger
		questions store.QuestionStore
		db        *sql.DB
	)
	if cfg.DBPath != "" {
		db, err = store.OpenSQLite(cfg.DBPath)
		if err != nil {
			logger.Error("failed to open database", slog.String("path", cfg.DBPath), slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer db.Close()
		ledger = store.NewSQLiteLedger(db)
		questions = store.NewSQLiteQuestionStore(db)
		logger.Info("using sqlite store", slog.String("path", cfg.DBPath))
	} else {
		ledger = store.NewMemoryLedger()
		questions = store.NewMemoryQuestionStore()
		logger.Info("using in-memory store")
	}
	webhookStore := store.NewWebhookStore()

	// Event fan-out: websocket hub and webhooks.
	hub := service.NewEventHub(logger)
	webhookSvc := service.NewWebhookService(webhookStore, cfg.WebhookTimeout)
	publisher := service.NewPublisher(hub, webhookSvc)

	// Market and Q&A.
	owners := account.NewOwnerRegistry(domain.Address(genesis.Owner))
	keyMarket := market.New(ledger, owners, publisher, logger)
	qaSvc := qa.NewService(questions, keyMarket, owners, publisher, logger)

	if err := instantiateOnce(context.Background(), keyMarket, genesis); err != nil {
		logger.Error("failed to instantiate market", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Router.
	router := handler.NewRouter(keyMarket, qaSvc, webhookSvc, hub, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// instantiateOnce applies the genesis config to a fresh ledger. A ledger
// that is already instantiated keeps its stored config.
func instantiateOnce(ctx context.Context, keyMarket *market.Market, genesis *config.Market) error {
	ok, err := keyMarket.Instantiated(ctx)
	if err != nil {
		return err
	}
	if ok {
		slog.Info("market already instantiated, ignoring genesis config")
		return nil
	}
	_, err = keyMarket.Instantiate(ctx, market.InstantiateRequest{
		Username:           genesis.Username,
		FeeDenom:           genesis.FeeDenom,
		IssuerFeeCollector: genesis.IssuerFeeCollector,
	})
	return err
}
