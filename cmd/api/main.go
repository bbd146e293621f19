package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/maryreaky/betrix-payments/internal/domain/port/notify"
	"github.com/maryreaky/betrix-payments/internal/domain/usecase/ingest"
	"github.com/maryreaky/betrix-payments/internal/domain/usecase/order"
	"github.com/maryreaky/betrix-payments/internal/domain/usecase/reconcile"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/api/handler"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/api/routes"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/database"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/logger"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/notifier"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/payhero"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/repository"
	timeProvider "github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/time"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := logger.NewZapLogger(cfg.Environment == config.Production)
	appLogger.SetLevel(logger.ParseLevel(cfg.Logger.Level))
	defer func() { _ = appLogger.Flush() }()

	tp := timeProvider.NewRealTimeProvider()

	dbManager := database.NewManager(&database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Username:        cfg.Database.Username,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		RetryAttempts:   cfg.Database.RetryAttempts,
		RetryDelay:      cfg.Database.RetryDelay,
		LogLevel:        cfg.Logger.Level,
	}, appLogger, tp)

	if _, err := dbManager.Connect(); err != nil {
		appLogger.Error("Failed to connect to database", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer func() { _ = dbManager.Close() }()

	if err := dbManager.Migrate(); err != nil {
		appLogger.Error("Failed to run migrations", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	transactionRepo := repository.NewTransactionRepository(dbManager.DB(), tp, appLogger)

	providerClient := payhero.NewClient(payhero.Config{
		BaseURL:   cfg.Provider.BaseURL,
		APIKey:    cfg.Provider.APIKey,
		ChannelID: cfg.Provider.ChannelID,
		Timeout:   cfg.Provider.Timeout,
	}, appLogger)

	var engineNotifier notify.Notifier
	if cfg.Notifier.TargetURL != "" {
		engineNotifier = notifier.NewWebhookNotifier(cfg.Notifier.TargetURL, cfg.Notifier.Timeout, appLogger)
	} else {
		engineNotifier = notifier.NewLogNotifier(appLogger)
	}

	ingestor := ingest.NewIngestor(transactionRepo, engineNotifier, tp, appLogger, cfg.Webhook.BufferRetries)
	verifier := ingest.NewSignatureVerifier(cfg.Webhook.SharedSecret, appLogger)

	poller := reconcile.NewPoller(transactionRepo, providerClient, ingestor, tp, appLogger, reconcile.PollerConfig{
		Interval:      cfg.Poller.Interval,
		BaseBackoff:   cfg.Poller.BaseBackoff,
		MaxBackoff:    cfg.Poller.MaxBackoff,
		FixedAttempts: cfg.Poller.FixedAttempts,
		MaxAttempts:   cfg.Poller.MaxAttempts,
		Horizon:       cfg.Poller.Horizon,
		BatchSize:     cfg.Poller.BatchSize,
	})
	ingestor.SetPollCanceller(poller)

	sweeper := reconcile.NewSweeper(transactionRepo, engineNotifier, poller, tp, appLogger, reconcile.SweeperConfig{
		Interval:           cfg.Sweeper.Interval,
		StalenessThreshold: cfg.Sweeper.StalenessThreshold,
		BatchSize:          cfg.Sweeper.BatchSize,
		ForceFinalPoll:     cfg.Sweeper.ForceFinalPoll,
	})

	initiator := order.NewInitiator(transactionRepo, providerClient, poller, tp, appLogger, cfg.Poller.FirstPollWait)

	// background activities: polling, sweeping, buffered-event retry
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go poller.Run(bgCtx)
	go sweeper.Run(bgCtx)
	go ingestor.Run(bgCtx, cfg.Webhook.BufferRetryInterval)

	paymentHandler := handler.NewPaymentHandler(initiator, transactionRepo, appLogger, cfg.Provider.CallbackURL)
	webhookHandler := handler.NewWebhookHandler(verifier, ingestor, appLogger)

	router := gin.New()
	routes.SetupMiddlewares(router, appLogger)
	routes.SetupRoutes(router, paymentHandler, webhookHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("Starting server", map[string]any{
			"port": cfg.Server.Port,
			"env":  cfg.Environment,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...", nil)
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", map[string]any{"error": err.Error()})
	}

	appLogger.Info("Server exited gracefully", nil)
}

// validateConfig ensures all required configuration values are present
func validateConfig(cfg *config.Config) error {
	var missing []string

	if cfg.Server.Port == 0 {
		missing = append(missing, "server.port")
	}
	if cfg.Database.Host == "" {
		missing = append(missing, "database.host (or BX_DB_HOST)")
	}
	if cfg.Database.Username == "" {
		missing = append(missing, "database.username (or BX_DB_USERNAME)")
	}
	if cfg.Database.Database == "" {
		missing = append(missing, "database.database (or BX_DB_NAME)")
	}
	if cfg.Provider.BaseURL == "" {
		missing = append(missing, "provider.baseUrl (or BX_PROVIDER_BASE_URL)")
	}
	if cfg.Provider.APIKey == "" {
		missing = append(missing, "provider.apiKey (or BX_PROVIDER_API_KEY)")
	}
	if cfg.Webhook.SharedSecret == "" {
		missing = append(missing, "webhook.sharedSecret (or BX_WEBHOOK_SECRET)")
	}
	if cfg.Poller.MaxAttempts == 0 {
		missing = append(missing, "poller.maxAttempts")
	}
	if cfg.Sweeper.StalenessThreshold == 0 {
		missing = append(missing, "sweeper.stalenessThreshold")
	}

	if cfg.Environment != config.Development &&
		cfg.Environment != config.Production &&
		cfg.Environment != config.Test {
		return fmt.Errorf("invalid environment value: %s, must be one of: %s, %s, or %s",
			cfg.Environment, config.Development, config.Production, config.Test)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configurations: %v", missing)
	}
	return nil
}
