package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/ai"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/config"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/eventbus"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/httpapi"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/ingestion"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/jetstream"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/messaging"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/storage"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/usecase"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize metrics conditionally
	observer.InitMetrics(cfg.Metrics.Enabled)

	logger.Log.Info("Starting Luxe CRM Service",
		zap.String("environment", cfg.Environment),
		zap.String("nats_url", cfg.NATS.URL),
		zap.Int("port", cfg.Server.Port),
	)

	// Initialize repositories
	postgresRepo, err := initPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// Initialize JetStream client
	jsClient, err := initJetStreamClient(cfg.NATS.URL)
	if err != nil {
		logger.Log.Fatal("Failed to initialize JetStream client", zap.Error(err))
	}

	// Create repository adapters for the services
	followUpRepo := storage.NewFollowUpRepoAdapter(postgresRepo)
	clientRepo := storage.NewClientRepoAdapter(postgresRepo)
	conversationRepo := storage.NewConversationRepoAdapter(postgresRepo)
	messageRepo := storage.NewMessageRepoAdapter(postgresRepo)
	activityRepo := storage.NewActivityLogRepoAdapter(postgresRepo)
	metricsRepo := storage.NewDailyMetricsRepoAdapter(postgresRepo)

	// Event bus over JetStream
	bus := eventbus.NewNATSPublisher(jsClient, cfg.NATS.EventSubjectPrefix)

	// AI suggestion worker pool. The static completer stands in until a
	// model provider is wired; swap it via this single seam.
	completer := ai.NewStaticCompleter(ai.Suggestion{
		Reply:                 "Thank you for reaching out. A consultant will follow up with you shortly.",
		Sentiment:             0,
		LeadScore:             50,
		ConversionProbability: 0.5,
	})
	suggestionWorker, err := usecase.NewSuggestionWorker(
		cfg.WorkerPools.Suggestion,
		messageRepo,
		clientRepo,
		activityRepo,
		completer,
		bus,
		logger.Log,
	)
	if err != nil {
		logger.Log.Fatal("Failed to initialize suggestion worker pool", zap.Error(err))
	}

	// Core services
	followUpService := usecase.NewFollowUpService(followUpRepo, clientRepo, bus, cfg.Reminders)
	clientService := usecase.NewClientService(clientRepo, activityRepo)
	dashboardService := usecase.NewDashboardService(messageRepo, followUpRepo, conversationRepo, clientRepo, cfg.Dashboard)
	rollupService := usecase.NewRollupService(messageRepo, clientRepo, conversationRepo, activityRepo, followUpRepo, metricsRepo)
	messageService := usecase.NewMessageService(messageRepo, clientRepo, conversationRepo, bus, suggestionWorker)

	// Due reminder notifier over the outbound sender
	notifier := usecase.NewReminderNotifier(followUpService, clientRepo, messaging.NewLogSender(), cfg.Reminders)
	notifier.Start()

	// Inbound message consumer
	consumer := ingestion.NewConsumer(jsClient, messageService, cfg.NATS.Inbound)
	if err := consumer.Start(); err != nil {
		logger.Log.Fatal("Failed to start inbound consumer", zap.Error(err))
	}

	// HTTP API server
	apiServer := httpapi.NewServer(followUpService, dashboardService, rollupService, clientService, postgresRepo.Ping)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: apiServer.Router(),
	}
	go func() {
		logger.Log.Info("HTTP API listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	var wg sync.WaitGroup
	wg.Add(5)

	// Shutdown HTTP server first so no new work arrives
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping HTTP server")
		start := time.Now()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping HTTP server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] HTTP server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping HTTP server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Shutdown inbound consumer
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping inbound consumer")
		start := time.Now()
		consumer.Stop()
		logger.Log.Info("[shutdown] Inbound consumer stopped",
			zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping inbound consumer",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Shutdown reminder notifier
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping reminder notifier")
		start := time.Now()
		notifier.Stop()
		logger.Log.Info("[shutdown] Reminder notifier stopped",
			zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping reminder notifier",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Shutdown suggestion worker pool
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping suggestion worker pool")
		start := time.Now()
		suggestionWorker.Stop()
		logger.Log.Info("[shutdown] Suggestion worker pool stopped",
			zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping suggestion worker pool",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Close event bus, database and JetStream connections
	utils.SafeGo(func() {
		defer wg.Done()

		logger.Log.Info("[shutdown] Closing event bus")
		if err := bus.Close(); err != nil {
			logger.Log.Error("[shutdown] Failed to close event bus", zap.Error(err))
		}

		logger.Log.Info("[shutdown] Closing PostgreSQL connection")
		pgStart := time.Now()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] PostgreSQL connection closed",
				zap.Duration("duration", time.Since(pgStart)))
		}

		logger.Log.Info("[shutdown] Closing JetStream connection")
		jsStart := time.Now()
		jsClient.Close()
		logger.Log.Info("[shutdown] JetStream connection closed",
			zap.Duration("duration", time.Since(jsStart)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing connections",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Wait with a timeout for all components to shut down
	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Log.Info("[shutdown] All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("Luxe CRM Service shutdown complete")
}

// Initialize PostgreSQL repository
func initPostgresRepo(dsn string, autoMigrate bool) (*storage.PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	repo, err := storage.NewPostgresRepo(dsn, autoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}

// initJetStreamClient initializes the JetStream client
func initJetStreamClient(url string) (*jetstream.Client, error) {
	client, err := jetstream.NewClient(url)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream client: %w", err)
	}
	return client, nil
}
