package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/config"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/eventbus"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/observer"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/storage"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/usecase"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// The rollup job runs from cron once per day. Any failure exits non-zero so
// the scheduler alerts instead of silently skipping a day.
func main() {
	time.Local = time.UTC

	var (
		dateFlag       = flag.String("date", "", "UTC day to roll up as YYYY-MM-DD (default: yesterday)")
		closeStaleFlag = flag.Bool("close-stale", false, "also auto-close stale follow-ups before rolling up")
		timeoutFlag    = flag.Duration("timeout", 10*time.Minute, "overall job timeout")
	)
	flag.Parse()

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// A short-lived job has nothing to scrape.
	observer.InitMetrics(false)

	day := utils.StartOfDayUTC(utils.Now().AddDate(0, 0, -1))
	if *dateFlag != "" {
		parsed, err := utils.ParseDay(*dateFlag)
		if err != nil {
			logger.Log.Fatal("Invalid -date value, expected YYYY-MM-DD",
				zap.String("date", *dateFlag),
				zap.Error(err))
		}
		day = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	if cfg.Database.PostgresDSN == "" {
		logger.Log.Fatal("Postgres DSN is required")
	}
	postgresRepo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}
	defer func() {
		if err := postgresRepo.Close(context.Background()); err != nil {
			logger.Log.Warn("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}()

	followUpRepo := storage.NewFollowUpRepoAdapter(postgresRepo)
	clientRepo := storage.NewClientRepoAdapter(postgresRepo)
	conversationRepo := storage.NewConversationRepoAdapter(postgresRepo)
	messageRepo := storage.NewMessageRepoAdapter(postgresRepo)
	activityRepo := storage.NewActivityLogRepoAdapter(postgresRepo)
	metricsRepo := storage.NewDailyMetricsRepoAdapter(postgresRepo)

	if *closeStaleFlag {
		// The in-process bus keeps the job off NATS; auto-close activity
		// still lands in the activity log through the repository.
		bus := eventbus.NewMemoryBus()
		defer bus.Close()

		followUpService := usecase.NewFollowUpService(followUpRepo, clientRepo, bus, cfg.Reminders)
		closed, err := followUpService.CloseStale(ctx)
		if err != nil {
			logger.Log.Fatal("Stale follow-up sweep failed", zap.Error(err))
		}
		logger.Log.Info("Stale follow-up sweep finished", zap.Int("closed", closed))
	}

	rollupService := usecase.NewRollupService(messageRepo, clientRepo, conversationRepo, activityRepo, followUpRepo, metricsRepo)

	metrics, err := rollupService.Rollup(ctx, day)
	if err != nil {
		logger.Log.Fatal("Rollup failed",
			zap.String("day", utils.FormatDay(day)),
			zap.Error(err))
	}

	logger.Log.Info("Rollup complete",
		zap.String("day", utils.FormatDay(day)),
		zap.Int64("messages", metrics.Messages),
	)
}
