package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitlab.com/aurelia/api/luxe-crm-service/internal/config"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/messaging"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/model"
	"gitlab.com/aurelia/api/luxe-crm-service/internal/storage"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/logger"
	"gitlab.com/aurelia/api/luxe-crm-service/pkg/utils"
)

// DueReminderSource is the slice of the reminder engine the notifier needs.
type DueReminderSource interface {
	ListDueForNotification(ctx context.Context, now time.Time) ([]DueReminder, error)
	MarkShown(ctx context.Context, id string) (*model.FollowUp, error)
}

// ReminderNotifier periodically surfaces due reminders to their clients
// over the messaging channel. Each delivered reminder is marked shown so
// later ticks inside the same window do not re-send it.
type ReminderNotifier struct {
	followUps DueReminderSource
	clients   storage.ClientRepo
	sender    messaging.Sender
	cfg       config.RemindersConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReminderNotifier creates the notifier on top of the reminder engine
// and the outbound sender.
func NewReminderNotifier(
	followUps DueReminderSource,
	clients storage.ClientRepo,
	sender messaging.Sender,
	cfg config.RemindersConfig,
) *ReminderNotifier {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logger.WithLogger(ctx, logger.Log.Named("reminder_notifier"))
	return &ReminderNotifier{
		followUps: followUps,
		clients:   clients,
		sender:    sender,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the polling loop. The cadence comes from config; a
// non-positive interval falls back to one minute.
func (n *ReminderNotifier) Start() {
	interval := time.Duration(n.cfg.NotifyIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log := logger.FromContext(n.ctx)
		log.Info("Reminder notifier started", zap.Duration("interval", interval))

		for {
			select {
			case <-n.ctx.Done():
				return
			case <-ticker.C:
				if _, err := n.NotifyDue(n.ctx, utils.Now()); err != nil {
					log.Warn("Reminder notification sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop halts the polling loop and waits for an in-flight sweep to finish.
func (n *ReminderNotifier) Stop() {
	n.cancel()
	n.wg.Wait()
	logger.FromContext(n.ctx).Info("Reminder notifier stopped")
}

// NotifyDue runs one sweep: lists reminders due at now, sends a message for
// each one not yet shown, and marks successfully delivered ones as shown.
// Per-reminder failures are logged and skipped so a single bad row never
// stalls the rest of the sweep. Returns the number delivered.
func (n *ReminderNotifier) NotifyDue(ctx context.Context, now time.Time) (int, error) {
	log := logger.FromContext(ctx)

	due, err := n.followUps.ListDueForNotification(ctx, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, reminder := range due {
		fu := reminder.FollowUp
		if fu.ReminderState == model.ReminderStateShown {
			continue
		}

		client, err := n.clients.FindByID(ctx, fu.ClientID)
		if err != nil {
			log.Warn("Skipping reminder with unresolvable client",
				zap.String("follow_up_id", fu.ID),
				zap.String("client_id", fu.ClientID),
				zap.Error(err))
			continue
		}
		if client.PhoneNumber == "" {
			log.Warn("Skipping reminder for client without phone number",
				zap.String("follow_up_id", fu.ID),
				zap.String("client_id", fu.ClientID))
			continue
		}

		body := formatReminderBody(&fu, reminder.Urgency)
		if err := n.sender.Send(ctx, client.PhoneNumber, body); err != nil {
			log.Warn("Failed to deliver reminder",
				zap.String("follow_up_id", fu.ID),
				zap.String("client_id", fu.ClientID),
				zap.Error(err))
			continue
		}

		if _, err := n.followUps.MarkShown(ctx, fu.ID); err != nil {
			log.Warn("Delivered reminder could not be marked shown",
				zap.String("follow_up_id", fu.ID),
				zap.Error(err))
		}
		sent++
	}

	if sent > 0 {
		log.Info("Reminder sweep delivered notifications",
			zap.Int("sent", sent),
			zap.Int("due", len(due)))
	}
	return sent, nil
}

func formatReminderBody(fu *model.FollowUp, urgency string) string {
	when := fu.ScheduledFor.UTC().Format("Jan 2 15:04 MST")
	if fu.Description != "" {
		return fmt.Sprintf("Reminder (%s): %s at %s. %s", urgency, fu.Title, when, fu.Description)
	}
	return fmt.Sprintf("Reminder (%s): %s at %s", urgency, fu.Title, when)
}
