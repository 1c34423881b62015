package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for database operations
	dbOperationLabels = []string{"operation", "entity", "status"}

	// Histogram for database operation duration
	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luxe_crm_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

// --- Reminder engine metrics ---
var (
	reminderTransitionLabels = []string{"from_state", "to_state", "initiator"}

	ReminderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxe_crm_reminder_transitions_total",
			Help: "Total count of follow-up reminder state transitions.",
		},
		reminderTransitionLabels,
	)
	RemindersDueListed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "luxe_crm_reminders_due_listed",
			Help:    "Distribution of result sizes returned by the due-notification query.",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		},
	)
)

// --- Rollup job metrics ---
var (
	RollupDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luxe_crm_rollup_duration_seconds",
			Help:    "Histogram of daily metrics rollup run durations.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"status"},
	)
	RollupLastSuccessTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "luxe_crm_rollup_last_success_timestamp_seconds",
		Help: "Unix timestamp of the last successful rollup run.",
	})
)

// --- Dashboard read-model metrics ---
var (
	DashboardQueryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxe_crm_dashboard_query_failures_total",
			Help: "Total count of dashboard sub-query failures that degraded to empty defaults.",
		},
		[]string{"query"},
	)
)

// --- Event bus metrics ---
var (
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxe_crm_events_published_total",
			Help: "Total number of events published on the event bus, labeled by topic and outcome.",
		},
		[]string{"topic", "status"},
	)
)

// --- Inbound ingestion metrics ---
var (
	ingestionLabels = []string{"subject"}

	InboundEventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxe_crm_inbound_events_received_total",
			Help: "Total number of inbound message events received from JetStream.",
		},
		ingestionLabels,
	)
	InboundEventsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxe_crm_inbound_events_processed_total",
			Help: "Total number of inbound message events successfully processed and acknowledged.",
		},
		ingestionLabels,
	)
	InboundEventsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxe_crm_inbound_events_failed_total",
			Help: "Total number of inbound message events that failed processing (Nak or Term).",
		},
		ingestionLabels,
	)
	InboundProcessingDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luxe_crm_inbound_processing_duration_seconds",
			Help:    "Histogram of inbound message event processing durations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		ingestionLabels,
	)
)

// --- Suggestion worker pool metrics ---
var (
	suggestionStatusLabels = []string{"status"}

	SuggestionTasksSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luxe_crm_suggestion_tasks_submitted_total",
		Help: "Total number of AI suggestion tasks submitted to the worker pool.",
	})
	SuggestionTasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxe_crm_suggestion_tasks_processed_total",
			Help: "Total number of AI suggestion tasks processed, labeled by final status.",
		},
		suggestionStatusLabels,
	)
	SuggestionProcessingDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "luxe_crm_suggestion_processing_duration_seconds",
			Help:    "Histogram of processing durations for AI suggestion tasks.",
			Buckets: prometheus.DefBuckets,
		},
	)
	SuggestionQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "luxe_crm_suggestion_queue_length",
		Help: "Approximate number of tasks waiting in the suggestion worker pool queue.",
	})
)

// InitMetrics initializes the Prometheus metrics if enabled.
// Call this function during application startup.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// ObserveDbOperationDuration records the duration and status of a database operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}

// IncReminderTransition records a reminder state transition.
func IncReminderTransition(fromState, toState, initiator string) {
	if !metricsEnabled {
		return
	}
	ReminderTransitionsTotal.WithLabelValues(fromState, toState, initiator).Inc()
}

// ObserveRemindersDueListed records the size of a due-notification result.
func ObserveRemindersDueListed(n int) {
	if !metricsEnabled {
		return
	}
	RemindersDueListed.Observe(float64(n))
}

// ObserveRollupDuration records the duration and status of a rollup run.
func ObserveRollupDuration(duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	RollupDurationSeconds.WithLabelValues(status).Observe(duration.Seconds())
	if err == nil {
		RollupLastSuccessTimestamp.SetToCurrentTime()
	}
}

// IncDashboardQueryFailure records a degraded dashboard sub-query.
func IncDashboardQueryFailure(query string) {
	if !metricsEnabled {
		return
	}
	DashboardQueryFailuresTotal.WithLabelValues(query).Inc()
}

// IncEventPublished records an event bus publish attempt.
func IncEventPublished(topic string, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	EventsPublishedTotal.WithLabelValues(topic, status).Inc()
}

// IncInboundReceived records an inbound event delivery.
func IncInboundReceived(subject string) {
	if !metricsEnabled {
		return
	}
	InboundEventsReceivedTotal.WithLabelValues(subject).Inc()
}

// IncInboundProcessed records a successfully acknowledged inbound event.
func IncInboundProcessed(subject string) {
	if !metricsEnabled {
		return
	}
	InboundEventsProcessedTotal.WithLabelValues(subject).Inc()
}

// IncInboundFailed records a failed inbound event.
func IncInboundFailed(subject string) {
	if !metricsEnabled {
		return
	}
	InboundEventsFailedTotal.WithLabelValues(subject).Inc()
}

// ObserveInboundProcessingDuration records how long an inbound event took to process.
func ObserveInboundProcessingDuration(subject string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	InboundProcessingDurationSeconds.WithLabelValues(subject).Observe(duration.Seconds())
}

// IncSuggestionTasksSubmitted records a task submitted to the suggestion pool.
func IncSuggestionTasksSubmitted() {
	if !metricsEnabled {
		return
	}
	SuggestionTasksSubmittedTotal.Inc()
}

// IncSuggestionTasksProcessed records a processed suggestion task with its final status.
func IncSuggestionTasksProcessed(status string) {
	if !metricsEnabled {
		return
	}
	SuggestionTasksProcessedTotal.WithLabelValues(status).Inc()
}

// ObserveSuggestionProcessingDuration records how long a suggestion task took.
func ObserveSuggestionProcessingDuration(duration time.Duration) {
	if !metricsEnabled {
		return
	}
	SuggestionProcessingDurationSeconds.Observe(duration.Seconds())
}

// SetSuggestionQueueLength records the approximate suggestion queue depth.
func SetSuggestionQueueLength(n int) {
	if !metricsEnabled {
		return
	}
	SuggestionQueueLength.Set(float64(n))
}
