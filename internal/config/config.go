package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	NATS struct {
		URL     string             `mapstructure:"url"`
		Inbound ConsumerNatsConfig `mapstructure:"inbound"`
		// EventSubjectPrefix is prepended to event bus topics, e.g.
		// "v1.events" yields "v1.events.new_message".
		EventSubjectPrefix string `mapstructure:"eventSubjectPrefix"`
	} `mapstructure:"nats"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	WorkerPools struct {
		Suggestion SuggestionWorkerPoolConfig `mapstructure:"suggestion"`
	} `mapstructure:"workerPools"`
}

// RemindersConfig holds the reminder engine policy knobs
type RemindersConfig struct {
	LookaheadMinutes      int `mapstructure:"lookaheadMinutes"`      // due-notification window ahead of now
	LookbackMinutes       int `mapstructure:"lookbackMinutes"`       // due-notification window behind now
	StaleAfterHours       int `mapstructure:"staleAfterHours"`       // auto-close policy threshold
	NotifyIntervalSeconds int `mapstructure:"notifyIntervalSeconds"` // due-notifier poll cadence
}

// DashboardConfig holds the dashboard read-model policy knobs
type DashboardConfig struct {
	HotLeadMinScore int `mapstructure:"hotLeadMinScore"`
	HotLeadLimit    int `mapstructure:"hotLeadLimit"`
	DanglingHours   int `mapstructure:"danglingHours"`
}

// SuggestionWorkerPoolConfig holds configuration for the AI suggestion worker pool
type SuggestionWorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	QueueSize  int           `mapstructure:"queueSize"`  // Task queue buffer size
	MaxBlock   time.Duration `mapstructure:"maxBlock"`   // Max time to block when submitting if queue full
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// ConsumerNatsConfig holds configuration specific to a NATS JetStream consumer
type ConsumerNatsConfig struct {
	MaxAge       int64         `mapstructure:"maxAge"` // max age of messages in days
	Stream       string        `mapstructure:"stream"`
	Consumer     string        `mapstructure:"consumer"` // durable name
	QueueGroup   string        `mapstructure:"group"`
	SubjectList  []string      `mapstructure:"subjectList"`
	MaxDeliver   int           `mapstructure:"maxDeliver"`   // Max delivery attempts
	NakBaseDelay time.Duration `mapstructure:"nakBaseDelay"` // Base delay for exponential backoff NAK
	NakMaxDelay  time.Duration `mapstructure:"nakMaxDelay"`  // Maximum delay for exponential backoff NAK
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)

	v.SetDefault("database.postgresAutoMigrate", true)

	v.SetDefault("nats.eventSubjectPrefix", "v1.events")
	v.SetDefault("nats.inbound.stream", "crm_inbound")
	v.SetDefault("nats.inbound.consumer", "crm_inbound_consumer")
	v.SetDefault("nats.inbound.group", "crm_inbound_group")
	v.SetDefault("nats.inbound.subjectList", []string{"v1.messages.inbound.>"})
	v.SetDefault("nats.inbound.maxAge", 7)
	v.SetDefault("nats.inbound.maxDeliver", 5)
	v.SetDefault("nats.inbound.nakBaseDelay", 2*time.Second)
	v.SetDefault("nats.inbound.nakMaxDelay", 30*time.Second)

	v.SetDefault("reminders.lookaheadMinutes", 5)
	v.SetDefault("reminders.lookbackMinutes", 5)
	v.SetDefault("reminders.staleAfterHours", 168) // one week overdue
	v.SetDefault("reminders.notifyIntervalSeconds", 60)

	v.SetDefault("dashboard.hotLeadMinScore", 70)
	v.SetDefault("dashboard.hotLeadLimit", 20)
	v.SetDefault("dashboard.danglingHours", 48)

	v.SetDefault("workerPools.suggestion.poolSize", 8)
	v.SetDefault("workerPools.suggestion.queueSize", 4096)
	v.SetDefault("workerPools.suggestion.maxBlock", time.Second)
	v.SetDefault("workerPools.suggestion.expiryTime", time.Minute)

	// Config file settings
	v.SetConfigName("default")
	v.SetConfigType("yaml")

	// Add lookup paths
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.luxe-crm-service")
	v.AddConfigPath("/etc/luxe-crm-service")

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map environment variables to config fields
	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		path := append(parts, tag)
		key := strings.Join(path, ".")

		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
