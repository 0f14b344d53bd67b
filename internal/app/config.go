package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// EnvPrefix задаёт префикс переменных окружения сервиса.
const EnvPrefix = "ROUTEDEMO"

// OutboxDriver выбирает хранилище outbox.
type OutboxDriver string

const (
	OutboxDriverMemory   OutboxDriver = "memory"
	OutboxDriverPostgres OutboxDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string `envconfig:"HTTP_ADDR"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	// GRPCAddr задаёт адрес admin gRPC (health, reflection). Пустая строка отключает сервер.
	GRPCAddr        string        `envconfig:"GRPC_ADDR"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT"`

	Seed bool `envconfig:"SEED"`

	LogLevel  string `envconfig:"LOG_LEVEL"`
	LogFormat string `envconfig:"LOG_FORMAT"`

	OutboxDriver        OutboxDriver  `envconfig:"OUTBOX_DRIVER"`
	PostgresDSN         string        `envconfig:"POSTGRES_DSN"`
	PostgresAutoMigrate bool          `envconfig:"POSTGRES_AUTO_MIGRATE"`
	OutboxPollInterval  time.Duration `envconfig:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize     int           `envconfig:"OUTBOX_BATCH_SIZE"`
	OutboxMaxAttempts   int           `envconfig:"OUTBOX_MAX_ATTEMPTS"`
	OutboxRetryDelay    time.Duration `envconfig:"OUTBOX_RETRY_DELAY"`
	OutboxMaxPending    int           `envconfig:"OUTBOX_MAX_PENDING"`
	OutboxMaxAge        time.Duration `envconfig:"OUTBOX_MAX_AGE"`

	KafkaBrokers  []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic    string   `envconfig:"KAFKA_TOPIC"`
	KafkaDLQTopic string   `envconfig:"KAFKA_DLQ_TOPIC"`

	TracingEnabled     bool    `envconfig:"TRACING_ENABLED"`
	TracingEndpoint    string  `envconfig:"TRACING_OTLP_ENDPOINT"`
	TracingInsecure    bool    `envconfig:"TRACING_OTLP_INSECURE"`
	TracingSampleRatio float64 `envconfig:"TRACING_SAMPLE_RATIO"`
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":3002",
		MetricsAddr:         ":9090",
		GRPCAddr:            ":50051",
		ShutdownTimeout:     5 * time.Second,
		Seed:                true,
		LogLevel:            "info",
		LogFormat:           "text",
		OutboxDriver:        OutboxDriverMemory,
		PostgresAutoMigrate: true,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
		OutboxMaxPending:    1000,
		OutboxMaxAge:        5 * time.Minute,
		KafkaTopic:          "routedemo.record.events",
		KafkaDLQTopic:       "routedemo.dlq",
		TracingSampleRatio:  1,
	}
}

// LoadConfig читает ROUTEDEMO_* поверх DefaultConfig и проверяет результат.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config from env: %w", err)
	}
	cfg.KafkaBrokers = normalizeBrokers(cfg.KafkaBrokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("http address must not be empty")
	}
	switch c.OutboxDriver {
	case OutboxDriverMemory:
	case OutboxDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("outbox driver %q requires %s_POSTGRES_DSN", c.OutboxDriver, EnvPrefix)
		}
	default:
		return fmt.Errorf("unsupported outbox driver %q", c.OutboxDriver)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("outbox batch size must be > 0, got %d", c.OutboxBatchSize)
	}
	if c.OutboxMaxAttempts <= 0 {
		return fmt.Errorf("outbox max attempts must be > 0, got %d", c.OutboxMaxAttempts)
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return fmt.Errorf("tracing sample ratio must be within [0,1], got %v", c.TracingSampleRatio)
	}
	return nil
}

// normalizeBrokers убирает пробелы и пустые элементы списка брокеров.
func normalizeBrokers(brokers []string) []string {
	result := make([]string, 0, len(brokers))
	for _, broker := range brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			result = append(result, broker)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
