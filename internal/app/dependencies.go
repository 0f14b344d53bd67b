package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/IanKulin/route-demo/internal/domain"
	"github.com/IanKulin/route-demo/internal/health"
	"github.com/IanKulin/route-demo/internal/messaging/kafka"
	"github.com/IanKulin/route-demo/internal/metrics"
	"github.com/IanKulin/route-demo/internal/service/outbox"
	"github.com/IanKulin/route-demo/internal/storage/memory"
	"github.com/IanKulin/route-demo/internal/storage/postgres"
)

const postgresPingTimeout = 2 * time.Second

// runtimeDependencies содержит собранные зависимости процесса.
type runtimeDependencies struct {
	store         *memory.RecordStore
	outboxRepo    domain.OutboxRepository
	publisher     domain.OutboxPublisher
	dlqPublisher  domain.OutboxPublisher
	outboxMetrics *metrics.OutboxMetrics
	httpMetrics   *metrics.HTTPMetrics
	health        *health.Handler

	producer *kafka.Producer
	pgStore  *postgres.Store
}

// initRuntimeDependencies собирает хранилище, outbox и публикаторы по конфигурации.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry, registerer prometheus.Registerer, healthHandler *health.Handler) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{
		outboxMetrics: metrics.NewOutboxMetricsWithRegisterer(registerer),
		httpMetrics:   metrics.NewHTTPMetricsWithRegisterer(registerer),
		health:        healthHandler,
	}

	outboxRepo, pgStore, err := initOutboxRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.outboxRepo = outboxRepo
	deps.pgStore = pgStore

	recordMetrics := metrics.NewRecordMetricsWithRegisterer(registerer)
	recorder := outbox.NewRecorder(outboxRepo, logger.WithField("component", "outbox-recorder"), deps.outboxMetrics)
	storeLogger := logger.WithField("component", "record-store")
	if cfg.Seed {
		deps.store = memory.NewSeededRecordStore(storeLogger, recordMetrics, recorder)
	} else {
		deps.store = memory.NewRecordStore(storeLogger, recordMetrics, recorder)
	}
	metrics.RegisterStoreGauges(registerer, deps.store.Counts)

	pubs := initPublishers(cfg, logger)
	deps.publisher, deps.dlqPublisher, deps.producer = pubs.events, pubs.dlq, pubs.producer

	if healthHandler != nil {
		deps.registerHealthChecks(cfg)
	}
	return deps, nil
}

// initOutboxRepository выбирает хранилище outbox. Для postgres открывается
// подключение и, если включено, применяются миграции.
func initOutboxRepository(ctx context.Context, cfg Config, logger *log.Entry) (domain.OutboxRepository, *postgres.Store, error) {
	switch cfg.OutboxDriver {
	case "", OutboxDriverMemory:
		logger.Info("outbox storage: memory")
		return memory.NewOutboxRepository(), nil, nil
	case OutboxDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres outbox: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		logger.Info("outbox storage: postgres")
		return postgres.NewOutboxRepository(store), store, nil
	default:
		return nil, nil, fmt.Errorf("unsupported outbox driver %q", cfg.OutboxDriver)
	}
}

func (d *runtimeDependencies) registerHealthChecks(cfg Config) {
	d.health.RegisterChecker("record_store", health.NewRecordStoreChecker(d.store.Counts))
	d.health.RegisterChecker("outbox", health.NewOutboxBacklogChecker(d.outboxRepo, cfg.OutboxMaxPending, cfg.OutboxMaxAge))
	if d.pgStore != nil {
		d.health.RegisterChecker("postgres", health.NewPingChecker("postgres", postgresPingTimeout, d.pgStore.Ping))
	}
}

// newOutboxWorker собирает worker доставки поверх зависимостей.
func (d *runtimeDependencies) newOutboxWorker(cfg Config, logger *log.Entry) *outbox.Worker {
	options := []outbox.Option{
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithMetrics(d.outboxMetrics),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if d.dlqPublisher != nil {
		options = append(options, outbox.WithDLQPublisher(d.dlqPublisher))
	}
	return outbox.NewWorker(d.outboxRepo, d.publisher, options...)
}

// close освобождает внешние подключения.
func (d *runtimeDependencies) close(logger *log.Entry) error {
	if d == nil {
		return nil
	}
	closeKafkaProducer(d.producer, logger)
	d.producer = nil

	var errs []error
	if d.pgStore != nil {
		if err := d.pgStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
		d.pgStore = nil
	}
	return errors.Join(errs...)
}
