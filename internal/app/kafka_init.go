package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/IanKulin/route-demo/internal/domain"
	"github.com/IanKulin/route-demo/internal/messaging/kafka"
	"github.com/IanKulin/route-demo/internal/service/outbox"
)

// publishers задаёт, куда worker отправляет события. dlq пуст без Kafka.
type publishers struct {
	events   domain.OutboxPublisher
	dlq      domain.OutboxPublisher
	producer *kafka.Producer
}

// initPublishers подключается к Kafka, если брокеры заданы. Без брокеров или
// при ошибке подключения события пишутся в лог, запуск не прерывается.
func initPublishers(cfg Config, logger *log.Entry) publishers {
	fallback := publishers{events: outbox.NewLogPublisher(logger.WithField("component", "outbox-publisher"))}

	brokers := normalizeBrokers(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		return fallback
	}

	producer, err := kafka.NewProducer(brokers, logger.WithField("component", "kafka-producer"))
	if err != nil {
		logger.WithError(err).WithField("brokers", brokers).Warn("kafka unavailable, record events go to log")
		return fallback
	}

	logger.WithFields(log.Fields{"brokers": brokers, "topic": cfg.KafkaTopic}).Info("kafka producer initialized")
	return publishers{
		events:   kafka.NewTopicPublisher(producer, cfg.KafkaTopic),
		dlq:      kafka.NewTopicPublisher(producer, cfg.KafkaDLQTopic),
		producer: producer,
	}
}

func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("kafka producer close failed")
		return
	}
	logger.Debug("kafka producer closed")
}
