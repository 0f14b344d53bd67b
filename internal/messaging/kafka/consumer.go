package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// EnvelopeHandler обрабатывает событие хранилища, прочитанное из Kafka.
type EnvelopeHandler func(ctx context.Context, envelope *Envelope, message *sarama.ConsumerMessage) error

// Consumer читает события хранилища через consumer group.
type Consumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler EnvelopeHandler
	logger  *log.Entry
	wg      sync.WaitGroup
}

// NewConsumer создаёт consumer group. fromOldest включает чтение с начала topic.
func NewConsumer(brokers []string, groupID string, topics []string, fromOldest bool, handler EnvelopeHandler, logger *log.Entry) (*Consumer, error) {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	if fromOldest {
		config.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	return newConsumer(group, topics, handler, logger), nil
}

func newConsumer(group sarama.ConsumerGroup, topics []string, handler EnvelopeHandler, logger *log.Entry) *Consumer {
	if logger == nil {
		logger = log.WithField("component", "kafka-consumer")
	}
	if len(topics) == 0 {
		topics = []string{TopicRecordEvents}
	}
	return &Consumer{
		group:   group,
		topics:  topics,
		handler: handler,
		logger:  logger,
	}
}

// Start запускает чтение в фоне до отмены ctx.
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			// Consume возвращается при каждом rebalance.
			if err := c.group.Consume(ctx, c.topics, c); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.WithError(err).Error("error from consumer")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topics", c.topics).Info("kafka consumer started")
}

// Stop закрывает consumer group и ждёт фоновые горутины.
func (c *Consumer) Stop() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup вызывается при старте consumer session
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup вызывается при завершении consumer session
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim обрабатывает сообщения партиции. Сообщения, которые не удалось
// разобрать или обработать, логируются и всё равно помечаются прочитанными.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			c.handle(session.Context(), message)
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, message *sarama.ConsumerMessage) {
	msgLogger := c.logger.WithFields(log.Fields{
		"topic":      message.Topic,
		"partition":  message.Partition,
		"offset":     message.Offset,
		"event_type": headerValue(message, HeaderEventType),
	})

	envelope, err := ParseEnvelope(message)
	if err != nil {
		msgLogger.WithError(err).Warn("skipping malformed message")
		return
	}
	if c.handler == nil {
		return
	}
	if err := c.handler(ctx, envelope, message); err != nil {
		msgLogger.WithError(err).Error("record event handler failed")
	}
}

// LogEnvelope пишет событие в лог. Используется по умолчанию.
func LogEnvelope(logger *log.Entry) EnvelopeHandler {
	return func(_ context.Context, envelope *Envelope, message *sarama.ConsumerMessage) error {
		logger.WithFields(log.Fields{
			"topic":          message.Topic,
			"offset":         message.Offset,
			"outbox_id":      envelope.ID,
			"aggregate_type": envelope.AggregateType,
			"aggregate_id":   envelope.AggregateID,
			"event_type":     envelope.EventType,
			"payload":        string(envelope.Payload),
		}).Info("record event received")
		return nil
	}
}
