package kafka

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const clientID = "route-demo"

var errProducerClosed = errors.New("kafka producer is not initialized")

// ProducerConfig задаёт параметры доставки SyncProducer.
type ProducerConfig struct {
	ClientID    string
	MaxRetries  int
	Compression sarama.CompressionCodec
	Idempotent  bool
}

// DefaultProducerConfig ждёт подтверждения от всех in-sync реплик и включает
// идемпотентность, чтобы повторы outbox не дублировали события в партиции.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		ClientID:    clientID,
		MaxRetries:  5,
		Compression: sarama.CompressionSnappy,
		Idempotent:  true,
	}
}

func (c ProducerConfig) sarama() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = c.ClientID
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = c.MaxRetries
	cfg.Producer.Compression = c.Compression
	if c.Idempotent {
		cfg.Producer.Idempotent = true
		cfg.Net.MaxOpenRequests = 1
	}
	return cfg
}

// Message описывает одно сообщение для Kafka. Пустые заголовки не отправляются.
type Message struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

func (m Message) producerMessage(at time.Time) *sarama.ProducerMessage {
	out := &sarama.ProducerMessage{
		Topic:     m.Topic,
		Key:       sarama.StringEncoder(m.Key),
		Value:     sarama.ByteEncoder(m.Value),
		Timestamp: at,
	}
	names := make([]string, 0, len(m.Headers))
	for name, value := range m.Headers {
		if value != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	for _, name := range names {
		out.Headers = append(out.Headers, sarama.RecordHeader{Key: []byte(name), Value: []byte(m.Headers[name])})
	}
	return out
}

// Producer отправляет сообщения синхронно.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
	now    func() time.Time
}

func NewProducer(brokers []string, logger *log.Entry) (*Producer, error) {
	return NewProducerWithConfig(brokers, DefaultProducerConfig(), logger)
}

func NewProducerWithConfig(brokers []string, cfg ProducerConfig, logger *log.Entry) (*Producer, error) {
	syncProducer, err := sarama.NewSyncProducer(brokers, cfg.sarama())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newProducer(syncProducer, logger), nil
}

func newProducer(syncProducer sarama.SyncProducer, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	return &Producer{sync: syncProducer, logger: logger, now: time.Now}
}

// Send блокируется до подтверждения брокером.
func (p *Producer) Send(msg Message) error {
	if p == nil || p.sync == nil {
		return errProducerClosed
	}

	fields := log.Fields{"topic": msg.Topic, "key": msg.Key}
	partition, offset, err := p.sync.SendMessage(msg.producerMessage(p.now()))
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("kafka send failed")
		return fmt.Errorf("send to %s: %w", msg.Topic, err)
	}

	fields["partition"] = partition
	fields["offset"] = offset
	p.logger.WithFields(fields).Debug("kafka message sent")
	return nil
}

func (p *Producer) Close() error {
	if p == nil || p.sync == nil {
		return nil
	}
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
