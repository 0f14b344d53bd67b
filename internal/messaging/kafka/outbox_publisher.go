package kafka

import (
	"fmt"

	"github.com/IanKulin/route-demo/internal/domain"
)

// TopicPublisher отправляет outbox-сообщения в один topic. Используется и для
// основного потока событий, и для DLQ.
type TopicPublisher struct {
	producer *Producer
	topic    string
}

// NewTopicPublisher без topic пишет в TopicRecordEvents.
func NewTopicPublisher(producer *Producer, topic string) *TopicPublisher {
	if topic == "" {
		topic = TopicRecordEvents
	}
	return &TopicPublisher{producer: producer, topic: topic}
}

func (p *TopicPublisher) Topic() string {
	return p.topic
}

func (p *TopicPublisher) Publish(msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errProducerClosed
	}

	body, err := NewEnvelope(msg, p.producer.now()).Marshal()
	if err != nil {
		return fmt.Errorf("outbox %s: %w", msg.ID, err)
	}
	return p.producer.Send(Message{
		Topic: p.topic,
		Key:   partitionKey(msg),
		Value: body,
		Headers: map[string]string{
			HeaderEventType:     msg.EventType,
			HeaderAggregateType: msg.AggregateType,
			HeaderOutboxID:      msg.ID,
		},
	})
}

// partitionKey держит события одной записи в одной партиции.
func partitionKey(msg domain.OutboxMessage) string {
	if msg.AggregateID == "" {
		return msg.ID
	}
	return msg.AggregateType + ":" + msg.AggregateID
}

var _ domain.OutboxPublisher = (*TopicPublisher)(nil)
