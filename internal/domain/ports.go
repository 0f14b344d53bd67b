package domain

import "time"

// OutboxMessage — событие изменения записи, ожидающее доставки.
// AggregateType равен "customer" или "order", AggregateID хранит ID записи.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает очередь недоставленных событий.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxRepository хранит события до публикации. PullPending отдаёт
// pending-сообщения в порядке постановки.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxPublisher доставляет событие наружу. Повторная доставка того же
// сообщения возможна, получатели дедуплицируют по ID.
type OutboxPublisher interface {
	Publish(msg OutboxMessage) error
}
