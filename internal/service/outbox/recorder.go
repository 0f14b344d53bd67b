package outbox

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/IanKulin/route-demo/internal/domain"
	"github.com/IanKulin/route-demo/internal/metrics"
)

// EventPayload — JSON-представление события в outbox и в брокере.
type EventPayload struct {
	Seq        uint64           `json:"seq"`
	Type       string           `json:"type"`
	Entity     string           `json:"entity"`
	Action     string           `json:"action"`
	ID         string           `json:"id"`
	CustomerID string           `json:"customerId,omitempty"`
	Cascade    bool             `json:"cascade,omitempty"`
	Customer   *domain.Customer `json:"customer,omitempty"`
	Order      *domain.Order    `json:"order,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// Recorder превращает события хранилища в outbox-сообщения.
// Ошибки записи только логируются: операция хранилища уже применена.
type Recorder struct {
	repo    domain.OutboxRepository
	logger  *log.Entry
	metrics *metrics.OutboxMetrics
}

// NewRecorder создаёт Recorder. metrics может быть nil.
func NewRecorder(repo domain.OutboxRepository, logger *log.Entry, m *metrics.OutboxMetrics) *Recorder {
	if logger == nil {
		logger = log.WithField("component", "outbox-recorder")
	}
	return &Recorder{repo: repo, logger: logger, metrics: m}
}

// Observe реализует domain.RecordObserver.
func (r *Recorder) Observe(event domain.RecordEvent) {
	msg, err := NewMessage(event)
	if err != nil {
		r.logger.WithError(err).WithField("event_type", event.Type()).Error("failed to encode record event")
		r.metrics.IncResult(metrics.OutboxResultEnqueueErr)
		return
	}
	stored, err := r.repo.Enqueue(msg)
	if err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"event_type":   msg.EventType,
			"aggregate_id": msg.AggregateID,
		}).Error("failed to enqueue record event")
		r.metrics.IncResult(metrics.OutboxResultEnqueueErr)
		return
	}
	r.metrics.IncResult(metrics.OutboxResultEnqueued)
	r.logger.WithFields(log.Fields{
		"outbox_id":  stored.ID,
		"event_type": stored.EventType,
	}).Debug("record event enqueued")
}

// NewMessage строит outbox-сообщение из события хранилища. ID назначает репозиторий.
func NewMessage(event domain.RecordEvent) (domain.OutboxMessage, error) {
	payload, err := json.Marshal(EventPayload{
		Seq:        event.Seq,
		Type:       event.Type(),
		Entity:     string(event.Entity),
		Action:     string(event.Action),
		ID:         event.ID,
		CustomerID: event.CustomerID,
		Cascade:    event.Cascade,
		Customer:   event.Customer,
		Order:      event.Order,
		OccurredAt: event.Occurred.UTC(),
	})
	if err != nil {
		return domain.OutboxMessage{}, err
	}
	return domain.OutboxMessage{
		AggregateType: string(event.Entity),
		AggregateID:   event.ID,
		EventType:     event.Type(),
		Payload:       payload,
	}, nil
}

var _ domain.RecordObserver = (*Recorder)(nil)
