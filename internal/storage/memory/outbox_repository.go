package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IanKulin/route-demo/internal/domain"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"

	defaultPullLimit = 100
)

type outboxEntry struct {
	msg       domain.OutboxMessage
	status    string
	attempts  int
	createdAt time.Time
	updatedAt time.Time
}

// OutboxRepository хранит outbox в памяти процесса. Записи лежат в порядке
// постановки, поэтому PullPending отдаёт их без сортировки.
type OutboxRepository struct {
	mu      sync.RWMutex
	log     []*outboxEntry
	byID    map[string]*outboxEntry
	pending int
	now     func() time.Time
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{
		byID: make(map[string]*outboxEntry),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue добавляет сообщение в конец журнала; без ID генерируется UUID.
// Повторный ID заменяет payload, сохраняя позицию в очереди.
func (r *OutboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Payload = append([]byte(nil), msg.Payload...)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.byID[msg.ID]; ok {
		existing.msg = msg
		existing.updatedAt = now
		return msg, nil
	}

	entry := &outboxEntry{msg: msg, status: outboxStatusPending, createdAt: now, updatedAt: now}
	r.log = append(r.log, entry)
	r.byID[msg.ID] = entry
	r.pending++
	return msg, nil
}

func (r *OutboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultPullLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.OutboxMessage, 0, min(limit, r.pending))
	for _, entry := range r.log {
		if len(out) == limit {
			break
		}
		if entry.status == outboxStatusPending {
			out = append(out, entry.msg)
		}
	}
	return out, nil
}

func (r *OutboxRepository) Stats() (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.OutboxStats{PendingCount: r.pending}
	for _, entry := range r.log {
		if entry.status == outboxStatusPending {
			stats.OldestPendingAt = entry.createdAt
			break
		}
	}
	return stats, nil
}

func (r *OutboxRepository) MarkSent(id string) error {
	return r.transition(id, outboxStatusSent)
}

func (r *OutboxRepository) MarkFailed(id string) error {
	return r.transition(id, outboxStatusFailed)
}

// Status возвращает текущий статус сообщения и false, если его нет.
func (r *OutboxRepository) Status(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.byID[id]; ok {
		return entry.status, true
	}
	return "", false
}

func (r *OutboxRepository) transition(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byID[id]
	if !ok {
		return domain.ErrOutboxMessageNotFound
	}
	if entry.status == outboxStatusPending && status != outboxStatusPending {
		r.pending--
	}
	entry.status = status
	entry.attempts++
	entry.updatedAt = r.now()
	return nil
}

var _ domain.OutboxRepository = (*OutboxRepository)(nil)
