package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

const (
	insertOutboxSQL = `
INSERT INTO outbox_messages (id, aggregate_type, aggregate_id, event_type, payload, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 'pending', $6, $6)`

	selectPendingOutboxSQL = `
SELECT id, aggregate_type, aggregate_id, event_type, payload
FROM outbox_messages
WHERE status = 'pending'
ORDER BY seq
LIMIT $1`

	pendingStatsSQL = `
SELECT COUNT(*), MIN(created_at)
FROM outbox_messages
WHERE status = 'pending'`

	updateOutboxStatusSQL = `
UPDATE outbox_messages
SET status = $2, attempt_count = attempt_count + 1, updated_at = $3
WHERE id = $1
RETURNING attempt_count`

	selectOutboxStatusSQL = `SELECT status FROM outbox_messages WHERE id = $1`
)

// OutboxRepository хранит outbox в таблице outbox_messages.
// Каждый запрос ограничен opTimeout.
type OutboxRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewOutboxRepository создаёт репозиторий поверх открытого Store.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{
		db:  store.DB(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue сохраняет событие со статусом pending. Пустой ID заменяется на UUID.
func (r *OutboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	err := r.withTimeout(func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, insertOutboxSQL,
			msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, r.now())
		return err
	})
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue outbox message %s: %w", msg.EventType, err)
	}
	return msg, nil
}

// PullPending возвращает до limit pending-сообщений в порядке вставки.
func (r *OutboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultPullLimit
	}

	var messages []domain.OutboxMessage
	err := r.withTimeout(func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, selectPendingOutboxSQL, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		messages, err = scanOutboxMessages(rows, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("pull pending outbox messages: %w", err)
	}
	return messages, nil
}

func scanOutboxMessages(rows *sql.Rows, capacity int) ([]domain.OutboxMessage, error) {
	messages := make([]domain.OutboxMessage, 0, capacity)
	for rows.Next() {
		var msg domain.OutboxMessage
		if err := rows.Scan(&msg.ID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Stats считает pending-сообщения и время самого старого из них.
func (r *OutboxRepository) Stats() (domain.OutboxStats, error) {
	var (
		stats  domain.OutboxStats
		oldest sql.NullTime
	)
	err := r.withTimeout(func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, pendingStatsSQL).Scan(&stats.PendingCount, &oldest)
	})
	if err != nil {
		return domain.OutboxStats{}, fmt.Errorf("query outbox stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time.UTC()
	}
	return stats, nil
}

func (r *OutboxRepository) MarkSent(id string) error {
	return r.markStatus(id, outboxStatusSent)
}

func (r *OutboxRepository) MarkFailed(id string) error {
	return r.markStatus(id, outboxStatusFailed)
}

// Status возвращает текущий статус сообщения.
func (r *OutboxRepository) Status(id string) (string, bool, error) {
	var status string
	err := r.withTimeout(func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, selectOutboxStatusSQL, id).Scan(&status)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query outbox status: %w", err)
	}
	return status, true, nil
}

func (r *OutboxRepository) markStatus(id, status string) error {
	var attempts int
	err := r.withTimeout(func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, updateOutboxStatusSQL, id, status, r.now()).Scan(&attempts)
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("mark outbox %s as %s: %w", id, status, domain.ErrOutboxMessageNotFound)
	case err != nil:
		return fmt.Errorf("mark outbox %s as %s: %w", id, status, err)
	}
	return nil
}

func (r *OutboxRepository) withTimeout(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return fn(ctx)
}

var _ domain.OutboxRepository = (*OutboxRepository)(nil)
