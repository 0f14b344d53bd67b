package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IanKulin/route-demo/internal/domain"
)

func TestOutboxRepository_EnqueuePullAndMark(t *testing.T) {
	repo := NewOutboxRepository(openMigratedIntegrationStore(t))

	created, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "customer",
		AggregateID:   "21",
		EventType:     "customer.created",
		Payload:       []byte(`{"id":"21"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID, "id is generated when empty")

	cascaded, err := repo.Enqueue(domain.OutboxMessage{
		ID:            "outbox-fixed-id",
		AggregateType: "order",
		AggregateID:   "3",
		EventType:     "order.deleted",
		Payload:       []byte(`{"id":"3","cascade":true}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "outbox-fixed-id", cascaded.ID)

	pending, err := repo.PullPending(0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, []string{created.ID, cascaded.ID}, []string{pending[0].ID, pending[1].ID})
	assert.JSONEq(t, `{"id":"3","cascade":true}`, string(pending[1].Payload))

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PendingCount)
	assert.False(t, stats.OldestPendingAt.IsZero())

	require.NoError(t, repo.MarkSent(created.ID))
	require.NoError(t, repo.MarkFailed(cascaded.ID))

	for id, want := range map[string]string{created.ID: outboxStatusSent, cascaded.ID: outboxStatusFailed} {
		status, ok, err := repo.Status(id)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, status)
	}

	pending, err = repo.PullPending(10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	stats, err = repo.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.PendingCount)
	assert.True(t, stats.OldestPendingAt.IsZero())
}

func TestOutboxRepository_PullPendingLimit(t *testing.T) {
	repo := NewOutboxRepository(openMigratedIntegrationStore(t))

	for _, id := range []string{"1", "2", "3"} {
		_, err := repo.Enqueue(domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   id,
			EventType:     "order.created",
			Payload:       []byte(`{}`),
		})
		require.NoError(t, err)
	}

	pending, err := repo.PullPending(2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "1", pending[0].AggregateID)
	assert.Equal(t, "2", pending[1].AggregateID)
}

func TestOutboxRepository_UnknownMessage(t *testing.T) {
	repo := NewOutboxRepository(openMigratedIntegrationStore(t))

	assert.ErrorIs(t, repo.MarkSent("missing-outbox"), domain.ErrOutboxMessageNotFound)
	assert.ErrorIs(t, repo.MarkFailed("missing-outbox"), domain.ErrOutboxMessageNotFound)

	_, ok, err := repo.Status("missing-outbox")
	require.NoError(t, err)
	assert.False(t, ok)
}
