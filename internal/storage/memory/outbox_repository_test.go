package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IanKulin/route-demo/internal/domain"
)

func pendingIDs(t *testing.T, repo *OutboxRepository, limit int) []string {
	t.Helper()
	msgs, err := repo.PullPending(limit)
	require.NoError(t, err)
	ids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		ids = append(ids, msg.ID)
	}
	return ids
}

func TestOutboxRepository_EnqueueGeneratesIDAndCopiesPayload(t *testing.T) {
	repo := NewOutboxRepository()
	payload := []byte(`{"id":"1"}`)

	saved, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "customer",
		AggregateID:   "1",
		EventType:     "customer.deleted",
		Payload:       payload,
	})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	payload[0] = 'X'

	msgs, err := repo.PullPending(10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, saved.ID, msgs[0].ID)
	assert.Equal(t, `{"id":"1"}`, string(msgs[0].Payload))
}

func TestOutboxRepository_PullPendingKeepsEnqueueOrder(t *testing.T) {
	repo := NewOutboxRepository()
	for _, id := range []string{"c", "a", "b"} {
		_, err := repo.Enqueue(domain.OutboxMessage{ID: id, AggregateType: "order"})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"c", "a"}, pendingIDs(t, repo, 2))
	assert.Equal(t, []string{"c", "a", "b"}, pendingIDs(t, repo, 0), "non-positive limit falls back to default")

	require.NoError(t, repo.MarkSent("a"))
	assert.Equal(t, []string{"c", "b"}, pendingIDs(t, repo, 10))
}

func TestOutboxRepository_EnqueueSameIDKeepsPosition(t *testing.T) {
	repo := NewOutboxRepository()
	_, err := repo.Enqueue(domain.OutboxMessage{ID: "x", Payload: []byte("1")})
	require.NoError(t, err)
	_, err = repo.Enqueue(domain.OutboxMessage{ID: "y"})
	require.NoError(t, err)
	_, err = repo.Enqueue(domain.OutboxMessage{ID: "x", Payload: []byte("2")})
	require.NoError(t, err)

	msgs, err := repo.PullPending(10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "x", msgs[0].ID)
	assert.Equal(t, "2", string(msgs[0].Payload))

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PendingCount)
}

func TestOutboxRepository_Stats(t *testing.T) {
	repo := NewOutboxRepository()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "order"})
	require.NoError(t, err)
	second, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "order"})
	require.NoError(t, err)

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PendingCount)
	assert.True(t, stats.OldestPendingAt.Equal(base.Add(time.Minute)))

	require.NoError(t, repo.MarkSent(first.ID))
	stats, err = repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingCount)
	assert.True(t, stats.OldestPendingAt.Equal(base.Add(2*time.Minute)))

	require.NoError(t, repo.MarkFailed(second.ID))
	stats, err = repo.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.PendingCount)
	assert.True(t, stats.OldestPendingAt.IsZero())
}

func TestOutboxRepository_Transitions(t *testing.T) {
	repo := NewOutboxRepository()
	saved, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "order"})
	require.NoError(t, err)

	status, ok := repo.Status(saved.ID)
	require.True(t, ok)
	assert.Equal(t, outboxStatusPending, status)

	require.NoError(t, repo.MarkSent(saved.ID))
	status, _ = repo.Status(saved.ID)
	assert.Equal(t, outboxStatusSent, status)

	require.NoError(t, repo.MarkFailed(saved.ID))
	status, _ = repo.Status(saved.ID)
	assert.Equal(t, outboxStatusFailed, status)

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.PendingCount, "second transition must not decrement twice")

	assert.ErrorIs(t, repo.MarkFailed("missing"), domain.ErrOutboxMessageNotFound)
	_, ok = repo.Status("missing")
	assert.False(t, ok)
}
