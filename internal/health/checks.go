package health

import (
	"context"
	"fmt"
	"time"

	"github.com/IanKulin/route-demo/internal/domain"
)

const defaultPingTimeout = 2 * time.Second

// timed выполняет fn и переводит ошибку в unhealthy.
func timed(name string, fn func() error) Check {
	start := time.Now()
	err := fn()
	check := Check{
		Name:       name,
		Status:     StatusHealthy,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// SimpleChecker оборачивает функцию без контекста.
type SimpleChecker struct {
	name    string
	checkFn func() error
}

func NewSimpleChecker(name string, checkFn func() error) *SimpleChecker {
	return &SimpleChecker{name: name, checkFn: checkFn}
}

func (c *SimpleChecker) Check() Check {
	return timed(c.name, c.checkFn)
}

// PingChecker проверяет внешнюю зависимость с таймаутом.
type PingChecker struct {
	name    string
	timeout time.Duration
	ping    func(ctx context.Context) error
}

// NewPingChecker создаёт проверку; timeout<=0 заменяется на 2s.
func NewPingChecker(name string, timeout time.Duration, ping func(ctx context.Context) error) *PingChecker {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	return &PingChecker{name: name, timeout: timeout, ping: ping}
}

func (c *PingChecker) Check() Check {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return timed(c.name, func() error { return c.ping(ctx) })
}

// RecordStoreChecker сообщает размеры коллекций. Хранилище в памяти
// всегда доступно, поэтому проверка только информирует.
type RecordStoreChecker struct {
	counts func() domain.RecordCounts
}

func NewRecordStoreChecker(counts func() domain.RecordCounts) *RecordStoreChecker {
	return &RecordStoreChecker{counts: counts}
}

func (c *RecordStoreChecker) Check() Check {
	var counts domain.RecordCounts
	check := timed("record_store", func() error {
		counts = c.counts()
		return nil
	})
	check.Message = fmt.Sprintf("customers=%d orders=%d", counts.Customers, counts.Orders)
	return check
}

// OutboxStatsSource описывает часть OutboxRepository, нужная для проверки backlog.
type OutboxStatsSource interface {
	Stats() (domain.OutboxStats, error)
}

// OutboxBacklogChecker переводит сервис в degraded, если outbox не успевает.
type OutboxBacklogChecker struct {
	source     OutboxStatsSource
	maxPending int
	maxAge     time.Duration
	now        func() time.Time
}

// NewOutboxBacklogChecker создаёт проверку backlog. Нулевые пороги отключают
// соответствующее условие.
func NewOutboxBacklogChecker(source OutboxStatsSource, maxPending int, maxAge time.Duration) *OutboxBacklogChecker {
	return &OutboxBacklogChecker{
		source:     source,
		maxPending: maxPending,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

func (c *OutboxBacklogChecker) Check() Check {
	var stats domain.OutboxStats
	check := timed("outbox", func() error {
		var err error
		stats, err = c.source.Stats()
		return err
	})
	if check.Status == StatusUnhealthy {
		return check
	}

	check.Message = fmt.Sprintf("pending=%d", stats.PendingCount)
	switch {
	case c.maxPending > 0 && stats.PendingCount > c.maxPending:
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("pending=%d exceeds %d", stats.PendingCount, c.maxPending)
	case c.maxAge > 0 && !stats.OldestPendingAt.IsZero() && c.now().Sub(stats.OldestPendingAt) > c.maxAge:
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("oldest pending age %s exceeds %s",
			c.now().Sub(stats.OldestPendingAt).Truncate(time.Second), c.maxAge)
	}
	return check
}
