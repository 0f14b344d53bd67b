package domain

import "time"

// EntityKind — тип сущности, к которой относится событие.
type EntityKind string

const (
	EntityCustomer EntityKind = "customer"
	EntityOrder    EntityKind = "order"
)

// RecordAction — вид изменения записи.
type RecordAction string

const (
	ActionCreated RecordAction = "created"
	ActionUpdated RecordAction = "updated"
	ActionDeleted RecordAction = "deleted"
)

// RecordEvent описывает одно успешно применённое изменение в хранилище.
type RecordEvent struct {
	// Seq растёт на единицу с каждым событием хранилища в порядке применения изменений.
	Seq    uint64
	Entity EntityKind
	Action RecordAction
	// ID — идентификатор изменённой записи.
	ID string
	// CustomerID заполнен для заказов и для клиентов (совпадает с ID).
	CustomerID string
	// Cascade выставляется для заказов, удалённых вместе с клиентом.
	Cascade bool
	// Customer и Order — копии записи после изменения (для удаления — удалённая запись).
	Customer *Customer
	Order    *Order
	Occurred time.Time
}

// Type возвращает имя события вида "customer.deleted".
func (e RecordEvent) Type() string {
	return string(e.Entity) + "." + string(e.Action)
}

// RecordObserver получает события после того, как изменение применено,
// строго в порядке Seq. Наблюдатель может читать хранилище, но не должен его
// изменять: следующее событие ждёт возврата из Observe.
type RecordObserver interface {
	Observe(event RecordEvent)
}

// ObserverFunc адаптирует функцию к RecordObserver.
type ObserverFunc func(event RecordEvent)

// Observe вызывает f(event).
func (f ObserverFunc) Observe(event RecordEvent) { f(event) }
