package domain

import "errors"

var (
	// ErrCustomerNotFound возвращается, если клиента с таким ID нет в хранилище.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrOrderNotFound возвращается, если заказа с таким ID нет в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOutboxPublish означает, что сообщение не доставлено после всех попыток.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrOutboxMessageNotFound возвращается при смене статуса неизвестного сообщения.
	ErrOutboxMessageNotFound = errors.New("outbox message not found")
)

// IsNotFound проверяет, что ошибка означает отсутствие клиента или заказа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) || errors.Is(err, ErrOrderNotFound)
}
