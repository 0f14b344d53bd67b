package domain

// Order — заказ клиента.
type Order struct {
	// ID — строковое представление положительного целого, назначается хранилищем.
	ID string `json:"id"`
	// CustomerID ссылается на Customer.ID. При записи не проверяется и может
	// указывать на несуществующего клиента.
	CustomerID string `json:"customerId"`
	// Date — календарная дата в формате YYYY-MM-DD.
	Date string `json:"date"`
	// Value — неотрицательная сумма заказа.
	Value float64 `json:"value"`
}

// OrderPatch описывает частичное обновление заказа.
type OrderPatch struct {
	CustomerID *string  `json:"customerId,omitempty"`
	Date       *string  `json:"date,omitempty"`
	Value      *float64 `json:"value,omitempty"`
}

// Apply накладывает переданные поля поверх o и возвращает результат.
func (p OrderPatch) Apply(o Order) Order {
	if p.CustomerID != nil {
		o.CustomerID = *p.CustomerID
	}
	if p.Date != nil {
		o.Date = *p.Date
	}
	if p.Value != nil {
		o.Value = *p.Value
	}
	return o
}

// IsEmpty сообщает, что в патче нет ни одного поля.
func (p OrderPatch) IsEmpty() bool {
	return p.CustomerID == nil && p.Date == nil && p.Value == nil
}
