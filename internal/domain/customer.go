package domain

// Customer — клиент, владелец заказов.
type Customer struct {
	// ID — строковое представление положительного целого, назначается хранилищем.
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// CustomerPatch описывает частичное обновление клиента.
// nil-поле означает «не передано» и не трогает сохранённое значение.
type CustomerPatch struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
}

// Apply накладывает переданные поля поверх c и возвращает результат.
func (p CustomerPatch) Apply(c Customer) Customer {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	return c
}

// IsEmpty сообщает, что в патче нет ни одного поля.
func (p CustomerPatch) IsEmpty() bool {
	return p.Name == nil && p.Address == nil
}
