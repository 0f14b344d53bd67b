package memory

import "strconv"

// collection хранит упорядоченное отображение id -> запись.
// Порядок обхода совпадает с порядком добавления. Синхронизацию обеспечивает владелец.
type collection[T any] struct {
	ids   []string
	items map[string]T
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{items: make(map[string]T)}
}

func (c *collection[T]) len() int {
	return len(c.ids)
}

func (c *collection[T]) get(id string) (T, bool) {
	item, ok := c.items[id]
	return item, ok
}

// put добавляет запись в конец или заменяет существующую на её месте.
func (c *collection[T]) put(id string, item T) {
	if _, exists := c.items[id]; !exists {
		c.ids = append(c.ids, id)
	}
	c.items[id] = item
}

func (c *collection[T]) remove(id string) (T, bool) {
	item, ok := c.items[id]
	if !ok {
		return item, false
	}
	delete(c.items, id)
	for i, existing := range c.ids {
		if existing == id {
			c.ids = append(c.ids[:i], c.ids[i+1:]...)
			break
		}
	}
	return item, true
}

// list возвращает новый срез со всеми записями.
func (c *collection[T]) list() []T {
	result := make([]T, 0, len(c.ids))
	for _, id := range c.ids {
		result = append(result, c.items[id])
	}
	return result
}

// filter возвращает записи, для которых keep вернул true.
func (c *collection[T]) filter(keep func(T) bool) []T {
	result := make([]T, 0)
	for _, id := range c.ids {
		if item := c.items[id]; keep(item) {
			result = append(result, item)
		}
	}
	return result
}

// nextID возвращает max(числовые id) + 1. Нечисловые id игнорируются,
// пустая коллекция даёт "1". После удаления максимального id он может быть выдан снова.
func (c *collection[T]) nextID() string {
	maxID := 0
	for _, id := range c.ids {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		if n > maxID {
			maxID = n
		}
	}
	return strconv.Itoa(maxID + 1)
}
