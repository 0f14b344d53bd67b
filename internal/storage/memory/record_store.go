package memory

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/IanKulin/route-demo/internal/domain"
)

// RecordStore — in-memory хранилище клиентов и заказов с каскадным удалением.
// Customer и Order состоят только из скалярных полей, поэтому возврат по
// значению уже даёт независимую копию.
//
// События нумеруются под mu, а наблюдателям передаются после его
// освобождения, по очереди тикетов: порядок событий совпадает с порядком
// изменений даже при конкурентных вызовах.
type RecordStore struct {
	mu        sync.RWMutex
	customers *collection[domain.Customer]
	orders    *collection[domain.Order]
	seq       uint64
	issued    uint64

	emitMu    sync.Mutex
	emitCond  *sync.Cond
	emitted   uint64
	observers []domain.RecordObserver
	logger    *log.Entry
	now       func() time.Time
}

// NewRecordStore создаёт пустое хранилище. Наблюдатели получают события
// после каждого успешного изменения.
func NewRecordStore(logger *log.Entry, observers ...domain.RecordObserver) *RecordStore {
	if logger == nil {
		logger = log.WithField("component", "record-store")
	}
	s := &RecordStore{
		customers: newCollection[domain.Customer](),
		orders:    newCollection[domain.Order](),
		observers: observers,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.emitCond = sync.NewCond(&s.emitMu)
	return s
}

// NewSeededRecordStore создаёт хранилище с демонстрационными данными.
func NewSeededRecordStore(logger *log.Entry, observers ...domain.RecordObserver) *RecordStore {
	store := NewRecordStore(logger, observers...)
	store.Preload(SeedCustomers(), SeedOrders())
	return store
}

// Preload загружает записи с их собственными ID без генерации событий.
func (s *RecordStore) Preload(customers []domain.Customer, orders []domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range customers {
		s.customers.put(c.ID, c)
	}
	for _, o := range orders {
		s.orders.put(o.ID, o)
	}
}

// Counts возвращает размеры коллекций.
func (s *RecordStore) Counts() domain.RecordCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.RecordCounts{Customers: s.customers.len(), Orders: s.orders.len()}
}

// ListCustomers возвращает всех клиентов в порядке добавления.
func (s *RecordStore) ListCustomers() []domain.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.customers.list()
}

// GetCustomer возвращает клиента или ErrCustomerNotFound.
func (s *RecordStore) GetCustomer(id string) (domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers.get(id)
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

// AddCustomer сохраняет клиента под новым ID. Переданный ID игнорируется.
func (s *RecordStore) AddCustomer(customer domain.Customer) domain.Customer {
	s.mu.Lock()
	customer.ID = s.customers.nextID()
	s.customers.put(customer.ID, customer)
	ticket, events := s.stampLocked(s.customerEvent(domain.ActionCreated, customer))
	s.mu.Unlock()

	s.emit(ticket, events)
	return customer
}

// UpdateCustomer накладывает патч на клиента и возвращает результат.
func (s *RecordStore) UpdateCustomer(id string, patch domain.CustomerPatch) (domain.Customer, error) {
	s.mu.Lock()
	current, ok := s.customers.get(id)
	if !ok {
		s.mu.Unlock()
		s.logger.WithField("customer_id", id).Warn("customer not found, update skipped")
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	updated := patch.Apply(current)
	s.customers.put(id, updated)
	ticket, events := s.stampLocked(s.customerEvent(domain.ActionUpdated, updated))
	s.mu.Unlock()

	s.emit(ticket, events)
	return updated, nil
}

// DeleteCustomer удаляет клиента, затем по одному удаляет все его заказы
// тем же путём, что и DeleteOrder. Всё выполняется под одной блокировкой.
func (s *RecordStore) DeleteCustomer(id string) (domain.Customer, error) {
	s.mu.Lock()
	customer, ok := s.customers.remove(id)
	if !ok {
		s.mu.Unlock()
		s.logger.WithField("customer_id", id).Warn("customer not found, delete skipped")
		return domain.Customer{}, domain.ErrCustomerNotFound
	}

	events := []domain.RecordEvent{s.customerEvent(domain.ActionDeleted, customer)}
	for _, order := range s.ordersByCustomerLocked(id) {
		removed, ok := s.deleteOrderLocked(order.ID)
		if !ok {
			continue
		}
		event := s.orderEvent(domain.ActionDeleted, removed)
		event.Cascade = true
		events = append(events, event)
	}
	ticket, events := s.stampLocked(events...)
	s.mu.Unlock()

	if cascaded := len(events) - 1; cascaded > 0 {
		s.logger.WithFields(log.Fields{
			"customer_id": id,
			"orders":      cascaded,
		}).Debug("cascade deleted customer orders")
	}
	s.emit(ticket, events)
	return customer, nil
}

// ListOrders возвращает все заказы в порядке добавления.
func (s *RecordStore) ListOrders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.orders.list()
}

// GetOrder возвращает заказ или ErrOrderNotFound.
func (s *RecordStore) GetOrder(id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders.get(id)
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListOrdersByCustomer возвращает заказы, ссылающиеся на customerID.
func (s *RecordStore) ListOrdersByCustomer(customerID string) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ordersByCustomerLocked(customerID)
}

// AddOrder сохраняет заказ под новым ID. CustomerID не проверяется.
func (s *RecordStore) AddOrder(order domain.Order) domain.Order {
	s.mu.Lock()
	order.ID = s.orders.nextID()
	s.orders.put(order.ID, order)
	ticket, events := s.stampLocked(s.orderEvent(domain.ActionCreated, order))
	s.mu.Unlock()

	s.emit(ticket, events)
	return order
}

// UpdateOrder накладывает патч на заказ и возвращает результат.
func (s *RecordStore) UpdateOrder(id string, patch domain.OrderPatch) (domain.Order, error) {
	s.mu.Lock()
	current, ok := s.orders.get(id)
	if !ok {
		s.mu.Unlock()
		s.logger.WithField("order_id", id).Warn("order not found, update skipped")
		return domain.Order{}, domain.ErrOrderNotFound
	}
	updated := patch.Apply(current)
	s.orders.put(id, updated)
	ticket, events := s.stampLocked(s.orderEvent(domain.ActionUpdated, updated))
	s.mu.Unlock()

	s.emit(ticket, events)
	return updated, nil
}

// DeleteOrder удаляет заказ и возвращает удалённую запись.
func (s *RecordStore) DeleteOrder(id string) (domain.Order, error) {
	s.mu.Lock()
	order, ok := s.deleteOrderLocked(id)
	if !ok {
		s.mu.Unlock()
		s.logger.WithField("order_id", id).Warn("order not found, delete skipped")
		return domain.Order{}, domain.ErrOrderNotFound
	}
	ticket, events := s.stampLocked(s.orderEvent(domain.ActionDeleted, order))
	s.mu.Unlock()

	s.emit(ticket, events)
	return order, nil
}

// deleteOrderLocked удаляет заказ. Это единственный путь удаления. Вызывается под s.mu.
func (s *RecordStore) deleteOrderLocked(id string) (domain.Order, bool) {
	return s.orders.remove(id)
}

func (s *RecordStore) ordersByCustomerLocked(customerID string) []domain.Order {
	return s.orders.filter(func(o domain.Order) bool {
		return o.CustomerID == customerID
	})
}

func (s *RecordStore) customerEvent(action domain.RecordAction, customer domain.Customer) domain.RecordEvent {
	return domain.RecordEvent{
		Entity:     domain.EntityCustomer,
		Action:     action,
		ID:         customer.ID,
		CustomerID: customer.ID,
		Customer:   &customer,
		Occurred:   s.now(),
	}
}

func (s *RecordStore) orderEvent(action domain.RecordAction, order domain.Order) domain.RecordEvent {
	return domain.RecordEvent{
		Entity:     domain.EntityOrder,
		Action:     action,
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Order:      &order,
		Occurred:   s.now(),
	}
}

// stampLocked нумерует события и выдаёт тикет на их отправку. Вызывается под s.mu.
func (s *RecordStore) stampLocked(events ...domain.RecordEvent) (uint64, []domain.RecordEvent) {
	for i := range events {
		s.seq++
		events[i].Seq = s.seq
	}
	s.issued++
	return s.issued, events
}

// emit ждёт отправки всех предыдущих тикетов и вызывает наблюдателей без s.mu,
// поэтому они могут читать хранилище.
func (s *RecordStore) emit(ticket uint64, events []domain.RecordEvent) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	for s.emitted+1 != ticket {
		s.emitCond.Wait()
	}
	defer func() {
		s.emitted = ticket
		s.emitCond.Broadcast()
	}()

	for _, event := range events {
		for _, observer := range s.observers {
			observer.Observe(event)
		}
	}
}

var _ domain.RecordStore = (*RecordStore)(nil)
