package domain

// CustomerStore описывает операции над коллекцией клиентов.
// Все методы возвращают копии, изменение результата не влияет на хранилище.
type CustomerStore interface {
	// ListCustomers возвращает всех клиентов в порядке добавления.
	ListCustomers() []Customer
	// GetCustomer возвращает клиента или ErrCustomerNotFound.
	GetCustomer(id string) (Customer, error)
	// AddCustomer назначает новый ID (max+1) и сохраняет копию.
	AddCustomer(customer Customer) Customer
	// UpdateCustomer накладывает патч на существующего клиента.
	UpdateCustomer(id string, patch CustomerPatch) (Customer, error)
	// DeleteCustomer удаляет клиента и все его заказы.
	DeleteCustomer(id string) (Customer, error)
}

// OrderStore описывает операции над коллекцией заказов.
type OrderStore interface {
	ListOrders() []Order
	GetOrder(id string) (Order, error)
	// ListOrdersByCustomer возвращает заказы клиента; пустой срез, если их нет.
	ListOrdersByCustomer(customerID string) []Order
	AddOrder(order Order) Order
	UpdateOrder(id string, patch OrderPatch) (Order, error)
	DeleteOrder(id string) (Order, error)
}

// RecordCounts — текущие размеры коллекций.
type RecordCounts struct {
	Customers int
	Orders    int
}

// RecordStore объединяет обе коллекции и правило каскадного удаления.
type RecordStore interface {
	CustomerStore
	OrderStore
	Counts() RecordCounts
}
