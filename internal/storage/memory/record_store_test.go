package memory_test

import (
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IanKulin/route-demo/internal/domain"
	"github.com/IanKulin/route-demo/internal/storage/memory"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("component", "test")
}

type recordingObserver struct {
	mu     sync.Mutex
	events []domain.RecordEvent
}

func (o *recordingObserver) Observe(event domain.RecordEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) types() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	result := make([]string, 0, len(o.events))
	for _, e := range o.events {
		result = append(result, e.Type()+":"+e.ID)
	}
	return result
}

func newSeeded(t *testing.T) (*memory.RecordStore, *recordingObserver) {
	t.Helper()
	observer := &recordingObserver{}
	return memory.NewSeededRecordStore(loggerForTests(), observer), observer
}

func strPtr(s string) *string { return &s }

func TestRecordStore_SeedData(t *testing.T) {
	store, observer := newSeeded(t)

	customers := store.ListCustomers()
	orders := store.ListOrders()
	require.Len(t, customers, 20)
	require.Len(t, orders, 20)
	assert.Equal(t, "Alice Johnson", customers[0].Name)
	assert.Equal(t, domain.RecordCounts{Customers: 20, Orders: 20}, store.Counts())
	assert.Empty(t, observer.types(), "seeding must not emit events")

	for i, c := range customers {
		assert.Equal(t, strconv.Itoa(i+1), c.ID, "insertion order")
	}
}

func TestRecordStore_GetCustomer(t *testing.T) {
	store, _ := newSeeded(t)

	customer, err := store.GetCustomer("3")
	require.NoError(t, err)
	assert.Equal(t, domain.Customer{ID: "3", Name: "Charlie Brown", Address: "789 Pine St, Capital City"}, customer)

	_, err = store.GetCustomer("999")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestRecordStore_AddCustomerAssignsMaxPlusOne(t *testing.T) {
	store, observer := newSeeded(t)

	added := store.AddCustomer(domain.Customer{ID: "ignored", Name: "Test", Address: "X"})

	assert.Equal(t, "21", added.ID)
	assert.Equal(t, "Test", added.Name)
	assert.Len(t, store.ListCustomers(), 21)
	assert.Equal(t, []string{"customer.created:21"}, observer.types())

	got, err := store.GetCustomer(added.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Customer{ID: "21", Name: "Test", Address: "X"}, got)
}

func TestRecordStore_AddOnEmptyCollectionYieldsOne(t *testing.T) {
	store := memory.NewRecordStore(loggerForTests())

	customer := store.AddCustomer(domain.Customer{Name: "First"})
	order := store.AddOrder(domain.Order{CustomerID: customer.ID, Date: "2025-01-01", Value: 10})

	assert.Equal(t, "1", customer.ID)
	assert.Equal(t, "1", order.ID)
}

func TestRecordStore_AddAfterDeleteDoesNotCollide(t *testing.T) {
	store, _ := newSeeded(t)

	_, err := store.DeleteCustomer("5")
	require.NoError(t, err)

	added := store.AddCustomer(domain.Customer{Name: "Gap"})
	assert.Equal(t, "21", added.ID, "gaps from deletion are not reused")
}

func TestRecordStore_AddReusesDeletedMaxID(t *testing.T) {
	store, _ := newSeeded(t)

	_, err := store.DeleteCustomer("20")
	require.NoError(t, err)

	added := store.AddCustomer(domain.Customer{Name: "Reissued"})
	assert.Equal(t, "20", added.ID, "max+1 over current ids reissues the deleted highest id")
}

func TestRecordStore_AddAlwaysExceedsExistingIDs(t *testing.T) {
	store, _ := newSeeded(t)

	for i := 0; i < 5; i++ {
		maxID := 0
		for _, o := range store.ListOrders() {
			n, err := strconv.Atoi(o.ID)
			require.NoError(t, err)
			if n > maxID {
				maxID = n
			}
		}
		added := store.AddOrder(domain.Order{CustomerID: "1", Date: "2025-04-01", Value: float64(i)})
		n, err := strconv.Atoi(added.ID)
		require.NoError(t, err)
		assert.Greater(t, n, maxID)
	}
}

func TestRecordStore_UpdateCustomerMergesFields(t *testing.T) {
	store, observer := newSeeded(t)

	updated, err := store.UpdateCustomer("4", domain.CustomerPatch{Name: strPtr("Updated Name")})
	require.NoError(t, err)

	assert.Equal(t, "4", updated.ID)
	assert.Equal(t, "Updated Name", updated.Name)
	assert.Equal(t, "101 Maple St, Gotham", updated.Address)

	stored, err := store.GetCustomer("4")
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
	assert.Equal(t, []string{"customer.updated:4"}, observer.types())
}

func TestRecordStore_UpdateOrderMergesFields(t *testing.T) {
	store, _ := newSeeded(t)
	value := 80.5

	updated, err := store.UpdateOrder("3", domain.OrderPatch{Value: &value})
	require.NoError(t, err)

	assert.Equal(t, domain.Order{ID: "3", CustomerID: "1", Date: "2025-03-03", Value: 80.5}, updated)
}

func TestRecordStore_MissingIDsLeaveCollectionsUnchanged(t *testing.T) {
	store, observer := newSeeded(t)
	beforeCustomers := store.ListCustomers()
	beforeOrders := store.ListOrders()

	_, err := store.GetCustomer("999")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	_, err = store.UpdateCustomer("999", domain.CustomerPatch{Name: strPtr("nobody")})
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	_, err = store.DeleteCustomer("999")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = store.GetOrder("999")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = store.UpdateOrder("999", domain.OrderPatch{Date: strPtr("2030-01-01")})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = store.DeleteOrder("999")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	assert.Equal(t, beforeCustomers, store.ListCustomers())
	assert.Equal(t, beforeOrders, store.ListOrders())
	assert.Empty(t, observer.types())
}

func TestRecordStore_DeleteIsIdempotentInAbsence(t *testing.T) {
	store, _ := newSeeded(t)

	deleted, err := store.DeleteOrder("7")
	require.NoError(t, err)
	assert.Equal(t, "7", deleted.ID)
	assert.Len(t, store.ListOrders(), 19)

	_, err = store.DeleteOrder("7")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Len(t, store.ListOrders(), 19)
}

func TestRecordStore_DeleteCustomerCascadesToOrders(t *testing.T) {
	store, observer := newSeeded(t)

	// два дополнительных заказа у Alice, итого три
	store.AddOrder(domain.Order{CustomerID: "1", Date: "2025-04-01", Value: 10})
	store.AddOrder(domain.Order{CustomerID: "1", Date: "2025-04-02", Value: 20})
	require.Len(t, store.ListOrdersByCustomer("1"), 3)
	ordersBefore := len(store.ListOrders())
	observer.events = nil

	customer, err := store.DeleteCustomer("1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Johnson", customer.Name)

	_, err = store.GetCustomer("1")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	_, err = store.GetOrder("3")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Empty(t, store.ListOrdersByCustomer("1"))
	assert.Len(t, store.ListOrders(), ordersBefore-3)

	assert.Equal(t, []string{
		"customer.deleted:1",
		"order.deleted:3",
		"order.deleted:21",
		"order.deleted:22",
	}, observer.types())
	for _, e := range observer.events[1:] {
		assert.True(t, e.Cascade, "order %s should be marked as cascade", e.ID)
		require.NotNil(t, e.Order)
		assert.Equal(t, "1", e.Order.CustomerID)
	}
	assert.False(t, observer.events[0].Cascade)
}

func TestRecordStore_DeleteCustomerWithoutOrders(t *testing.T) {
	store, _ := newSeeded(t)
	added := store.AddCustomer(domain.Customer{Name: "No Orders"})

	_, err := store.DeleteCustomer(added.ID)
	require.NoError(t, err)
	assert.Len(t, store.ListOrders(), 20)
}

func TestRecordStore_DanglingOrderIsAccepted(t *testing.T) {
	store, _ := newSeeded(t)

	order := store.AddOrder(domain.Order{CustomerID: "404", Date: "2025-05-05", Value: 1})

	got, err := store.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, "404", got.CustomerID)
	_, err = store.GetCustomer(got.CustomerID)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestRecordStore_ReturnedValuesAreIsolated(t *testing.T) {
	store, _ := newSeeded(t)

	list := store.ListCustomers()
	list[0].Name = "Mutated"
	list = append(list, domain.Customer{ID: "999"})
	_ = list

	got, err := store.GetCustomer("1")
	require.NoError(t, err)
	got.Address = "Mutated"

	added := store.AddCustomer(domain.Customer{Name: "Copy", Address: "Original"})
	added.Address = "Mutated"

	updated, err := store.UpdateCustomer("2", domain.CustomerPatch{Address: strPtr("New")})
	require.NoError(t, err)
	updated.Name = "Mutated"

	orders := store.ListOrdersByCustomer("3")
	require.Len(t, orders, 1)
	orders[0].Value = -1

	fresh, err := store.GetCustomer("1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Johnson", fresh.Name)
	assert.Equal(t, "123 Main St, Springfield", fresh.Address)

	freshAdded, err := store.GetCustomer(added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", freshAdded.Address)

	freshUpdated, err := store.GetCustomer("2")
	require.NoError(t, err)
	assert.Equal(t, "Bob Smith", freshUpdated.Name)

	order, err := store.GetOrder("1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, order.Value)
	assert.Len(t, store.ListCustomers(), 21)
}

func TestRecordStore_ObserverMayReadStore(t *testing.T) {
	var (
		store  *memory.RecordStore
		counts []domain.RecordCounts
	)
	store = memory.NewSeededRecordStore(loggerForTests(), domain.ObserverFunc(func(domain.RecordEvent) {
		counts = append(counts, store.Counts())
	}))

	store.AddCustomer(domain.Customer{Name: "x"})
	_, err := store.DeleteCustomer("1")
	require.NoError(t, err)

	require.Len(t, counts, 3)
	assert.Equal(t, domain.RecordCounts{Customers: 21, Orders: 20}, counts[0])
	assert.Equal(t, domain.RecordCounts{Customers: 20, Orders: 19}, counts[1])
}

func TestRecordStore_ConcurrentAddsProduceUniqueIDs(t *testing.T) {
	store := memory.NewRecordStore(loggerForTests())

	const workers = 50
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- store.AddCustomer(domain.Customer{Name: "c"}).ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, workers)
	for id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers)
}

func TestRecordStore_EventsFollowMutationOrderUnderContention(t *testing.T) {
	recorder := &recordingObserver{}
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gate := domain.ObserverFunc(func(event domain.RecordEvent) {
		if event.Type() == "order.created" {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
	})
	store := memory.NewSeededRecordStore(loggerForTests(), gate, recorder)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		store.AddOrder(domain.Order{CustomerID: "1", Date: "2025-04-01", Value: 5})
	}()
	<-entered

	go func() {
		defer wg.Done()
		_, err := store.DeleteCustomer("1")
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool {
		_, err := store.GetCustomer("1")
		return err != nil
	}, time.Second, time.Millisecond, "delete must apply while the earlier event is still being observed")
	close(release)
	wg.Wait()

	assert.Equal(t, []string{
		"order.created:21",
		"customer.deleted:1",
		"order.deleted:3",
		"order.deleted:21",
	}, recorder.types())

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	for i, event := range recorder.events {
		assert.Equal(t, uint64(i+1), event.Seq)
	}
}

func TestRecordStore_DeletingAllCustomersRestartsIDsAtOne(t *testing.T) {
	store, _ := newSeeded(t)
	for _, c := range store.ListCustomers() {
		_, err := store.DeleteCustomer(c.ID)
		require.NoError(t, err)
	}
	require.Empty(t, store.ListCustomers())
	require.Empty(t, store.ListOrders())

	dangling := store.AddOrder(domain.Order{CustomerID: "1", Date: "2025-05-01", Value: 9})
	assert.Equal(t, "1", dangling.ID)

	adopter := store.AddCustomer(domain.Customer{Name: "New Owner", Address: "1 Fresh St"})
	assert.Equal(t, "1", adopter.ID)

	// Новый клиент "1" получает заказ, оставшийся от прежнего владельца id.
	assert.Equal(t, []domain.Order{dangling}, store.ListOrdersByCustomer(adopter.ID))
}
