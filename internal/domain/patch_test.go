package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/IanKulin/route-demo/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestCustomerPatch_ApplyOnlyTouchesSuppliedFields(t *testing.T) {
	customer := domain.Customer{ID: "4", Name: "Diana Prince", Address: "101 Maple St, Gotham"}

	got := domain.CustomerPatch{Name: strPtr("Updated Name")}.Apply(customer)

	assert.Equal(t, "4", got.ID)
	assert.Equal(t, "Updated Name", got.Name)
	assert.Equal(t, "101 Maple St, Gotham", got.Address)
	assert.Equal(t, "Diana Prince", customer.Name, "source value must not change")
}

func TestCustomerPatch_EmptyIsNoop(t *testing.T) {
	customer := domain.Customer{ID: "1", Name: "Alice Johnson", Address: "123 Main St, Springfield"}

	patch := domain.CustomerPatch{}

	assert.True(t, patch.IsEmpty())
	assert.Equal(t, customer, patch.Apply(customer))
}

func TestOrderPatch_Apply(t *testing.T) {
	order := domain.Order{ID: "3", CustomerID: "1", Date: "2025-03-03", Value: 75}
	value := 0.0

	got := domain.OrderPatch{Value: &value}.Apply(order)

	assert.Equal(t, 0.0, got.Value)
	assert.Equal(t, "1", got.CustomerID)
	assert.Equal(t, "2025-03-03", got.Date)
	assert.False(t, domain.OrderPatch{Value: &value}.IsEmpty())
	assert.True(t, domain.OrderPatch{}.IsEmpty())
}
