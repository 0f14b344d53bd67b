package web_test

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IanKulin/route-demo/internal/domain"
)

func doJSON(t *testing.T, h http.Handler, method, target, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := do(t, h, method, target, reader)
	return rec.Code, rec.Body.Bytes()
}

func TestAPI_GetCustomer(t *testing.T) {
	h, _ := newTestServer(t)

	code, body := doJSON(t, h, http.MethodGet, "/api/customers/1", "")

	require.Equal(t, http.StatusOK, code)
	var customer domain.Customer
	require.NoError(t, json.Unmarshal(body, &customer))
	assert.Equal(t, "Alice Johnson", customer.Name)
}

func TestAPI_NotFoundBodies(t *testing.T) {
	h, _ := newTestServer(t)

	tests := []struct {
		method string
		target string
		want   string
	}{
		{method: http.MethodGet, target: "/api/customers/999", want: `{"error":"Customer not found"}`},
		{method: http.MethodDelete, target: "/api/customers/999", want: `{"error":"Customer not found"}`},
		{method: http.MethodGet, target: "/api/customers/999/orders", want: `{"error":"Customer not found"}`},
		{method: http.MethodGet, target: "/api/orders/999", want: `{"error":"Order not found"}`},
		{method: http.MethodDelete, target: "/api/orders/999", want: `{"error":"Order not found"}`},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			code, body := doJSON(t, h, tt.method, tt.target, "")
			assert.Equal(t, http.StatusNotFound, code)
			assert.JSONEq(t, tt.want, string(body))
		})
	}
}

func TestAPI_PatchCustomer_PartialUpdate(t *testing.T) {
	h, store := newTestServer(t)
	original, err := store.GetCustomer("4")
	require.NoError(t, err)

	code, body := doJSON(t, h, http.MethodPatch, "/api/customers/4", `{"name":"New Name"}`)

	require.Equal(t, http.StatusOK, code)
	var updated domain.Customer
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, domain.Customer{ID: "4", Name: "New Name", Address: original.Address}, updated)
}

func TestAPI_PatchOrder_RejectsNegativeValue(t *testing.T) {
	h, _ := newTestServer(t)

	code, _ := doJSON(t, h, http.MethodPatch, "/api/orders/1", `{"value":-5}`)

	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_CreateOrder(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/orders", strings.NewReader(`{"customerId":"3","date":"2024-02-02","value":12}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/orders/21", rec.Header().Get("Location"))
	var order domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, domain.Order{ID: "21", CustomerID: "3", Date: "2024-02-02", Value: 12}, order)
}

func TestAPI_CreateCustomer_EmptyNameStored(t *testing.T) {
	h, store := newTestServer(t)

	code, body := doJSON(t, h, http.MethodPost, "/api/customers", `{"address":"nowhere"}`)

	require.Equal(t, http.StatusCreated, code)
	var customer domain.Customer
	require.NoError(t, json.Unmarshal(body, &customer))
	assert.Equal(t, domain.Customer{ID: "21", Name: "", Address: "nowhere"}, customer)
	assert.Equal(t, 21, store.Counts().Customers)
}

func TestAPI_DeleteCustomerCascades(t *testing.T) {
	h, store := newTestServer(t)

	code, _ := doJSON(t, h, http.MethodDelete, "/api/customers/1", "")

	assert.Equal(t, http.StatusNoContent, code)
	code, body := doJSON(t, h, http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, code)
	var orders []domain.Order
	require.NoError(t, json.Unmarshal(body, &orders))
	for _, order := range orders {
		assert.NotEqual(t, "1", order.CustomerID)
	}
	assert.Equal(t, len(orders), store.Counts().Orders)
}

func TestAPI_InvalidBody(t *testing.T) {
	h, _ := newTestServer(t)

	code, body := doJSON(t, h, http.MethodPost, "/api/customers", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, string(body))
}
