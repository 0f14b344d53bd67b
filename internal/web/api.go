package web

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/IanKulin/route-demo/internal/domain"
)

const maxBodyBytes = 1 << 20

type apiError struct {
	Error string `json:"error"`
}

type customerRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type orderRequest struct {
	CustomerID string  `json:"customerId"`
	Date       string  `json:"date"`
	Value      float64 `json:"value"`
}

func (s *Server) apiListCustomers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.store.ListCustomers())
}

func (s *Server) apiGetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := s.store.GetCustomer(mux.Vars(r)["id"])
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, customer)
}

func (s *Server) apiListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	customer, err := s.store.GetCustomer(mux.Vars(r)["id"])
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.store.ListOrdersByCustomer(customer.ID))
}

func (s *Server) apiCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeJSON(w, r, http.StatusBadRequest, apiError{Error: "Invalid request body"})
		return
	}
	created := s.store.AddCustomer(domain.Customer{Name: req.Name, Address: req.Address})
	w.Header().Set("Location", "/api/customers/"+created.ID)
	s.writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) apiUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var patch domain.CustomerPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeJSON(w, r, http.StatusBadRequest, apiError{Error: "Invalid request body"})
		return
	}
	updated, err := s.store.UpdateCustomer(mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) apiDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.DeleteCustomer(mux.Vars(r)["id"]); err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiListOrders(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.store.ListOrders())
}

func (s *Server) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.store.GetOrder(mux.Vars(r)["id"])
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, order)
}

func (s *Server) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeJSON(w, r, http.StatusBadRequest, apiError{Error: "Invalid request body"})
		return
	}
	if !validValue(req.Value) {
		s.writeJSON(w, r, http.StatusBadRequest, apiError{Error: "Invalid order value"})
		return
	}
	created := s.store.AddOrder(domain.Order{
		CustomerID: req.CustomerID,
		Date:       req.Date,
		Value:      req.Value,
	})
	w.Header().Set("Location", "/api/orders/"+created.ID)
	s.writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) apiUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var patch domain.OrderPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeJSON(w, r, http.StatusBadRequest, apiError{Error: "Invalid request body"})
		return
	}
	if patch.Value != nil && !validValue(*patch.Value) {
		s.writeJSON(w, r, http.StatusBadRequest, apiError{Error: "Invalid order value"})
		return
	}
	updated, err := s.store.UpdateOrder(mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) apiDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.DeleteOrder(mux.Vars(r)["id"]); err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		s.writeJSON(w, r, http.StatusNotFound, apiError{Error: msgCustomerNotFound})
	case errors.Is(err, domain.ErrOrderNotFound):
		s.writeJSON(w, r, http.StatusNotFound, apiError{Error: msgOrderNotFound})
	default:
		requestLogger(r, s.logger).WithError(err).Error("record lookup failed")
		s.writeJSON(w, r, http.StatusInternalServerError, apiError{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		requestLogger(r, s.logger).WithError(err).Error("encode response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		requestLogger(r, s.logger).WithError(err).Warn("write response")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func validValue(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
