package web

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/IanKulin/route-demo/internal/domain"
)

var errInvalidValue = errors.New("invalid order value")

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "orders", ordersPage{
		Title:  "Orders",
		Orders: s.store.ListOrders(),
	})
}

// showOrder отдаёт 404 и для заказа, ссылающегося на удалённого клиента.
func (s *Server) showOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	order, err := s.store.GetOrder(id)
	if err != nil {
		s.renderLookupError(w, r, err)
		return
	}
	customer, err := s.store.GetCustomer(order.CustomerID)
	if err != nil {
		requestLogger(r, s.logger).WithFields(log.Fields{
			"order_id":    order.ID,
			"customer_id": order.CustomerID,
		}).Warn("order references missing customer")
		s.renderLookupError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "order", orderPage{
		Title:    "Order " + order.ID,
		Order:    order,
		Customer: customer,
	})
}

func (s *Server) newOrderForm(w http.ResponseWriter, r *http.Request) {
	order := domain.Order{CustomerID: strings.TrimSpace(r.URL.Query().Get("customerId"))}
	s.renderOrderForm(w, r, "New order", "/orders", order)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form")
		return
	}
	value, err := parseValue(r.PostForm.Get("value"))
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid order value")
		return
	}
	created := s.store.AddOrder(domain.Order{
		CustomerID: strings.TrimSpace(r.PostForm.Get("customerId")),
		Date:       strings.TrimSpace(r.PostForm.Get("date")),
		Value:      value,
	})
	requestLogger(r, s.logger).WithFields(log.Fields{
		"order_id":    created.ID,
		"customer_id": created.CustomerID,
	}).Info("order created")
	http.Redirect(w, r, "/orders/"+created.ID, http.StatusSeeOther)
}

func (s *Server) editOrderForm(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	order, err := s.store.GetOrder(id)
	if err != nil {
		s.renderLookupError(w, r, err)
		return
	}
	s.renderOrderForm(w, r, "Edit order "+order.ID, "/orders/"+order.ID, order)
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form")
		return
	}
	patch, err := orderPatchFromForm(r.PostForm)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid order value")
		return
	}
	id := mux.Vars(r)["id"]
	updated, err := s.store.UpdateOrder(id, patch)
	if err != nil {
		s.renderLookupError(w, r, err)
		return
	}
	http.Redirect(w, r, "/orders/"+updated.ID, http.StatusSeeOther)
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.store.DeleteOrder(id); err != nil && !domain.IsNotFound(err) {
		requestLogger(r, s.logger).WithError(err).WithField("order_id", id).Error("delete order")
	}
	redirectAfterDelete(w, r, "/orders")
}

func (s *Server) renderOrderForm(w http.ResponseWriter, r *http.Request, title, action string, order domain.Order) {
	customers := s.store.ListCustomers()
	known := false
	for _, c := range customers {
		if c.ID == order.CustomerID {
			known = true
			break
		}
	}
	s.render(w, r, http.StatusOK, "order_form", orderFormPage{
		Title:         title,
		Action:        action,
		Order:         order,
		Customers:     customers,
		CustomerKnown: known,
	})
}

func orderPatchFromForm(form url.Values) (domain.OrderPatch, error) {
	var patch domain.OrderPatch
	if form.Has("customerId") {
		customerID := strings.TrimSpace(form.Get("customerId"))
		patch.CustomerID = &customerID
	}
	if form.Has("date") {
		date := strings.TrimSpace(form.Get("date"))
		patch.Date = &date
	}
	if form.Has("value") {
		value, err := parseValue(form.Get("value"))
		if err != nil {
			return domain.OrderPatch{}, err
		}
		patch.Value = &value
	}
	return patch, nil
}

// parseValue принимает только конечные неотрицательные суммы.
func parseValue(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidValue, err)
	}
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %q", errInvalidValue, raw)
	}
	return value, nil
}
