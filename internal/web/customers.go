package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/IanKulin/route-demo/internal/domain"
)

func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "customers", customersPage{
		Title:     "Customers",
		Customers: s.store.ListCustomers(),
	})
}

func (s *Server) showCustomer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	customer, err := s.store.GetCustomer(id)
	if err != nil {
		s.renderLookupError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "customer", customerPage{
		Title:    customer.Name,
		Customer: customer,
		Orders:   s.store.ListOrdersByCustomer(customer.ID),
	})
}

func (s *Server) newCustomerForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "customer_form", customerFormPage{
		Title:  "New customer",
		Action: "/customers",
	})
}

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form")
		return
	}
	created := s.store.AddCustomer(domain.Customer{
		Name:    strings.TrimSpace(r.PostForm.Get("name")),
		Address: strings.TrimSpace(r.PostForm.Get("address")),
	})
	requestLogger(r, s.logger).WithField("customer_id", created.ID).Info("customer created")
	http.Redirect(w, r, "/customers/"+created.ID, http.StatusSeeOther)
}

func (s *Server) editCustomerForm(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	customer, err := s.store.GetCustomer(id)
	if err != nil {
		s.renderLookupError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "customer_form", customerFormPage{
		Title:    "Edit " + customer.Name,
		Action:   "/customers/" + customer.ID,
		Customer: customer,
	})
}

func (s *Server) updateCustomer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form")
		return
	}
	id := mux.Vars(r)["id"]
	updated, err := s.store.UpdateCustomer(id, customerPatchFromForm(r.PostForm))
	if err != nil {
		s.renderLookupError(w, r, err)
		return
	}
	http.Redirect(w, r, "/customers/"+updated.ID, http.StatusSeeOther)
}

func (s *Server) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.store.DeleteCustomer(id); err != nil && !domain.IsNotFound(err) {
		requestLogger(r, s.logger).WithError(err).WithField("customer_id", id).Error("delete customer")
	}
	redirectAfterDelete(w, r, "/customers")
}

// customerPatchFromForm берёт только присланные поля формы.
func customerPatchFromForm(form url.Values) domain.CustomerPatch {
	var patch domain.CustomerPatch
	if form.Has("name") {
		name := strings.TrimSpace(form.Get("name"))
		patch.Name = &name
	}
	if form.Has("address") {
		address := strings.TrimSpace(form.Get("address"))
		patch.Address = &address
	}
	return patch
}

// renderLookupError отображает отсутствие записи как 404 с текстом для пользователя.
func (s *Server) renderLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		s.renderError(w, r, http.StatusNotFound, msgCustomerNotFound)
	case errors.Is(err, domain.ErrOrderNotFound):
		s.renderError(w, r, http.StatusNotFound, msgOrderNotFound)
	default:
		requestLogger(r, s.logger).WithError(err).Error("record lookup failed")
		s.renderError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
