// Package web отдаёт HTML-страницы и JSON API поверх хранилища записей.
package web

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/IanKulin/route-demo/internal/domain"
	"github.com/IanKulin/route-demo/internal/metrics"
)

const (
	msgCustomerNotFound = "Customer not found"
	msgOrderNotFound    = "Order not found"
)

const tracerName = "github.com/IanKulin/route-demo/internal/web"

// Server связывает маршруты с хранилищем записей.
type Server struct {
	store   domain.RecordStore
	views   *views
	logger  *log.Entry
	metrics *metrics.HTTPMetrics
	tracer  trace.Tracer
}

// Option настраивает Server.
type Option func(*Server)

// WithLogger задаёт логгер веб-слоя.
func WithLogger(logger *log.Entry) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics включает HTTP-метрики Prometheus.
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTracer задаёт tracer для спанов запросов.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewServer разбирает встроенные шаблоны и возвращает готовый Server.
func NewServer(store domain.RecordStore, opts ...Option) (*Server, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	s := &Server{
		store:  store,
		views:  v,
		logger: log.WithField("component", "web"),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler возвращает корневой http.Handler со всеми маршрутами и middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.traceMiddleware, s.metricsMiddleware)

	r.HandleFunc("/", s.redirectHome).Methods(http.MethodGet)

	r.HandleFunc("/customers", s.listCustomers).Methods(http.MethodGet)
	r.HandleFunc("/customers", s.createCustomer).Methods(http.MethodPost)
	r.HandleFunc("/customers/new", s.newCustomerForm).Methods(http.MethodGet)
	r.HandleFunc("/customers/{id}", s.showCustomer).Methods(http.MethodGet)
	r.HandleFunc("/customers/{id}", s.updateCustomer).Methods(http.MethodPost)
	r.HandleFunc("/customers/{id}/edit", s.editCustomerForm).Methods(http.MethodGet)
	r.HandleFunc("/customers/{id}/delete", s.deleteCustomer).Methods(http.MethodGet, http.MethodPost)

	r.HandleFunc("/orders", s.listOrders).Methods(http.MethodGet)
	r.HandleFunc("/orders", s.createOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/new", s.newOrderForm).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", s.showOrder).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", s.updateOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}/edit", s.editOrderForm).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}/delete", s.deleteOrder).Methods(http.MethodGet, http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/customers", s.apiListCustomers).Methods(http.MethodGet)
	api.HandleFunc("/customers", s.apiCreateCustomer).Methods(http.MethodPost)
	api.HandleFunc("/customers/{id}", s.apiGetCustomer).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}", s.apiUpdateCustomer).Methods(http.MethodPatch)
	api.HandleFunc("/customers/{id}", s.apiDeleteCustomer).Methods(http.MethodDelete)
	api.HandleFunc("/customers/{id}/orders", s.apiListCustomerOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.apiListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.apiCreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", s.apiGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.apiUpdateOrder).Methods(http.MethodPatch)
	api.HandleFunc("/orders/{id}", s.apiDeleteOrder).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(s.notFound)

	return requestIDMiddleware(s.logMiddleware(r))
}

func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/customers", http.StatusFound)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "Page not found")
}

// render пишет страницу; ошибки шаблона превращаются в 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	if err := s.views.render(w, status, page, data); err != nil {
		requestLogger(r, s.logger).WithError(err).Error("render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error", errorPage{Title: message, Message: message})
}

// redirectAfterDelete отвечает 302 на GET-ссылку и 303 на отправку формы.
func redirectAfterDelete(w http.ResponseWriter, r *http.Request, target string) {
	status := http.StatusFound
	if r.Method == http.MethodPost {
		status = http.StatusSeeOther
	}
	http.Redirect(w, r, target, status)
}
