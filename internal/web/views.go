package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/IanKulin/route-demo/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"customers",
	"customer",
	"customer_form",
	"orders",
	"order",
	"order_form",
	"error",
}

var templateFuncs = template.FuncMap{
	"amount": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
}

// views хранит по одному набору шаблонов на страницу: каждая страница
// определяет свой "content" поверх общего layout.
type views struct {
	pages map[string]*template.Template
}

func loadViews() (*views, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &views{pages: pages}, nil
}

// render выполняет шаблон в буфер, чтобы ошибка шаблона не оставила
// наполовину записанный ответ.
func (v *views) render(w http.ResponseWriter, status int, page string, data any) error {
	tmpl, ok := v.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("execute template %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

type customersPage struct {
	Title     string
	Customers []domain.Customer
}

type customerPage struct {
	Title    string
	Customer domain.Customer
	Orders   []domain.Order
}

type customerFormPage struct {
	Title    string
	Action   string
	Customer domain.Customer
}

type ordersPage struct {
	Title  string
	Orders []domain.Order
}

type orderPage struct {
	Title    string
	Order    domain.Order
	Customer domain.Customer
}

type orderFormPage struct {
	Title         string
	Action        string
	Order         domain.Order
	Customers     []domain.Customer
	CustomerKnown bool
}

type errorPage struct {
	Title   string
	Message string
}
