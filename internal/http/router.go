package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", h.Health)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Put("/", h.PutProduct)
		r.Get("/{code}", h.GetProduct)
	})

	r.Route("/api/sales", func(r chi.Router) {
		r.Get("/", h.ListSales)
		r.Post("/", h.ConfirmSale)
	})

	return r
}
