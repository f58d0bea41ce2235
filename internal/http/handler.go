package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/domain"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sale"
)

type SaleConfirmer interface {
	ConfirmSale(ctx context.Context, c *cart.Cart) (sale.Receipt, error)
}

type Handler struct {
	products inventory.ProductRepository
	sales    SaleConfirmer
	records  sale.Repository
	logger   *zap.Logger
}

func NewHandler(products inventory.ProductRepository, sales SaleConfirmer, records sale.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{products: products, sales: sales, records: records, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListAll(r.Context())
	if err != nil {
		h.internalError(w, r, "list products", err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	code, err := domain.SanitizeProductCode(chi.URLParam(r, "code"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.products.FindByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.internalError(w, r, "get product", err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) PutProduct(w http.ResponseWriter, r *http.Request) {
	var p inventory.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if _, err := domain.SanitizePrice(p.Price); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, err := p.Sanitized()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.products.Save(r.Context(), p); err != nil {
		h.internalError(w, r, "save product", err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

type confirmSaleRequest struct {
	Items []cart.Item `json:"items"`
}

func (h *Handler) ConfirmSale(w http.ResponseWriter, r *http.Request) {
	var req confirmSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	c := cart.New()
	for _, it := range req.Items {
		c.AddItem(it.ProductCode, it.Quantity)
	}

	receipt, err := h.sales.ConfirmSale(r.Context(), c)
	if err != nil {
		switch {
		case domain.IsValidation(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domain.ErrProductNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case domain.IsDomain(err):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.internalError(w, r, "confirm sale", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	lister, ok := h.records.(sale.Lister)
	if !ok {
		http.Error(w, "sale listing not supported", http.StatusNotImplemented)
		return
	}

	records, err := lister.ListSales(r.Context())
	if err != nil {
		h.internalError(w, r, "list sales", err)
		return
	}
	if records == nil {
		records = []sale.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op+" failed",
		zap.String("correlation_id", CorrelationIDFrom(r.Context())),
		zap.Error(err),
	)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
