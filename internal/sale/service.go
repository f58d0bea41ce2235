package sale

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/domain"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/inventory"
)

// Inventory is the subset of *inventory.Service the sale flow relies on.
type Inventory interface {
	CheckAvailability(ctx context.Context, code string, quantity int) (inventory.Product, error)
	DiscountStock(ctx context.Context, item cart.Item) error
	RestoreStock(ctx context.Context, item cart.Item) error
}

// Publisher is notified once a sale has been recorded.
type Publisher interface {
	PublishSaleConfirmed(ctx context.Context, rec Record) error
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service confirms sales: it validates a cart against inventory, prices it,
// discounts stock and records the sale.
//
// Confirmations through one Service are serialised. If stock discount or
// registration fails midway, stock already discounted for the sale is restored.
type Service struct {
	inventory Inventory
	sales     Repository
	publisher Publisher
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu sync.Mutex
}

func NewService(inv Inventory, sales Repository, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		inventory: inv,
		sales:     sales,
		logger:    logger,
		tracer:    otel.Tracer("pos-service/sale"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConfirmSale is the single entry point of the sale workflow.
func (s *Service) ConfirmSale(ctx context.Context, c *cart.Cart) (Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "sale.confirm")
	defer span.End()

	receipt, err := s.confirm(ctx, c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Receipt{}, err
	}

	span.SetAttributes(
		attribute.String("sale.id", receipt.SaleID.String()),
		attribute.Int("sale.lines", len(receipt.Items)),
		attribute.String("sale.grand_total", receipt.GrandTotal.String()),
	)
	return receipt, nil
}

func (s *Service) confirm(ctx context.Context, c *cart.Cart) (Receipt, error) {
	if c == nil || c.IsEmpty() {
		return Receipt{}, domain.ErrEmptyCart
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := c.Items()

	receipt, err := s.buildReceipt(ctx, lines)
	if err != nil {
		s.logger.Info("sale rejected", zap.Int("lines", len(lines)), zap.Error(err))
		return Receipt{}, err
	}

	if err := s.applyStockDiscount(ctx, lines); err != nil {
		s.logger.Warn("stock discount failed", zap.Error(err))
		return Receipt{}, err
	}

	receipt.SaleID = uuid.New()
	rec := newRecord(receipt.SaleID, receipt, s.now())
	if err := s.sales.SaveSale(ctx, rec); err != nil {
		err = fmt.Errorf("register sale %s: %w", rec.ID, err)
		if errors.Is(err, ErrCommitOutcomeUnknown) {
			// Stock is restored regardless; if the commit did land, the sale
			// row exists without its stock discount and needs reconciliation.
			s.logger.Error("sale commit outcome unknown, restoring stock",
				zap.String("sale_id", rec.ID.String()),
				zap.String("grand_total", rec.GrandTotal.StringFixed(2)),
				zap.Error(err),
			)
		} else {
			s.logger.Error("sale registration failed, restoring stock", zap.Error(err))
		}
		if rerr := s.restore(ctx, lines); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return Receipt{}, err
	}

	s.logger.Info("sale confirmed",
		zap.String("sale_id", rec.ID.String()),
		zap.Int("lines", len(rec.Items)),
		zap.String("grand_total", rec.GrandTotal.StringFixed(2)),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishSaleConfirmed(ctx, rec); err != nil {
			s.logger.Warn("publish sale confirmed", zap.String("sale_id", rec.ID.String()), zap.Error(err))
		}
	}

	return receipt, nil
}

// buildReceipt validates every line before anything is written.
func (s *Service) buildReceipt(ctx context.Context, lines []cart.Item) (Receipt, error) {
	receipt := Receipt{
		Items:      make([]ReceiptItem, 0, len(lines)),
		GrandTotal: decimal.Zero,
	}
	for _, line := range lines {
		p, err := s.inventory.CheckAvailability(ctx, line.ProductCode, line.Quantity)
		if err != nil {
			return Receipt{}, err
		}

		total := p.Price.Decimal.Mul(decimal.NewFromInt(int64(line.Quantity)))
		receipt.Items = append(receipt.Items, ReceiptItem{
			ProductCode: p.Code,
			Name:        domain.SanitizeNameForReceipt(p.Name),
			Quantity:    line.Quantity,
			UnitPrice:   p.Price.Decimal,
			Total:       total,
		})
		receipt.GrandTotal = receipt.GrandTotal.Add(total)
	}
	return receipt, nil
}

// applyStockDiscount discounts lines in cart order. When line k fails, lines
// before it are restored and the discount error is returned.
func (s *Service) applyStockDiscount(ctx context.Context, lines []cart.Item) error {
	for i, line := range lines {
		if err := s.inventory.DiscountStock(ctx, line); err != nil {
			if rerr := s.restore(ctx, lines[:i]); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		}
	}
	return nil
}

func (s *Service) restore(ctx context.Context, lines []cart.Item) error {
	var errs []error
	for i := len(lines) - 1; i >= 0; i-- {
		if err := s.inventory.RestoreStock(ctx, lines[i]); err != nil {
			s.logger.Error("restore stock",
				zap.String("product_code", lines[i].ProductCode),
				zap.Int("quantity", lines[i].Quantity),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("restore %s: %w", lines[i].ProductCode, err))
		}
	}
	return errors.Join(errs...)
}
