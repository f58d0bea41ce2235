package inventory

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/domain"
)

// Service validates stock availability and applies stock movements on top of
// a ProductRepository.
type Service struct {
	repo   ProductRepository
	logger *zap.Logger
	tracer trace.Tracer
}

func NewService(repo ProductRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		tracer: otel.Tracer("pos-service/inventory"),
	}
}

// CheckAvailability verifies that the product exists, that the inputs are well
// formed and that enough stock is on hand. It never writes. The returned
// Product is a snapshot taken at lookup time.
func (s *Service) CheckAvailability(ctx context.Context, code string, quantity int) (Product, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.check_availability")
	defer span.End()

	p, err := s.checkAvailability(ctx, code, quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Product{}, err
	}
	span.SetAttributes(
		attribute.String("product.code", p.Code),
		attribute.Int("product.stock", p.Stock),
		attribute.Int("sale.quantity", quantity),
	)
	return p, nil
}

func (s *Service) checkAvailability(ctx context.Context, code string, quantity int) (Product, error) {
	cleanCode, err := domain.SanitizeProductCode(code)
	if err != nil {
		return Product{}, err
	}
	cleanQty, err := domain.SanitizeQuantity(quantity)
	if err != nil {
		return Product{}, err
	}

	p, err := s.find(ctx, cleanCode)
	if err != nil {
		return Product{}, err
	}

	if _, err := domain.SanitizePrice(p.Price); err != nil {
		return Product{}, fmt.Errorf("product %s: %w", p.Code, err)
	}

	if p.Stock < cleanQty {
		return Product{}, fmt.Errorf("product %s requested=%d available=%d: %w", p.Code, cleanQty, p.Stock, domain.ErrInsufficientStock)
	}
	return p, nil
}

// DiscountStock subtracts the item quantity from the stored stock. The product
// is fetched again and the result re-checked, so stale validations cannot push
// stock below zero.
func (s *Service) DiscountStock(ctx context.Context, item cart.Item) error {
	ctx, span := s.tracer.Start(ctx, "inventory.discount_stock")
	defer span.End()

	err := s.adjust(ctx, item, -1)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// RestoreStock adds the item quantity back. It undoes a DiscountStock when a
// sale cannot be completed.
func (s *Service) RestoreStock(ctx context.Context, item cart.Item) error {
	ctx, span := s.tracer.Start(ctx, "inventory.restore_stock")
	defer span.End()

	err := s.adjust(ctx, item, 1)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Service) adjust(ctx context.Context, item cart.Item, sign int) error {
	code, err := domain.SanitizeProductCode(item.ProductCode)
	if err != nil {
		return err
	}
	qty, err := domain.SanitizeQuantity(item.Quantity)
	if err != nil {
		return err
	}

	p, err := s.find(ctx, code)
	if err != nil {
		return err
	}

	newStock := p.Stock + sign*qty
	if newStock < 0 {
		return fmt.Errorf("product %s stock=%d discount=%d: %w", p.Code, p.Stock, qty, domain.ErrStockBelowZero)
	}

	previous := p.Stock
	p.Stock = newStock
	if err := s.repo.Save(ctx, p); err != nil {
		return fmt.Errorf("save product %s: %w", p.Code, err)
	}

	s.logger.Debug("stock adjusted",
		zap.String("product_code", p.Code),
		zap.Int("previous", previous),
		zap.Int("current", newStock),
	)
	return nil
}

func (s *Service) find(ctx context.Context, code string) (Product, error) {
	p, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, fmt.Errorf("product %s: %w", code, domain.ErrProductNotFound)
		}
		return Product{}, fmt.Errorf("find product %s: %w", code, err)
	}
	return p, nil
}
