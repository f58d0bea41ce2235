package sale

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/domain"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/inventory"
)

type fixture struct {
	products *countingProducts
	sales    *MemoryRepository
	service  *Service
}

// countingProducts counts writes so tests can assert that rejected sales never touch stock.
type countingProducts struct {
	*inventory.MemoryRepository
	saves int
}

func (c *countingProducts) Save(ctx context.Context, p inventory.Product) error {
	c.saves++
	return c.MemoryRepository.Save(ctx, p)
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	mem := inventory.NewMemoryRepository()
	require.NoError(t, mem.Save(ctx, inventory.NewProduct("P001", "Taladro", decimal.RequireFromString("50.0"), 10, "Estante B2")))
	require.NoError(t, mem.Save(ctx, inventory.NewProduct("P002", "Caja de tornillos", decimal.RequireFromString("5.0"), 20, "Estante C3")))

	products := &countingProducts{MemoryRepository: mem}
	sales := NewMemoryRepository()
	svc := NewService(inventory.NewService(products, nil), sales, nil, opts...)
	return &fixture{products: products, sales: sales, service: svc}
}

func (f *fixture) stock(t *testing.T, code string) int {
	t.Helper()
	p, err := f.products.FindByCode(context.Background(), code)
	require.NoError(t, err)
	return p.Stock
}

func TestConfirmSale_GeneratesReceiptAndUpdatesStock(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, WithClock(func() time.Time { return fixed }))

	c := cart.New()
	c.AddItem("P001", 2)
	c.AddItem("P002", 3)

	receipt, err := f.service.ConfirmSale(context.Background(), c)
	require.NoError(t, err)

	assert.True(t, receipt.GrandTotal.Equal(decimal.RequireFromString("115.0")), "grand total %s", receipt.GrandTotal)
	require.Len(t, receipt.Items, 2)

	first := receipt.Items[0]
	assert.Equal(t, "P001", first.ProductCode)
	assert.Equal(t, "Taladro", first.Name)
	assert.Equal(t, 2, first.Quantity)
	assert.True(t, first.UnitPrice.Equal(decimal.NewFromInt(50)))
	assert.True(t, first.Total.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "P002", receipt.Items[1].ProductCode)

	assert.Equal(t, 8, f.stock(t, "P001"))
	assert.Equal(t, 17, f.stock(t, "P002"))

	sales, err := f.sales.ListSales(context.Background())
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, receipt.SaleID, sales[0].ID)
	assert.True(t, sales[0].GrandTotal.Equal(decimal.NewFromInt(115)))
	assert.Len(t, sales[0].Items, 2)
	assert.Equal(t, fixed, sales[0].CreatedAt)
}

func TestConfirmSale_MergedCartLines(t *testing.T) {
	f := newFixture(t)

	c := cart.New()
	c.AddItem("P002", 1)
	c.AddItem(" P001", 1)
	c.AddItem("P002", 4)

	receipt, err := f.service.ConfirmSale(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, receipt.Items, 2)
	assert.Equal(t, "P002", receipt.Items[0].ProductCode)
	assert.Equal(t, 5, receipt.Items[0].Quantity)
	assert.Equal(t, "P001", receipt.Items[1].ProductCode)
	assert.Equal(t, 15, f.stock(t, "P002"))
	assert.Equal(t, 9, f.stock(t, "P001"))
}

func TestConfirmSale_EmptyCart(t *testing.T) {
	f := newFixture(t)

	for _, c := range []*cart.Cart{cart.New(), nil} {
		_, err := f.service.ConfirmSale(context.Background(), c)
		require.ErrorIs(t, err, domain.ErrEmptyCart)
		assert.True(t, domain.IsDomain(err))
	}

	assert.Zero(t, f.products.saves)
	sales, _ := f.sales.ListSales(context.Background())
	assert.Empty(t, sales)
}

func TestConfirmSale_RejectedLinesWriteNothing(t *testing.T) {
	tests := map[string]struct {
		lines    []cart.Item
		wantErr  error
		wantKind error
	}{
		"insufficient stock": {
			lines:    []cart.Item{{ProductCode: "P001", Quantity: 999}},
			wantErr:  domain.ErrInsufficientStock,
			wantKind: domain.ErrDomain,
		},
		"unknown product after a valid line": {
			lines:    []cart.Item{{ProductCode: "P001", Quantity: 1}, {ProductCode: "NOPE", Quantity: 1}},
			wantErr:  domain.ErrProductNotFound,
			wantKind: domain.ErrDomain,
		},
		"invalid quantity": {
			lines:    []cart.Item{{ProductCode: "P002", Quantity: 2}, {ProductCode: "P001", Quantity: 0}},
			wantErr:  domain.ErrNonPositiveQuantity,
			wantKind: domain.ErrValidation,
		},
		"blank code": {
			lines:    []cart.Item{{ProductCode: "  ", Quantity: 1}},
			wantErr:  domain.ErrEmptyProductCode,
			wantKind: domain.ErrValidation,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			c := cart.New()
			for _, ln := range tt.lines {
				c.AddItem(ln.ProductCode, ln.Quantity)
			}

			_, err := f.service.ConfirmSale(context.Background(), c)
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, tt.wantKind)

			assert.Zero(t, f.products.saves)
			assert.Equal(t, 10, f.stock(t, "P001"))
			assert.Equal(t, 20, f.stock(t, "P002"))
			sales, _ := f.sales.ListSales(context.Background())
			assert.Empty(t, sales)
		})
	}
}

func TestConfirmSale_ReceiptNamesAreSanitized(t *testing.T) {
	ctx := context.Background()
	products := inventory.NewMemoryRepository()
	require.NoError(t, products.Save(ctx, inventory.NewProduct("X1", "   ", decimal.NewFromInt(1), 5, "")))
	require.NoError(t, products.Save(ctx, inventory.NewProduct("X2", "  Llave inglesa  ", decimal.NewFromInt(2), 5, "")))
	svc := NewService(inventory.NewService(products, nil), NewMemoryRepository(), nil)

	c := cart.New()
	c.AddItem("X1", 1)
	c.AddItem("X2", 1)

	receipt, err := svc.ConfirmSale(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, domain.UnnamedProduct, receipt.Items[0].Name)
	assert.Equal(t, "Llave inglesa", receipt.Items[1].Name)
}

func TestConfirmSale_GrandTotalIsExactSum(t *testing.T) {
	ctx := context.Background()
	products := inventory.NewMemoryRepository()
	prices := map[string]string{"A": "0.10", "B": "0.20", "C": "19.99"}
	for code, price := range prices {
		require.NoError(t, products.Save(ctx, inventory.NewProduct(code, code, decimal.RequireFromString(price), 100, "")))
	}
	svc := NewService(inventory.NewService(products, nil), NewMemoryRepository(), nil)

	c := cart.New()
	c.AddItem("A", 3)
	c.AddItem("B", 7)
	c.AddItem("C", 11)

	receipt, err := svc.ConfirmSale(ctx, c)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, it := range receipt.Items {
		assert.True(t, it.Total.Equal(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))))
		sum = sum.Add(it.Total)
	}
	assert.True(t, receipt.GrandTotal.Equal(sum))
	assert.Equal(t, "221.59", receipt.GrandTotal.StringFixed(2))
}

// flakyInventory delegates to a real inventory service but can fail the discount
// of one product, simulating stock changed by another writer after validation.
type flakyInventory struct {
	*inventory.Service
	failDiscountFor string
	failRestore     bool
	restored        []cart.Item
}

func (f *flakyInventory) DiscountStock(ctx context.Context, item cart.Item) error {
	if item.ProductCode == f.failDiscountFor {
		return domain.ErrStockBelowZero
	}
	return f.Service.DiscountStock(ctx, item)
}

func (f *flakyInventory) RestoreStock(ctx context.Context, item cart.Item) error {
	f.restored = append(f.restored, item)
	if f.failRestore {
		return errors.New("restore unavailable")
	}
	return f.Service.RestoreStock(ctx, item)
}

func TestConfirmSale_DiscountFailureRestoresEarlierLines(t *testing.T) {
	f := newFixture(t)
	inv := &flakyInventory{Service: inventory.NewService(f.products, nil), failDiscountFor: "P003"}
	require.NoError(t, f.products.Save(context.Background(), inventory.NewProduct("P003", "Lija", decimal.NewFromInt(1), 3, "")))
	svc := NewService(inv, f.sales, nil)

	c := cart.New()
	c.AddItem("P001", 2)
	c.AddItem("P002", 3)
	c.AddItem("P003", 1)

	_, err := svc.ConfirmSale(context.Background(), c)
	require.ErrorIs(t, err, domain.ErrStockBelowZero)

	assert.Equal(t, []cart.Item{{ProductCode: "P002", Quantity: 3}, {ProductCode: "P001", Quantity: 2}}, inv.restored)
	assert.Equal(t, 10, f.stock(t, "P001"))
	assert.Equal(t, 20, f.stock(t, "P002"))
	assert.Equal(t, 3, f.stock(t, "P003"))

	sales, _ := f.sales.ListSales(context.Background())
	assert.Empty(t, sales)
}

func TestConfirmSale_RestoreFailureIsReported(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.products.Save(context.Background(), inventory.NewProduct("P003", "Lija", decimal.NewFromInt(1), 3, "")))
	inv := &flakyInventory{Service: inventory.NewService(f.products, nil), failDiscountFor: "P003", failRestore: true}
	svc := NewService(inv, f.sales, nil)

	c := cart.New()
	c.AddItem("P001", 1)
	c.AddItem("P003", 1)

	_, err := svc.ConfirmSale(context.Background(), c)
	require.ErrorIs(t, err, domain.ErrStockBelowZero)
	assert.Contains(t, err.Error(), "restore P001")
	assert.Equal(t, 9, f.stock(t, "P001"))
}

type failingSales struct{ err error }

func (f failingSales) SaveSale(ctx context.Context, rec Record) error { return f.err }

func TestConfirmSale_RegistrationFailureRestoresStock(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("sales table locked")
	svc := NewService(inventory.NewService(f.products, nil), failingSales{err: boom}, nil)

	c := cart.New()
	c.AddItem("P001", 2)
	c.AddItem("P002", 3)

	_, err := svc.ConfirmSale(context.Background(), c)
	require.ErrorIs(t, err, boom)
	assert.False(t, domain.IsDomain(err))

	assert.Equal(t, 10, f.stock(t, "P001"))
	assert.Equal(t, 20, f.stock(t, "P002"))
}

func TestConfirmSale_OverflowingQuantityIsInsufficientStock(t *testing.T) {
	f := newFixture(t)

	c := cart.New()
	c.AddItem("P001", math.MaxInt)
	c.AddItem("P001", 1)

	_, err := f.service.ConfirmSale(context.Background(), c)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.False(t, domain.IsValidation(err))
	assert.Equal(t, 10, f.stock(t, "P001"))
	assert.Zero(t, f.products.saves)
}

func TestConfirmSale_AmbiguousCommitIsLoggedForReconciliation(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.InfoLevel)
	commitErr := fmt.Errorf("commit sale: %w: %w", ErrCommitOutcomeUnknown, errors.New("connection reset"))
	svc := NewService(inventory.NewService(f.products, nil), failingSales{err: commitErr}, zap.New(core))

	c := cart.New()
	c.AddItem("P001", 2)

	_, err := svc.ConfirmSale(context.Background(), c)
	require.ErrorIs(t, err, ErrCommitOutcomeUnknown)
	assert.Equal(t, 10, f.stock(t, "P001"))

	entries := logs.FilterMessage("sale commit outcome unknown, restoring stock").All()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ContextMap()["sale_id"])
	assert.Equal(t, "100.00", entries[0].ContextMap()["grand_total"])
}

type recordingPublisher struct {
	records []Record
	err     error
}

func (p *recordingPublisher) PublishSaleConfirmed(ctx context.Context, rec Record) error {
	p.records = append(p.records, rec)
	return p.err
}

func TestConfirmSale_PublishesAfterRegistration(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, WithPublisher(pub))

	c := cart.New()
	c.AddItem("P002", 2)

	receipt, err := f.service.ConfirmSale(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, pub.records, 1)
	assert.Equal(t, receipt.SaleID, pub.records[0].ID)
	assert.True(t, pub.records[0].GrandTotal.Equal(decimal.NewFromInt(10)))
}

func TestConfirmSale_PublishFailureDoesNotUndoSale(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	f := newFixture(t, WithPublisher(pub))

	c := cart.New()
	c.AddItem("P001", 1)

	_, err := f.service.ConfirmSale(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 9, f.stock(t, "P001"))
	sales, _ := f.sales.ListSales(context.Background())
	assert.Len(t, sales, 1)
}

func TestConfirmSale_ConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t)

	const workers = 15
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			c := cart.New()
			c.AddItem("P001", 1)
			_, err := f.service.ConfirmSale(context.Background(), c)
			errs <- err
		}()
	}

	var ok, rejected int
	for i := 0; i < workers; i++ {
		if err := <-errs; err != nil {
			require.ErrorIs(t, err, domain.ErrInsufficientStock)
			rejected++
			continue
		}
		ok++
	}
	assert.Equal(t, 10, ok)
	assert.Equal(t, 5, rejected)
	assert.Equal(t, 0, f.stock(t, "P001"))
}
