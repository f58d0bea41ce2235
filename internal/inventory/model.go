package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/domain"
)

// Product is an inventory entry. Code is the unique key.
type Product struct {
	Code     string              `json:"code"`
	Name     string              `json:"name"`
	Price    decimal.NullDecimal `json:"price"`
	Stock    int                 `json:"stock"`
	Location string              `json:"location"`
}

func NewProduct(code, name string, price decimal.Decimal, stock int, location string) Product {
	return Product{
		Code:     code,
		Name:     name,
		Price:    decimal.NewNullDecimal(price),
		Stock:    stock,
		Location: location,
	}
}

// Sanitized applies the input rules for products entering the inventory from
// outside the sale flow (API, catalog events). A null price is kept: such a
// product can be stocked but not sold.
func (p Product) Sanitized() (Product, error) {
	code, err := domain.SanitizeProductCode(p.Code)
	if err != nil {
		return Product{}, err
	}
	stock, err := domain.SanitizeStock(p.Stock)
	if err != nil {
		return Product{}, err
	}
	if p.Price.Valid {
		price, err := domain.SanitizePrice(p.Price)
		if err != nil {
			return Product{}, err
		}
		// Stored prices are NUMERIC(12, 2).
		if !price.Equal(price.Round(domain.PriceDecimals)) {
			return Product{}, domain.ErrPriceTooPrecise
		}
	}
	p.Code = code
	p.Stock = stock
	return p, nil
}
