package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MaxProductCodeLength = 50
	MaxReceiptNameLength = 100
	// PriceDecimals is the scale prices are stored with.
	PriceDecimals = 2

	// UnnamedProduct is printed on receipts when a product carries no usable name.
	UnnamedProduct = "Producto sin nombre"
)

// SanitizeProductCode trims the code and enforces its length bounds.
func SanitizeProductCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrEmptyProductCode
	}
	if utf8.RuneCountInString(code) > MaxProductCodeLength {
		return "", ErrProductCodeTooLong
	}
	return code, nil
}

func SanitizeQuantity(quantity int) (int, error) {
	if quantity <= 0 {
		return 0, ErrNonPositiveQuantity
	}
	return quantity, nil
}

// SanitizePrice rejects absent and negative prices and returns the price unchanged otherwise.
func SanitizePrice(price decimal.NullDecimal) (decimal.Decimal, error) {
	if !price.Valid {
		return decimal.Decimal{}, ErrMissingPrice
	}
	if price.Decimal.IsNegative() {
		return decimal.Decimal{}, ErrNegativePrice
	}
	return price.Decimal, nil
}

// SanitizeNameForReceipt never fails: blank names fall back to UnnamedProduct,
// anything else is trimmed and cut to MaxReceiptNameLength characters.
func SanitizeNameForReceipt(name string) string {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return UnnamedProduct
	}
	if utf8.RuneCountInString(clean) <= MaxReceiptNameLength {
		return clean
	}
	return string([]rune(clean)[:MaxReceiptNameLength])
}

// SanitizeStock is applied to stock levels arriving from outside the sale flow
// (catalog imports, manual adjustments).
func SanitizeStock(stock int) (int, error) {
	if stock < 0 {
		return 0, ErrNegativeStock
	}
	return stock, nil
}
