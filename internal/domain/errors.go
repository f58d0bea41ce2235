package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by the sale workflow wraps exactly one of them.
var (
	// ErrValidation marks malformed input reaching the core.
	ErrValidation = errors.New("validation error")
	// ErrDomain marks a business rule violated by otherwise well-formed input.
	ErrDomain = errors.New("domain error")
)

var (
	ErrEmptyProductCode    = validation("product code must not be empty")
	ErrProductCodeTooLong  = validation("product code is too long")
	ErrNonPositiveQuantity = validation("quantity must be greater than zero")
	ErrMissingPrice        = validation("price must not be null")
	ErrNegativePrice       = validation("product price must not be negative")
	ErrPriceTooPrecise     = validation("price must have at most 2 decimal places")
	ErrNegativeStock       = validation("stock must not be negative")

	ErrProductNotFound   = domainErr("product does not exist in inventory")
	ErrInsufficientStock = domainErr("insufficient stock for requested quantity")
	ErrStockBelowZero    = domainErr("operation would leave stock negative")
	ErrEmptyCart         = domainErr("cart is empty, sale cannot be confirmed")
)

func validation(msg string) error { return fmt.Errorf("%w: %s", ErrValidation, msg) }

func domainErr(msg string) error { return fmt.Errorf("%w: %s", ErrDomain, msg) }

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsDomain(err error) bool { return errors.Is(err, ErrDomain) }
