package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReceiptItem struct {
	ProductCode string          `json:"productCode"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

// Receipt is the priced breakdown of a confirmed sale.
type Receipt struct {
	SaleID     uuid.UUID       `json:"saleId"`
	Items      []ReceiptItem   `json:"items"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// RecordItem and Record form the payload handed to the sale repository.
type RecordItem struct {
	ProductCode string          `json:"product_code"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

type Record struct {
	ID         uuid.UUID       `json:"id"`
	Items      []RecordItem    `json:"items"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	CreatedAt  time.Time       `json:"created_at"`
}

func newRecord(id uuid.UUID, r Receipt, createdAt time.Time) Record {
	rec := Record{
		ID:         id,
		Items:      make([]RecordItem, 0, len(r.Items)),
		GrandTotal: r.GrandTotal,
		CreatedAt:  createdAt,
	}
	for _, it := range r.Items {
		rec.Items = append(rec.Items, RecordItem(it))
	}
	return rec
}
