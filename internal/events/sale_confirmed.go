package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sale"
)

const (
	EventTypeSaleConfirmed = "SaleConfirmed"
	saleConfirmedSchema    = "contracts/events/pos/SaleConfirmed.v1.payload.schema.json"
)

type SaleConfirmedPayload struct {
	SaleID     string          `json:"saleId"`
	StoreID    string          `json:"storeId"`
	Items      []SoldItem      `json:"items"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
	SoldAt     time.Time       `json:"soldAt"`
}

type SoldItem struct {
	ProductCode string          `json:"productCode"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

// SaleConfirmedEvent is the envelope published on SaleConfirmedRoutingKey.
// Payload shadows the raw envelope field so it marshals typed.
type SaleConfirmedEvent struct {
	EventEnvelope
	Payload SaleConfirmedPayload `json:"payload"`
}

func saleConfirmedPayload(storeID string, rec sale.Record) SaleConfirmedPayload {
	p := SaleConfirmedPayload{
		SaleID:     rec.ID.String(),
		StoreID:    storeID,
		Items:      make([]SoldItem, 0, len(rec.Items)),
		GrandTotal: rec.GrandTotal,
		SoldAt:     rec.CreatedAt,
	}
	for _, it := range rec.Items {
		p.Items = append(p.Items, SoldItem(it))
	}
	return p
}

func newSaleConfirmedEvent(meta EventMeta, seq int64, producer string, payload SaleConfirmedPayload, occurredAt time.Time) SaleConfirmedEvent {
	return SaleConfirmedEvent{
		EventEnvelope: EventEnvelope{
			EventName:     EventTypeSaleConfirmed,
			EventVersion:  1,
			EventID:       uuid.NewString(),
			CorrelationID: meta.CorrelationID,
			CausationID:   meta.CausationID,
			Producer:      producer,
			PartitionKey:  meta.PartitionKey,
			Sequence:      seq,
			OccurredAt:    occurredAt,
			Schema:        saleConfirmedSchema,
		},
		Payload: payload,
	}
}
