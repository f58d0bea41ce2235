package events

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const EventTypeProductUpserted = "ProductUpserted"

// ProductUpsertedPayload is published by the catalog when a product is created,
// repriced or restocked. Price may be null for products not yet on sale.
type ProductUpsertedPayload struct {
	Code     string              `json:"code"`
	Name     string              `json:"name"`
	Price    decimal.NullDecimal `json:"price"`
	Stock    int                 `json:"stock"`
	Location string              `json:"location"`
}

type productUpsertedMessage struct {
	Envelope EventEnvelope
	Payload  ProductUpsertedPayload
}

func parseProductUpserted(body []byte) (productUpsertedMessage, error) {
	env, err := parseEnvelope(body)
	if err != nil {
		return productUpsertedMessage{}, err
	}
	if err := env.Validate(EventTypeProductUpserted, 1); err != nil {
		return productUpsertedMessage{}, err
	}
	var payload ProductUpsertedPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return productUpsertedMessage{}, fmt.Errorf("decode ProductUpserted payload: %w", err)
	}
	return productUpsertedMessage{Envelope: env, Payload: payload}, nil
}
