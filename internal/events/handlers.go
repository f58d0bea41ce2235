package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/inventory"
)

const ProductUpsertedConsumerName = "pos-product-upserted"

// Checkpoints tracks the last applied sequence per consumer and partition.
type Checkpoints interface {
	GetLastSequence(ctx context.Context, consumerName, partitionKey string) (int64, bool, error)
	UpsertLastSequence(ctx context.Context, consumerName, partitionKey string, newSeq int64) error
}

// ProductUpsertedHandler applies catalog updates to the product repository.
// Events at or below the partition checkpoint are skipped as duplicates.
func ProductUpsertedHandler(repo inventory.ProductRepository, checkpoints Checkpoints, logger *zap.Logger, consumerName string) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		msg, err := parseProductUpserted(body)
		if err != nil {
			return err
		}

		p, err := productFromPayload(msg.Payload)
		if err != nil {
			return fmt.Errorf("product %q: %w", msg.Payload.Code, err)
		}

		partition := msg.Envelope.PartitionKey
		seq := msg.Envelope.Sequence

		if seq != 0 {
			last, ok, err := checkpoints.GetLastSequence(ctx, consumerName, partition)
			if err != nil {
				return err
			}
			if ok && seq <= last {
				logger.Info("skip duplicate product event",
					zap.String("product_code", p.Code),
					zap.String("partition", partition),
					zap.Int64("seq", seq),
					zap.Int64("last", last),
				)
				return nil
			}
			if ok && seq > last+1 {
				logger.Warn("sequence gap", zap.String("partition", partition), zap.Int64("seq", seq), zap.Int64("last", last))
			}
		}

		if err := repo.Save(ctx, p); err != nil {
			return fmt.Errorf("save product %s: %w", p.Code, err)
		}

		if seq != 0 {
			if err := checkpoints.UpsertLastSequence(ctx, consumerName, partition, seq); err != nil {
				return err
			}
		}

		logger.Info("product upserted", zap.String("product_code", p.Code), zap.Int("stock", p.Stock))
		return nil
	}
}

func productFromPayload(in ProductUpsertedPayload) (inventory.Product, error) {
	return inventory.Product{
		Code:     in.Code,
		Name:     in.Name,
		Price:    in.Price,
		Stock:    in.Stock,
		Location: in.Location,
	}.Sanitized()
}
