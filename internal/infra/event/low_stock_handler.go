package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DioGolang/GoShop/internal/domain/entity"
	"github.com/DioGolang/GoShop/pkg/logger"
)

// NewLowStockHandler decodes product change events and warns when a
// product's stock drops to threshold or below.
func NewLowStockHandler(log logger.Logger, threshold int) MessageHandler {
	return func(ctx context.Context, msg []byte, _ map[string]interface{}) error {
		var e entity.ProductChanged
		if err := json.Unmarshal(msg, &e); err != nil {
			return fmt.Errorf("%w: decode product event: %w", ErrPermanent, err)
		}
		if e.ProductID == 0 {
			return fmt.Errorf("%w: product event without product id", ErrPermanent)
		}

		fields := []logger.Field{
			logger.Int64("product_id", e.ProductID),
			logger.String("change", string(e.Change)),
			logger.Int("stock", e.Stock),
			logger.Int64("version", e.Version),
		}
		if e.Change != entity.ProductDeleted && e.Stock <= threshold {
			log.Warn(ctx, "Product stock is low", append(fields, logger.Int("threshold", threshold))...)
			return nil
		}
		log.Debug(ctx, "Product change processed", fields...)
		return nil
	}
}
