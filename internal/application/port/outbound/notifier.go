package outbound

import (
	"context"

	"github.com/DioGolang/GoShop/internal/domain/entity"
)

// ProductNotifier receives product changes after they were committed.
// Delivery is best-effort and never reports an error to the caller.
type ProductNotifier interface {
	Notify(ctx context.Context, event entity.ProductChanged)
}
