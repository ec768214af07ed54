package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/internal/domain/entity"
	"github.com/DioGolang/GoShop/pkg/logger"
)

// CreateUseCaseImpl places an order and reserves the stock for every line
// inside one unit of work. Nothing is written unless every line can be
// satisfied.
type CreateUseCaseImpl struct {
	Factory  outbound.UnitOfWorkFactory
	Notifier outbound.ProductNotifier
	Logger   logger.Logger
	Now      func() time.Time
}

func NewCreateOrderUseCase(factory outbound.UnitOfWorkFactory, notifier outbound.ProductNotifier, log logger.Logger) *CreateUseCaseImpl {
	return &CreateUseCaseImpl{
		Factory:  factory,
		Notifier: notifier,
		Logger:   log,
		Now:      time.Now,
	}
}

func (uc *CreateUseCaseImpl) Execute(ctx context.Context, input *CreateInput) (CreateOutput, error) {
	ctx, span := otel.Tracer("goshop/usecase").Start(ctx, "CreateOrder")
	defer span.End()

	if err := validate(input); err != nil {
		span.SetStatus(codes.Error, OutcomeInvalidRequest)
		return CreateOutput{}, err
	}
	span.SetAttributes(
		attribute.Int64("customer.id", input.CustomerID),
		attribute.Int("order.lines", len(input.Products)),
	)

	var (
		output  CreateOutput
		changed []entity.Product
	)
	err := outbound.WithUnitOfWork(ctx, uc.Factory, func(uow outbound.UnitOfWork) error {
		order, reserved, err := uc.place(ctx, uow, input)
		if err != nil {
			return err
		}
		if _, err := uow.Commit(ctx); err != nil {
			return err
		}
		output = toOutput(order)
		changed = make([]entity.Product, len(reserved))
		for i, p := range reserved {
			changed[i] = *p
		}
		return nil
	})
	if err != nil {
		outcome := Outcome(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		uc.Logger.Warn(ctx, "order rejected",
			logger.Int64("customer_id", input.CustomerID),
			logger.String("outcome", outcome),
			logger.WithError(err),
		)
		return CreateOutput{}, err
	}

	span.SetAttributes(attribute.Int64("order.id", output.OrderID))
	uc.Logger.Info(ctx, "order created",
		logger.Int64("order_id", output.OrderID),
		logger.Int64("customer_id", output.CustomerID),
		logger.Int("items", len(output.Items)),
	)
	uc.notify(ctx, changed)
	return output, nil
}

func validate(input *CreateInput) error {
	if input == nil {
		return fmt.Errorf("%w: request is missing", ErrInvalidRequest)
	}
	if input.CustomerID == 0 {
		return fmt.Errorf("%w: customer id is required", ErrInvalidRequest)
	}
	if len(input.Products) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, entity.ErrItemsRequired)
	}
	for i, line := range input.Products {
		if line.ProductID == 0 {
			return fmt.Errorf("%w: line %d: %w", ErrInvalidRequest, i, entity.ErrProductRequired)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d: %w", ErrInvalidRequest, i, entity.ErrInvalidQuantity)
		}
	}
	return nil
}

// place loads the customer and every product, reserves stock and stages
// the product updates and the order. It returns the distinct products it
// changed, in the order they were first requested.
func (uc *CreateUseCaseImpl) place(ctx context.Context, uow outbound.UnitOfWork, input *CreateInput) (*entity.Order, []*entity.Product, error) {
	customer, err := uow.Customers().GetByID(ctx, input.CustomerID)
	if errors.Is(err, outbound.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: id %d", ErrCustomerNotFound, input.CustomerID)
	}
	if err != nil {
		return nil, nil, err
	}

	date := input.OrderDate
	if date.IsZero() {
		date = uc.Now()
	}
	order, err := entity.NewOrder(customer, date.UTC())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	var reserved []*entity.Product
	seen := make(map[*entity.Product]bool)
	for _, line := range input.Products {
		// the identity map hands back the same instance for a repeated id,
		// so stock is checked against what earlier lines already took
		product, err := uow.Products().GetByID(ctx, line.ProductID)
		if errors.Is(err, outbound.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: id %d", ErrProductNotFound, line.ProductID)
		}
		if err != nil {
			return nil, nil, err
		}
		if err := product.Reserve(line.Quantity); err != nil {
			return nil, nil, err
		}
		if err := order.AddItem(product, line.Quantity); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		if err := uow.Products().Update(ctx, product); err != nil {
			return nil, nil, err
		}
		if !seen[product] {
			seen[product] = true
			reserved = append(reserved, product)
		}
	}

	if err := uow.Orders().CreateOrder(ctx, order); err != nil {
		return nil, nil, err
	}
	return order, reserved, nil
}

func (uc *CreateUseCaseImpl) notify(ctx context.Context, products []entity.Product) {
	if uc.Notifier == nil {
		return
	}
	at := uc.Now()
	for _, p := range products {
		uc.Notifier.Notify(ctx, entity.NewProductChanged(p, entity.ProductStockReserved, at))
	}
}

func toOutput(order *entity.Order) CreateOutput {
	items := make([]ItemOutput, len(order.Items))
	for i, item := range order.Items {
		items[i] = ItemOutput{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return CreateOutput{
		OrderID:      order.ID,
		CustomerID:   order.CustomerID,
		CustomerName: order.CustomerName,
		OrderDate:    order.OrderDate,
		Items:        items,
	}
}
