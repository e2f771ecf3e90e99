package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quartermaster/internal/domain"
	"quartermaster/internal/dto"
	apperrors "quartermaster/internal/errors"
)

type CreateOrderUseCase struct {
	orderRepo   OrderRepository
	catalog     ProductCatalog
	coordinator ReservationCoordinator
	publisher   EventPublisher
	logger      *zap.Logger
}

func NewCreateOrderUseCase(
	orderRepo OrderRepository,
	catalog ProductCatalog,
	coordinator ReservationCoordinator,
	publisher EventPublisher,
	logger *zap.Logger,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		orderRepo:   orderRepo,
		catalog:     catalog,
		coordinator: coordinator,
		publisher:   publisher,
		logger:      logger,
	}
}

// CreateOrder validates the cart, snapshots catalog pricing onto the lines,
// reserves stock for every line (all-or-nothing) and persists the order as
// PENDING. If persistence fails after the reservations went through, the
// reservations are released again.
func (uc *CreateOrderUseCase) CreateOrder(ctx context.Context, customerID string, req dto.CreateOrderRequest) (*domain.Order, error) {
	uc.logger.Info("create order started",
		zap.String("customerId", customerID),
		zap.Int("lineCount", len(req.Lines)))

	if customerID == "" {
		return nil, apperrors.NewValidationError("customer identity is required")
	}
	if len(req.Lines) == 0 {
		return nil, apperrors.NewValidationError("order must contain at least one item")
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("quantity for product %d must be a positive integer", line.ProductID))
		}
	}

	ids := make([]int, len(req.Lines))
	for i, line := range req.Lines {
		ids[i] = line.ProductID
	}

	snapshots, err := uc.catalog.Snapshots(ctx, ids)
	if err != nil {
		return nil, apperrors.NewInternalError("resolving product snapshots", err)
	}

	lines := make([]domain.OrderLine, len(req.Lines))
	for i, line := range req.Lines {
		snapshot, found := snapshots[line.ProductID]
		if !found || !snapshot.IsActive {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %d not found", line.ProductID))
		}
		lines[i] = domain.OrderLine{
			ProductID:    line.ProductID,
			ProductName:  snapshot.Name,
			Quantity:     line.Quantity,
			UnitPrice:    snapshot.Price,
			UnitDiscount: snapshot.Discount,
		}
	}

	if err := uc.coordinator.ReserveAll(ctx, lines); err != nil {
		return nil, err
	}

	var totalPrice, totalDiscount float64
	for _, line := range lines {
		totalPrice += float64(line.Quantity) * line.UnitPrice
		totalDiscount += float64(line.Quantity) * line.UnitDiscount
	}

	order := &domain.Order{
		CustomerID:      customerID,
		Lines:           lines,
		TotalPrice:      totalPrice,
		TotalDiscount:   totalDiscount,
		ShippingAddress: req.ShippingAddress,
		Phone:           req.Phone,
		Status:          domain.OrderStatusPending,
		PaymentMethod:   req.PaymentMethod,
		IsPaid:          false,
		Notes:           req.Notes,
	}

	persisted, err := uc.orderRepo.CreateWithLines(ctx, order)
	if err != nil {
		uc.logger.Error("persisting order failed, releasing reservations",
			zap.String("customerId", customerID),
			zap.Error(err))
		if releaseErr := uc.coordinator.ReleaseAll(ctx, lines); releaseErr != nil {
			uc.logger.Error("releasing reservations after failed persist",
				zap.Error(releaseErr))
		}
		return nil, apperrors.NewInternalError("persisting order", err)
	}

	uc.logger.Info("order created",
		zap.Uint("orderId", persisted.ID),
		zap.String("customerId", customerID),
		zap.Float64("totalPrice", totalPrice))

	uc.publish(ctx, dto.OrderEvent{
		Type:       dto.OrderEventCreated,
		OrderID:    persisted.ID,
		CustomerID: persisted.CustomerID,
		Status:     persisted.Status,
		Timestamp:  time.Now().UTC(),
	})

	return persisted, nil
}

func (uc *CreateOrderUseCase) publish(ctx context.Context, event dto.OrderEvent) {
	if err := uc.publisher.PublishOrderEvent(ctx, event); err != nil {
		uc.logger.Warn("publishing order event failed",
			zap.Uint("orderId", event.OrderID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}
