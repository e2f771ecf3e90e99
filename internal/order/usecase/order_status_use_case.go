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

type OrderStatusUseCase struct {
	orderRepo   OrderRepository
	coordinator ReservationCoordinator
	cancelUC    *CancelOrderUseCase
	publisher   EventPublisher
	logger      *zap.Logger
}

func NewOrderStatusUseCase(
	orderRepo OrderRepository,
	coordinator ReservationCoordinator,
	cancelUC *CancelOrderUseCase,
	publisher EventPublisher,
	logger *zap.Logger,
) *OrderStatusUseCase {
	return &OrderStatusUseCase{
		orderRepo:   orderRepo,
		coordinator: coordinator,
		cancelUC:    cancelUC,
		publisher:   publisher,
		logger:      logger,
	}
}

func (uc *OrderStatusUseCase) GetOrder(ctx context.Context, orderID uint) (*domain.Order, error) {
	return uc.orderRepo.FindByID(ctx, orderID)
}

// UpdateStatus moves the order along the state machine. A transition to
// SHIPPED commits the reservations; a transition to CANCELLED is delegated
// to the cancellation path so compensation runs.
func (uc *OrderStatusUseCase) UpdateStatus(ctx context.Context, orderID uint, newStatus string) (*domain.Order, error) {
	if !domain.ValidOrderStatus(newStatus) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unrecognized order status %q", newStatus))
	}

	if newStatus == domain.OrderStatusCancelled {
		return uc.cancelUC.Cancel(ctx, orderID)
	}

	order, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(order.Status, newStatus) {
		return nil, apperrors.NewConflictError(fmt.Sprintf(
			"order cannot transition from %s to %s", order.Status, newStatus))
	}

	// The conditional write serializes racing transitions; only the winner
	// reaches the stock commit, so one order can never be exported twice.
	if err := uc.orderRepo.UpdateStatus(ctx, orderID, order.Status, newStatus); err != nil {
		return nil, err
	}

	if newStatus == domain.OrderStatusShipped {
		if err := uc.coordinator.CommitAll(ctx, order.Lines, order.ID); err != nil {
			return nil, apperrors.NewInternalError("committing reservations for shipment", err)
		}
	}

	order.Status = newStatus

	uc.logger.Info("order status updated",
		zap.Uint("orderId", orderID),
		zap.String("status", newStatus))

	uc.publishStatusChanged(ctx, order)

	return order, nil
}

// AssignShipper sets the shipper and forces the shipped status in one
// update. Re-assigning the shipper on an already-shipped order does not
// commit the reservations again.
func (uc *OrderStatusUseCase) AssignShipper(ctx context.Context, orderID uint, shipperID string) (*domain.Order, error) {
	if shipperID == "" {
		return nil, apperrors.NewValidationError("shipperId is required")
	}

	order, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == domain.OrderStatusShipped {
		if err := uc.orderRepo.AssignShipper(ctx, orderID, shipperID, order.Status); err != nil {
			return nil, err
		}
	} else {
		if !domain.CanTransition(order.Status, domain.OrderStatusShipped) {
			return nil, apperrors.NewConflictError(fmt.Sprintf(
				"order in status %s cannot be shipped", order.Status))
		}
		// Winning the conditional write gates the stock commit, same as
		// UpdateStatus.
		if err := uc.orderRepo.AssignShipper(ctx, orderID, shipperID, order.Status); err != nil {
			return nil, err
		}
		if err := uc.coordinator.CommitAll(ctx, order.Lines, order.ID); err != nil {
			return nil, apperrors.NewInternalError("committing reservations for shipment", err)
		}
	}

	order.ShipperID = &shipperID
	order.Status = domain.OrderStatusShipped

	uc.logger.Info("shipper assigned",
		zap.Uint("orderId", orderID),
		zap.String("shipperId", shipperID))

	uc.publishStatusChanged(ctx, order)

	return order, nil
}

func (uc *OrderStatusUseCase) publishStatusChanged(ctx context.Context, order *domain.Order) {
	if err := uc.publisher.PublishOrderEvent(ctx, dto.OrderEvent{
		Type:       dto.OrderEventStatusChanged,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     order.Status,
		Timestamp:  time.Now().UTC(),
	}); err != nil {
		uc.logger.Warn("publishing order event failed",
			zap.Uint("orderId", order.ID),
			zap.Error(err))
	}
}
