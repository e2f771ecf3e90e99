package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quartermaster/internal/domain"
	"quartermaster/internal/dto"
	apperrors "quartermaster/internal/errors"
)

type CancelOrderUseCase struct {
	orderRepo   OrderRepository
	coordinator ReservationCoordinator
	publisher   EventPublisher
	logger      *zap.Logger
}

func NewCancelOrderUseCase(
	orderRepo OrderRepository,
	coordinator ReservationCoordinator,
	publisher EventPublisher,
	logger *zap.Logger,
) *CancelOrderUseCase {
	return &CancelOrderUseCase{
		orderRepo:   orderRepo,
		coordinator: coordinator,
		publisher:   publisher,
		logger:      logger,
	}
}

// Cancel compensates the order's stock commitments and moves it to
// CANCELLED. Cancelling an already-cancelled order is a no-op; releases floor
// at zero in the ledger and returns are recorded once per order, so a retry
// after a crash between compensation and the status write cannot
// double-restore stock.
func (uc *CancelOrderUseCase) Cancel(ctx context.Context, orderID uint) (*domain.Order, error) {
	order, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == domain.OrderStatusCancelled {
		uc.logger.Info("order already cancelled", zap.Uint("orderId", orderID))
		return order, nil
	}

	if order.Status == domain.OrderStatusDelivered {
		return nil, apperrors.NewConflictError("delivered orders cannot be cancelled")
	}

	if order.Status == domain.OrderStatusShipped {
		// Shipment already converted the reservations into on-hand
		// decrements; the stock comes back as returns.
		if err := uc.coordinator.ReturnAll(ctx, order.Lines, order.ID); err != nil {
			return nil, apperrors.NewInternalError("returning shipped stock", err)
		}
	} else {
		if err := uc.coordinator.ReleaseAll(ctx, order.Lines); err != nil {
			return nil, apperrors.NewInternalError("releasing reserved stock", err)
		}
	}

	if err := uc.orderRepo.UpdateStatus(ctx, orderID, order.Status, domain.OrderStatusCancelled); err != nil {
		return nil, err
	}
	order.Status = domain.OrderStatusCancelled

	uc.logger.Info("order cancelled",
		zap.Uint("orderId", orderID),
		zap.Int("lineCount", len(order.Lines)))

	if err := uc.publisher.PublishOrderEvent(ctx, dto.OrderEvent{
		Type:       dto.OrderEventCancelled,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     order.Status,
		Timestamp:  time.Now().UTC(),
	}); err != nil {
		uc.logger.Warn("publishing order event failed",
			zap.Uint("orderId", order.ID),
			zap.Error(err))
	}

	return order, nil
}
