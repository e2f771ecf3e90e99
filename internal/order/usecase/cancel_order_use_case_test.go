package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"quartermaster/internal/domain"
	"quartermaster/internal/dto"
	apperrors "quartermaster/internal/errors"
)

func pendingOrder(id uint) *domain.Order {
	return &domain.Order{
		ID:         id,
		CustomerID: "cust-1",
		Status:     domain.OrderStatusPending,
		Lines: []domain.OrderLine{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	}
}

func TestCancel_PendingOrderReleasesReservations(t *testing.T) {
	order := pendingOrder(5)
	var released []domain.OrderLine
	var statusWritten string
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Order, error) { return order, nil },
		UpdateStatusFunc: func(ctx context.Context, id uint, from, to string) error {
			statusWritten = to
			return nil
		},
	}
	coordinator := &mockReservationCoordinator{
		ReleaseAllFunc: func(ctx context.Context, lines []domain.OrderLine) error {
			released = lines
			return nil
		},
	}
	publisher := &mockEventPublisher{}
	uc := NewCancelOrderUseCase(orderRepo, coordinator, publisher, zap.NewNop())

	cancelled, err := uc.Cancel(context.Background(), 5)

	assert.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, domain.OrderStatusCancelled, statusWritten)
	assert.Len(t, released, 2)
	if assert.Len(t, publisher.events, 1) {
		assert.Equal(t, dto.OrderEventCancelled, publisher.events[0].Type)
	}
}

func TestCancel_AlreadyCancelledIsNoOp(t *testing.T) {
	order := pendingOrder(5)
	order.Status = domain.OrderStatusCancelled
	releaseCalled := false
	updateCalled := false
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Order, error) { return order, nil },
		UpdateStatusFunc: func(ctx context.Context, id uint, from, to string) error {
			updateCalled = true
			return nil
		},
	}
	coordinator := &mockReservationCoordinator{
		ReleaseAllFunc: func(ctx context.Context, lines []domain.OrderLine) error {
			releaseCalled = true
			return nil
		},
	}
	uc := NewCancelOrderUseCase(orderRepo, coordinator, &mockEventPublisher{}, zap.NewNop())

	cancelled, err := uc.Cancel(context.Background(), 5)

	assert.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.False(t, releaseCalled, "a second cancellation must not restore stock again")
	assert.False(t, updateCalled)
}

func TestCancel_DeliveredOrderIsConflict(t *testing.T) {
	order := pendingOrder(5)
	order.Status = domain.OrderStatusDelivered
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Order, error) { return order, nil },
	}
	uc := NewCancelOrderUseCase(orderRepo, &mockReservationCoordinator{}, &mockEventPublisher{}, zap.NewNop())

	_, err := uc.Cancel(context.Background(), 5)

	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
}

func TestCancel_ShippedOrderRecordsReturns(t *testing.T) {
	order := pendingOrder(5)
	order.Status = domain.OrderStatusShipped
	var returnedOrderID uint
	releaseCalled := false
	orderRepo := &mockOrderRepository{
		FindByIDFunc:     func(ctx context.Context, id uint) (*domain.Order, error) { return order, nil },
		UpdateStatusFunc: func(ctx context.Context, id uint, from, to string) error { return nil },
	}
	coordinator := &mockReservationCoordinator{
		ReturnAllFunc: func(ctx context.Context, lines []domain.OrderLine, orderID uint) error {
			returnedOrderID = orderID
			return nil
		},
		ReleaseAllFunc: func(ctx context.Context, lines []domain.OrderLine) error {
			releaseCalled = true
			return nil
		},
	}
	uc := NewCancelOrderUseCase(orderRepo, coordinator, &mockEventPublisher{}, zap.NewNop())

	cancelled, err := uc.Cancel(context.Background(), 5)

	assert.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, uint(5), returnedOrderID, "shipped stock comes back as returns")
	assert.False(t, releaseCalled, "shipped orders have no reservations left to release")
}

func TestCancel_RetriedShippedCancelReachesCompensationAgain(t *testing.T) {
	// A crash between compensation and the status write leaves the order
	// SHIPPED; the retry must run the returns again and the ledger's
	// once-per-order rule keeps the replay from restoring stock twice.
	order := pendingOrder(5)
	order.Status = domain.OrderStatusShipped
	returnCalls := 0
	updateErr := errors.New("connection reset")
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Order, error) { return order, nil },
		UpdateStatusFunc: func(ctx context.Context, id uint, from, to string) error {
			if updateErr != nil {
				err := updateErr
				updateErr = nil
				return err
			}
			return nil
		},
	}
	coordinator := &mockReservationCoordinator{
		ReturnAllFunc: func(ctx context.Context, lines []domain.OrderLine, orderID uint) error {
			returnCalls++
			return nil
		},
	}
	uc := NewCancelOrderUseCase(orderRepo, coordinator, &mockEventPublisher{}, zap.NewNop())

	_, err := uc.Cancel(context.Background(), 5)
	assert.Error(t, err)

	cancelled, err := uc.Cancel(context.Background(), 5)
	assert.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 2, returnCalls)
}

func TestCancel_UnknownOrder(t *testing.T) {
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Order, error) {
			return nil, apperrors.NewNotFoundError("order 99 not found")
		},
	}
	uc := NewCancelOrderUseCase(orderRepo, &mockReservationCoordinator{}, &mockEventPublisher{}, zap.NewNop())

	_, err := uc.Cancel(context.Background(), 99)

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}
