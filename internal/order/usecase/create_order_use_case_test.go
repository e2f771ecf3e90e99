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

func testSnapshots() map[int]domain.ProductSnapshot {
	return map[int]domain.ProductSnapshot{
		1: {ID: 1, Name: "Widget", Price: 10.0, Discount: 1.0, IsActive: true},
		2: {ID: 2, Name: "Gadget", Price: 25.0, Discount: 0.0, IsActive: true},
	}
}

func TestCreateOrder_Success(t *testing.T) {
	orderRepo := &mockOrderRepository{
		CreateWithLinesFunc: func(ctx context.Context, order *domain.Order) (*domain.Order, error) {
			persisted := *order
			persisted.ID = 11
			return &persisted, nil
		},
	}
	catalog := &mockProductCatalog{
		SnapshotsFunc: func(ctx context.Context, ids []int) (map[int]domain.ProductSnapshot, error) {
			return testSnapshots(), nil
		},
	}
	coordinator := &mockReservationCoordinator{
		ReserveAllFunc: func(ctx context.Context, lines []domain.OrderLine) error { return nil },
	}
	publisher := &mockEventPublisher{}
	uc := NewCreateOrderUseCase(orderRepo, catalog, coordinator, publisher, zap.NewNop())

	order, err := uc.CreateOrder(context.Background(), "cust-1", dto.CreateOrderRequest{
		Lines: []dto.OrderLineRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
		ShippingAddress: "12 Elm St",
		Phone:           "0123456789",
	})

	assert.NoError(t, err)
	assert.Equal(t, uint(11), order.ID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.False(t, order.IsPaid)
	assert.Equal(t, 45.0, order.TotalPrice)
	assert.Equal(t, 2.0, order.TotalDiscount)
	assert.Equal(t, "Widget", order.Lines[0].ProductName)
	assert.Equal(t, 10.0, order.Lines[0].UnitPrice)

	if assert.Len(t, publisher.events, 1) {
		assert.Equal(t, dto.OrderEventCreated, publisher.events[0].Type)
		assert.Equal(t, uint(11), publisher.events[0].OrderID)
	}
}

func TestCreateOrder_RequiresCustomerAndLines(t *testing.T) {
	uc := NewCreateOrderUseCase(&mockOrderRepository{}, &mockProductCatalog{}, &mockReservationCoordinator{}, &mockEventPublisher{}, zap.NewNop())

	_, err := uc.CreateOrder(context.Background(), "", dto.CreateOrderRequest{
		Lines: []dto.OrderLineRequest{{ProductID: 1, Quantity: 1}},
	})
	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)

	_, err = uc.CreateOrder(context.Background(), "cust-1", dto.CreateOrderRequest{})
	_, ok = apperrors.IsValidationError(err)
	assert.True(t, ok)

	_, err = uc.CreateOrder(context.Background(), "cust-1", dto.CreateOrderRequest{
		Lines: []dto.OrderLineRequest{{ProductID: 1, Quantity: 0}},
	})
	_, ok = apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestCreateOrder_UnknownProductIsNotFound(t *testing.T) {
	catalog := &mockProductCatalog{
		SnapshotsFunc: func(ctx context.Context, ids []int) (map[int]domain.ProductSnapshot, error) {
			return testSnapshots(), nil
		},
	}
	uc := NewCreateOrderUseCase(&mockOrderRepository{}, catalog, &mockReservationCoordinator{}, &mockEventPublisher{}, zap.NewNop())

	_, err := uc.CreateOrder(context.Background(), "cust-1", dto.CreateOrderRequest{
		Lines: []dto.OrderLineRequest{{ProductID: 99, Quantity: 1}},
	})

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestCreateOrder_InactiveProductIsNotFound(t *testing.T) {
	catalog := &mockProductCatalog{
		SnapshotsFunc: func(ctx context.Context, ids []int) (map[int]domain.ProductSnapshot, error) {
			return map[int]domain.ProductSnapshot{
				1: {ID: 1, Name: "Widget", Price: 10.0, IsActive: false},
			}, nil
		},
	}
	uc := NewCreateOrderUseCase(&mockOrderRepository{}, catalog, &mockReservationCoordinator{}, &mockEventPublisher{}, zap.NewNop())

	_, err := uc.CreateOrder(context.Background(), "cust-1", dto.CreateOrderRequest{
		Lines: []dto.OrderLineRequest{{ProductID: 1, Quantity: 1}},
	})

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestCreateOrder_ReservationFailureSkipsPersist(t *testing.T) {
	persistCalled := false
	orderRepo := &mockOrderRepository{
		CreateWithLinesFunc: func(ctx context.Context, order *domain.Order) (*domain.Order, error) {
			persistCalled = true
			return order, nil
		},
	}
	catalog := &mockProductCatalog{
		SnapshotsFunc: func(ctx context.Context, ids []int) (map[int]domain.ProductSnapshot, error) {
			return testSnapshots(), nil
		},
	}
	coordinator := &mockReservationCoordinator{
		ReserveAllFunc: func(ctx context.Context, lines []domain.OrderLine) error {
			return apperrors.NewInsufficientStockError(1, 5, 2)
		},
	}
	publisher := &mockEventPublisher{}
	uc := NewCreateOrderUseCase(orderRepo, catalog, coordinator, publisher, zap.NewNop())

	_, err := uc.CreateOrder(context.Background(), "cust-1", dto.CreateOrderRequest{
		Lines: []dto.OrderLineRequest{{ProductID: 1, Quantity: 5}},
	})

	_, ok := apperrors.IsInsufficientStockError(err)
	assert.True(t, ok)
	assert.False(t, persistCalled)
	assert.Empty(t, publisher.events)
}

func TestCreateOrder_PersistFailureReleasesReservations(t *testing.T) {
	var released []domain.OrderLine
	orderRepo := &mockOrderRepository{
		CreateWithLinesFunc: func(ctx context.Context, order *domain.Order) (*domain.Order, error) {
			return nil, errors.New("connection reset")
		},
	}
	catalog := &mockProductCatalog{
		SnapshotsFunc: func(ctx context.Context, ids []int) (map[int]domain.ProductSnapshot, error) {
			return testSnapshots(), nil
		},
	}
	coordinator := &mockReservationCoordinator{
		ReserveAllFunc: func(ctx context.Context, lines []domain.OrderLine) error { return nil },
		ReleaseAllFunc: func(ctx context.Context, lines []domain.OrderLine) error {
			released = lines
			return nil
		},
	}
	uc := NewCreateOrderUseCase(orderRepo, catalog, coordinator, &mockEventPublisher{}, zap.NewNop())

	_, err := uc.CreateOrder(context.Background(), "cust-1", dto.CreateOrderRequest{
		Lines: []dto.OrderLineRequest{{ProductID: 1, Quantity: 2}},
	})

	_, ok := apperrors.IsInternalError(err)
	assert.True(t, ok)
	if assert.Len(t, released, 1) {
		assert.Equal(t, 1, released[0].ProductID)
		assert.Equal(t, 2, released[0].Quantity)
	}
}

func TestCreateOrder_EventFailureDoesNotFailOrder(t *testing.T) {
	orderRepo := &mockOrderRepository{
		CreateWithLinesFunc: func(ctx context.Context, order *domain.Order) (*domain.Order, error) {
			persisted := *order
			persisted.ID = 3
			return &persisted, nil
		},
	}
	catalog := &mockProductCatalog{
		SnapshotsFunc: func(ctx context.Context, ids []int) (map[int]domain.ProductSnapshot, error) {
			return testSnapshots(), nil
		},
	}
	coordinator := &mockReservationCoordinator{
		ReserveAllFunc: func(ctx context.Context, lines []domain.OrderLine) error { return nil },
	}
	publisher := &mockEventPublisher{err: errors.New("broker unavailable")}
	uc := NewCreateOrderUseCase(orderRepo, catalog, coordinator, publisher, zap.NewNop())

	order, err := uc.CreateOrder(context.Background(), "cust-1", dto.CreateOrderRequest{
		Lines: []dto.OrderLineRequest{{ProductID: 1, Quantity: 1}},
	})

	assert.NoError(t, err)
	assert.Equal(t, uint(3), order.ID)
}
