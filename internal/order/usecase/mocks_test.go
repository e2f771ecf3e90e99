package usecase

import (
	"context"

	"quartermaster/internal/domain"
	"quartermaster/internal/dto"
)

type mockOrderRepository struct {
	CreateWithLinesFunc func(ctx context.Context, order *domain.Order) (*domain.Order, error)
	FindByIDFunc        func(ctx context.Context, id uint) (*domain.Order, error)
	UpdateStatusFunc    func(ctx context.Context, id uint, from, to string) error
	AssignShipperFunc   func(ctx context.Context, id uint, shipperID, from string) error
}

func (m *mockOrderRepository) CreateWithLines(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	return m.CreateWithLinesFunc(ctx, order)
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uint, from, to string) error {
	return m.UpdateStatusFunc(ctx, id, from, to)
}

func (m *mockOrderRepository) AssignShipper(ctx context.Context, id uint, shipperID, from string) error {
	return m.AssignShipperFunc(ctx, id, shipperID, from)
}

type mockProductCatalog struct {
	SnapshotsFunc func(ctx context.Context, ids []int) (map[int]domain.ProductSnapshot, error)
}

func (m *mockProductCatalog) Snapshots(ctx context.Context, ids []int) (map[int]domain.ProductSnapshot, error) {
	return m.SnapshotsFunc(ctx, ids)
}

type mockReservationCoordinator struct {
	ReserveAllFunc func(ctx context.Context, lines []domain.OrderLine) error
	ReleaseAllFunc func(ctx context.Context, lines []domain.OrderLine) error
	CommitAllFunc  func(ctx context.Context, lines []domain.OrderLine, orderID uint) error
	ReturnAllFunc  func(ctx context.Context, lines []domain.OrderLine, orderID uint) error
}

func (m *mockReservationCoordinator) ReserveAll(ctx context.Context, lines []domain.OrderLine) error {
	return m.ReserveAllFunc(ctx, lines)
}

func (m *mockReservationCoordinator) ReleaseAll(ctx context.Context, lines []domain.OrderLine) error {
	return m.ReleaseAllFunc(ctx, lines)
}

func (m *mockReservationCoordinator) CommitAll(ctx context.Context, lines []domain.OrderLine, orderID uint) error {
	return m.CommitAllFunc(ctx, lines, orderID)
}

func (m *mockReservationCoordinator) ReturnAll(ctx context.Context, lines []domain.OrderLine, orderID uint) error {
	return m.ReturnAllFunc(ctx, lines, orderID)
}

type mockEventPublisher struct {
	events []dto.OrderEvent
	err    error
}

func (m *mockEventPublisher) PublishOrderEvent(ctx context.Context, event dto.OrderEvent) error {
	m.events = append(m.events, event)
	return m.err
}
