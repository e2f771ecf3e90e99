package usecase

import (
	"context"

	"quartermaster/internal/domain"
	"quartermaster/internal/dto"
)

type OrderRepository interface {
	CreateWithLines(ctx context.Context, order *domain.Order) (*domain.Order, error)
	FindByID(ctx context.Context, id uint) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id uint, from, to string) error
	AssignShipper(ctx context.Context, id uint, shipperID, from string) error
}

type ProductCatalog interface {
	Snapshots(ctx context.Context, ids []int) (map[int]domain.ProductSnapshot, error)
}

type ReservationCoordinator interface {
	ReserveAll(ctx context.Context, lines []domain.OrderLine) error
	ReleaseAll(ctx context.Context, lines []domain.OrderLine) error
	CommitAll(ctx context.Context, lines []domain.OrderLine, orderID uint) error
	ReturnAll(ctx context.Context, lines []domain.OrderLine, orderID uint) error
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event dto.OrderEvent) error
}

// NopEventPublisher satisfies EventPublisher when messaging is disabled.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishOrderEvent(ctx context.Context, event dto.OrderEvent) error {
	return nil
}
