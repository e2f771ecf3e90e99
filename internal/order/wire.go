package order

import (
	"database/sql"

	"go.uber.org/zap"

	catalogrepo "quartermaster/internal/catalog/repository"
	ledgerservice "quartermaster/internal/inventory/service"
	"quartermaster/internal/order/controller"
	orderrepo "quartermaster/internal/order/repository"
	"quartermaster/internal/order/service"
	"quartermaster/internal/order/usecase"
)

func NewModule(db *sql.DB, ledger *ledgerservice.LedgerService, publisher usecase.EventPublisher, logger *zap.Logger) *controller.OrderController {
	orderRepo := orderrepo.NewMySQLOrderRepository(db)
	productsRepo := catalogrepo.NewMySQLProductsRepository(db)

	coordinator := service.NewReservationCoordinator(ledger, logger)

	createUC := usecase.NewCreateOrderUseCase(orderRepo, productsRepo, coordinator, publisher, logger)
	cancelUC := usecase.NewCancelOrderUseCase(orderRepo, coordinator, publisher, logger)
	statusUC := usecase.NewOrderStatusUseCase(orderRepo, coordinator, cancelUC, publisher, logger)

	return controller.NewOrderController(createUC, statusUC, cancelUC, logger)
}
