package inventory

import (
	"database/sql"

	"go.uber.org/zap"

	"quartermaster/internal/config"
	"quartermaster/internal/inventory/controller"
	"quartermaster/internal/inventory/repository"
	"quartermaster/internal/inventory/service"
)

func NewModule(db *sql.DB, cfg *config.Config, logger *zap.Logger) (*controller.WarehouseController, *service.LedgerService) {
	stockRepo := repository.NewMySQLStockRepository(db)

	ledgerSvc := service.NewLedgerService(
		stockRepo,
		logger,
		cfg.Inventory.MaxRetryAttempts,
		cfg.Inventory.RetryBackoffBase,
	)

	return controller.NewWarehouseController(ledgerSvc, logger), ledgerSvc
}
