package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"quartermaster/internal/domain"
	apperrors "quartermaster/internal/errors"
)

type StockRepository interface {
	Create(ctx context.Context, productID, initialQuantity, minLevel, maxLevel int) (*domain.StockRecord, error)
	Find(ctx context.Context, productID int) (*domain.StockRecord, error)
	FindWithTransactions(ctx context.Context, productID int) (*domain.StockRecord, error)
	Reserve(ctx context.Context, productID, quantity int) (*domain.StockRecord, error)
	Release(ctx context.Context, productID, quantity int) (*domain.StockRecord, error)
	CommitReservation(ctx context.Context, productID, quantity int, orderID uint) (*domain.StockRecord, error)
	RecordTransaction(ctx context.Context, txn domain.StockTransaction) (*domain.StockRecord, error)
	AdjustOnHand(ctx context.Context, productID, newOnHand, expectedVersion, delta int, note string, actorID *string) (*domain.StockRecord, bool, error)
	ListLowStock(ctx context.Context, threshold *int) ([]domain.StockRecord, error)
	Deactivate(ctx context.Context, productID int) error
}

// LedgerService is the inventory ledger: it validates stock operations and
// delegates the atomic writes to the repository. Adjustments retry lost CAS
// races with bounded backoff before surfacing a conflict to the caller.
type LedgerService struct {
	repo             StockRepository
	logger           *zap.Logger
	maxRetryAttempts int
	retryBackoffBase time.Duration
}

func NewLedgerService(repo StockRepository, logger *zap.Logger, maxRetryAttempts int, retryBackoffBase time.Duration) *LedgerService {
	return &LedgerService{
		repo:             repo,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
		retryBackoffBase: retryBackoffBase,
	}
}

func (s *LedgerService) CreateStockRecord(ctx context.Context, productID, initialQuantity, minLevel, maxLevel int) (*domain.StockRecord, error) {
	if productID <= 0 {
		return nil, apperrors.NewValidationError("productId must be a positive integer")
	}
	if initialQuantity < 0 {
		return nil, apperrors.NewValidationError("initialQuantity must not be negative")
	}
	if minLevel < 0 || maxLevel < minLevel {
		return nil, apperrors.NewValidationError("stock levels must satisfy 0 <= minStockLevel <= maxStockLevel")
	}

	record, err := s.repo.Create(ctx, productID, initialQuantity, minLevel, maxLevel)
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock record created",
		zap.Int("productId", productID),
		zap.Int("initialQuantity", initialQuantity))

	return record, nil
}

func (s *LedgerService) GetStockRecord(ctx context.Context, productID int) (*domain.StockRecord, error) {
	return s.repo.FindWithTransactions(ctx, productID)
}

func (s *LedgerService) RecordTransaction(ctx context.Context, productID, quantity int, kind domain.TransactionKind, orderID *uint, actorID *string, note *string) (*domain.StockRecord, error) {
	if !kind.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unrecognized transaction type %q", kind))
	}
	if kind == domain.TransactionReserve || kind == domain.TransactionRelease {
		return nil, apperrors.NewValidationError("reserve and release flow through the reservation operations")
	}
	if quantity == 0 {
		return nil, apperrors.NewValidationError("quantity must not be zero")
	}
	if kind.Inbound() && quantity < 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s transactions must carry a positive quantity", kind))
	}
	if kind.Outbound() && quantity > 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s transactions must carry a negative quantity", kind))
	}

	record, err := s.repo.RecordTransaction(ctx, domain.StockTransaction{
		ProductID: productID,
		Quantity:  quantity,
		Kind:      kind,
		OrderID:   orderID,
		ActorID:   actorID,
		Note:      note,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock transaction recorded",
		zap.Int("productId", productID),
		zap.Int("quantity", quantity),
		zap.String("type", string(kind)))

	return record, nil
}

func (s *LedgerService) Reserve(ctx context.Context, productID, quantity int) (*domain.StockRecord, error) {
	if quantity <= 0 {
		return nil, apperrors.NewValidationError("quantity must be a positive integer")
	}

	record, err := s.repo.Reserve(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock reserved",
		zap.Int("productId", productID),
		zap.Int("quantity", quantity),
		zap.Int("available", record.Available()))

	return record, nil
}

func (s *LedgerService) Release(ctx context.Context, productID, quantity int) (*domain.StockRecord, error) {
	if quantity <= 0 {
		return nil, apperrors.NewValidationError("quantity must be a positive integer")
	}

	record, err := s.repo.Release(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock released",
		zap.Int("productId", productID),
		zap.Int("quantity", quantity),
		zap.Int("available", record.Available()))

	return record, nil
}

func (s *LedgerService) CommitReservation(ctx context.Context, productID, quantity int, orderID uint) (*domain.StockRecord, error) {
	if quantity <= 0 {
		return nil, apperrors.NewValidationError("quantity must be a positive integer")
	}

	record, err := s.repo.CommitReservation(ctx, productID, quantity, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation committed",
		zap.Int("productId", productID),
		zap.Int("quantity", quantity),
		zap.Uint("orderId", orderID))

	return record, nil
}

// Adjust sets the on-hand quantity to newOnHand and ledgers the delta. The
// read-compute-write cycle is protected by the repository's version CAS;
// lost races are retried with backoff and jitter before surfacing a conflict.
func (s *LedgerService) Adjust(ctx context.Context, productID, newOnHand int, note string, actorID *string) (*domain.StockRecord, error) {
	if newOnHand < 0 {
		return nil, apperrors.NewValidationError("on-hand quantity must not be negative")
	}

	for attempt := 1; attempt <= s.maxRetryAttempts; attempt++ {
		current, err := s.repo.Find(ctx, productID)
		if err != nil {
			return nil, err
		}

		if newOnHand < current.Reserved {
			return nil, apperrors.NewValidationError(fmt.Sprintf(
				"cannot adjust on-hand quantity below reserved quantity %d", current.Reserved))
		}

		delta := newOnHand - current.OnHand
		if delta == 0 {
			return current, nil
		}

		record, ok, err := s.repo.AdjustOnHand(ctx, productID, newOnHand, current.Version, delta, note, actorID)
		if err != nil {
			return nil, err
		}
		if ok {
			s.logger.Info("stock adjusted",
				zap.Int("productId", productID),
				zap.Int("delta", delta),
				zap.Int("onHand", newOnHand))
			return record, nil
		}

		if attempt < s.maxRetryAttempts {
			// ±20% jitter around the linear backoff base.
			backoff := s.retryBackoffBase * time.Duration(attempt)
			jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
			s.logger.Warn("adjustment lost version race, retrying",
				zap.Int("productId", productID),
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", s.maxRetryAttempts))
			time.Sleep(jitter)
		}
	}

	return nil, apperrors.NewConflictError(fmt.Sprintf(
		"stock record for product %d was concurrently modified, retries exhausted", productID))
}

func (s *LedgerService) ListLowStock(ctx context.Context, threshold *int) ([]domain.StockRecord, error) {
	if threshold != nil && *threshold < 0 {
		return nil, apperrors.NewValidationError("threshold must not be negative")
	}
	return s.repo.ListLowStock(ctx, threshold)
}

func (s *LedgerService) Deactivate(ctx context.Context, productID int) error {
	if err := s.repo.Deactivate(ctx, productID); err != nil {
		return err
	}
	s.logger.Info("stock record deactivated", zap.Int("productId", productID))
	return nil
}
