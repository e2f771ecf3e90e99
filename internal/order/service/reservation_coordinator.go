package service

import (
	"context"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"quartermaster/internal/domain"
)

type StockLedger interface {
	Reserve(ctx context.Context, productID, quantity int) (*domain.StockRecord, error)
	Release(ctx context.Context, productID, quantity int) (*domain.StockRecord, error)
	CommitReservation(ctx context.Context, productID, quantity int, orderID uint) (*domain.StockRecord, error)
	RecordTransaction(ctx context.Context, productID, quantity int, kind domain.TransactionKind, orderID *uint, actorID *string, note *string) (*domain.StockRecord, error)
}

// ReservationCoordinator drives multi-line stock operations against the
// inventory ledger with all-or-nothing semantics: a failed reservation
// triggers compensation of everything reserved so far.
type ReservationCoordinator struct {
	ledger StockLedger
	logger *zap.Logger
}

func NewReservationCoordinator(ledger StockLedger, logger *zap.Logger) *ReservationCoordinator {
	return &ReservationCoordinator{
		ledger: ledger,
		logger: logger,
	}
}

// ReserveAll reserves every line or none. Lines are processed in ascending
// productId order so concurrent multi-line reservations lock products in the
// same order. On failure the already-reserved lines are released before the
// error propagates; release failures are aggregated and logged, never
// swallowed, but the original reservation error is what the caller sees.
func (c *ReservationCoordinator) ReserveAll(ctx context.Context, lines []domain.OrderLine) error {
	ordered := make([]domain.OrderLine, len(lines))
	copy(ordered, lines)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	for i, line := range ordered {
		if _, err := c.ledger.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
			c.logger.Warn("reservation failed, compensating",
				zap.Int("productId", line.ProductID),
				zap.Int("quantity", line.Quantity),
				zap.Int("reservedSoFar", i),
				zap.Error(err))

			if releaseErr := c.releaseLines(ctx, ordered[:i]); releaseErr != nil {
				c.logger.Error("compensating release failed",
					zap.Int("productId", line.ProductID),
					zap.Error(releaseErr))
			}
			return err
		}
	}

	return nil
}

// ReleaseAll returns every line's reserved quantity to the sellable pool.
// Individual releases floor at zero in the ledger, so repeated calls are
// safe.
func (c *ReservationCoordinator) ReleaseAll(ctx context.Context, lines []domain.OrderLine) error {
	return c.releaseLines(ctx, lines)
}

// CommitAll converts every line's reservation into a permanent on-hand
// decrement at shipment time.
func (c *ReservationCoordinator) CommitAll(ctx context.Context, lines []domain.OrderLine, orderID uint) error {
	var errs error
	for _, line := range lines {
		if _, err := c.ledger.CommitReservation(ctx, line.ProductID, line.Quantity, orderID); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// ReturnAll records inbound returns for every line of an order whose stock
// has already been shipped.
func (c *ReservationCoordinator) ReturnAll(ctx context.Context, lines []domain.OrderLine, orderID uint) error {
	var errs error
	for _, line := range lines {
		_, err := c.ledger.RecordTransaction(ctx, line.ProductID, line.Quantity,
			domain.TransactionReturned, &orderID, nil, nil)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *ReservationCoordinator) releaseLines(ctx context.Context, lines []domain.OrderLine) error {
	var errs error
	for _, line := range lines {
		if _, err := c.ledger.Release(ctx, line.ProductID, line.Quantity); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
