package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quartermaster/internal/domain"
	apperrors "quartermaster/internal/errors"
	"quartermaster/internal/testutil"
)

func setupStockRepo(t *testing.T) (*MySQLStockRepository, func()) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	repo := NewMySQLStockRepository(db)
	return repo, func() { testutil.CleanupTestDB(t, db) }
}

func TestCreate_Integration(t *testing.T) {
	repo, cleanup := setupStockRepo(t)
	defer cleanup()
	ctx := context.Background()

	record, err := repo.Create(ctx, 1, 25, 5, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, record.OnHand)
	assert.Equal(t, 0, record.Reserved)
	assert.True(t, record.IsActive)

	// Initial quantity lands in the ledger as an import.
	record, err = repo.FindWithTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, record.Transactions, 1)
	assert.Equal(t, domain.TransactionImport, record.Transactions[0].Kind)
	assert.Equal(t, 25, record.Transactions[0].Quantity)

	_, err = repo.Create(ctx, 1, 10, 0, 50)
	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok, "duplicate product must be rejected")
}

func TestReserveAndRelease_Integration(t *testing.T) {
	repo, cleanup := setupStockRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 25, 0, 100)
	require.NoError(t, err)

	record, err := repo.Reserve(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 25, record.OnHand)
	assert.Equal(t, 5, record.Reserved)
	assert.Equal(t, 20, record.Available())

	record, err = repo.Release(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 25, record.OnHand)
	assert.Equal(t, 0, record.Reserved)
	assert.Equal(t, 25, record.Available())

	record, err = repo.FindWithTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, record.Transactions, 3)
	assert.Equal(t, domain.TransactionReserve, record.Transactions[1].Kind)
	assert.Equal(t, -5, record.Transactions[1].Quantity)
	assert.Equal(t, domain.TransactionRelease, record.Transactions[2].Kind)
	assert.Equal(t, 5, record.Transactions[2].Quantity)
}

func TestReserve_InsufficientStock_Integration(t *testing.T) {
	repo, cleanup := setupStockRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 10, 0, 100)
	require.NoError(t, err)
	_, err = repo.Reserve(ctx, 1, 4)
	require.NoError(t, err)

	_, err = repo.Reserve(ctx, 1, 7)
	ise, ok := apperrors.IsInsufficientStockError(err)
	require.True(t, ok)
	assert.Equal(t, 7, ise.Requested)
	assert.Equal(t, 6, ise.Available)

	// The failed reservation leaves the record untouched.
	record, err := repo.Find(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, record.OnHand)
	assert.Equal(t, 4, record.Reserved)
}

func TestReserve_DeactivatedRecord_Integration(t *testing.T) {
	repo, cleanup := setupStockRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 10, 0, 100)
	require.NoError(t, err)
	require.NoError(t, repo.Deactivate(ctx, 1))

	_, err = repo.Reserve(ctx, 1, 1)
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)

	// Deactivating twice is a no-op.
	assert.NoError(t, repo.Deactivate(ctx, 1))
}

func TestRelease_FloorsAtZero_Integration(t *testing.T) {
	repo, cleanup := setupStockRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 10, 0, 100)
	require.NoError(t, err)
	_, err = repo.Reserve(ctx, 1, 3)
	require.NoError(t, err)

	record, err := repo.Release(ctx, 1, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, record.Reserved, "releasing more than reserved floors at zero")

	// A release with nothing reserved writes no ledger entry.
	record, err = repo.Release(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, record.Reserved)

	record, err = repo.FindWithTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, record.Transactions, 3)
	assert.Equal(t, 3, record.Transactions[2].Quantity, "only the actually released amount is ledgered")
}

func TestRecordTransaction_GuardsAvailability_Integration(t *testing.T) {
	repo, cleanup := setupStockRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 25, 0, 100)
	require.NoError(t, err)
	_, err = repo.Reserve(ctx, 1, 5)
	require.NoError(t, err)

	// Exporting more than available (20) must fail and change nothing.
	_, err = repo.RecordTransaction(ctx, domain.StockTransaction{
		ProductID: 1, Quantity: -30, Kind: domain.TransactionExport,
	})
	ise, ok := apperrors.IsInsufficientStockError(err)
	require.True(t, ok)
	assert.Equal(t, 20, ise.Available)

	record, err := repo.Find(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 25, record.OnHand)
	assert.Equal(t, 5, record.Reserved)

	record, err = repo.RecordTransaction(ctx, domain.StockTransaction{
		ProductID: 1, Quantity: -20, Kind: domain.TransactionExport,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, record.OnHand)
	assert.Equal(t, 0, record.Available())
}

func TestCommitReservation_Integration(t *testing.T) {
	repo, cleanup := setupStockRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 10, 0, 100)
	require.NoError(t, err)
	_, err = repo.Reserve(ctx, 1, 4)
	require.NoError(t, err)

	record, err := repo.CommitReservation(ctx, 1, 4, 77)
	require.NoError(t, err)
	assert.Equal(t, 6, record.OnHand)
	assert.Equal(t, 0, record.Reserved)
	assert.Equal(t, 6, record.Available())

	record, err = repo.FindWithTransactions(ctx, 1)
	require.NoError(t, err)
	last := record.Transactions[len(record.Transactions)-1]
	assert.Equal(t, domain.TransactionExport, last.Kind)
	assert.Equal(t, -4, last.Quantity)
	require.NotNil(t, last.OrderID)
	assert.Equal(t, uint(77), *last.OrderID)
}

func TestAdjustOnHand_VersionCAS_Integration(t *testing.T) {
	repo, cleanup := setupStockRepo(t)
	defer cleanup()
	ctx := context.Background()

	created, err := repo.Create(ctx, 1, 10, 0, 100)
	require.NoError(t, err)

	_, ok, err := repo.AdjustOnHand(ctx, 1, 15, created.Version+1, 5, "recount", nil)
	require.NoError(t, err)
	assert.False(t, ok, "stale version must lose the race")

	record, ok, err := repo.AdjustOnHand(ctx, 1, 15, created.Version, 5, "recount", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 15, record.OnHand)
	assert.Equal(t, created.Version+1, record.Version)

	record, err = repo.FindWithTransactions(ctx, 1)
	require.NoError(t, err)
	last := record.Transactions[len(record.Transactions)-1]
	assert.Equal(t, domain.TransactionAdjustment, last.Kind)
	assert.Equal(t, 5, last.Quantity)
	require.NotNil(t, last.Note)
	assert.Equal(t, "recount", *last.Note)
}

func TestAdjustOnHand_RespectsReserved_Integration(t *testing.T) {
	repo, cleanup := setupStockRepo(t)
	defer cleanup()
	ctx := context.Background()

	created, err := repo.Create(ctx, 1, 10, 0, 100)
	require.NoError(t, err)

	// Reservations do not touch the version column, so the CAS alone would
	// let an adjustment drop on-hand below what is reserved.
	_, err = repo.Reserve(ctx, 1, 8)
	require.NoError(t, err)

	_, ok, err := repo.AdjustOnHand(ctx, 1, 5, created.Version, -5, "recount", nil)
	require.NoError(t, err)
	assert.False(t, ok, "an adjustment below the reserved quantity must miss the guard")

	record, err := repo.Find(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, record.OnHand)
	assert.Equal(t, 8, record.Reserved)
	assert.GreaterOrEqual(t, record.OnHand, record.Reserved)
}

func TestRecordTransaction_DeactivatedRecord_Integration(t *testing.T) {
	repo, cleanup := setupStockRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 10, 0, 100)
	require.NoError(t, err)
	require.NoError(t, repo.Deactivate(ctx, 1))

	_, err = repo.RecordTransaction(ctx, domain.StockTransaction{
		ProductID: 1, Quantity: 5, Kind: domain.TransactionImport,
	})
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok, "movements against a deactivated record are rejected")

	record, err := repo.Find(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, record.OnHand)
}

func TestRecordTransaction_ReturnOncePerOrder_Integration(t *testing.T) {
	repo, cleanup := setupStockRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 10, 0, 100)
	require.NoError(t, err)

	orderID := uint(42)
	returned := domain.StockTransaction{
		ProductID: 1, Quantity: 4, Kind: domain.TransactionReturned, OrderID: &orderID,
	}

	record, err := repo.RecordTransaction(ctx, returned)
	require.NoError(t, err)
	assert.Equal(t, 14, record.OnHand)

	// A retried cancellation replays the return; stock must not move again.
	record, err = repo.RecordTransaction(ctx, returned)
	require.NoError(t, err)
	assert.Equal(t, 14, record.OnHand)

	record, err = repo.FindWithTransactions(ctx, 1)
	require.NoError(t, err)
	returns := 0
	for _, txn := range record.Transactions {
		if txn.Kind == domain.TransactionReturned {
			returns++
		}
	}
	assert.Equal(t, 1, returns, "one RETURNED entry per order and product")

	// A return for a different order still goes through.
	otherOrder := uint(43)
	record, err = repo.RecordTransaction(ctx, domain.StockTransaction{
		ProductID: 1, Quantity: 2, Kind: domain.TransactionReturned, OrderID: &otherOrder,
	})
	require.NoError(t, err)
	assert.Equal(t, 16, record.OnHand)
}

func TestListLowStock_Integration(t *testing.T) {
	repo, cleanup := setupStockRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 2, 5, 100) // available 2, below min 5
	require.NoError(t, err)
	_, err = repo.Create(ctx, 2, 50, 5, 100) // plenty
	require.NoError(t, err)
	_, err = repo.Create(ctx, 3, 6, 5, 100)
	require.NoError(t, err)
	_, err = repo.Reserve(ctx, 3, 3) // available 3, below min 5
	require.NoError(t, err)

	records, err := repo.ListLowStock(ctx, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].ProductID, "scarcest product first")
	assert.Equal(t, 3, records[1].ProductID)

	threshold := 100
	records, err = repo.ListLowStock(ctx, &threshold)
	require.NoError(t, err)
	assert.Len(t, records, 3, "explicit threshold overrides per-record minimums")
}

func TestReserve_ConcurrentNoOversell_Integration(t *testing.T) {
	repo, cleanup := setupStockRepo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 10, 0, 100)
	require.NoError(t, err)

	const attempts = 15
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Reserve(ctx, 1, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		_, ok := apperrors.IsInsufficientStockError(err)
		assert.True(t, ok, "losing reservations must fail with insufficient stock, got %v", err)
	}
	assert.Equal(t, 10, successes, "exactly the available quantity may be reserved")

	record, err := repo.Find(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, record.Reserved)
	assert.Equal(t, 0, record.Available())
}
