package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"quartermaster/internal/domain"
	apperrors "quartermaster/internal/errors"
)

const mysqlDuplicateEntry = 1062

// MySQLStockRepository owns the StockRecords and StockTransactions tables.
// Every mutation runs as a single guarded UPDATE (or a version CAS) with the
// ledger append in the same transaction, so concurrent writers on one product
// serialize at the store and cannot lose updates.
type MySQLStockRepository struct {
	db *sql.DB
}

func NewMySQLStockRepository(db *sql.DB) *MySQLStockRepository {
	return &MySQLStockRepository{db: db}
}

func (r *MySQLStockRepository) Create(ctx context.Context, productID, initialQuantity, minLevel, maxLevel int) (*domain.StockRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO StockRecords (productId, onHand, reserved, minStockLevel, maxStockLevel, isActive, version)
		VALUES (?, ?, 0, ?, ?, 1, 0)
	`
	_, err = tx.ExecContext(ctx, query, productID, initialQuantity, minLevel, maxLevel)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("stock record for product %d already exists", productID))
		}
		return nil, fmt.Errorf("inserting stock record: %w", err)
	}

	if initialQuantity > 0 {
		if err := insertTransaction(ctx, tx, domain.StockTransaction{
			ProductID: productID,
			Quantity:  initialQuantity,
			Kind:      domain.TransactionImport,
		}); err != nil {
			return nil, err
		}
	}

	record, err := findByProductID(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing stock record creation: %w", err)
	}

	return record, nil
}

func (r *MySQLStockRepository) Find(ctx context.Context, productID int) (*domain.StockRecord, error) {
	return findByProductID(ctx, r.db, productID)
}

func (r *MySQLStockRepository) FindWithTransactions(ctx context.Context, productID int) (*domain.StockRecord, error) {
	record, err := findByProductID(ctx, r.db, productID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, productId, quantity, kind, orderId, actorId, note, createdAt
		FROM StockTransactions
		WHERE productId = ?
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("querying stock transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var txn domain.StockTransaction
		err := rows.Scan(
			&txn.ID, &txn.ProductID, &txn.Quantity, &txn.Kind,
			&txn.OrderID, &txn.ActorID, &txn.Note, &txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning stock transaction row: %w", err)
		}
		record.Transactions = append(record.Transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stock transaction rows: %w", err)
	}

	return record, nil
}

// Reserve increments reserved quantity only while available quantity stays
// non-negative. The guard clause in the UPDATE makes the check and the write
// one atomic statement.
func (r *MySQLStockRepository) Reserve(ctx context.Context, productID, quantity int) (*domain.StockRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE StockRecords
		SET reserved = reserved + ?
		WHERE productId = ? AND isActive = 1 AND onHand - reserved >= ?
	`
	result, err := tx.ExecContext(ctx, query, quantity, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("reserving stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		record, err := findByProductID(ctx, tx, productID)
		if err != nil {
			return nil, err
		}
		if !record.IsActive {
			return nil, apperrors.NewNotFoundError(
				fmt.Sprintf("stock record for product %d is deactivated", productID))
		}
		return nil, apperrors.NewInsufficientStockError(productID, quantity, record.Available())
	}

	if err := insertTransaction(ctx, tx, domain.StockTransaction{
		ProductID: productID,
		Quantity:  -quantity,
		Kind:      domain.TransactionReserve,
	}); err != nil {
		return nil, err
	}

	record, err := findByProductID(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reservation: %w", err)
	}

	return record, nil
}

// Release decrements reserved quantity, floored at zero. Over-releases are
// no-ops, which makes retried cancellations safe. The row lock taken by the
// SELECT ... FOR UPDATE serializes concurrent writers on the product.
func (r *MySQLStockRepository) Release(ctx context.Context, productID, quantity int) (*domain.StockRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var reserved int
	err = tx.QueryRowContext(ctx,
		`SELECT reserved FROM StockRecords WHERE productId = ? FOR UPDATE`, productID,
	).Scan(&reserved)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("stock record for product %d not found", productID))
	}
	if err != nil {
		return nil, fmt.Errorf("locking stock record: %w", err)
	}

	released := quantity
	if released > reserved {
		released = reserved
	}

	if released > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE StockRecords SET reserved = reserved - ? WHERE productId = ?`,
			released, productID,
		)
		if err != nil {
			return nil, fmt.Errorf("releasing stock: %w", err)
		}

		if err := insertTransaction(ctx, tx, domain.StockTransaction{
			ProductID: productID,
			Quantity:  released,
			Kind:      domain.TransactionRelease,
		}); err != nil {
			return nil, err
		}
	}

	record, err := findByProductID(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing release: %w", err)
	}

	return record, nil
}

// CommitReservation converts reserved quantity into a permanent on-hand
// decrement at shipment time and records the export against the order.
func (r *MySQLStockRepository) CommitReservation(ctx context.Context, productID, quantity int, orderID uint) (*domain.StockRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE StockRecords
		SET onHand = onHand - ?, reserved = GREATEST(reserved - ?, 0)
		WHERE productId = ? AND onHand >= ?
	`
	result, err := tx.ExecContext(ctx, query, quantity, quantity, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("committing reserved stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		record, err := findByProductID(ctx, tx, productID)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.NewInsufficientStockError(productID, quantity, record.OnHand)
	}

	if err := insertTransaction(ctx, tx, domain.StockTransaction{
		ProductID: productID,
		Quantity:  -quantity,
		Kind:      domain.TransactionExport,
		OrderID:   &orderID,
	}); err != nil {
		return nil, err
	}

	record, err := findByProductID(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reservation commit: %w", err)
	}

	return record, nil
}

// RecordTransaction applies a signed on-hand change. The guard clause keeps
// available quantity non-negative, so an outbound movement can never dip
// below what is reserved. Returns tied to an order are recorded at most once
// per (order, product), so a retried cancellation cannot restore stock twice.
func (r *MySQLStockRepository) RecordTransaction(ctx context.Context, txn domain.StockTransaction) (*domain.StockRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if txn.Kind == domain.TransactionReturned && txn.OrderID != nil {
		var count int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM StockTransactions WHERE productId = ? AND orderId = ? AND kind = ?`,
			txn.ProductID, *txn.OrderID, string(domain.TransactionReturned),
		).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("checking for recorded return: %w", err)
		}
		if count > 0 {
			record, err := findByProductID(ctx, tx, txn.ProductID)
			if err != nil {
				return nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, fmt.Errorf("committing stock transaction: %w", err)
			}
			return record, nil
		}
	}

	query := `
		UPDATE StockRecords
		SET onHand = onHand + ?
		WHERE productId = ? AND isActive = 1 AND onHand + ? - reserved >= 0
	`
	result, err := tx.ExecContext(ctx, query, txn.Quantity, txn.ProductID, txn.Quantity)
	if err != nil {
		return nil, fmt.Errorf("updating on-hand quantity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		record, err := findByProductID(ctx, tx, txn.ProductID)
		if err != nil {
			return nil, err
		}
		if !record.IsActive {
			return nil, apperrors.NewNotFoundError(
				fmt.Sprintf("stock record for product %d is deactivated", txn.ProductID))
		}
		return nil, apperrors.NewInsufficientStockError(txn.ProductID, -txn.Quantity, record.Available())
	}

	if err := insertTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	record, err := findByProductID(ctx, tx, txn.ProductID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing stock transaction: %w", err)
	}

	return record, nil
}

// AdjustOnHand sets on-hand quantity via compare-and-swap on the version
// column. Reservations do not bump the version, so the guard also re-checks
// that the new on-hand quantity still covers what is reserved. ok is false
// when either check misses; the caller re-reads and decides whether to retry.
func (r *MySQLStockRepository) AdjustOnHand(ctx context.Context, productID, newOnHand, expectedVersion, delta int, note string, actorID *string) (*domain.StockRecord, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE StockRecords
		SET onHand = ?, version = version + 1
		WHERE productId = ? AND version = ? AND reserved <= ?
	`
	result, err := tx.ExecContext(ctx, query, newOnHand, productID, expectedVersion, newOnHand)
	if err != nil {
		return nil, false, fmt.Errorf("adjusting on-hand quantity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, false, nil
	}

	if err := insertTransaction(ctx, tx, domain.StockTransaction{
		ProductID: productID,
		Quantity:  delta,
		Kind:      domain.TransactionAdjustment,
		ActorID:   actorID,
		Note:      &note,
	}); err != nil {
		return nil, false, err
	}

	record, err := findByProductID(ctx, tx, productID)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("committing adjustment: %w", err)
	}

	return record, true, nil
}

func (r *MySQLStockRepository) ListLowStock(ctx context.Context, threshold *int) ([]domain.StockRecord, error) {
	query := `
		SELECT productId, onHand, reserved, minStockLevel, maxStockLevel, isActive, version, createdAt, updatedAt
		FROM StockRecords
		WHERE isActive = 1 AND onHand - reserved <= COALESCE(?, minStockLevel)
		ORDER BY onHand - reserved ASC
	`
	rows, err := r.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("querying low stock records: %w", err)
	}
	defer rows.Close()

	var records []domain.StockRecord
	for rows.Next() {
		var rec domain.StockRecord
		err := rows.Scan(
			&rec.ProductID, &rec.OnHand, &rec.Reserved,
			&rec.MinStockLevel, &rec.MaxStockLevel,
			&rec.IsActive, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning stock record row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stock record rows: %w", err)
	}

	return records, nil
}

func (r *MySQLStockRepository) Deactivate(ctx context.Context, productID int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE StockRecords SET isActive = 0 WHERE productId = ? AND isActive = 1`, productID)
	if err != nil {
		return fmt.Errorf("deactivating stock record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := findByProductID(ctx, r.db, productID); err != nil {
			return err
		}
		// Already deactivated.
	}

	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func findByProductID(ctx context.Context, q queryRower, productID int) (*domain.StockRecord, error) {
	query := `
		SELECT productId, onHand, reserved, minStockLevel, maxStockLevel, isActive, version, createdAt, updatedAt
		FROM StockRecords
		WHERE productId = ?
	`

	var rec domain.StockRecord
	err := q.QueryRowContext(ctx, query, productID).Scan(
		&rec.ProductID, &rec.OnHand, &rec.Reserved,
		&rec.MinStockLevel, &rec.MaxStockLevel,
		&rec.IsActive, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("stock record for product %d not found", productID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying stock record: %w", err)
	}

	return &rec, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, txn domain.StockTransaction) error {
	query := `
		INSERT INTO StockTransactions (productId, quantity, kind, orderId, actorId, note)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := tx.ExecContext(ctx, query,
		txn.ProductID, txn.Quantity, string(txn.Kind), txn.OrderID, txn.ActorID, txn.Note)
	if err != nil {
		return fmt.Errorf("appending stock transaction: %w", err)
	}
	return nil
}
