package repository

import (
	"context"
	"database/sql"
	"fmt"

	"quartermaster/internal/domain"
	apperrors "quartermaster/internal/errors"
)

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

// CreateWithLines persists the order and its lines in one transaction, so a
// partially written order can never be observed.
func (r *MySQLOrderRepository) CreateWithLines(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO Orders (customerId, status, totalPrice, totalDiscount, shippingAddress, phone, paymentMethod, isPaid, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, query,
		order.CustomerID, order.Status, order.TotalPrice, order.TotalDiscount,
		order.ShippingAddress, order.Phone, order.PaymentMethod, order.IsPaid, order.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting order: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting last insert id: %w", err)
	}
	order.ID = uint(lastInsertID)

	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
		lineID, err := insertOrderLine(ctx, tx, order.Lines[i])
		if err != nil {
			return nil, err
		}
		order.Lines[i].ID = lineID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order creation: %w", err)
	}

	return order, nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	query := `
		SELECT id, customerId, status, totalPrice, totalDiscount, shippingAddress,
		       phone, paymentMethod, isPaid, shipperId, notes, createdAt, updatedAt
		FROM Orders
		WHERE id = ?
	`

	var order domain.Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.CustomerID, &order.Status, &order.TotalPrice, &order.TotalDiscount,
		&order.ShippingAddress, &order.Phone, &order.PaymentMethod, &order.IsPaid,
		&order.ShipperID, &order.Notes, &order.CreatedAt, &order.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	lines, err := listOrderLines(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return &order, nil
}

// UpdateStatus moves the order from the status the caller observed to the
// new one in a single conditional write. A concurrent writer that changed the
// status first makes the guard miss, which surfaces as Conflict, so racing
// transitions cannot both win.
func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, id uint, from, to string) error {
	query := `UPDATE Orders SET status = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == to {
			// Status already had the requested value.
			return nil
		}
		return apperrors.NewConflictError(fmt.Sprintf(
			"order %d moved to %s concurrently", id, current.Status))
	}

	return nil
}

// AssignShipper sets the shipper and forces the shipped status in a single
// conditional update, guarded on the status the caller observed.
func (r *MySQLOrderRepository) AssignShipper(ctx context.Context, id uint, shipperID, from string) error {
	query := `UPDATE Orders SET shipperId = ?, status = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query, shipperID, domain.OrderStatusShipped, id, from)
	if err != nil {
		return fmt.Errorf("assigning shipper: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == domain.OrderStatusShipped &&
			current.ShipperID != nil && *current.ShipperID == shipperID {
			// Shipper already had the requested value.
			return nil
		}
		return apperrors.NewConflictError(fmt.Sprintf(
			"order %d moved to %s concurrently", id, current.Status))
	}

	return nil
}
