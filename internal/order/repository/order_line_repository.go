package repository

import (
	"context"
	"database/sql"
	"fmt"

	"quartermaster/internal/domain"
)

func insertOrderLine(ctx context.Context, tx *sql.Tx, line domain.OrderLine) (uint, error) {
	query := `
		INSERT INTO OrderLines (orderId, productId, productName, quantity, unitPrice, unitDiscount)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		line.OrderID, line.ProductID, line.ProductName, line.Quantity, line.UnitPrice, line.UnitDiscount)
	if err != nil {
		return 0, fmt.Errorf("inserting order line: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

func listOrderLines(ctx context.Context, db *sql.DB, orderID uint) ([]domain.OrderLine, error) {
	query := `
		SELECT id, orderId, productId, productName, quantity, unitPrice, unitDiscount
		FROM OrderLines
		WHERE orderId = ?
		ORDER BY id ASC
	`

	rows, err := db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		err := rows.Scan(
			&line.ID, &line.OrderID, &line.ProductID, &line.ProductName,
			&line.Quantity, &line.UnitPrice, &line.UnitDiscount,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning order line row: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order line rows: %w", err)
	}

	return lines, nil
}
