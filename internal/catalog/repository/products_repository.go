package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"quartermaster/internal/domain"
)

// MySQLProductsRepository reads the catalog collaborator's Products table.
// This service never writes to it; the catalog owns product data.
type MySQLProductsRepository struct {
	db *sql.DB
}

func NewMySQLProductsRepository(db *sql.DB) *MySQLProductsRepository {
	return &MySQLProductsRepository{db: db}
}

func (r *MySQLProductsRepository) Snapshots(ctx context.Context, ids []int) (map[int]domain.ProductSnapshot, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT id, name, price, discount, isActive
		FROM Products
		WHERE id IN (%s)
		  AND isDeleted = 0`,
		strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	snapshots := make(map[int]domain.ProductSnapshot, len(ids))
	for rows.Next() {
		var p domain.ProductSnapshot
		err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Discount, &p.IsActive)
		if err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		snapshots[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return snapshots, nil
}
