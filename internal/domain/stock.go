package domain

import "time"

// TransactionKind classifies one stock-changing event in the ledger.
type TransactionKind string

const (
	TransactionImport     TransactionKind = "IMPORT"
	TransactionExport     TransactionKind = "EXPORT"
	TransactionAdjustment TransactionKind = "ADJUSTMENT"
	TransactionDamaged    TransactionKind = "DAMAGED"
	TransactionReturned   TransactionKind = "RETURNED"
	TransactionReserve    TransactionKind = "RESERVE"
	TransactionRelease    TransactionKind = "RELEASE"
)

// Inbound reports whether the kind adds stock. Adjustment is excluded: its
// sign depends on the computed delta.
func (k TransactionKind) Inbound() bool {
	return k == TransactionImport || k == TransactionReturned
}

// Outbound reports whether the kind removes stock.
func (k TransactionKind) Outbound() bool {
	return k == TransactionExport || k == TransactionDamaged
}

func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionImport, TransactionExport, TransactionAdjustment,
		TransactionDamaged, TransactionReturned, TransactionReserve, TransactionRelease:
		return true
	}
	return false
}

// StockTransaction is one immutable ledger entry. Quantity is signed:
// positive for inbound movement, negative for outbound. For RESERVE and
// RELEASE entries the sign tracks the change in sellable availability, since
// neither moves on-hand stock.
type StockTransaction struct {
	ID        uint
	ProductID int
	Quantity  int
	Kind      TransactionKind
	OrderID   *uint
	ActorID   *string
	Note      *string
	CreatedAt time.Time
}

// StockRecord is the per-product bookkeeping row. Version backs the
// optimistic lock used by adjustments.
type StockRecord struct {
	ProductID     int
	OnHand        int
	Reserved      int
	MinStockLevel int
	MaxStockLevel int
	IsActive      bool
	Version       int
	Transactions  []StockTransaction
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Available returns the sellable quantity, floored at zero.
func (s StockRecord) Available() int {
	available := s.OnHand - s.Reserved
	if available < 0 {
		return 0
	}
	return available
}

// CanReserve reports whether quantity units can be reserved right now.
func (s StockRecord) CanReserve(quantity int) bool {
	return s.IsActive && s.Available() >= quantity
}

// IsLowStock reports whether available quantity has fallen to the record's
// own minimum level.
func (s StockRecord) IsLowStock() bool {
	return s.Available() <= s.MinStockLevel
}
