package domain

import "time"

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// ValidOrderStatus reports whether status is one of the five recognized
// values.
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// TerminalOrderStatus reports whether status admits no further transitions.
func TerminalOrderStatus(status string) bool {
	return status == OrderStatusDelivered || status == OrderStatusCancelled
}

// CanTransition encodes the order state machine: the happy path moves one
// step forward at a time, SHIPPED is additionally reachable from PENDING via
// shipper assignment, and CANCELLED is reachable from any non-terminal state.
func CanTransition(from, to string) bool {
	if TerminalOrderStatus(from) {
		return false
	}
	switch to {
	case OrderStatusCancelled:
		return true
	case OrderStatusConfirmed:
		return from == OrderStatusPending
	case OrderStatusShipped:
		return from == OrderStatusPending || from == OrderStatusConfirmed
	case OrderStatusDelivered:
		return from == OrderStatusShipped
	}
	return false
}

type Order struct {
	ID              uint
	CustomerID      string
	Lines           []OrderLine
	TotalPrice      float64
	TotalDiscount   float64
	ShippingAddress string
	Phone           string
	Status          string
	PaymentMethod   *string
	IsPaid          bool
	ShipperID       *string
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderLine snapshots the catalog state at order time. Name, price and
// discount are frozen; they are never recomputed from the current catalog.
type OrderLine struct {
	ID           uint
	OrderID      uint
	ProductID    int
	ProductName  string
	Quantity     int
	UnitPrice    float64
	UnitDiscount float64
}

// LineTotal returns quantity times the effective unit price.
func (l OrderLine) LineTotal() float64 {
	return float64(l.Quantity) * (l.UnitPrice - l.UnitDiscount)
}
