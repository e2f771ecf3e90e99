package dto

import "time"

type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order.created"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
	OrderEventCancelled     OrderEventType = "order.cancelled"
)

// OrderEvent is the lifecycle notification published after a successful
// order mutation.
type OrderEvent struct {
	Type       OrderEventType `json:"type"`
	OrderID    uint           `json:"orderId"`
	CustomerID string         `json:"customerId"`
	Status     string         `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
}
