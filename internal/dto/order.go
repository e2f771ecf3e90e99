package dto

import "time"

type CreateOrderRequest struct {
	Lines           []OrderLineRequest `json:"items"`
	ShippingAddress string             `json:"shippingAddress"`
	Phone           string             `json:"phone"`
	PaymentMethod   *string            `json:"paymentMethod,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
}

type OrderLineRequest struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type AssignShipperRequest struct {
	ShipperID string `json:"shipperId"`
}

type OrderLineResponse struct {
	ProductID    int     `json:"productId"`
	ProductName  string  `json:"productName"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unitPrice"`
	UnitDiscount float64 `json:"unitDiscount"`
}

type OrderResponse struct {
	TraceID         string              `json:"traceId"`
	OrderID         uint                `json:"orderId"`
	CustomerID      string              `json:"customerId"`
	Status          string              `json:"status"`
	Lines           []OrderLineResponse `json:"items"`
	TotalPrice      float64             `json:"totalPrice"`
	TotalDiscount   float64             `json:"totalDiscount"`
	ShippingAddress string              `json:"shippingAddress"`
	Phone           string              `json:"phone"`
	PaymentMethod   *string             `json:"paymentMethod,omitempty"`
	IsPaid          bool                `json:"isPaid"`
	ShipperID       *string             `json:"shipperId,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	Timestamp       time.Time           `json:"timestamp"`
}

type ErrorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
