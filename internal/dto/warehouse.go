package dto

import "time"

type CreateStockRecordRequest struct {
	ProductID       int `json:"productId"`
	InitialQuantity int `json:"initialQuantity"`
	MinStockLevel   int `json:"minStockLevel"`
	MaxStockLevel   int `json:"maxStockLevel"`
}

type RecordTransactionRequest struct {
	Quantity int     `json:"quantity"`
	Kind     string  `json:"type"`
	OrderID  *uint   `json:"orderId,omitempty"`
	Note     *string `json:"note,omitempty"`
}

type AdjustStockRequest struct {
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

type ReservationRequest struct {
	Quantity int `json:"quantity"`
}

type StockTransactionResponse struct {
	ID        uint      `json:"id"`
	ProductID int       `json:"productId"`
	Quantity  int       `json:"quantity"`
	Kind      string    `json:"type"`
	OrderID   *uint     `json:"orderId,omitempty"`
	ActorID   *string   `json:"actorId,omitempty"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type StockRecordResponse struct {
	ProductID     int                        `json:"productId"`
	OnHand        int                        `json:"onHandQuantity"`
	Reserved      int                        `json:"reservedQuantity"`
	Available     int                        `json:"availableQuantity"`
	MinStockLevel int                        `json:"minStockLevel"`
	MaxStockLevel int                        `json:"maxStockLevel"`
	IsActive      bool                       `json:"isActive"`
	Transactions  []StockTransactionResponse `json:"transactions,omitempty"`
	UpdatedAt     time.Time                  `json:"updatedAt"`
}

type LowStockResponse struct {
	Records []StockRecordResponse `json:"records"`
}
