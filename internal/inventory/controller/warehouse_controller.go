package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"quartermaster/internal/auth"
	"quartermaster/internal/domain"
	"quartermaster/internal/dto"
	apperrors "quartermaster/internal/errors"
)

type InventoryLedger interface {
	CreateStockRecord(ctx context.Context, productID, initialQuantity, minLevel, maxLevel int) (*domain.StockRecord, error)
	GetStockRecord(ctx context.Context, productID int) (*domain.StockRecord, error)
	RecordTransaction(ctx context.Context, productID, quantity int, kind domain.TransactionKind, orderID *uint, actorID *string, note *string) (*domain.StockRecord, error)
	Reserve(ctx context.Context, productID, quantity int) (*domain.StockRecord, error)
	Release(ctx context.Context, productID, quantity int) (*domain.StockRecord, error)
	Adjust(ctx context.Context, productID, newOnHand int, note string, actorID *string) (*domain.StockRecord, error)
	ListLowStock(ctx context.Context, threshold *int) ([]domain.StockRecord, error)
	Deactivate(ctx context.Context, productID int) error
}

type WarehouseController struct {
	ledger InventoryLedger
	logger *zap.Logger
}

func NewWarehouseController(ledger InventoryLedger, logger *zap.Logger) *WarehouseController {
	return &WarehouseController{
		ledger: ledger,
		logger: logger,
	}
}

func (c *WarehouseController) CreateStockRecord(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.CreateStockRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	record, err := c.ledger.CreateStockRecord(r.Context(), req.ProductID, req.InitialQuantity, req.MinStockLevel, req.MaxStockLevel)
	if err != nil {
		c.handleLedgerError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, stockRecordResponse(record))
}

func (c *WarehouseController) GetStockRecord(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	productID, ok := c.parseProductID(w, r)
	if !ok {
		return
	}

	record, err := c.ledger.GetStockRecord(r.Context(), productID)
	if err != nil {
		c.handleLedgerError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, stockRecordResponse(record))
}

func (c *WarehouseController) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	productID, ok := c.parseProductID(w, r)
	if !ok {
		return
	}

	var req dto.RecordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	var actorID *string
	if id, found := auth.CallerID(r.Context()); found {
		actorID = &id
	}

	record, err := c.ledger.RecordTransaction(r.Context(), productID, req.Quantity,
		domain.TransactionKind(req.Kind), req.OrderID, actorID, req.Note)
	if err != nil {
		c.handleLedgerError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, stockRecordResponse(record))
}

func (c *WarehouseController) Adjust(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	productID, ok := c.parseProductID(w, r)
	if !ok {
		return
	}

	var req dto.AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	var actorID *string
	if id, found := auth.CallerID(r.Context()); found {
		actorID = &id
	}

	record, err := c.ledger.Adjust(r.Context(), productID, req.Quantity, req.Note, actorID)
	if err != nil {
		c.handleLedgerError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, stockRecordResponse(record))
}

func (c *WarehouseController) Reserve(w http.ResponseWriter, r *http.Request) {
	c.handleReservation(w, r, c.ledger.Reserve)
}

func (c *WarehouseController) Release(w http.ResponseWriter, r *http.Request) {
	c.handleReservation(w, r, c.ledger.Release)
}

func (c *WarehouseController) handleReservation(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, productID, quantity int) (*domain.StockRecord, error)) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	productID, ok := c.parseProductID(w, r)
	if !ok {
		return
	}

	var req dto.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	record, err := op(r.Context(), productID, req.Quantity)
	if err != nil {
		c.handleLedgerError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, stockRecordResponse(record))
}

func (c *WarehouseController) ListLowStock(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var threshold *int
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			c.writeValidationError(w, "invalid threshold", apperrors.ValidationDetail{
				Field:   "threshold",
				Message: "threshold must be an integer",
			})
			return
		}
		threshold = &value
	}

	records, err := c.ledger.ListLowStock(r.Context(), threshold)
	if err != nil {
		c.handleLedgerError(w, traceID, err, logger)
		return
	}

	response := dto.LowStockResponse{Records: make([]dto.StockRecordResponse, len(records))}
	for i := range records {
		response.Records[i] = stockRecordResponse(&records[i])
	}

	c.writeJSON(w, http.StatusOK, response)
}

func (c *WarehouseController) Deactivate(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	productID, ok := c.parseProductID(w, r)
	if !ok {
		return
	}

	if err := c.ledger.Deactivate(r.Context(), productID); err != nil {
		c.handleLedgerError(w, traceID, err, logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *WarehouseController) parseProductID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "productId")
	productID, err := strconv.Atoi(raw)
	if err != nil || productID <= 0 {
		c.writeValidationError(w, "invalid productId", apperrors.ValidationDetail{
			Field:   "productId",
			Message: "productId must be a positive integer",
		})
		return 0, false
	}
	return productID, true
}

func (c *WarehouseController) handleLedgerError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}

	if _, ok := apperrors.IsInsufficientStockError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusBadRequest, "INSUFFICIENT_STOCK", err.Error())
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusConflict, "CONFLICT", err.Error())
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

func stockRecordResponse(record *domain.StockRecord) dto.StockRecordResponse {
	transactions := make([]dto.StockTransactionResponse, len(record.Transactions))
	for i, txn := range record.Transactions {
		transactions[i] = dto.StockTransactionResponse{
			ID:        txn.ID,
			ProductID: txn.ProductID,
			Quantity:  txn.Quantity,
			Kind:      string(txn.Kind),
			OrderID:   txn.OrderID,
			ActorID:   txn.ActorID,
			Note:      txn.Note,
			CreatedAt: txn.CreatedAt,
		}
	}

	return dto.StockRecordResponse{
		ProductID:     record.ProductID,
		OnHand:        record.OnHand,
		Reserved:      record.Reserved,
		Available:     record.Available(),
		MinStockLevel: record.MinStockLevel,
		MaxStockLevel: record.MaxStockLevel,
		IsActive:      record.IsActive,
		Transactions:  transactions,
		UpdatedAt:     record.UpdatedAt,
	}
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *WarehouseController) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *WarehouseController) writeErrorResponse(w http.ResponseWriter, traceID string, statusCode int, code, message string) {
	c.writeJSON(w, statusCode, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    statusCode,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (c *WarehouseController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
