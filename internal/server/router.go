package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"quartermaster/internal/auth"
	inventoryctrl "quartermaster/internal/inventory/controller"
	orderctrl "quartermaster/internal/order/controller"
)

func NewRouter(orderCtrl *orderctrl.OrderController, warehouseCtrl *inventoryctrl.WarehouseController, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(auth.Middleware)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", orderCtrl.CreateOrder)
		r.Get("/{orderId}", orderCtrl.GetOrder)
		r.Put("/{orderId}/status", orderCtrl.UpdateStatus)
		r.Put("/{orderId}/assign-shipper", orderCtrl.AssignShipper)
		r.Post("/{orderId}/cancel", orderCtrl.CancelOrder)
	})

	r.Route("/warehouse", func(r chi.Router) {
		r.Post("/", warehouseCtrl.CreateStockRecord)
		r.Get("/low-stock", warehouseCtrl.ListLowStock)
		r.Post("/reserve/{productId}", warehouseCtrl.Reserve)
		r.Post("/release/{productId}", warehouseCtrl.Release)
		r.Get("/{productId}", warehouseCtrl.GetStockRecord)
		r.Delete("/{productId}", warehouseCtrl.Deactivate)
		r.Post("/{productId}/transaction", warehouseCtrl.RecordTransaction)
		r.Put("/{productId}/adjust", warehouseCtrl.Adjust)
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request handled",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
