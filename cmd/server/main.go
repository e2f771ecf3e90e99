package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"quartermaster/internal/commons"
	"quartermaster/internal/infrastructure/logger"
	"quartermaster/internal/infrastructure/mysql"
	"quartermaster/internal/infrastructure/rabbitmq"
	"quartermaster/internal/inventory"
	"quartermaster/internal/order"
	"quartermaster/internal/order/usecase"
	"quartermaster/internal/server"
)

func main() {
	cfg, err := commons.LoadConfig("internal/config/config.yaml")
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	var publisher usecase.EventPublisher = usecase.NopEventPublisher{}
	if cfg.Events.Enabled {
		conn, ch, err := rabbitmq.SetupConn(cfg.Events.URL, cfg.Events.Exchange)
		if err != nil {
			zapLogger.Fatal("connecting to RabbitMQ", zap.Error(err))
		}
		defer conn.Close()
		publisher = rabbitmq.NewPublisher(ch, cfg.Events.Exchange)
		zapLogger.Info("event publisher connected", zap.String("exchange", cfg.Events.Exchange))
	}

	warehouseCtrl, ledgerSvc := inventory.NewModule(db, cfg, zapLogger)
	orderCtrl := order.NewModule(db, ledgerSvc, publisher, zapLogger)

	router := server.NewRouter(orderCtrl, warehouseCtrl, zapLogger)

	srv := server.New(cfg.Server.Port, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
