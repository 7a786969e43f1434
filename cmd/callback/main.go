package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kyungseok/payment-callback-go-practical/common/logger"
	"github.com/kyungseok/payment-callback-go-practical/common/messaging"
	"github.com/kyungseok/payment-callback-go-practical/internal/cache"
	"github.com/kyungseok/payment-callback-go-practical/internal/config"
	"github.com/kyungseok/payment-callback-go-practical/internal/handler"
	"github.com/kyungseok/payment-callback-go-practical/internal/provider"
	"github.com/kyungseok/payment-callback-go-practical/internal/repository"
	"github.com/kyungseok/payment-callback-go-practical/internal/service"
	"github.com/kyungseok/payment-callback-go-practical/internal/worker"
)

func main() {
	// Config 로드 (허용 목록 검증 포함, 실패 시 기동 중단)
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// Logger 초기화
	log, err := logger.NewLogger("payment-callback-service", cfg.Development)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	// PostgreSQL 연결
	db, err := sql.Open("postgres", cfg.DBDSN)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal("failed to ping database", zap.Error(err))
	}
	log.Info("connected to database")

	// Redis 연결
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	log.Info("connected to redis")

	// Kafka Producer 초기화
	publisher, err := messaging.NewKafkaPublisher(cfg.KafkaBrokers, log)
	if err != nil {
		log.Fatal("failed to create kafka publisher", zap.Error(err))
	}
	defer publisher.Close()
	log.Info("kafka publisher initialized")

	// Repository 초기화
	orderRepo := repository.NewOrderRepository(db)
	refundRepo := repository.NewRefundRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	// Provider Client 초기화
	providerClient := provider.NewHTTPClient(
		cfg.Provider.BaseURL,
		cfg.Provider.ChannelID,
		cfg.Provider.ChannelSecret,
		cfg.Provider.Timeout,
		log,
	)

	// Cache 초기화
	orderCache := cache.NewRedisOrderSummaryCache(redisClient, cfg.OrderCacheTTL)

	// Service 초기화 (의존성은 전부 기동 시점에 주입)
	refundService := service.NewRefundService(orderRepo, refundRepo, outboxRepo, providerClient, orderCache, log)
	callbackService := service.NewCallbackService(orderRepo, outboxRepo, providerClient, refundService,
		cfg.CustomerRefundStatuses, log)

	// Outbox Worker 시작
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outboxWorker := worker.NewOutboxWorker(outboxRepo, publisher, log, 1*time.Second)
	go outboxWorker.Start(ctx)
	log.Info("outbox worker started")

	// HTTP Server 시작
	httpHandler := handler.NewHTTPHandler(callbackService, orderRepo, orderCache, cfg.CustomerRefundStatuses, log)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/callback", httpHandler.HandleCallback)
	mux.HandleFunc("/orders/summary", httpHandler.GetOrderSummary)
	mux.HandleFunc("/internal/refund", httpHandler.HandleMerchantRefund)

	server := &http.Server{
		Addr:    ":" + cfg.ServicePort,
		Handler: mux,
	}

	go func() {
		log.Info("http server starting", zap.String("port", cfg.ServicePort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	cancel() // outbox worker 종료
	log.Info("server stopped")
}
