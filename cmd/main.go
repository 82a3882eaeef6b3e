package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pinmarket/payment-service/internal/events"
	"github.com/pinmarket/payment-service/internal/handler"
	"github.com/pinmarket/payment-service/internal/repository"
	"github.com/pinmarket/payment-service/internal/risk"
	"github.com/pinmarket/payment-service/internal/service"
	"github.com/pinmarket/payment-service/internal/stock"
	"github.com/pinmarket/payment-service/pkg/config"
	"github.com/pinmarket/payment-service/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Info("Service configuration",
		zap.String("port", cfg.Port),
		zap.String("table", cfg.TableName),
		zap.String("kafka_brokers", cfg.KafkaBrokers),
		zap.Int("risk_threshold", cfg.RiskThreshold),
		zap.Bool("signature_check", cfg.ShopierSecret != ""))

	dynamoClient, err := repository.NewDynamoDBClient(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to create DynamoDB client:", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.PaymentTopic, logger)
	defer producer.Close()

	orderRepo := repository.NewOrderRepository(dynamoClient, cfg.TableName)
	paymentRepo := repository.NewPaymentRepository(dynamoClient, cfg.TableName)
	stockRepo := repository.NewStockRepository(dynamoClient, cfg.TableName)
	userRepo := repository.NewUserRepository(dynamoClient, cfg.TableName)

	allocator := stock.NewAllocator(stockRepo, logger)
	scorer := risk.NewScorer(cfg.RiskThreshold)

	callbackService := service.NewCallbackService(orderRepo, paymentRepo, userRepo, allocator, producer, scorer, cfg, logger)
	orderService := service.NewOrderService(orderRepo, paymentRepo, logger)

	callbackHandler := handler.NewCallbackHandler(callbackService, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)

	// Setup Gin Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.RequestID())

	// Routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", orderHandler.CreateOrder)
		v1.GET("/orders/:id", orderHandler.GetOrder)
		v1.GET("/orders/:id/payments", orderHandler.ListPayments)

		// Shopier posts the callback, but retries have been seen as GET
		v1.POST("/payments/callback", callbackHandler.HandleShopierCallback)
		v1.GET("/payments/callback", callbackHandler.HandleShopierCallback)

		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "healthy",
				"service": "payment-service",
				"port":    cfg.Port,
			})
		})
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
