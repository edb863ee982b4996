package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/payment-platform/services/internal/wallet"
	"github.com/payment-platform/services/pkg/bus"
	"github.com/payment-platform/services/pkg/config"
	"github.com/payment-platform/services/pkg/observability"
	"github.com/payment-platform/services/pkg/outbox"
	"github.com/payment-platform/services/pkg/postgres"
)

func main() {
	config.LoadDotenv()
	ctx := context.Background()

	shutdown, err := observability.Init(ctx,
		config.String("SERVICE_NAME", "wallet-service"),
		config.String("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
	)
	if err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down observability: %v", err)
		}
	}()

	dbPool, err := postgres.Connect(ctx, postgres.DSN(
		config.String("DATABASE_USER", "root"),
		config.String("DATABASE_PASSWORD", "pass"),
		config.String("DATABASE_HOST", "localhost"),
		config.String("DATABASE_PORT", "5432"),
		config.String("DATABASE_NAME", "wallets_db"),
	))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbPool.Close()

	brokers := config.Strings("KAFKA_BROKERS", "localhost:9092")
	kafkaPub := bus.NewKafkaPublisher(brokers)
	defer kafkaPub.Close()

	outboxStore := outbox.NewStore(dbPool)
	publisher := outbox.NewFallbackPublisher(kafkaPub, outboxStore)
	go outbox.NewRepublisher(outboxStore, kafkaPub, config.Duration("OUTBOX_INTERVAL", 30*time.Second)).Run(ctx)

	repository := wallet.NewWalletRepository(dbPool)
	useCase := wallet.NewWalletUseCase(
		repository,
		publisher,
		config.Decimal("OPENING_BALANCE", decimal.NewFromFloat(100.0)),
		config.Duration("SETTLE_RETRY_MAX_ELAPSED", 2*time.Minute),
	)

	consumer := wallet.NewWalletConsumer(useCase)
	subscriber := bus.NewKafkaSubscriber(brokers)
	if err := consumer.Register(ctx, subscriber, kafkaPub, config.String("CONSUMER_GROUP", "wallet-group")); err != nil {
		log.Fatalf("Failed to register consumers: %v", err)
	}

	r := gin.Default()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "wallet-service"})
	})
	r.GET("/wallet/:contact", func(c *gin.Context) {
		w, err := repository.GetByContact(c.Request.Context(), c.Param("contact"))
		if err != nil {
			if errors.Is(err, wallet.ErrWalletNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, w)
	})

	port := config.String("PORT", "8082")
	log.Printf("🚀 Wallet Service listening on port %s", port)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
