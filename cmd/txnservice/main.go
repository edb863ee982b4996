package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/payment-platform/services/internal/transaction"
	"github.com/payment-platform/services/internal/user"
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
		config.String("SERVICE_NAME", "txn-service"),
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
		config.String("DATABASE_NAME", "txns_db"),
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

	repository := transaction.NewTxnRepository(dbPool)
	useCase := transaction.NewTxnUseCase(repository, publisher)
	handler := transaction.NewTxnHandler(useCase, otel.Tracer("txn-service"))

	consumer := transaction.NewTxnConsumer(useCase)
	subscriber := bus.NewKafkaSubscriber(brokers)
	if err := consumer.Register(ctx, subscriber, kafkaPub, config.String("CONSUMER_GROUP", "txn-group")); err != nil {
		log.Fatalf("Failed to register consumers: %v", err)
	}

	// Authority resolution goes through the user service synchronously,
	// with a hard timeout; the middleware denies on any failure.
	userDetails := transaction.NewRestUserDetailsClient(
		config.String("USER_SERVICE_URL", "http://localhost:8081"),
		config.String("SERVICE_AUTH_USER", "txn-service"),
		config.String("SERVICE_AUTH_PASSWORD", "txn-service"),
		config.Duration("USER_LOOKUP_TIMEOUT", 3*time.Second),
	)

	r := gin.Default()
	r.GET("/health", handler.HealthCheck)
	r.POST("/txn/initTxn", transaction.RequireAuthority(userDetails, user.RoleUser), handler.InitTxn)
	r.GET("/txn/:txnId", handler.GetTxn)

	port := config.String("PORT", "8083")
	log.Printf("🚀 Txn Service listening on port %s", port)

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
