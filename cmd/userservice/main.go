package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

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
		config.String("SERVICE_NAME", "user-service"),
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
		config.String("DATABASE_NAME", "users_db"),
	))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbPool.Close()

	kafkaPub := bus.NewKafkaPublisher(config.Strings("KAFKA_BROKERS", "localhost:9092"))
	defer kafkaPub.Close()

	outboxStore := outbox.NewStore(dbPool)
	publisher := outbox.NewFallbackPublisher(kafkaPub, outboxStore)
	go outbox.NewRepublisher(outboxStore, kafkaPub, config.Duration("OUTBOX_INTERVAL", 30*time.Second)).Run(ctx)

	repository := user.NewUserRepository(dbPool)
	useCase := user.NewUserUseCase(repository, publisher, config.String("USER_AUTHORITY", user.RoleUser))
	handler := user.NewUserHandler(useCase, otel.Tracer("user-service"))

	r := gin.Default()
	r.GET("/health", handler.HealthCheck)
	r.POST("/user/addUser", handler.AddUser)
	r.GET("/user/userDetails", handler.RequireAuthority(user.RoleService, user.RoleAdmin), handler.UserDetails)

	port := config.String("PORT", "8081")
	log.Printf("🚀 User Service listening on port %s", port)

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
