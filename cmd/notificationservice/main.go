package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/payment-platform/services/internal/notification"
	"github.com/payment-platform/services/pkg/bus"
	"github.com/payment-platform/services/pkg/config"
	"github.com/payment-platform/services/pkg/observability"
)

func main() {
	config.LoadDotenv()
	ctx := context.Background()

	shutdown, err := observability.Init(ctx,
		config.String("SERVICE_NAME", "notification-service"),
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

	mailer := notification.NewSMTPMailer(
		config.String("SMTP_ADDR", "localhost:587"),
		config.String("MAIL_FROM", "no-reply@payment-platform.local"),
		config.String("SMTP_USERNAME", ""),
		config.String("SMTP_PASSWORD", ""),
	)

	var webhook *notification.WebhookNotifier
	if url := config.String("OPS_WEBHOOK_URL", ""); url != "" {
		webhook = notification.NewWebhookNotifier(url)
	}

	brokers := config.Strings("KAFKA_BROKERS", "localhost:9092")
	kafkaPub := bus.NewKafkaPublisher(brokers)
	defer kafkaPub.Close()
	subscriber := bus.NewKafkaSubscriber(brokers)

	consumer := notification.NewNotificationConsumer(mailer, webhook)
	if err := consumer.Register(ctx, subscriber, kafkaPub, config.String("CONSUMER_GROUP", "notification-group")); err != nil {
		log.Fatalf("Failed to register consumers: %v", err)
	}

	r := gin.Default()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "notification-service"})
	})

	port := config.String("PORT", "8084")
	log.Printf("🚀 Notification Service listening on port %s", port)

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
