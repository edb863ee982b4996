package bus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher publishes through a single shared writer. RequireAll acks
// keep the commit-then-publish ordering honest: Publish only returns nil
// once the broker has replicated the message.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: msg.Topic,
		Key:   msg.Key,
		Value: msg.Value,
	})
	if err != nil {
		return fmt.Errorf("%w: topic %s: %v", ErrPublishFailed, msg.Topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaSubscriber runs one reader per subscription inside a consumer group.
// Offsets are committed after the handler returns, so a crash mid-handle
// redelivers; handlers are required to be idempotent for exactly that reason.
type KafkaSubscriber struct {
	brokers []string
}

func NewKafkaSubscriber(brokers []string) *KafkaSubscriber {
	return &KafkaSubscriber{brokers: brokers}
}

func (s *KafkaSubscriber) Subscribe(ctx context.Context, topic, group string, h Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  s.brokers,
		GroupID:  group,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	go func() {
		defer reader.Close()
		log.Printf("📡 Consuming topic %s as group %s", topic, group)

		for {
			m, err := reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				log.Printf("❌ Fetch from %s failed: %v", topic, err)
				time.Sleep(time.Second)
				continue
			}

			if err := h(ctx, Message{Topic: m.Topic, Key: m.Key, Value: m.Value}); err != nil {
				// Handlers own retry and dead-lettering; an error escaping
				// here means the message was disposed of anyway. Committing
				// keeps the partition moving instead of wedging the group.
				log.Printf("❌ Handler for %s gave up on message: %v", topic, err)
			}
			if err := reader.CommitMessages(ctx, m); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("❌ Commit on %s failed: %v", topic, err)
			}
		}
	}()

	return nil
}
