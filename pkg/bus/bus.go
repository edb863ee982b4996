// Package bus defines the pub/sub contracts the services use to talk to the
// event transport. The broker itself (durable topics, consumer groups,
// at-least-once delivery) is an external collaborator; this package only
// carries messages to and from it.
package bus

import (
	"context"
	"errors"
	"log"
)

// Message is one opaque payload on a topic. Key selects the partition so
// conflicting updates for the same entity stay ordered.
type Message struct {
	Topic string
	Key   []byte
	Value []byte
}

// Publisher pushes a single message to its topic. Implementations must only
// return nil once the broker has accepted the message durably.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Handler processes one delivered message. Delivery is at-least-once: the
// same message may arrive again, and handlers must absorb redelivery as a
// no-op. Returning an error marks the message as undeliverable for this
// handler; transient conditions must be retried inside the handler before
// giving up.
type Handler func(ctx context.Context, msg Message) error

// Subscriber attaches a handler to a topic within a consumer group and
// starts consuming in the background until ctx is cancelled. Messages on one
// partition are handed to the handler in publish order.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, group string, h Handler) error
}

// ErrPublishFailed wraps transport-level publish errors so callers can tell
// a dual-write gap apart from local persistence failures.
var ErrPublishFailed = errors.New("bus: publish failed")

// DeadLetterTopic names the parking topic for messages a handler could not
// process. Dead-lettered messages are kept for manual reconciliation, not
// retried.
func DeadLetterTopic(topic string) string {
	return topic + ".DLQ"
}

// WithDeadLetter wraps a handler so that a terminal failure routes the
// original message to the topic's dead-letter topic instead of poisoning the
// consume loop. The wrapped handler never returns an error; losing a message
// silently is the one outcome this layer must not allow, so a failed
// dead-letter publish is logged as loud as it gets.
func WithDeadLetter(h Handler, pub Publisher) Handler {
	return func(ctx context.Context, msg Message) error {
		err := h(ctx, msg)
		if err == nil {
			return nil
		}

		log.Printf("💀 Dead-lettering message from %s: %v", msg.Topic, err)
		dlq := Message{Topic: DeadLetterTopic(msg.Topic), Key: msg.Key, Value: msg.Value}
		if perr := pub.Publish(ctx, dlq); perr != nil {
			log.Printf("🔥 CRITICAL: dead-letter publish failed, message from %s is stranded: %v", msg.Topic, perr)
		}
		return nil
	}
}
