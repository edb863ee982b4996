package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/payment-platform/services/pkg/bus"
	"github.com/payment-platform/services/pkg/events"
)

// NotificationConsumer sends the welcome mail for each registration. It has
// no store and no downstream event: a failed send is logged and dropped
// rather than retried forever against the same message.
type NotificationConsumer struct {
	mailer  Mailer
	webhook *WebhookNotifier
}

func NewNotificationConsumer(mailer Mailer, webhook *WebhookNotifier) *NotificationConsumer {
	return &NotificationConsumer{mailer: mailer, webhook: webhook}
}

// HandleUserCreated consumes USER_CREATED and dispatches the welcome mail.
func (nc *NotificationConsumer) HandleUserCreated(ctx context.Context, msg bus.Message) error {
	ev, _, err := events.Unmarshal(msg.Value)
	if err != nil {
		return fmt.Errorf("poison message on %s: %w", msg.Topic, err)
	}
	created, ok := ev.(*events.UserCreated)
	if !ok {
		return fmt.Errorf("unexpected event %s on %s", ev.EventType(), msg.Topic)
	}

	subject := fmt.Sprintf("User created | %s", created.Name)
	body := fmt.Sprintf("Welcome %s to the platform!", created.Name)

	if err := nc.mailer.Send(created.Email, subject, body); err != nil {
		// Best effort only. The registration already succeeded; blocking the
		// group or retrying the same message buys nothing here.
		log.Printf("❌ Welcome mail to %s failed: %v", created.Email, err)
	} else {
		log.Printf("📧 Welcome mail sent to %s", created.Email)
	}

	if nc.webhook != nil {
		if err := nc.webhook.Notify(map[string]any{
			"event":  "user.created",
			"userId": created.UserID,
			"email":  created.Email,
		}); err != nil {
			log.Printf("❌ Ops webhook for user %d failed: %v", created.UserID, err)
		}
	}

	return nil
}

// Register subscribes the welcome-mail handler in the notification group.
func (nc *NotificationConsumer) Register(ctx context.Context, sub bus.Subscriber, dlq bus.Publisher, group string) error {
	if err := sub.Subscribe(ctx, events.TopicUserCreated, group, bus.WithDeadLetter(nc.HandleUserCreated, dlq)); err != nil {
		return fmt.Errorf("subscribing to %s: %w", events.TopicUserCreated, err)
	}
	return nil
}
