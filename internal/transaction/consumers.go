package transaction

import (
	"context"
	"fmt"

	"github.com/payment-platform/services/pkg/bus"
	"github.com/payment-platform/services/pkg/events"
)

// OutcomeHandlerInterface defines the interface the consumer depends on.
type OutcomeHandlerInterface interface {
	HandleOutcome(ctx context.Context, ev *events.TxnOutcome) error
}

// TxnConsumer feeds TxnOutcome events into the status transition.
type TxnConsumer struct {
	useCase OutcomeHandlerInterface
}

func NewTxnConsumer(useCase OutcomeHandlerInterface) *TxnConsumer {
	return &TxnConsumer{useCase: useCase}
}

// HandleTxnOutcome consumes TXN_OUTCOME.
func (tc *TxnConsumer) HandleTxnOutcome(ctx context.Context, msg bus.Message) error {
	ev, _, err := events.Unmarshal(msg.Value)
	if err != nil {
		return fmt.Errorf("poison message on %s: %w", msg.Topic, err)
	}
	outcome, ok := ev.(*events.TxnOutcome)
	if !ok {
		return fmt.Errorf("unexpected event %s on %s", ev.EventType(), msg.Topic)
	}
	return tc.useCase.HandleOutcome(ctx, outcome)
}

// Register subscribes the outcome handler in the transaction consumer group.
func (tc *TxnConsumer) Register(ctx context.Context, sub bus.Subscriber, dlq bus.Publisher, group string) error {
	if err := sub.Subscribe(ctx, events.TopicTxnOutcome, group, bus.WithDeadLetter(tc.HandleTxnOutcome, dlq)); err != nil {
		return fmt.Errorf("subscribing to %s: %w", events.TopicTxnOutcome, err)
	}
	return nil
}
