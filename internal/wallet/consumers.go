package wallet

import (
	"context"
	"fmt"

	"github.com/payment-platform/services/pkg/bus"
	"github.com/payment-platform/services/pkg/events"
)

// WalletUseCaseInterface defines the interface the consumers depend on.
type WalletUseCaseInterface interface {
	CreateWalletFromUser(ctx context.Context, ev *events.UserCreated) error
	SettleTransaction(ctx context.Context, ev *events.TxnInitiated) error
}

// WalletConsumer maps bus messages onto wallet effects. Decode failures are
// poison: they go straight to the dead-letter topic, never into retry.
type WalletConsumer struct {
	useCase WalletUseCaseInterface
}

func NewWalletConsumer(useCase WalletUseCaseInterface) *WalletConsumer {
	return &WalletConsumer{useCase: useCase}
}

// HandleUserCreated consumes USER_CREATED and creates the wallet.
func (wc *WalletConsumer) HandleUserCreated(ctx context.Context, msg bus.Message) error {
	ev, _, err := events.Unmarshal(msg.Value)
	if err != nil {
		return fmt.Errorf("poison message on %s: %w", msg.Topic, err)
	}
	created, ok := ev.(*events.UserCreated)
	if !ok {
		return fmt.Errorf("unexpected event %s on %s", ev.EventType(), msg.Topic)
	}
	return wc.useCase.CreateWalletFromUser(ctx, created)
}

// HandleTxnInitiated consumes TXN_TOPIC and settles the transfer.
func (wc *WalletConsumer) HandleTxnInitiated(ctx context.Context, msg bus.Message) error {
	ev, _, err := events.Unmarshal(msg.Value)
	if err != nil {
		return fmt.Errorf("poison message on %s: %w", msg.Topic, err)
	}
	initiated, ok := ev.(*events.TxnInitiated)
	if !ok {
		return fmt.Errorf("unexpected event %s on %s", ev.EventType(), msg.Topic)
	}
	return wc.useCase.SettleTransaction(ctx, initiated)
}

// Register subscribes both handlers in the wallet consumer group, with
// terminal failures routed to the dead-letter topics.
func (wc *WalletConsumer) Register(ctx context.Context, sub bus.Subscriber, dlq bus.Publisher, group string) error {
	if err := sub.Subscribe(ctx, events.TopicUserCreated, group, bus.WithDeadLetter(wc.HandleUserCreated, dlq)); err != nil {
		return fmt.Errorf("subscribing to %s: %w", events.TopicUserCreated, err)
	}
	if err := sub.Subscribe(ctx, events.TopicTxnInitiated, group, bus.WithDeadLetter(wc.HandleTxnInitiated, dlq)); err != nil {
		return fmt.Errorf("subscribing to %s: %w", events.TopicTxnInitiated, err)
	}
	return nil
}
