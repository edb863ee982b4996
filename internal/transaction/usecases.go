package transaction

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payment-platform/services/pkg/bus"
	"github.com/payment-platform/services/pkg/events"
)

var ErrInvalidAmount = errors.New("amount must be positive")

// TxnUseCase contains the transaction initiation and settlement logic.
type TxnUseCase struct {
	repository Repository
	publisher  bus.Publisher
}

func NewTxnUseCase(repository Repository, publisher bus.Publisher) *TxnUseCase {
	return &TxnUseCase{repository: repository, publisher: publisher}
}

// InitTxn persists an INITIATED transaction and publishes TxnInitiated. The
// sender is the authenticated principal, never a request field. Validation
// failures reject synchronously; nothing reaches the bus.
func (uc *TxnUseCase) InitTxn(ctx context.Context, sender, receiver, note string, amount decimal.Decimal) (*Txn, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if receiver == sender {
		return nil, fmt.Errorf("%w: sender and receiver are the same", ErrInvalidAmount)
	}

	txn := NewTxn(uuid.New().String(), sender, receiver, note, amount)
	if err := uc.repository.CreateTxn(ctx, txn); err != nil {
		return nil, fmt.Errorf("creating txn: %w", err)
	}

	ev := events.TxnInitiated{
		TxnID:    txn.TxnID,
		Sender:   txn.Sender,
		Receiver: txn.Receiver,
		Amount:   txn.Amount,
		Note:     txn.Note,
		Status:   txn.Status,
	}
	data, err := events.Marshal(ev)
	if err != nil {
		log.Printf("🔥 CRITICAL: txn %s created but TxnInitiated could not be encoded: %v", txn.TxnID, err)
		return txn, nil
	}

	msg := bus.Message{Topic: ev.Topic(), Key: []byte(txn.TxnID), Value: data}
	if err := uc.publisher.Publish(ctx, msg); err != nil {
		log.Printf("🔥 CRITICAL: txn %s created but TxnInitiated is lost (publish and outbox both failed): %v", txn.TxnID, err)
		return txn, nil
	}

	log.Printf("✅ Txn %s initiated: %s -> %s amount %s", txn.TxnID, sender, receiver, amount)
	return txn, nil
}

// HandleOutcome applies the wallet service's settlement verdict. Only
// INITIATED transactions transition; a redelivered or stale outcome is a
// logged no-op.
func (uc *TxnUseCase) HandleOutcome(ctx context.Context, ev *events.TxnOutcome) error {
	updated, err := uc.repository.SettleTxn(ctx, ev.TxnID, ev.Status)
	if err != nil {
		return fmt.Errorf("settling txn %s: %w", ev.TxnID, err)
	}
	if !updated {
		log.Printf("↩️  Txn %s already terminal, outcome %s absorbed", ev.TxnID, ev.Status)
		return nil
	}

	if ev.Status == events.OutcomeFailed {
		log.Printf("❌ Txn %s FAILED: %s", ev.TxnID, ev.Reason)
	} else {
		log.Printf("✅ Txn %s COMPLETED", ev.TxnID)
	}
	return nil
}

// GetTxn exposes transaction lookup for the status endpoint.
func (uc *TxnUseCase) GetTxn(ctx context.Context, txnID string) (*Txn, error) {
	return uc.repository.GetTxn(ctx, txnID)
}
