package wallet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/payment-platform/services/pkg/bus"
	"github.com/payment-platform/services/pkg/events"
)

// WalletUseCase applies the choreography effects owned by the wallet
// service: wallet creation from UserCreated and balance settlement from
// TxnInitiated.
type WalletUseCase struct {
	repository     Repository
	publisher      bus.Publisher
	openingBalance decimal.Decimal

	// Settlement retries while a party's wallet is not ready; the
	// UserCreated event may arrive after a TxnInitiated naming the same
	// user, since topics carry no cross-topic ordering.
	retryInitialInterval time.Duration
	retryMaxElapsed      time.Duration

	walletsCreated  metric.Int64Counter
	duplicateEvents metric.Int64Counter
	transfersOK     metric.Int64Counter
	transfersFailed metric.Int64Counter
}

func NewWalletUseCase(repository Repository, publisher bus.Publisher, openingBalance decimal.Decimal, retryMaxElapsed time.Duration) *WalletUseCase {
	meter := otel.Meter("wallet-service")
	walletsCreated, _ := meter.Int64Counter("wallet.created")
	duplicateEvents, _ := meter.Int64Counter("wallet.events.duplicate")
	transfersOK, _ := meter.Int64Counter("wallet.transfers.applied")
	transfersFailed, _ := meter.Int64Counter("wallet.transfers.failed")

	return &WalletUseCase{
		repository:           repository,
		publisher:            publisher,
		openingBalance:       openingBalance,
		retryInitialInterval: 500 * time.Millisecond,
		retryMaxElapsed:      retryMaxElapsed,
		walletsCreated:       walletsCreated,
		duplicateEvents:      duplicateEvents,
		transfersOK:          transfersOK,
		transfersFailed:      transfersFailed,
	}
}

// CreateWalletFromUser creates the wallet for a freshly registered user with
// the configured opening balance. Redelivery of the same UserCreated never
// creates a second wallet, but it does republish WalletCreated: a crash
// between the insert and the publish lands here on the next delivery, and
// re-emitting is the only way the lost event ever reaches downstream.
func (uc *WalletUseCase) CreateWalletFromUser(ctx context.Context, ev *events.UserCreated) error {
	w := &Wallet{
		UserID:  ev.UserID,
		Contact: ev.Contact,
		Balance: uc.openingBalance,
	}

	created, err := uc.repository.CreateWallet(ctx, w)
	if err != nil {
		return fmt.Errorf("creating wallet for user %d: %w", ev.UserID, err)
	}
	if !created {
		uc.duplicateEvents.Add(ctx, 1)
		log.Printf("↩️  Wallet for user %d already exists, republishing WalletCreated for the duplicate UserCreated", ev.UserID)
		uc.publishWalletCreated(ctx, ev.UserID)
		return nil
	}

	uc.walletsCreated.Add(ctx, 1)
	log.Printf("✅ Wallet created for user %d with opening balance %s", ev.UserID, uc.openingBalance)
	uc.publishWalletCreated(ctx, ev.UserID)
	return nil
}

func (uc *WalletUseCase) publishWalletCreated(ctx context.Context, userID int64) {
	out := events.WalletCreated{UserID: userID, Balance: uc.openingBalance}
	data, err := events.Marshal(out)
	if err != nil {
		log.Printf("🔥 CRITICAL: wallet for user %d exists but WalletCreated could not be encoded: %v", userID, err)
		return
	}
	msg := bus.Message{Topic: out.Topic(), Key: []byte(strconv.FormatInt(userID, 10)), Value: data}
	if err := uc.publisher.Publish(ctx, msg); err != nil {
		log.Printf("🔥 CRITICAL: wallet for user %d exists but WalletCreated is lost: %v", userID, err)
	}
}

// SettleTransaction applies the two-sided balance movement for one
// TxnInitiated event and reports the terminal result as a TxnOutcome.
//
// Terminal classification:
//   - applied           -> COMPLETED outcome
//   - duplicate         -> COMPLETED outcome re-emitted; the claim row only
//     exists for transfers that committed, and the prior attempt's outcome
//     may have been lost to a crash before it was published
//   - insufficient funds -> FAILED outcome, balances untouched
//   - wallet not ready  -> retried with backoff; exhaustion dead-letters the
//     event and FAILs the transaction so the credit is never silently lost
func (uc *WalletUseCase) SettleTransaction(ctx context.Context, ev *events.TxnInitiated) error {
	t := &Transfer{
		TxnID:    ev.TxnID,
		Sender:   ev.Sender,
		Receiver: ev.Receiver,
		Amount:   ev.Amount,
		Note:     ev.Note,
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = uc.retryInitialInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := uc.repository.ApplyTransfer(ctx, t)
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, ErrDuplicateTransfer) || errors.Is(err, ErrInsufficientFunds) {
			return struct{}{}, backoff.Permanent(err)
		}
		log.Printf("⏳ Transfer %s not applicable yet, will retry: %v", ev.TxnID, err)
		return struct{}{}, err
	}, backoff.WithBackOff(policy), backoff.WithMaxElapsedTime(uc.retryMaxElapsed))

	switch {
	case err == nil:
		uc.transfersOK.Add(ctx, 1)
		log.Printf("✅ Transfer %s applied: %s -> %s amount %s", ev.TxnID, ev.Sender, ev.Receiver, ev.Amount)
		uc.publishOutcome(ctx, ev.TxnID, events.OutcomeCompleted, "")
		return nil

	case errors.Is(err, ErrDuplicateTransfer):
		uc.duplicateEvents.Add(ctx, 1)
		log.Printf("↩️  Transfer %s already applied, re-emitting COMPLETED for the duplicate TxnInitiated", ev.TxnID)
		uc.publishOutcome(ctx, ev.TxnID, events.OutcomeCompleted, "")
		return nil

	case errors.Is(err, ErrInsufficientFunds):
		uc.transfersFailed.Add(ctx, 1)
		log.Printf("❌ Transfer %s rejected, insufficient funds: sender %s receiver %s amount %s", ev.TxnID, ev.Sender, ev.Receiver, ev.Amount)
		uc.publishOutcome(ctx, ev.TxnID, events.OutcomeFailed, "insufficient funds")
		return nil

	default:
		uc.transfersFailed.Add(ctx, 1)
		log.Printf("🔥 Transfer %s could not be applied (sender %s, receiver %s): %v", ev.TxnID, ev.Sender, ev.Receiver, err)
		uc.publishOutcome(ctx, ev.TxnID, events.OutcomeFailed, err.Error())
		return fmt.Errorf("settling txn %s: %w", ev.TxnID, err)
	}
}

func (uc *WalletUseCase) publishOutcome(ctx context.Context, txnID, status, reason string) {
	out := events.TxnOutcome{TxnID: txnID, Status: status, Reason: reason}
	data, err := events.Marshal(out)
	if err != nil {
		log.Printf("🔥 CRITICAL: outcome for txn %s could not be encoded: %v", txnID, err)
		return
	}
	msg := bus.Message{Topic: out.Topic(), Key: []byte(txnID), Value: data}
	if err := uc.publisher.Publish(ctx, msg); err != nil {
		log.Printf("🔥 CRITICAL: outcome for txn %s is lost: %v", txnID, err)
	}
}
