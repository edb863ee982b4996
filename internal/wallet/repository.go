package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrDuplicateTransfer means the transaction id was already applied;
	// redelivery of the same event must be absorbed as a no-op.
	ErrDuplicateTransfer = errors.New("transfer already applied")

	// ErrWalletNotReady means a party's wallet does not exist yet. The
	// UserCreated event may still be in flight, so this is transient.
	ErrWalletNotReady = errors.New("wallet not ready")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")
)

// Repository defines the wallet store operations.
type Repository interface {
	// CreateWallet inserts the wallet unless one already exists for the
	// user. Returns false on the duplicate, without error.
	CreateWallet(ctx context.Context, w *Wallet) (bool, error)

	// ApplyTransfer applies both balance movements for one transaction
	// atomically, keyed by the transaction id. Partial application can never
	// persist: every failure path rolls the whole transfer back.
	ApplyTransfer(ctx context.Context, t *Transfer) error

	// GetByContact loads a wallet by contact identifier.
	GetByContact(ctx context.Context, contact string) (*Wallet, error)
}

// WalletRepository implements Repository using PostgreSQL.
type WalletRepository struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) Repository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) CreateWallet(ctx context.Context, w *Wallet) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO wallets (user_id, contact, balance, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, w.UserID, w.Contact, w.Balance)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ApplyTransfer runs inside one local database transaction:
//
//  1. claim the txn id in the transfers ledger; losing the claim means a
//     previous delivery already applied this transfer,
//  2. debit the sender conditionally on sufficient balance,
//  3. credit the receiver.
//
// Balance movements are expressed as conditional arithmetic updates scoped
// by contact, so concurrent transfers touching the same wallet serialize in
// the store instead of racing through read-modify-write.
func (r *WalletRepository) ApplyTransfer(ctx context.Context, t *Transfer) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transfer txn: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO transfers (txn_id, sender, receiver, amount, note, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (txn_id) DO NOTHING
	`, t.TxnID, t.Sender, t.Receiver, t.Amount, t.Note)
	if err != nil {
		return fmt.Errorf("claiming txn %s: %w", t.TxnID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateTransfer
	}

	tag, err = tx.Exec(ctx, `
		UPDATE wallets SET balance = balance - $1, updated_at = NOW()
		WHERE contact = $2 AND balance >= $1
	`, t.Amount, t.Sender)
	if err != nil {
		return fmt.Errorf("debiting %s: %w", t.Sender, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE contact = $1)`, t.Sender).Scan(&exists); err != nil {
			return fmt.Errorf("checking sender wallet %s: %w", t.Sender, err)
		}
		if !exists {
			return fmt.Errorf("sender %s: %w", t.Sender, ErrWalletNotReady)
		}
		return fmt.Errorf("sender %s: %w", t.Sender, ErrInsufficientFunds)
	}

	tag, err = tx.Exec(ctx, `
		UPDATE wallets SET balance = balance + $1, updated_at = NOW()
		WHERE contact = $2
	`, t.Amount, t.Receiver)
	if err != nil {
		return fmt.Errorf("crediting %s: %w", t.Receiver, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("receiver %s: %w", t.Receiver, ErrWalletNotReady)
	}

	return tx.Commit(ctx)
}

func (r *WalletRepository) GetByContact(ctx context.Context, contact string) (*Wallet, error) {
	var w Wallet
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, contact, balance, created_at, updated_at
		FROM wallets WHERE contact = $1
	`, contact).Scan(&w.ID, &w.UserID, &w.Contact, &w.Balance, &w.CreatedAt, &w.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}
