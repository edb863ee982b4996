package transaction

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTxnNotFound = errors.New("transaction not found")

// Repository defines the transaction store operations.
type Repository interface {
	// CreateTxn inserts the transaction and fills ID.
	CreateTxn(ctx context.Context, t *Txn) error

	// SettleTxn moves an INITIATED transaction to its terminal status.
	// Returns false when the transaction was already terminal, so outcome
	// redelivery is a no-op.
	SettleTxn(ctx context.Context, txnID, status string) (bool, error)

	// GetTxn loads a transaction by its public id.
	GetTxn(ctx context.Context, txnID string) (*Txn, error)
}

// TxnRepository implements Repository using PostgreSQL.
type TxnRepository struct {
	db *pgxpool.Pool
}

func NewTxnRepository(db *pgxpool.Pool) Repository {
	return &TxnRepository{db: db}
}

func (r *TxnRepository) CreateTxn(ctx context.Context, t *Txn) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO txns (txn_id, amount, sender, receiver, note, status, created_on, updated_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, t.TxnID, t.Amount, t.Sender, t.Receiver, t.Note, t.Status, t.CreatedOn, t.UpdatedOn).Scan(&t.ID)
}

func (r *TxnRepository) SettleTxn(ctx context.Context, txnID, status string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE txns SET status = $1, updated_on = NOW()
		WHERE txn_id = $2 AND status = $3
	`, status, txnID, TxnStatusInitiated)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TxnRepository) GetTxn(ctx context.Context, txnID string) (*Txn, error) {
	var t Txn
	err := r.db.QueryRow(ctx, `
		SELECT id, txn_id, amount, sender, receiver, note, status, created_on, updated_on
		FROM txns WHERE txn_id = $1
	`, txnID).Scan(&t.ID, &t.TxnID, &t.Amount, &t.Sender, &t.Receiver, &t.Note, &t.Status, &t.CreatedOn, &t.UpdatedOn)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTxnNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
