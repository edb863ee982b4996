package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Txn statuses. INITIATED is assigned at creation; the terminal status is
// driven by the wallet service's TxnOutcome event, never by the request
// path.
const (
	TxnStatusInitiated = "INITIATED"
	TxnStatusCompleted = "COMPLETED"
	TxnStatusFailed    = "FAILED"
)

// Txn is the transaction record. TxnID is the globally unique,
// client-opaque identifier carried on the wire; status is the only field
// mutated after creation.
type Txn struct {
	ID        int64           `json:"id"`
	TxnID     string          `json:"txnId"`
	Amount    decimal.Decimal `json:"amount"`
	Sender    string          `json:"sender"`
	Receiver  string          `json:"receiver"`
	Note      string          `json:"note,omitempty"`
	Status    string          `json:"status"`
	CreatedOn time.Time       `json:"createdOn"`
	UpdatedOn time.Time       `json:"updatedOn"`
}

// NewTxn builds an INITIATED transaction.
func NewTxn(txnID, sender, receiver, note string, amount decimal.Decimal) *Txn {
	now := time.Now()
	return &Txn{
		TxnID:     txnID,
		Amount:    amount,
		Sender:    sender,
		Receiver:  receiver,
		Note:      note,
		Status:    TxnStatusInitiated,
		CreatedOn: now,
		UpdatedOn: now,
	}
}
