package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds the balance for one user. Exactly one wallet exists per user
// identity; creation is driven by UserCreated and nothing else.
type Wallet struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	Contact   string          `json:"contact"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Transfer is the applied-effect record for one transaction. Its TxnID is
// the idempotency key: a transfer row exists if and only if the balance
// movement for that transaction has been applied.
type Transfer struct {
	TxnID     string          `json:"txnId"`
	Sender    string          `json:"sender"`
	Receiver  string          `json:"receiver"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
