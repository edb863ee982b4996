package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Topic names are part of the wire contract shared with every consumer group.
const (
	TopicUserCreated   = "USER_CREATED"
	TopicWalletCreated = "WALLET_CREATED"
	TopicTxnInitiated  = "TXN_TOPIC"
	TopicTxnOutcome    = "TXN_OUTCOME"
)

// Type tags the event variant inside the envelope.
type Type string

const (
	TypeUserCreated   Type = "user.created"
	TypeWalletCreated Type = "wallet.created"
	TypeTxnInitiated  Type = "txn.initiated"
	TypeTxnOutcome    Type = "txn.outcome"
)

var (
	ErrUnknownType  = errors.New("events: unknown event type")
	ErrInvalidEvent = errors.New("events: invalid event")
)

// Event is one variant of the tagged union carried between services.
// Events are immutable facts; they are published after the local write
// committed and are never updated or deleted.
type Event interface {
	EventType() Type
	Topic() string
	Validate() error
}

// Envelope wraps every published event with identity and provenance.
type Envelope struct {
	EventID    string          `json:"eventId"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// UserCreated is published by the user service after a registration commits.
type UserCreated struct {
	UserID          int64  `json:"userId"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Contact         string `json:"contact"`
	IdentifierType  string `json:"identifierType"`
	IdentifierValue string `json:"identifierValue"`
}

func (UserCreated) EventType() Type { return TypeUserCreated }
func (UserCreated) Topic() string   { return TopicUserCreated }

func (e UserCreated) Validate() error {
	if e.UserID <= 0 {
		return fmt.Errorf("%w: user.created missing userId", ErrInvalidEvent)
	}
	if e.Email == "" {
		return fmt.Errorf("%w: user.created missing email", ErrInvalidEvent)
	}
	if e.Contact == "" {
		return fmt.Errorf("%w: user.created missing contact", ErrInvalidEvent)
	}
	return nil
}

// TxnInitiated is published by the transaction service after the INITIATED
// record commits. TxnID doubles as the idempotency key for the wallet-side
// balance adjustment, so redelivery never re-debits.
type TxnInitiated struct {
	TxnID    string          `json:"txnId"`
	Sender   string          `json:"sender"`
	Receiver string          `json:"receiver"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note"`
	Status   string          `json:"status"`
}

func (TxnInitiated) EventType() Type { return TypeTxnInitiated }
func (TxnInitiated) Topic() string   { return TopicTxnInitiated }

func (e TxnInitiated) Validate() error {
	if e.TxnID == "" {
		return fmt.Errorf("%w: txn.initiated missing txnId", ErrInvalidEvent)
	}
	if e.Sender == "" || e.Receiver == "" {
		return fmt.Errorf("%w: txn.initiated missing sender or receiver", ErrInvalidEvent)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: txn.initiated amount must be positive, got %s", ErrInvalidEvent, e.Amount)
	}
	return nil
}

// WalletCreated is published by the wallet service after the wallet row
// exists. Duplicate UserCreated deliveries re-emit it, so consumers see it
// at least once per user, never at most once.
type WalletCreated struct {
	UserID  int64           `json:"userId"`
	Balance decimal.Decimal `json:"balance"`
}

func (WalletCreated) EventType() Type { return TypeWalletCreated }
func (WalletCreated) Topic() string   { return TopicWalletCreated }

func (e WalletCreated) Validate() error {
	if e.UserID <= 0 {
		return fmt.Errorf("%w: wallet.created missing userId", ErrInvalidEvent)
	}
	return nil
}

// TxnOutcome reports the terminal result of a transfer back to the
// transaction service, which drives INITIATED -> COMPLETED/FAILED.
type TxnOutcome struct {
	TxnID  string `json:"txnId"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

const (
	OutcomeCompleted = "COMPLETED"
	OutcomeFailed    = "FAILED"
)

func (TxnOutcome) EventType() Type { return TypeTxnOutcome }
func (TxnOutcome) Topic() string   { return TopicTxnOutcome }

func (e TxnOutcome) Validate() error {
	if e.TxnID == "" {
		return fmt.Errorf("%w: txn.outcome missing txnId", ErrInvalidEvent)
	}
	if e.Status != OutcomeCompleted && e.Status != OutcomeFailed {
		return fmt.Errorf("%w: txn.outcome status %q", ErrInvalidEvent, e.Status)
	}
	return nil
}

// Marshal validates the event and wraps it in a fresh envelope.
func Marshal(ev Event) ([]byte, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", ev.EventType(), err)
	}

	env := Envelope{
		EventID:    uuid.New().String(),
		Type:       ev.EventType(),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	return json.Marshal(env)
}

// Unmarshal decodes an envelope and its payload into the concrete variant.
// Unknown types and missing or malformed required fields fail loudly; a
// message that fails here is poison and must go to the dead-letter path,
// never back into the retry loop.
func Unmarshal(data []byte) (Event, Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, env, fmt.Errorf("decoding envelope: %w", err)
	}

	var ev Event
	switch env.Type {
	case TypeUserCreated:
		ev = &UserCreated{}
	case TypeWalletCreated:
		ev = &WalletCreated{}
	case TypeTxnInitiated:
		ev = &TxnInitiated{}
	case TypeTxnOutcome:
		ev = &TxnOutcome{}
	default:
		return nil, env, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if err := json.Unmarshal(env.Payload, ev); err != nil {
		return nil, env, fmt.Errorf("decoding %s payload: %w", env.Type, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, env, err
	}
	return ev, env, nil
}
