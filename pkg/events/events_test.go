package events

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshal_UserCreated(t *testing.T) {
	// Arrange
	ev := UserCreated{
		UserID:          42,
		Name:            "alice",
		Email:           "alice@example.com",
		Contact:         "+1000",
		IdentifierType:  "PAN",
		IdentifierValue: "ABC123",
	}

	// Act
	data, err := Marshal(ev)
	require.NoError(t, err)
	decoded, env, err := Unmarshal(data)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, TypeUserCreated, env.Type)
	assert.NotEmpty(t, env.EventID)
	assert.False(t, env.OccurredAt.IsZero())

	got, ok := decoded.(*UserCreated)
	require.True(t, ok)
	assert.Equal(t, ev, *got)
}

func TestMarshalUnmarshal_TxnInitiated(t *testing.T) {
	// Arrange
	ev := TxnInitiated{
		TxnID:    "txn-1",
		Sender:   "+1000",
		Receiver: "+2000",
		Amount:   decimal.RequireFromString("25.0"),
		Note:     "lunch",
		Status:   "INITIATED",
	}

	// Act
	data, err := Marshal(ev)
	require.NoError(t, err)
	decoded, _, err := Unmarshal(data)

	// Assert
	require.NoError(t, err)
	got, ok := decoded.(*TxnInitiated)
	require.True(t, ok)
	assert.Equal(t, ev.TxnID, got.TxnID)
	assert.True(t, ev.Amount.Equal(got.Amount))
}

func TestMarshal_RejectsInvalidEvents(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{"user created without email", UserCreated{UserID: 1, Contact: "+1"}},
		{"user created without contact", UserCreated{UserID: 1, Email: "a@b.c"}},
		{"user created without user id", UserCreated{Email: "a@b.c", Contact: "+1"}},
		{"txn without id", TxnInitiated{Sender: "a", Receiver: "b", Amount: decimal.NewFromInt(1)}},
		{"txn with zero amount", TxnInitiated{TxnID: "t", Sender: "a", Receiver: "b"}},
		{"txn with negative amount", TxnInitiated{TxnID: "t", Sender: "a", Receiver: "b", Amount: decimal.NewFromInt(-5)}},
		{"outcome with bogus status", TxnOutcome{TxnID: "t", Status: "MAYBE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Marshal(tt.ev)
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestUnmarshal_UnknownType(t *testing.T) {
	// Act
	_, _, err := Unmarshal([]byte(`{"eventId":"x","type":"user.deleted","payload":{}}`))

	// Assert
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestUnmarshal_MissingRequiredField(t *testing.T) {
	// A payload with the right type but a missing required field must fail
	// at the consumer boundary, not leak a half-built event.
	data := []byte(`{"eventId":"x","type":"txn.initiated","payload":{"sender":"a","receiver":"b","amount":"10"}}`)

	_, _, err := Unmarshal(data)

	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestUnmarshal_MalformedPayload(t *testing.T) {
	data := []byte(`{"eventId":"x","type":"txn.initiated","payload":{"amount":"not-a-number"}}`)

	_, _, err := Unmarshal(data)

	assert.Error(t, err)
}
