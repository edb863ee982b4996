package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payment-platform/services/pkg/bus"
	"github.com/payment-platform/services/pkg/events"
)

// fakeMailer records sent mail.
type fakeMailer struct {
	to      []string
	subject []string
	body    []string
	err     error
}

func (f *fakeMailer) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, to)
	f.subject = append(f.subject, subject)
	f.body = append(f.body, body)
	return nil
}

func userCreatedMessage(t *testing.T) bus.Message {
	t.Helper()
	data, err := events.Marshal(events.UserCreated{
		UserID:  7,
		Name:    "alice",
		Email:   "alice@example.com",
		Contact: "+1000",
	})
	require.NoError(t, err)
	return bus.Message{Topic: events.TopicUserCreated, Value: data}
}

func TestHandleUserCreated_SendsWelcomeMail(t *testing.T) {
	// Arrange
	mailer := &fakeMailer{}
	nc := NewNotificationConsumer(mailer, nil)

	// Act
	err := nc.HandleUserCreated(context.Background(), userCreatedMessage(t))

	// Assert
	require.NoError(t, err)
	require.Len(t, mailer.to, 1)
	assert.Equal(t, "alice@example.com", mailer.to[0])
	assert.Equal(t, "User created | alice", mailer.subject[0])
	assert.Equal(t, "Welcome alice to the platform!", mailer.body[0])
}

func TestHandleUserCreated_MailFailureDoesNotBlockTheGroup(t *testing.T) {
	// A mail transport failure is best-effort territory: log it and move
	// on, never retry the same message forever.
	mailer := &fakeMailer{err: errors.New("smtp down")}
	nc := NewNotificationConsumer(mailer, nil)

	err := nc.HandleUserCreated(context.Background(), userCreatedMessage(t))

	assert.NoError(t, err)
}

func TestHandleUserCreated_PoisonMessageIsAnError(t *testing.T) {
	// Undecodable payloads go to the dead-letter path via the returned
	// error; they are not silently dropped.
	nc := NewNotificationConsumer(&fakeMailer{}, nil)

	err := nc.HandleUserCreated(context.Background(), bus.Message{
		Topic: events.TopicUserCreated,
		Value: []byte(`{"type":"user.created","payload":{"name":"x"}}`),
	})

	assert.Error(t, err)
}
