package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_DeliversInPublishOrder(t *testing.T) {
	// Arrange
	b := NewMemoryBus()
	ctx := context.Background()

	var mu sync.Mutex
	var got []string
	err := b.Subscribe(ctx, "topic-a", "group-1", func(ctx context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(msg.Value))
		return nil
	})
	require.NoError(t, err)

	// Act
	for _, v := range []string{"one", "two", "three"} {
		require.NoError(t, b.Publish(ctx, Message{Topic: "topic-a", Value: []byte(v)}))
	}
	b.WaitIdle()

	// Assert
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestMemoryBus_FansOutToEachGroup(t *testing.T) {
	// Arrange
	b := NewMemoryBus()
	ctx := context.Background()

	var mu sync.Mutex
	counts := map[string]int{}
	for _, group := range []string{"wallet-group", "notification-group"} {
		group := group
		require.NoError(t, b.Subscribe(ctx, "USER_CREATED", group, func(ctx context.Context, msg Message) error {
			mu.Lock()
			defer mu.Unlock()
			counts[group]++
			return nil
		}))
	}

	// Act
	require.NoError(t, b.Publish(ctx, Message{Topic: "USER_CREATED", Value: []byte("u")}))
	b.WaitIdle()

	// Assert: each group gets its own delivery, exactly once.
	assert.Equal(t, 1, counts["wallet-group"])
	assert.Equal(t, 1, counts["notification-group"])
}

func TestMemoryBus_IgnoresTopicsWithoutSubscribers(t *testing.T) {
	b := NewMemoryBus()

	err := b.Publish(context.Background(), Message{Topic: "nobody-home", Value: []byte("x")})

	assert.NoError(t, err)
}

func TestMemoryBus_SlowGroupDoesNotBlockOtherTopics(t *testing.T) {
	// Arrange: one group wedged inside its handler with a full buffer, so a
	// publisher on its topic is blocked mid-send.
	b := NewMemoryBus()
	ctx := context.Background()

	release := make(chan struct{})
	require.NoError(t, b.Subscribe(ctx, "slow-topic", "group-1", func(ctx context.Context, msg Message) error {
		<-release
		return nil
	}))

	fastDelivered := make(chan struct{}, 1)
	require.NoError(t, b.Subscribe(ctx, "fast-topic", "group-1", func(ctx context.Context, msg Message) error {
		fastDelivered <- struct{}{}
		return nil
	}))

	go func() {
		for i := 0; i < memoryBufferSize+10; i++ {
			_ = b.Publish(ctx, Message{Topic: "slow-topic", Value: []byte("x")})
		}
	}()

	// Let the overflow publisher wedge on the full channel.
	time.Sleep(50 * time.Millisecond)

	// Act: an unrelated topic must still accept and deliver.
	require.NoError(t, b.Publish(ctx, Message{Topic: "fast-topic", Value: []byte("y")}))

	// Assert
	select {
	case <-fastDelivered:
	case <-time.After(2 * time.Second):
		t.Fatal("publish on an unrelated topic blocked behind a slow group")
	}

	close(release)
	b.WaitIdle()
}

func TestWithDeadLetter_RoutesFailureToDLQ(t *testing.T) {
	// Arrange
	b := NewMemoryBus()
	ctx := context.Background()

	var mu sync.Mutex
	var dead []Message
	require.NoError(t, b.Subscribe(ctx, DeadLetterTopic("TXN_TOPIC"), "reconciliation", func(ctx context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		dead = append(dead, msg)
		return nil
	}))

	failing := func(ctx context.Context, msg Message) error {
		return errors.New("handler gave up")
	}
	wrapped := WithDeadLetter(failing, b)

	// Act
	err := wrapped(ctx, Message{Topic: "TXN_TOPIC", Key: []byte("txn-9"), Value: []byte("payload")})
	b.WaitIdle()

	// Assert: the wrapper absorbs the error and parks the original message.
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, []byte("payload"), dead[0].Value)
	assert.Equal(t, []byte("txn-9"), dead[0].Key)
}

func TestWithDeadLetter_PassesSuccessThrough(t *testing.T) {
	called := false
	wrapped := WithDeadLetter(func(ctx context.Context, msg Message) error {
		called = true
		return nil
	}, NewMemoryBus())

	err := wrapped(context.Background(), Message{Topic: "t"})

	assert.NoError(t, err)
	assert.True(t, called)
}
