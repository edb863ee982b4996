package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/payment-platform/services/pkg/bus"
)

// MockPublisher mocks the broker side.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg bus.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockSaver records parked events.
type MockSaver struct {
	mock.Mock
}

func (m *MockSaver) Save(ctx context.Context, msg bus.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func TestFallbackPublisher_BrokerUpSkipsOutbox(t *testing.T) {
	// Arrange
	mockPub := new(MockPublisher)
	mockSaver := new(MockSaver)
	p := NewFallbackPublisher(mockPub, mockSaver)
	ctx := context.Background()

	msg := bus.Message{Topic: "USER_CREATED", Key: []byte("+1000"), Value: []byte("payload")}
	mockPub.On("Publish", ctx, msg).Return(nil).Once()

	// Act
	err := p.Publish(ctx, msg)

	// Assert
	require.NoError(t, err)
	mockSaver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestFallbackPublisher_BrokerDownParksEvent(t *testing.T) {
	// The local write already committed when Publish is called, so a broker
	// failure must park the event and report success to the caller.
	mockPub := new(MockPublisher)
	mockSaver := new(MockSaver)
	p := NewFallbackPublisher(mockPub, mockSaver)
	ctx := context.Background()

	msg := bus.Message{Topic: "TXN_TOPIC", Key: []byte("txn-1"), Value: []byte("payload")}
	mockPub.On("Publish", ctx, msg).Return(errors.New("broker unreachable")).Once()
	mockSaver.On("Save", ctx, msg).Return(nil).Once()

	err := p.Publish(ctx, msg)

	require.NoError(t, err)
	mockPub.AssertExpectations(t)
	mockSaver.AssertExpectations(t)
}

func TestFallbackPublisher_BrokerAndOutboxDownFails(t *testing.T) {
	// With both the broker and the outbox store down the event has nowhere
	// to live; the caller must hear about it.
	mockPub := new(MockPublisher)
	mockSaver := new(MockSaver)
	p := NewFallbackPublisher(mockPub, mockSaver)
	ctx := context.Background()

	msg := bus.Message{Topic: "TXN_TOPIC", Value: []byte("payload")}
	mockPub.On("Publish", ctx, msg).Return(errors.New("broker unreachable")).Once()
	mockSaver.On("Save", ctx, msg).Return(errors.New("db down")).Once()

	err := p.Publish(ctx, msg)

	assert.Error(t, err)
}

// stubQueue serves canned entries and records mark calls.
type stubQueue struct {
	entries  []Entry
	listErr  error
	marked   []int64
	markErrs map[int64]error
}

func (s *stubQueue) Unpublished(ctx context.Context, limit int) ([]Entry, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if limit > len(s.entries) {
		limit = len(s.entries)
	}
	return s.entries[:limit], nil
}

func (s *stubQueue) MarkPublished(ctx context.Context, id int64) error {
	if err := s.markErrs[id]; err != nil {
		return err
	}
	s.marked = append(s.marked, id)
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	return nil
}

func parkedEntries() []Entry {
	return []Entry{
		{ID: 1, Topic: "USER_CREATED", Key: []byte("+1000"), Payload: []byte("first")},
		{ID: 2, Topic: "USER_CREATED", Key: []byte("+2000"), Payload: []byte("second")},
		{ID: 3, Topic: "TXN_TOPIC", Key: []byte("txn-1"), Payload: []byte("third")},
	}
}

func TestRepublisher_DrainReplaysOldestFirst(t *testing.T) {
	// Arrange
	queue := &stubQueue{entries: parkedEntries()}
	mockPub := new(MockPublisher)
	r := NewRepublisher(queue, mockPub, time.Minute)
	ctx := context.Background()

	var replayed []string
	mockPub.On("Publish", ctx, mock.Anything).Run(func(args mock.Arguments) {
		replayed = append(replayed, string(args.Get(1).(bus.Message).Value))
	}).Return(nil).Times(3)

	// Act
	r.drain(ctx)

	// Assert: publish order matches insertion order, every entry marked.
	assert.Equal(t, []string{"first", "second", "third"}, replayed)
	assert.Equal(t, []int64{1, 2, 3}, queue.marked)
	assert.Empty(t, queue.entries)
}

func TestRepublisher_DrainStopsOnPublishFailure(t *testing.T) {
	// A broker that is still down must not let later entries overtake
	// earlier ones; the drain stops and the whole tail waits for next tick.
	queue := &stubQueue{entries: parkedEntries()}
	mockPub := new(MockPublisher)
	r := NewRepublisher(queue, mockPub, time.Minute)
	ctx := context.Background()

	mockPub.On("Publish", ctx, mock.MatchedBy(func(msg bus.Message) bool {
		return string(msg.Value) == "first"
	})).Return(nil).Once()
	mockPub.On("Publish", ctx, mock.MatchedBy(func(msg bus.Message) bool {
		return string(msg.Value) == "second"
	})).Return(errors.New("broker unreachable")).Once()

	r.drain(ctx)

	// Only the first entry was replayed and marked; entries 2 and 3 stay
	// parked in order.
	assert.Equal(t, []int64{1}, queue.marked)
	require.Len(t, queue.entries, 2)
	assert.Equal(t, int64(2), queue.entries[0].ID)
	mockPub.AssertNotCalled(t, "Publish", ctx, mock.MatchedBy(func(msg bus.Message) bool {
		return string(msg.Value) == "third"
	}))
}

func TestRepublisher_DrainStopsOnMarkFailure(t *testing.T) {
	// If MarkPublished fails the entry will be replayed again next tick;
	// continuing past it would reorder the replay.
	queue := &stubQueue{
		entries:  parkedEntries(),
		markErrs: map[int64]error{1: errors.New("db down")},
	}
	mockPub := new(MockPublisher)
	r := NewRepublisher(queue, mockPub, time.Minute)
	ctx := context.Background()

	mockPub.On("Publish", ctx, mock.Anything).Return(nil).Once()

	r.drain(ctx)

	assert.Empty(t, queue.marked)
	mockPub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestRepublisher_DrainToleratesListFailure(t *testing.T) {
	queue := &stubQueue{listErr: errors.New("db down")}
	mockPub := new(MockPublisher)
	r := NewRepublisher(queue, mockPub, time.Minute)

	r.drain(context.Background())

	mockPub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}
