package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingInvalidator struct {
	mu        sync.Mutex
	tests     []uint
	questions []uint
	done      chan struct{}
}

func (r *recordingInvalidator) InvalidateTest(testID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tests = append(r.tests, testID)
}

func (r *recordingInvalidator) InvalidateAnswers(questionID uint) {
	r.mu.Lock()
	r.questions = append(r.questions, questionID)
	n := len(r.questions)
	r.mu.Unlock()
	if n == 2 {
		close(r.done)
	}
}

func TestNewSessionStartedEvent(t *testing.T) {
	started := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	fresh := NewSessionStartedEvent("s-1", 3, "u-1", started, 600, false)
	resumed := NewSessionStartedEvent("s-1", 3, "u-1", started, 600, true)

	assert.Equal(t, EventSessionStarted, fresh.Type)
	assert.Equal(t, EventSessionResumed, resumed.Type)
	assert.Equal(t, "test-engine-service", fresh.Source)
	assert.Equal(t, "1.0", fresh.Version)
	assert.NotEmpty(t, fresh.ID)
	assert.NotEqual(t, fresh.ID, resumed.ID)

	data, ok := fresh.Data.(SessionStartedEvent)
	require.True(t, ok)
	assert.Equal(t, "s-1", data.SessionID)
	assert.Equal(t, 600, data.TimeLimit)
}

func TestWatermillEventPublisher_GoChannelRoundTrip(t *testing.T) {
	logger := testLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "sessions")
	require.NoError(t, err)

	publisher := NewWatermillEventPublisher(pubSub, "sessions", logger)
	event := NewSessionExpiredEvent("s-9", 4, "u-2", time.Now())
	require.NoError(t, publisher.PublishSessionEvent(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(EventSessionExpired), msg.Metadata.Get("event_type"))

		var decoded SessionEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, EventSessionExpired, decoded.Type)
	case <-ctx.Done():
		t.Fatal("timed out waiting for published event")
	}
}

func TestContentChangeConsumer_InvalidatesKeys(t *testing.T) {
	logger := testLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	invalidator := &recordingInvalidator{done: make(chan struct{})}
	consumer := NewContentChangeConsumer(pubSub, "content", invalidator, logger)

	// Subscribe before publishing; gochannel drops messages with no subscribers.
	messages, err := pubSub.Subscribe(ctx, "content")
	require.NoError(t, err)
	go func() {
		for msg := range messages {
			consumer.handle(msg)
			msg.Ack()
		}
	}()

	publisher := NewWatermillEventPublisher(pubSub, "content", logger)
	testID := uint(7)
	require.NoError(t, publisher.PublishSessionEvent(ctx, NewSessionExpiredEvent("ignored", 1, "u", time.Now())))
	require.NoError(t, publisher.PublishSessionEvent(ctx, NewContentChangedEvent(&testID, []uint{11, 12})))

	select {
	case <-invalidator.done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for invalidation")
	}

	invalidator.mu.Lock()
	defer invalidator.mu.Unlock()
	assert.Equal(t, []uint{7}, invalidator.tests)
	assert.Equal(t, []uint{11, 12}, invalidator.questions)
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	require.NoError(t, mock.PublishSessionEvent(ctx, NewSessionExpiredEvent("s", 1, "u", time.Now())))
	require.NoError(t, mock.PublishSessionEvent(ctx, NewSessionStartedEvent("s", 1, "u", time.Now(), 0, false)))

	assert.Len(t, mock.GetPublishedEvents(), 2)
	assert.Len(t, mock.EventsOfType(EventSessionExpired), 1)

	mock.Err = errors.New("broker down")
	assert.Error(t, mock.PublishSessionEvent(ctx, NewSessionExpiredEvent("s", 1, "u", time.Now())))

	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())
}
