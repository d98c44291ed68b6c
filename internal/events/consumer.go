package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ContentInvalidator drops derived content when authored data changes
type ContentInvalidator interface {
	InvalidateTest(testID uint)
	InvalidateAnswers(questionID uint)
}

// ContentChangeConsumer listens for authoring events and invalidates the matching cache keys.
type ContentChangeConsumer struct {
	subscriber  message.Subscriber
	topicName   string
	invalidator ContentInvalidator
	logger      *slog.Logger
}

// SubscriberConfig holds configuration for the Kafka content-change subscriber
type SubscriberConfig struct {
	KafkaBrokers  []string
	ConsumerGroup string
	Logger        *slog.Logger
}

// NewKafkaSubscriber creates a Watermill Kafka subscriber
func NewKafkaSubscriber(config SubscriberConfig) (message.Subscriber, error) {
	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:       config.KafkaBrokers,
		Unmarshaler:   kafka.DefaultMarshaler{},
		ConsumerGroup: config.ConsumerGroup,
	}, watermill.NewSlogLogger(config.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}
	return subscriber, nil
}

func NewContentChangeConsumer(subscriber message.Subscriber, topicName string, invalidator ContentInvalidator, logger *slog.Logger) *ContentChangeConsumer {
	return &ContentChangeConsumer{
		subscriber:  subscriber,
		topicName:   topicName,
		invalidator: invalidator,
		logger:      logger,
	}
}

// Run consumes messages until ctx is cancelled or the subscriber closes its channel.
func (c *ContentChangeConsumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topicName)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.topicName, err)
	}

	c.logger.Info("Content change consumer started", "topic", c.topicName)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.handle(msg)
			msg.Ack()
		}
	}
}

// Close closes the underlying subscriber
func (c *ContentChangeConsumer) Close() error {
	return c.subscriber.Close()
}

// Malformed messages are acked and dropped; redelivery would not fix them.
func (c *ContentChangeConsumer) handle(msg *message.Message) {
	var envelope struct {
		Type EventType           `json:"type"`
		Data ContentChangedEvent `json:"data"`
	}
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		c.logger.Warn("Dropping malformed content change message", "message_id", msg.UUID, "error", err)
		return
	}
	if envelope.Type != EventTestContentChanged {
		return
	}

	if envelope.Data.TestID != nil {
		c.invalidator.InvalidateTest(*envelope.Data.TestID)
	}
	for _, questionID := range envelope.Data.QuestionIDs {
		c.invalidator.InvalidateAnswers(questionID)
	}

	c.logger.Debug("Invalidated content caches",
		"message_id", msg.UUID,
		"test_id", envelope.Data.TestID,
		"question_count", len(envelope.Data.QuestionIDs))
}

// NewContentChangedEvent builds the envelope an authoring service publishes.
func NewContentChangedEvent(testID *uint, questionIDs []uint) *SessionEvent {
	return newEvent(EventTestContentChanged, ContentChangedEvent{TestID: testID, QuestionIDs: questionIDs})
}
