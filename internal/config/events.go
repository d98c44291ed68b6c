package config

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/SAP-F-2025/test-engine-service/internal/events"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventConfig holds configuration for event publishing and the content-change subscription
type EventConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Publisher     string `mapstructure:"publisher"` // kafka, gochannel or mock
	KafkaBrokers  string `mapstructure:"kafka_brokers"`
	SessionTopic  string `mapstructure:"session_topic"`
	ContentTopic  string `mapstructure:"content_topic"`
	ConsumerGroup string `mapstructure:"consumer_group"`

	channelOnce sync.Once
	channel     *gochannel.GoChannel
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// goChannel returns the in-process pub/sub shared by the publisher and the subscriber
func (c *EventConfig) goChannel(logger *slog.Logger) *gochannel.GoChannel {
	c.channelOnce.Do(func() {
		c.channel = gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(logger))
	})
	return c.channel
}

// CreateEventPublisher creates an event publisher based on configuration
func (c *EventConfig) CreateEventPublisher(logger *slog.Logger) (events.EventPublisher, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled, using mock publisher")
		return events.NewMockEventPublisher(logger), nil
	}

	switch c.Publisher {
	case "kafka":
		logger.Info("Creating Kafka event publisher",
			"brokers", c.KafkaBrokers,
			"topic", c.SessionTopic)

		return events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: c.GetKafkaBrokers(),
			TopicName:    c.SessionTopic,
			Logger:       logger,
		})
	case "gochannel":
		logger.Info("Using in-process event publisher", "topic", c.SessionTopic)
		return events.NewWatermillEventPublisher(c.goChannel(logger), c.SessionTopic, logger), nil
	case "mock":
		logger.Info("Using mock event publisher")
		return events.NewMockEventPublisher(logger), nil
	default:
		logger.Warn("Unknown event publisher type, falling back to mock", "publisher", c.Publisher)
		return events.NewMockEventPublisher(logger), nil
	}
}

// CreateSubscriber returns the subscriber for content-change events, or nil when
// the configured transport cannot deliver them.
func (c *EventConfig) CreateSubscriber(logger *slog.Logger) (message.Subscriber, error) {
	if !c.Enabled {
		return nil, nil
	}

	switch c.Publisher {
	case "kafka":
		return events.NewKafkaSubscriber(events.SubscriberConfig{
			KafkaBrokers:  c.GetKafkaBrokers(),
			ConsumerGroup: c.ConsumerGroup,
			Logger:        logger,
		})
	case "gochannel":
		return c.goChannel(logger), nil
	default:
		return nil, nil
	}
}
