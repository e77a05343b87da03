package events

import (
	"context"

	"github.com/parkfinder/service-parking/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// CatalogReloader refreshes the in-memory spot catalog.
type CatalogReloader interface {
	Reload(ctx context.Context) error
}

// CatalogEventConsumer listens to catalog events and triggers a reload.
type CatalogEventConsumer struct {
	consumer *kafka.Consumer
	reloader CatalogReloader
	logger   *zap.Logger
}

// NewCatalogEventConsumer creates a new CatalogEventConsumer.
func NewCatalogEventConsumer(
	brokers []string,
	groupID string,
	reloader CatalogReloader,
	logger *zap.Logger,
) *CatalogEventConsumer {
	return &CatalogEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, TopicCatalogEvents, logger),
		reloader: reloader,
		logger:   logger,
	}
}

// Start begins consuming catalog events. This blocks until the context is cancelled.
func (c *CatalogEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *CatalogEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *CatalogEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	return c.handle(ctx, msg.Value)
}

func (c *CatalogEventConsumer) handle(ctx context.Context, value []byte) error {
	cloudEvent, err := kafka.ParseCloudEvent(value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from catalog topic",
			zap.Error(err),
			zap.String("raw", string(value)),
		)
		return nil // malformed messages are not retried
	}

	switch cloudEvent.Type {
	case CatalogUpdated:
		return c.handleCatalogUpdated(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled catalog event type", zap.String("type", cloudEvent.Type))
		return nil
	}
}

func (c *CatalogEventConsumer) handleCatalogUpdated(ctx context.Context, cloudEvent *kafka.CloudEvent) error {
	var evt CatalogUpdatedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse CatalogUpdatedEvent data", zap.Error(err))
		return nil
	}

	c.logger.Info("processing catalog updated event",
		zap.String("event_id", cloudEvent.ID),
		zap.String("source", cloudEvent.Source),
		zap.String("reason", evt.Reason),
	)

	if err := c.reloader.Reload(ctx); err != nil {
		c.logger.Error("catalog reload after update event failed", zap.Error(err))
		return err
	}
	return nil
}
