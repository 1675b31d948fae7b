package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/config"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/internal/models"
	"github.com/websub-pipeline/youtube-websub-pipeline-go/pkg/logger"
)

// Handler processes one enrichment message. Returning an error causes the
// delivery to be rejected and requeued once.
type Handler func(ctx context.Context, msg models.EnrichmentMessage) error

// Consumer reads enrichment messages from the queue and dispatches them to
// a Handler.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
}

// NewConsumer connects to RabbitMQ and declares the shared topology.
func NewConsumer(cfg *config.RabbitMQConfig) (*Consumer, error) {
	conn, ch, err := dial(cfg)
	if err != nil {
		return nil, err
	}

	// One unacked message per worker keeps redelivery windows small.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	logger.Log.Info("RabbitMQ consumer connected",
		zap.String("queue", cfg.Queue),
	)

	return &Consumer{conn: conn, channel: ch, config: cfg}, nil
}

// Consume blocks, delivering messages to handler until ctx is cancelled or
// the broker closes the channel.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	deliveries, err := c.channel.Consume(
		c.config.Queue, // queue
		"",             // consumer tag
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handleDelivery(ctx, d, handler)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery, handler Handler) {
	var msg models.EnrichmentMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		logger.Log.Error("Discarding malformed enrichment message",
			zap.Error(err),
			zap.String("messageId", d.MessageId),
		)
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		logger.Log.Error("Enrichment handler failed",
			zap.Error(err),
			zap.String("videoId", msg.VideoID),
			zap.Bool("redelivered", d.Redelivered),
		)
		// Requeue once; a second failure drops the message.
		_ = d.Nack(false, !d.Redelivered)
		return
	}

	_ = d.Ack(false)
}

// Close closes the consumer's channel and connection.
func (c *Consumer) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing consumer: %v", errs)
	}
	return nil
}
