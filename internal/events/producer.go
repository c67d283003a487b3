package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes lifecycle events to the inventory topic. All publish
// failures are reported to the caller and are expected to be logged, never
// to fail the triggering request.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewProducer(brokers, topic string, tlsConfig *tls.Config, logger *zap.Logger) *Producer {
	transport := &kafka.Transport{}
	if tlsConfig != nil {
		transport.TLS = tlsConfig
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		Transport:    transport,
	}

	return &Producer{
		writer: writer,
		logger: logger,
	}
}

func (p *Producer) PublishReconciled(ctx context.Context, orderID int64, itemsDeducted int) error {
	return p.publish(ctx, Envelope{
		EventID:       uuid.NewString(),
		Type:          TypeInventoryReconciled,
		Timestamp:     time.Now().UTC(),
		OrderID:       orderID,
		ItemsDeducted: itemsDeducted,
	})
}

func (p *Producer) PublishEvicted(ctx context.Context, deleted int) error {
	return p.publish(ctx, Envelope{
		EventID:         uuid.NewString(),
		Type:            TypeVariantsEvicted,
		Timestamp:       time.Now().UTC(),
		VariantsDeleted: deleted,
	})
}

func (p *Producer) publish(ctx context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.Error(err))
		return err
	}

	msg := kafka.Message{
		Key:   []byte(env.EventID),
		Value: value,
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("event_id", env.EventID),
			zap.String("type", env.Type),
			zap.Error(err))
		return err
	}

	p.logger.Info("Event published",
		zap.String("event_id", env.EventID),
		zap.String("type", env.Type))
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
