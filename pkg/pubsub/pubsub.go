package pubsub

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, key string, headers map[string]string, payload []byte) error
	Close() error
}

// MessageWriter is the part of *kafka.Writer the publisher relies on.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	logger *logrus.Logger
	writer MessageWriter
}

func PublisherFromKafkaWriter(logger *logrus.Logger, writer MessageWriter) Publisher {
	return &kafkaPublisher{
		logger: logger,
		writer: writer,
	}
}

// Publish implements Publisher. The trace context of ctx travels in the message headers.
func (p *kafkaPublisher) Publish(ctx context.Context, topic string, key string, headers map[string]string, payload []byte) error {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	kafkaHeaders := make([]kafka.Header, 0, len(headers)+len(carrier))
	for k, v := range headers {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: k, Value: []byte(v)})
	}
	for k, v := range carrier {
		if _, ok := headers[k]; ok {
			continue
		}
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: k, Value: []byte(v)})
	}

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   payload,
		Headers: kafkaHeaders,
		Time:    time.Now().UTC(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
			"topic": topic,
			"key":   key,
		}).Error("failed to publish message")
		return err
	}

	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
