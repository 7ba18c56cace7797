package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tsel-ticketmaster/tm-fulfillment/config"
)

// NewWriter returns a topic-less writer, every message names its own topic.
func NewWriter() *kafka.Writer {
	c := config.Get()

	return &kafka.Writer{
		Addr:                   kafka.TCP(c.Kafka.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}
