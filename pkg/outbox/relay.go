package outbox

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, key string, headers map[string]string, payload []byte) error
}

type RelayProperty struct {
	ID        string
	BatchSize int
	Interval  time.Duration
	Lease     time.Duration
	MaxRetry  int
}

// Relay moves committed outbox events to the broker.
type Relay struct {
	logger    *logrus.Logger
	store     Store
	publisher Publisher
	id        string
	batchSize int
	interval  time.Duration
	lease     time.Duration
	maxRetry  int
}

func NewRelay(logger *logrus.Logger, store Store, publisher Publisher, props RelayProperty) *Relay {
	r := &Relay{
		logger:    logger,
		store:     store,
		publisher: publisher,
		id:        props.ID,
		batchSize: props.BatchSize,
		interval:  props.Interval,
		lease:     props.Lease,
		maxRetry:  props.MaxRetry,
	}

	if r.batchSize <= 0 {
		r.batchSize = 100
	}
	if r.interval <= 0 {
		r.interval = 500 * time.Millisecond
	}
	if r.lease <= 0 {
		r.lease = 30 * time.Second
	}
	if r.maxRetry <= 0 {
		r.maxRetry = 10
	}

	return r
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	r.logger.WithField("relay_id", r.id).Info("outbox relay started")

	for {
		select {
		case <-ctx.Done():
			r.logger.WithField("relay_id", r.id).Info("outbox relay stopping")
			return nil
		case <-t.C:
			if _, err := r.Flush(ctx); err != nil {
				r.logger.WithContext(ctx).WithError(err).WithField("relay_id", r.id).Error("outbox relay flush failed")
			}
		}
	}
}

// Flush publishes one batch and returns how many events were sent.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	events, err := r.store.LockBatch(ctx, r.id, r.batchSize, r.lease)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, e := range events {
		headers := make(map[string]string, len(e.Headers)+2)
		for k, v := range e.Headers {
			headers[k] = v
		}
		headers["event_id"] = e.ID
		headers["event_type"] = e.Type

		if err := r.publisher.Publish(ctx, e.Topic, e.AggregateID, headers, e.Payload); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
				"event_id":    e.ID,
				"event_type":  e.Type,
				"retry_count": e.RetryCount,
			}).Warn("outbox dispatch failed")

			if err := r.store.MarkFailed(ctx, e.ID, err.Error(), r.maxRetry); err != nil {
				r.logger.WithContext(ctx).WithError(err).WithField("event_id", e.ID).Error("outbox mark failed error")
			}
			continue
		}

		if err := r.store.MarkSent(ctx, e.ID); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("event_id", e.ID).Error("outbox mark sent error")
			continue
		}

		sent++
	}

	return sent, nil
}
