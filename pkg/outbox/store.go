package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

type Store interface {
	Save(ctx context.Context, e Event, tx *sql.Tx) error
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ID string) error
	MarkFailed(ctx context.Context, ID string, errMsg string, maxRetry int) error
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type store struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewStore(logger *logrus.Logger, db *sql.DB) Store {
	return &store{
		logger: logger,
		db:     db,
	}
}

// Save implements Store. It is meant to run inside the transaction that
// changes the aggregate so the event exists iff the change committed.
func (s *store) Save(ctx context.Context, e Event, tx *sql.Tx) error {
	var cmd sqlCommand = s.db

	if tx != nil {
		cmd = tx
	}

	headers, err := json.Marshal(e.Headers)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return err
	}

	query := `
		INSERT INTO outbox
		(
			id, aggregate_type, aggregate_id, event_type, topic, payload, headers, status, retry_count, created_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8, 0, $9
		)
	`

	_, err = cmd.ExecContext(ctx, query, e.ID, e.AggregateType, e.AggregateID, e.Type, e.Topic, string(e.Payload), string(headers), string(StatusPending), e.CreatedAt)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return err
	}

	return nil
}

// LockBatch implements Store. Rows are leased to relayID; a lease that runs
// out makes the rows claimable again by any relay.
func (s *store) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	query := `
		UPDATE outbox
		SET
			status = $1,
			relay_id = $2,
			lease_until = now() + ($3::bigint * interval '1 millisecond')
		WHERE id IN (
			SELECT id FROM outbox
			WHERE
				status = $4
			OR
				(status = $1 AND lease_until < now())
			ORDER BY created_at
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, aggregate_type, aggregate_id, event_type, topic, payload, headers, status, retry_count, created_at
	`

	rows, err := s.db.QueryContext(ctx, query, string(StatusInProgress), relayID, lease.Milliseconds(), string(StatusPending), batchSize)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return nil, err
	}
	defer rows.Close()

	var data = make([]Event, 0)
	for rows.Next() {
		var e Event
		var payload, headers []byte

		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.Type, &e.Topic, &payload, &headers, &e.Status, &e.RetryCount, &e.CreatedAt); err != nil {
			s.logger.WithContext(ctx).WithError(err).Error()
			return nil, err
		}

		e.Payload = payload
		if len(headers) > 0 {
			if err := json.Unmarshal(headers, &e.Headers); err != nil {
				s.logger.WithContext(ctx).WithError(err).WithField("event_id", e.ID).Warn("malformed outbox headers")
			}
		}

		data = append(data, e)
	}

	return data, rows.Err()
}

// MarkSent implements Store.
func (s *store) MarkSent(ctx context.Context, ID string) error {
	query := `UPDATE outbox SET status = $1, sent_at = now(), relay_id = NULL, lease_until = NULL WHERE id = $2`

	if _, err := s.db.ExecContext(ctx, query, string(StatusSent), ID); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return err
	}

	return nil
}

// MarkFailed implements Store. The event goes back to pending until it has
// failed maxRetry times.
func (s *store) MarkFailed(ctx context.Context, ID string, errMsg string, maxRetry int) error {
	query := `
		UPDATE outbox
		SET
			retry_count = retry_count + 1,
			last_error = $1,
			status = CASE WHEN retry_count + 1 >= $2 THEN $3 ELSE $4 END,
			relay_id = NULL,
			lease_until = NULL
		WHERE id = $5
	`

	if _, err := s.db.ExecContext(ctx, query, errMsg, maxRetry, string(StatusFailed), string(StatusPending), ID); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return err
	}

	return nil
}
