package outbox

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

type Event struct {
	ID            string
	AggregateType string
	AggregateID   string
	Type          string
	Topic         string
	Payload       []byte
	Headers       map[string]string
	Status        Status
	RetryCount    int
	LastError     *string
	CreatedAt     time.Time
}
