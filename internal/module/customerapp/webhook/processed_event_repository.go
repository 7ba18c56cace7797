package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

// ProcessedEventRepository remembers provider event ids that were already
// applied so redeliveries can be acknowledged without touching the database.
type ProcessedEventRepository interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Remember(ctx context.Context, eventID string, ttl time.Duration) error
}

type processedEventRepository struct {
	logger *logrus.Logger
	rc     redis.UniversalClient
}

func NewProcessedEventRepository(logger *logrus.Logger, rc redis.UniversalClient) ProcessedEventRepository {
	return &processedEventRepository{
		logger: logger,
		rc:     rc,
	}
}

func processedKey(eventID string) string {
	return fmt.Sprintf("tm-fulfillment:webhook:%s", eventID)
}

// Seen implements ProcessedEventRepository.
func (r *processedEventRepository) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := r.rc.Exists(ctx, processedKey(eventID)).Result()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while checking processed webhook event")
	}

	return n > 0, nil
}

// Remember implements ProcessedEventRepository.
func (r *processedEventRepository) Remember(ctx context.Context, eventID string, ttl time.Duration) error {
	if err := r.rc.Set(ctx, processedKey(eventID), time.Now().Unix(), ttl).Err(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while storing processed webhook event")
	}

	return nil
}
