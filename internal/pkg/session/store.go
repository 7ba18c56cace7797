package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type Session interface {
	Set(ctx context.Context, sessionID string, acc Account, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (Account, error)
	Delete(ctx context.Context, sessionID string) error
}

type redisSessionStore struct {
	logger *logrus.Logger
	rc     redis.UniversalClient
}

func NewRedisSessionStore(logger *logrus.Logger, rc redis.UniversalClient) Session {
	return &redisSessionStore{
		logger: logger,
		rc:     rc,
	}
}

func key(sessionID string) string {
	return fmt.Sprintf("tm-session:%s", sessionID)
}

// Set implements Session.
func (s *redisSessionStore) Set(ctx context.Context, sessionID string, acc Account, ttl time.Duration) error {
	buff, _ := json.Marshal(acc)

	if err := s.rc.Set(ctx, key(sessionID), buff, ttl).Err(); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while storing session")
	}

	return nil
}

// Get implements Session.
func (s *redisSessionStore) Get(ctx context.Context, sessionID string) (Account, error) {
	buff, err := s.rc.Get(ctx, key(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Account{}, errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "session is expired or invalid")
		}
		s.logger.WithContext(ctx).WithError(err).Error()
		return Account{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting session")
	}

	var acc Account
	if err := json.Unmarshal(buff, &acc); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return Account{}, errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "session is expired or invalid")
	}

	return acc, nil
}

// Delete implements Session.
func (s *redisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rc.Del(ctx, key(sessionID)).Err(); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while deleting session")
	}

	return nil
}
