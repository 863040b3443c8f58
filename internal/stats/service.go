// Package stats maintains the hot engagement counters in redis. Counters are
// updated off the event bus after the relational write commits; they are
// eventually consistent and never read back to serve money.
package stats

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/adwatch/internal/domain"
	"github.com/victornm/adwatch/internal/event"
)

const (
	fieldAdsWatched = "adsWatched"
	fieldBalance    = "balance"
	fieldViews      = "views"
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

type Service struct {
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	c.EventBus.Subscribe(domain.EventNameAdWatched, func(ctx context.Context, e event.Event) error {
		return s.RecordWatch(ctx, e.(domain.EventAdWatched))
	})

	c.EventBus.Subscribe(domain.EventNameBalanceCredited, func(ctx context.Context, e event.Event) error {
		return s.RecordCredit(ctx, e.(domain.EventBalanceCredited))
	})

	return s
}

// RecordWatch bumps the per-user watch counter and the per-ad view counter.
func (s *Service) RecordWatch(ctx context.Context, e domain.EventAdWatched) error {
	if err := s.redis.HIncrBy(ctx, s.userKey(e.UserID), fieldAdsWatched, 1).Err(); err != nil {
		return fmt.Errorf("increment user watch count: %w", err)
	}

	if err := s.redis.HIncrBy(ctx, s.adKey(e.AdID), fieldViews, 1).Err(); err != nil {
		return fmt.Errorf("increment ad view count: %w", err)
	}

	return s.redis.HIncrByFloat(ctx, s.userKey(e.UserID), fieldBalance, e.Reward.InexactFloat64()).Err()
}

// RecordCredit mirrors a direct balance credit into the user counter hash.
func (s *Service) RecordCredit(ctx context.Context, e domain.EventBalanceCredited) error {
	if err := s.redis.HIncrByFloat(ctx, s.userKey(e.UserID), fieldBalance, e.Amount.InexactFloat64()).Err(); err != nil {
		return fmt.Errorf("mirror balance credit: %w", err)
	}

	return nil
}

// UserWatchCount reads the per-user watch counter. Missing keys count as zero.
func (s *Service) UserWatchCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.redis.HGet(ctx, s.userKey(userID), fieldAdsWatched).Int64()
	if err == redis.Nil {
		return 0, nil
	}

	return n, err
}

// AdViewCount reads the per-ad view counter. Missing keys count as zero.
func (s *Service) AdViewCount(ctx context.Context, adID string) (int64, error) {
	n, err := s.redis.HGet(ctx, s.adKey(adID), fieldViews).Int64()
	if err == redis.Nil {
		return 0, nil
	}

	return n, err
}

func (s *Service) userKey(userID string) string {
	return fmt.Sprintf("%s:user:%s", s.prefix, userID)
}

func (s *Service) adKey(adID string) string {
	return fmt.Sprintf("%s:ad:%s:analytics", s.prefix, adID)
}
