package stats_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/victornm/adwatch/internal/domain"
	"github.com/victornm/adwatch/internal/event"
	"github.com/victornm/adwatch/internal/stats"
)

func TestService_RecordWatch(t *testing.T) {
	t.Parallel()

	s, _ := makeService(t, event.NewBus())

	for i := 0; i < 3; i++ {
		err := s.RecordWatch(context.Background(), domain.EventAdWatched{
			UserID: "u1",
			AdID:   "a1",
			Reward: decimal.NewFromFloat(0.25),
		})
		require.NoError(t, err)
	}

	users, err := s.UserWatchCount(context.Background(), "u1")
	require.NoError(t, err)
	require.EqualValues(t, 3, users)

	views, err := s.AdViewCount(context.Background(), "a1")
	require.NoError(t, err)
	require.EqualValues(t, 3, views)
}

func TestService_CountersRideTheBus(t *testing.T) {
	t.Parallel()

	eb := event.NewBus()
	s, _ := makeService(t, eb)

	eb.Publish(context.Background(), domain.EventAdWatched{
		UserID: "u1",
		AdID:   "a1",
		Reward: decimal.NewFromFloat(0.5),
	})
	eb.Publish(context.Background(), domain.EventBalanceCredited{
		UserID: "u1",
		Amount: decimal.NewFromFloat(1.5),
	})
	eb.Stop()

	watches, err := s.UserWatchCount(context.Background(), "u1")
	require.NoError(t, err)
	require.EqualValues(t, 1, watches)

	views, err := s.AdViewCount(context.Background(), "a1")
	require.NoError(t, err)
	require.EqualValues(t, 1, views)
}

func TestService_MissingCountersReadZero(t *testing.T) {
	t.Parallel()

	s, _ := makeService(t, event.NewBus())

	watches, err := s.UserWatchCount(context.Background(), "nobody")
	require.NoError(t, err)
	require.Zero(t, watches)

	views, err := s.AdViewCount(context.Background(), "nothing")
	require.NoError(t, err)
	require.Zero(t, views)
}

func makeService(t *testing.T, eb *event.Bus) (*stats.Service, *miniredis.Miniredis) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	return stats.NewService(stats.Config{
		EventBus: eb,
		Redis:    rc,
		Prefix:   "test",
	}), rs
}
