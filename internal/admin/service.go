// Package admin serves the dashboard aggregates and user management
// operations. Everything here is computed fresh per request; the dashboard is
// not a hot path and stale analytics are worse than slow ones.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/adwatch/internal/domain"
	"github.com/victornm/adwatch/internal/errors"
)

const (
	trailingWindow = 30 * 24 * time.Hour
	topN           = 5

	defaultPageSize = 10
	maxPageSize     = 100
)

// UserMetrics are the derived per-user figures on the admin detail page.
type UserMetrics struct {
	TotalEarnings    decimal.Decimal
	AverageWatchTime float64
	ActivityByDay    []domain.DayCount
}

// Store is the persistence gateway for admin aggregation and mutation.
// Lookups return (nil, nil) when the row does not exist.
type Store interface {
	CountUsers(ctx context.Context) (int, error)
	CountAds(ctx context.Context) (int, error)
	CountWatches(ctx context.Context) (int, error)
	CountAdmins(ctx context.Context) (int, error)
	SumAdRewards(ctx context.Context) (decimal.Decimal, error)
	SumPaidRewards(ctx context.Context) (decimal.Decimal, error)
	SignupsByDay(ctx context.Context, since time.Time) ([]domain.DayCount, error)
	WatchesByDay(ctx context.Context, since time.Time) ([]domain.DayCount, error)
	TopAds(ctx context.Context, n int) ([]domain.AdStats, error)
	TopUsers(ctx context.Context, n int) ([]domain.UserStats, error)
	SearchUsers(ctx context.Context, search string, limit, offset int) ([]domain.UserStats, int, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UserMetrics(ctx context.Context, id string, since time.Time) (*UserMetrics, error)
	SetAdmin(ctx context.Context, id string, isAdmin bool) (*domain.User, error)

	// PromoteAdmin flips is_admin for the given clerk ID, guarded so it only
	// succeeds while no admin exists.
	PromoteAdmin(ctx context.Context, clerkID string) (*domain.User, error)
}

type Config struct {
	Store Store
}

type Service struct {
	store Store
}

func NewService(c Config) *Service {
	return &Service{store: c.Store}
}

// Analytics is the dashboard payload. TotalEarnings is the catalog's face
// value (sum of every ad's reward), as the dashboard has always shown;
// TotalPaid is the amount actually credited across watches.
type Analytics struct {
	Users     int
	Ads       int
	AdWatches int

	TotalEarnings decimal.Decimal
	TotalPaid     decimal.Decimal

	UserSignups     []domain.DayCount
	WatchesByDay    []domain.DayCount
	TopAds          []domain.AdStats
	MostActiveUsers []domain.UserStats
}

func (s *Service) Analytics(ctx context.Context) (*Analytics, error) {
	var (
		a     Analytics
		err   error
		since = time.Now().Add(-trailingWindow)
	)

	if a.Users, err = s.store.CountUsers(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if a.Ads, err = s.store.CountAds(ctx); err != nil {
		return nil, fmt.Errorf("count ads: %w", err)
	}
	if a.AdWatches, err = s.store.CountWatches(ctx); err != nil {
		return nil, fmt.Errorf("count watches: %w", err)
	}
	if a.TotalEarnings, err = s.store.SumAdRewards(ctx); err != nil {
		return nil, fmt.Errorf("sum ad rewards: %w", err)
	}
	if a.TotalPaid, err = s.store.SumPaidRewards(ctx); err != nil {
		return nil, fmt.Errorf("sum paid rewards: %w", err)
	}
	if a.UserSignups, err = s.store.SignupsByDay(ctx, since); err != nil {
		return nil, fmt.Errorf("signups by day: %w", err)
	}
	if a.WatchesByDay, err = s.store.WatchesByDay(ctx, since); err != nil {
		return nil, fmt.Errorf("watches by day: %w", err)
	}
	if a.TopAds, err = s.store.TopAds(ctx, topN); err != nil {
		return nil, fmt.Errorf("top ads: %w", err)
	}
	if a.MostActiveUsers, err = s.store.TopUsers(ctx, topN); err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}

	return &a, nil
}

type ListUsersRequest struct {
	Page   int
	Limit  int
	Search string
}

type UserList struct {
	Users []domain.UserStats
	Total int
	Pages int
	Page  int
	Limit int
}

func (s *Service) ListUsers(ctx context.Context, req ListUsersRequest) (*UserList, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = defaultPageSize
	}
	if req.Limit > maxPageSize {
		req.Limit = maxPageSize
	}

	users, total, err := s.store.SearchUsers(ctx, req.Search, req.Limit, (req.Page-1)*req.Limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	return &UserList{
		Users: users,
		Total: total,
		Pages: (total + req.Limit - 1) / req.Limit,
		Page:  req.Page,
		Limit: req.Limit,
	}, nil
}

type UserDetail struct {
	User    domain.User
	Metrics UserMetrics
}

func (s *Service) GetUser(ctx context.Context, id string) (*UserDetail, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("user not found"))
	}

	m, err := s.store.UserMetrics(ctx, id, time.Now().Add(-trailingWindow))
	if err != nil {
		return nil, fmt.Errorf("user metrics: %w", err)
	}

	return &UserDetail{User: *u, Metrics: *m}, nil
}

type SetAdminRequest struct {
	UserID  string
	IsAdmin bool
}

func (s *Service) SetAdmin(ctx context.Context, req SetAdminRequest) (*domain.User, error) {
	u, err := s.store.SetAdmin(ctx, req.UserID, req.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("set admin: %w", err)
	}
	if u == nil {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("user not found"))
	}

	return u, nil
}

// Setup promotes the caller to admin, but only while the platform has no
// admin at all. Once any admin exists the endpoint is permanently closed.
func (s *Service) Setup(ctx context.Context, clerkID string) (*domain.User, error) {
	admins, err := s.store.CountAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		return nil, errors.New(errors.CodeAlreadyExists, errors.WithMessagef("admin users already exist"))
	}

	u, err := s.store.PromoteAdmin(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("promote admin: %w", err)
	}
	if u == nil {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("user not found"))
	}

	return u, nil
}
