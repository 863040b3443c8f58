// Package user serves profiles and mirrors the identity provider's user
// lifecycle into the local store.
package user

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/victornm/adwatch/internal/domain"
	"github.com/victornm/adwatch/internal/errors"
	"github.com/victornm/adwatch/internal/event"
)

const recentActivityLimit = 5

// Store is the persistence gateway for users. Lookups return (nil, nil) when
// the row does not exist.
type Store interface {
	GetByClerkID(ctx context.Context, clerkID string) (*domain.User, error)
	RecentWatches(ctx context.Context, userID string, limit int) ([]domain.Activity, error)
	AddBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
	Upsert(ctx context.Context, clerkID, email, name string) error
	Delete(ctx context.Context, clerkID string) error
}

type Config struct {
	Store    Store
	EventBus *event.Bus
}

type Service struct {
	store Store
	eb    *event.Bus
}

func NewService(c Config) *Service {
	return &Service{
		store: c.Store,
		eb:    c.EventBus,
	}
}

type Profile struct {
	User           domain.User
	RecentActivity []domain.Activity
}

// Get returns the caller's profile with their five most recent watches.
func (s *Service) Get(ctx context.Context, clerkID string) (*Profile, error) {
	u, err := s.store.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("user not found"))
	}

	activity, err := s.store.RecentWatches(ctx, u.ID, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("recent watches: %w", err)
	}

	return &Profile{
		User:           *u,
		RecentActivity: activity,
	}, nil
}

type AddBalanceRequest struct {
	ClerkID string
	Amount  decimal.Decimal
}

type AddBalanceResponse struct {
	Balance decimal.Decimal
}

// AddBalance credits the caller's balance directly. The amount must be
// positive; the redis mirror rides the bus after the write commits.
func (s *Service) AddBalance(ctx context.Context, req AddBalanceRequest) (*AddBalanceResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("amount must be a positive number"))
	}

	u, err := s.store.GetByClerkID(ctx, req.ClerkID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("user not found"))
	}

	balance, err := s.store.AddBalance(ctx, u.ID, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("add balance: %w", err)
	}

	s.eb.Publish(ctx, domain.EventBalanceCredited{
		UserID: u.ID,
		Amount: req.Amount,
	})

	return &AddBalanceResponse{Balance: balance}, nil
}

// IsAdmin reports whether the caller's user row carries the admin flag.
func (s *Service) IsAdmin(ctx context.Context, clerkID string) (bool, error) {
	u, err := s.store.GetByClerkID(ctx, clerkID)
	if err != nil {
		return false, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return false, errors.New(errors.CodeNotFound, errors.WithMessagef("user not found"))
	}

	return u.IsAdmin, nil
}

type SyncRequest struct {
	ClerkID string
	Email   string
	Name    string
}

// SyncUpsert applies a user.created or user.updated event. Upsert semantics
// make redelivered events harmless.
func (s *Service) SyncUpsert(ctx context.Context, req SyncRequest) error {
	if req.ClerkID == "" {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("user id is required"))
	}

	if err := s.store.Upsert(ctx, req.ClerkID, req.Email, req.Name); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	return nil
}

// SyncDelete applies a user.deleted event. Deleting an already-absent user is
// a no-op.
func (s *Service) SyncDelete(ctx context.Context, clerkID string) error {
	if clerkID == "" {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("user id is required"))
	}

	if err := s.store.Delete(ctx, clerkID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}
