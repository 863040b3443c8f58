package user

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/victornm/adwatch/internal/domain"
)

// New accounts start with a perfect feedback score, matching the value set on
// first sign-in.
const initialFeedbackScore = 100

// PGStore is the postgres-backed user store.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) GetByClerkID(ctx context.Context, clerkID string) (*domain.User, error) {
	const stmt = `
SELECT id, clerk_id, email, name, balance, ads_watched, watch_time_minutes,
       feedback_score, is_admin, last_active, created_at, updated_at
FROM users
WHERE clerk_id = $1;`

	var u domain.User
	err := s.db.QueryRow(ctx, stmt, clerkID).Scan(&u.ID, &u.ClerkID, &u.Email, &u.Name,
		&u.Balance, &u.AdsWatched, &u.WatchTimeMinutes, &u.FeedbackScore, &u.IsAdmin,
		&u.LastActive, &u.CreatedAt, &u.UpdatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (s *PGStore) RecentWatches(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	const stmt = `
SELECT a.title, w.created_at, a.reward
FROM ad_watches w
JOIN ads a ON a.id = w.ad_id
WHERE w.user_id = $1
ORDER BY w.created_at DESC
LIMIT $2;`

	rows, err := s.db.Query(ctx, stmt, userID, limit)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Activity, error) {
		var a domain.Activity
		err := r.Scan(&a.Title, &a.Date, &a.Amount)
		return a, err
	})
}

func (s *PGStore) AddBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	const stmt = `
UPDATE users
SET balance = balance + $2, last_active = now(), updated_at = now()
WHERE id = $1
RETURNING balance;`

	var balance decimal.Decimal
	if err := s.db.QueryRow(ctx, stmt, userID, amount).Scan(&balance); err != nil {
		return decimal.Zero, err
	}

	return balance, nil
}

func (s *PGStore) Upsert(ctx context.Context, clerkID, email, name string) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate user ID: %w", err)
	}

	const stmt = `
INSERT INTO users (id, clerk_id, email, name, balance, ads_watched, watch_time_minutes,
                   feedback_score, is_admin, last_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, 0, 0, 0, $5, FALSE, now(), now(), now())
ON CONFLICT (clerk_id) DO UPDATE
SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = now();`

	_, err = s.db.Exec(ctx, stmt, id, clerkID, email, name, initialFeedbackScore)
	return err
}

func (s *PGStore) Delete(ctx context.Context, clerkID string) error {
	const stmt = `DELETE FROM users WHERE clerk_id = $1;`

	_, err := s.db.Exec(ctx, stmt, clerkID)
	return err
}
