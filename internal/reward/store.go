package reward

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/victornm/adwatch/internal/domain"
	"github.com/victornm/adwatch/internal/errors"
)

const codeUniqueViolation = "23505"

// PGStore is the postgres-backed reward store.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) GetUserByClerkID(ctx context.Context, clerkID string) (*domain.User, error) {
	const stmt = `
SELECT id, clerk_id, email, name, balance, ads_watched, watch_time_minutes, feedback_score, is_admin
FROM users
WHERE clerk_id = $1;`

	var u domain.User
	err := s.db.QueryRow(ctx, stmt, clerkID).Scan(&u.ID, &u.ClerkID, &u.Email, &u.Name,
		&u.Balance, &u.AdsWatched, &u.WatchTimeMinutes, &u.FeedbackScore, &u.IsAdmin)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (s *PGStore) GetAd(ctx context.Context, adID string) (*domain.Ad, error) {
	const adStmt = `
SELECT id, title, description, duration, reward, category, difficulty, video_url
FROM ads
WHERE id = $1;`

	var ad domain.Ad
	err := s.db.QueryRow(ctx, adStmt, adID).Scan(&ad.ID, &ad.Title, &ad.Description,
		&ad.Duration, &ad.Reward, &ad.Category, &ad.Difficulty, &ad.VideoURL)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	const questionsStmt = `SELECT id, ad_id, question, options FROM questions WHERE ad_id = $1 ORDER BY id;`

	rows, err := s.db.Query(ctx, questionsStmt, adID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}

	ad.Questions, err = pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Question, error) {
		var q domain.Question
		err := r.Scan(&q.ID, &q.AdID, &q.Question, &q.Options)
		return q, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect questions: %w", err)
	}

	return &ad, nil
}

func (s *PGStore) RecordWatch(ctx context.Context, w *domain.AdWatch, minutes int, reward decimal.Decimal) (err error) {
	watchID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate watch ID: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		insWatchStmt = `
INSERT INTO ad_watches (id, user_id, ad_id, watch_time, completed, feedback, client_token, created_at)
VALUES ($1, $2, $3, $4, TRUE, NULLIF($5, ''), NULLIF($6, ''), now());`
		insAnswerStmt = `INSERT INTO answers (id, ad_watch_id, question_id, answer) VALUES ($1, $2, $3, $4);`
		updUserStmt   = `
UPDATE users
SET balance = balance + $2,
    ads_watched = ads_watched + 1,
    watch_time_minutes = watch_time_minutes + $3,
    last_active = now(),
    updated_at = now()
WHERE id = $1;`
	)

	_, err = tx.Exec(ctx, insWatchStmt, watchID, w.UserID, w.AdID, w.WatchTime, w.Feedback, w.ClientToken)

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("this session was already submitted"),
			errors.WithCause(err))
	}
	if err != nil {
		return fmt.Errorf("insert ad watch: %w", err)
	}
	w.ID = watchID.String()

	for i := range w.Answers {
		answerID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate answer ID: %w", err)
		}

		if _, err := tx.Exec(ctx, insAnswerStmt, answerID, watchID, w.Answers[i].QuestionID, w.Answers[i].Answer); err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
		w.Answers[i].ID = answerID.String()
		w.Answers[i].AdWatchID = watchID.String()
	}

	if _, err = tx.Exec(ctx, updUserStmt, w.UserID, reward, minutes); err != nil {
		return fmt.Errorf("update user stats: %w", err)
	}

	return tx.Commit(ctx)
}
