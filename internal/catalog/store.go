package catalog

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/adwatch/internal/domain"
)

// PGStore is the postgres-backed catalog store.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) ListAds(ctx context.Context) ([]domain.Ad, error) {
	const adsStmt = `
SELECT id, title, description, duration, reward, category, difficulty, video_url
FROM ads
ORDER BY created_at;`

	rows, err := s.db.Query(ctx, adsStmt)
	if err != nil {
		return nil, fmt.Errorf("query ads: %w", err)
	}

	ads, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Ad, error) {
		var ad domain.Ad
		err := r.Scan(&ad.ID, &ad.Title, &ad.Description, &ad.Duration, &ad.Reward,
			&ad.Category, &ad.Difficulty, &ad.VideoURL)
		return ad, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect ads: %w", err)
	}

	const questionsStmt = `SELECT id, ad_id, question, options FROM questions ORDER BY id;`

	rows, err = s.db.Query(ctx, questionsStmt)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}

	questions, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Question, error) {
		var q domain.Question
		err := r.Scan(&q.ID, &q.AdID, &q.Question, &q.Options)
		return q, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect questions: %w", err)
	}

	byAd := make(map[string][]domain.Question, len(ads))
	for _, q := range questions {
		byAd[q.AdID] = append(byAd[q.AdID], q)
	}
	for i := range ads {
		ads[i].Questions = byAd[ads[i].ID]
	}

	return ads, nil
}

// InsertAd writes the ad and its questions in one transaction and fills in
// the generated IDs.
func (s *PGStore) InsertAd(ctx context.Context, ad *domain.Ad) (err error) {
	adID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate ad ID: %w", err)
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
		insAdStmt = `
INSERT INTO ads (id, title, description, duration, reward, category, difficulty, video_url, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now());`
		insQuestionStmt = `INSERT INTO questions (id, ad_id, question, options) VALUES ($1, $2, $3, $4);`
	)

	_, err = tx.Exec(ctx, insAdStmt, adID, ad.Title, ad.Description, ad.Duration,
		ad.Reward, ad.Category, ad.Difficulty, ad.VideoURL)
	if err != nil {
		return fmt.Errorf("insert ad: %w", err)
	}
	ad.ID = adID.String()

	for i := range ad.Questions {
		qID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate question ID: %w", err)
		}

		if _, err := tx.Exec(ctx, insQuestionStmt, qID, adID, ad.Questions[i].Question, ad.Questions[i].Options); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		ad.Questions[i].ID = qID.String()
		ad.Questions[i].AdID = adID.String()
	}

	return tx.Commit(ctx)
}
