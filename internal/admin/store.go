package admin

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/victornm/adwatch/internal/domain"
)

// PGStore is the postgres-backed admin store.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users;`)
}

func (s *PGStore) CountAds(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM ads;`)
}

func (s *PGStore) CountWatches(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM ad_watches;`)
}

func (s *PGStore) CountAdmins(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users WHERE is_admin;`)
}

func (s *PGStore) count(ctx context.Context, stmt string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, stmt).Scan(&n)
	return n, err
}

func (s *PGStore) SumAdRewards(ctx context.Context) (decimal.Decimal, error) {
	const stmt = `SELECT COALESCE(SUM(reward), 0) FROM ads;`

	var sum decimal.Decimal
	err := s.db.QueryRow(ctx, stmt).Scan(&sum)
	return sum, err
}

func (s *PGStore) SumPaidRewards(ctx context.Context) (decimal.Decimal, error) {
	const stmt = `
SELECT COALESCE(SUM(a.reward), 0)
FROM ad_watches w
JOIN ads a ON a.id = w.ad_id;`

	var sum decimal.Decimal
	err := s.db.QueryRow(ctx, stmt).Scan(&sum)
	return sum, err
}

func (s *PGStore) SignupsByDay(ctx context.Context, since time.Time) ([]domain.DayCount, error) {
	const stmt = `
SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day, COUNT(*)
FROM users
WHERE created_at >= $1
GROUP BY 1
ORDER BY 1;`

	return s.dayCounts(ctx, stmt, since)
}

func (s *PGStore) WatchesByDay(ctx context.Context, since time.Time) ([]domain.DayCount, error) {
	const stmt = `
SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day, COUNT(*)
FROM ad_watches
WHERE created_at >= $1
GROUP BY 1
ORDER BY 1;`

	return s.dayCounts(ctx, stmt, since)
}

func (s *PGStore) dayCounts(ctx context.Context, stmt string, args ...any) ([]domain.DayCount, error) {
	rows, err := s.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.DayCount, error) {
		var d domain.DayCount
		err := r.Scan(&d.Date, &d.Count)
		return d, err
	})
}

func (s *PGStore) TopAds(ctx context.Context, n int) ([]domain.AdStats, error) {
	const stmt = `
SELECT a.id, a.title, a.description, a.duration, a.reward, a.category, a.difficulty, a.video_url,
       COUNT(w.id) AS watch_count
FROM ads a
LEFT JOIN ad_watches w ON w.ad_id = a.id
GROUP BY a.id
ORDER BY watch_count DESC, a.created_at
LIMIT $1;`

	rows, err := s.db.Query(ctx, stmt, n)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.AdStats, error) {
		var st domain.AdStats
		err := r.Scan(&st.Ad.ID, &st.Ad.Title, &st.Ad.Description, &st.Ad.Duration, &st.Ad.Reward,
			&st.Ad.Category, &st.Ad.Difficulty, &st.Ad.VideoURL, &st.WatchCount)
		return st, err
	})
}

const userStatsColumns = `
u.id, u.clerk_id, u.email, u.name, u.balance, u.ads_watched, u.watch_time_minutes,
u.feedback_score, u.is_admin, u.last_active, u.created_at, u.updated_at,
COUNT(w.id) AS watch_count`

func (s *PGStore) TopUsers(ctx context.Context, n int) ([]domain.UserStats, error) {
	const stmt = `
SELECT ` + userStatsColumns + `
FROM users u
LEFT JOIN ad_watches w ON w.user_id = u.id
GROUP BY u.id
ORDER BY watch_count DESC, u.created_at
LIMIT $1;`

	rows, err := s.db.Query(ctx, stmt, n)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, collectUserStats)
}

func (s *PGStore) SearchUsers(ctx context.Context, search string, limit, offset int) ([]domain.UserStats, int, error) {
	search = escapeLike(search)

	const countStmt = `
SELECT COUNT(*)
FROM users
WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%';`

	var total int
	if err := s.db.QueryRow(ctx, countStmt, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	const stmt = `
SELECT ` + userStatsColumns + `
FROM users u
LEFT JOIN ad_watches w ON w.user_id = u.id
WHERE $1 = '' OR u.name ILIKE '%' || $1 || '%' OR u.email ILIKE '%' || $1 || '%'
GROUP BY u.id
ORDER BY u.created_at DESC
LIMIT $2 OFFSET $3;`

	rows, err := s.db.Query(ctx, stmt, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	users, err := pgx.CollectRows(rows, collectUserStats)
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// escapeLike neutralizes LIKE wildcards in the user-supplied search term so
// it matches as a literal substring.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func collectUserStats(r pgx.CollectableRow) (domain.UserStats, error) {
	var st domain.UserStats
	err := r.Scan(&st.User.ID, &st.User.ClerkID, &st.User.Email, &st.User.Name, &st.User.Balance,
		&st.User.AdsWatched, &st.User.WatchTimeMinutes, &st.User.FeedbackScore, &st.User.IsAdmin,
		&st.User.LastActive, &st.User.CreatedAt, &st.User.UpdatedAt, &st.WatchCount)
	return st, err
}

func (s *PGStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	const stmt = `
SELECT id, clerk_id, email, name, balance, ads_watched, watch_time_minutes,
       feedback_score, is_admin, last_active, created_at, updated_at
FROM users
WHERE id = $1;`

	var u domain.User
	err := s.db.QueryRow(ctx, stmt, id).Scan(&u.ID, &u.ClerkID, &u.Email, &u.Name,
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

func (s *PGStore) UserMetrics(ctx context.Context, id string, since time.Time) (*UserMetrics, error) {
	const totalsStmt = `
SELECT COALESCE(SUM(a.reward), 0), COALESCE(AVG(w.watch_time), 0)
FROM ad_watches w
JOIN ads a ON a.id = w.ad_id
WHERE w.user_id = $1;`

	var m UserMetrics
	if err := s.db.QueryRow(ctx, totalsStmt, id).Scan(&m.TotalEarnings, &m.AverageWatchTime); err != nil {
		return nil, err
	}

	const activityStmt = `
SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day, COUNT(*)
FROM ad_watches
WHERE user_id = $1 AND created_at >= $2
GROUP BY 1
ORDER BY 1;`

	activity, err := s.dayCounts(ctx, activityStmt, id, since)
	if err != nil {
		return nil, err
	}
	m.ActivityByDay = activity

	return &m, nil
}

func (s *PGStore) SetAdmin(ctx context.Context, id string, isAdmin bool) (*domain.User, error) {
	const stmt = `
UPDATE users
SET is_admin = $2, updated_at = now()
WHERE id = $1
RETURNING id, clerk_id, email, name, balance, ads_watched, watch_time_minutes,
          feedback_score, is_admin, last_active, created_at, updated_at;`

	return s.returningUser(ctx, stmt, id, isAdmin)
}

// PromoteAdmin is guarded in a single statement so two racing setup calls
// cannot both succeed.
func (s *PGStore) PromoteAdmin(ctx context.Context, clerkID string) (*domain.User, error) {
	const stmt = `
UPDATE users
SET is_admin = TRUE, updated_at = now()
WHERE clerk_id = $1 AND NOT EXISTS (SELECT 1 FROM users WHERE is_admin)
RETURNING id, clerk_id, email, name, balance, ads_watched, watch_time_minutes,
          feedback_score, is_admin, last_active, created_at, updated_at;`

	return s.returningUser(ctx, stmt, clerkID)
}

func (s *PGStore) returningUser(ctx context.Context, stmt string, args ...any) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(ctx, stmt, args...).Scan(&u.ID, &u.ClerkID, &u.Email, &u.Name,
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
