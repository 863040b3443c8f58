package catalog

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/victornm/adwatch/internal/domain"
	"github.com/victornm/adwatch/internal/errors"
)

const defaultCacheTTL = time.Hour

// Store is the persistence gateway for the ad catalog.
type Store interface {
	ListAds(ctx context.Context) ([]domain.Ad, error)
	InsertAd(ctx context.Context, ad *domain.Ad) error
}

type Config struct {
	Store    Store
	Redis    redis.UniversalClient
	Prefix   string
	CacheTTL time.Duration
}

type Service struct {
	store  Store
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewService(c Config) *Service {
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}

	return &Service{
		store:  c.Store,
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    c.CacheTTL,
	}
}

// AdView is the public shape of an ad. It carries everything a session needs
// and nothing else.
type AdView struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Duration    int            `json:"duration"`
	Reward      float64        `json:"reward"`
	Category    string         `json:"category"`
	Difficulty  string         `json:"difficulty"`
	VideoURL    string         `json:"videoUrl"`
	Questions   []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// List returns the catalog, serving from the redis cache when a fresh entry
// exists. Cache failures degrade to the store and are logged only.
func (s *Service) List(ctx context.Context) ([]AdView, error) {
	key := s.cacheKey()

	b, err := s.redis.Get(ctx, key).Bytes()
	if err == nil {
		var views []AdView
		if err := json.Unmarshal(b, &views); err == nil {
			return views, nil
		}
		slog.WarnContext(ctx, "catalog: drop unreadable cache entry", "key", key)
	} else if !stderrors.Is(err, redis.Nil) {
		slog.WarnContext(ctx, "catalog: cache read failed", "error", err)
	}

	ads, err := s.store.ListAds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}

	views := make([]AdView, 0, len(ads))
	for _, ad := range ads {
		views = append(views, toView(ad))
	}

	if b, err := json.Marshal(views); err == nil {
		if err := s.redis.Set(ctx, key, b, s.ttl).Err(); err != nil {
			slog.WarnContext(ctx, "catalog: cache write failed", "error", err)
		}
	}

	return views, nil
}

// CreateAdRequest carries a new ad and its questions. All fields are required.
type CreateAdRequest struct {
	Title       string
	Description string
	Duration    int
	Reward      decimal.Decimal
	Category    string
	Difficulty  string
	VideoURL    string
	Questions   []QuestionInput
}

type QuestionInput struct {
	Question string
	Options  []string
}

// Create persists a new ad with its questions and invalidates the cached
// catalog so the next List repopulates it.
func (s *Service) Create(ctx context.Context, req CreateAdRequest) (*AdView, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	ad := &domain.Ad{
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		Reward:      req.Reward,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		VideoURL:    req.VideoURL,
	}
	for _, q := range req.Questions {
		ad.Questions = append(ad.Questions, domain.Question{
			Question: q.Question,
			Options:  q.Options,
		})
	}

	if err := s.store.InsertAd(ctx, ad); err != nil {
		return nil, fmt.Errorf("insert ad: %w", err)
	}

	if err := s.redis.Del(ctx, s.cacheKey()).Err(); err != nil {
		slog.WarnContext(ctx, "catalog: cache invalidation failed", "error", err)
	}

	v := toView(*ad)
	return &v, nil
}

func validateCreate(req CreateAdRequest) error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef(format, args...))
	}

	switch {
	case req.Title == "":
		return invalid("title is required")
	case req.Description == "":
		return invalid("description is required")
	case req.Duration <= 0:
		return invalid("duration must be a positive number of seconds")
	case !req.Reward.IsPositive():
		return invalid("reward must be a positive amount")
	case req.Category == "":
		return invalid("category is required")
	case req.Difficulty == "":
		return invalid("difficulty is required")
	case req.VideoURL == "":
		return invalid("videoUrl is required")
	case len(req.Questions) == 0:
		return invalid("at least one question is required")
	}

	for i, q := range req.Questions {
		if q.Question == "" {
			return invalid("question %d: text is required", i+1)
		}
		if len(q.Options) == 0 {
			return invalid("question %d: options are required", i+1)
		}
		for _, o := range q.Options {
			if o == "" {
				return invalid("question %d: options must be non-empty", i+1)
			}
		}
	}

	return nil
}

func toView(ad domain.Ad) AdView {
	v := AdView{
		ID:          ad.ID,
		Title:       ad.Title,
		Description: ad.Description,
		Duration:    ad.Duration,
		Reward:      ad.Reward.InexactFloat64(),
		Category:    ad.Category,
		Difficulty:  ad.Difficulty,
		VideoURL:    ad.VideoURL,
		Questions:   make([]QuestionView, 0, len(ad.Questions)),
	}
	for _, q := range ad.Questions {
		v.Questions = append(v.Questions, QuestionView{
			ID:       q.ID,
			Question: q.Question,
			Options:  q.Options,
		})
	}
	return v
}

func (s *Service) cacheKey() string {
	return fmt.Sprintf("%s:catalog", s.prefix)
}
