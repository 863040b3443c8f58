// Package reward credits users for completed ad-watch sessions.
package reward

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/victornm/adwatch/internal/domain"
	"github.com/victornm/adwatch/internal/errors"
	"github.com/victornm/adwatch/internal/event"
)

// Store is the persistence gateway for reward posting. Lookups return
// (nil, nil) when the row does not exist.
type Store interface {
	GetUserByClerkID(ctx context.Context, clerkID string) (*domain.User, error)
	GetAd(ctx context.Context, adID string) (*domain.Ad, error)

	// RecordWatch applies the whole credit as one transaction: the AdWatch row,
	// its answers, and the user's balance/stat increments. A duplicate client
	// token fails with CodeAlreadyExists and applies nothing.
	RecordWatch(ctx context.Context, w *domain.AdWatch, minutes int, reward decimal.Decimal) error
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

type SubmitRequest struct {
	ClerkID     string
	AdID        string
	WatchTime   int // seconds
	Answers     []AnswerInput
	Feedback    string
	ClientToken string
}

type AnswerInput struct {
	QuestionID string
	Value      string
}

type SubmitResponse struct {
	Reward decimal.Decimal
}

// Submit validates a completed session, credits the user with the ad's full
// reward, and records the watch. The credited amount is always Ad.Reward at
// submission time; watch time affects only the minute counter,
// ceil(watchTime/60).
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if req.AdID == "" {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("adId is required"))
	}
	if req.WatchTime < 0 {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("watchTime must be non-negative"))
	}

	user, err := s.store.GetUserByClerkID(ctx, req.ClerkID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("user not found"))
	}

	ad, err := s.store.GetAd(ctx, req.AdID)
	if err != nil {
		return nil, fmt.Errorf("get ad: %w", err)
	}
	if ad == nil {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("ad not found"))
	}

	if err := checkCoverage(ad.Questions, req.Answers); err != nil {
		return nil, err
	}

	w := &domain.AdWatch{
		UserID:      user.ID,
		AdID:        ad.ID,
		WatchTime:   req.WatchTime,
		Completed:   true,
		Feedback:    req.Feedback,
		ClientToken: req.ClientToken,
	}
	for _, a := range req.Answers {
		w.Answers = append(w.Answers, domain.Answer{
			QuestionID: a.QuestionID,
			Answer:     a.Value,
		})
	}

	minutes := (req.WatchTime + 59) / 60

	if err := s.store.RecordWatch(ctx, w, minutes, ad.Reward); err != nil {
		return nil, err
	}

	s.eb.Publish(ctx, domain.EventAdWatched{
		UserID:    user.ID,
		AdID:      ad.ID,
		Reward:    ad.Reward,
		WatchTime: req.WatchTime,
	})

	return &SubmitResponse{Reward: ad.Reward}, nil
}

// checkCoverage enforces the completion invariant: every question of the ad
// has exactly one non-empty answer, and no answer points at a foreign
// question.
func checkCoverage(questions []domain.Question, answers []AnswerInput) error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef(format, args...))
	}

	answered := make(map[string]bool, len(answers))
	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}

	for _, a := range answers {
		if a.Value == "" {
			return invalid("answer for question %s is empty", a.QuestionID)
		}
		if !known[a.QuestionID] {
			return invalid("question %s does not belong to this ad", a.QuestionID)
		}
		if answered[a.QuestionID] {
			return invalid("question %s answered twice", a.QuestionID)
		}
		answered[a.QuestionID] = true
	}

	for _, q := range questions {
		if !answered[q.ID] {
			return invalid("all questions must be answered")
		}
	}

	return nil
}
