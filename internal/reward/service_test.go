package reward_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/victornm/adwatch/internal/domain"
	"github.com/victornm/adwatch/internal/errors"
	"github.com/victornm/adwatch/internal/event"
	"github.com/victornm/adwatch/internal/reward"
)

func TestService_Submit(t *testing.T) {
	type (
		inputs struct {
			store *fakeStore
			req   reward.SubmitRequest
		}

		outputs struct {
			resp   *reward.SubmitResponse
			err    error
			store  *fakeStore
			events []domain.EventAdWatched
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"a complete submission credits the full reward once": {
			arrange: func() inputs {
				return inputs{
					store: storeFixture(),
					req:   requestFixture(),
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.NoError(t, out.err)
				require.True(t, decimal.NewFromFloat(0.25).Equal(out.resp.Reward))

				require.Len(t, out.store.watches, 1)
				w := out.store.watches[0]
				require.True(t, w.Completed)
				require.Equal(t, "user-1", w.UserID)
				require.Equal(t, "ad-1", w.AdID)
				require.Len(t, w.Answers, 2)

				require.Len(t, out.events, 1, "exactly one credit event per submission")
				require.Equal(t, "user-1", out.events[0].UserID)
			},
		},

		"watch minutes round up": {
			arrange: func() inputs {
				in := inputs{store: storeFixture(), req: requestFixture()}
				in.req.WatchTime = 61
				return in
			},

			assert: func(t *testing.T, out outputs) {
				require.NoError(t, out.err)
				require.Equal(t, 2, out.store.minutes)
			},
		},

		"exact minutes do not round up": {
			arrange: func() inputs {
				in := inputs{store: storeFixture(), req: requestFixture()}
				in.req.WatchTime = 60
				return in
			},

			assert: func(t *testing.T, out outputs) {
				require.NoError(t, out.err)
				require.Equal(t, 1, out.store.minutes)
			},
		},

		"zero watch time adds zero minutes": {
			arrange: func() inputs {
				in := inputs{store: storeFixture(), req: requestFixture()}
				in.req.WatchTime = 0
				return in
			},

			assert: func(t *testing.T, out outputs) {
				require.NoError(t, out.err)
				require.Equal(t, 0, out.store.minutes)
			},
		},

		"missing ad id is rejected before any lookup": {
			arrange: func() inputs {
				in := inputs{store: storeFixture(), req: requestFixture()}
				in.req.AdID = ""
				return in
			},

			assert: func(t *testing.T, out outputs) {
				require.True(t, errors.Is(out.err, errors.CodeInvalidArgument))
				require.Empty(t, out.store.watches)
			},
		},

		"negative watch time is rejected": {
			arrange: func() inputs {
				in := inputs{store: storeFixture(), req: requestFixture()}
				in.req.WatchTime = -1
				return in
			},

			assert: func(t *testing.T, out outputs) {
				require.True(t, errors.Is(out.err, errors.CodeInvalidArgument))
			},
		},

		"unknown user is not found": {
			arrange: func() inputs {
				in := inputs{store: storeFixture(), req: requestFixture()}
				in.store.user = nil
				return in
			},

			assert: func(t *testing.T, out outputs) {
				require.True(t, errors.Is(out.err, errors.CodeNotFound))
				require.Empty(t, out.store.watches)
			},
		},

		"unknown ad is not found": {
			arrange: func() inputs {
				in := inputs{store: storeFixture(), req: requestFixture()}
				in.store.ad = nil
				return in
			},

			assert: func(t *testing.T, out outputs) {
				require.True(t, errors.Is(out.err, errors.CodeNotFound))
				require.Empty(t, out.store.watches)
			},
		},

		"an unanswered question blocks the credit": {
			arrange: func() inputs {
				in := inputs{store: storeFixture(), req: requestFixture()}
				in.req.Answers = in.req.Answers[:1]
				return in
			},

			assert: func(t *testing.T, out outputs) {
				require.True(t, errors.Is(out.err, errors.CodeInvalidArgument))
				require.Empty(t, out.store.watches)
				require.Empty(t, out.events, "no credit event without a persisted watch")
			},
		},

		"an empty answer value blocks the credit": {
			arrange: func() inputs {
				in := inputs{store: storeFixture(), req: requestFixture()}
				in.req.Answers[1].Value = ""
				return in
			},

			assert: func(t *testing.T, out outputs) {
				require.True(t, errors.Is(out.err, errors.CodeInvalidArgument))
				require.Empty(t, out.store.watches)
			},
		},

		"an answer for a foreign question blocks the credit": {
			arrange: func() inputs {
				in := inputs{store: storeFixture(), req: requestFixture()}
				in.req.Answers[1].QuestionID = "q-other"
				return in
			},

			assert: func(t *testing.T, out outputs) {
				require.True(t, errors.Is(out.err, errors.CodeInvalidArgument))
				require.Empty(t, out.store.watches)
			},
		},

		"a duplicate client token surfaces as already exists": {
			arrange: func() inputs {
				in := inputs{store: storeFixture(), req: requestFixture()}
				in.store.recordErr = errors.New(errors.CodeAlreadyExists)
				return in
			},

			assert: func(t *testing.T, out outputs) {
				require.True(t, errors.Is(out.err, errors.CodeAlreadyExists))
				require.Empty(t, out.events, "a rejected duplicate must not publish a credit event")
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in, out := tt.arrange(), outputs{}
			out.store = in.store

			eb := event.NewBus()
			var mu sync.Mutex
			eb.Subscribe(domain.EventNameAdWatched, func(ctx context.Context, e event.Event) error {
				mu.Lock()
				out.events = append(out.events, e.(domain.EventAdWatched))
				mu.Unlock()
				return nil
			})

			s := reward.NewService(reward.Config{
				Store:    in.store,
				EventBus: eb,
			})

			out.resp, out.err = s.Submit(context.Background(), in.req)
			eb.Stop()

			tt.assert(t, out)
		})
	}
}

func storeFixture() *fakeStore {
	return &fakeStore{
		user: &domain.User{ID: "user-1", ClerkID: "clerk-1"},
		ad: &domain.Ad{
			ID:     "ad-1",
			Reward: decimal.NewFromFloat(0.25),
			Questions: []domain.Question{
				{ID: "q-1", AdID: "ad-1"},
				{ID: "q-2", AdID: "ad-1"},
			},
		},
	}
}

func requestFixture() reward.SubmitRequest {
	return reward.SubmitRequest{
		ClerkID:   "clerk-1",
		AdID:      "ad-1",
		WatchTime: 30,
		Answers: []reward.AnswerInput{
			{QuestionID: "q-1", Value: "Cereal"},
			{QuestionID: "q-2", Value: "Yes"},
		},
		Feedback: "nice ad",
	}
}

type fakeStore struct {
	user      *domain.User
	ad        *domain.Ad
	recordErr error

	watches []domain.AdWatch
	minutes int
	reward  decimal.Decimal
}

func (f *fakeStore) GetUserByClerkID(ctx context.Context, clerkID string) (*domain.User, error) {
	return f.user, nil
}

func (f *fakeStore) GetAd(ctx context.Context, adID string) (*domain.Ad, error) {
	return f.ad, nil
}

func (f *fakeStore) RecordWatch(ctx context.Context, w *domain.AdWatch, minutes int, reward decimal.Decimal) error {
	if f.recordErr != nil {
		return f.recordErr
	}

	f.watches = append(f.watches, *w)
	f.minutes = minutes
	f.reward = reward
	return nil
}
