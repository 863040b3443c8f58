package watchsession_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/victornm/adwatch/internal/domain"
	"github.com/victornm/adwatch/internal/errors"
	"github.com/victornm/adwatch/internal/watchsession"
)

func testAd() domain.Ad {
	return domain.Ad{
		ID:       "ad-1",
		Duration: 30,
		Questions: []domain.Question{
			{ID: "q-1", Question: "What was advertised?"},
			{ID: "q-2", Question: "Would you buy it?"},
		},
	}
}

func TestSession_HappyPath(t *testing.T) {
	t.Parallel()

	s := watchsession.New(testAd())
	require.Equal(t, watchsession.StateIntro, s.State())

	start := time.Now()
	require.NoError(t, s.Start(start))
	require.Equal(t, watchsession.StateWatching, s.State())

	require.NoError(t, s.FinishPlayback(start.Add(31*time.Second)))
	require.Equal(t, watchsession.StateQuestions, s.State())

	require.NoError(t, s.SetAnswer("q-1", "Cereal"))
	require.NoError(t, s.SetAnswer("q-2", "Yes"))
	require.NoError(t, s.SetFeedback("Catchy jingle"))

	done := start.Add(45 * time.Second)
	res, err := s.Complete(done)
	require.NoError(t, err)
	require.Equal(t, watchsession.StateCompleted, s.State())

	require.Equal(t, "ad-1", res.AdID)
	require.Equal(t, 31, res.WatchTime)
	require.Equal(t, "Catchy jingle", res.Feedback)
	require.Equal(t, done, res.CompletedAt)
	require.Equal(t, []domain.Answer{
		{QuestionID: "q-1", Answer: "Cereal"},
		{QuestionID: "q-2", Answer: "Yes"},
	}, res.Answers)
}

func TestSession_InvalidTransitions(t *testing.T) {
	t.Parallel()

	tests := map[string]func(s *watchsession.Session) error{
		"finish before start": func(s *watchsession.Session) error {
			return s.FinishPlayback(time.Now())
		},
		"pause before start": func(s *watchsession.Session) error {
			return s.Pause()
		},
		"answer during playback": func(s *watchsession.Session) error {
			if err := s.Start(time.Now()); err != nil {
				return err
			}
			return s.SetAnswer("q-1", "Cereal")
		},
		"complete during playback": func(s *watchsession.Session) error {
			if err := s.Start(time.Now()); err != nil {
				return err
			}
			_, err := s.Complete(time.Now())
			return err
		},
		"start twice": func(s *watchsession.Session) error {
			if err := s.Start(time.Now()); err != nil {
				return err
			}
			return s.Start(time.Now())
		},
	}

	for name, arrange := range tests {
		t.Run(name, func(t *testing.T) {
			err := arrange(watchsession.New(testAd()))
			require.True(t, errors.Is(err, errors.CodeInvalidArgument))
		})
	}
}

func TestSession_CompleteRequiresAllAnswers(t *testing.T) {
	t.Parallel()

	s := watchsession.New(testAd())
	start := time.Now()
	require.NoError(t, s.Start(start))
	require.NoError(t, s.FinishPlayback(start.Add(30*time.Second)))
	require.NoError(t, s.SetAnswer("q-1", "Cereal"))

	_, err := s.Complete(time.Now())
	require.True(t, errors.Is(err, errors.CodeInvalidArgument))
	require.Equal(t, watchsession.StateQuestions, s.State(), "a rejected complete keeps the session open")

	require.NoError(t, s.SetAnswer("q-2", "Yes"))
	_, err = s.Complete(time.Now())
	require.NoError(t, err)
}

func TestSession_RejectsBadAnswers(t *testing.T) {
	t.Parallel()

	s := watchsession.New(testAd())
	start := time.Now()
	require.NoError(t, s.Start(start))
	require.NoError(t, s.FinishPlayback(start.Add(time.Second)))

	err := s.SetAnswer("q-other", "Cereal")
	require.True(t, errors.Is(err, errors.CodeInvalidArgument))

	err = s.SetAnswer("q-1", "")
	require.True(t, errors.Is(err, errors.CodeInvalidArgument))
}

func TestSession_SamplerReportsProgress(t *testing.T) {
	t.Parallel()

	ticks := make(chan time.Time)
	observed := make(chan watchsession.Progress, 16)

	s := watchsession.New(testAd(),
		watchsession.WithObserver(func(p watchsession.Progress) {
			observed <- p
		}),
		watchsession.WithTicker(func(d time.Duration) watchsession.Ticker {
			return &fakeTicker{ch: ticks}
		}),
	)

	require.NoError(t, s.Start(time.Now().Add(-10*time.Second)))

	var samples []watchsession.Progress
	for i := 0; i < 2; i++ {
		ticks <- time.Now()
		samples = append(samples, <-observed)
	}

	require.NoError(t, s.FinishPlayback(time.Now()))
	s.Wait()

	require.Len(t, samples, 2)
	for _, p := range samples {
		require.GreaterOrEqual(t, p.Elapsed, 10*time.Second)
		require.GreaterOrEqual(t, p.Percent, float64(30))
		require.LessOrEqual(t, p.Percent, float64(100))
	}
}

func TestSession_PauseStopsSampling(t *testing.T) {
	t.Parallel()

	ticks := make(chan time.Time)
	observed := make(chan watchsession.Progress, 16)

	s := watchsession.New(testAd(),
		watchsession.WithObserver(func(p watchsession.Progress) {
			observed <- p
		}),
		watchsession.WithTicker(func(d time.Duration) watchsession.Ticker {
			return &fakeTicker{ch: ticks}
		}),
	)

	require.NoError(t, s.Start(time.Now()))
	ticks <- time.Now()
	<-observed

	require.NoError(t, s.Pause())
	require.Equal(t, watchsession.StateWatching, s.State(), "pause is not a state change")
	require.NoError(t, s.Pause(), "pausing twice is a no-op")

	require.NoError(t, s.Resume())
	ticks <- time.Now()
	<-observed

	require.NoError(t, s.FinishPlayback(time.Now()))
	s.Wait()

	require.Empty(t, observed, "no samples arrive while paused")
}

func TestSession_Abandon(t *testing.T) {
	t.Parallel()

	s := watchsession.New(testAd())
	require.NoError(t, s.Start(time.Now()))

	s.Abandon()
	s.Abandon()
	require.Equal(t, watchsession.StateCompleted, s.State())

	_, err := s.Complete(time.Now())
	require.True(t, errors.Is(err, errors.CodeInvalidArgument))
}

type fakeTicker struct {
	ch chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               {}
