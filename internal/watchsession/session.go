// Package watchsession models the lifetime of a single ad view, from the
// intro screen through playback and the question round to the final reward
// submission. The session is a plain state machine with an optional progress
// sampler; persistence and crediting happen elsewhere, once, from the Result.
package watchsession

import (
	"fmt"
	"sync"
	"time"

	"github.com/victornm/adwatch/internal/domain"
	"github.com/victornm/adwatch/internal/errors"
)

// State is the phase a session is in. Transitions only move forward:
// intro -> watching -> questions -> completed.
type State int

const (
	StateIntro State = iota
	StateWatching
	StateQuestions
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIntro:
		return "intro"
	case StateWatching:
		return "watching"
	case StateQuestions:
		return "questions"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const samplePeriod = time.Second

// Ticker drives the progress sampler. The seam exists so tests can feed
// ticks manually instead of sleeping.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type tickerWrapper struct {
	*time.Ticker
}

func (t tickerWrapper) C() <-chan time.Time { return t.Ticker.C }

func newTicker(d time.Duration) Ticker {
	return tickerWrapper{time.NewTicker(d)}
}

// Progress is pushed to the observer on every sampler tick while playback
// is running.
type Progress struct {
	Elapsed time.Duration
	Percent float64
}

// Result is the one artifact a completed session produces. It carries
// everything the reward submission needs.
type Result struct {
	AdID        string
	WatchTime   int
	Answers     []domain.Answer
	Feedback    string
	CompletedAt time.Time
}

type Config struct {
	Ad            domain.Ad
	OnProgress    func(Progress)
	NewTickerFunc func(d time.Duration) Ticker
}

type options func(c *Config)

// WithObserver registers a callback for playback progress samples.
func WithObserver(fn func(Progress)) options {
	return func(c *Config) { c.OnProgress = fn }
}

// WithTicker overrides the sampler clock.
func WithTicker(fn func(d time.Duration) Ticker) options {
	return func(c *Config) { c.NewTickerFunc = fn }
}

// Session tracks one viewer working through one ad. Safe for concurrent use;
// the sampler goroutine and the caller share the same lock.
type Session struct {
	mu sync.Mutex

	ad        domain.Ad
	state     State
	startedAt time.Time
	watchTime int
	answers   map[string]string
	feedback  string

	onProgress func(Progress)
	newTicker  func(d time.Duration) Ticker

	paused bool
	quit   chan struct{}
	done   sync.WaitGroup
}

func New(ad domain.Ad, opts ...options) *Session {
	c := Config{Ad: ad, NewTickerFunc: newTicker}
	for _, opt := range opts {
		opt(&c)
	}

	return &Session{
		ad:         c.Ad,
		state:      StateIntro,
		answers:    make(map[string]string),
		onProgress: c.OnProgress,
		newTicker:  c.NewTickerFunc,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins playback. Only valid from the intro screen.
func (s *Session) Start(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIntro {
		return transitionError(s.state, "start")
	}

	s.state = StateWatching
	s.startedAt = now
	s.startSamplerLocked()

	return nil
}

// Pause suspends progress sampling without changing state. Pausing an
// already paused session is a no-op.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateWatching {
		return transitionError(s.state, "pause")
	}
	if s.paused {
		return nil
	}

	s.paused = true
	s.stopSamplerLocked()

	return nil
}

// Resume restarts progress sampling after a pause.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateWatching {
		return transitionError(s.state, "resume")
	}
	if !s.paused {
		return nil
	}

	s.paused = false
	s.startSamplerLocked()

	return nil
}

// FinishPlayback ends the video and moves the session to the question round.
// Watch time is the whole seconds elapsed since Start.
func (s *Session) FinishPlayback(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateWatching {
		return transitionError(s.state, "finish playback")
	}

	s.state = StateQuestions
	s.watchTime = int(now.Sub(s.startedAt) / time.Second)
	if s.watchTime < 0 {
		s.watchTime = 0
	}
	s.stopSamplerLocked()

	return nil
}

// SetAnswer records the viewer's answer for a question. Re-answering
// overwrites the previous value.
func (s *Session) SetAnswer(questionID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateQuestions {
		return transitionError(s.state, "answer")
	}
	if !s.hasQuestion(questionID) {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("unknown question: %s", questionID))
	}
	if value == "" {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("empty answer"))
	}

	s.answers[questionID] = value

	return nil
}

func (s *Session) SetFeedback(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateQuestions {
		return transitionError(s.state, "feedback")
	}
	s.feedback = text

	return nil
}

// Complete finalizes the session. Every question must have an answer; the
// session then becomes terminal and yields its single Result.
func (s *Session) Complete(now time.Time) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateQuestions {
		return nil, transitionError(s.state, "complete")
	}

	for _, q := range s.ad.Questions {
		if s.answers[q.ID] == "" {
			return nil, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("question not answered: %s", q.ID))
		}
	}

	s.state = StateCompleted

	answers := make([]domain.Answer, 0, len(s.ad.Questions))
	for _, q := range s.ad.Questions {
		answers = append(answers, domain.Answer{QuestionID: q.ID, Answer: s.answers[q.ID]})
	}

	return &Result{
		AdID:        s.ad.ID,
		WatchTime:   s.watchTime,
		Answers:     answers,
		Feedback:    s.feedback,
		CompletedAt: now,
	}, nil
}

// Abandon tears the session down from any state. It produces no result and
// is safe to call more than once.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateCompleted
	s.stopSamplerLocked()
}

func (s *Session) hasQuestion(id string) bool {
	for _, q := range s.ad.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

func (s *Session) startSamplerLocked() {
	if s.onProgress == nil {
		return
	}

	quit := make(chan struct{})
	s.quit = quit

	s.done.Add(1)
	go func() {
		defer s.done.Done()

		t := s.newTicker(samplePeriod)
		defer t.Stop()

		for {
			select {
			case <-quit:
				return
			case <-t.C():
				s.sample()
			}
		}
	}()
}

func (s *Session) stopSamplerLocked() {
	if s.quit == nil {
		return
	}
	close(s.quit)
	s.quit = nil
}

func (s *Session) sample() {
	s.mu.Lock()
	if s.state != StateWatching || s.paused {
		s.mu.Unlock()
		return
	}

	elapsed := time.Since(s.startedAt)
	duration := time.Duration(s.ad.Duration) * time.Second
	s.mu.Unlock()

	p := Progress{Elapsed: elapsed}
	if duration > 0 {
		p.Percent = min(float64(elapsed)/float64(duration)*100, 100)
	}

	s.onProgress(p)
}

// Wait blocks until the sampler goroutine has exited. Mostly useful in tests.
func (s *Session) Wait() {
	s.done.Wait()
}

func transitionError(from State, action string) error {
	return errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("cannot %s in state %s", action, from))
}
