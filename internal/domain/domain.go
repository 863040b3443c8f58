package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User mirrors an identity-provider account. Rows are created and removed by
// webhook events only; balance never decreases.
type User struct {
	ID               string
	ClerkID          string
	Email            string
	Name             string
	Balance          decimal.Decimal
	AdsWatched       int
	WatchTimeMinutes int
	FeedbackScore    int
	IsAdmin          bool
	LastActive       time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Ad is a single piece of rewarded video content. Duration and reward are
// fixed once the ad has been watched.
type Ad struct {
	ID          string
	Title       string
	Description string
	Duration    int // seconds
	Reward      decimal.Decimal
	Category    string
	Difficulty  string
	VideoURL    string
	Questions   []Question
	CreatedAt   time.Time
}

type Question struct {
	ID       string
	AdID     string
	Question string
	Options  []string
}

// AdWatch records one completed viewing of one ad by one user. Written exactly
// once per submission, never updated.
type AdWatch struct {
	ID          string
	UserID      string
	AdID        string
	WatchTime   int // seconds actually watched
	Completed   bool
	Feedback    string
	ClientToken string
	Answers     []Answer
	CreatedAt   time.Time
}

type Answer struct {
	ID         string
	AdWatchID  string
	QuestionID string
	Answer     string
}

// Activity is one line of a user's recent-watch history.
type Activity struct {
	Title  string
	Date   time.Time
	Amount decimal.Decimal
}

// DayCount is one bucket of a trailing day-by-day chart.
type DayCount struct {
	Date  string // YYYY-MM-DD
	Count int
}

// AdStats is an ad plus its watch count, for rankings.
type AdStats struct {
	Ad         Ad
	WatchCount int
}

// UserStats is a user plus their watch count, for rankings and listings.
type UserStats struct {
	User       User
	WatchCount int
}
