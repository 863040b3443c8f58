package domain

import "github.com/shopspring/decimal"

const (
	EventNameAdWatched       = "ad.watched"
	EventNameBalanceCredited = "balance.credited"
)

// EventAdWatched is published after a reward submission commits.
type EventAdWatched struct {
	UserID    string
	AdID      string
	Reward    decimal.Decimal
	WatchTime int
}

func (EventAdWatched) Name() string { return EventNameAdWatched }

// EventBalanceCredited is published after a direct balance credit commits.
type EventBalanceCredited struct {
	UserID string
	Amount decimal.Decimal
}

func (EventBalanceCredited) Name() string { return EventNameBalanceCredited }
