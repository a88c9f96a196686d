// Package pattern tracks opponent behaviour over a rolling window of recent
// actions and derives bluff/challenge likelihoods from the triggers it has
// seen fire.
package pattern

import (
	"sync"

	"github.com/lox/bluffbots/internal/deck"
	"github.com/lox/bluffbots/internal/game"
)

const (
	// historySize bounds the rolling action window
	historySize = 20

	// pressureHandSize is the hand size at or below which a bluff counts as
	// made "under pressure"
	pressureHandSize = 5

	// challengeStreakLength is how many consecutive plays must precede a
	// challenge for it to count as a streak challenge
	challengeStreakLength = 3
)

// Observation is one recorded action with the context the tracker needs
type Observation struct {
	Action       game.ActionType `json:"action"`
	Actor        game.Player     `json:"actor"`
	HandSize     int             `json:"hand_size"` // actor's hand size when acting
	CardCount    int             `json:"card_count"`
	DeclaredRank deck.Rank       `json:"declared_rank"`
	WasBluff     bool            `json:"was_bluff"`
}

// Prediction summarises how likely the observed player is to bluff or
// challenge based on trigger frequency over the rolling window.
type Prediction struct {
	LikelyToBluff     float64
	LikelyToChallenge float64
}

// Profile aggregates play-style metrics for the observed player
type Profile struct {
	Plays          int
	Bluffs         int
	Challenges     int
	CardsPerPlay   float64
	BluffFrequency float64
}

// Triggers are the situational counters incremented when a bluff or streak
// challenge is observed.
type Triggers struct {
	UnderPressure        int `json:"under_pressure"`
	HighRank             int `json:"high_rank"`
	LowRank              int `json:"low_rank"`
	ChallengeAfterStreak int `json:"challenge_after_streak"`
}

// Tracker maintains the rolling history and trigger counters. Safe for
// concurrent use; one tracker is shared across games for the same opponent.
type Tracker struct {
	mu       sync.Mutex
	history  []Observation
	triggers Triggers

	// lifetime totals for the profile, not windowed
	plays       int
	bluffs      int
	challenges  int
	cardsPlayed int
}

// NewTracker returns an empty tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record adds an observation to the window and fires any matching triggers
func (t *Tracker) Record(o Observation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch o.Action {
	case game.PlayCards:
		t.plays++
		t.cardsPlayed += o.CardCount
		if o.WasBluff {
			t.bluffs++
			switch {
			case o.HandSize <= pressureHandSize:
				t.triggers.UnderPressure++
			case o.DeclaredRank >= deck.Ten:
				t.triggers.HighRank++
			default:
				t.triggers.LowRank++
			}
		}
	case game.Challenge:
		t.challenges++
		if t.playStreak() >= challengeStreakLength {
			t.triggers.ChallengeAfterStreak++
		}
	}

	t.history = append(t.history, o)
	if len(t.history) > historySize {
		t.history = t.history[len(t.history)-historySize:]
	}
}

// playStreak counts consecutive PlayCards observations at the tail of the
// history. Caller holds the lock.
func (t *Tracker) playStreak() int {
	streak := 0
	for i := len(t.history) - 1; i >= 0; i-- {
		if t.history[i].Action != game.PlayCards {
			break
		}
		streak++
	}
	return streak
}

// Prediction derives trigger frequencies over the current window. Both
// likelihoods are zero with an empty history.
func (t *Tracker) Prediction() Prediction {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.history)
	if n == 0 {
		return Prediction{}
	}

	bluffTriggers := t.triggers.UnderPressure + t.triggers.HighRank + t.triggers.LowRank
	return Prediction{
		LikelyToBluff:     float64(bluffTriggers) / float64(n),
		LikelyToChallenge: float64(t.triggers.ChallengeAfterStreak) / float64(n),
	}
}

// Profile returns lifetime play-style metrics for the observed player
func (t *Tracker) Profile() Profile {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := Profile{
		Plays:      t.plays,
		Bluffs:     t.bluffs,
		Challenges: t.challenges,
	}
	if t.plays > 0 {
		p.CardsPerPlay = float64(t.cardsPlayed) / float64(t.plays)
		p.BluffFrequency = float64(t.bluffs) / float64(t.plays)
	}
	return p
}

// HistoryLen returns the number of observations in the current window
func (t *Tracker) HistoryLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.history)
}

// TrackerSnapshot is the JSON-friendly persisted form of a tracker
type TrackerSnapshot struct {
	History     []Observation `json:"history"`
	Triggers    Triggers      `json:"triggers"`
	Plays       int           `json:"plays"`
	Bluffs      int           `json:"bluffs"`
	Challenges  int           `json:"challenges"`
	CardsPlayed int           `json:"cards_played"`
}

// Snapshot captures the tracker state for persistence
func (t *Tracker) Snapshot() TrackerSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrackerSnapshot{
		History:     append([]Observation(nil), t.history...),
		Triggers:    t.triggers,
		Plays:       t.plays,
		Bluffs:      t.bluffs,
		Challenges:  t.challenges,
		CardsPlayed: t.cardsPlayed,
	}
}

// Restore replaces the tracker state with a previously saved snapshot
func (t *Tracker) Restore(snap TrackerSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append([]Observation(nil), snap.History...)
	if len(t.history) > historySize {
		t.history = t.history[len(t.history)-historySize:]
	}
	t.triggers = snap.Triggers
	t.plays = snap.Plays
	t.bluffs = snap.Bluffs
	t.challenges = snap.Challenges
	t.cardsPlayed = snap.CardsPlayed
}
