// Package difficulty tracks how well the human is doing and tunes the bot's
// play style to keep games competitive: a winning player faces a more
// aggressive, trickier opponent.
package difficulty

import (
	"sync"
	"time"

	"github.com/lox/bluffbots/internal/game"
)

const (
	// minGamesBeforeAdapting holds adaptation until enough games are recorded
	minGamesBeforeAdapting = 3

	// winRatePivot is the player win rate above which the bot hardens
	winRatePivot = 0.5

	// weaknessRate is the success rate below which a player habit counts as
	// exploitable
	weaknessRate = 0.4

	// heavyPlayThreshold is the average cards-per-play above which the
	// player is dumping cards and deserves more scrutiny
	heavyPlayThreshold = 2.0

	// adaptFloor is the lowest the challenge threshold falls through
	// adaptation; modifier scaling may push it down to modifierFloor
	adaptFloor    = 0.4
	modifierFloor = 0.3
)

// Settings are the bounded difficulty knobs. All floats live in [0,1].
type Settings struct {
	Aggressiveness     float64 `json:"aggressiveness"`
	BluffFrequency     float64 `json:"bluff_frequency"`
	ChallengeThreshold float64 `json:"challenge_threshold"`
	RiskTolerance      float64 `json:"risk_tolerance"`
	AdaptiveSpeed      float64 `json:"adaptive_speed"`
	ExploitWeaknesses  bool    `json:"exploit_weaknesses"`
}

// DefaultSettings returns the neutral starting difficulty
func DefaultSettings() Settings {
	return Settings{
		Aggressiveness:     0.5,
		BluffFrequency:     0.5,
		ChallengeThreshold: 0.6,
		RiskTolerance:      0.5,
		AdaptiveSpeed:      0.5,
		ExploitWeaknesses:  true,
	}
}

// GameRecord summarises one completed game from the player's perspective
type GameRecord struct {
	PlayerWon           bool          `json:"player_won"`
	Duration            time.Duration `json:"duration"`
	PlayerCardsPerPlay  float64       `json:"player_cards_per_play"`
	PlayerBluffs        int           `json:"player_bluffs"`
	PlayerBluffWins     int           `json:"player_bluff_wins"`
	PlayerChallenges    int           `json:"player_challenges"`
	PlayerChallengeWins int           `json:"player_challenge_wins"`
}

// Metrics are the rolling aggregates derived from recorded games
type Metrics struct {
	Games                int
	WinRate              float64
	AvgCardsPerPlay      float64
	BluffSuccessRate     float64
	ChallengeSuccessRate float64
	AvgTimeToWin         time.Duration
}

// Modifiers are the per-decision multipliers handed to the orchestrator,
// already scaled for the current game phase.
type Modifiers struct {
	Aggressiveness     float64
	BluffProbability   float64
	ChallengeThreshold float64
	RiskTolerance      float64
}

// Tracker accumulates player metrics and owns the difficulty settings.
// Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	settings Settings

	games            int
	playerWins       int
	sumCardsPerPlay  float64
	bluffs           int
	bluffWins        int
	challenges       int
	challengeWins    int
	sumWinDuration   time.Duration
}

// NewTracker returns a tracker starting from the given settings
func NewTracker(settings Settings) *Tracker {
	return &Tracker{settings: settings}
}

// Settings returns a copy of the current difficulty settings
func (t *Tracker) Settings() Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings
}

// Metrics returns the rolling player metrics
func (t *Tracker) Metrics() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metricsLocked()
}

func (t *Tracker) metricsLocked() Metrics {
	m := Metrics{Games: t.games}
	if t.games > 0 {
		m.WinRate = float64(t.playerWins) / float64(t.games)
		m.AvgCardsPerPlay = t.sumCardsPerPlay / float64(t.games)
	}
	if t.bluffs > 0 {
		m.BluffSuccessRate = float64(t.bluffWins) / float64(t.bluffs)
	}
	if t.challenges > 0 {
		m.ChallengeSuccessRate = float64(t.challengeWins) / float64(t.challenges)
	}
	if t.playerWins > 0 {
		m.AvgTimeToWin = t.sumWinDuration / time.Duration(t.playerWins)
	}
	return m
}

// RecordGame folds a completed game into the metrics and, once enough games
// have been seen, adapts the difficulty settings.
func (t *Tracker) RecordGame(rec GameRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.games++
	if rec.PlayerWon {
		t.playerWins++
		t.sumWinDuration += rec.Duration
	}
	t.sumCardsPerPlay += rec.PlayerCardsPerPlay
	t.bluffs += rec.PlayerBluffs
	t.bluffWins += rec.PlayerBluffWins
	t.challenges += rec.PlayerChallenges
	t.challengeWins += rec.PlayerChallengeWins

	if t.games >= minGamesBeforeAdapting {
		t.adaptLocked()
	}
}

// adaptLocked adjusts settings toward harder play when the player is winning
// and leans on observed weaknesses when exploitation is enabled.
func (t *Tracker) adaptLocked() {
	m := t.metricsLocked()
	s := &t.settings

	step := 0.2 * s.AdaptiveSpeed

	if m.WinRate > winRatePivot {
		s.Aggressiveness = clamp01(s.Aggressiveness + step)
		s.BluffFrequency = clamp01(s.BluffFrequency + step)
		s.RiskTolerance = clamp01(s.RiskTolerance + step)
		s.ChallengeThreshold = max(adaptFloor, s.ChallengeThreshold-step)
	}

	if s.ExploitWeaknesses {
		if t.bluffs > 0 && m.BluffSuccessRate < weaknessRate {
			// Player bluffs badly: call them more often
			s.ChallengeThreshold = max(adaptFloor, s.ChallengeThreshold-step/2)
		}
		if t.challenges > 0 && m.ChallengeSuccessRate < weaknessRate {
			// Player challenges badly: lie to them more often
			s.BluffFrequency = clamp01(s.BluffFrequency + step/2)
		}
		if m.AvgCardsPerPlay > heavyPlayThreshold {
			s.ChallengeThreshold = max(adaptFloor, s.ChallengeThreshold-step/2)
		}
	}
}

// Modifiers derives the per-decision multipliers from the current settings,
// scaled by game phase: a critical AI hand (two cards or fewer) always plays
// bolder, and in the endgame the bot presses only when behind.
func (t *Tracker) Modifiers(s *game.State) Modifiers {
	t.mu.Lock()
	settings := t.settings
	t.mu.Unlock()

	m := Modifiers{
		Aggressiveness:     settings.Aggressiveness,
		BluffProbability:   settings.BluffFrequency,
		ChallengeThreshold: settings.ChallengeThreshold,
		RiskTolerance:      settings.RiskTolerance,
	}
	if s == nil {
		return m.clamped()
	}

	switch {
	case s.AICardCount() <= 2:
		// critical: all-in on finishing the game
		m.BluffProbability *= 1.3
		m.RiskTolerance *= 1.3
		m.ChallengeThreshold *= 0.8
	case s.Remaining() < 10:
		if s.AICardCount() < s.HandSize(game.Human) {
			// endgame, ahead: protect the lead
			m.BluffProbability *= 0.7
			m.RiskTolerance *= 0.7
		} else {
			// endgame, behind: push
			m.BluffProbability *= 1.25
			m.RiskTolerance *= 1.25
		}
	}

	return m.clamped()
}

func (m Modifiers) clamped() Modifiers {
	m.Aggressiveness = clamp01(m.Aggressiveness)
	m.BluffProbability = clamp01(m.BluffProbability)
	m.RiskTolerance = clamp01(m.RiskTolerance)
	m.ChallengeThreshold = clamp01(m.ChallengeThreshold)
	if m.ChallengeThreshold < modifierFloor {
		m.ChallengeThreshold = modifierFloor
	}
	return m
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Snapshot is the JSON-friendly persisted form of a tracker
type Snapshot struct {
	Settings        Settings      `json:"settings"`
	Games           int           `json:"games"`
	PlayerWins      int           `json:"player_wins"`
	SumCardsPerPlay float64       `json:"sum_cards_per_play"`
	Bluffs          int           `json:"bluffs"`
	BluffWins       int           `json:"bluff_wins"`
	Challenges      int           `json:"challenges"`
	ChallengeWins   int           `json:"challenge_wins"`
	SumWinDuration  time.Duration `json:"sum_win_duration"`
}

// Snapshot captures the tracker for persistence
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Settings:        t.settings,
		Games:           t.games,
		PlayerWins:      t.playerWins,
		SumCardsPerPlay: t.sumCardsPerPlay,
		Bluffs:          t.bluffs,
		BluffWins:       t.bluffWins,
		Challenges:      t.challenges,
		ChallengeWins:   t.challengeWins,
		SumWinDuration:  t.sumWinDuration,
	}
}

// Restore replaces the tracker state with a previously saved snapshot
func (t *Tracker) Restore(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings = snap.Settings
	t.games = snap.Games
	t.playerWins = snap.PlayerWins
	t.sumCardsPerPlay = snap.SumCardsPerPlay
	t.bluffs = snap.Bluffs
	t.bluffWins = snap.BluffWins
	t.challenges = snap.Challenges
	t.challengeWins = snap.ChallengeWins
	t.sumWinDuration = snap.SumWinDuration
}
