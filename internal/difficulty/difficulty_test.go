package difficulty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lox/bluffbots/internal/deck"
	"github.com/lox/bluffbots/internal/game"
)

func winningPlayer() GameRecord {
	return GameRecord{
		PlayerWon:          true,
		Duration:           time.Minute,
		PlayerCardsPerPlay: 1.5,
		PlayerBluffs:       4,
		PlayerBluffWins:    3,
		PlayerChallenges:   4,
		PlayerChallengeWins: 3,
	}
}

func TestNoAdaptationBeforeMinimumGames(t *testing.T) {
	tr := NewTracker(DefaultSettings())

	tr.RecordGame(winningPlayer())
	tr.RecordGame(winningPlayer())

	assert.Equal(t, DefaultSettings(), tr.Settings())
}

func TestAdaptsAgainstWinningPlayer(t *testing.T) {
	tr := NewTracker(DefaultSettings())

	for i := 0; i < 5; i++ {
		tr.RecordGame(winningPlayer())
	}

	s := tr.Settings()
	def := DefaultSettings()
	assert.Greater(t, s.Aggressiveness, def.Aggressiveness)
	assert.Greater(t, s.BluffFrequency, def.BluffFrequency)
	assert.Greater(t, s.RiskTolerance, def.RiskTolerance)
	assert.Less(t, s.ChallengeThreshold, def.ChallengeThreshold)
	assert.GreaterOrEqual(t, s.ChallengeThreshold, 0.4)
}

func TestNoHardeningAgainstLosingPlayer(t *testing.T) {
	tr := NewTracker(Settings{
		Aggressiveness:     0.5,
		BluffFrequency:     0.5,
		ChallengeThreshold: 0.6,
		RiskTolerance:      0.5,
		AdaptiveSpeed:      0.5,
		ExploitWeaknesses:  false,
	})

	rec := GameRecord{PlayerWon: false, PlayerCardsPerPlay: 1.0}
	for i := 0; i < 5; i++ {
		tr.RecordGame(rec)
	}

	s := tr.Settings()
	assert.InDelta(t, 0.5, s.Aggressiveness, 1e-9)
	assert.InDelta(t, 0.6, s.ChallengeThreshold, 1e-9)
}

func TestExploitsWeakBluffer(t *testing.T) {
	tr := NewTracker(DefaultSettings())

	// Player loses, but bluffs constantly and badly
	rec := GameRecord{
		PlayerWon:          false,
		PlayerCardsPerPlay: 1.0,
		PlayerBluffs:       10,
		PlayerBluffWins:    1,
	}
	for i := 0; i < 5; i++ {
		tr.RecordGame(rec)
	}

	// Challenge threshold drops so the bot calls more often
	assert.Less(t, tr.Settings().ChallengeThreshold, DefaultSettings().ChallengeThreshold)
}

func TestExploitsWeakChallenger(t *testing.T) {
	tr := NewTracker(DefaultSettings())

	rec := GameRecord{
		PlayerWon:           false,
		PlayerCardsPerPlay:  1.0,
		PlayerChallenges:    10,
		PlayerChallengeWins: 1,
	}
	for i := 0; i < 5; i++ {
		tr.RecordGame(rec)
	}

	assert.Greater(t, tr.Settings().BluffFrequency, DefaultSettings().BluffFrequency)
}

func TestMetrics(t *testing.T) {
	tr := NewTracker(DefaultSettings())

	tr.RecordGame(GameRecord{PlayerWon: true, Duration: 2 * time.Minute, PlayerCardsPerPlay: 2})
	tr.RecordGame(GameRecord{PlayerWon: false, PlayerCardsPerPlay: 1})

	m := tr.Metrics()
	assert.Equal(t, 2, m.Games)
	assert.InDelta(t, 0.5, m.WinRate, 1e-9)
	assert.InDelta(t, 1.5, m.AvgCardsPerPlay, 1e-9)
	assert.Equal(t, 2*time.Minute, m.AvgTimeToWin)
}

func handOf(n int) []deck.Card {
	out := make([]deck.Card, n)
	for i := range out {
		out[i] = deck.NewCard(deck.Suit(i%4), deck.Rank(int(deck.Two)+i%13))
	}
	return out
}

func TestModifiersCriticalHand(t *testing.T) {
	tr := NewTracker(DefaultSettings())

	state := &game.State{AIHand: handOf(2), HumanHand: handOf(20), Status: game.Playing}
	m := tr.Modifiers(state)
	base := tr.Modifiers(nil)

	assert.Greater(t, m.BluffProbability, base.BluffProbability)
	assert.Greater(t, m.RiskTolerance, base.RiskTolerance)
	assert.Less(t, m.ChallengeThreshold, base.ChallengeThreshold)
}

func TestModifiersEndgame(t *testing.T) {
	tr := NewTracker(DefaultSettings())

	// Ahead: four cards against five
	ahead := tr.Modifiers(&game.State{AIHand: handOf(4), HumanHand: handOf(5), Status: game.Playing})
	base := tr.Modifiers(nil)
	assert.Less(t, ahead.BluffProbability, base.BluffProbability)
	assert.Less(t, ahead.RiskTolerance, base.RiskTolerance)

	// Behind: five cards against four
	behind := tr.Modifiers(&game.State{AIHand: handOf(5), HumanHand: handOf(4), Status: game.Playing})
	assert.Greater(t, behind.BluffProbability, base.BluffProbability)
	assert.Greater(t, behind.RiskTolerance, base.RiskTolerance)
}

func TestModifiersClamped(t *testing.T) {
	tr := NewTracker(Settings{
		Aggressiveness:     1,
		BluffFrequency:     1,
		ChallengeThreshold: 0.3,
		RiskTolerance:      1,
		AdaptiveSpeed:      0.5,
	})

	m := tr.Modifiers(&game.State{AIHand: handOf(1), HumanHand: handOf(20), Status: game.Playing})
	assert.LessOrEqual(t, m.BluffProbability, 1.0)
	assert.LessOrEqual(t, m.RiskTolerance, 1.0)
	assert.GreaterOrEqual(t, m.ChallengeThreshold, 0.3)
}

func TestDifficultySnapshotRoundTrip(t *testing.T) {
	tr := NewTracker(DefaultSettings())
	for i := 0; i < 4; i++ {
		tr.RecordGame(winningPlayer())
	}

	restored := NewTracker(DefaultSettings())
	restored.Restore(tr.Snapshot())

	assert.Equal(t, tr.Settings(), restored.Settings())
	assert.Equal(t, tr.Metrics(), restored.Metrics())
}
