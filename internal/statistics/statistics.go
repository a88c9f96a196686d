// Package statistics aggregates simulation results for the bluff bot
package statistics

import (
	"fmt"
	"math"
	"sort"
)

// GameResult represents the outcome of a single simulated game
type GameResult struct {
	AIWon       bool  // Did the bot win?
	Seed        int64 // RNG seed for this game (for replay)
	Turns       int   // Actions applied before the game finished
	MarginCards int   // Cards the opponent still held at the end (negative when the bot lost)

	// Detailed analytics
	AIChallenges   int // Challenges the bot issued
	BluffsCaught   int // Opponent bluffs the bot called correctly
	BadChallenges  int // Truthful plays the bot challenged
	AIBluffs       int // Bluffed plays the bot made
	AIBluffsCaught int // Bot bluffs the opponent called
}

// Statistics tracks comprehensive simulation statistics. The central value
// is the per-game card margin from the bot's perspective.
type Statistics struct {
	Games      int
	AIWins     int
	SumMargin  float64
	SumMargin2 float64   // Sum of squares for variance calculation
	Values     []float64 // All margins for median/percentile calculation

	SumTurns      int
	Challenges    int
	BluffsCaught  int
	BadChallenges int
	Bluffs        int
	BluffsBusted  int
	LongestGame   int
}

// Add incorporates a new game result into the statistics
func (s *Statistics) Add(result GameResult) {
	margin := float64(result.MarginCards)
	s.Games++
	if result.AIWon {
		s.AIWins++
	}
	s.SumMargin += margin
	s.SumMargin2 += margin * margin
	s.Values = append(s.Values, margin)

	s.SumTurns += result.Turns
	s.Challenges += result.AIChallenges
	s.BluffsCaught += result.BluffsCaught
	s.BadChallenges += result.BadChallenges
	s.Bluffs += result.AIBluffs
	s.BluffsBusted += result.AIBluffsCaught

	if result.Turns > s.LongestGame {
		s.LongestGame = result.Turns
	}
}

// WinRate returns the bot's win rate
func (s *Statistics) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.AIWins) / float64(s.Games)
}

// Mean returns the arithmetic mean card margin per game
func (s *Statistics) Mean() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.SumMargin / float64(s.Games)
}

// Variance returns the sample variance of the margins
func (s *Statistics) Variance() float64 {
	if s.Games < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumMargin2 - float64(s.Games)*mean*mean) / float64(s.Games-1)
}

// StdDev returns the sample standard deviation of the margins
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean margin
func (s *Statistics) StdError() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Games))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean margin
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// AvgTurns returns the average game length in actions
func (s *Statistics) AvgTurns() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.SumTurns) / float64(s.Games)
}

// ChallengeAccuracy returns the fraction of the bot's challenges that
// caught a bluff
func (s *Statistics) ChallengeAccuracy() float64 {
	if s.Challenges == 0 {
		return 0
	}
	return float64(s.BluffsCaught) / float64(s.Challenges)
}

// BluffSurvival returns the fraction of the bot's bluffs that went unpunished
func (s *Statistics) BluffSurvival() float64 {
	if s.Bluffs == 0 {
		return 0
	}
	return float64(s.Bluffs-s.BluffsBusted) / float64(s.Bluffs)
}

// Median returns the median margin
func (s *Statistics) Median() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Percentile returns the margin at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Validate performs consistency checks over the accumulated data
func (s *Statistics) Validate() error {
	if s.Games < 0 {
		return fmt.Errorf("invalid games count: %d", s.Games)
	}
	if len(s.Values) != s.Games {
		return fmt.Errorf("values array length (%d) does not match games count (%d)",
			len(s.Values), s.Games)
	}
	if s.AIWins > s.Games {
		return fmt.Errorf("wins (%d) exceed games (%d)", s.AIWins, s.Games)
	}
	if s.BluffsCaught+s.BadChallenges > s.Challenges {
		return fmt.Errorf("challenge outcomes (%d+%d) exceed challenges (%d)",
			s.BluffsCaught, s.BadChallenges, s.Challenges)
	}
	if s.BluffsBusted > s.Bluffs {
		return fmt.Errorf("busted bluffs (%d) exceed bluffs (%d)", s.BluffsBusted, s.Bluffs)
	}
	return nil
}
