package statistics

import (
	"math"
	"testing"
)

func result(won bool, margin int) GameResult {
	return GameResult{AIWon: won, Turns: 10, MarginCards: margin}
}

func TestWinRate(t *testing.T) {
	s := &Statistics{}

	if s.WinRate() != 0 {
		t.Errorf("Empty statistics should have win rate 0, got %f", s.WinRate())
	}

	s.Add(result(true, 5))
	s.Add(result(true, 3))
	s.Add(result(false, -4))

	if got := s.WinRate(); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("Expected win rate 2/3, got %f", got)
	}
}

func TestMeanAndVariance(t *testing.T) {
	s := &Statistics{}
	for _, m := range []int{2, 4, 6} {
		s.Add(result(true, m))
	}

	if got := s.Mean(); math.Abs(got-4) > 1e-9 {
		t.Errorf("Expected mean 4, got %f", got)
	}

	// Sample variance of {2,4,6} is 4
	if got := s.Variance(); math.Abs(got-4) > 1e-9 {
		t.Errorf("Expected variance 4, got %f", got)
	}
	if got := s.StdDev(); math.Abs(got-2) > 1e-9 {
		t.Errorf("Expected stddev 2, got %f", got)
	}
}

func TestConfidenceInterval(t *testing.T) {
	s := &Statistics{}
	for i := 0; i < 100; i++ {
		s.Add(result(true, 4))
	}

	low, high := s.ConfidenceInterval95()
	if low > s.Mean() || high < s.Mean() {
		t.Errorf("CI [%f, %f] does not contain mean %f", low, high, s.Mean())
	}
	// Identical samples have zero spread
	if math.Abs(high-low) > 1e-9 {
		t.Errorf("Expected degenerate CI, got [%f, %f]", low, high)
	}
}

func TestMedianAndPercentile(t *testing.T) {
	s := &Statistics{}
	for _, m := range []int{1, 3, 5, 7, 9} {
		s.Add(result(true, m))
	}

	if got := s.Median(); math.Abs(got-5) > 1e-9 {
		t.Errorf("Expected median 5, got %f", got)
	}
	if got := s.Percentile(0); math.Abs(got-1) > 1e-9 {
		t.Errorf("Expected p0 = 1, got %f", got)
	}
	if got := s.Percentile(1); math.Abs(got-9) > 1e-9 {
		t.Errorf("Expected p100 = 9, got %f", got)
	}
	if got := s.Percentile(0.5); math.Abs(got-5) > 1e-9 {
		t.Errorf("Expected p50 = 5, got %f", got)
	}

	s.Add(result(false, -1))
	// Even count: median interpolates the middle pair {3,5}
	if got := s.Median(); math.Abs(got-4) > 1e-9 {
		t.Errorf("Expected median 4, got %f", got)
	}
}

func TestChallengeAccuracy(t *testing.T) {
	s := &Statistics{}
	s.Add(GameResult{AIWon: true, Turns: 20, MarginCards: 3, AIChallenges: 4, BluffsCaught: 3, BadChallenges: 1})
	s.Add(GameResult{AIWon: false, Turns: 30, MarginCards: -2, AIChallenges: 2, BluffsCaught: 0, BadChallenges: 2})

	if got := s.ChallengeAccuracy(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected challenge accuracy 0.5, got %f", got)
	}
	if got := s.AvgTurns(); math.Abs(got-25) > 1e-9 {
		t.Errorf("Expected 25 average turns, got %f", got)
	}
	if s.LongestGame != 30 {
		t.Errorf("Expected longest game 30, got %d", s.LongestGame)
	}
}

func TestBluffSurvival(t *testing.T) {
	s := &Statistics{}
	s.Add(GameResult{AIWon: true, Turns: 10, AIBluffs: 5, AIBluffsCaught: 2})

	if got := s.BluffSurvival(); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("Expected bluff survival 0.6, got %f", got)
	}
}

func TestValidate(t *testing.T) {
	s := &Statistics{}
	s.Add(result(true, 5))
	if err := s.Validate(); err != nil {
		t.Errorf("Valid statistics failed validation: %v", err)
	}

	bad := &Statistics{Games: 2, Values: []float64{1}}
	if err := bad.Validate(); err == nil {
		t.Error("Expected validation error for mismatched values length")
	}

	bad = &Statistics{Challenges: 1, BluffsCaught: 1, BadChallenges: 1}
	if err := bad.Validate(); err == nil {
		t.Error("Expected validation error for impossible challenge ledger")
	}
}
