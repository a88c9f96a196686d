package pattern

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lox/bluffbots/internal/deck"
)

// Stage buckets a game by total cards remaining in hands
type Stage int

const (
	Early Stage = iota
	Mid
	Late
)

// String returns the string representation of a stage
func (s Stage) String() string {
	switch s {
	case Early:
		return "early"
	case Mid:
		return "mid"
	case Late:
		return "late"
	default:
		return "unknown"
	}
}

// StageFor buckets the total remaining hand cards into a stage
func StageFor(remaining int) Stage {
	switch {
	case remaining > 40:
		return Early
	case remaining > 20:
		return Mid
	default:
		return Late
	}
}

// BluffStrategy is a bluff shape that has worked before in a given stage
type BluffStrategy struct {
	CardCount    int
	DeclaredRank deck.Rank
	Successes    int
}

// Book keys successful strategies by game stage so the bot can reach for
// what has already worked at this point of a game. Only successes are
// recorded; failures leave the book untouched.
type Book struct {
	mu      sync.Mutex
	success map[string]int
}

// NewBook returns an empty strategy book
func NewBook() *Book {
	return &Book{success: make(map[string]int)}
}

func bluffKey(stage Stage, cardCount int, declared deck.Rank) string {
	return fmt.Sprintf("%s/bluff/%d/%d", stage, cardCount, int(declared))
}

func challengeKey(stage Stage) string {
	return fmt.Sprintf("%s/challenge", stage)
}

// RecordBluff increments the success counter for a bluff shape when result
// is true
func (b *Book) RecordBluff(stage Stage, cardCount int, declared deck.Rank, result bool) {
	if !result {
		return
	}
	b.mu.Lock()
	b.success[bluffKey(stage, cardCount, declared)]++
	b.mu.Unlock()
}

// RecordChallenge increments the stage's challenge success counter when
// result is true
func (b *Book) RecordChallenge(stage Stage, result bool) {
	if !result {
		return
	}
	b.mu.Lock()
	b.success[challengeKey(stage)]++
	b.mu.Unlock()
}

// OptimalBluff returns the bluff shape with the most recorded successes in
// the stage, or nil when the book has no data for it.
func (b *Book) OptimalBluff(stage Stage) *BluffStrategy {
	b.mu.Lock()
	defer b.mu.Unlock()

	prefix := fmt.Sprintf("%s/bluff/", stage)
	var best *BluffStrategy
	for key, count := range b.success {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		var cardCount, rank int
		if _, err := fmt.Sscanf(key[len(prefix):], "%d/%d", &cardCount, &rank); err != nil {
			continue
		}
		if best == nil || count > best.Successes {
			best = &BluffStrategy{
				CardCount:    cardCount,
				DeclaredRank: deck.Rank(rank),
				Successes:    count,
			}
		}
	}
	return best
}

// ChallengeSuccesses returns the recorded challenge successes for the stage
func (b *Book) ChallengeSuccesses(stage Stage) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.success[challengeKey(stage)]
}

// Snapshot captures the success table for persistence
func (b *Book) Snapshot() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int, len(b.success))
	for k, v := range b.success {
		out[k] = v
	}
	return out
}

// Restore replaces the success table with a previously saved snapshot
func (b *Book) Restore(snap map[string]int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.success = make(map[string]int, len(snap))
	for k, v := range snap {
		b.success[k] = v
	}
}
