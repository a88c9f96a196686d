package rl

import (
	"math"
	rand "math/rand/v2"
	"sync"

	"github.com/lox/bluffbots/internal/game"
)

const (
	// DefaultAlpha is the learning rate
	DefaultAlpha = 0.1

	// DefaultGamma is the discount factor applied to the next state's value
	DefaultGamma = 0.9

	// DefaultEpsilon is the exploration probability
	DefaultEpsilon = 0.2

	// rewardHistorySize caps the per-entry reward ring buffer
	rewardHistorySize = 100
)

// Entry holds the learned value for one (situation, move) key. Entries are
// created on first visit and only ever trimmed at reward-history capacity,
// never deleted.
type Entry struct {
	QValue        float64
	VisitCount    int
	RewardHistory []float64
}

// Params are the Q-learning hyper-parameters
type Params struct {
	Alpha   float64
	Gamma   float64
	Epsilon float64
}

// DefaultParams returns the standard hyper-parameters
func DefaultParams() Params {
	return Params{Alpha: DefaultAlpha, Gamma: DefaultGamma, Epsilon: DefaultEpsilon}
}

// Table is the Q-table. Safe for concurrent use; one table is shared across
// all games so learning carries over.
type Table struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	params  Params
}

// NewTable returns an empty table with the given hyper-parameters
func NewTable(params Params) *Table {
	return &Table{
		entries: make(map[string]*Entry),
		params:  params,
	}
}

// get returns the entry for a key, creating it on first visit. Caller holds
// the write lock.
func (t *Table) get(k Key) *Entry {
	key := k.String()
	entry, ok := t.entries[key]
	if !ok {
		entry = &Entry{}
		t.entries[key] = entry
	}
	return entry
}

// QValue returns the stored value for a (state, move) pair, zero if unvisited
func (t *Table) QValue(s *game.State, m Move) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if entry, ok := t.entries[KeyFor(s, m).String()]; ok {
		return entry.QValue
	}
	return 0
}

// SuggestMove picks a move epsilon-greedily: with probability epsilon a
// uniformly random legal move, otherwise the legal move with the highest
// stored value. With no recorded values the policy defaults to Pass.
func (t *Table) SuggestMove(s *game.State, actor game.Player, rng *rand.Rand) Move {
	moves := LegalMoves(s, actor)

	if rng.Float64() < t.params.Epsilon {
		return moves[rng.IntN(len(moves))]
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	best := PassMove()
	bestQ := 0.0
	seen := false
	for _, m := range moves {
		entry, ok := t.entries[KeyFor(s, m).String()]
		if !ok {
			continue
		}
		if !seen || entry.QValue > bestQ {
			best = m
			bestQ = entry.QValue
			seen = true
		}
	}
	return best
}

// maxQ returns the highest value over the moves legal for actor in s, with
// unvisited moves counting as zero. Caller holds at least the read lock.
func (t *Table) maxQ(s *game.State, actor game.Player) float64 {
	moves := LegalMoves(s, actor)
	if len(moves) == 0 {
		return 0
	}
	best := math.Inf(-1)
	for _, m := range moves {
		q := 0.0
		if entry, ok := t.entries[KeyFor(s, m).String()]; ok {
			q = entry.QValue
		}
		if q > best {
			best = q
		}
	}
	return best
}

// Update applies the standard Q-learning update for an observed transition:
// Q <- Q + alpha*(reward + gamma*max_a' Q(next, a') - Q).
func (t *Table) Update(s *game.State, m Move, reward float64, next *game.State, actor game.Player) {
	t.mu.Lock()
	defer t.mu.Unlock()

	nextMax := 0.0
	if next != nil && next.Status == game.Playing {
		nextMax = t.maxQ(next, actor)
	}

	entry := t.get(KeyFor(s, m))
	entry.QValue += t.params.Alpha * (reward + t.params.Gamma*nextMax - entry.QValue)
	entry.VisitCount++
	entry.RewardHistory = append(entry.RewardHistory, reward)
	if len(entry.RewardHistory) > rewardHistorySize {
		entry.RewardHistory = entry.RewardHistory[len(entry.RewardHistory)-rewardHistorySize:]
	}
}

// Size returns the number of keys visited so far
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// EntrySnapshot is the JSON-friendly persisted form of an entry
type EntrySnapshot struct {
	QValue        float64   `json:"q_value"`
	VisitCount    int       `json:"visit_count"`
	RewardHistory []float64 `json:"reward_history,omitempty"`
}

// Snapshot captures the table for persistence
func (t *Table) Snapshot() map[string]EntrySnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]EntrySnapshot, len(t.entries))
	for k, e := range t.entries {
		out[k] = EntrySnapshot{
			QValue:        e.QValue,
			VisitCount:    e.VisitCount,
			RewardHistory: append([]float64(nil), e.RewardHistory...),
		}
	}
	return out
}

// Restore replaces the table contents with a previously saved snapshot
func (t *Table) Restore(snap map[string]EntrySnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = make(map[string]*Entry, len(snap))
	for k, e := range snap {
		history := append([]float64(nil), e.RewardHistory...)
		if len(history) > rewardHistorySize {
			history = history[len(history)-rewardHistorySize:]
		}
		t.entries[k] = &Entry{
			QValue:        e.QValue,
			VisitCount:    e.VisitCount,
			RewardHistory: history,
		}
	}
}
