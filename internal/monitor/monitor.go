// Package monitor records every decision the bot makes and the outcome that
// followed, keeping rollup performance metrics the way a table server keeps
// per-player statistics.
package monitor

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/bluffbots/internal/deck"
	"github.com/lox/bluffbots/internal/game"
	"github.com/lox/bluffbots/internal/store"
)

const (
	// historySize bounds the retained decision log
	historySize = 200

	// DefaultFlushInterval is how often the recorder persists itself
	DefaultFlushInterval = 60 * time.Second
)

// InsightSnapshot captures the ML signals that informed a decision
type InsightSnapshot struct {
	LikelyToBluff        float64 `json:"likely_to_bluff"`
	LikelyToChallenge    float64 `json:"likely_to_challenge"`
	PlayerBluffFrequency float64 `json:"player_bluff_frequency"`
	BluffFrequency       float64 `json:"bluff_frequency"`
	ChallengeThreshold   float64 `json:"challenge_threshold"`
	RiskTolerance        float64 `json:"risk_tolerance"`
}

// Outcome is attached to a decision once its result is known
type Outcome struct {
	Recorded bool    `json:"recorded"`
	Success  bool    `json:"success"`
	Reward   float64 `json:"reward"`
}

// DecisionMetrics is one recorded decision
type DecisionMetrics struct {
	At           time.Time       `json:"at"`
	State        game.Snapshot   `json:"state"`
	Insights     InsightSnapshot `json:"insights"`
	Action       game.ActionType `json:"action"`
	CardCount    int             `json:"card_count,omitempty"`
	DeclaredRank deck.Rank       `json:"declared_rank,omitempty"`
	WasBluff     bool            `json:"was_bluff,omitempty"`
	Confidence   float64         `json:"confidence"`
	Outcome      Outcome         `json:"outcome"`
}

// Performance is the rolling aggregate over recorded outcomes
type Performance struct {
	Decisions            int
	Outcomes             int
	Accuracy             float64
	BluffSuccessRate     float64
	ChallengeSuccessRate float64
	AverageReward        float64
}

// Recorder is the decision log. Safe for concurrent use. The store is
// optional; with one configured, StartFlush persists the log periodically.
type Recorder struct {
	mu      sync.Mutex
	clock   quartz.Clock
	logger  *log.Logger
	store   store.Store
	history []DecisionMetrics

	outcomes           int
	successes          int
	bluffAttempts      int
	bluffSuccesses     int
	challengeAttempts  int
	challengeSuccesses int
	rewardSum          float64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRecorder creates a recorder. st may be nil to disable persistence.
func NewRecorder(clock quartz.Clock, logger *log.Logger, st store.Store) *Recorder {
	return &Recorder{
		clock:  clock,
		logger: logger.WithPrefix("monitor"),
		store:  st,
		stop:   make(chan struct{}),
	}
}

// RecordDecision appends a decision with an empty outcome
func (r *Recorder) RecordDecision(state game.Snapshot, insights InsightSnapshot, action game.Action, confidence float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := DecisionMetrics{
		At:         r.clock.Now(),
		State:      state,
		Insights:   insights,
		Action:     action.Type,
		Confidence: confidence,
	}
	if action.Type == game.PlayCards {
		m.CardCount = len(action.Cards)
		m.DeclaredRank = action.DeclaredRank
		m.WasBluff = action.IsBluff()
	}

	r.history = append(r.history, m)
	if len(r.history) > historySize {
		r.history = r.history[len(r.history)-historySize:]
	}
}

// RecordOutcome attaches success and reward to the most recent decision and
// updates the rollups. A call with no pending decision is a no-op.
func (r *Recorder) RecordOutcome(success bool, reward float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.history) == 0 {
		return
	}
	last := &r.history[len(r.history)-1]
	if last.Outcome.Recorded {
		return
	}
	last.Outcome = Outcome{Recorded: true, Success: success, Reward: reward}

	r.outcomes++
	if success {
		r.successes++
	}
	r.rewardSum += reward

	switch {
	case last.Action == game.Challenge:
		r.challengeAttempts++
		if success {
			r.challengeSuccesses++
		}
	case last.WasBluff:
		r.bluffAttempts++
		if success {
			r.bluffSuccesses++
		}
	}
}

// Recent returns up to n of the latest decisions, newest last
func (r *Recorder) Recent(n int) []DecisionMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > len(r.history) {
		n = len(r.history)
	}
	out := make([]DecisionMetrics, n)
	copy(out, r.history[len(r.history)-n:])
	return out
}

// Distribution returns the action-type counts over the retained history
func (r *Recorder) Distribution() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	dist := make(map[string]int)
	for _, m := range r.history {
		dist[m.Action.String()]++
	}
	return dist
}

// Performance returns the rolling aggregates
func (r *Recorder) Performance() Performance {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := Performance{
		Decisions: len(r.history),
		Outcomes:  r.outcomes,
	}
	if r.outcomes > 0 {
		p.Accuracy = float64(r.successes) / float64(r.outcomes)
		p.AverageReward = r.rewardSum / float64(r.outcomes)
	}
	if r.bluffAttempts > 0 {
		p.BluffSuccessRate = float64(r.bluffSuccesses) / float64(r.bluffAttempts)
	}
	if r.challengeAttempts > 0 {
		p.ChallengeSuccessRate = float64(r.challengeSuccesses) / float64(r.challengeAttempts)
	}
	return p
}

// snapshot is the persisted form
type snapshot struct {
	History            []DecisionMetrics `json:"history"`
	Outcomes           int               `json:"outcomes"`
	Successes          int               `json:"successes"`
	BluffAttempts      int               `json:"bluff_attempts"`
	BluffSuccesses     int               `json:"bluff_successes"`
	ChallengeAttempts  int               `json:"challenge_attempts"`
	ChallengeSuccesses int               `json:"challenge_successes"`
	RewardSum          float64           `json:"reward_sum"`
}

// Flush persists the recorder through the store, if one is configured
func (r *Recorder) Flush(key string) error {
	if r.store == nil {
		return nil
	}

	r.mu.Lock()
	snap := snapshot{
		History:            append([]DecisionMetrics(nil), r.history...),
		Outcomes:           r.outcomes,
		Successes:          r.successes,
		BluffAttempts:      r.bluffAttempts,
		BluffSuccesses:     r.bluffSuccesses,
		ChallengeAttempts:  r.challengeAttempts,
		ChallengeSuccesses: r.challengeSuccesses,
		RewardSum:          r.rewardSum,
	}
	r.mu.Unlock()

	return r.store.Save(key, snap)
}

// Restore loads a previously flushed recorder state. Missing data is not an
// error.
func (r *Recorder) Restore(key string) error {
	if r.store == nil {
		return nil
	}

	var snap snapshot
	ok, err := r.store.Load(key, &snap)
	if err != nil || !ok {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = snap.History
	if len(r.history) > historySize {
		r.history = r.history[len(r.history)-historySize:]
	}
	r.outcomes = snap.Outcomes
	r.successes = snap.Successes
	r.bluffAttempts = snap.BluffAttempts
	r.bluffSuccesses = snap.BluffSuccesses
	r.challengeAttempts = snap.ChallengeAttempts
	r.challengeSuccesses = snap.ChallengeSuccesses
	r.rewardSum = snap.RewardSum
	return nil
}

// StartFlush persists the recorder every interval until Close
func (r *Recorder) StartFlush(key string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := r.clock.NewTicker(interval, "monitor", "flush")
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.Flush(key); err != nil {
					r.logger.Warn("flush failed", "error", err)
				}
			case <-r.stop:
				return
			}
		}
	}()
}

// Close stops the background flush without blocking in-flight recording
func (r *Recorder) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}
