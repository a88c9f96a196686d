// Package bot implements the adaptive decision engine: one orchestrator
// composing pattern tracking, learned strategies, Q-learning, difficulty
// scaling and personality into a single MakeDecision/UpdateModel surface.
// Every collaborator is injected; the bot owns no global state.
package bot

import (
	"context"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/bluffbots/internal/cache"
	"github.com/lox/bluffbots/internal/difficulty"
	"github.com/lox/bluffbots/internal/game"
	"github.com/lox/bluffbots/internal/monitor"
	"github.com/lox/bluffbots/internal/pattern"
	"github.com/lox/bluffbots/internal/personality"
	"github.com/lox/bluffbots/internal/recovery"
	"github.com/lox/bluffbots/internal/rl"
	"github.com/lox/bluffbots/internal/store"
)

// Subsystem names used for circuit breaking and error reporting
const (
	SubsystemPrediction  = "prediction"
	SubsystemStrategy    = "strategy"
	SubsystemLearning    = "learning"
	SubsystemPersonality = "personality"
	SubsystemCache       = "cache"
	SubsystemMonitoring  = "monitoring"
)

// Persistence keys for the learning state
const (
	KeyQTable     = "qtable"
	KeyPatterns   = "patterns"
	KeyStrategies = "strategies"
	KeyDifficulty = "difficulty"
	KeyDecisions  = "decisions"
)

// recentMovesSize bounds the buffer of moves awaiting outcome context
const recentMovesSize = 10

// ChatSignal is the optional NLP read on the human player. The analyzer is
// an external collaborator; when absent its contribution is zero.
type ChatSignal struct {
	SentimentScore float64
	BluffDetected  bool
	Confidence     float64
	EmotionalState string
}

// ChatAnalyzer supplies chat-derived signals about the human player
type ChatAnalyzer interface {
	Analyze(ctx context.Context) (ChatSignal, error)
}

// MLInsights is the typed bundle of signals gathered before a decision
type MLInsights struct {
	Prediction   pattern.Prediction
	Profile      pattern.Profile
	OptimalBluff *pattern.BluffStrategy
	Traits       personality.Traits
	Chat         *ChatSignal
}

// recordedMove is a decision waiting for its outcome
type recordedMove struct {
	Action game.Action
	State  *game.State
	At     time.Time
}

// Options wires a bot together. Logger, Clock and RNG are required; any nil
// collaborator is replaced with a fresh default built on them.
type Options struct {
	Logger *log.Logger
	Clock  quartz.Clock
	RNG    *rand.Rand

	Tracker     *pattern.Tracker
	Book        *pattern.Book
	Table       *rl.Table
	Difficulty  *difficulty.Tracker
	Personality *personality.Personality
	Breakers    *recovery.Breakers
	Recorder    *monitor.Recorder

	DecisionCache   *cache.Cache[game.Action]
	PredictionCache *cache.Cache[pattern.Prediction]

	Store store.Store  // optional
	Chat  ChatAnalyzer // optional
}

// Bot is the decision orchestrator
type Bot struct {
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand

	tracker     *pattern.Tracker
	book        *pattern.Book
	table       *rl.Table
	difficulty  *difficulty.Tracker
	personality *personality.Personality
	breakers    *recovery.Breakers
	recorder    *monitor.Recorder

	decisions   *cache.Cache[game.Action]
	predictions *cache.Cache[pattern.Prediction]

	store store.Store
	chat  ChatAnalyzer

	mu          sync.Mutex
	recentMoves []recordedMove
	pending     *recordedMove
	errorCount  int
}

// New assembles a bot from options, constructing defaults for any missing
// collaborator.
func New(opts Options) *Bot {
	logger := opts.Logger.WithPrefix("bot")

	if opts.Tracker == nil {
		opts.Tracker = pattern.NewTracker()
	}
	if opts.Book == nil {
		opts.Book = pattern.NewBook()
	}
	if opts.Table == nil {
		opts.Table = rl.NewTable(rl.DefaultParams())
	}
	if opts.Difficulty == nil {
		opts.Difficulty = difficulty.NewTracker(difficulty.DefaultSettings())
	}
	if opts.Personality == nil {
		opts.Personality = personality.New(personality.Balanced, opts.RNG)
	}
	if opts.Breakers == nil {
		opts.Breakers = recovery.New(opts.Clock, opts.Logger, recovery.DefaultConfig())
	}
	if opts.Recorder == nil {
		opts.Recorder = monitor.NewRecorder(opts.Clock, opts.Logger, opts.Store)
	}
	if opts.DecisionCache == nil {
		opts.DecisionCache = cache.New[game.Action](opts.Clock, opts.Logger, cache.Options{
			DefaultTTL: cache.DecisionTTL,
		})
	}
	if opts.PredictionCache == nil {
		opts.PredictionCache = cache.New[pattern.Prediction](opts.Clock, opts.Logger, cache.Options{
			DefaultTTL: cache.PredictionTTL,
		})
	}

	return &Bot{
		logger:      logger,
		clock:       opts.Clock,
		rng:         opts.RNG,
		tracker:     opts.Tracker,
		book:        opts.Book,
		table:       opts.Table,
		difficulty:  opts.Difficulty,
		personality: opts.Personality,
		breakers:    opts.Breakers,
		recorder:    opts.Recorder,
		decisions:   opts.DecisionCache,
		predictions: opts.PredictionCache,
		store:       opts.Store,
		chat:        opts.Chat,
	}
}

// Start launches the background cache sweeps and monitor flush
func (b *Bot) Start() {
	b.decisions.StartSweep(cache.SweepInterval)
	b.predictions.StartSweep(cache.SweepInterval)
	if b.store != nil {
		b.recorder.StartFlush(KeyDecisions, monitor.DefaultFlushInterval)
	}
}

// Close stops background work without blocking in-flight decisions
func (b *Bot) Close() {
	b.decisions.Stop()
	b.predictions.Stop()
	b.recorder.Close()
}

// Errors returns the count of locally recovered failures
func (b *Bot) Errors() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorCount
}

func (b *Bot) countError() {
	b.mu.Lock()
	b.errorCount++
	b.mu.Unlock()
}

// Monitor exposes the decision recorder's read accessors
func (b *Bot) Monitor() *monitor.Recorder {
	return b.recorder
}

// Difficulty exposes the difficulty tracker
func (b *Bot) Difficulty() *difficulty.Tracker {
	return b.difficulty
}

// RecordGameResult folds a finished game into the difficulty metrics
func (b *Bot) RecordGameResult(rec difficulty.GameRecord) {
	b.difficulty.RecordGame(rec)
}

// SaveState persists the learning state through the store. Writes are
// best-effort; the first failure is returned but the rest are attempted.
func (b *Bot) SaveState() error {
	if b.store == nil {
		return nil
	}

	var firstErr error
	save := func(key string, value any) {
		if err := b.store.Save(key, value); err != nil {
			b.logger.Warn("save failed", "key", key, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	save(KeyQTable, b.table.Snapshot())
	save(KeyPatterns, b.tracker.Snapshot())
	save(KeyStrategies, b.book.Snapshot())
	save(KeyDifficulty, b.difficulty.Snapshot())
	return firstErr
}

// LoadState restores any previously persisted learning state. Missing keys
// leave the corresponding component at its zero state.
func (b *Bot) LoadState() error {
	if b.store == nil {
		return nil
	}

	var qtable map[string]rl.EntrySnapshot
	if ok, err := b.store.Load(KeyQTable, &qtable); err != nil {
		return err
	} else if ok {
		b.table.Restore(qtable)
	}

	var patterns pattern.TrackerSnapshot
	if ok, err := b.store.Load(KeyPatterns, &patterns); err != nil {
		return err
	} else if ok {
		b.tracker.Restore(patterns)
	}

	var strategies map[string]int
	if ok, err := b.store.Load(KeyStrategies, &strategies); err != nil {
		return err
	} else if ok {
		b.book.Restore(strategies)
	}

	var diff difficulty.Snapshot
	if ok, err := b.store.Load(KeyDifficulty, &diff); err != nil {
		return err
	} else if ok {
		b.difficulty.Restore(diff)
	}

	return nil
}
