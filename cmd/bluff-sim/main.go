package main

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/bluffbots/internal/bot"
	"github.com/lox/bluffbots/internal/cache"
	"github.com/lox/bluffbots/internal/config"
	"github.com/lox/bluffbots/internal/deck"
	"github.com/lox/bluffbots/internal/difficulty"
	"github.com/lox/bluffbots/internal/game"
	"github.com/lox/bluffbots/internal/pattern"
	"github.com/lox/bluffbots/internal/personality"
	"github.com/lox/bluffbots/internal/randutil"
	"github.com/lox/bluffbots/internal/recovery"
	"github.com/lox/bluffbots/internal/rl"
	"github.com/lox/bluffbots/internal/statistics"
	"github.com/lox/bluffbots/internal/store"
)

type CLI struct {
	Games       int    `default:"1000" help:"Number of games to simulate"`
	Seed        int64  `default:"0" help:"RNG seed (0 for random)"`
	Personality string `default:"balanced" help:"Bot personality: aggressive, conservative, balanced, unpredictable"`
	Config      string `default:"bluff.hcl" help:"Path to an HCL config file"`
	StateDir    string `default:"" help:"Directory for persisted learning state (empty disables persistence)"`
	Verbose     bool   `short:"v" help:"Verbose logging"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("bluff-sim"),
		kong.Description("Simulate the adaptive bluff bot against a scripted opponent"))

	var logger *log.Logger
	if cli.Verbose {
		logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.DebugLevel})
	} else {
		logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel})
	}

	if err := run(cli, logger); err != nil {
		logger.Error("simulation failed", "error", err)
		kctx.Exit(1)
	}
}

func run(cli CLI, logger *log.Logger) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if cli.Personality != "" {
		cfg.AI.Personality = cli.Personality
	}
	preset, err := personality.ParsePreset(cfg.AI.Personality)
	if err != nil {
		return err
	}

	seed := cli.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := randutil.New(seed)
	clock := quartz.NewReal()

	var st store.Store
	if cli.StateDir != "" {
		fs, err := store.NewFileStore(cli.StateDir)
		if err != nil {
			return err
		}
		st = fs
	}

	settings := difficulty.DefaultSettings()
	settings.ExploitWeaknesses = cfg.AI.ExploitWeaknesses

	b := bot.New(bot.Options{
		Logger: logger,
		Clock:  clock,
		RNG:    rng,
		Table: rl.NewTable(rl.Params{
			Alpha:   cfg.AI.Alpha,
			Gamma:   cfg.AI.Gamma,
			Epsilon: cfg.AI.Epsilon,
		}),
		Difficulty:  difficulty.NewTracker(settings),
		Personality: personality.New(preset, rng),
		Breakers: recovery.New(clock, logger, recovery.Config{
			MaxAttempts:      cfg.Recovery.MaxAttempts,
			BackoffBase:      cfg.Recovery.Backoff(),
			FailureThreshold: cfg.Recovery.FailureThreshold,
			RecoveryTimeout:  cfg.Recovery.RecoveryTimeout(),
		}),
		DecisionCache: cache.New[game.Action](clock, logger, cache.Options{
			MaxEntries: cfg.Cache.MaxEntries,
			DefaultTTL: cfg.Cache.DecisionTTL(),
		}),
		PredictionCache: cache.New[pattern.Prediction](clock, logger, cache.Options{
			MaxEntries: cfg.Cache.MaxEntries,
			DefaultTTL: cfg.Cache.PredictionTTL(),
		}),
		Store: st,
	})
	b.Start()
	defer b.Close()

	if err := b.LoadState(); err != nil {
		logger.Warn("could not load learning state", "error", err)
	}

	fmt.Printf("Starting simulation: %d games, personality %s (seed: %d)\n\n",
		cli.Games, preset, seed)

	stats := &statistics.Statistics{}
	start := time.Now()

	for i := 0; i < cli.Games; i++ {
		gameSeed := seed + int64(i)
		result := playGame(b, gameSeed, logger)
		stats.Add(result)

		if (i+1)%100 == 0 {
			elapsed := time.Since(start)
			fmt.Printf("Game %d: win rate %.3f, mean margin %.2f (%.0f games/sec)\n",
				i+1, stats.WinRate(), stats.Mean(),
				float64(i+1)/elapsed.Seconds())
		}
	}

	if err := stats.Validate(); err != nil {
		return fmt.Errorf("statistics ledger check failed: %w", err)
	}

	printReport(stats, b)

	if st != nil {
		if err := b.SaveState(); err != nil {
			logger.Warn("could not save learning state", "error", err)
		}
	}
	return nil
}

func printReport(stats *statistics.Statistics, b *bot.Bot) {
	low, high := stats.ConfidenceInterval95()
	perf := b.Monitor().Performance()

	fmt.Printf("\n=== SIMULATION COMPLETE ===\n")
	fmt.Printf("Games:               %d\n", stats.Games)
	fmt.Printf("Bot win rate:        %.3f\n", stats.WinRate())
	fmt.Printf("Mean margin:         %.2f cards ± %.2f SE\n", stats.Mean(), stats.StdError())
	fmt.Printf("95%% CI:              [%.2f, %.2f]\n", low, high)
	fmt.Printf("Median margin:       %.1f\n", stats.Median())
	fmt.Printf("Avg game length:     %.1f actions (longest %d)\n", stats.AvgTurns(), stats.LongestGame)
	fmt.Printf("Challenge accuracy:  %.3f (%d/%d)\n", stats.ChallengeAccuracy(), stats.BluffsCaught, stats.Challenges)
	fmt.Printf("Bluff survival:      %.3f (%d bluffs, %d caught)\n", stats.BluffSurvival(), stats.Bluffs, stats.BluffsBusted)
	fmt.Printf("Decision accuracy:   %.3f over %d outcomes\n", perf.Accuracy, perf.Outcomes)
	fmt.Printf("Average reward:      %.3f\n", perf.AverageReward)
	fmt.Printf("Recovered errors:    %d\n", b.Errors())
}

// scriptedOpponent is a fixed-policy stand-in for the human player: it
// challenges a fraction of plays and bluffs at a fixed rate, enough to give
// the learners signal without adapting back.
type scriptedOpponent struct {
	rng           *rand.Rand
	challengeRate float64
	bluffRate     float64
}

func newScriptedOpponent(rng *rand.Rand) *scriptedOpponent {
	return &scriptedOpponent{rng: rng, challengeRate: 0.3, bluffRate: 0.35}
}

// act picks the scripted player's action for the current state
func (o *scriptedOpponent) act(state *game.State) game.Action {
	if state.LastPlay != nil && state.LastPlay.Actor == game.AI {
		if o.rng.Float64() < o.challengeRate {
			return game.NewChallenge(game.Human)
		}
	}
	if len(state.HumanHand) == 0 {
		return game.NewPass(game.Human)
	}

	minRank := deck.Two
	if state.LastPlay != nil {
		minRank = state.LastPlay.DeclaredRank
	}

	count := 1
	if len(state.HumanHand) > 2 && o.rng.Float64() < 0.4 {
		count = 2
	}
	cards := append([]deck.Card(nil), state.HumanHand[:count]...)

	declared := cards[0].Rank
	if declared < minRank || o.rng.Float64() < o.bluffRate {
		// Declare a random legal rank regardless of what was played
		declared = minRank + deck.Rank(o.rng.IntN(int(deck.Ace-minRank)+1))
	}
	return game.NewPlay(game.Human, cards, declared)
}

// playGame runs one full game between the bot and the scripted opponent
func playGame(b *bot.Bot, seed int64, logger *log.Logger) statistics.GameResult {
	ctx := context.Background()
	rng := randutil.New(seed)
	opponent := newScriptedOpponent(rng)

	engine := game.NewEngine(rng, logger)
	result := statistics.GameResult{Seed: seed}
	gameStart := time.Now()

	var oppPlays, oppBluffs, oppBluffWins, oppChallenges, oppChallengeWins int
	var oppCards float64

	// Plays are scored once the other side has responded, not when the
	// cards hit the pile.
	var pendingAIPlay *game.Action
	oppBluffPending := false

	for turns := 0; turns < 1000; turns++ {
		state := engine.State()
		if state.Status == game.Finished {
			break
		}
		result.Turns++

		if state.Turn == game.Human {
			action := opponent.act(state)
			if action.Type == game.PlayCards {
				oppPlays++
				oppCards += float64(len(action.Cards))
				if action.IsBluff() {
					oppBluffs++
				}
			}

			next, err := engine.Apply(action)
			if err != nil {
				logger.Error("scripted opponent made an illegal move", "error", err)
				break
			}
			b.ObserveHuman(action, state)

			caught := false
			if action.Type == game.Challenge {
				oppChallenges++
				caught = state.LastPlay != nil && state.LastPlay.IsBluff()
				if caught {
					oppChallengeWins++
					result.AIBluffsCaught++
				}
			}
			if action.Type == game.PlayCards && action.IsBluff() {
				if next.Status == game.Finished {
					// The winning claim can no longer be called
					oppBluffWins++
				} else {
					oppBluffPending = true
				}
			}

			// The response settles the bot's outstanding play: it stands
			// unless the challenge caught a bluff
			if pendingAIPlay != nil {
				b.UpdateModel(ctx, *pendingAIPlay, !caught, next)
				pendingAIPlay = nil
			}
			continue
		}

		action := b.MakeDecision(ctx, state)
		if action.Type == game.PlayCards && action.IsBluff() {
			result.AIBluffs++
		}

		next, err := engine.Apply(action)
		if err != nil {
			// Decision engine degraded to something illegal; pass instead
			logger.Warn("bot action rejected, passing", "error", err)
			action = game.NewPass(game.AI)
			if next, err = engine.Apply(action); err != nil {
				break
			}
			if oppBluffPending {
				oppBluffWins++
				oppBluffPending = false
			}
			b.UpdateModel(ctx, action, false, next)
			continue
		}

		// Mirror of the settlement above: the opponent's bluff survives
		// anything but a challenge
		if oppBluffPending {
			if action.Type != game.Challenge {
				oppBluffWins++
			}
			oppBluffPending = false
		}

		switch action.Type {
		case game.Challenge:
			result.AIChallenges++
			caught := state.LastPlay != nil && state.LastPlay.IsBluff()
			if caught {
				result.BluffsCaught++
			} else {
				result.BadChallenges++
			}
			b.UpdateModel(ctx, action, caught, next)
		case game.Pass:
			b.UpdateModel(ctx, action, true, next)
		case game.PlayCards:
			if next.Status == game.Finished {
				// Shedding the last card wins before any response
				b.UpdateModel(ctx, action, true, next)
			} else {
				play := action
				pendingAIPlay = &play
			}
		}
	}

	final := engine.State()
	if winner, done := game.Winner(final); done && winner == game.AI {
		result.AIWon = true
		result.MarginCards = len(final.HumanHand)
	} else {
		result.MarginCards = -len(final.AIHand)
	}

	rec := difficulty.GameRecord{
		PlayerWon:           !result.AIWon,
		Duration:            time.Since(gameStart),
		PlayerBluffs:        oppBluffs,
		PlayerBluffWins:     oppBluffWins,
		PlayerChallenges:    oppChallenges,
		PlayerChallengeWins: oppChallengeWins,
	}
	if oppPlays > 0 {
		rec.PlayerCardsPerPlay = oppCards / float64(oppPlays)
	}
	b.RecordGameResult(rec)

	return result
}
