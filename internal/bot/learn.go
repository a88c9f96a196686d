package bot

import (
	"context"

	"github.com/lox/bluffbots/internal/game"
	"github.com/lox/bluffbots/internal/pattern"
	"github.com/lox/bluffbots/internal/rl"
)

// ObserveHuman feeds a resolved human action into pattern tracking. The
// engine sees the actual cards, so bluffs are observable here even though
// the AI's decision path never sees the human hand.
func (b *Bot) ObserveHuman(action game.Action, state *game.State) {
	if state == nil || action.Actor != game.Human {
		return
	}
	b.tracker.Record(pattern.Observation{
		Action:       action.Type,
		Actor:        game.Human,
		HandSize:     state.HandSize(game.Human),
		CardCount:    len(action.Cards),
		DeclaredRank: action.DeclaredRank,
		WasBluff:     action.IsBluff(),
	})
}

// ShapeReward converts an action outcome into the learning signal: base +-1,
// challenges weighted 1.5x, plays scaled by card count with a bonus for a
// successful bluff, everything amplified as the game nears its end.
func ShapeReward(action game.Action, success bool, state *game.State) float64 {
	reward := 1.0
	if !success {
		reward = -1.0
	}

	switch action.Type {
	case game.Challenge:
		reward *= 1.5
	case game.PlayCards:
		reward *= 1 + 0.2*float64(len(action.Cards))
		if success && action.IsBluff() {
			reward *= 1.3
		}
	}

	progress := 1 - float64(state.Remaining())/float64(game.DeckSize)
	return reward * (1 + 0.5*progress)
}

// UpdateModel records the outcome of an AI action. state is the position
// after the action resolved; the position the decision was made from is the
// pending move captured by MakeDecision. Partial failures in any one update
// are logged and counted but never block the others, and nothing propagates
// to the caller.
func (b *Bot) UpdateModel(ctx context.Context, action game.Action, success bool, state *game.State) {
	if state == nil || !state.Conserved() || action.Actor != game.AI {
		b.logger.Warn("invalid update input ignored")
		b.countError()
		return
	}

	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.recentMoves = append(b.recentMoves, recordedMove{
		Action: action,
		State:  state.Clone(),
		At:     b.clock.Now(),
	})
	if len(b.recentMoves) > recentMovesSize {
		b.recentMoves = b.recentMoves[len(b.recentMoves)-recentMovesSize:]
	}
	b.mu.Unlock()

	reward := ShapeReward(action, success, state)

	// The decision this outcome belongs to is stale now
	if err := b.breakers.Do(ctx, SubsystemCache, func(context.Context) error {
		if pending != nil {
			b.decisions.Delete(DecisionKey(pending.State))
		}
		b.decisions.Delete(DecisionKey(state))
		return nil
	}); err != nil {
		b.logger.Warn("cache invalidation failed", "error", err)
		b.countError()
	}

	// Each learner is updated independently; one failing must not starve
	// the others.
	if err := b.breakers.Do(ctx, SubsystemPrediction, func(context.Context) error {
		b.tracker.Record(pattern.Observation{
			Action:       action.Type,
			Actor:        game.AI,
			HandSize:     state.HandSize(game.AI),
			CardCount:    len(action.Cards),
			DeclaredRank: action.DeclaredRank,
			WasBluff:     action.IsBluff(),
		})
		return nil
	}); err != nil {
		b.logger.Warn("pattern update failed", "error", err)
		b.countError()
	}

	if err := b.breakers.Do(ctx, SubsystemStrategy, func(context.Context) error {
		stage := pattern.StageFor(state.Remaining())
		switch action.Type {
		case game.PlayCards:
			if action.IsBluff() {
				b.book.RecordBluff(stage, len(action.Cards), action.DeclaredRank, success)
			}
		case game.Challenge:
			b.book.RecordChallenge(stage, success)
		}
		return nil
	}); err != nil {
		b.logger.Warn("strategy update failed", "error", err)
		b.countError()
	}

	if err := b.breakers.Do(ctx, SubsystemLearning, func(context.Context) error {
		if pending == nil {
			return nil
		}
		move := moveFor(action)
		b.table.Update(pending.State, move, reward, state, game.AI)
		return nil
	}); err != nil {
		b.logger.Warn("rl update failed", "error", err)
		b.countError()
	}

	if err := b.breakers.Do(ctx, SubsystemMonitoring, func(context.Context) error {
		b.recorder.RecordOutcome(success, reward)
		return nil
	}); err != nil {
		b.logger.Warn("outcome not recorded", "error", err)
	}

	b.logger.Debug("model updated",
		"action", action.String(),
		"success", success,
		"reward", reward)
}

// moveFor abstracts a concrete action back into its policy move
func moveFor(action game.Action) rl.Move {
	switch action.Type {
	case game.PlayCards:
		return rl.PlayMove(len(action.Cards), action.DeclaredRank)
	case game.Challenge:
		return rl.ChallengeMove()
	default:
		return rl.PassMove()
	}
}
