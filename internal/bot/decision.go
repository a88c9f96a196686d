package bot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lox/bluffbots/internal/cache"
	"github.com/lox/bluffbots/internal/deck"
	"github.com/lox/bluffbots/internal/difficulty"
	"github.com/lox/bluffbots/internal/game"
	"github.com/lox/bluffbots/internal/monitor"
	"github.com/lox/bluffbots/internal/pattern"
	"github.com/lox/bluffbots/internal/personality"
	"github.com/lox/bluffbots/internal/rl"
)

// insightsSet applies a mutation to the shared insights under the gather lock
func insightsSet(mu *sync.Mutex, fn func()) {
	mu.Lock()
	defer mu.Unlock()
	fn()
}

// Weights for the bluff-probability blend when sizing up the human's last play
const (
	weightCardsPlayed   = 0.25
	weightRemainingHand = 0.20
	weightPattern       = 0.35
	weightPlayerProfile = 0.20

	chatBluffBoost = 0.15

	// baseBluffChance is scaled by the difficulty bluff multiplier when
	// deciding whether to misdeclare a play
	baseBluffChance = 0.8
)

// fingerprint is the canonical state subset hashed into cache keys. Field
// order is fixed; changing it invalidates every cached entry.
type fingerprint struct {
	Kind       string `json:"kind"`
	AICards    int    `json:"ai_cards"`
	HumanCards int    `json:"human_cards"`
	PileSize   int    `json:"pile_size"`
	LastRank   int    `json:"last_rank"`
	LastCount  int    `json:"last_count"`
}

func stateKey(kind string, s *game.State) string {
	fp := fingerprint{
		Kind:       kind,
		AICards:    len(s.AIHand),
		HumanCards: len(s.HumanHand),
		PileSize:   len(s.Pile),
	}
	if s.LastPlay != nil {
		fp.LastRank = int(s.LastPlay.DeclaredRank)
		fp.LastCount = len(s.LastPlay.Cards)
	}
	data, _ := json.Marshal(fp)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// DecisionKey returns the decision-cache key for a state
func DecisionKey(s *game.State) string {
	return stateKey("decision", s)
}

// PredictionKey returns the prediction-cache key for a state
func PredictionKey(s *game.State) string {
	return stateKey("prediction", s)
}

// MakeDecision returns the AI's action for the given state. It never returns
// an error: every internal failure degrades toward a conservative Pass.
func (b *Bot) MakeDecision(ctx context.Context, state *game.State) game.Action {
	if state == nil || !state.Conserved() || state.Status != game.Playing {
		b.logger.Warn("invalid state, passing", "state", fmt.Sprintf("%+v", state))
		b.countError()
		return game.NewPass(game.AI)
	}

	mods := b.difficulty.Modifiers(state)

	if action, ok := b.cachedDecision(ctx, state); ok {
		b.logger.Debug("using cached decision", "action", action.String())
		return action
	}

	insights, ok := b.gatherInsights(ctx, state)
	if !ok {
		b.countError()
		return game.NewPass(game.AI)
	}

	rlMove := b.table.SuggestMove(state, game.AI, b.rng)

	var action game.Action
	var confidence float64
	switch {
	case state.LastPlay != nil && state.LastPlay.Actor == game.Human:
		action, confidence = b.decideChallenge(state, insights, mods, rlMove)
	case len(state.AIHand) > 0:
		action, confidence = b.decidePlay(state, insights, mods, rlMove)
	default:
		action = game.NewPass(game.AI)
	}

	b.mu.Lock()
	b.pending = &recordedMove{Action: action, State: state.Clone(), At: b.clock.Now()}
	b.mu.Unlock()

	b.recordDecision(ctx, state, insights, action, confidence)
	b.cacheDecision(ctx, state, action)

	return action
}

// cachedDecision looks up and validates a previously cached decision. Cache
// failure falls back to a miss, never an error.
func (b *Bot) cachedDecision(ctx context.Context, state *game.State) (game.Action, bool) {
	var action game.Action
	found := false

	_ = b.breakers.DoWithFallback(ctx, SubsystemCache,
		func(context.Context) error {
			action, found = b.decisions.Get(DecisionKey(state))
			return nil
		},
		func(context.Context) error {
			found = false
			return nil
		})

	if !found || !b.validDecision(state, action) {
		return game.Action{}, false
	}
	return action, true
}

// validDecision re-checks a cached action against the current state: the
// hand may have changed since it was cached.
func (b *Bot) validDecision(state *game.State, action game.Action) bool {
	switch action.Type {
	case game.Pass:
		return true
	case game.Challenge:
		return state.LastPlay != nil && state.LastPlay.Actor != game.AI
	case game.PlayCards:
		if len(action.Cards) == 0 {
			return false
		}
		held := make(map[deck.Card]int)
		for _, c := range state.AIHand {
			held[c]++
		}
		for _, c := range action.Cards {
			if held[c] == 0 {
				return false
			}
			held[c]--
		}
		return true
	default:
		return false
	}
}

// gatherInsights fans out the subsystem reads concurrently, each wrapped in
// retry/breaker protection. A failed leg degrades to its neutral default;
// only when every leg fails does the gather itself fail.
func (b *Bot) gatherInsights(ctx context.Context, state *game.State) (MLInsights, bool) {
	insights := MLInsights{
		Prediction: pattern.Prediction{LikelyToBluff: 0.5, LikelyToChallenge: 0.5},
		Traits:     personality.BalancedTraits(),
	}

	var mu sync.Mutex
	failures := 0
	legs := 0
	fail := func() {
		mu.Lock()
		failures++
		mu.Unlock()
		b.countError()
	}

	g, gctx := errgroup.WithContext(ctx)

	legs++
	g.Go(func() error {
		err := b.breakers.Do(gctx, SubsystemPrediction, func(context.Context) error {
			insightsSet(&mu, func() {
				insights.Prediction = b.prediction(state)
				insights.Profile = b.tracker.Profile()
			})
			return nil
		})
		if err != nil {
			b.logger.Warn("prediction unavailable", "error", err)
			fail()
		}
		return nil
	})

	legs++
	g.Go(func() error {
		err := b.breakers.Do(gctx, SubsystemStrategy, func(context.Context) error {
			stage := pattern.StageFor(state.Remaining())
			insightsSet(&mu, func() {
				insights.OptimalBluff = b.book.OptimalBluff(stage)
			})
			return nil
		})
		if err != nil {
			b.logger.Warn("strategy unavailable", "error", err)
			fail()
		}
		return nil
	})

	legs++
	g.Go(func() error {
		err := b.breakers.Do(gctx, SubsystemPersonality, func(context.Context) error {
			traits := b.personality.Traits()
			insightsSet(&mu, func() {
				insights.Traits = traits
			})
			return nil
		})
		if err != nil {
			b.logger.Warn("personality unavailable", "error", err)
			fail()
		}
		return nil
	})

	if b.chat != nil {
		legs++
		g.Go(func() error {
			signal, err := b.chat.Analyze(gctx)
			if err != nil {
				// Chat is optional; absence contributes nothing
				b.logger.Debug("chat analysis unavailable", "error", err)
				return nil
			}
			insightsSet(&mu, func() {
				insights.Chat = &signal
			})
			return nil
		})
	}

	_ = g.Wait()

	if failures >= legs {
		return MLInsights{}, false
	}
	return insights, true
}

// prediction serves the pattern prediction through its cache
func (b *Bot) prediction(state *game.State) pattern.Prediction {
	key := PredictionKey(state)
	if p, ok := b.predictions.Get(key); ok {
		return p
	}
	p := b.tracker.Prediction()
	b.predictions.Set(key, p)
	return p
}

// decideChallenge weighs whether the human's unresolved play is a lie
func (b *Bot) decideChallenge(state *game.State, insights MLInsights, mods difficulty.Modifiers, rlMove rl.Move) (game.Action, float64) {
	lp := state.LastPlay

	cardsRatio := float64(len(lp.Cards)) / 4.0
	if cardsRatio > 1 {
		cardsRatio = 1
	}
	handRatio := 1 - float64(len(state.HumanHand))/26.0
	if handRatio < 0 {
		handRatio = 0
	}

	bluffProb := weightCardsPlayed*cardsRatio +
		weightRemainingHand*handRatio +
		weightPattern*insights.Prediction.LikelyToBluff +
		weightPlayerProfile*insights.Profile.BluffFrequency

	if insights.Chat != nil && insights.Chat.BluffDetected {
		bluffProb += chatBluffBoost * insights.Chat.Confidence
	}
	bluffProb = clamp01(bluffProb)

	// Risk tolerance eats into the personality threshold: a bolder bot
	// needs less certainty before calling the bluff.
	threshold := insights.Traits.ChallengeThreshold * mods.ChallengeThreshold
	threshold *= 1 - 0.3*insights.Traits.RiskTolerance*mods.RiskTolerance
	threshold = clamp01(threshold)

	b.logger.Debug("challenge evaluation",
		"bluffProb", bluffProb,
		"threshold", threshold,
		"rlSuggestsChallenge", rlMove.Type == game.Challenge)

	if rlMove.Type == game.Challenge || bluffProb > threshold {
		return game.NewChallenge(game.AI), clamp01(0.5 + (bluffProb - threshold))
	}
	return game.NewPass(game.AI), clamp01(0.5 + (threshold - bluffProb))
}

// decidePlay shapes the AI's own play: the RL suggestion when it offers
// one, a learned or default shape otherwise, with an optional bluffed
// declaration on top.
func (b *Bot) decidePlay(state *game.State, insights MLInsights, mods difficulty.Modifiers, rlMove rl.Move) (game.Action, float64) {
	minRank := deck.Two
	if state.LastPlay != nil {
		minRank = state.LastPlay.DeclaredRank
	}

	count, declared := b.playShape(state, insights, rlMove, minRank)

	// Substitute a higher declared rank as a bluff
	bluffed := false
	if declared < deck.Ace && b.rng.Float64() < baseBluffChance*mods.BluffProbability {
		boost := 1 + b.rng.IntN(int(deck.Ace-declared))
		declared += deck.Rank(boost)
		bluffed = true
	}

	cards := selectCards(state.AIHand, count, declared)

	confidence := 0.5
	if !bluffed {
		exact := 0
		for _, c := range cards {
			if c.Rank == declared {
				exact++
			}
		}
		confidence = 0.5 + 0.5*float64(exact)/float64(len(cards))
	}

	return game.NewPlay(game.AI, cards, declared), confidence
}

// playShape picks how many cards to claim and at what rank
func (b *Bot) playShape(state *game.State, insights MLInsights, rlMove rl.Move, minRank deck.Rank) (int, deck.Rank) {
	handSize := len(state.AIHand)

	if rlMove.Type == game.PlayCards && rlMove.CardCount > 0 && rlMove.CardCount <= handSize {
		declared := rlMove.DeclaredRank
		if declared < minRank {
			declared = minRank
		}
		return rlMove.CardCount, declared
	}

	if s := insights.OptimalBluff; s != nil && s.CardCount > 0 && s.CardCount <= handSize && s.DeclaredRank >= minRank {
		return s.CardCount, s.DeclaredRank
	}

	// Default: the largest rank group we can declare truthfully
	groups := rankGroups(state.AIHand)
	var best *rankGroup
	for i := range groups {
		g := &groups[i]
		if g.rank < minRank {
			continue
		}
		if best == nil || len(g.cards) > len(best.cards) {
			best = g
		}
	}
	if best != nil {
		return len(best.cards), best.rank
	}

	// Nothing declarable truthfully: single card at the minimum rank
	return 1, minRank
}

type rankGroup struct {
	rank  deck.Rank
	cards []deck.Card
}

// rankGroups buckets a hand by rank, ordered by rank ascending
func rankGroups(hand []deck.Card) []rankGroup {
	byRank := make(map[deck.Rank][]deck.Card)
	for _, c := range hand {
		byRank[c.Rank] = append(byRank[c.Rank], c)
	}
	ranks := make([]deck.Rank, 0, len(byRank))
	for r := range byRank {
		ranks = append(ranks, r)
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] < ranks[j] })

	groups := make([]rankGroup, 0, len(ranks))
	for _, r := range ranks {
		groups = append(groups, rankGroup{rank: r, cards: byRank[r]})
	}
	return groups
}

// selectCards picks count cards to put down for a declared rank: exact-rank
// matches first, then cards as far from the declaration as possible,
// preferring larger same-rank groups so the hand sheds dead weight.
func selectCards(hand []deck.Card, count int, declared deck.Rank) []deck.Card {
	if count > len(hand) {
		count = len(hand)
	}

	selected := make([]deck.Card, 0, count)
	used := make(map[deck.Card]bool)

	for _, c := range hand {
		if len(selected) == count {
			return selected
		}
		if c.Rank == declared {
			selected = append(selected, c)
			used[c] = true
		}
	}

	groups := rankGroups(hand)
	sort.SliceStable(groups, func(i, j int) bool {
		di, dj := groups[i].rank.Distance(declared), groups[j].rank.Distance(declared)
		if di != dj {
			return di > dj
		}
		return len(groups[i].cards) > len(groups[j].cards)
	})

	for _, g := range groups {
		for _, c := range g.cards {
			if len(selected) == count {
				return selected
			}
			if !used[c] {
				selected = append(selected, c)
				used[c] = true
			}
		}
	}
	return selected
}

// recordDecision logs the decision to the monitor, best-effort
func (b *Bot) recordDecision(ctx context.Context, state *game.State, insights MLInsights, action game.Action, confidence float64) {
	err := b.breakers.Do(ctx, SubsystemMonitoring, func(context.Context) error {
		b.recorder.RecordDecision(state.Snapshot(), monitor.InsightSnapshot{
			LikelyToBluff:        insights.Prediction.LikelyToBluff,
			LikelyToChallenge:    insights.Prediction.LikelyToChallenge,
			PlayerBluffFrequency: insights.Profile.BluffFrequency,
			BluffFrequency:       insights.Traits.BluffFrequency,
			ChallengeThreshold:   insights.Traits.ChallengeThreshold,
			RiskTolerance:        insights.Traits.RiskTolerance,
		}, action, confidence)
		return nil
	})
	if err != nil {
		b.logger.Warn("decision not recorded", "error", err)
	}
}

// cacheDecision stores the decision, best-effort
func (b *Bot) cacheDecision(ctx context.Context, state *game.State, action game.Action) {
	err := b.breakers.Do(ctx, SubsystemCache, func(context.Context) error {
		b.decisions.SetTTL(DecisionKey(state), action, cache.DecisionTTL)
		return nil
	})
	if err != nil {
		b.logger.Warn("decision not cached", "error", err)
	}
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
