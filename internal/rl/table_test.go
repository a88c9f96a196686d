package rl

import (
	rand "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/bluffbots/internal/deck"
	"github.com/lox/bluffbots/internal/game"
)

func cards(n int) []deck.Card {
	out := make([]deck.Card, n)
	for i := range out {
		out[i] = deck.NewCard(deck.Hearts, deck.Rank(int(deck.Two)+i))
	}
	return out
}

func TestLegalMovesOpenPosition(t *testing.T) {
	s := &game.State{AIHand: cards(2), HumanHand: cards(3), Status: game.Playing}

	moves := LegalMoves(s, game.AI)

	// Pass plus every (count, rank) shape: 2 counts x 13 ranks
	assert.Len(t, moves, 1+2*13)
	assert.Equal(t, PassMove(), moves[0])
	for _, m := range moves[1:] {
		assert.Equal(t, game.PlayCards, m.Type)
		assert.GreaterOrEqual(t, m.DeclaredRank, deck.Two)
	}
}

func TestLegalMovesFollowingPlay(t *testing.T) {
	s := &game.State{
		AIHand:    cards(2),
		HumanHand: cards(3),
		LastPlay:  &game.LastPlay{Actor: game.Human, DeclaredRank: deck.Ten, Cards: cards(1)},
		Status:    game.Playing,
	}

	moves := LegalMoves(s, game.AI)

	// Pass, challenge, then 2 counts x 5 ranks (ten through ace)
	assert.Len(t, moves, 2+2*5)
	assert.Equal(t, ChallengeMove(), moves[1])
	for _, m := range moves[2:] {
		assert.GreaterOrEqual(t, m.DeclaredRank, deck.Ten)
	}
}

func TestLegalMovesNoChallengeOnOwnPlay(t *testing.T) {
	s := &game.State{
		AIHand:   cards(1),
		LastPlay: &game.LastPlay{Actor: game.AI, DeclaredRank: deck.Two, Cards: cards(1)},
		Status:   game.Playing,
	}

	for _, m := range LegalMoves(s, game.AI) {
		assert.NotEqual(t, game.Challenge, m.Type)
	}
}

func TestKeyDiscretization(t *testing.T) {
	s := &game.State{
		AIHand:    cards(3),
		HumanHand: cards(5),
		Pile:      cards(2),
		LastPlay:  &game.LastPlay{Actor: game.Human, DeclaredRank: deck.Queen, Cards: cards(2)},
	}

	k := KeyFor(s, PlayMove(2, deck.King))
	assert.Equal(t, "3/5/2/12/2/0/2/13", k.String())

	// Non-play moves carry no shape
	pass := KeyFor(s, PassMove())
	assert.Zero(t, pass.CardCount)
	assert.Zero(t, pass.DeclaredRank)

	assert.NotEqual(t, k.String(), KeyFor(s, PlayMove(1, deck.King)).String())
	assert.NotEqual(t, k.String(), pass.String())
}

func TestUpdateFirstVisit(t *testing.T) {
	table := NewTable(DefaultParams())
	s := &game.State{AIHand: cards(2), HumanHand: cards(2), Status: game.Playing}
	m := PlayMove(1, deck.Five)

	table.Update(s, m, 1.0, nil, game.AI)

	// Q <- 0 + 0.1*(1 + 0 - 0)
	assert.InDelta(t, 0.1, table.QValue(s, m), 1e-9)
	assert.Equal(t, 1, table.Size())

	table.Update(s, m, 1.0, nil, game.AI)
	assert.InDelta(t, 0.19, table.QValue(s, m), 1e-9)
}

func TestUpdateDiscountsNextState(t *testing.T) {
	table := NewTable(DefaultParams())

	s := &game.State{AIHand: cards(2), HumanHand: cards(2), Status: game.Playing}
	next := &game.State{AIHand: cards(1), HumanHand: cards(2), Status: game.Playing}

	// Seed a known value reachable from next
	table.Update(next, PlayMove(1, deck.Five), 1.0, nil, game.AI)

	table.Update(s, PassMove(), 1.0, next, game.AI)

	// Q <- 0.1*(1 + 0.9*0.1)
	assert.InDelta(t, 0.109, table.QValue(s, PassMove()), 1e-9)
}

func TestUpdateIgnoresFinishedNextState(t *testing.T) {
	table := NewTable(DefaultParams())

	s := &game.State{AIHand: cards(2), HumanHand: cards(2), Status: game.Playing}
	done := &game.State{AIHand: cards(1), HumanHand: nil, Status: game.Finished, Winner: game.Human}

	table.Update(done, PlayMove(1, deck.Five), 1.0, nil, game.AI)
	table.Update(s, PassMove(), -1.0, done, game.AI)

	// A terminal next state contributes no future value
	assert.InDelta(t, -0.1, table.QValue(s, PassMove()), 1e-9)
}

func TestUpdateZeroRewardReplayIsStable(t *testing.T) {
	table := NewTable(DefaultParams())

	s := &game.State{AIHand: cards(2), HumanHand: cards(2), Status: game.Playing}
	next := &game.State{AIHand: cards(1), HumanHand: cards(2), Status: game.Playing}
	m := PlayMove(1, deck.Five)

	// Replaying a neutral outcome must not drift the value
	for i := 0; i < 10; i++ {
		table.Update(s, m, 0, next, game.AI)
	}

	assert.Zero(t, table.QValue(s, m))
	assert.Equal(t, 1, table.Size())
}

func TestUpdateBootstrapsNegativeNextState(t *testing.T) {
	table := NewTable(DefaultParams())

	s := &game.State{AIHand: cards(2), HumanHand: cards(2), Status: game.Playing}
	next := &game.State{AIHand: cards(1), HumanHand: cards(2), Status: game.Playing}

	// Visit every move legal in next with a losing outcome
	for _, m := range LegalMoves(next, game.AI) {
		table.Update(next, m, -1.0, nil, game.AI)
		assert.InDelta(t, -0.1, table.QValue(next, m), 1e-9)
	}

	table.Update(s, PassMove(), 0, next, game.AI)

	// Q <- 0.1*(0 + 0.9*-0.1): a fully explored losing position
	// propagates its negative value back
	assert.InDelta(t, -0.009, table.QValue(s, PassMove()), 1e-9)
}

func TestSuggestMoveGreedy(t *testing.T) {
	table := NewTable(Params{Alpha: 0.1, Gamma: 0.9, Epsilon: 0})
	rng := rand.New(rand.NewPCG(1, 0))

	s := &game.State{
		AIHand:    cards(2),
		HumanHand: cards(3),
		LastPlay:  &game.LastPlay{Actor: game.Human, DeclaredRank: deck.Two, Cards: cards(1)},
		Status:    game.Playing,
	}

	// With no data the policy defaults to pass
	assert.Equal(t, PassMove(), table.SuggestMove(s, game.AI, rng))

	table.Update(s, ChallengeMove(), 1.0, nil, game.AI)
	assert.Equal(t, ChallengeMove(), table.SuggestMove(s, game.AI, rng))

	// A better-valued play overtakes the challenge
	for i := 0; i < 10; i++ {
		table.Update(s, PlayMove(1, deck.Five), 1.0, nil, game.AI)
	}
	assert.Equal(t, PlayMove(1, deck.Five), table.SuggestMove(s, game.AI, rng))
}

func TestSuggestMoveExplores(t *testing.T) {
	table := NewTable(Params{Alpha: 0.1, Gamma: 0.9, Epsilon: 1})
	rng := rand.New(rand.NewPCG(7, 0))

	s := &game.State{AIHand: cards(2), HumanHand: cards(2), Status: game.Playing}
	legal := LegalMoves(s, game.AI)

	for i := 0; i < 50; i++ {
		m := table.SuggestMove(s, game.AI, rng)
		assert.Contains(t, legal, m)
	}
}

func TestTableSnapshotRoundTrip(t *testing.T) {
	table := NewTable(DefaultParams())
	s := &game.State{AIHand: cards(2), HumanHand: cards(2), Status: game.Playing}

	table.Update(s, PlayMove(1, deck.Five), 1.0, nil, game.AI)
	table.Update(s, PassMove(), -0.5, nil, game.AI)

	restored := NewTable(DefaultParams())
	restored.Restore(table.Snapshot())

	require.Equal(t, table.Size(), restored.Size())
	assert.InDelta(t, table.QValue(s, PlayMove(1, deck.Five)), restored.QValue(s, PlayMove(1, deck.Five)), 1e-9)
	assert.InDelta(t, table.QValue(s, PassMove()), restored.QValue(s, PassMove()), 1e-9)
}
