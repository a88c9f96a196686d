// Package rl implements tabular Q-learning over discretized game situations.
// The table's shape follows the solver convention of stringified info-set
// keys mapping to per-situation entries that are created on first visit and
// never deleted.
package rl

import (
	"fmt"

	"github.com/lox/bluffbots/internal/deck"
	"github.com/lox/bluffbots/internal/game"
)

// Move is an abstract action for policy purposes: the shape of a play
// without the concrete cards. Card selection happens later, at decision
// time, once a shape has been chosen.
type Move struct {
	Type         game.ActionType
	CardCount    int
	DeclaredRank deck.Rank
}

// PassMove is the always-legal fallback move
func PassMove() Move {
	return Move{Type: game.Pass}
}

// ChallengeMove challenges the opponent's last play
func ChallengeMove() Move {
	return Move{Type: game.Challenge}
}

// PlayMove plays count cards declaring the given rank
func PlayMove(count int, declared deck.Rank) Move {
	return Move{Type: game.PlayCards, CardCount: count, DeclaredRank: declared}
}

// Key uniquely identifies a discretized (situation, move) pair. It must
// stay in sync with the discretization used when the table was built;
// otherwise lookups are meaningless.
type Key struct {
	AICards          int
	HumanCards       int
	PileSize         int
	LastDeclaredRank int // 0 when there is no unresolved play
	LastPlayCount    int
	Action           game.ActionType
	CardCount        int
	DeclaredRank     int
}

// String returns the canonical map-key form of the key
func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d/%d/%d/%d/%d/%d",
		k.AICards, k.HumanCards, k.PileSize,
		k.LastDeclaredRank, k.LastPlayCount,
		k.Action, k.CardCount, k.DeclaredRank)
}

// KeyFor discretizes a state and move into a table key
func KeyFor(s *game.State, m Move) Key {
	k := Key{
		AICards:    len(s.AIHand),
		HumanCards: len(s.HumanHand),
		PileSize:   len(s.Pile),
		Action:     m.Type,
	}
	if s.LastPlay != nil {
		k.LastDeclaredRank = int(s.LastPlay.DeclaredRank)
		k.LastPlayCount = len(s.LastPlay.Cards)
	}
	if m.Type == game.PlayCards {
		k.CardCount = m.CardCount
		k.DeclaredRank = int(m.DeclaredRank)
	}
	return k
}

// LegalMoves enumerates the abstract moves available to actor in a state:
// Pass is always legal, Challenge only against an opponent's unresolved
// play, and plays exist for every card count up to the hand size with a
// declared rank no lower than the rank being followed.
func LegalMoves(s *game.State, actor game.Player) []Move {
	moves := []Move{PassMove()}

	if s.LastPlay != nil && s.LastPlay.Actor != actor {
		moves = append(moves, ChallengeMove())
	}

	minRank := deck.Two
	if s.LastPlay != nil {
		minRank = s.LastPlay.DeclaredRank
	}

	handSize := s.HandSize(actor)
	for count := 1; count <= handSize; count++ {
		for rank := minRank; rank <= deck.Ace; rank++ {
			moves = append(moves, PlayMove(count, rank))
		}
	}

	return moves
}
