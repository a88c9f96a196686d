package game

import (
	"fmt"

	"github.com/lox/bluffbots/internal/deck"
)

// Player identifies one of the two seats in a game
type Player int

const (
	Human Player = iota
	AI
)

// String returns the string representation of a player
func (p Player) String() string {
	switch p {
	case Human:
		return "human"
	case AI:
		return "ai"
	default:
		return "unknown"
	}
}

// Opponent returns the other seat
func (p Player) Opponent() Player {
	if p == Human {
		return AI
	}
	return Human
}

// Status represents the lifecycle of a game
type Status int

const (
	Playing Status = iota
	Finished
)

// String returns the string representation of a status
func (s Status) String() string {
	switch s {
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// ActionType enumerates the moves a player can make
type ActionType int

const (
	PlayCards ActionType = iota
	Challenge
	Pass
)

// String returns the string representation of an action type
func (t ActionType) String() string {
	switch t {
	case PlayCards:
		return "play_cards"
	case Challenge:
		return "challenge"
	case Pass:
		return "pass"
	default:
		return "unknown"
	}
}

// Action is a move by a player. Cards and DeclaredRank are only meaningful
// for PlayCards actions.
type Action struct {
	Type         ActionType
	Actor        Player
	Cards        []deck.Card
	DeclaredRank deck.Rank
}

// NewPlay creates a PlayCards action declaring the given rank
func NewPlay(actor Player, cards []deck.Card, declared deck.Rank) Action {
	return Action{Type: PlayCards, Actor: actor, Cards: cards, DeclaredRank: declared}
}

// NewChallenge creates a Challenge action
func NewChallenge(actor Player) Action {
	return Action{Type: Challenge, Actor: actor}
}

// NewPass creates a Pass action
func NewPass(actor Player) Action {
	return Action{Type: Pass, Actor: actor}
}

// IsBluff reports whether a play action lies about at least one card's rank
func (a Action) IsBluff() bool {
	if a.Type != PlayCards {
		return false
	}
	for _, c := range a.Cards {
		if c.Rank != a.DeclaredRank {
			return true
		}
	}
	return false
}

// String returns a short log-friendly description of the action
func (a Action) String() string {
	switch a.Type {
	case PlayCards:
		return fmt.Sprintf("%s plays %d card(s) declaring %s", a.Actor, len(a.Cards), a.DeclaredRank)
	default:
		return fmt.Sprintf("%s %s", a.Actor, a.Type)
	}
}

// LastPlay records the most recent unresolved play. Cards holds the actual
// cards placed on the pile, which may differ from the declared rank.
type LastPlay struct {
	Actor        Player
	DeclaredRank deck.Rank
	Cards        []deck.Card
}

// IsBluff reports whether any actual card's rank differs from the declared rank
func (lp *LastPlay) IsBluff() bool {
	for _, c := range lp.Cards {
		if c.Rank != lp.DeclaredRank {
			return true
		}
	}
	return false
}
