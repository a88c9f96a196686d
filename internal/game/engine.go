package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/bluffbots/internal/deck"
)

var (
	// ErrInvalidMove is returned when an action is illegal against the
	// current hands or pile, e.g. playing cards the actor does not hold.
	ErrInvalidMove = errors.New("invalid move")

	// ErrNoChallengeTarget is returned when a challenge is issued with no
	// unresolved play on the pile.
	ErrNoChallengeTarget = errors.New("no play to challenge")

	// ErrValidation is returned for malformed states or actions.
	ErrValidation = errors.New("invalid state or action")
)

// NewGame deals a fresh game: a Fisher-Yates shuffled deck split 26/26,
// human to move, empty pile, no unresolved play.
func NewGame(rng *rand.Rand) *State {
	d := deck.New(rng)
	d.Shuffle()
	human, ai := d.Split()

	return &State{
		HumanHand: human,
		AIHand:    ai,
		Turn:      Human,
		Status:    Playing,
	}
}

// Apply resolves an action against a state and returns the resulting state.
// The input state is never mutated. Rule violations return ErrInvalidMove or
// ErrNoChallengeTarget; malformed input returns ErrValidation.
func Apply(s *State, a Action) (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil state", ErrValidation)
	}
	if !s.Conserved() {
		return nil, fmt.Errorf("%w: %d cards in circulation, want %d",
			ErrValidation, len(s.HumanHand)+len(s.AIHand)+len(s.Pile), DeckSize)
	}
	if s.Status == Finished {
		return nil, fmt.Errorf("%w: game is finished", ErrInvalidMove)
	}

	next := s.Clone()

	switch a.Type {
	case PlayCards:
		if err := applyPlay(next, a); err != nil {
			return nil, err
		}
	case Challenge:
		if err := applyChallenge(next, a); err != nil {
			return nil, err
		}
	case Pass:
		if a.Actor != next.Turn {
			return nil, fmt.Errorf("%w: not %s's turn", ErrInvalidMove, a.Actor)
		}
		next.Turn = a.Actor.Opponent()
		next.LastPlay = nil
	default:
		return nil, fmt.Errorf("%w: unrecognized action type %d", ErrInvalidMove, a.Type)
	}

	resolveWinner(next)
	return next, nil
}

func applyPlay(s *State, a Action) error {
	if a.Actor != s.Turn {
		return fmt.Errorf("%w: not %s's turn", ErrInvalidMove, a.Actor)
	}
	if len(a.Cards) == 0 {
		return fmt.Errorf("%w: play must include at least one card", ErrInvalidMove)
	}

	hand, ok := removeCards(s.Hand(a.Actor), a.Cards)
	if !ok {
		return fmt.Errorf("%w: %s does not hold all played cards", ErrInvalidMove, a.Actor)
	}
	s.setHand(a.Actor, hand)

	s.Pile = append(s.Pile, a.Cards...)
	s.LastPlay = &LastPlay{
		Actor:        a.Actor,
		DeclaredRank: a.DeclaredRank,
		Cards:        append([]deck.Card(nil), a.Cards...),
	}
	s.Turn = a.Actor.Opponent()
	return nil
}

func applyChallenge(s *State, a Action) error {
	lp := s.LastPlay
	if lp == nil {
		return ErrNoChallengeTarget
	}
	if a.Actor == lp.Actor {
		return fmt.Errorf("%w: cannot challenge own play", ErrInvalidMove)
	}
	if a.Actor != s.Turn {
		return fmt.Errorf("%w: not %s's turn", ErrInvalidMove, a.Actor)
	}

	if lp.IsBluff() {
		// Caught lying: the original actor takes the pile and the
		// challenger acts next.
		s.setHand(lp.Actor, append(s.Hand(lp.Actor), s.Pile...))
		s.Turn = a.Actor
	} else {
		// Bad challenge: the challenger takes the pile and the original
		// actor keeps the initiative.
		s.setHand(a.Actor, append(s.Hand(a.Actor), s.Pile...))
		s.Turn = lp.Actor
	}

	s.Pile = nil
	s.LastPlay = nil
	return nil
}

func (s *State) setHand(p Player, hand []deck.Card) {
	if p == Human {
		s.HumanHand = hand
	} else {
		s.AIHand = hand
	}
}

// removeCards removes each of cards from hand, matching by exact (suit, rank)
// identity. Returns false if any card is missing.
func removeCards(hand []deck.Card, cards []deck.Card) ([]deck.Card, bool) {
	remaining := append([]deck.Card(nil), hand...)
	for _, c := range cards {
		found := -1
		for i, h := range remaining {
			if h == c {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, false
		}
		remaining = append(remaining[:found], remaining[found+1:]...)
	}
	return remaining, true
}

// resolveWinner marks the game finished if either hand is empty. Resolution
// is sequential so both hands cannot empty in the same apply.
func resolveWinner(s *State) {
	switch {
	case len(s.HumanHand) == 0:
		s.Status = Finished
		s.Winner = Human
	case len(s.AIHand) == 0:
		s.Status = Finished
		s.Winner = AI
	}
}

// Winner returns the winning player and whether the game has finished
func Winner(s *State) (Player, bool) {
	if s.Status != Finished {
		return 0, false
	}
	return s.Winner, true
}

// Engine owns a single game and serializes action application. Agents only
// decide; the engine is the only thing that advances state, and each apply
// replaces the held state with the copy returned by Apply.
type Engine struct {
	mu       sync.Mutex
	state    *State
	logger   *log.Logger
	observer func(Action, Snapshot)
}

// NewEngine starts a fresh game with the provided rng and logger
func NewEngine(rng *rand.Rand, logger *log.Logger) *Engine {
	return &Engine{
		state:  NewGame(rng),
		logger: logger.WithPrefix("game"),
	}
}

// SetObserver registers a callback invoked after every successful apply with
// the action and the redacted snapshot. Intended for the presentation layer.
func (e *Engine) SetObserver(fn func(Action, Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = fn
}

// State returns a deep copy of the current state
func (e *Engine) State() *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Apply validates and applies an action to the engine's game
func (e *Engine) Apply(a Action) (*State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := Apply(e.state, a)
	if err != nil {
		e.logger.Debug("rejected action", "action", a.String(), "error", err)
		return nil, err
	}

	e.state = next
	e.logger.Debug("applied action",
		"action", a.String(),
		"humanCards", len(next.HumanHand),
		"aiCards", len(next.AIHand),
		"pile", len(next.Pile))

	if e.observer != nil {
		e.observer(a, next.Snapshot())
	}

	if winner, done := Winner(next); done {
		e.logger.Info("game finished", "winner", winner)
	}

	return next.Clone(), nil
}
