package game

import "github.com/lox/bluffbots/internal/deck"

// DeckSize is the number of cards in play for a standard game
const DeckSize = 52

// State is a snapshot of a game at one point in time. Apply never mutates a
// State in place; it returns a fresh copy with the action resolved. The AI
// hand slice is the single authoritative representation of the AI's cards -
// the count is always derived from it and the cards must never be shown to
// the human player (see Snapshot).
type State struct {
	HumanHand []deck.Card
	AIHand    []deck.Card
	Pile      []deck.Card
	Turn      Player
	LastPlay  *LastPlay
	Status    Status
	Winner    Player // valid only when Status == Finished
}

// Hand returns the given player's cards
func (s *State) Hand(p Player) []deck.Card {
	if p == Human {
		return s.HumanHand
	}
	return s.AIHand
}

// HandSize returns the number of cards the given player holds
func (s *State) HandSize(p Player) int {
	return len(s.Hand(p))
}

// AICardCount returns the number of cards in the AI hand. Derived, never
// stored separately.
func (s *State) AICardCount() int {
	return len(s.AIHand)
}

// Remaining returns the total cards still held in hands (excludes the pile)
func (s *State) Remaining() int {
	return len(s.HumanHand) + len(s.AIHand)
}

// Conserved reports whether every card is accounted for across hands and pile
func (s *State) Conserved() bool {
	return len(s.HumanHand)+len(s.AIHand)+len(s.Pile) == DeckSize
}

// Clone returns a deep copy of the state
func (s *State) Clone() *State {
	next := &State{
		HumanHand: append([]deck.Card(nil), s.HumanHand...),
		AIHand:    append([]deck.Card(nil), s.AIHand...),
		Pile:      append([]deck.Card(nil), s.Pile...),
		Turn:      s.Turn,
		Status:    s.Status,
		Winner:    s.Winner,
	}
	if s.LastPlay != nil {
		next.LastPlay = &LastPlay{
			Actor:        s.LastPlay.Actor,
			DeclaredRank: s.LastPlay.DeclaredRank,
			Cards:        append([]deck.Card(nil), s.LastPlay.Cards...),
		}
	}
	return next
}

// DeclaredPlay is the human-visible portion of a LastPlay: the claim, not
// the actual cards.
type DeclaredPlay struct {
	Actor        Player
	DeclaredRank deck.Rank
	CardCount    int
}

// Snapshot is the redacted view handed to the presentation layer. The AI's
// actual cards are withheld; only the count crosses the boundary.
type Snapshot struct {
	HumanHand   []deck.Card
	AICardCount int
	PileSize    int
	Turn        Player
	LastPlay    *DeclaredPlay
	Status      Status
	Winner      Player
}

// Snapshot returns the redacted view of the state
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		HumanHand:   append([]deck.Card(nil), s.HumanHand...),
		AICardCount: len(s.AIHand),
		PileSize:    len(s.Pile),
		Turn:        s.Turn,
		Status:      s.Status,
		Winner:      s.Winner,
	}
	if s.LastPlay != nil {
		snap.LastPlay = &DeclaredPlay{
			Actor:        s.LastPlay.Actor,
			DeclaredRank: s.LastPlay.DeclaredRank,
			CardCount:    len(s.LastPlay.Cards),
		}
	}
	return snap
}
