package deck

import (
	rand "math/rand/v2"
	"testing"
)

func TestNewDeck(t *testing.T) {
	d := New(rand.New(rand.NewPCG(0, 0)))

	if d.CardsRemaining() != 52 {
		t.Errorf("Expected 52 cards, got %d", d.CardsRemaining())
	}

	seen := make(map[Card]bool)
	for !d.IsEmpty() {
		card, ok := d.Deal()
		if !ok {
			t.Fatal("Deal failed on non-empty deck")
		}
		if seen[card] {
			t.Errorf("Duplicate card %s", card)
		}
		seen[card] = true
	}

	if len(seen) != 52 {
		t.Errorf("Expected 52 unique cards, got %d", len(seen))
	}
}

func TestShufflePreservesCards(t *testing.T) {
	d := New(rand.New(rand.NewPCG(42, 0)))
	d.Shuffle()

	seen := make(map[Card]bool)
	for _, c := range d.DealN(52) {
		seen[c] = true
	}

	if len(seen) != 52 {
		t.Errorf("Shuffle lost cards: %d unique remain", len(seen))
	}
}

func TestSplit(t *testing.T) {
	d := New(rand.New(rand.NewPCG(7, 0)))
	d.Shuffle()

	first, second := d.Split()

	if len(first) != 26 {
		t.Errorf("Expected 26 cards in first hand, got %d", len(first))
	}
	if len(second) != 26 {
		t.Errorf("Expected 26 cards in second hand, got %d", len(second))
	}
	if !d.IsEmpty() {
		t.Errorf("Deck should be empty after split, %d remain", d.CardsRemaining())
	}

	seen := make(map[Card]bool)
	for _, c := range append(first, second...) {
		if seen[c] {
			t.Errorf("Card %s dealt to both hands", c)
		}
		seen[c] = true
	}
}

func TestDealN(t *testing.T) {
	d := New(rand.New(rand.NewPCG(0, 0)))

	cards := d.DealN(5)
	if len(cards) != 5 {
		t.Errorf("Expected 5 cards, got %d", len(cards))
	}
	if d.CardsRemaining() != 47 {
		t.Errorf("Expected 47 remaining, got %d", d.CardsRemaining())
	}

	// Asking for more than remain deals what is left
	rest := d.DealN(100)
	if len(rest) != 47 {
		t.Errorf("Expected 47 cards, got %d", len(rest))
	}

	if _, ok := d.Deal(); ok {
		t.Error("Deal should fail on an empty deck")
	}
}

func TestRankDistance(t *testing.T) {
	tests := []struct {
		a, b Rank
		want int
	}{
		{Two, Two, 0},
		{Two, Ace, 12},
		{Ace, Two, 12},
		{Ten, Jack, 1},
	}

	for _, tt := range tests {
		if got := tt.a.Distance(tt.b); got != tt.want {
			t.Errorf("Distance(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCardString(t *testing.T) {
	c := NewCard(Spades, Ace)
	if c.String() != "A♠" {
		t.Errorf("Expected A♠, got %s", c.String())
	}

	c = NewCard(Hearts, Ten)
	if c.String() != "T♥" {
		t.Errorf("Expected T♥, got %s", c.String())
	}
}

func TestIsFaceCard(t *testing.T) {
	if !NewCard(Clubs, Queen).IsFaceCard() {
		t.Error("Queen should be a face card")
	}
	if NewCard(Clubs, Ace).IsFaceCard() {
		t.Error("Ace should not be a face card")
	}
	if NewCard(Clubs, Ten).IsFaceCard() {
		t.Error("Ten should not be a face card")
	}
}
