package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/bluffbots/internal/deck"
)

func TestOpponent(t *testing.T) {
	assert.Equal(t, AI, Human.Opponent())
	assert.Equal(t, Human, AI.Opponent())
}

func TestActionIsBluff(t *testing.T) {
	twoOfHearts := deck.NewCard(deck.Hearts, deck.Two)
	aceOfSpades := deck.NewCard(deck.Spades, deck.Ace)

	truthful := NewPlay(Human, []deck.Card{twoOfHearts}, deck.Two)
	assert.False(t, truthful.IsBluff())

	bluff := NewPlay(Human, []deck.Card{twoOfHearts}, deck.Ace)
	assert.True(t, bluff.IsBluff())

	// One lie among truths is still a bluff
	mixed := NewPlay(Human, []deck.Card{aceOfSpades, twoOfHearts}, deck.Ace)
	assert.True(t, mixed.IsBluff())

	// Only plays can bluff
	assert.False(t, NewChallenge(Human).IsBluff())
	assert.False(t, NewPass(Human).IsBluff())
}

func TestActionString(t *testing.T) {
	play := NewPlay(AI, []deck.Card{deck.NewCard(deck.Clubs, deck.Five)}, deck.Five)
	assert.Contains(t, play.String(), "5")

	assert.NotEmpty(t, NewChallenge(Human).String())
	assert.NotEmpty(t, NewPass(AI).String())
}
