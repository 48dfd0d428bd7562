package deck

import (
	"testing"

	"github.com/lox/blackjack/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShoeValidation(t *testing.T) {
	rng := randutil.New(1)

	_, err := NewShoe(0, 0.75, rng)
	assert.ErrorIs(t, err, ErrInvalidShoe)
	_, err = NewShoe(9, 0.75, rng)
	assert.ErrorIs(t, err, ErrInvalidShoe)
	_, err = NewShoe(6, 0, rng)
	assert.ErrorIs(t, err, ErrInvalidShoe)
	_, err = NewShoe(6, 1, rng)
	assert.ErrorIs(t, err, ErrInvalidShoe)
	_, err = NewShoe(6, 0.75, nil)
	assert.ErrorIs(t, err, ErrInvalidShoe)
}

func TestShoeConservation(t *testing.T) {
	for decks := MinDecks; decks <= MaxDecks; decks++ {
		shoe, err := NewShoe(decks, 0.75, randutil.New(int64(decks)))
		require.NoError(t, err)

		total := decks * CardsPerDeck
		require.Equal(t, total, shoe.TotalCards())

		ranks := map[Rank]int{}
		suits := map[Suit]int{}
		for i := 0; i < total; i++ {
			c, err := shoe.Draw(true)
			require.NoError(t, err)
			require.Equal(t, i+1, shoe.CardsDealt())
			require.Equal(t, total, shoe.CardsDealt()+shoe.Remaining())
			ranks[c.Rank]++
			suits[c.Suit]++
		}

		for _, r := range Ranks {
			assert.Equal(t, 4*decks, ranks[r], "rank %s with %d decks", r, decks)
		}
		for _, s := range Suits {
			assert.Equal(t, 13*decks, suits[s], "suit %s with %d decks", s, decks)
		}

		_, err = shoe.Draw(true)
		assert.ErrorIs(t, err, ErrShoeExhausted)
		assert.Equal(t, total, shoe.CardsDealt())
	}
}

func TestShoeDrawOrientation(t *testing.T) {
	shoe := NewStackedShoe(MustParseCards("As Kd")...)

	up, err := shoe.Draw(true)
	require.NoError(t, err)
	assert.True(t, up.FaceUp)

	down, err := shoe.Draw(false)
	require.NoError(t, err)
	assert.False(t, down.FaceUp)
	assert.Equal(t, King, down.Rank)
}

func TestReshuffleTrigger(t *testing.T) {
	shoe, err := NewShoe(1, 0.75, randutil.New(7))
	require.NoError(t, err)
	assert.Equal(t, 13, shoe.CutPosition())

	for i := 0; i < 38; i++ {
		_, err := shoe.Draw(true)
		require.NoError(t, err)
		assert.False(t, shoe.NeedsReshuffle(), "after %d cards", i+1)
	}
	_, err = shoe.Draw(true)
	require.NoError(t, err)
	assert.True(t, shoe.NeedsReshuffle())

	shoe.Reshuffle()
	assert.Equal(t, 0, shoe.CardsDealt())
	assert.Equal(t, 52, shoe.Remaining())
	assert.False(t, shoe.NeedsReshuffle())
}

func TestCutPositionForCommonPenetrations(t *testing.T) {
	tests := []struct {
		decks       int
		penetration float64
		cut         int
	}{
		{1, 0.75, 13},
		{6, 0.75, 78},
		{8, 0.5, 208},
		{2, 0.9, 10},
		{6, 0.7, 93},
	}
	for _, tt := range tests {
		shoe, err := NewShoe(tt.decks, tt.penetration, randutil.New(1))
		require.NoError(t, err)
		assert.Equal(t, tt.cut, shoe.CutPosition(), "decks=%d p=%v", tt.decks, tt.penetration)
	}
}

func TestShoeDeterministicForSeed(t *testing.T) {
	a, err := NewShoe(2, 0.75, randutil.New(42))
	require.NoError(t, err)
	b, err := NewShoe(2, 0.75, randutil.New(42))
	require.NoError(t, err)
	assert.Equal(t, a.Peek(104), b.Peek(104))
}

func TestShoeTestHooks(t *testing.T) {
	shoe := NewStackedShoe(MustParseCards("2c 3c 4c 5c 6c")...)
	assert.False(t, shoe.NeedsReshuffle())

	peeked := shoe.Peek(2)
	require.Len(t, peeked, 2)
	assert.Equal(t, Two, peeked[0].Rank)
	assert.Equal(t, 0, shoe.CardsDealt())

	require.NoError(t, shoe.Burn(2))
	c, err := shoe.Draw(true)
	require.NoError(t, err)
	assert.Equal(t, Four, c.Rank)

	assert.ErrorIs(t, shoe.Burn(10), ErrShoeExhausted)
	require.NoError(t, shoe.SetPosition(0))
	c, err = shoe.Draw(true)
	require.NoError(t, err)
	assert.Equal(t, Two, c.Rank)
	assert.Error(t, shoe.SetPosition(6))

	shoe.Reshuffle()
	assert.Equal(t, 5, shoe.Remaining())
	assert.Len(t, shoe.Peek(10), 5)
}

// TestShuffleUniformity runs a chi-squared test on the position of one card
// across many shuffles of a single deck. With 51 degrees of freedom the
// critical value at p=0.001 is about 87.97.
func TestShuffleUniformity(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}

	const samples = 52 * 400
	shoe, err := NewShoe(1, 0.75, randutil.New(2024))
	require.NoError(t, err)

	counts := make([]int, CardsPerDeck)
	for range samples {
		shoe.Reshuffle()
		for pos, c := range shoe.Peek(CardsPerDeck) {
			if c.Rank == Ace && c.Suit == Spades {
				counts[pos]++
				break
			}
		}
	}

	expected := float64(samples) / CardsPerDeck
	chi2 := 0.0
	for _, observed := range counts {
		d := float64(observed) - expected
		chi2 += d * d / expected
	}
	assert.Less(t, chi2, 87.97, "position distribution of A♠ deviates from uniform")
}
