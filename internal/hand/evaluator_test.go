package hand

import (
	"testing"

	"github.com/lox/blackjack/internal/deck"
	"github.com/stretchr/testify/assert"
)

func cards(s string) []deck.Card {
	return deck.MustParseCards(s)
}

func TestTotals(t *testing.T) {
	tests := []struct {
		name   string
		cards  string
		totals []int
		best   int
	}{
		{"empty", "", []int{0}, 0},
		{"single ace", "As", []int{1, 11}, 11},
		{"two aces", "AsAd", []int{2, 12, 22}, 12},
		{"ten six ace", "Th6cAd", []int{17, 27}, 17},
		{"ace six", "As6d", []int{7, 17}, 17},
		{"twenty one with three cards", "TsTdAh", []int{21, 31}, 21},
		{"hard bust", "Th8c5d", []int{23}, 23},
		{"king queen ace", "KhQcAs", []int{21, 31}, 21},
		{"bust with ace reports lowest", "KhQc2sAs", []int{23, 33}, 23},
		{"four aces", "AsAhAdAc", []int{4, 14, 24, 34, 44}, 14},
		{"face cards", "KsQh", []int{20}, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := Totals(cards(tt.cards))
			assert.Equal(t, tt.totals, totals)
			assert.Equal(t, tt.best, BestTotal(totals))
		})
	}
}

func TestBestTotalEmpty(t *testing.T) {
	assert.Equal(t, 0, BestTotal(nil))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name      string
		cards     string
		fromSplit bool
		blackjack bool
		busted    bool
		soft      bool
		pair      bool
	}{
		{name: "natural", cards: "AsKh", blackjack: true, soft: true},
		{name: "split ace and king is not a natural", cards: "AsKh", fromSplit: true, soft: true},
		{name: "three card 21", cards: "TsTdAh"},
		{name: "ten six ace is a hard seventeen", cards: "Th6cAd"},
		{name: "ace six is soft", cards: "As6d", soft: true},
		{name: "bust", cards: "Th8c5d", busted: true},
		{name: "pair of eights", cards: "8s8h", pair: true},
		{name: "ten and king are not a pair", cards: "TsKh"},
		{name: "pair of aces", cards: "AsAd", pair: true, soft: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cards(tt.cards)
			assert.Equal(t, tt.blackjack, IsBlackjack(c, tt.fromSplit), "blackjack")
			assert.Equal(t, tt.busted, IsBusted(c), "busted")
			assert.Equal(t, tt.soft, IsSoft(c), "soft")
			assert.Equal(t, tt.pair, IsPair(c), "pair")

			s := Evaluate(c, tt.fromSplit)
			assert.Equal(t, tt.blackjack, s.Blackjack)
			assert.Equal(t, tt.busted, s.Busted)
			assert.Equal(t, tt.soft, s.Soft)
			assert.Equal(t, tt.pair, s.Pair)
			assert.Equal(t, Total(c), s.Total)
		})
	}
}

func TestDealerShouldHit(t *testing.T) {
	tests := []struct {
		name      string
		cards     string
		hitSoft17 bool
		hit       bool
	}{
		{"sixteen hits", "Th6c", false, true},
		{"hard seventeen stands", "Th7c", false, false},
		{"hard seventeen stands on H17", "Th7c", true, false},
		{"soft seventeen stands on S17", "As6c", false, false},
		{"soft seventeen hits on H17", "As6c", true, true},
		{"multi card soft seventeen hits on H17", "As2c4d", true, true},
		{"soft eighteen stands on H17", "As7c", true, false},
		{"twelve with two aces hits", "AsAc", false, true},
		{"bust does not hit", "Th6c9d", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hit, DealerShouldHit(cards(tt.cards), tt.hitSoft17))
		})
	}
}
