// Package hand scores blackjack hands. Every function is pure and works on a
// plain card slice, so the same code serves player hands, the dealer hand and
// side-bet evaluation.
package hand

import (
	"slices"

	"github.com/lox/blackjack/internal/deck"
)

// Blackjack is the target total
const Blackjack = 21

// softBonus is what counting one Ace as 11 instead of 1 adds
const softBonus = 10

// Totals returns every total the cards can make, counting each Ace as either
// 1 or 11. The result is sorted ascending and contains no duplicates; an
// empty hand totals {0}.
func Totals(cards []deck.Card) []int {
	totals := []int{0}
	for _, c := range cards {
		if !c.IsAce() {
			for i := range totals {
				totals[i] += c.Value()
			}
			continue
		}
		next := make([]int, 0, len(totals)*2)
		for _, t := range totals {
			next = append(next, t+1, t+1+softBonus)
		}
		slices.Sort(next)
		totals = slices.Compact(next)
	}
	return totals
}

// BestTotal picks the highest total that does not bust. When every total
// busts it returns the lowest one.
func BestTotal(totals []int) int {
	if len(totals) == 0 {
		return 0
	}
	best := -1
	lowest := totals[0]
	for _, t := range totals {
		if t <= Blackjack && t > best {
			best = t
		}
		if t < lowest {
			lowest = t
		}
	}
	if best >= 0 {
		return best
	}
	return lowest
}

// Total is BestTotal(Totals(cards))
func Total(cards []deck.Card) int {
	return BestTotal(Totals(cards))
}

// HardTotal counts every Ace as 1
func HardTotal(cards []deck.Card) int {
	total := 0
	for _, c := range cards {
		total += c.Value()
	}
	return total
}

// IsBlackjack reports a natural: two cards totalling 21 that did not come
// from a split. A split hand reaching 21 in two cards is a plain 21.
func IsBlackjack(cards []deck.Card, fromSplit bool) bool {
	return len(cards) == 2 && !fromSplit && Total(cards) == Blackjack
}

// IsBusted reports whether the best total is over 21
func IsBusted(cards []deck.Card) bool {
	return Total(cards) > Blackjack
}

// IsSoft reports whether the best total counts an Ace as 11
func IsSoft(cards []deck.Card) bool {
	hasAce := slices.ContainsFunc(cards, deck.Card.IsAce)
	return hasAce && Total(cards) != HardTotal(cards)
}

// IsPair reports two cards of equal rank. Suits are ignored and 10-K of
// different ranks are not a pair.
func IsPair(cards []deck.Card) bool {
	return len(cards) == 2 && cards[0].Rank == cards[1].Rank
}

// Summary is the evaluator's view of one hand
type Summary struct {
	Totals    []int `json:"totals"`
	Total     int   `json:"total"`
	Soft      bool  `json:"soft"`
	Blackjack bool  `json:"blackjack"`
	Busted    bool  `json:"busted"`
	Pair      bool  `json:"pair"`
}

// Evaluate computes the full summary for a hand
func Evaluate(cards []deck.Card, fromSplit bool) Summary {
	totals := Totals(cards)
	total := BestTotal(totals)
	return Summary{
		Totals:    totals,
		Total:     total,
		Soft:      IsSoft(cards),
		Blackjack: IsBlackjack(cards, fromSplit),
		Busted:    total > Blackjack,
		Pair:      IsPair(cards),
	}
}
