package sidebet

import (
	"slices"

	"github.com/lox/blackjack/internal/deck"
)

// PokerHand is the ranking of a three-card poker hand, weakest first
type PokerHand int

const (
	NoPokerHand PokerHand = iota
	Flush
	Straight
	ThreeOfAKind
	StraightFlush
	SuitedTrips
)

// Label returns the 21+3 payout label for the hand, or "" for no hand
func (p PokerHand) Label() string {
	switch p {
	case Flush:
		return LabelFlush
	case Straight:
		return LabelStraight
	case ThreeOfAKind:
		return LabelThreeOfAKind
	case StraightFlush:
		return LabelStraightFlush
	case SuitedTrips:
		return LabelSuitedTrips
	default:
		return ""
	}
}

func (p PokerHand) String() string {
	if p == NoPokerHand {
		return "nothing"
	}
	return p.Label()
}

// ClassifyThree ranks three cards as a poker hand. Trips are checked first;
// straight and flush are then checked independently. Aces play high (Q-K-A)
// or low (A-2-3) but straights do not wrap around (K-A-2).
func ClassifyThree(a, b, c deck.Card) PokerHand {
	if a.Rank == b.Rank && b.Rank == c.Rank {
		if a.Suit == b.Suit && b.Suit == c.Suit {
			return SuitedTrips
		}
		return ThreeOfAKind
	}

	flush := a.Suit == b.Suit && b.Suit == c.Suit
	straight := isStraight(a.Rank, b.Rank, c.Rank)

	switch {
	case straight && flush:
		return StraightFlush
	case straight:
		return Straight
	case flush:
		return Flush
	default:
		return NoPokerHand
	}
}

func isStraight(ranks ...deck.Rank) bool {
	values := make([]int, len(ranks))
	for i, r := range ranks {
		values[i] = int(r)
	}
	if consecutive(values) {
		return true
	}
	// Try the Ace as a one.
	if !slices.Contains(ranks, deck.Ace) {
		return false
	}
	for i, r := range ranks {
		if r == deck.Ace {
			values[i] = 1
		}
	}
	return consecutive(values)
}

func consecutive(values []int) bool {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1]+1 {
			return false
		}
	}
	return true
}
