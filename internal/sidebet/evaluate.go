package sidebet

import (
	"fmt"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/hand"
)

// Values is a per-game card value table. Games disagree on what an Ace is
// worth, so each game that sums card values carries its own.
type Values struct {
	Ace int `json:"ace"`
}

// Value returns the card's value under the table. Faces count 10.
func (v Values) Value(c deck.Card) int {
	if c.IsAce() {
		return v.Ace
	}
	return c.Value()
}

// Sum adds the values of the cards
func (v Values) Sum(cards ...deck.Card) int {
	total := 0
	for _, c := range cards {
		total += v.Value(c)
	}
	return total
}

// Default value tables
var (
	LuckyLuckyValues = Values{Ace: 11}
	OverUnderValues  = Values{Ace: 1}
)

// Input is everything a side bet can look at
type Input struct {
	Player          [2]deck.Card
	DealerUp        deck.Card
	DealerBlackjack bool
}

// Result is the outcome of one side-bet evaluation
type Result struct {
	Kind       Kind    `json:"kind"`
	Label      string  `json:"label,omitempty"`
	Won        bool    `json:"won"`
	Multiplier float64 `json:"multiplier,omitempty"`
}

// Evaluator applies payout tables and value tables to side bets
type Evaluator struct {
	Payouts          Tables
	LuckyLuckyValues Values
	OverUnderValues  Values
}

// NewEvaluator returns an evaluator with the default tables
func NewEvaluator() *Evaluator {
	return &Evaluator{
		Payouts:          DefaultTables(),
		LuckyLuckyValues: LuckyLuckyValues,
		OverUnderValues:  OverUnderValues,
	}
}

// Evaluate classifies a wager and attaches the multiplier for a win.
// Label is set whenever the cards form a recognised combination, even when
// the wager itself loses (an Over 13 pick on an exactly-13 hand).
func (e *Evaluator) Evaluate(kind Kind, in Input) (Result, error) {
	res := Result{Kind: kind}
	a, b := in.Player[0], in.Player[1]

	switch kind {
	case PerfectPairs:
		res.Label = PerfectPair(a, b)
		res.Won = res.Label != ""
	case TwentyOnePlusThree:
		res.Label = ClassifyThree(a, b, in.DealerUp).Label()
		res.Won = res.Label != ""
	case Insurance:
		if in.DealerUp.IsAce() && in.DealerBlackjack {
			res.Label = LabelInsurance
			res.Won = true
		}
	case LuckyLucky:
		res.Label = e.luckyLucky(a, b, in.DealerUp)
		res.Won = res.Label != ""
	case RoyalMatch:
		res.Label = RoyalMatchLabel(a, b)
		res.Won = res.Label != ""
	case Over13, Under13, Exactly13:
		res.Label = OverUnderLabel(e.OverUnderValues.Sum(a, b))
		res.Won = res.Label == pickLabel(kind)
	default:
		return Result{}, fmt.Errorf("unknown side bet kind %d", kind)
	}

	if res.Won {
		res.Multiplier = e.Payouts.Multiplier(kind.Table(), res.Label)
	}
	return res, nil
}

// PerfectPair classifies the first two cards as a pair. The most specific
// match wins: same suit, then same colour, then any pair.
func PerfectPair(a, b deck.Card) string {
	if a.Rank != b.Rank {
		return ""
	}
	switch {
	case a.Suit == b.Suit:
		return LabelPerfectPair
	case a.IsRed() == b.IsRed():
		return LabelColoredPair
	default:
		return LabelMixedPair
	}
}

func (e *Evaluator) luckyLucky(a, b, up deck.Card) string {
	total := e.LuckyLuckyValues.Sum(a, b, up)
	suited := a.Suit == b.Suit && b.Suit == up.Suit
	sevens := a.Rank == deck.Seven && b.Rank == deck.Seven && up.Rank == deck.Seven

	switch {
	case total == 21 && sevens && suited:
		return Label777Suited
	case total == 21 && sevens:
		return Label777Unsuited
	case total == 21 && suited:
		return Label21Suited
	case total == 21:
		return Label21Unsuited
	case total == 20:
		return Label20
	case total == 19:
		return Label19
	default:
		return ""
	}
}

// RoyalMatchLabel classifies a suited first two cards
func RoyalMatchLabel(a, b deck.Card) string {
	if a.Suit != b.Suit {
		return ""
	}
	switch {
	case a.Rank.IsFace() && b.Rank.IsFace():
		return LabelRoyalMatch
	case hand.IsBlackjack([]deck.Card{a, b}, false):
		return LabelSuitedBlackjack
	case a.Rank == b.Rank:
		return LabelSuitedPair
	default:
		return ""
	}
}

// OverUnderLabel classifies a two-card sum against 13
func OverUnderLabel(sum int) string {
	switch {
	case sum == 13:
		return LabelExactly13
	case sum > 13:
		return LabelOver13
	default:
		return LabelUnder13
	}
}
